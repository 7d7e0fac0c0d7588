package users

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/procuredesk/procuredesk/internal/platform/httpx"
	"github.com/procuredesk/procuredesk/internal/shared"
)

func init() {
	httpx.Register(ErrNotFound, http.StatusNotFound, "Not Found")
}

type directory interface {
	ListUsers(ctx context.Context) ([]User, error)
	ListByRole(ctx context.Context, role Role) ([]User, error)
}

// Handler exposes the user directory and the current session.
type Handler struct {
	logger  *slog.Logger
	service directory
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service directory) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me", h.me)
	r.Get("/me/notifications", h.notifications)
	r.Get("/users", h.list)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, ok := FromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

// notifications drains the flashes queued by earlier mutations.
func (h *Handler) notifications(w http.ResponseWriter, r *http.Request) {
	if _, ok := FromContext(r.Context()); !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	flashes := []shared.FlashMessage{}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		popped, err := sess.PopFlashes(r.Context())
		if err != nil {
			h.logger.Error("drain notifications", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		if len(popped) > 0 {
			flashes = popped
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"notifications": flashes})
}

// list is used by admins to pick a buyer when accepting a request.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	user, ok := FromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if user.Role != RoleAdmin {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var (
		out []User
		err error
	)
	if role := Role(r.URL.Query().Get("role")); role != "" {
		if !role.Valid() {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
		out, err = h.service.ListByRole(r.Context(), role)
	} else {
		out, err = h.service.ListUsers(r.Context())
	}
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if out == nil {
		out = []User{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": out})
}
