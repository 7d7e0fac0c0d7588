package reporting

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/procuredesk/procuredesk/internal/platform/httpx"
	"github.com/procuredesk/procuredesk/internal/users"
)

func init() {
	httpx.Register(ErrForbidden, http.StatusForbidden, "Forbidden")
}

type reportService interface {
	Dashboard(actor users.User) DashboardStats
	BuyerPerformance(ctx context.Context, actor users.User) ([]BuyerPerformance, error)
	Refresh(ctx context.Context, actor users.User) error
}

// Handler serves report endpoints.
type Handler struct {
	logger  *slog.Logger
	service reportService
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service reportService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/dashboard", h.dashboard)
		r.Get("/buyers", h.buyers)
		r.Post("/buyers/refresh", h.refresh)
	})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := users.FromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	httpx.JSON(w, http.StatusOK, h.service.Dashboard(actor))
}

func (h *Handler) buyers(w http.ResponseWriter, r *http.Request) {
	actor, ok := users.FromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	rows, err := h.service.BuyerPerformance(r.Context(), actor)
	if err != nil {
		if code, _ := httpx.Status(err); code >= http.StatusInternalServerError {
			h.logger.Error("buyer performance", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"buyers": rows})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	actor, ok := users.FromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if err := h.service.Refresh(r.Context(), actor); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
