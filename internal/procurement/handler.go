package procurement

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/procuredesk/procuredesk/internal/platform/httpx"
	"github.com/procuredesk/procuredesk/internal/shared"
	"github.com/procuredesk/procuredesk/internal/users"
)

// maxUploadBytes bounds multipart attachment uploads.
const maxUploadBytes = 32 << 20

func init() {
	httpx.Register(ErrNotFound, http.StatusNotFound, "Not Found")
	httpx.Register(ErrValidation, http.StatusBadRequest, "Validation Failed")
	httpx.Register(ErrInvalidState, http.StatusConflict, "Invalid State")
	httpx.Register(ErrLastItem, http.StatusConflict, "Last Item")
	httpx.Register(ErrVersionConflict, http.StatusConflict, "Version Conflict")
	httpx.Register(ErrForbidden, http.StatusForbidden, "Forbidden")
	httpx.Register(context.DeadlineExceeded, http.StatusServiceUnavailable, "Timeout")
}

type requestService interface {
	Visible(actor users.User) []Request
	GetForActor(actor users.User, id string) (Request, error)
	CreateRequest(ctx context.Context, actor users.User, input CreateRequestInput) (Result, error)
	UpdateRequest(ctx context.Context, actor users.User, id string, patch RequestPatch) (Result, error)
	AcceptRequest(ctx context.Context, actor users.User, id, buyerID string) (Result, error)
	DeclineRequest(ctx context.Context, actor users.User, id string) (Result, error)
	UpdateStage(ctx context.Context, actor users.User, id string, stage Stage) (Result, error)
	TogglePublicStatus(ctx context.Context, actor users.User, id string) (Result, error)
	ToggleFilePublic(ctx context.Context, actor users.User, id, fileID string) (Result, error)
	UploadFile(ctx context.Context, actor users.User, id string, upload FileUpload) (Result, error)
	AddOrUpdateRequestItem(ctx context.Context, actor users.User, id string, input ItemInput) (Result, error)
	DeleteRequestItem(ctx context.Context, actor users.User, id, itemID string) (Result, error)
}

// Handler exposes request operations as JSON endpoints.
type Handler struct {
	logger  *slog.Logger
	service requestService
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service requestService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers request routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/requests", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Patch("/", h.update)
			r.Post("/accept", h.accept)
			r.Post("/decline", h.decline)
			r.Put("/stage", h.stage)
			r.Post("/visibility", h.visibility)
			r.Post("/files", h.upload)
			r.Post("/files/{fileID}/visibility", h.fileVisibility)
			r.Put("/items", h.upsertItem)
			r.Delete("/items/{itemID}", h.deleteItem)
		})
	})
}

type mutationResponse struct {
	Request      Request      `json:"request"`
	Sync         SyncStatus   `json:"sync"`
	Notification Notification `json:"notification"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	visible := h.service.Visible(actor)
	for i := range visible {
		visible[i] = PublicFiles(visible[i], actor)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"requests": visible})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	req, err := h.service.GetForActor(actor, chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, PublicFiles(req, actor))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var input CreateRequestInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		h.respond(w, r, actor, Result{}, wrapDecode(err), http.StatusCreated)
		return
	}
	res, err := h.service.CreateRequest(r.Context(), actor, input)
	h.respond(w, r, actor, res, err, http.StatusCreated)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var patch RequestPatch
	if err := httpx.DecodeJSON(w, r, &patch); err != nil {
		h.respond(w, r, actor, Result{}, wrapDecode(err), http.StatusOK)
		return
	}
	res, err := h.service.UpdateRequest(r.Context(), actor, chi.URLParam(r, "id"), patch)
	h.respond(w, r, actor, res, err, http.StatusOK)
}

type acceptPayload struct {
	BuyerID string `json:"buyerId"`
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var payload acceptPayload
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(w, r, &payload); err != nil {
			h.respond(w, r, actor, Result{}, wrapDecode(err), http.StatusOK)
			return
		}
	}
	res, err := h.service.AcceptRequest(r.Context(), actor, chi.URLParam(r, "id"), payload.BuyerID)
	h.respond(w, r, actor, res, err, http.StatusOK)
}

func (h *Handler) decline(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	res, err := h.service.DeclineRequest(r.Context(), actor, chi.URLParam(r, "id"))
	h.respond(w, r, actor, res, err, http.StatusOK)
}

type stagePayload struct {
	Stage Stage `json:"stage"`
}

func (h *Handler) stage(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var payload stagePayload
	if err := httpx.DecodeJSON(w, r, &payload); err != nil {
		h.respond(w, r, actor, Result{}, wrapDecode(err), http.StatusOK)
		return
	}
	res, err := h.service.UpdateStage(r.Context(), actor, chi.URLParam(r, "id"), payload.Stage)
	h.respond(w, r, actor, res, err, http.StatusOK)
}

func (h *Handler) visibility(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	res, err := h.service.TogglePublicStatus(r.Context(), actor, chi.URLParam(r, "id"))
	h.respond(w, r, actor, res, err, http.StatusOK)
}

func (h *Handler) fileVisibility(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	res, err := h.service.ToggleFilePublic(r.Context(), actor, chi.URLParam(r, "id"), chi.URLParam(r, "fileID"))
	h.respond(w, r, actor, res, err, http.StatusOK)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.respond(w, r, actor, Result{}, wrapDecode(err), http.StatusCreated)
		return
	}
	defer file.Close()
	upload := FileUpload{
		Name:     header.Filename,
		Type:     contentType(header.Filename, header.Header.Get("Content-Type")),
		Size:     header.Size,
		IsPublic: r.FormValue("isPublic") == "true",
		Body:     file,
	}
	res, err := h.service.UploadFile(r.Context(), actor, chi.URLParam(r, "id"), upload)
	h.respond(w, r, actor, res, err, http.StatusCreated)
}

func (h *Handler) upsertItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var input ItemInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		h.respond(w, r, actor, Result{}, wrapDecode(err), http.StatusOK)
		return
	}
	res, err := h.service.AddOrUpdateRequestItem(r.Context(), actor, chi.URLParam(r, "id"), input)
	h.respond(w, r, actor, res, err, http.StatusOK)
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	res, err := h.service.DeleteRequestItem(r.Context(), actor, chi.URLParam(r, "id"), chi.URLParam(r, "itemID"))
	h.respond(w, r, actor, res, err, http.StatusOK)
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (users.User, bool) {
	actor, ok := users.FromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return users.User{}, false
	}
	return actor, true
}

// respond writes the mutation outcome and queues its notification as a
// session flash.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, actor users.User, res Result, err error, status int) {
	if err != nil {
		note := FailureNotification(err)
		h.flash(r, note)
		if code, _ := httpx.Status(err); code >= http.StatusInternalServerError {
			h.logger.Error("request mutation", slog.String("user_id", actor.ID), slog.String("path", r.URL.Path), slog.Any("error", err))
		}
		httpx.RespondProblem(w, err, map[string]any{"notification": note})
		return
	}
	if res.SyncErr != nil {
		h.logger.Warn("request saved locally", slog.String("request_id", res.Request.ID), slog.Bool("queued", res.SyncErr.Queued), slog.Any("error", res.SyncErr.Err))
	}
	h.flash(r, res.Notification)
	httpx.JSON(w, status, mutationResponse{
		Request:      PublicFiles(res.Request, actor),
		Sync:         res.Sync,
		Notification: res.Notification,
	})
}

func (h *Handler) flash(r *http.Request, note Notification) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: string(note.Kind), Message: note.Message})
	}
}

// contentType prefers the extension when the client sent no useful type.
func contentType(name, declared string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if guess := mime.TypeByExtension(filepath.Ext(name)); guess != "" {
		return guess
	}
	if declared == "" {
		return "application/octet-stream"
	}
	return declared
}

func wrapDecode(err error) error {
	if errors.Is(err, ErrValidation) {
		return err
	}
	return errors.Join(ErrValidation, err)
}
