package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/procuredesk/procuredesk/internal/procurement"
)

// RequestSaver persists a full request snapshot.
type RequestSaver interface {
	SaveRequest(ctx context.Context, req procurement.Request) error
}

// JobObserver records job outcomes.
type JobObserver interface {
	ObserveJob(task, outcome string)
}

// RequestSyncHandler processes TaskRequestSync tasks.
type RequestSyncHandler struct {
	saver   RequestSaver
	metrics JobObserver
	logger  *slog.Logger
}

// NewRequestSyncHandler constructs the handler.
func NewRequestSyncHandler(saver RequestSaver, metrics JobObserver, logger *slog.Logger) *RequestSyncHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestSyncHandler{saver: saver, metrics: metrics, logger: logger}
}

// ProcessTask implements asynq.Handler. Undecodable payloads, a missing
// schema and snapshots older than the stored row are not retried.
func (h *RequestSyncHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload RequestSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.Request.ID == "" {
		h.observe("skipped")
		h.logger.Error("request sync payload invalid", slog.Any("error", err))
		return fmt.Errorf("decode request sync payload: %w", asynq.SkipRetry)
	}
	log := h.logger.With(slog.String("request_id", payload.Request.ID), slog.String("op", payload.Op))
	if err := h.saver.SaveRequest(ctx, payload.Request); err != nil {
		if errors.Is(err, procurement.ErrTableMissing) {
			h.observe("skipped")
			log.Warn("request sync skipped, schema missing", slog.Any("error", err))
			return fmt.Errorf("%w: %w", asynq.SkipRetry, err)
		}
		if errors.Is(err, procurement.ErrSuperseded) {
			h.observe("superseded")
			log.Info("request sync dropped, newer version stored", slog.Int64("version", payload.Request.Version), slog.Any("error", err))
			return fmt.Errorf("%w: %w", asynq.SkipRetry, err)
		}
		h.observe("error")
		log.Error("request sync failed", slog.Any("error", err))
		return err
	}
	h.observe("success")
	log.Info("request synced", slog.Int64("version", payload.Request.Version))
	return nil
}

func (h *RequestSyncHandler) observe(outcome string) {
	if h.metrics != nil {
		h.metrics.ObserveJob(TaskRequestSync, outcome)
	}
}
