package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/procuredesk/procuredesk/internal/procurement"
)

type stubSaver struct {
	err   error
	saved []procurement.Request
}

func (s *stubSaver) SaveRequest(ctx context.Context, req procurement.Request) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, req)
	return nil
}

type stubObserver map[string]int

func (o stubObserver) ObserveJob(task, outcome string) {
	o[task+":"+outcome]++
}

func TestNewRequestSyncTask(t *testing.T) {
	req := procurement.Request{ID: "req-1001", Version: 4, Status: procurement.StatusAccepted}
	task, err := NewRequestSyncTask("accept", req, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, TaskRequestSync, task.Type())

	var payload RequestSyncPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, "accept", payload.Op)
	require.Equal(t, "req-1001", payload.Request.ID)
	require.Equal(t, "procurement:request_sync:req-1001:4", requestSyncTaskID(req))
}

func TestRequestSyncHandlerSavesSnapshot(t *testing.T) {
	saver := &stubSaver{}
	obs := stubObserver{}
	h := NewRequestSyncHandler(saver, obs, nil)

	task, err := NewRequestSyncTask("stage", procurement.Request{ID: "req-1", Stage: procurement.StageCustoms}, time.Now())
	require.NoError(t, err)
	require.NoError(t, h.ProcessTask(context.Background(), task))
	require.Len(t, saver.saved, 1)
	require.Equal(t, procurement.StageCustoms, saver.saved[0].Stage)
	require.Equal(t, 1, obs[TaskRequestSync+":success"])
}

func TestRequestSyncHandlerSkipsRetry(t *testing.T) {
	obs := stubObserver{}
	h := NewRequestSyncHandler(&stubSaver{}, obs, nil)

	err := h.ProcessTask(context.Background(), asynq.NewTask(TaskRequestSync, []byte("{bad")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	missing := NewRequestSyncHandler(&stubSaver{err: fmt.Errorf("save: %w", procurement.ErrTableMissing)}, obs, nil)
	task, err := NewRequestSyncTask("update", procurement.Request{ID: "req-1"}, time.Now())
	require.NoError(t, err)
	err = missing.ProcessTask(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.ErrorIs(t, err, procurement.ErrTableMissing)
	require.Equal(t, 2, obs[TaskRequestSync+":skipped"])
}

// versionedSaver keeps the highest stored version per request, like the
// guarded UPDATE in the repository.
type versionedSaver struct {
	stored map[string]procurement.Request
}

func (s *versionedSaver) SaveRequest(ctx context.Context, req procurement.Request) error {
	if cur, ok := s.stored[req.ID]; ok && cur.Version >= req.Version {
		return fmt.Errorf("save %s: %w", req.ID, procurement.ErrSuperseded)
	}
	s.stored[req.ID] = req
	return nil
}

func TestRequestSyncHandlerDropsStaleSnapshot(t *testing.T) {
	saver := &versionedSaver{stored: map[string]procurement.Request{
		"req-1001": {ID: "req-1001", Version: 4, Status: procurement.StatusCompleted, Stage: procurement.StageDelivered},
	}}
	obs := stubObserver{}
	h := NewRequestSyncHandler(saver, obs, nil)

	stale := procurement.Request{ID: "req-1001", Version: 3, Status: procurement.StatusAccepted, Stage: procurement.StageCustoms}
	task, err := NewRequestSyncTask("stage", stale, time.Now())
	require.NoError(t, err)

	err = h.ProcessTask(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.ErrorIs(t, err, procurement.ErrSuperseded)
	require.Equal(t, 1, obs[TaskRequestSync+":superseded"])
	require.Equal(t, procurement.StatusCompleted, saver.stored["req-1001"].Status)
	require.Equal(t, int64(4), saver.stored["req-1001"].Version)
}

func TestRequestSyncHandlerRetriesTransientErrors(t *testing.T) {
	obs := stubObserver{}
	h := NewRequestSyncHandler(&stubSaver{err: errors.New("connection reset")}, obs, nil)
	task, err := NewRequestSyncTask("update", procurement.Request{ID: "req-1"}, time.Now())
	require.NoError(t, err)

	err = h.ProcessTask(context.Background(), task)
	require.Error(t, err)
	require.False(t, errors.Is(err, asynq.SkipRetry))
	require.Equal(t, 1, obs[TaskRequestSync+":error"])
}

type stubBumper struct{ calls int }

func (b *stubBumper) Bump(ctx context.Context) error {
	b.calls++
	return nil
}

func TestReportRefreshHandler(t *testing.T) {
	bumper := &stubBumper{}
	obs := stubObserver{}
	handler := NewReportRefreshHandler(bumper, obs, nil)
	require.NoError(t, handler(context.Background(), NewReportRefreshTask()))
	require.Equal(t, 1, bumper.calls)
	require.Equal(t, 1, obs[TaskReportRefresh+":success"])
}

func TestJobsHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, nil).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Queues []queueHealth `json:"queues"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Queues, 2)
	require.Equal(t, QueueSync, body.Queues[0].Queue)
}
