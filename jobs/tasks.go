package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/procuredesk/procuredesk/internal/procurement"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueSync carries reconciliation of locally applied request changes.
	QueueSync = "sync"

	// TaskRequestSync re-persists a request snapshot the API could not save.
	TaskRequestSync = "procurement:request_sync"
	// TaskReportRefresh invalidates cached reports.
	TaskReportRefresh = "reporting:refresh"
)

// RequestSyncPayload is the snapshot queued after a failed backend write.
type RequestSyncPayload struct {
	Op         string              `json:"op"`
	Request    procurement.Request `json:"request"`
	EnqueuedAt time.Time           `json:"enqueued_at"`
}

// NewRequestSyncTask builds the task for one snapshot. The task id is derived
// from the request version so the same snapshot is never queued twice.
func NewRequestSyncTask(op string, req procurement.Request, now time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(RequestSyncPayload{Op: op, Request: req, EnqueuedAt: now.UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRequestSync, body,
		asynq.Queue(QueueSync),
		asynq.TaskID(requestSyncTaskID(req)),
		asynq.MaxRetry(10),
		asynq.Retention(24*time.Hour),
	), nil
}

func requestSyncTaskID(req procurement.Request) string {
	return TaskRequestSync + ":" + req.ID + ":" + itoa(int(req.Version))
}

// NewReportRefreshTask builds the periodic report invalidation task.
func NewReportRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskReportRefresh, nil, asynq.Queue(QueueDefault))
}
