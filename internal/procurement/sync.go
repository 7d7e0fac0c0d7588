package procurement

import "fmt"

// SyncStatus describes whether a locally applied change reached the backend.
type SyncStatus string

const (
	// SyncSynced means the backend accepted the change.
	SyncSynced SyncStatus = "synced"
	// SyncPending means the change is saved locally but not yet in the backend.
	SyncPending SyncStatus = "pending"
	// SyncLocal means no backend is configured.
	SyncLocal SyncStatus = "local"
)

// SyncError records why a change could not be persisted remotely.
type SyncError struct {
	Op        string
	RequestID string
	Queued    bool
	Err       error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("procurement: sync %s %s: %v", e.Op, e.RequestID, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Result is the outcome of a mutation: the locally applied request, its sync
// state and the notification to show to the user.
type Result struct {
	Request      Request      `json:"request"`
	Sync         SyncStatus   `json:"sync"`
	SyncErr      *SyncError   `json:"-"`
	Notification Notification `json:"notification"`
}
