package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Activity is one entry of the user activity log.
type Activity struct {
	UserID     string
	UserName   string
	Role       string
	Action     string
	EntityType string
	EntityID   string
	Details    map[string]any
	At         time.Time
}

// ActivityLogger writes records into activity_logs.
type ActivityLogger struct {
	pool *pgxpool.Pool
}

// NewActivityLogger returns a new ActivityLogger.
func NewActivityLogger(pool *pgxpool.Pool) *ActivityLogger {
	return &ActivityLogger{pool: pool}
}

// Record persists the log entry.
func (l *ActivityLogger) Record(ctx context.Context, entry Activity) error {
	if l == nil || l.pool == nil {
		return errors.New("activity logger not initialised")
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return err
	}
	var at *time.Time
	if !entry.At.IsZero() {
		at = &entry.At
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO activity_logs (user_id, user_name, role, action, entity_type, entity_id, details, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))`,
		entry.UserID, entry.UserName, entry.Role, entry.Action, entry.EntityType, entry.EntityID, details, at)
	return err
}

// Validate checks the mandatory fields of an entry.
func (a Activity) Validate() error {
	if a.Action == "" || a.EntityType == "" || a.EntityID == "" {
		return fmt.Errorf("%w: action, entity_type and entity_id are required", ErrInvalidActivity)
	}
	return nil
}
