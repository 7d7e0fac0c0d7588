package procurement

import (
	"errors"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// NotificationKind classifies a user-facing message.
type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyWarning NotificationKind = "warning"
	NotifyError   NotificationKind = "error"
)

// Notification is the single human readable message produced per mutation.
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
}

var printer = message.NewPrinter(language.English)

func qty(v float64) string {
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

func notifyf(kind NotificationKind, format string, args ...any) Notification {
	return Notification{Kind: kind, Message: printer.Sprintf(format, args...)}
}

// FailureNotification maps a mutation error onto the message shown to users.
func FailureNotification(err error) Notification {
	switch {
	case errors.Is(err, ErrNotFound):
		return Notification{Kind: NotifyError, Message: "The request could not be found."}
	case errors.Is(err, ErrLastItem):
		return Notification{Kind: NotifyError, Message: "A request must keep at least one item."}
	case errors.Is(err, ErrInvalidState):
		return Notification{Kind: NotifyError, Message: "The request is no longer in a state that allows this action."}
	case errors.Is(err, ErrVersionConflict):
		return Notification{Kind: NotifyError, Message: "The request was changed by someone else. Reload and try again."}
	case errors.Is(err, ErrForbidden):
		return Notification{Kind: NotifyError, Message: "You are not allowed to perform this action."}
	case errors.Is(err, ErrValidation):
		return Notification{Kind: NotifyError, Message: "Some fields are missing or invalid."}
	default:
		return Notification{Kind: NotifyError, Message: "Something went wrong. Please try again."}
	}
}

// withSync downgrades a success message when the backend did not accept the change.
func withSync(n Notification, status SyncStatus) Notification {
	if status != SyncPending {
		return n
	}
	return Notification{Kind: NotifyWarning, Message: n.Message + " Saved locally, not yet synced."}
}
