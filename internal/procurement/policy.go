package procurement

import "github.com/procuredesk/procuredesk/internal/users"

// Action names a guarded mutation.
type Action string

const (
	ActionCreate      Action = "request.create"
	ActionUpdate      Action = "request.update"
	ActionAccept      Action = "request.accept"
	ActionDecline     Action = "request.decline"
	ActionStage       Action = "request.stage"
	ActionVisibility  Action = "request.visibility"
	ActionUploadFile  Action = "request.file.upload"
	ActionFileVisible Action = "request.file.visibility"
	ActionEditItem    Action = "request.item.edit"
	ActionDeleteItem  Action = "request.item.delete"
)

// Allowed reports whether actor may perform action on req. For ActionCreate
// req is the draft being created.
func Allowed(actor users.User, action Action, req Request) bool {
	switch actor.Role {
	case users.RoleAdmin:
		return true
	case users.RoleClient:
		owns := req.ClientID == actor.ID
		switch action {
		case ActionCreate, ActionUploadFile:
			return owns
		case ActionUpdate, ActionEditItem, ActionDeleteItem:
			return owns && req.Status == StatusPending
		}
		return false
	case users.RoleBuyer:
		switch action {
		case ActionAccept, ActionDecline:
			return req.BuyerID == "" || req.BuyerID == actor.ID
		case ActionStage, ActionVisibility, ActionUploadFile, ActionFileVisible, ActionEditItem, ActionDeleteItem, ActionUpdate:
			return req.BuyerID == actor.ID
		}
		return false
	}
	return false
}
