package procurement

import "github.com/procuredesk/procuredesk/internal/users"

// VisibleTo returns the requests the actor may see: admins see everything,
// buyers see what is assigned to them and clients see what they own. The
// result is derived on every call and never cached across actors.
func VisibleTo(all []Request, actor users.User) []Request {
	out := make([]Request, 0, len(all))
	for _, r := range all {
		if canSee(r, actor) {
			out = append(out, r)
		}
	}
	return out
}

func canSee(r Request, actor users.User) bool {
	switch actor.Role {
	case users.RoleAdmin:
		return true
	case users.RoleBuyer:
		return actor.ID != "" && r.BuyerID == actor.ID
	case users.RoleClient:
		return actor.ID != "" && r.ClientID == actor.ID
	default:
		return false
	}
}

// PublicFiles strips private attachments from a request shown to a client.
func PublicFiles(r Request, actor users.User) Request {
	if actor.Role != users.RoleClient {
		return r
	}
	files := make([]File, 0, len(r.Files))
	for _, f := range r.Files {
		if f.IsPublic {
			files = append(files, f)
		}
	}
	r.Files = files
	return r
}
