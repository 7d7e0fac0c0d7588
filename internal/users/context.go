package users

import "context"

type userContextKey struct{}

// ContextWithUser stores the acting user in context.
func ContextWithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// FromContext extracts the acting user from context.
func FromContext(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(userContextKey{}).(User)
	if !ok || user.IsZero() {
		return User{}, false
	}
	return user, true
}
