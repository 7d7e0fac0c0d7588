package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestServiceGetResolvesKnownUser(t *testing.T) {
	svc := NewService(NewMemoryRepository(DemoUsers()...))

	user, err := svc.Get(context.Background(), "u-buyer-1")
	require.NoError(t, err)
	require.Equal(t, RoleBuyer, user.Role)

	_, err = svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(context.Background(), "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceRejectsUnknownRole(t *testing.T) {
	svc := NewService(NewMemoryRepository(User{ID: "x", Name: "X", Role: "auditor"}))
	_, err := svc.Get(context.Background(), "x")
	require.Error(t, err)
}

func TestListByRole(t *testing.T) {
	svc := NewService(NewMemoryRepository(DemoUsers()...))
	buyers, err := svc.ListByRole(context.Background(), RoleBuyer)
	require.NoError(t, err)
	require.Len(t, buyers, 2)
	require.Equal(t, "Ben Buyer", buyers[0].Name)
}

func TestContextRoundTrip(t *testing.T) {
	ctx := ContextWithUser(context.Background(), User{ID: "u1", Role: RoleClient})
	user, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "u1", user.ID)

	_, ok = FromContext(context.Background())
	require.False(t, ok)
}
