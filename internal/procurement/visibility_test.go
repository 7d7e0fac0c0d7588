package procurement_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/procuredesk/procuredesk/internal/procurement"
	"github.com/procuredesk/procuredesk/internal/users"
)

func TestVisibleToFiltersByRole(t *testing.T) {
	all := []procurement.Request{
		{ID: "1", ClientID: "client-c", BuyerID: "buyer-b"},
		{ID: "2", ClientID: "client-c"},
		{ID: "3", ClientID: "client-d", BuyerID: "buyer-e"},
		{ID: "4", ClientID: "client-d"},
		{ID: "5", ClientID: "client-f", BuyerID: "buyer-e"},
	}

	admin := procurement.VisibleTo(all, users.User{ID: "a", Role: users.RoleAdmin})
	buyer := procurement.VisibleTo(all, users.User{ID: "buyer-b", Role: users.RoleBuyer})
	client := procurement.VisibleTo(all, users.User{ID: "client-c", Role: users.RoleClient})
	unknown := procurement.VisibleTo(all, users.User{ID: "client-c", Role: "auditor"})

	require.Len(t, admin, 5)
	require.Len(t, buyer, 1)
	require.Equal(t, "1", buyer[0].ID)
	require.Len(t, client, 2)
	require.Empty(t, unknown)
}

func TestPublicFilesOnlyForClients(t *testing.T) {
	req := procurement.Request{Files: []procurement.File{{ID: "f1", IsPublic: true}, {ID: "f2"}}}

	client := procurement.PublicFiles(req, users.User{Role: users.RoleClient})
	require.Len(t, client.Files, 1)
	require.Equal(t, "f1", client.Files[0].ID)

	buyer := procurement.PublicFiles(req, users.User{Role: users.RoleBuyer})
	require.Len(t, buyer.Files, 2)
}

func TestAllowedPolicy(t *testing.T) {
	pending := procurement.Request{ClientID: "c1", Status: procurement.StatusPending}
	accepted := procurement.Request{ClientID: "c1", BuyerID: "b1", Status: procurement.StatusAccepted}
	client := users.User{ID: "c1", Role: users.RoleClient}
	buyer := users.User{ID: "b1", Role: users.RoleBuyer}
	other := users.User{ID: "b2", Role: users.RoleBuyer}

	require.True(t, procurement.Allowed(client, procurement.ActionEditItem, pending))
	require.False(t, procurement.Allowed(client, procurement.ActionEditItem, accepted))
	require.False(t, procurement.Allowed(client, procurement.ActionStage, pending))
	require.True(t, procurement.Allowed(buyer, procurement.ActionAccept, pending))
	require.True(t, procurement.Allowed(buyer, procurement.ActionStage, accepted))
	require.False(t, procurement.Allowed(other, procurement.ActionStage, accepted))
	require.False(t, procurement.Allowed(other, procurement.ActionDecline, accepted))
	require.True(t, procurement.Allowed(users.User{Role: users.RoleAdmin}, procurement.ActionStage, accepted))
}
