package reporting

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/procuredesk/procuredesk/internal/procurement"
)

func TestDashboardAggregates(t *testing.T) {
	requests := []procurement.Request{
		{ID: "a", Stage: procurement.StageResourcing, Status: procurement.StatusAccepted, QtyRequested: 10, QtyDelivered: 4, QtyPending: 6, TotalPrice: 0.1, IsPublic: true},
		{ID: "b", Stage: procurement.StageResourcing, Status: procurement.StatusAccepted, QtyRequested: 5, QtyDelivered: 7, TotalPrice: 0.2, OverDelivered: true},
		{ID: "c", Stage: procurement.StageNewRequest, Status: procurement.StatusPending, QtyRequested: 3, QtyPending: 3},
	}

	stats := Dashboard(requests)
	require.Equal(t, 3, stats.Total)
	require.Equal(t, 2, stats.ByStatus[procurement.StatusAccepted])
	require.Equal(t, 1, stats.ByStatus[procurement.StatusPending])
	require.Len(t, stats.ByStage, len(procurement.Stages()))
	require.Equal(t, StageCount{Stage: procurement.StageNewRequest, Count: 1}, stats.ByStage[0])
	require.Equal(t, StageCount{Stage: procurement.StageResourcing, Count: 2}, stats.ByStage[1])
	require.Equal(t, 18.0, stats.QtyRequested)
	require.Equal(t, 11.0, stats.QtyDelivered)
	require.Equal(t, 9.0, stats.QtyPending)
	require.Equal(t, 0.3, stats.TotalValue)
	require.Equal(t, 1, stats.OverDelivered)
	require.Equal(t, 1, stats.Public)
}

func TestDashboardEmpty(t *testing.T) {
	stats := Dashboard(nil)
	require.Zero(t, stats.Total)
	require.Zero(t, stats.TotalValue)
	require.Len(t, stats.ByStage, len(procurement.Stages()))
}
