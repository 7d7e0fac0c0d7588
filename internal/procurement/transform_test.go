package procurement

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToRequestDerivesQuantitiesFromItems(t *testing.T) {
	row := RequestRow{ID: "r-1", Entity: "Acme", QtyRequested: "999", Stage: "Customs", ClientID: "c-1"}
	items := []ItemRow{{ID: "i-1", Description: "bolts", QtyRequested: "10", QtyDelivered: "3", Line: 1}}

	req := ToRequest(row, items)

	require.Equal(t, 10.0, req.QtyRequested)
	require.Equal(t, 3.0, req.QtyDelivered)
	require.Equal(t, 7.0, req.QtyPending)
	require.Equal(t, 7.0, req.Items[0].QtyPending)
	require.Equal(t, StageCustoms, req.Stage)
	require.Equal(t, StatusPending, req.Status)
	require.NotNil(t, req.Files)
}

func TestToRequestCoercesBadNumbersToZero(t *testing.T) {
	items := []ItemRow{
		{ID: "i-1", QtyRequested: "abc", QtyDelivered: "", UnitPrice: "n/a", Line: 2},
		{ID: "i-2", QtyRequested: "-5", QtyDelivered: "NaN", Line: 1},
	}
	req := ToRequest(RequestRow{ID: "r-1", Stage: "bogus"}, items)

	require.Equal(t, 0.0, req.QtyRequested)
	require.Equal(t, 0.0, req.QtyPending)
	require.Equal(t, StageNewRequest, req.Stage)
	require.Equal(t, "i-2", req.Items[0].ID)
	require.Equal(t, 1, req.Items[0].Line)
	require.Equal(t, 2, req.Items[1].Line)
	require.Nil(t, req.Items[1].UnitPrice)
}

func TestNumericAcceptsStringsAndNumbers(t *testing.T) {
	var row ItemRow
	require.NoError(t, json.Unmarshal([]byte(`{"qty_requested":"12.5","qty_delivered":4,"unit_price":null}`), &row))
	require.Equal(t, 12.5, row.QtyRequested.Float())
	require.Equal(t, 4.0, row.QtyDelivered.Float())
	require.False(t, row.UnitPrice.Present())
}

func TestRecomputeTotalsAndOverDelivery(t *testing.T) {
	price := 19.99
	req := Request{Items: []Item{
		{ID: "a", QtyRequested: 3, QtyDelivered: 5, UnitPrice: &price},
		{ID: "b", QtyRequested: 2},
	}}
	recompute(&req)

	require.NotNil(t, req.Items[0].TotalPrice)
	require.Equal(t, 59.97, *req.Items[0].TotalPrice)
	require.Nil(t, req.Items[1].TotalPrice)
	require.Equal(t, 59.97, req.TotalPrice)
	require.Equal(t, -2.0, req.Items[0].QtyPending)
	require.True(t, req.Items[0].OverDelivered)
	require.True(t, req.OverDelivered)
	require.Equal(t, 0.0, req.QtyPending)
}

func TestToRowsKeepsItemLines(t *testing.T) {
	price := 2.5
	req := ToRequest(RequestRow{ID: "r-1"}, []ItemRow{{ID: "i-1", QtyRequested: "4", UnitPrice: "2.5", Line: 1}})
	req.Items[0].UnitPrice = &price

	row, items, files := ToRows(req)
	require.Equal(t, Numeric("4"), row.QtyRequested)
	require.Len(t, items, 1)
	require.Equal(t, "r-1", items[0].RequestID)
	require.Equal(t, Numeric("2.5"), items[0].UnitPrice)
	require.Empty(t, files)
}

func TestFallbackRequestsAlwaysHaveItems(t *testing.T) {
	reqs := FallbackRequests()
	require.Len(t, reqs, 5)
	for _, r := range reqs {
		require.NotEmpty(t, r.Items, r.ID)
	}
	synth := reqs[2]
	require.Equal(t, "req-1003-item-1", synth.Items[0].ID)
	require.Equal(t, 12.0, synth.QtyRequested)
	require.Equal(t, 12.0, synth.QtyPending)

	first := reqs[0]
	require.Equal(t, 120.0, first.QtyRequested)
	require.Equal(t, 110.0, first.QtyPending)
	require.Equal(t, 5020.0, first.TotalPrice)
	require.True(t, reqs[1].CreatedAt.After(first.CreatedAt))
}
