package procurement

import (
	"fmt"
	"time"
)

var fallbackEpoch = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

// fallbackRows is the static dataset served when the requests table is
// missing. Some rows deliberately carry no items.
var fallbackRows = []struct {
	row   RequestRow
	items []ItemRow
}{
	{
		row: RequestRow{
			ID: "req-1001", RFQNumber: "RFQ-1001", Entity: "Northwind Drilling",
			Description: "Hydraulic hose assemblies for rig 7", Vendor: "Parker Hannifin",
			PlaceOfDelivery: "Port Harcourt", PlaceOfArrival: "Onne", DateDue: "2024-04-15",
			Stage: string(StageResourcing), Status: string(StatusAccepted),
			ClientID: "u-client-1", BuyerID: "u-buyer-1", IsPublic: true,
		},
		items: []ItemRow{
			{ID: "item-1001-1", ItemNumber: "HH-200", Description: "2in hose assembly", QtyRequested: "40", QtyDelivered: "10", UnitPrice: "125.50", Line: 1},
			{ID: "item-1001-2", ItemNumber: "HH-210", Description: "Crimp fittings", QtyRequested: "80", QtyDelivered: "0", Line: 2},
		},
	},
	{
		row: RequestRow{
			ID: "req-1002", RFQNumber: "RFQ-1002", PONumber: "PO-7781", Entity: "Northwind Drilling",
			Description: "Safety harnesses", Vendor: "3M", PODate: "2024-03-01",
			ExpDeliveryDate: "2024-03-28", PlaceOfDelivery: "Lagos",
			Stage: string(StageCustoms), Status: string(StatusAccepted),
			ClientID: "u-client-1", BuyerID: "u-buyer-2", IsPublic: true,
		},
		items: []ItemRow{
			{ID: "item-1002-1", ItemNumber: "SH-01", Description: "Full body harness", QtyRequested: "25", QtyDelivered: "25", UnitPrice: "89.99", Line: 1},
		},
	},
	{
		row: RequestRow{
			ID: "req-1003", RFQNumber: "RFQ-1003", Entity: "Coral Marine",
			Description: "Marine diesel filters", DateDue: "2024-05-02",
			QtyRequested: "12", Stage: string(StageNewRequest), Status: string(StatusPending),
			ClientID: "u-client-2",
		},
	},
	{
		row: RequestRow{
			ID: "req-1004", PONumber: "PO-7790", Entity: "Coral Marine",
			Description: "Navigation lights", Vendor: "Hella Marine", PODate: "2024-02-11",
			DateDelivered: "2024-03-02", Stage: string(StageDelivered), Status: string(StatusCompleted),
			QtyRequested: "6", QtyDelivered: "6",
			ClientID: "u-client-2", BuyerID: "u-buyer-1", IsPublic: true,
		},
	},
	{
		row: RequestRow{
			ID: "req-1005", RFQNumber: "RFQ-1005", Entity: "Northwind Drilling",
			Description: "Office consumables", Stage: string(StageNewRequest), Status: string(StatusDeclined),
			ClientID: "u-client-1",
		},
		items: []ItemRow{
			{ID: "item-1005-1", ItemNumber: "OC-1", Description: "Printer toner", QtyRequested: "10", Line: 1},
			{ID: "item-1005-2", ItemNumber: "OC-2", Description: "A4 paper boxes", QtyRequested: "30", Line: 2},
		},
	},
}

// FallbackRequests returns the deterministic mock dataset. Every request has
// at least one item.
func FallbackRequests() []Request {
	out := make([]Request, 0, len(fallbackRows))
	for i, entry := range fallbackRows {
		row := entry.row
		row.CreatedAt = fallbackEpoch.Add(time.Duration(i) * 24 * time.Hour)
		row.UpdatedAt = row.CreatedAt
		items := entry.items
		if len(items) == 0 {
			items = []ItemRow{synthesizedItem(row)}
		}
		out = append(out, ToRequest(row, items))
	}
	return out
}

// synthesizedItem covers the whole requested quantity of a row without items.
func synthesizedItem(row RequestRow) ItemRow {
	return ItemRow{
		ID:           fmt.Sprintf("%s-item-1", row.ID),
		RequestID:    row.ID,
		ItemNumber:   "1",
		Description:  row.Description,
		QtyRequested: row.QtyRequested,
		QtyDelivered: row.QtyDelivered,
		Line:         1,
	}
}
