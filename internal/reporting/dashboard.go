package reporting

import (
	"github.com/shopspring/decimal"

	"github.com/procuredesk/procuredesk/internal/procurement"
)

// Dashboard computes stats over an already filtered request slice.
func Dashboard(requests []procurement.Request) DashboardStats {
	stats := DashboardStats{
		Total:    len(requests),
		ByStatus: map[procurement.Status]int{},
	}
	stageIdx := map[procurement.Stage]int{}
	for i, st := range procurement.Stages() {
		stats.ByStage = append(stats.ByStage, StageCount{Stage: st})
		stageIdx[st] = i
	}
	value := decimal.Zero
	for _, r := range requests {
		stats.ByStatus[r.Status]++
		if i, ok := stageIdx[r.Stage]; ok {
			stats.ByStage[i].Count++
		}
		stats.QtyRequested += r.QtyRequested
		stats.QtyDelivered += r.QtyDelivered
		stats.QtyPending += r.QtyPending
		value = value.Add(decimal.NewFromFloat(r.TotalPrice))
		if r.OverDelivered {
			stats.OverDelivered++
		}
		if r.IsPublic {
			stats.Public++
		}
	}
	stats.TotalValue = value.Round(2).InexactFloat64()
	return stats
}
