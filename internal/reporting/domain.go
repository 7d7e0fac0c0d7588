// Package reporting summarizes requests for dashboards and exposes the
// externally computed buyer performance aggregate.
package reporting

import (
	"errors"
	"time"

	"github.com/procuredesk/procuredesk/internal/procurement"
)

// ErrForbidden is returned when the actor may not read a report.
var ErrForbidden = errors.New("reporting: forbidden")

// StageCount is the number of requests at one stage.
type StageCount struct {
	Stage procurement.Stage `json:"stage"`
	Count int               `json:"count"`
}

// DashboardStats aggregates the requests visible to one actor.
type DashboardStats struct {
	Total         int                        `json:"total"`
	ByStatus      map[procurement.Status]int `json:"byStatus"`
	ByStage       []StageCount               `json:"byStage"`
	QtyRequested  float64                    `json:"qtyRequested"`
	QtyDelivered  float64                    `json:"qtyDelivered"`
	QtyPending    float64                    `json:"qtyPending"`
	TotalValue    float64                    `json:"totalValue"`
	OverDelivered int                        `json:"overDelivered"`
	Public        int                        `json:"public"`
}

// BuyerPerformance is a row of the buyer_performance table. It is produced
// by an external process and only read here.
type BuyerPerformance struct {
	BuyerID           string    `json:"buyerId"`
	BuyerName         string    `json:"buyerName"`
	Period            string    `json:"period"`
	ActiveRequests    int       `json:"activeRequests"`
	CompletedRequests int       `json:"completedRequests"`
	OnTimeRate        float64   `json:"onTimeRate"`
	AvgLeadDays       float64   `json:"avgLeadDays"`
	TotalValue        float64   `json:"totalValue"`
	UpdatedAt         time.Time `json:"updatedAt"`
}
