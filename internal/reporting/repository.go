package reporting

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the buyer_performance table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListBuyerPerformance returns the latest aggregate rows ordered by buyer name.
// A missing table yields no rows since the aggregate is produced elsewhere.
func (r *Repository) ListBuyerPerformance(ctx context.Context) ([]BuyerPerformance, error) {
	rows, err := r.pool.Query(ctx, `SELECT bp.buyer_id, COALESCE(u.name, bp.buyer_id), bp.period,
		bp.active_requests, bp.completed_requests, bp.on_time_rate::float8,
		bp.avg_lead_days::float8, bp.total_value::float8, bp.updated_at
		FROM buyer_performance bp
		LEFT JOIN users u ON u.id = bp.buyer_id
		ORDER BY 2, bp.period DESC`)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "42P01" {
			return []BuyerPerformance{}, nil
		}
		return nil, err
	}
	defer rows.Close()
	var out []BuyerPerformance
	for rows.Next() {
		var bp BuyerPerformance
		if err := rows.Scan(&bp.BuyerID, &bp.BuyerName, &bp.Period, &bp.ActiveRequests,
			&bp.CompletedRequests, &bp.OnTimeRate, &bp.AvgLeadDays, &bp.TotalValue, &bp.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, bp)
	}
	return out, rows.Err()
}
