package reporting

import (
	"context"

	"github.com/procuredesk/procuredesk/internal/procurement"
	"github.com/procuredesk/procuredesk/internal/users"
)

// PerformanceSource supplies buyer performance rows.
type PerformanceSource interface {
	ListBuyerPerformance(ctx context.Context) ([]BuyerPerformance, error)
}

// RequestSource returns the requests an actor may see.
type RequestSource interface {
	Visible(actor users.User) []procurement.Request
}

// Service builds reports.
type Service struct {
	requests RequestSource
	source   PerformanceSource
	cache    *Cache
}

// NewService constructs the reporting service.
func NewService(requests RequestSource, source PerformanceSource, cache *Cache) *Service {
	return &Service{requests: requests, source: source, cache: cache}
}

// Dashboard returns stats over the actor's visible requests.
func (s *Service) Dashboard(actor users.User) DashboardStats {
	return Dashboard(s.requests.Visible(actor))
}

// BuyerPerformance returns the aggregate rows. Admins see every buyer,
// buyers only themselves.
func (s *Service) BuyerPerformance(ctx context.Context, actor users.User) ([]BuyerPerformance, error) {
	if actor.Role != users.RoleAdmin && actor.Role != users.RoleBuyer {
		return nil, ErrForbidden
	}
	all, err := s.allPerformance(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Role == users.RoleAdmin {
		return all, nil
	}
	out := make([]BuyerPerformance, 0, 1)
	for _, bp := range all {
		if bp.BuyerID == actor.ID {
			out = append(out, bp)
		}
	}
	return out, nil
}

func (s *Service) allPerformance(ctx context.Context) ([]BuyerPerformance, error) {
	if s.source == nil {
		return []BuyerPerformance{}, nil
	}
	key, err := s.cache.BuildKey(ctx, "buyers")
	if err != nil {
		return nil, err
	}
	var out []BuyerPerformance
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		rows, err := s.source.ListBuyerPerformance(ctx)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []BuyerPerformance{}
		}
		return rows, nil
	})
	return out, err
}

// Refresh drops cached reports. Admin only.
func (s *Service) Refresh(ctx context.Context, actor users.User) error {
	if actor.Role != users.RoleAdmin {
		return ErrForbidden
	}
	return s.cache.Bump(ctx)
}
