package reporting_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/procuredesk/procuredesk/internal/procurement"
	"github.com/procuredesk/procuredesk/internal/reporting"
	"github.com/procuredesk/procuredesk/internal/users"
)

var (
	admin  = users.User{ID: "u-admin-1", Role: users.RoleAdmin}
	buyer1 = users.User{ID: "u-buyer-1", Role: users.RoleBuyer}
	client = users.User{ID: "u-client-1", Role: users.RoleClient}
)

type countingSource struct {
	calls atomic.Int32
	delay time.Duration
	rows  []reporting.BuyerPerformance
}

func (s *countingSource) ListBuyerPerformance(ctx context.Context) ([]reporting.BuyerPerformance, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.rows, nil
}

type staticRequests []procurement.Request

func (s staticRequests) Visible(actor users.User) []procurement.Request {
	return procurement.VisibleTo(s, actor)
}

func newService(t *testing.T, source *countingSource) *reporting.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := reporting.NewCache(client, time.Minute)
	return reporting.NewService(staticRequests(procurement.FallbackRequests()), source, cache)
}

func performanceRows() []reporting.BuyerPerformance {
	return []reporting.BuyerPerformance{
		{BuyerID: "u-buyer-1", BuyerName: "Ben Buyer", Period: "2024-03", ActiveRequests: 1, CompletedRequests: 1, OnTimeRate: 0.5},
		{BuyerID: "u-buyer-2", BuyerName: "Bianca Buyer", Period: "2024-03", ActiveRequests: 1},
	}
}

func TestBuyerPerformanceScopedByRole(t *testing.T) {
	source := &countingSource{rows: performanceRows()}
	svc := newService(t, source)
	ctx := context.Background()

	all, err := svc.BuyerPerformance(ctx, admin)
	require.NoError(t, err)
	require.Len(t, all, 2)

	own, err := svc.BuyerPerformance(ctx, buyer1)
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.Equal(t, "u-buyer-1", own[0].BuyerID)

	_, err = svc.BuyerPerformance(ctx, client)
	require.ErrorIs(t, err, reporting.ErrForbidden)

	require.EqualValues(t, 1, source.calls.Load())
}

func TestBuyerPerformanceSharesConcurrentMisses(t *testing.T) {
	source := &countingSource{rows: performanceRows(), delay: 50 * time.Millisecond}
	svc := newService(t, source)

	var wg sync.WaitGroup
	counts := make([]int, 8)
	errs := make([]error, 8)
	for i := range counts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rows, err := svc.BuyerPerformance(context.Background(), admin)
			counts[i], errs[i] = len(rows), err
		}(i)
	}
	wg.Wait()
	for i := range counts {
		require.NoError(t, errs[i])
		require.Equal(t, 2, counts[i])
	}
	require.EqualValues(t, 1, source.calls.Load())
}

func TestRefreshInvalidatesCache(t *testing.T) {
	source := &countingSource{rows: performanceRows()}
	svc := newService(t, source)
	ctx := context.Background()

	_, err := svc.BuyerPerformance(ctx, admin)
	require.NoError(t, err)
	require.ErrorIs(t, svc.Refresh(ctx, buyer1), reporting.ErrForbidden)
	require.NoError(t, svc.Refresh(ctx, admin))
	_, err = svc.BuyerPerformance(ctx, admin)
	require.NoError(t, err)
	require.EqualValues(t, 2, source.calls.Load())
}

func TestDashboardUsesVisibleRequests(t *testing.T) {
	svc := newService(t, &countingSource{})
	require.Equal(t, 5, svc.Dashboard(admin).Total)
	require.Equal(t, 3, svc.Dashboard(client).Total)
}
