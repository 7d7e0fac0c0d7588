package procurement

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func seededStore() *Store {
	s := NewStore()
	s.Load(FallbackRequests())
	return s
}

func TestStoreGetByIDAbsent(t *testing.T) {
	s := seededStore()
	_, ok := s.GetByID("missing")
	require.False(t, ok)

	got, ok := s.GetByID("req-1002")
	require.True(t, ok)
	require.Equal(t, "PO-7781", got.PONumber)
}

func TestStoreReturnsCopies(t *testing.T) {
	s := seededStore()
	got, _ := s.GetByID("req-1001")
	got.Items[0].Description = "changed"
	*got.Items[0].UnitPrice = 1

	again, _ := s.GetByID("req-1001")
	require.Equal(t, "2in hose assembly", again.Items[0].Description)
	require.Equal(t, 125.5, *again.Items[0].UnitPrice)
}

func TestStoreMutateKeepsPositionAndBumpsVersion(t *testing.T) {
	s := seededStore()
	before := s.Revision()
	updated, err := s.Mutate("req-1003", func(r *Request) error {
		r.Vendor = "Wartsila"
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), updated.Version)
	require.Equal(t, before+1, s.Revision())
	require.Equal(t, "req-1003", s.List()[2].ID)
	require.Equal(t, "Wartsila", s.List()[2].Vendor)
}

func TestStoreMutateErrorLeavesRecordUntouched(t *testing.T) {
	s := seededStore()
	_, err := s.Mutate("req-1001", func(r *Request) error {
		r.Vendor = "x"
		return ErrInvalidState
	})
	require.ErrorIs(t, err, ErrInvalidState)
	got, _ := s.GetByID("req-1001")
	require.Equal(t, "Parker Hannifin", got.Vendor)
	require.Equal(t, int64(1), got.Version)

	_, err = s.Mutate("nope", func(*Request) error { return nil })
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStoreCompareAndSwapRejectsStaleVersion(t *testing.T) {
	s := seededStore()
	_, err := s.CompareAndSwap("req-1001", 1, func(r *Request) error { r.Vendor = "first"; return nil })
	require.NoError(t, err)
	_, err = s.CompareAndSwap("req-1001", 1, func(r *Request) error { r.Vendor = "second"; return nil })
	require.ErrorIs(t, err, ErrVersionConflict)
	got, _ := s.GetByID("req-1001")
	require.Equal(t, "first", got.Vendor)
}

func TestStoreConcurrentMutationsDoNotLoseUpdates(t *testing.T) {
	s := seededStore()
	const workers = 50
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			_, err := s.Mutate("req-1001", func(r *Request) error {
				r.Items = append(r.Items, Item{ID: fmt.Sprintf("w-%d", i), QtyRequested: 1, Line: maxLine(r.Items) + 1})
				recompute(r)
				return nil
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	got, _ := s.GetByID("req-1001")
	require.Len(t, got.Items, 2+workers)
	require.Equal(t, int64(1+workers), got.Version)
	require.Equal(t, float64(120+workers), got.QtyRequested)
}

func TestStoreObservers(t *testing.T) {
	s := NewStore()
	var calls atomic.Int32
	unsubscribe := s.Subscribe(func(r Request) {
		calls.Add(1)
	})
	s.Insert(Request{ID: "a"})
	_, err := s.Mutate("a", func(r *Request) error { return nil })
	require.NoError(t, err)
	require.Equal(t, int32(2), calls.Load())

	unsubscribe()
	s.Insert(Request{ID: "b"})
	require.Equal(t, int32(2), calls.Load())
	require.Equal(t, 2, s.Len())
}
