package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/joripage/venue-sim/pkg/orderbook"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionCoversEveryInstrument(t *testing.T) {
	cases := []struct{ n, w int }{{1024, 10}, {1024, 1}, {10, 10}, {3, 8}, {7, 3}}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%d/%d", c.n, c.w), func(t *testing.T) {
			ranges := Partition(c.n, c.w)
			require.NotEmpty(t, ranges)
			assert.LessOrEqual(t, len(ranges), c.w)

			next := 0
			for _, r := range ranges {
				assert.Equal(t, next, r.Start, "ranges must be contiguous and disjoint")
				assert.Greater(t, r.End, r.Start)
				next = r.End
			}
			assert.Equal(t, c.n, next)
		})
	}

	ranges := Partition(1024, 10)
	assert.Equal(t, Range{0, 103}, ranges[0])
	assert.Equal(t, Range{921, 1024}, ranges[9])
	assert.Nil(t, Partition(0, 4))
}

func startScheduler(t *testing.T, reg matcher, workers int) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	s := New(reg, Config{Workers: workers, IdleBackoffMax: time.Millisecond}, nil)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("scheduler did not stop")
		}
	})
	return cancel
}

func TestSchedulerMatchesSignalledInstruments(t *testing.T) {
	reg := orderbook.NewRegistry(orderbook.RegistryConfig{Instruments: 64})

	var mu sync.Mutex
	var filled int64
	reg.RegisterTradeCallback(func(results []orderbook.MatchResult) {
		mu.Lock()
		defer mu.Unlock()
		for _, r := range results {
			filled += r.Qty
		}
	})
	startScheduler(t, reg, 4)

	for i := 0; i < 64; i++ {
		book, err := reg.Book(i)
		require.NoError(t, err)
		book.Insert(&orderbook.Order{ID: fmt.Sprintf("B%d", i), Side: orderbook.BUY, Price: decimal.NewFromInt(20), Qty: 10})
		_ = reg.Signal(i)
		book.Insert(&orderbook.Order{ID: fmt.Sprintf("S%d", i), Side: orderbook.SELL, Price: decimal.NewFromInt(20), Qty: 10})
		_ = reg.Signal(i)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return filled == 64*10
	}, 5*time.Second, time.Millisecond)

	for i := 0; i < 64; i++ {
		book, _ := reg.Book(i)
		top := book.TopOfBook()
		assert.Zero(t, top.BuyOrders+top.SellOrders, "instrument %d", i)
	}
}

// Each signal produces a match attempt even when signals saturate.
type countingRegistry struct {
	*orderbook.Registry
	mu       sync.Mutex
	attempts map[int]int
}

func (c *countingRegistry) Match(instrument int) []orderbook.MatchResult {
	c.mu.Lock()
	c.attempts[instrument]++
	c.mu.Unlock()
	return c.Registry.Match(instrument)
}

func TestSchedulerNoSignalLost(t *testing.T) {
	reg := &countingRegistry{
		Registry: orderbook.NewRegistry(orderbook.RegistryConfig{Instruments: 8}),
		attempts: map[int]int{},
	}
	startScheduler(t, reg, 3)

	for round := 1; round <= 20; round++ {
		for i := 0; i < 8; i++ {
			require.NoError(t, reg.Signal(i))
		}
		require.Eventually(t, func() bool {
			reg.mu.Lock()
			defer reg.mu.Unlock()
			for i := 0; i < 8; i++ {
				if reg.attempts[i] < round {
					return false
				}
			}
			return true
		}, 5*time.Second, time.Millisecond)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	for i := 0; i < 8; i++ {
		assert.Equal(t, 20, reg.attempts[i], "instrument %d", i)
	}
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	reg := orderbook.NewRegistry(orderbook.RegistryConfig{Instruments: 4})
	s := New(reg, Config{Workers: 2}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestDrainMatchesLeftoverSignals(t *testing.T) {
	reg := orderbook.NewRegistry(orderbook.RegistryConfig{Instruments: 16, SignalBuffer: 2})
	s := New(reg, Config{Workers: 4}, nil)

	for _, i := range []int{0, 7, 15} {
		book, err := reg.Book(i)
		require.NoError(t, err)
		require.NoError(t, book.Insert(&orderbook.Order{ID: fmt.Sprintf("S%d", i), Side: orderbook.SELL, Price: decimal.NewFromInt(10), Qty: 5}))
		require.NoError(t, reg.Signal(i))
		require.NoError(t, book.Insert(&orderbook.Order{ID: fmt.Sprintf("B%d", i), Side: orderbook.BUY, Price: decimal.NewFromInt(10), Qty: 5}))
		require.NoError(t, reg.Signal(i))
	}
	require.Equal(t, 3, reg.Pending())

	assert.Equal(t, 6, s.Drain())
	assert.Zero(t, reg.Pending())
	for _, i := range []int{0, 7, 15} {
		book, _ := reg.Book(i)
		top := book.TopOfBook()
		assert.Zero(t, top.BuyOrders+top.SellOrders, "instrument %d", i)
	}
	assert.Zero(t, s.Drain())
}
