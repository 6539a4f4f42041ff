// Package scheduler runs the matching workers. Each worker owns a contiguous,
// disjoint range of instruments and polls their pending-match signals.
package scheduler

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/joripage/venue-sim/pkg/orderbook"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type matcher interface {
	Len() int
	TryConsume(instrument int) bool
	Match(instrument int) []orderbook.MatchResult
}

type Config struct {
	Workers        int
	IdleBackoffMax time.Duration
}

type Scheduler struct {
	registry   matcher
	partitions []Range
	cfg        Config
	logger     *zap.Logger
}

// Range is the half-open instrument interval [Start, End).
type Range struct {
	Start int
	End   int
}

// Partition splits [0, n) into w contiguous ranges; the first n%w ranges get one extra instrument.
func Partition(n, w int) []Range {
	if w <= 0 || n <= 0 {
		return nil
	}
	if w > n {
		w = n
	}

	ranges := make([]Range, 0, w)
	size, extra := n/w, n%w
	start := 0
	for i := 0; i < w; i++ {
		end := start + size
		if i < extra {
			end++
		}
		ranges = append(ranges, Range{Start: start, End: end})
		start = end
	}
	return ranges
}

func New(registry matcher, cfg Config, logger *zap.Logger) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.IdleBackoffMax <= 0 {
		cfg.IdleBackoffMax = 5 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		registry:   registry,
		partitions: Partition(registry.Len(), cfg.Workers),
		cfg:        cfg,
		logger:     logger,
	}
}

func (s *Scheduler) Partitions() []Range {
	return s.partitions
}

// Run blocks until ctx is cancelled. A nil error means a clean shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for id, r := range s.partitions {
		g.Go(func() error {
			return s.work(ctx, id, r)
		})
	}
	return g.Wait()
}

func (s *Scheduler) newIdleBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Microsecond
	b.MaxInterval = s.cfg.IdleBackoffMax
	b.MaxElapsedTime = 0 // never stop
	b.Reset()
	return b
}

func (s *Scheduler) work(ctx context.Context, id int, r Range) error {
	logger := s.logger.With(zap.Int("worker", id), zap.Int("from", r.Start), zap.Int("to", r.End))
	logger.Info("match worker started")
	defer logger.Info("match worker stopped")

	idle := s.newIdleBackoff()
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		if ctx.Err() != nil {
			return nil
		}

		if s.sweep(r) > 0 {
			idle.Reset()
			continue
		}

		timer.Reset(idle.NextBackOff())
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

// Drain consumes every remaining signal on the calling goroutine until a full
// sweep finds none, and returns the number of match attempts made. It must not
// run concurrently with Run, and producers must have stopped.
func (s *Scheduler) Drain() int {
	all := Range{Start: 0, End: s.registry.Len()}
	total := 0
	for {
		n := s.sweep(all)
		if n == 0 {
			return total
		}
		total += n
	}
}

// sweep gives every instrument in r at most one match attempt and reports how many ran.
func (s *Scheduler) sweep(r Range) int {
	attempts := 0
	for i := r.Start; i < r.End; i++ {
		if s.registry.TryConsume(i) {
			s.registry.Match(i)
			attempts++
		}
	}
	return attempts
}
