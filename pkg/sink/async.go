package sink

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Async decouples publishers from a slow sink with a bounded buffer.
// Events that do not fit are dropped and counted.
type Async struct {
	next    Sink
	events  chan Event
	dropped atomic.Int64

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewAsync(next Sink, buffer int) *Async {
	if buffer <= 0 {
		buffer = 1024
	}
	a := &Async{
		next:   next,
		events: make(chan Event, buffer),
	}

	a.wg.Add(1)
	go a.run()
	return a
}

func (a *Async) run() {
	defer a.wg.Done()
	for ev := range a.events {
		a.next.Publish(context.Background(), ev)
	}
}

func (a *Async) Publish(_ context.Context, ev Event) {
	select {
	case a.events <- ev:
	default:
		if n := a.dropped.Add(1); n%1000 == 1 {
			zap.S().Warnw("sink buffer full, dropping events", "dropped", n)
		}
	}
}

func (a *Async) Dropped() int64 {
	return a.dropped.Load()
}

// Close drains buffered events. Publish must not be called afterwards.
func (a *Async) Close() {
	a.closeOnce.Do(func() {
		close(a.events)
	})
	a.wg.Wait()
}
