package orderbook

import (
	"fmt"
	"sync"
)

type RegistryConfig struct {
	Instruments  int
	SignalBuffer int
}

type instrumentEntry struct {
	book   *OrderBook
	signal chan struct{}
}

// Registry owns one OrderBook and one pending-match signal per instrument index.
// The set of instruments is fixed at construction.
type Registry struct {
	entries []instrumentEntry

	cbMu      sync.RWMutex
	callbacks []func([]MatchResult)
}

func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.SignalBuffer <= 0 {
		cfg.SignalBuffer = 1
	}

	entries := make([]instrumentEntry, cfg.Instruments)
	for i := range entries {
		entries[i] = instrumentEntry{
			book:   newOrderBook(i),
			signal: make(chan struct{}, cfg.SignalBuffer),
		}
	}

	return &Registry{entries: entries}
}

func (r *Registry) Len() int {
	return len(r.entries)
}

func (r *Registry) entry(instrument int) (*instrumentEntry, error) {
	if instrument < 0 || instrument >= len(r.entries) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrInstrumentOutOfRange, instrument, len(r.entries))
	}
	return &r.entries[instrument], nil
}

func (r *Registry) Book(instrument int) (*OrderBook, error) {
	e, err := r.entry(instrument)
	if err != nil {
		return nil, err
	}
	return e.book, nil
}

// Signal marks instrument as needing a match attempt without blocking.
// ErrSignalPending means an unconsumed signal already guarantees one.
func (r *Registry) Signal(instrument int) error {
	e, err := r.entry(instrument)
	if err != nil {
		return err
	}

	select {
	case e.signal <- struct{}{}:
		return nil
	default:
		return ErrSignalPending
	}
}

// TryConsume takes at most one pending signal for instrument.
func (r *Registry) TryConsume(instrument int) bool {
	e, err := r.entry(instrument)
	if err != nil {
		return false
	}

	select {
	case <-e.signal:
		return true
	default:
		return false
	}
}

// Pending counts instruments with an unconsumed match signal.
func (r *Registry) Pending() int {
	n := 0
	for i := range r.entries {
		if len(r.entries[i].signal) > 0 {
			n++
		}
	}
	return n
}

// Match runs the book's matching under its lock and hands any fills to the
// registered trade callbacks after the lock is released.
func (r *Registry) Match(instrument int) []MatchResult {
	e, err := r.entry(instrument)
	if err != nil {
		return nil
	}

	results := e.book.Match()
	if len(results) > 0 {
		r.cbMu.RLock()
		callbacks := r.callbacks
		r.cbMu.RUnlock()

		for _, cb := range callbacks {
			cb(results)
		}
	}
	return results
}

func (r *Registry) RegisterTradeCallback(cb func([]MatchResult)) {
	r.cbMu.Lock()
	defer r.cbMu.Unlock()

	r.callbacks = append(r.callbacks, cb)
}
