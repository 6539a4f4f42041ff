// Command simulate replays the trading simulation: one producer per matching
// partition submits random orders while the scheduler matches them.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/joripage/venue-sim/config"
	"github.com/joripage/venue-sim/pkg/logging"
	"github.com/joripage/venue-sim/pkg/orderbook"
	"github.com/joripage/venue-sim/pkg/scheduler"
	"github.com/joripage/venue-sim/pkg/sink"
	"github.com/joripage/venue-sim/pkg/venue"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func randomOrder(rnd *rand.Rand, r scheduler.Range, sim config.SimulateConfig) (orderbook.Side, int, int64, decimal.Decimal) {
	side := orderbook.BUY
	if rnd.Intn(2) == 0 {
		side = orderbook.SELL
	}
	instrument := r.Start + rnd.Intn(r.End-r.Start)
	qty := sim.MinQty + rnd.Int63n(sim.MaxQty-sim.MinQty+1)
	price := decimal.NewFromFloat(sim.MinPrice + rnd.Float64()*(sim.MaxPrice-sim.MinPrice)).Round(2)
	return side, instrument, qty, price
}

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel))
	defer logger.Sync() // nolint
	undo := zap.ReplaceGlobals(logger.Zap())
	defer undo()

	recorder := sink.NewRecorder()
	var events sink.Sink = recorder
	if cfg.Sink.Log {
		events = sink.Multi{recorder, sink.NewLogSink(logger.Zap())}
	}

	registry := orderbook.NewRegistry(orderbook.RegistryConfig{
		Instruments:  cfg.Venue.Instruments,
		SignalBuffer: cfg.Venue.SignalBuffer,
	})
	v := venue.New(registry, events, logger)
	sched := scheduler.New(registry, scheduler.Config{
		Workers:        cfg.Venue.Workers,
		IdleBackoffMax: time.Duration(cfg.Venue.IdleBackoffMaxMs) * time.Millisecond,
	}, logger.Zap())

	ctx, cancel := context.WithCancel(context.Background())
	schedDone := make(chan error, 1)
	go func() { schedDone <- sched.Run(ctx) }()

	start := time.Now()
	var wg sync.WaitGroup
	for i, r := range sched.Partitions() {
		wg.Add(1)
		go func(seed int64, r scheduler.Range) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			for n := 0; n < cfg.Simulate.OrdersPerWorker; n++ {
				side, instrument, qty, price := randomOrder(rnd, r, cfg.Simulate)
				if _, err := v.AddOrder(ctx, side, instrument, qty, price); err != nil {
					zap.S().Errorw("add order fail", "err", err)
				}
				time.Sleep(time.Duration(cfg.Simulate.DelayMs) * time.Millisecond)
			}
		}(time.Now().UnixNano()+int64(i), r)
	}
	wg.Wait()

	// give the workers a chance to consume the last signals, then stop them
	// and match whatever is still pending on this goroutine
	wait := backoff.NewExponentialBackOff()
	wait.InitialInterval = time.Millisecond
	wait.MaxInterval = 50 * time.Millisecond
	wait.MaxElapsedTime = 5 * time.Second
	if err := backoff.Retry(func() error {
		if n := registry.Pending(); n > 0 {
			return fmt.Errorf("%d instruments still pending", n)
		}
		return nil
	}, wait); err != nil {
		zap.S().Warnw("workers did not drain in time", "err", err)
	}
	cancel()
	if err := <-schedDone; err != nil {
		zap.S().Errorw("scheduler stopped with error", "err", err)
	}
	if n := sched.Drain(); n > 0 {
		zap.S().Infow("drained leftover match signals", "attempts", n)
	}
	elapsed := time.Since(start)

	stats := v.Stats()
	fmt.Println("--------")
	fmt.Printf("Total Orders     : %d\n", stats.Accepted)
	fmt.Printf("Total Matches    : %d\n", stats.MatchCount)
	fmt.Printf("Total Matched Qty: %d\n", stats.MatchedQty)
	fmt.Printf("Trade Events     : %d\n", len(recorder.OfType(sink.EventMatched)))
	fmt.Printf("Time Taken       : %s\n", elapsed)
	fmt.Println("Simulation completed")
}
