package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joripage/venue-sim/config"
	"github.com/joripage/venue-sim/pkg/api"
	"github.com/joripage/venue-sim/pkg/fixserver"
	redis_wrapper "github.com/joripage/venue-sim/pkg/infra/redis"
	kafkawrapper "github.com/joripage/venue-sim/pkg/kafka_wrapper"
	"github.com/joripage/venue-sim/pkg/logging"
	"github.com/joripage/venue-sim/pkg/orderbook"
	"github.com/joripage/venue-sim/pkg/scheduler"
	"github.com/joripage/venue-sim/pkg/sink"
	"github.com/joripage/venue-sim/pkg/venue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

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
	undo := zap.ReplaceGlobals(logger.Zap().With(zap.String("service", cfg.ServiceName)))
	defer undo()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks, closeSinks := buildSinks(ctx, cfg, logger)
	async := sink.NewAsync(sinks, cfg.Sink.AsyncBuffer)

	registry := orderbook.NewRegistry(orderbook.RegistryConfig{
		Instruments:  cfg.Venue.Instruments,
		SignalBuffer: cfg.Venue.SignalBuffer,
	})
	v := venue.New(registry, async, logger)
	sched := scheduler.New(registry, scheduler.Config{
		Workers:        cfg.Venue.Workers,
		IdleBackoffMax: time.Duration(cfg.Venue.IdleBackoffMaxMs) * time.Millisecond,
	}, logger.Zap())
	httpServer := api.NewServer(v, logger)

	var fixServer *fixserver.Server
	if cfg.Fix.Enabled {
		fixServer = fixserver.NewServer(cfg.Fix.ConfigFile, v, logger)
		if err := fixServer.Start(); err != nil {
			logger.Fatal(ctx, "start fix server fail", zap.Error(err))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		return httpServer.Start(cfg.HTTP.Addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if fixServer != nil {
			fixServer.Stop()
		}
		return httpServer.Shutdown(shutdownCtx)
	})

	logger.Info(ctx, "venue started",
		zap.Int("instruments", cfg.Venue.Instruments),
		zap.Int("workers", cfg.Venue.Workers),
		zap.String("http_addr", cfg.HTTP.Addr),
	)

	if err := g.Wait(); err != nil {
		logger.Error(context.Background(), "venue stopped with error", zap.Error(err))
	}

	async.Close()
	closeSinks()

	stats := v.Stats()
	logger.Info(context.Background(), "venue stopped",
		zap.Int64("accepted", stats.Accepted),
		zap.Int64("match_count", stats.MatchCount),
		zap.Int64("matched_qty", stats.MatchedQty),
		zap.Int64("dropped_events", async.Dropped()),
	)
}

// buildSinks wires every configured event destination; the returned func releases them.
func buildSinks(ctx context.Context, cfg *config.AppConfig, logger *logging.Logger) (sink.Multi, func()) {
	var sinks sink.Multi
	var closers []func()

	if cfg.Sink.Log {
		sinks = append(sinks, sink.NewLogSink(logger.Zap()))
	}

	if cfg.Redis != nil && cfg.Redis.ConnectionURL != "" {
		client, err := redis_wrapper.InitRedisWithBackoff(cfg.Redis)
		if err != nil {
			logger.Fatal(ctx, "init redis fail", zap.Error(err))
		}
		sinks = append(sinks, sink.NewRedisSink(client, cfg.Sink.RedisPrefix))
		closers = append(closers, func() { _ = client.Close() })
	}

	if cfg.Kafka != nil && len(cfg.Kafka.Brokers) > 0 {
		producer := kafkawrapper.NewProducer(kafkawrapper.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: time.Duration(cfg.Kafka.BatchTimeoutMs) * time.Millisecond,
		})
		sinks = append(sinks, sink.NewKafkaSink(producer, cfg.Kafka.Topic))
		closers = append(closers, func() { _ = producer.Close(context.Background()) })
	}

	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}
}
