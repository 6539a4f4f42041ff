// Package kafkawrapper is a thin asynchronous kafka-go writer used to stream
// venue events. Writes never block the caller on broker round trips.
package kafkawrapper

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync/atomic"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	defaultBatchSize    = 100
	defaultBatchBytes   = 1 << 20
	defaultBatchTimeout = 50 * time.Millisecond
)

type ProducerConfig struct {
	Brokers      []string
	BatchSize    int
	BatchBytes   int64
	BatchTimeout time.Duration
	// RequiredAcks defaults to RequireNone; events are best effort.
	RequiredAcks kafka.RequiredAcks
}

type Producer struct {
	w      *kafka.Writer
	failed atomic.Int64
}

var errProducerNotInitialized = errors.New("producer not initialized")

func NewProducer(cfg ProducerConfig) *Producer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BatchBytes <= 0 {
		cfg.BatchBytes = defaultBatchBytes
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}

	p := &Producer{}
	// Hash balancer: same key, same partition, so per-instrument ordering holds.
	p.w = &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchBytes:             cfg.BatchBytes,
		BatchTimeout:           cfg.BatchTimeout,
		AllowAutoTopicCreation: true,
		RequiredAcks:           cfg.RequiredAcks,
		Async:                  true,
		Completion:             p.onCompletion,
	}
	return p
}

func (p *Producer) onCompletion(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	p.failed.Add(int64(len(messages)))
	zap.S().Warnw("kafka async write fail", "err", err, "messages", len(messages))
}

// Failed counts messages the writer reported as undeliverable.
func (p *Producer) Failed() int64 {
	return p.failed.Load()
}

func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) error {
	if p == nil || p.w == nil {
		return errProducerNotInitialized
	}
	return p.w.WriteMessages(ctx, buildMessage(topic, key, value, headers))
}

func (p *Producer) PublishJSON(ctx context.Context, topic string, key string, v any, headers map[string]string) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.Publish(ctx, topic, []byte(key), b, headers)
}

// Close flushes buffered batches before returning.
func (p *Producer) Close(_ context.Context) error {
	if p == nil || p.w == nil {
		return nil
	}
	return p.w.Close()
}

func buildMessage(topic string, key, value []byte, headers map[string]string) kafka.Message {
	names := make([]string, 0, len(headers))
	for k := range headers {
		names = append(names, k)
	}
	sort.Strings(names)

	kh := make([]kafka.Header, 0, len(names))
	for _, k := range names {
		kh = append(kh, kafka.Header{Key: k, Value: []byte(headers[k])})
	}
	return kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Headers: kh,
		Time:    time.Now(),
	}
}
