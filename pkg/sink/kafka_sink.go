package sink

import (
	"context"
	"strconv"

	"go.uber.org/zap"
)

type jsonProducer interface {
	PublishJSON(ctx context.Context, topic string, key string, v any, headers map[string]string) error
}

// KafkaSink writes events to one topic keyed by instrument, so a consumer sees
// each instrument's events in order.
type KafkaSink struct {
	producer jsonProducer
	topic    string
}

func NewKafkaSink(producer jsonProducer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Publish(ctx context.Context, ev Event) {
	key := strconv.Itoa(ev.Instrument)
	headers := map[string]string{"event_type": string(ev.Type)}
	if err := s.producer.PublishJSON(ctx, s.topic, key, ev, headers); err != nil {
		zap.S().Debugw("kafka publish fail", "err", err, "topic", s.topic)
	}
}
