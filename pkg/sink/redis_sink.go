package sink

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink publishes each event as JSON on "<prefix>.<type>".
type RedisSink struct {
	client redisPublisher
	prefix string
}

func NewRedisSink(client redisPublisher, prefix string) *RedisSink {
	if prefix == "" {
		prefix = "venue"
	}
	return &RedisSink{client: client, prefix: prefix}
}

func (s *RedisSink) Channel(t EventType) string {
	return s.prefix + "." + string(t)
}

func (s *RedisSink) Publish(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		zap.S().Errorw("marshal event fail", "err", err, "type", ev.Type)
		return
	}
	if err := s.client.Publish(ctx, s.Channel(ev.Type), payload).Err(); err != nil {
		zap.S().Debugw("redis publish fail", "err", err, "channel", s.Channel(ev.Type))
	}
}
