package sink

import (
	"context"

	"go.uber.org/zap"
)

type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(_ context.Context, ev Event) {
	switch ev.Type {
	case EventMatched:
		s.logger.Info("trade matched",
			zap.Int("instrument", ev.Instrument),
			zap.Int64("qty", ev.Qty),
			zap.String("price", ev.Price.String()),
			zap.String("buy_order_id", ev.BuyOrderID),
			zap.String("sell_order_id", ev.SellOrderID),
		)
	case EventAccepted:
		s.logger.Info("order accepted",
			zap.Int("instrument", ev.Instrument),
			zap.String("side", string(ev.Side)),
			zap.String("price", ev.Price.String()),
			zap.Int64("qty", ev.Qty),
			zap.String("order_id", ev.OrderID),
		)
	}
}
