package sink

import (
	"context"
	"time"

	"github.com/joripage/venue-sim/pkg/orderbook"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventAccepted EventType = "accepted"
	EventMatched  EventType = "matched"
)

// Event is an observation of the venue; delivery is best effort.
type Event struct {
	Type        EventType       `json:"type"`
	Instrument  int             `json:"instrument"`
	Side        orderbook.Side  `json:"side,omitempty"`
	OrderID     string          `json:"order_id,omitempty"`
	BuyOrderID  string          `json:"buy_order_id,omitempty"`
	SellOrderID string          `json:"sell_order_id,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Qty         int64           `json:"qty"`
	Timestamp   time.Time       `json:"timestamp"`
}

func NewAcceptedEvent(order *orderbook.Order, ts time.Time) Event {
	return Event{
		Type:       EventAccepted,
		Instrument: order.Instrument,
		Side:       order.Side,
		OrderID:    order.ID,
		Price:      order.Price,
		Qty:        order.Qty,
		Timestamp:  ts,
	}
}

func NewMatchedEvent(r orderbook.MatchResult, ts time.Time) Event {
	return Event{
		Type:        EventMatched,
		Instrument:  r.Instrument,
		BuyOrderID:  r.BuyOrderID,
		SellOrderID: r.SellOrderID,
		Price:       r.Price,
		Qty:         r.Qty,
		Timestamp:   ts,
	}
}

// Sink receives venue events. Implementations must not block the caller for long
// and never report failures back to it.
type Sink interface {
	Publish(ctx context.Context, ev Event)
}

type Multi []Sink

func (m Multi) Publish(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Publish(ctx, ev)
	}
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
