// Package venue is the ingress of the matching venue: it validates orders,
// rests them on their instrument's book and signals the match scheduler.
package venue

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/joripage/venue-sim/pkg/logging"
	"github.com/joripage/venue-sim/pkg/orderbook"
	"github.com/joripage/venue-sim/pkg/sink"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const statsLogEvery = 10_000

type Venue struct {
	registry *orderbook.Registry
	sink     sink.Sink
	logger   *logging.Logger
	now      func() time.Time

	accepted       atomic.Int64
	matchCount     atomic.Int64
	matchedQty     atomic.Int64
	signalsDeduped atomic.Int64
}

type Stats struct {
	Accepted       int64 `json:"accepted"`
	MatchCount     int64 `json:"match_count"`
	MatchedQty     int64 `json:"matched_qty"`
	SignalsDeduped int64 `json:"signals_deduped"`
}

// OrderRequest is the transport-facing form of an order. Instrument and Price
// are required; Price decodes from a JSON number or string.
type OrderRequest struct {
	Side       string              `json:"side"`
	Instrument *int                `json:"instrument"`
	Quantity   int64               `json:"quantity"`
	Price      decimal.NullDecimal `json:"price"`
}

func New(registry *orderbook.Registry, s sink.Sink, logger *logging.Logger) *Venue {
	if s == nil {
		s = sink.Nop{}
	}
	if logger == nil {
		logger = logging.Wrap(zap.NewNop())
	}

	v := &Venue{
		registry: registry,
		sink:     s,
		logger:   logger,
		now:      time.Now,
	}
	registry.RegisterTradeCallback(v.onTrades)
	return v
}

func (v *Venue) Registry() *orderbook.Registry {
	return v.registry
}

func (v *Venue) validate(side orderbook.Side, instrument int, qty int64, price decimal.Decimal) error {
	if !side.Valid() {
		return fmt.Errorf("%w: side %q", ErrInvalidArgument, side)
	}
	if instrument < 0 || instrument >= v.registry.Len() {
		return fmt.Errorf("%w: instrument %d not in [0, %d)", ErrInvalidArgument, instrument, v.registry.Len())
	}
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidArgument, qty)
	}
	if price.IsNegative() {
		return fmt.Errorf("%w: price must be non-negative, got %s", ErrInvalidArgument, price)
	}
	return nil
}

// AddOrder rests a new order on instrument's book and signals a match attempt.
// Invalid input returns ErrInvalidArgument and leaves every book untouched.
func (v *Venue) AddOrder(ctx context.Context, side orderbook.Side, instrument int, qty int64, price decimal.Decimal) (string, error) {
	if err := v.validate(side, instrument, qty, price); err != nil {
		return "", err
	}

	book, err := v.registry.Book(instrument)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	order := &orderbook.Order{
		ID:         uuid.NewString(),
		Instrument: instrument,
		Side:       side,
		Price:      price,
		Qty:        qty,
	}
	logger, ctx := logging.FromContext(ctx, v.logger)
	logger.Debug(ctx, "order accepted",
		zap.String("order_id", order.ID),
		zap.Int("instrument", instrument),
		zap.String("side", string(side)),
		zap.String("price", price.String()),
		zap.Int64("qty", qty),
	)
	// Published before the order can match, so no consumer sees a fill
	// for an order id it has not been told about.
	accepted := sink.NewAcceptedEvent(order, v.now())
	v.sink.Publish(ctx, accepted)

	if err := book.Insert(order); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	v.accepted.Add(1)

	if err := v.registry.Signal(instrument); err != nil {
		// a pending signal already guarantees a later match attempt
		v.signalsDeduped.Add(1)
		logger.Debug(ctx, "match signal not delivered", zap.Int("instrument", instrument), zap.Error(err))
	}

	return accepted.OrderID, nil
}

// AddOrderRequest parses a transport request and forwards it to AddOrder.
func (v *Venue) AddOrderRequest(ctx context.Context, req OrderRequest) (string, error) {
	side, err := orderbook.ParseSide(req.Side)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if req.Instrument == nil {
		return "", fmt.Errorf("%w: instrument is required", ErrInvalidArgument)
	}
	if !req.Price.Valid {
		return "", fmt.Errorf("%w: price is required", ErrInvalidArgument)
	}
	return v.AddOrder(ctx, side, *req.Instrument, req.Quantity, req.Price.Decimal)
}

func (v *Venue) onTrades(results []orderbook.MatchResult) {
	ctx := context.Background()
	ts := v.now()
	for _, r := range results {
		v.matchedQty.Add(r.Qty)
		if n := v.matchCount.Add(1); n%statsLogEvery == 0 {
			v.logger.Info(ctx, "match progress",
				zap.Int64("total_match_count", n),
				zap.Int64("total_match_qty", v.matchedQty.Load()),
			)
		}
		v.sink.Publish(ctx, sink.NewMatchedEvent(r, ts))
	}
}

func (v *Venue) Stats() Stats {
	return Stats{
		Accepted:       v.accepted.Load(),
		MatchCount:     v.matchCount.Load(),
		MatchedQty:     v.matchedQty.Load(),
		SignalsDeduped: v.signalsDeduped.Load(),
	}
}

// TopOfBook returns the best levels of instrument's book.
func (v *Venue) TopOfBook(instrument int) (orderbook.TopOfBook, error) {
	book, err := v.registry.Book(instrument)
	if err != nil {
		return orderbook.TopOfBook{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return book.TopOfBook(), nil
}
