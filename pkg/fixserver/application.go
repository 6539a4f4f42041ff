package fixserver

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/joripage/venue-sim/pkg/logging"
	"github.com/joripage/venue-sim/pkg/venue"
	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	"github.com/quickfixgo/fix44/executionreport"
	"github.com/quickfixgo/fix44/newordersingle"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/tag"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// businessRejectOther is BusinessRejectReason(380) = 0.
const businessRejectOther = 0

var errUnsupportedOrdType = errors.New("only limit orders are accepted")

type orderAdder interface {
	AddOrderRequest(ctx context.Context, req venue.OrderRequest) (string, error)
}

// Application implements the quickfix.Application interface
type Application struct {
	*quickfix.MessageRouter
	venue  orderAdder
	logger *logging.Logger
	send   func(m quickfix.Messagable, sessionID quickfix.SessionID) error
}

func newApplication(v orderAdder, logger *logging.Logger) *Application {
	app := &Application{
		MessageRouter: quickfix.NewMessageRouter(),
		venue:         v,
		logger:        logger,
		send:          quickfix.SendToTarget,
	}

	app.AddRoute(newordersingle.Route(app.onNewOrderSingle))

	return app
}

// OnCreate implemented as part of Application interface
func (a Application) OnCreate(sessionID quickfix.SessionID) {}

// OnLogon implemented as part of Application interface
func (a Application) OnLogon(sessionID quickfix.SessionID) {
	a.logger.Info(context.Background(), "fix logon", zap.String("session", sessionID.String()))
}

// OnLogout implemented as part of Application interface
func (a Application) OnLogout(sessionID quickfix.SessionID) {
	a.logger.Info(context.Background(), "fix logout", zap.String("session", sessionID.String()))
}

// ToAdmin implemented as part of Application interface
func (a Application) ToAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) {}

// ToApp implemented as part of Application interface
func (a Application) ToApp(msg *quickfix.Message, sessionID quickfix.SessionID) error {
	return nil
}

// FromAdmin implemented as part of Application interface
func (a Application) FromAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}

// FromApp implemented as part of Application interface, uses Router on incoming application messages
func (a *Application) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return a.Route(msg, sessionID)
}

// newOrderRequest maps NewOrderSingle fields onto a venue order. Symbol carries the
// instrument index.
func newOrderRequest(symbol string, side enum.Side, ordType enum.OrdType, qty decimal.Decimal, price decimal.NullDecimal) (venue.OrderRequest, error) {
	if ordType != "" && ordType != enum.OrdType_LIMIT {
		return venue.OrderRequest{}, fmt.Errorf("%w: %w", venue.ErrInvalidArgument, errUnsupportedOrdType)
	}

	instrument, err := strconv.Atoi(symbol)
	if err != nil {
		return venue.OrderRequest{}, fmt.Errorf("%w: symbol %q is not an instrument index", venue.ErrInvalidArgument, symbol)
	}

	if !qty.Equal(decimal.NewFromInt(qty.IntPart())) {
		return venue.OrderRequest{}, fmt.Errorf("%w: fractional quantity %s", venue.ErrInvalidArgument, qty)
	}

	obSide := map[enum.Side]string{
		enum.Side_BUY:  "BUY",
		enum.Side_SELL: "SELL",
	}[side]

	return venue.OrderRequest{
		Side:       obSide,
		Instrument: &instrument,
		Quantity:   qty.IntPart(),
		Price:      price,
	}, nil
}

func (a *Application) onNewOrderSingle(msg newordersingle.NewOrderSingle, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	clOrdID, _ := msg.GetClOrdID()
	symbol, _ := msg.GetSymbol()
	side, _ := msg.GetSide()
	ordType, _ := msg.GetOrdType()
	price, priceErr := msg.GetPrice()
	orderQty, _ := msg.GetOrderQty()

	ctx := logging.WithRequestID(context.Background(), clOrdID)
	logger, ctx := logging.FromContext(ctx, a.logger)

	req, err := newOrderRequest(symbol, side, ordType, orderQty, decimal.NullDecimal{Decimal: price, Valid: priceErr == nil})
	var orderID string
	if err == nil {
		orderID, err = a.venue.AddOrderRequest(ctx, req)
	}

	if err != nil {
		logger.Info(ctx, "fix order rejected", zap.Error(err))
		if !errors.Is(err, venue.ErrInvalidArgument) {
			refTag := tag.Symbol
			return quickfix.NewBusinessMessageRejectError(err.Error(), businessRejectOther, &refTag)
		}
		report := rejectedReport(clOrdID, symbol, side, orderQty, err.Error())
		if sendErr := a.send(report, sessionID); sendErr != nil {
			logger.Warn(ctx, "send execution report fail", zap.Error(sendErr))
		}
		return nil
	}

	report := acceptedReport(orderID, clOrdID, symbol, side, orderQty, price)
	if sendErr := a.send(report, sessionID); sendErr != nil {
		logger.Warn(ctx, "send execution report fail", zap.Error(sendErr))
	}
	return nil
}

func acceptedReport(orderID, clOrdID, symbol string, side enum.Side, qty, price decimal.Decimal) executionreport.ExecutionReport {
	execReportMsg := executionreport.New(
		field.NewOrderID(orderID),
		field.NewExecID(uuid.NewString()),
		field.NewExecType(enum.ExecType_NEW),
		field.NewOrdStatus(enum.OrdStatus_NEW),
		field.NewSide(side),
		field.NewLeavesQty(qty, 0),
		field.NewCumQty(decimal.Zero, 0),
		field.NewAvgPx(decimal.Zero, 2),
	)
	execReportMsg.SetClOrdID(clOrdID)
	execReportMsg.SetSymbol(symbol)
	execReportMsg.SetOrderQty(qty, 0)
	execReportMsg.SetPrice(price, 2)
	return execReportMsg
}

func rejectedReport(clOrdID, symbol string, side enum.Side, qty decimal.Decimal, text string) executionreport.ExecutionReport {
	execReportMsg := executionreport.New(
		field.NewOrderID("NONE"),
		field.NewExecID(uuid.NewString()),
		field.NewExecType(enum.ExecType_REJECTED),
		field.NewOrdStatus(enum.OrdStatus_REJECTED),
		field.NewSide(side),
		field.NewLeavesQty(decimal.Zero, 0),
		field.NewCumQty(decimal.Zero, 0),
		field.NewAvgPx(decimal.Zero, 2),
	)
	execReportMsg.SetClOrdID(clOrdID)
	execReportMsg.SetSymbol(symbol)
	execReportMsg.SetOrderQty(qty, 0)
	execReportMsg.SetText(text)
	return execReportMsg
}
