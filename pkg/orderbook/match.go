package orderbook

import "github.com/shopspring/decimal"

// MatchResult is one execution. Price is always the sell order's price.
type MatchResult struct {
	Instrument  int
	BuyOrderID  string
	SellOrderID string
	Price       decimal.Decimal
	Qty         int64
}
