package orderbook

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Side string

const (
	BUY  Side = "BUY"
	SELL Side = "SELL"
)

// ParseSide accepts BUY/SELL in any letter case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case BUY:
		return BUY, nil
	case SELL:
		return SELL, nil
	}
	return "", fmt.Errorf("%w: %q", errInvalidSide, s)
}

func (s Side) Valid() bool {
	return s == BUY || s == SELL
}

type Order struct {
	ID         string
	Instrument int
	Side       Side
	Price      decimal.Decimal
	Qty        int64
}

func (o *Order) valid() bool {
	return o != nil && o.Side.Valid() && o.Qty > 0 && !o.Price.IsNegative()
}
