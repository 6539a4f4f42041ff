package orderbook

import "errors"

var (
	ErrInstrumentOutOfRange = errors.New("instrument out of range")
	ErrSignalPending        = errors.New("match signal already pending")
	ErrInvalidOrder         = errors.New("invalid order")

	errInvalidSide = errors.New("invalid side")
)
