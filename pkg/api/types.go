package api

import (
	"github.com/joripage/venue-sim/pkg/orderbook"
)

type SubmitOrderResponse struct {
	OrderID string `json:"order_id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type TopOfBookResponse struct {
	Instrument int     `json:"instrument"`
	BestBid    *string `json:"best_bid"`
	BestBidQty int64   `json:"best_bid_qty"`
	BestAsk    *string `json:"best_ask"`
	BestAskQty int64   `json:"best_ask_qty"`
	BuyOrders  int     `json:"buy_orders"`
	SellOrders int     `json:"sell_orders"`
	BuyQty     int64   `json:"buy_qty"`
	SellQty    int64   `json:"sell_qty"`
}

func newTopOfBookResponse(top orderbook.TopOfBook) TopOfBookResponse {
	resp := TopOfBookResponse{
		Instrument: top.Instrument,
		BestBidQty: top.BestBidQty,
		BestAskQty: top.BestAskQty,
		BuyOrders:  top.BuyOrders,
		SellOrders: top.SellOrders,
		BuyQty:     top.BuyQty,
		SellQty:    top.SellQty,
	}
	if top.BestBid != nil {
		s := top.BestBid.String()
		resp.BestBid = &s
	}
	if top.BestAsk != nil {
		s := top.BestAsk.String()
		resp.BestAsk = &s
	}
	return resp
}
