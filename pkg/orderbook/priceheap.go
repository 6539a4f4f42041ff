package orderbook

import "github.com/shopspring/decimal"

// PriceHeap implements heap.Interface over distinct price levels.
type PriceHeap struct {
	prices []decimal.Decimal
	less   func(i, j decimal.Decimal) bool
	index  map[string]bool
}

func NewPriceHeap(less func(i, j decimal.Decimal) bool) *PriceHeap {
	return &PriceHeap{
		prices: []decimal.Decimal{},
		less:   less,
		index:  make(map[string]bool),
	}
}

// priceKey is canonical for equal values: String trims trailing zeros.
func priceKey(p decimal.Decimal) string {
	return p.String()
}

func (h PriceHeap) Len() int {
	return len(h.prices)
}

func (h PriceHeap) Less(i, j int) bool {
	return h.less(h.prices[i], h.prices[j])
}

func (h PriceHeap) Swap(i, j int) {
	h.prices[i], h.prices[j] = h.prices[j], h.prices[i]
}

func (h *PriceHeap) Push(x any) {
	price := x.(decimal.Decimal)
	key := priceKey(price)
	if !h.index[key] {
		h.index[key] = true
		h.prices = append(h.prices, price)
	}
}

func (h *PriceHeap) Pop() any {
	n := len(h.prices)
	price := h.prices[n-1]
	h.prices = h.prices[:n-1]
	delete(h.index, priceKey(price))
	return price
}

func (h *PriceHeap) Peek() (decimal.Decimal, bool) {
	if len(h.prices) == 0 {
		return decimal.Zero, false
	}
	return h.prices[0], true
}

func (h *PriceHeap) Contains(price decimal.Decimal) bool {
	return h.index[priceKey(price)]
}
