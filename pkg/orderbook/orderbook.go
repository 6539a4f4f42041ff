package orderbook

import (
	"container/heap"
	"sync"

	"github.com/gammazero/deque"
	"github.com/shopspring/decimal"
)

type bookSide struct {
	levels map[string]*deque.Deque[*Order]
	heap   *PriceHeap
	count  int
	qty    int64
}

func newBookSide(less func(i, j decimal.Decimal) bool) *bookSide {
	return &bookSide{
		levels: make(map[string]*deque.Deque[*Order]),
		heap:   NewPriceHeap(less),
	}
}

func (s *bookSide) push(order *Order) {
	key := priceKey(order.Price)
	q := s.levels[key]
	if q == nil {
		q = &deque.Deque[*Order]{}
		s.levels[key] = q
		heap.Push(s.heap, order.Price)
	}
	q.PushBack(order)
	s.count++
	s.qty += order.Qty
}

// best returns the first order at the best price level.
func (s *bookSide) best() (*Order, bool) {
	price, ok := s.heap.Peek()
	if !ok {
		return nil, false
	}
	return s.levels[priceKey(price)].Front(), true
}

// popBest removes the first order at the best level, dropping the level if it empties.
func (s *bookSide) popBest() {
	price, ok := s.heap.Peek()
	if !ok {
		return
	}
	key := priceKey(price)
	q := s.levels[key]
	q.PopFront()
	s.count--
	if q.Len() == 0 {
		heap.Pop(s.heap)
		delete(s.levels, key)
	}
}

func (s *bookSide) levelQty(price decimal.Decimal) int64 {
	q := s.levels[priceKey(price)]
	if q == nil {
		return 0
	}
	var total int64
	for i := 0; i < q.Len(); i++ {
		total += q.At(i).Qty
	}
	return total
}

// OrderBook holds the resting orders of one instrument.
type OrderBook struct {
	instrument int

	buy  *bookSide
	sell *bookSide

	mu sync.Mutex
}

func newOrderBook(instrument int) *OrderBook {
	return &OrderBook{
		instrument: instrument,
		buy:        newBookSide(func(i, j decimal.Decimal) bool { return i.GreaterThan(j) }), // Max-heap
		sell:       newBookSide(func(i, j decimal.Decimal) bool { return i.LessThan(j) }),    // Min-heap
	}
}

func (ob *OrderBook) Instrument() int {
	return ob.instrument
}

// Insert rests order on its side of the book. Orders without a valid side,
// a positive quantity and a non-negative price are refused with ErrInvalidOrder.
func (ob *OrderBook) Insert(order *Order) error {
	if !order.valid() {
		return ErrInvalidOrder
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.insert(order)
	return nil
}

// Match executes every currently crossing pair and returns the fills in execution order.
func (ob *OrderBook) Match() []MatchResult {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	return ob.match()
}

// insert requires ob.mu and a valid order.
func (ob *OrderBook) insert(order *Order) {
	order.Instrument = ob.instrument

	if order.Side == BUY {
		ob.buy.push(order)
	} else {
		ob.sell.push(order)
	}
}

// match requires ob.mu.
func (ob *OrderBook) match() []MatchResult {
	var results []MatchResult

	for {
		bestBuy, ok := ob.buy.best()
		if !ok {
			break
		}
		bestSell, ok := ob.sell.best()
		if !ok {
			break
		}
		if bestBuy.Price.LessThan(bestSell.Price) {
			break
		}

		matchQty := min(bestBuy.Qty, bestSell.Qty)
		bestBuy.Qty -= matchQty
		bestSell.Qty -= matchQty
		ob.buy.qty -= matchQty
		ob.sell.qty -= matchQty

		results = append(results, MatchResult{
			Instrument:  ob.instrument,
			BuyOrderID:  bestBuy.ID,
			SellOrderID: bestSell.ID,
			Price:       bestSell.Price,
			Qty:         matchQty,
		})

		if bestBuy.Qty == 0 {
			ob.buy.popBest()
		}
		if bestSell.Qty == 0 {
			ob.sell.popBest()
		}
	}

	return results
}

// TopOfBook is a point-in-time view of the best level on each side.
type TopOfBook struct {
	Instrument int
	BestBid    *decimal.Decimal
	BestBidQty int64
	BestAsk    *decimal.Decimal
	BestAskQty int64
	BuyOrders  int
	SellOrders int
	BuyQty     int64
	SellQty    int64
}

func (ob *OrderBook) TopOfBook() TopOfBook {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	top := TopOfBook{
		Instrument: ob.instrument,
		BuyOrders:  ob.buy.count,
		SellOrders: ob.sell.count,
		BuyQty:     ob.buy.qty,
		SellQty:    ob.sell.qty,
	}
	if p, ok := ob.buy.heap.Peek(); ok {
		top.BestBid = &p
		top.BestBidQty = ob.buy.levelQty(p)
	}
	if p, ok := ob.sell.heap.Peek(); ok {
		top.BestAsk = &p
		top.BestAskQty = ob.sell.levelQty(p)
	}
	return top
}
