package orderbook

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func px(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSimpleMatch(t *testing.T) {
	ob := newOrderBook(5)

	ob.Insert(&Order{ID: "B1", Side: BUY, Price: px("20.00"), Qty: 10})
	ob.Insert(&Order{ID: "S1", Side: SELL, Price: px("20.00"), Qty: 10})

	results := ob.Match()
	if len(results) != 1 {
		t.Fatalf("expected 1 match, got %d", len(results))
	}

	match := results[0]
	if match.BuyOrderID != "B1" || match.SellOrderID != "S1" {
		t.Errorf("incorrect order IDs in match: %+v", match)
	}
	if match.Qty != 10 || !match.Price.Equal(px("20")) || match.Instrument != 5 {
		t.Errorf("incorrect qty/price/instrument: %+v", match)
	}

	top := ob.TopOfBook()
	if top.BuyOrders != 0 || top.SellOrders != 0 || top.BestBid != nil || top.BestAsk != nil {
		t.Errorf("expected empty book, got %+v", top)
	}
}

func TestInsertRejectsInvalidOrders(t *testing.T) {
	ob := newOrderBook(0)

	for name, o := range map[string]*Order{
		"nil":            nil,
		"empty side":     {ID: "X1", Price: px("10"), Qty: 5},
		"unknown side":   {ID: "X2", Side: Side("HOLD"), Price: px("10"), Qty: 5},
		"zero qty":       {ID: "X3", Side: SELL, Price: px("10"), Qty: 0},
		"negative qty":   {ID: "X4", Side: BUY, Price: px("10"), Qty: -3},
		"negative price": {ID: "X5", Side: BUY, Price: px("-1"), Qty: 3},
	} {
		if err := ob.Insert(o); !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("%s: expected ErrInvalidOrder, got %v", name, err)
		}
	}

	top := ob.TopOfBook()
	if top.BuyOrders != 0 || top.SellOrders != 0 {
		t.Fatalf("expected empty book, got %+v", top)
	}

	if err := ob.Insert(&Order{ID: "B1", Side: BUY, Price: px("0"), Qty: 1}); err != nil {
		t.Fatalf("zero price is valid, got %v", err)
	}
}

func TestPartialMatch(t *testing.T) {
	ob := newOrderBook(0)

	ob.Insert(&Order{ID: "B1", Side: BUY, Price: px("20.00"), Qty: 10})
	ob.Insert(&Order{ID: "S1", Side: SELL, Price: px("19.00"), Qty: 4})

	results := ob.Match()
	if len(results) != 1 || results[0].Qty != 4 {
		t.Fatalf("expected 1 match of 4, got %+v", results)
	}
	// sell order's price sets the trade price
	if !results[0].Price.Equal(px("19")) {
		t.Errorf("expected trade at 19, got %s", results[0].Price)
	}

	top := ob.TopOfBook()
	if top.SellOrders != 0 {
		t.Errorf("expected filled sell to be removed, got %d resting", top.SellOrders)
	}
	if top.BuyOrders != 1 || top.BestBidQty != 6 || top.BuyQty != 6 {
		t.Errorf("expected buy resting with qty 6, got %+v", top)
	}
}

func TestNoMatchDueToPrice(t *testing.T) {
	ob := newOrderBook(0)

	ob.Insert(&Order{ID: "B1", Side: BUY, Price: px("10.00"), Qty: 10})
	ob.Insert(&Order{ID: "S1", Side: SELL, Price: px("15.00"), Qty: 10})

	if results := ob.Match(); len(results) != 0 {
		t.Fatalf("expected no match, got %+v", results)
	}

	top := ob.TopOfBook()
	if top.BuyQty != 10 || top.SellQty != 10 {
		t.Errorf("expected both orders unchanged, got %+v", top)
	}
	if !top.BestBid.Equal(px("10")) || !top.BestAsk.Equal(px("15")) {
		t.Errorf("unexpected top of book %+v", top)
	}
}

func TestFIFOMatch(t *testing.T) {
	ob := newOrderBook(0)

	// two SELLs at the same price, written with different scale
	ob.Insert(&Order{ID: "S1", Side: SELL, Price: px("100"), Qty: 5})
	ob.Insert(&Order{ID: "S2", Side: SELL, Price: px("100.00"), Qty: 5})
	ob.Insert(&Order{ID: "B1", Side: BUY, Price: px("100.0"), Qty: 7})

	results := ob.Match()
	if len(results) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(results))
	}
	if results[0].SellOrderID != "S1" || results[0].Qty != 5 {
		t.Errorf("expected S1 filled first, got %+v", results[0])
	}
	if results[1].SellOrderID != "S2" || results[1].Qty != 2 {
		t.Errorf("expected S2 partially filled second, got %+v", results[1])
	}

	top := ob.TopOfBook()
	if top.SellOrders != 1 || top.BestAskQty != 3 {
		t.Errorf("expected S2 resting with 3, got %+v", top)
	}
}

func TestBuySideFIFO(t *testing.T) {
	ob := newOrderBook(0)

	ob.Insert(&Order{ID: "B1", Side: BUY, Price: px("50"), Qty: 3})
	ob.Insert(&Order{ID: "B2", Side: BUY, Price: px("50"), Qty: 3})
	ob.Insert(&Order{ID: "S1", Side: SELL, Price: px("49"), Qty: 3})

	results := ob.Match()
	if len(results) != 1 || results[0].BuyOrderID != "B1" {
		t.Fatalf("expected earlier buy matched first, got %+v", results)
	}
}

func TestMultiLevelMatch(t *testing.T) {
	ob := newOrderBook(0)

	sells := []*Order{
		{ID: "S3", Side: SELL, Price: px("103.0"), Qty: 5},
		{ID: "S1", Side: SELL, Price: px("101.0"), Qty: 5},
		{ID: "S2", Side: SELL, Price: px("102.0"), Qty: 5},
	}
	for _, o := range sells {
		ob.Insert(o)
	}

	// BUY above every level sweeps them best price first
	ob.Insert(&Order{ID: "B1", Side: BUY, Price: px("105.0"), Qty: 15})

	results := ob.Match()
	if len(results) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(results))
	}
	if !results[0].Price.Equal(px("101")) || !results[2].Price.Equal(px("103")) {
		t.Errorf("expected matching from best price, got %+v", results)
	}
}

func TestHighVolumeOrders(t *testing.T) {
	ob := newOrderBook(0)
	trade := 0

	num := 10_000
	for i := 0; i < num; i++ {
		side := BUY
		if i%2 == 0 {
			side = SELL
		}
		ob.Insert(&Order{
			ID:    fmt.Sprintf("ORD-%d", i),
			Side:  side,
			Price: px("100.0"),
			Qty:   10,
		})
		trade += len(ob.Match())
	}

	if trade != num/2 {
		t.Errorf("expected %d matching, got %d", num/2, trade)
	}
}

// Randomized sequences: quantity is conserved and no cross survives Match.
func TestConservationAndNoCross(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	ob := newOrderBook(0)

	var buyIn, sellIn, filled int64
	for i := 0; i < 5_000; i++ {
		side := BUY
		if rnd.Intn(2) == 0 {
			side = SELL
		}
		qty := int64(rnd.Intn(50) + 1)
		price := decimal.New(int64(rnd.Intn(9000)+1000), -2)
		if side == BUY {
			buyIn += qty
		} else {
			sellIn += qty
		}
		ob.Insert(&Order{ID: fmt.Sprintf("O-%d", i), Side: side, Price: price, Qty: qty})

		for _, r := range ob.Match() {
			if r.Qty <= 0 {
				t.Fatalf("non-positive fill %+v", r)
			}
			filled += r.Qty
		}

		top := ob.TopOfBook()
		if top.BestBid != nil && top.BestAsk != nil && !top.BestBid.LessThan(*top.BestAsk) {
			t.Fatalf("crossed book after match: %+v", top)
		}
		if top.BuyQty+filled != buyIn || top.SellQty+filled != sellIn {
			t.Fatalf("quantity not conserved: resting buy=%d sell=%d filled=%d in buy=%d sell=%d",
				top.BuyQty, top.SellQty, filled, buyIn, sellIn)
		}
	}
}

func TestConcurrentOrders(t *testing.T) {
	ob := newOrderBook(0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var filled int64
	addOrder := func(id int, side Side) {
		defer wg.Done()
		ob.Insert(&Order{
			ID:    fmt.Sprintf("C-%d-%s", id, side),
			Side:  side,
			Price: px("100.0"),
			Qty:   10,
		})
		var n int64
		for _, r := range ob.Match() {
			n += r.Qty
		}
		mu.Lock()
		filled += n
		mu.Unlock()
	}

	n := 1000
	for i := 0; i < n; i++ {
		wg.Add(2)
		go addOrder(i, BUY)
		go addOrder(i, SELL)
	}
	wg.Wait()

	top := ob.TopOfBook()
	if top.BuyOrders != 0 || top.SellOrders != 0 {
		t.Errorf("expected every order matched, got %+v", top)
	}
	if filled != int64(n*10) {
		t.Errorf("expected filled %d, got %d", n*10, filled)
	}
}

func TestParseSide(t *testing.T) {
	for in, want := range map[string]Side{"Buy": BUY, "buy": BUY, "SELL": SELL, " Sell ": SELL} {
		got, err := ParseSide(in)
		if err != nil || got != want {
			t.Errorf("ParseSide(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseSide("hold"); err == nil {
		t.Errorf("expected error for unknown side")
	}
}

func BenchmarkOrderBookMatch(b *testing.B) {
	ob := newOrderBook(0)

	for i := 0; i < 10_000; i++ {
		ob.Insert(&Order{
			ID:    fmt.Sprintf("SELL-%d", i),
			Side:  SELL,
			Price: decimal.NewFromInt(int64(100 + i%5)),
			Qty:   10,
		})
	}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		ob.Insert(&Order{
			ID:    fmt.Sprintf("BUY-%d", i),
			Side:  BUY,
			Price: px("101.0"),
			Qty:   10,
		})
		ob.Match()
	}
}
