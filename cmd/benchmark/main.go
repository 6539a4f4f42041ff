package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/joripage/venue-sim/pkg/orderbook"
	"github.com/shopspring/decimal"
)

const (
	minPrice = 100.0
	maxPrice = 200.0
	minQty   = 1
	maxQty   = 100
)

func randomOrder(id, instruments int) *orderbook.Order {
	side := orderbook.BUY
	if rand.Intn(2) == 0 {
		side = orderbook.SELL
	}
	price := minPrice + rand.Float64()*(maxPrice-minPrice)

	return &orderbook.Order{
		ID:         fmt.Sprintf("ORD-%07d", id),
		Instrument: rand.Intn(instruments),
		Side:       side,
		Price:      decimal.NewFromFloat(price).Truncate(2),
		Qty:        int64(rand.Intn(maxQty-minQty+1) + minQty),
	}
}

func checkFlags(numOrders, instruments int) error {
	if numOrders < 0 {
		return fmt.Errorf("-orders must not be negative, got %d", numOrders)
	}
	if instruments < 1 {
		return fmt.Errorf("-instruments must be at least 1, got %d", instruments)
	}
	return nil
}

// Measures raw book throughput: insert then match inline, no scheduler.
func main() {
	var numOrders, instruments int
	flag.IntVar(&numOrders, "orders", 1_000_000, "number of orders to submit")
	flag.IntVar(&instruments, "instruments", 1, "number of instruments to spread orders over")
	flag.Parse()
	if err := checkFlags(numOrders, instruments); err != nil {
		log.Fatal(err)
	}

	registry := orderbook.NewRegistry(orderbook.RegistryConfig{Instruments: instruments})
	totalMatched := 0
	totalQty := int64(0)
	registry.RegisterTradeCallback(func(results []orderbook.MatchResult) {
		for _, r := range results {
			totalMatched++
			totalQty += r.Qty
			if totalMatched <= 5 {
				log.Printf("match: BUY[%s] <=> SELL[%s] @ %s qty %d\n",
					r.BuyOrderID, r.SellOrderID, r.Price, r.Qty)
			}
		}
	})

	start := time.Now()
	for i := 0; i < numOrders; i++ {
		order := randomOrder(i+1, instruments)
		book, err := registry.Book(order.Instrument)
		if err != nil {
			log.Fatal(err)
		}
		if err := book.Insert(order); err != nil {
			log.Fatal(err)
		}
		registry.Match(order.Instrument)
	}
	elapsed := time.Since(start)

	fmt.Println("--------")
	fmt.Printf("Total Orders     : %d\n", numOrders)
	fmt.Printf("Total Matches    : %d\n", totalMatched)
	fmt.Printf("Total Matched Qty: %d\n", totalQty)
	fmt.Printf("Time Taken       : %s\n", elapsed)
}
