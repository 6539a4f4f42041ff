package main

import (
	"flag"
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	fix44er "github.com/quickfixgo/fix44/executionreport"
	fix44nos "github.com/quickfixgo/fix44/newordersingle"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/quickfix/log/file"
	"github.com/shopspring/decimal"
)

type InitiatorApp struct {
	*quickfix.MessageRouter
	instrument int
	pairs      int
}

func newInitiatorApp(instrument, pairs int) *InitiatorApp {
	app := &InitiatorApp{
		MessageRouter: quickfix.NewMessageRouter(),
		instrument:    instrument,
		pairs:         pairs,
	}
	app.AddRoute(fix44er.Route(app.onExecutionReport))
	return app
}

func (a *InitiatorApp) OnCreate(sessionID quickfix.SessionID) {}

func (a *InitiatorApp) OnLogon(sessionID quickfix.SessionID) {
	log.Println("Logon success", sessionID)
	for i := 0; i < a.pairs; i++ {
		sendCrossingPair(sessionID, a.instrument)
	}
}

func (a *InitiatorApp) OnLogout(sessionID quickfix.SessionID)                       {}
func (a *InitiatorApp) ToAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) {}
func (a *InitiatorApp) ToApp(msg *quickfix.Message, sessionID quickfix.SessionID) error {
	return nil
}
func (a *InitiatorApp) FromAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}
func (a *InitiatorApp) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return a.Route(msg, sessionID)
}

func (a *InitiatorApp) onExecutionReport(msg fix44er.ExecutionReport, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	clOrdID, _ := msg.GetClOrdID()
	orderID, _ := msg.GetOrderID()
	execType, _ := msg.GetExecType()
	text, _ := msg.GetText()
	log.Printf("execution report clordid=%s orderid=%s exectype=%s %s\n", clOrdID, orderID, execType, text)
	return nil
}

func newLimitOrder(sessionID quickfix.SessionID, side enum.Side, instrument int, price decimal.Decimal, qty int64) fix44nos.NewOrderSingle {
	order := fix44nos.New(
		field.NewClOrdID(randSeq(17)),
		field.NewSide(side),
		field.NewTransactTime(time.Now()),
		field.NewOrdType(enum.OrdType_LIMIT))
	order.SetSymbol(strconv.Itoa(instrument))
	order.SetPrice(price, 2)
	order.SetOrderQty(decimal.NewFromInt(qty), 0)
	order.SetSenderCompID(sessionID.SenderCompID)
	order.SetTargetCompID(sessionID.TargetCompID)
	return order
}

// sendCrossingPair sends a buy and a sell that fully match at the sell price.
func sendCrossingPair(sessionID quickfix.SessionID, instrument int) {
	qty := int64(rand.Intn(50) + 1)
	sellPrice := decimal.NewFromInt(int64(rand.Intn(90) + 10))
	buyPrice := sellPrice.Add(decimal.NewFromInt(1))

	if err := quickfix.Send(newLimitOrder(sessionID, enum.Side_SELL, instrument, sellPrice, qty)); err != nil {
		log.Println(err)
	}
	if err := quickfix.Send(newLimitOrder(sessionID, enum.Side_BUY, instrument, buyPrice, qty)); err != nil {
		log.Println(err)
	}
}

func main() {
	var cfgPath string
	var instrument, pairs int
	flag.StringVar(&cfgPath, "config-file", "config/fixclient.cfg", "quickfix initiator settings")
	flag.IntVar(&instrument, "instrument", 0, "instrument index sent as Symbol")
	flag.IntVar(&pairs, "pairs", 1, "number of crossing buy/sell pairs to send")
	flag.Parse()
	log.Println("cfgPath:", cfgPath)

	cfg, err := os.Open(cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	defer cfg.Close() // nolint

	settings, err := quickfix.ParseSettings(cfg)
	if err != nil {
		log.Fatal(err)
	}

	storeFactory := quickfix.NewMemoryStoreFactory()
	logFactory, _ := file.NewLogFactory(settings)
	initiator, err := quickfix.NewInitiator(newInitiatorApp(instrument, pairs), storeFactory, settings, logFactory)
	if err != nil {
		log.Fatal(err)
	}
	err = initiator.Start()
	if err != nil {
		log.Fatal(err)
	}
	log.Println("Initiator started...")
	select {}
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

func randSeq(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
