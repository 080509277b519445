// Command simulator runs a small multi-venue trading scenario against
// in-process limit order books.
package main

import (
	"flag"
	"log"
	"strings"

	"github.com/shopspring/decimal"

	orderbookv1 "github.com/tradevenue/limitbook/internal/domain/orderbook/v1"
	feedpublisher "github.com/tradevenue/limitbook/internal/usecase/feed-publisher"
	"github.com/tradevenue/limitbook/internal/usecase/orderbook"
	"github.com/tradevenue/limitbook/internal/usecase/trader"
	"github.com/tradevenue/limitbook/pkg/config"
	"github.com/tradevenue/limitbook/pkg/logger"
)

func main() {
	venuesFlag := flag.String("venues", "", "comma-separated venue names (overrides VENUES)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *venuesFlag != "" {
		cfg.Venues = strings.Split(*venuesFlag, ",")
	}
	if len(cfg.Venues) < 2 {
		log.Fatalf("need at least two venues, got %v", cfg.Venues)
	}

	lg, err := logger.NewLogger(logger.WithLoggingLevel(logger.Level(cfg.LogLevel)))
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer lg.Sync()

	venues := make([]*orderbook.Book, 0, len(cfg.Venues))
	for _, name := range cfg.Venues {
		venues = append(venues, orderbook.NewBook(name, lg))
	}

	mm := trader.New("market-maker", lg)
	sim := trader.New("simulator", lg)

	if cfg.Feed.Enabled {
		feed := feedpublisher.NewPublisher(cfg.Feed, lg)
		defer feed.Close()
		mm.AttachListener(feed)
		sim.AttachListener(feed)
		lg.Info("order-update feed enabled",
			logger.Field{Key: "brokers", Value: cfg.Feed.Brokers},
			logger.Field{Key: "topic", Value: cfg.Feed.Topic},
		)
	}

	price := decimal.RequireFromString("102")

	// The market maker offers 0.7 on the first venue; the simulator bids 0.5
	// on the second, so the two never cross.
	if _, err := mm.CreateOrder(price, decimal.RequireFromString("0.7"), orderbookv1.SideSell, venues[0]); err != nil {
		lg.Error(err, logger.Field{Key: "venue", Value: venues[0].Name()})
		return
	}
	if _, err := sim.CreateOrder(price, decimal.RequireFromString("0.5"), orderbookv1.SideBuy, venues[1]); err != nil {
		lg.Error(err, logger.Field{Key: "venue", Value: venues[1].Name()})
		return
	}

	// A crossing bid on the first venue partially fills the resting offer.
	if _, err := sim.CreateOrder(price, decimal.RequireFromString("0.5"), orderbookv1.SideBuy, venues[0]); err != nil {
		lg.Error(err, logger.Field{Key: "venue", Value: venues[0].Name()})
		return
	}

	for _, t := range []*trader.Trader{mm, sim} {
		for _, o := range t.ActiveOrders() {
			lg.Info("active order",
				logger.Field{Key: "trader", Value: t.Name()},
				logger.Field{Key: "order", Value: o.String()},
			)
		}
	}

	for _, v := range venues {
		printBook(lg, v)
	}
}

// printBook logs every price level of the venue, best first.
func printBook(lg logger.Interface, book *orderbook.Book) {
	for _, limit := range book.Bids() {
		lg.Info("bid level",
			logger.Field{Key: "venue", Value: book.Name()},
			logger.Field{Key: "price", Value: limit.Price.String()},
			logger.Field{Key: "volume", Value: limit.TotalVolume.String()},
			logger.Field{Key: "orders", Value: limit.OrderCount()},
		)
	}
	for _, limit := range book.Asks() {
		lg.Info("ask level",
			logger.Field{Key: "venue", Value: book.Name()},
			logger.Field{Key: "price", Value: limit.Price.String()},
			logger.Field{Key: "volume", Value: limit.TotalVolume.String()},
			logger.Field{Key: "orders", Value: limit.OrderCount()},
		)
	}
}
