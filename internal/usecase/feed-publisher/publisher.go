// Package feedpublisher streams order status updates to a kafka topic as a
// market data feed.
package feedpublisher

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	orderbookv1 "github.com/tradevenue/limitbook/internal/domain/orderbook/v1"
	"github.com/tradevenue/limitbook/pkg/config"
	"github.com/tradevenue/limitbook/pkg/logger"
)

// updateMessage is the wire shape of one published order update.
type updateMessage struct {
	Venue      string `json:"venue,omitempty"`
	OrderID    string `json:"orderID"`
	Sequence   int64  `json:"sequence"`
	Price      string `json:"price"`
	Size       string `json:"size"`
	Side       string `json:"side"`
	Status     string `json:"status"`
	LastStatus string `json:"lastStatus"`
	Timestamp  int64  `json:"timestamp"`
}

// Publisher writes order updates to kafka. It implements
// orderbookv1.UpdateListener so it can be attached to an order's listener
// chain; publish failures are logged and never propagate into the
// matching path.
type Publisher struct {
	kafkaWriter *kafka.Writer
	logger      logger.Interface
}

// NewPublisher creates a kafka publisher for the order-update feed.
func NewPublisher(cfg config.FeedConfig, log logger.Interface) *Publisher {
	kafkaWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
	})

	return &Publisher{
		kafkaWriter: kafkaWriter,
		logger:      log,
	}
}

// Publish writes a single order update to the feed topic, keyed by order ID.
func (p *Publisher) Publish(ctx context.Context, update orderbookv1.OrderUpdate) error {
	order := update.Order

	msg := updateMessage{
		OrderID:    order.ID,
		Sequence:   order.Sequence,
		Price:      order.Price.String(),
		Size:       order.Size.String(),
		Side:       order.Side.String(),
		Status:     update.Status.String(),
		LastStatus: update.LastStatus.String(),
		Timestamp:  order.Timestamp,
	}
	if order.Venue != nil {
		msg.Venue = order.Venue.Name()
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return p.kafkaWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(order.ID),
		Value: value,
	})
}

// OnOrderUpdate implements orderbookv1.UpdateListener.
func (p *Publisher) OnOrderUpdate(update orderbookv1.OrderUpdate) {
	if err := p.Publish(context.Background(), update); err != nil {
		p.logger.Error(err,
			logger.Field{Key: "operation", Value: "PublishOrderUpdate"},
			logger.Field{Key: "orderID", Value: update.Order.ID},
		)
	}
}

// Close properly closes the kafka writer.
func (p *Publisher) Close() error {
	return p.kafkaWriter.Close()
}
