// Package trader implements an order-owner collaborator that submits and
// cancels orders and tracks which of them are still working on a venue.
package trader

import (
	"sync"

	"github.com/shopspring/decimal"

	orderbookv1 "github.com/tradevenue/limitbook/internal/domain/orderbook/v1"
	"github.com/tradevenue/limitbook/pkg/logger"
)

// Trader owns orders across one or more venues. It receives status updates
// for its own orders and keeps the set of active ones: an order becomes
// active when posted and stops being active when filled or cancelled. That
// bookkeeping lives here; the book never tracks ownership.
type Trader struct {
	mu     sync.Mutex
	name   string
	active map[string]*orderbookv1.Order
	extra  []orderbookv1.UpdateListener
	log    logger.Interface
}

// New creates a trader with the given name.
func New(name string, log logger.Interface) *Trader {
	if log == nil {
		log = logger.NewNop()
	}
	return &Trader{
		name:   name,
		active: make(map[string]*orderbookv1.Order),
		log:    log,
	}
}

// Name returns the trader's name.
func (t *Trader) Name() string {
	return t.name
}

// AttachListener registers an additional listener that will receive the
// updates of every order this trader creates afterwards, for example a
// market data feed. The trader itself always stays first in the chain.
func (t *Trader) AttachListener(l orderbookv1.UpdateListener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.extra = append(t.extra, l)
}

// CreateOrder builds a limit order owned by this trader and submits it to
// the venue.
func (t *Trader) CreateOrder(price, size decimal.Decimal, side orderbookv1.Side, venue orderbookv1.Venue) (*orderbookv1.Order, error) {
	order, err := orderbookv1.NewOrder(price, size, side, t.owner())
	if err != nil {
		return nil, err
	}
	if err := venue.Submit(order); err != nil {
		return nil, err
	}
	return order, nil
}

// owner returns the listener new orders should carry: the trader alone,
// or a fanout over the trader and any attached listeners.
func (t *Trader) owner() orderbookv1.UpdateListener {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.extra) == 0 {
		return t
	}
	chain := append([]orderbookv1.UpdateListener{t}, t.extra...)
	return orderbookv1.NewFanoutListener(chain...)
}

// CancelOrder cancels the order on the venue it was submitted to.
func (t *Trader) CancelOrder(order *orderbookv1.Order) error {
	if order == nil {
		return orderbookv1.ErrNilOrder
	}
	return order.Venue.Cancel(order)
}

// OnOrderUpdate implements orderbookv1.UpdateListener. It maintains the
// active-order set from the status stream.
func (t *Trader) OnOrderUpdate(update orderbookv1.OrderUpdate) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch update.Status {
	case orderbookv1.StatusPosted:
		t.active[update.Order.ID] = update.Order
	case orderbookv1.StatusFilled, orderbookv1.StatusCancelled:
		delete(t.active, update.Order.ID)
	}

	t.log.Debug("order update",
		logger.Field{Key: "trader", Value: t.name},
		logger.Field{Key: "order", Value: update.Order.String()},
		logger.Field{Key: "status", Value: update.Status.String()},
		logger.Field{Key: "lastStatus", Value: update.LastStatus.String()},
	)
}

// ActiveOrders returns a snapshot of the trader's currently active orders.
func (t *Trader) ActiveOrders() []*orderbookv1.Order {
	t.mu.Lock()
	defer t.mu.Unlock()

	orders := make([]*orderbookv1.Order, 0, len(t.active))
	for _, order := range t.active {
		orders = append(orders, order)
	}
	return orders
}

// IsActive reports whether the order is currently in the trader's active set.
func (t *Trader) IsActive(order *orderbookv1.Order) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.active[order.ID]
	return ok
}
