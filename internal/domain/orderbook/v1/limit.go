package orderbookv1

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Limit represents one price level: the FIFO queue of all resting orders
// sharing a price on one side of the book. Insertion order is arrival
// order, which gives time priority within the level.
//
// A Limit is not safe for concurrent use; the owning book serializes all
// access behind its own lock.
type Limit struct {
	Price       decimal.Decimal `json:"price"`
	Orders      []*Order        `json:"orders"`
	TotalVolume decimal.Decimal `json:"totalVolume"`
}

// NewLimit creates a new empty Limit at the specified price.
func NewLimit(price decimal.Decimal) *Limit {
	return &Limit{
		Price:  price,
		Orders: make([]*Order, 0),
	}
}

// AddOrder appends an order to the tail of the limit's queue and updates
// the total volume.
func (l *Limit) AddOrder(order *Order) error {
	if order == nil {
		return ErrNilOrder
	}
	if !order.Size.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrInvalidSize, order.Size)
	}

	l.Orders = append(l.Orders, order)
	l.TotalVolume = l.TotalVolume.Add(order.Size)

	return nil
}

// RemoveOrder removes an order from the limit and updates the total volume.
func (l *Limit) RemoveOrder(order *Order) error {
	if order == nil {
		return ErrNilOrder
	}

	for i, o := range l.Orders {
		if o == order {
			l.Orders = append(l.Orders[:i], l.Orders[i+1:]...)
			l.TotalVolume = l.TotalVolume.Sub(order.Size)
			return nil
		}
	}

	return ErrOrderNotFound
}

// Head returns the earliest-arrived resting order, or nil when the limit
// is empty.
func (l *Limit) Head() *Order {
	if len(l.Orders) == 0 {
		return nil
	}
	return l.Orders[0]
}

// Fill matches the incoming order against this limit's queue in FIFO order
// and returns the resulting matches.
//
// Each iteration compares the head resting order's size against the
// incoming order's remaining size:
//   - resting smaller: the resting order is consumed and removed, the
//     incoming order stays partially filled and keeps matching;
//   - resting larger: the resting order is reduced and stays, the incoming
//     order fills completely;
//   - equal: both fill completely.
//
// Status updates fire once per transition, in the order the sizes mutate:
// the consumed side last on a full consumption of the head, the surviving
// side first on a partial one.
func (l *Limit) Fill(incoming *Order) []Match {
	if incoming == nil {
		return nil
	}

	var matches []Match

	for len(l.Orders) > 0 && incoming.Size.IsPositive() {
		resting := l.Orders[0]

		switch resting.Size.Cmp(incoming.Size) {
		case -1: // resting order is smaller; consume it and continue
			traded := resting.Size
			incoming.Size = incoming.Size.Sub(traded)
			resting.Size = decimal.Zero
			l.removeHead(traded)
			matches = append(matches, newMatch(incoming, resting, traded, l.Price))

			incoming.UpdateStatus(StatusPartiallyFilled)
			resting.UpdateStatus(StatusFilled)

		case 1: // resting order is larger; incoming fills completely
			traded := incoming.Size
			resting.Size = resting.Size.Sub(traded)
			incoming.Size = decimal.Zero
			l.TotalVolume = l.TotalVolume.Sub(traded)
			matches = append(matches, newMatch(incoming, resting, traded, l.Price))

			resting.UpdateStatus(StatusPartiallyFilled)
			incoming.UpdateStatus(StatusFilled)

		default: // exact match; both fill completely
			traded := incoming.Size
			resting.Size = decimal.Zero
			incoming.Size = decimal.Zero
			l.removeHead(traded)
			matches = append(matches, newMatch(incoming, resting, traded, l.Price))

			resting.UpdateStatus(StatusFilled)
			incoming.UpdateStatus(StatusFilled)
		}
	}

	return matches
}

// removeHead pops the head order and deducts its traded size from the
// total volume.
func (l *Limit) removeHead(traded decimal.Decimal) {
	l.Orders = l.Orders[1:]
	l.TotalVolume = l.TotalVolume.Sub(traded)
}

// IsEmpty checks if the limit has no orders.
func (l *Limit) IsEmpty() bool {
	return len(l.Orders) == 0
}

// OrderCount returns the number of orders at this limit.
func (l *Limit) OrderCount() int {
	return len(l.Orders)
}

// Validate performs basic validation of the limit's state.
func (l *Limit) Validate() error {
	if !l.Price.IsPositive() {
		return fmt.Errorf("%w: limit price %s", ErrInvalidPrice, l.Price)
	}

	calculated := decimal.Zero
	for _, order := range l.Orders {
		if order == nil {
			return fmt.Errorf("nil order found in limit")
		}
		if !order.Size.IsPositive() {
			return fmt.Errorf("%w: resting order has size %s", ErrInvalidSize, order.Size)
		}
		calculated = calculated.Add(order.Size)
	}

	if !calculated.Equal(l.TotalVolume) {
		return fmt.Errorf("volume mismatch: calculated %s, stored %s", calculated, l.TotalVolume)
	}

	return nil
}
