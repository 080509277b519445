package orderbookv1

import (
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

var (
	// ErrNilOrder is returned when a nil order is passed to an operation.
	ErrNilOrder = errors.New("order cannot be nil")
	// ErrInvalidPrice is returned when an order price is not strictly positive.
	ErrInvalidPrice = errors.New("price must be positive")
	// ErrInvalidSize is returned when an order size is not strictly positive.
	ErrInvalidSize = errors.New("size must be positive")
	// ErrOrderNotFound is returned when an order is not present in a limit.
	ErrOrderNotFound = errors.New("order not found in limit")
)

// Side represents the side of an order.
type Side int

const (
	// SideBuy represents a buy (bid) order.
	SideBuy Side = iota
	// SideSell represents a sell (ask) order.
	SideSell
)

// Opposite returns the opposing side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// String returns a human readable side name.
func (s Side) String() string {
	if s == SideBuy {
		return "buy"
	}
	return "sell"
}

// Status represents the lifecycle state of an order.
type Status int

const (
	// StatusCreated means the order exists but has not been submitted to a venue.
	StatusCreated Status = iota
	// StatusPosted means the order has been accepted by a venue.
	StatusPosted
	// StatusPartiallyFilled means part of the order size has been matched.
	StatusPartiallyFilled
	// StatusFilled means the order size has been fully matched.
	StatusFilled
	// StatusCancelled means the order was removed from the venue before filling.
	StatusCancelled
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusFilled || s == StatusCancelled
}

// String returns a human readable status name.
func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusPosted:
		return "posted"
	case StatusPartiallyFilled:
		return "partially_filled"
	case StatusFilled:
		return "filled"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Venue is the contract an order book exposes to its collaborators.
// An order keeps a non-owning reference to the venue it was submitted to
// so cancellation can be routed without knowing the concrete book type.
type Venue interface {
	// Name returns the venue name.
	Name() string
	// Submit accepts a created order, assigns it a sequence and matches it.
	Submit(order *Order) error
	// Cancel removes a resting order from the venue.
	Cancel(order *Order) error
}

// Order represents a single limit order.
//
// ID is assigned at construction and never changes, so order identity is
// stable before any venue sees the order. Sequence is assigned by the venue
// on submission and is zero until then.
type Order struct {
	ID        string          `json:"id"`
	Sequence  int64           `json:"sequence"`
	Price     decimal.Decimal `json:"price"`
	Size      decimal.Decimal `json:"size"`
	Side      Side            `json:"side"`
	Status    Status          `json:"status"`
	Timestamp int64           `json:"timestamp"`

	// Venue is set by the book on submission. Nil for unsubmitted orders.
	Venue Venue `json:"-"`
	// Owner receives an OrderUpdate for every status transition.
	Owner UpdateListener `json:"-"`
}

// NewOrder creates a new limit order in the StatusCreated state.
// The price and size must both be strictly positive.
func NewOrder(price, size decimal.Decimal, side Side, owner UpdateListener) (*Order, error) {
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidPrice, price)
	}
	if !size.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidSize, size)
	}

	return &Order{
		ID:        ulid.Make().String(),
		Price:     price,
		Size:      size,
		Side:      side,
		Status:    StatusCreated,
		Timestamp: time.Now().UnixNano(),
		Owner:     owner,
	}, nil
}

// IsBid checks if the order is a bid (buy) order.
func (o *Order) IsBid() bool {
	return o.Side == SideBuy
}

// IsAsk checks if the order is an ask (sell) order.
func (o *Order) IsAsk() bool {
	return o.Side == SideSell
}

// IsFilled checks if the order is filled (size is zero).
func (o *Order) IsFilled() bool {
	return o.Size.IsZero()
}

// UpdateStatus transitions the order to the given status and delivers an
// OrderUpdate to the owner. The update is delivered inline, before this
// method returns; the owner must not call back into the venue from its
// handler.
func (o *Order) UpdateStatus(status Status) {
	last := o.Status
	o.Status = status
	if o.Owner != nil {
		o.Owner.OnOrderUpdate(OrderUpdate{
			Order:      o,
			Status:     status,
			LastStatus: last,
		})
	}
}

// String returns a compact description of the order for logging.
func (o *Order) String() string {
	return fmt.Sprintf("<id:%s/seq:%d/price:%s/size:%s/side:%s/status:%s>",
		o.ID, o.Sequence, o.Price, o.Size, o.Side, o.Status)
}
