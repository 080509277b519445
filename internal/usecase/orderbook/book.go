// Package orderbook implements a single-venue limit order book with strict
// price-time priority matching.
package orderbook

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	orderbookv1 "github.com/tradevenue/limitbook/internal/domain/orderbook/v1"
	"github.com/tradevenue/limitbook/pkg/logger"
)

var (
	// ErrUnknownOrder is returned when a cancel targets an order that is not
	// currently resting in the book: already filled, already cancelled,
	// submitted to another venue, or never submitted at all.
	ErrUnknownOrder = errors.New("unknown order")
	// ErrOrderState is returned when a submitted order is not in the created
	// state, for example on resubmission.
	ErrOrderState = errors.New("order is not in a submittable state")
)

// Book is a limit order book for one venue.
//
// Every public operation runs to completion behind a single lock, including
// all matching iterations and all notification dispatches. Status updates
// are delivered inline, so listeners must not call back into the same book.
type Book struct {
	mu   sync.Mutex
	name string

	// price.String() -> limit; decimal values are not usable as map keys.
	askLimits map[string]*orderbookv1.Limit
	bidLimits map[string]*orderbookv1.Limit
	// orderID -> order, resting orders only.
	resting map[string]*orderbookv1.Order

	sequence int64
	log      logger.Interface
}

// NewBook creates a new empty book for the named venue.
func NewBook(name string, log logger.Interface) *Book {
	if log == nil {
		log = logger.NewNop()
	}
	return &Book{
		name:      name,
		askLimits: make(map[string]*orderbookv1.Limit),
		bidLimits: make(map[string]*orderbookv1.Limit),
		resting:   make(map[string]*orderbookv1.Order),
		log:       log,
	}
}

// Name returns the venue name.
func (b *Book) Name() string {
	return b.name
}

// Submit accepts a created order, assigns it the next sequence number,
// posts it, matches it against the opposite side if it crosses, and rests
// any residual size at its price level.
//
// A non-crossing order is not an error; the order simply rests. The
// order's final status reflects what happened: StatusPosted if it rested
// untouched, StatusPartiallyFilled if it matched and rested with residual
// size, StatusFilled if it matched completely.
func (b *Book) Submit(order *orderbookv1.Order) error {
	if order == nil {
		return orderbookv1.ErrNilOrder
	}
	if order.Status != orderbookv1.StatusCreated {
		return fmt.Errorf("%w: status %s", ErrOrderState, order.Status)
	}
	if !order.Size.IsPositive() {
		return fmt.Errorf("%w: got %s", orderbookv1.ErrInvalidSize, order.Size)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.sequence++
	order.Sequence = b.sequence
	order.Venue = b

	// Posted fires before any matching.
	order.UpdateStatus(orderbookv1.StatusPosted)

	matches := b.match(order)

	if order.Size.IsPositive() {
		b.rest(order)
	}

	b.log.Debug("order submitted",
		logger.Field{Key: "venue", Value: b.name},
		logger.Field{Key: "order", Value: order.String()},
		logger.Field{Key: "matches", Value: len(matches)},
	)

	return nil
}

// Cancel removes a resting order from the book and fires a cancelled
// update. Cancelling an order that is not currently resting in this book
// fails with ErrUnknownOrder.
func (b *Book) Cancel(order *orderbookv1.Order) error {
	if order == nil {
		return orderbookv1.ErrNilOrder
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	resting, ok := b.resting[order.ID]
	if !ok || resting != order {
		return fmt.Errorf("%w: %s", ErrUnknownOrder, order.ID)
	}

	limits := b.sideLimits(order.Side)
	key := order.Price.String()
	limit, ok := limits[key]
	if !ok {
		return fmt.Errorf("%w: no level at %s", ErrUnknownOrder, order.Price)
	}

	if err := limit.RemoveOrder(order); err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownOrder, order.ID)
	}
	if limit.IsEmpty() {
		delete(limits, key)
	}
	delete(b.resting, order.ID)

	order.UpdateStatus(orderbookv1.StatusCancelled)

	b.log.Debug("order cancelled",
		logger.Field{Key: "venue", Value: b.name},
		logger.Field{Key: "order", Value: order.String()},
	)

	return nil
}

// match walks the opposite side's best price levels while the incoming
// order still crosses, filling in strict price-time priority. It returns
// the matches produced.
func (b *Book) match(order *orderbookv1.Order) []orderbookv1.Match {
	var matches []orderbookv1.Match

	oppositeSide := order.Side.Opposite()
	opposite := b.sideLimits(oppositeSide)

	for order.Size.IsPositive() {
		limit := bestLimit(opposite, oppositeSide)
		if limit == nil || !crosses(order, limit.Price) {
			break
		}

		filled := limit.Fill(order)
		matches = append(matches, filled...)

		for i := range filled {
			counterparty := filled[i].Counterparty(order)
			if counterparty.IsFilled() {
				delete(b.resting, counterparty.ID)
			}
		}

		if limit.IsEmpty() {
			delete(opposite, limit.Price.String())
		}
	}

	return matches
}

// rest inserts the order at the tail of the FIFO queue for its price,
// creating the level if absent.
func (b *Book) rest(order *orderbookv1.Order) {
	limits := b.sideLimits(order.Side)
	key := order.Price.String()

	limit, ok := limits[key]
	if !ok {
		limit = orderbookv1.NewLimit(order.Price)
		limits[key] = limit
	}

	// AddOrder only rejects nil or non-positive-size orders, both already
	// excluded on this path.
	_ = limit.AddOrder(order)
	b.resting[order.ID] = order
}

// sideLimits returns the limit map for the given side.
func (b *Book) sideLimits(side orderbookv1.Side) map[string]*orderbookv1.Limit {
	if side == orderbookv1.SideBuy {
		return b.bidLimits
	}
	return b.askLimits
}

// crosses reports whether the order's price permits a match at the given
// opposite-side price: a buy crosses at or above the best ask, a sell at
// or below the best bid.
func crosses(order *orderbookv1.Order, oppositePrice decimal.Decimal) bool {
	if order.IsBid() {
		return order.Price.GreaterThanOrEqual(oppositePrice)
	}
	return order.Price.LessThanOrEqual(oppositePrice)
}

// bestLimit returns the best price level of the given side: the highest
// bid or the lowest ask. Nil when the side is empty.
func bestLimit(limits map[string]*orderbookv1.Limit, side orderbookv1.Side) *orderbookv1.Limit {
	var best *orderbookv1.Limit
	for _, limit := range limits {
		if best == nil {
			best = limit
			continue
		}
		if side == orderbookv1.SideBuy {
			if limit.Price.GreaterThan(best.Price) {
				best = limit
			}
		} else {
			if limit.Price.LessThan(best.Price) {
				best = limit
			}
		}
	}
	return best
}

// BestBid returns the highest bid price. The second return value is false
// when the bid side is empty.
func (b *Book) BestBid() (decimal.Decimal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	limit := bestLimit(b.bidLimits, orderbookv1.SideBuy)
	if limit == nil {
		return decimal.Decimal{}, false
	}
	return limit.Price, true
}

// BestAsk returns the lowest ask price. The second return value is false
// when the ask side is empty.
func (b *Book) BestAsk() (decimal.Decimal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	limit := bestLimit(b.askLimits, orderbookv1.SideSell)
	if limit == nil {
		return decimal.Decimal{}, false
	}
	return limit.Price, true
}

// Asks returns ask limits sorted by price (ascending).
func (b *Book) Asks() orderbookv1.Limits {
	b.mu.Lock()
	defer b.mu.Unlock()

	limits := make(orderbookv1.Limits, 0, len(b.askLimits))
	for _, limit := range b.askLimits {
		limits = append(limits, limit)
	}
	sort.Sort(orderbookv1.ByBestAsk{Limits: limits})
	return limits
}

// Bids returns bid limits sorted by price (descending).
func (b *Book) Bids() orderbookv1.Limits {
	b.mu.Lock()
	defer b.mu.Unlock()

	limits := make(orderbookv1.Limits, 0, len(b.bidLimits))
	for _, limit := range b.bidLimits {
		limits = append(limits, limit)
	}
	sort.Sort(orderbookv1.ByBestBid{Limits: limits})
	return limits
}

// AskTotalVolume returns the total resting ask volume.
func (b *Book) AskTotalVolume() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := decimal.Zero
	for _, limit := range b.askLimits {
		total = total.Add(limit.TotalVolume)
	}
	return total
}

// BidTotalVolume returns the total resting bid volume.
func (b *Book) BidTotalVolume() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := decimal.Zero
	for _, limit := range b.bidLimits {
		total = total.Add(limit.TotalVolume)
	}
	return total
}
