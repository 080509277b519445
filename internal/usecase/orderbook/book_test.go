package orderbook

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderbookv1 "github.com/tradevenue/limitbook/internal/domain/orderbook/v1"
)

// recordingListener captures every update it receives, in order.
type recordingListener struct {
	updates []orderbookv1.OrderUpdate
}

func (r *recordingListener) OnOrderUpdate(update orderbookv1.OrderUpdate) {
	r.updates = append(r.updates, update)
}

// statusesFor returns the status sequence recorded for one order.
func (r *recordingListener) statusesFor(order *orderbookv1.Order) []orderbookv1.Status {
	var statuses []orderbookv1.Status
	for _, update := range r.updates {
		if update.Order == order {
			statuses = append(statuses, update.Status)
		}
	}
	return statuses
}

// d is a test helper for decimal literals.
func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Helper function to create a test order
func createTestOrder(t *testing.T, price, size string, side orderbookv1.Side, owner orderbookv1.UpdateListener) *orderbookv1.Order {
	t.Helper()
	order, err := orderbookv1.NewOrder(d(price), d(size), side, owner)
	require.NoError(t, err)
	return order
}

// Test 1: Basic constructor
func TestNewBook(t *testing.T) {
	book := NewBook("binance", nil)

	assert.NotNil(t, book)
	assert.Equal(t, "binance", book.Name())
	assert.Empty(t, book.Asks())
	assert.Empty(t, book.Bids())

	_, ok := book.BestBid()
	assert.False(t, ok)
	_, ok = book.BestAsk()
	assert.False(t, ok)
}

// Test 2: A non-crossing order rests and is posted
func TestBook_SubmitRests(t *testing.T) {
	book := NewBook("binance", nil)
	listener := &recordingListener{}

	order := createTestOrder(t, "102", "0.7", orderbookv1.SideSell, listener)
	require.NoError(t, book.Submit(order))

	assert.Equal(t, orderbookv1.StatusPosted, order.Status)
	assert.Equal(t, int64(1), order.Sequence)
	assert.Same(t, book, order.Venue.(*Book))

	best, ok := book.BestAsk()
	require.True(t, ok)
	assert.True(t, best.Equal(d("102")))
	assert.True(t, book.AskTotalVolume().Equal(d("0.7")))

	require.Len(t, listener.updates, 1)
	assert.Equal(t, orderbookv1.StatusPosted, listener.updates[0].Status)
	assert.Equal(t, orderbookv1.StatusCreated, listener.updates[0].LastStatus)
}

// Test 3: Submission input validation
func TestBook_SubmitValidation(t *testing.T) {
	book := NewBook("binance", nil)

	t.Run("nil order", func(t *testing.T) {
		assert.ErrorIs(t, book.Submit(nil), orderbookv1.ErrNilOrder)
	})

	t.Run("resubmission", func(t *testing.T) {
		order := createTestOrder(t, "100", "1", orderbookv1.SideBuy, nil)
		require.NoError(t, book.Submit(order))
		assert.ErrorIs(t, book.Submit(order), ErrOrderState)
	})
}

// Test 4: Crossing boundary conditions
func TestBook_CrossingBoundary(t *testing.T) {
	t.Run("buy strictly below best ask rests", func(t *testing.T) {
		book := NewBook("binance", nil)
		ask := createTestOrder(t, "102", "1", orderbookv1.SideSell, nil)
		require.NoError(t, book.Submit(ask))

		buy := createTestOrder(t, "101.99", "1", orderbookv1.SideBuy, nil)
		require.NoError(t, book.Submit(buy))

		assert.Equal(t, orderbookv1.StatusPosted, buy.Status)
		assert.True(t, buy.Size.Equal(d("1")))
		assert.True(t, book.BidTotalVolume().Equal(d("1")))
		assert.True(t, book.AskTotalVolume().Equal(d("1")))
	})

	t.Run("buy exactly at best ask matches", func(t *testing.T) {
		book := NewBook("binance", nil)
		ask := createTestOrder(t, "102", "1", orderbookv1.SideSell, nil)
		require.NoError(t, book.Submit(ask))

		buy := createTestOrder(t, "102", "1", orderbookv1.SideBuy, nil)
		require.NoError(t, book.Submit(buy))

		assert.Equal(t, orderbookv1.StatusFilled, buy.Status)
		assert.Equal(t, orderbookv1.StatusFilled, ask.Status)
		assert.True(t, book.AskTotalVolume().IsZero())
		assert.True(t, book.BidTotalVolume().IsZero())
	})

	t.Run("sell above best bid rests", func(t *testing.T) {
		book := NewBook("binance", nil)
		bid := createTestOrder(t, "100", "1", orderbookv1.SideBuy, nil)
		require.NoError(t, book.Submit(bid))

		sell := createTestOrder(t, "100.01", "1", orderbookv1.SideSell, nil)
		require.NoError(t, book.Submit(sell))

		assert.Equal(t, orderbookv1.StatusPosted, sell.Status)
		assert.True(t, book.AskTotalVolume().Equal(d("1")))
	})
}

// Test 5: Partial fill leaves the resting residual on its level
func TestBook_PartialFill(t *testing.T) {
	book := NewBook("binance", nil)

	resting := createTestOrder(t, "102", "0.7", orderbookv1.SideSell, nil)
	require.NoError(t, book.Submit(resting))

	incoming := createTestOrder(t, "102", "0.5", orderbookv1.SideBuy, nil)
	require.NoError(t, book.Submit(incoming))

	assert.Equal(t, orderbookv1.StatusFilled, incoming.Status)
	assert.True(t, incoming.Size.IsZero())

	assert.Equal(t, orderbookv1.StatusPartiallyFilled, resting.Status)
	assert.True(t, resting.Size.Equal(d("0.2")))

	// The ask level still exists and holds the residual.
	asks := book.Asks()
	require.Len(t, asks, 1)
	assert.True(t, asks[0].TotalVolume.Equal(d("0.2")))
	require.NoError(t, asks[0].Validate())
}

// Test 6: Time priority within a price level is strict FIFO
func TestBook_PriceTimePriority(t *testing.T) {
	book := NewBook("binance", nil)

	first := createTestOrder(t, "100", "1", orderbookv1.SideSell, nil)
	second := createTestOrder(t, "100", "1", orderbookv1.SideSell, nil)
	require.NoError(t, book.Submit(first))
	require.NoError(t, book.Submit(second))

	incoming := createTestOrder(t, "100", "1", orderbookv1.SideBuy, nil)
	require.NoError(t, book.Submit(incoming))

	// Only the first-arrived order fills; the second rests untouched.
	assert.Equal(t, orderbookv1.StatusFilled, first.Status)
	assert.Equal(t, orderbookv1.StatusPosted, second.Status)
	assert.True(t, second.Size.Equal(d("1")))
	assert.True(t, book.AskTotalVolume().Equal(d("1")))
}

// Test 7: Better-priced levels always match first
func TestBook_PricePriorityAcrossLevels(t *testing.T) {
	book := NewBook("binance", nil)

	cheap := createTestOrder(t, "100", "1", orderbookv1.SideSell, nil)
	expensive := createTestOrder(t, "101", "1", orderbookv1.SideSell, nil)
	require.NoError(t, book.Submit(expensive))
	require.NoError(t, book.Submit(cheap))

	incoming := createTestOrder(t, "101", "1", orderbookv1.SideBuy, nil)
	require.NoError(t, book.Submit(incoming))

	assert.Equal(t, orderbookv1.StatusFilled, cheap.Status)
	assert.Equal(t, orderbookv1.StatusPosted, expensive.Status)
}

// Test 8: An incoming order sweeps multiple levels, one partial-fill
// update per consumed resting order, terminal fill at the end
func TestBook_SubmitSweepsMultipleLevels(t *testing.T) {
	book := NewBook("binance", nil)
	listener := &recordingListener{}

	askA := createTestOrder(t, "100", "1", orderbookv1.SideSell, listener)
	askB := createTestOrder(t, "101", "1", orderbookv1.SideSell, listener)
	askC := createTestOrder(t, "102", "2", orderbookv1.SideSell, listener)
	require.NoError(t, book.Submit(askA))
	require.NoError(t, book.Submit(askB))
	require.NoError(t, book.Submit(askC))

	incoming := createTestOrder(t, "102", "3", orderbookv1.SideBuy, listener)
	require.NoError(t, book.Submit(incoming))

	// Two whole levels consumed, the third reduced.
	assert.Equal(t, orderbookv1.StatusFilled, askA.Status)
	assert.Equal(t, orderbookv1.StatusFilled, askB.Status)
	assert.Equal(t, orderbookv1.StatusPartiallyFilled, askC.Status)
	assert.True(t, askC.Size.Equal(d("1")))
	assert.Equal(t, orderbookv1.StatusFilled, incoming.Status)

	// One update per status actually reached, not de-duplicated: the
	// incoming order goes posted, partial, partial, filled.
	assert.Equal(t, []orderbookv1.Status{
		orderbookv1.StatusPosted,
		orderbookv1.StatusPartiallyFilled,
		orderbookv1.StatusPartiallyFilled,
		orderbookv1.StatusFilled,
	}, listener.statusesFor(incoming))

	// Emptied levels are gone; only the reduced one remains.
	asks := book.Asks()
	require.Len(t, asks, 1)
	assert.True(t, asks[0].Price.Equal(d("102")))
}

// Test 9: Residual size rests after exhausting all crossing liquidity
func TestBook_ResidualRestsAfterSweep(t *testing.T) {
	book := NewBook("binance", nil)

	ask := createTestOrder(t, "100", "1", orderbookv1.SideSell, nil)
	require.NoError(t, book.Submit(ask))

	incoming := createTestOrder(t, "100", "2.5", orderbookv1.SideBuy, nil)
	require.NoError(t, book.Submit(incoming))

	assert.Equal(t, orderbookv1.StatusPartiallyFilled, incoming.Status)
	assert.True(t, incoming.Size.Equal(d("1.5")))

	best, ok := book.BestBid()
	require.True(t, ok)
	assert.True(t, best.Equal(d("100")))
	assert.True(t, book.BidTotalVolume().Equal(d("1.5")))
	assert.True(t, book.AskTotalVolume().IsZero())
}

// Test 10: Cancellation removes the order and cleans up empty levels
func TestBook_Cancel(t *testing.T) {
	book := NewBook("binance", nil)
	listener := &recordingListener{}

	order := createTestOrder(t, "102", "0.7", orderbookv1.SideSell, listener)
	require.NoError(t, book.Submit(order))
	require.NoError(t, book.Cancel(order))

	assert.Equal(t, orderbookv1.StatusCancelled, order.Status)
	assert.Empty(t, book.Asks())
	assert.Equal(t, []orderbookv1.Status{
		orderbookv1.StatusPosted,
		orderbookv1.StatusCancelled,
	}, listener.statusesFor(order))
}

// Test 11: Unknown-order conditions on cancel
func TestBook_CancelUnknownOrder(t *testing.T) {
	book := NewBook("binance", nil)

	t.Run("never submitted", func(t *testing.T) {
		order := createTestOrder(t, "100", "1", orderbookv1.SideBuy, nil)
		assert.ErrorIs(t, book.Cancel(order), ErrUnknownOrder)
	})

	t.Run("double cancel", func(t *testing.T) {
		order := createTestOrder(t, "100", "1", orderbookv1.SideBuy, nil)
		require.NoError(t, book.Submit(order))
		require.NoError(t, book.Cancel(order))
		assert.ErrorIs(t, book.Cancel(order), ErrUnknownOrder)
	})

	t.Run("cancel after full fill", func(t *testing.T) {
		resting := createTestOrder(t, "105", "1", orderbookv1.SideSell, nil)
		require.NoError(t, book.Submit(resting))
		incoming := createTestOrder(t, "105", "1", orderbookv1.SideBuy, nil)
		require.NoError(t, book.Submit(incoming))

		assert.ErrorIs(t, book.Cancel(resting), ErrUnknownOrder)
	})

	t.Run("wrong venue", func(t *testing.T) {
		other := NewBook("coinbase", nil)
		order := createTestOrder(t, "100", "1", orderbookv1.SideBuy, nil)
		require.NoError(t, other.Submit(order))
		assert.ErrorIs(t, book.Cancel(order), ErrUnknownOrder)
	})

	t.Run("nil order", func(t *testing.T) {
		assert.ErrorIs(t, book.Cancel(nil), orderbookv1.ErrNilOrder)
	})
}

// Test 12: Sequences are unique and strictly increasing per book
func TestBook_SequenceAssignment(t *testing.T) {
	book := NewBook("binance", nil)

	var last int64
	for i := 0; i < 50; i++ {
		order := createTestOrder(t, fmt.Sprintf("%d", 100+i), "1", orderbookv1.SideSell, nil)
		require.NoError(t, book.Submit(order))
		assert.Greater(t, order.Sequence, last)
		last = order.Sequence
	}
}

// Test 13: Venues are fully independent
func TestBook_VenueIndependence(t *testing.T) {
	binance := NewBook("binance", nil)
	coinbase := NewBook("coinbase", nil)

	sell := createTestOrder(t, "102", "0.7", orderbookv1.SideSell, nil)
	require.NoError(t, binance.Submit(sell))

	// A crossing-priced buy on the other venue must not match.
	buy := createTestOrder(t, "102", "0.5", orderbookv1.SideBuy, nil)
	require.NoError(t, coinbase.Submit(buy))

	assert.Equal(t, orderbookv1.StatusPosted, sell.Status)
	assert.Equal(t, orderbookv1.StatusPosted, buy.Status)
	assert.Equal(t, int64(1), sell.Sequence)
	assert.Equal(t, int64(1), buy.Sequence)
	assert.True(t, binance.AskTotalVolume().Equal(d("0.7")))
	assert.True(t, coinbase.BidTotalVolume().Equal(d("0.5")))
}

// Test 14: Size conservation across a mixed submission/cancel sequence
func TestBook_Conservation(t *testing.T) {
	book := NewBook("binance", nil)

	type submitted struct {
		order    *orderbookv1.Order
		original decimal.Decimal
	}

	var all []submitted
	submit := func(price, size string, side orderbookv1.Side) *orderbookv1.Order {
		order := createTestOrder(t, price, size, side, nil)
		require.NoError(t, book.Submit(order))
		all = append(all, submitted{order: order, original: d(size)})
		return order
	}

	submit("100", "2", orderbookv1.SideSell)
	submit("101", "1.5", orderbookv1.SideSell)
	cancelled := submit("102", "3", orderbookv1.SideSell)
	submit("100.5", "1", orderbookv1.SideBuy)
	submit("101", "2.25", orderbookv1.SideBuy)
	require.NoError(t, book.Cancel(cancelled))
	submit("99", "0.75", orderbookv1.SideBuy)
	submit("100.5", "4", orderbookv1.SideSell)

	// Every unit of size removed from a buy order was transferred to a
	// sell order and vice versa.
	buyReduction := decimal.Zero
	sellReduction := decimal.Zero
	for _, s := range all {
		reduction := s.original.Sub(s.order.Size)
		assert.False(t, s.order.Size.IsNegative())
		if s.order.IsBid() {
			buyReduction = buyReduction.Add(reduction)
		} else {
			sellReduction = sellReduction.Add(reduction)
		}
	}
	// The cancelled order kept its size, so it contributes zero reduction.
	assert.True(t, cancelled.Size.Equal(d("3")))
	assert.True(t, buyReduction.Equal(sellReduction), "buy reduction %s != sell reduction %s", buyReduction, sellReduction)

	// Resting volume equals the remaining size of non-terminal orders.
	restingTotal := book.AskTotalVolume().Add(book.BidTotalVolume())
	remaining := decimal.Zero
	for _, s := range all {
		if !s.order.Status.Terminal() {
			remaining = remaining.Add(s.order.Size)
		}
	}
	assert.True(t, restingTotal.Equal(remaining), "resting %s != remaining %s", restingTotal, remaining)

	// Every surviving level reports a consistent volume.
	for _, limit := range append(book.Asks(), book.Bids()...) {
		require.NoError(t, limit.Validate())
	}
}

// Test 15: Posted fires before any matching activity
func TestBook_PostedFiresBeforeMatching(t *testing.T) {
	book := NewBook("binance", nil)
	listener := &recordingListener{}

	resting := createTestOrder(t, "100", "1", orderbookv1.SideSell, nil)
	require.NoError(t, book.Submit(resting))

	incoming := createTestOrder(t, "100", "1", orderbookv1.SideBuy, listener)
	require.NoError(t, book.Submit(incoming))

	statuses := listener.statusesFor(incoming)
	require.NotEmpty(t, statuses)
	assert.Equal(t, orderbookv1.StatusPosted, statuses[0])
	assert.Equal(t, orderbookv1.StatusFilled, statuses[len(statuses)-1])
}

// Test 16: Sorted level views
func TestBook_SortedViews(t *testing.T) {
	book := NewBook("binance", nil)

	require.NoError(t, book.Submit(createTestOrder(t, "101", "1", orderbookv1.SideSell, nil)))
	require.NoError(t, book.Submit(createTestOrder(t, "103", "1", orderbookv1.SideSell, nil)))
	require.NoError(t, book.Submit(createTestOrder(t, "102", "1", orderbookv1.SideSell, nil)))
	require.NoError(t, book.Submit(createTestOrder(t, "99", "1", orderbookv1.SideBuy, nil)))
	require.NoError(t, book.Submit(createTestOrder(t, "98", "1", orderbookv1.SideBuy, nil)))

	asks := book.Asks()
	require.Len(t, asks, 3)
	assert.True(t, asks[0].Price.Equal(d("101")))
	assert.True(t, asks[1].Price.Equal(d("102")))
	assert.True(t, asks[2].Price.Equal(d("103")))

	bids := book.Bids()
	require.Len(t, bids, 2)
	assert.True(t, bids[0].Price.Equal(d("99")))
	assert.True(t, bids[1].Price.Equal(d("98")))
}
