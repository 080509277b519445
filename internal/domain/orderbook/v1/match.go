package orderbookv1

import "github.com/shopspring/decimal"

// Match represents a fill between an ask and a bid order at a price level.
type Match struct {
	Ask        *Order          `json:"ask"`
	Bid        *Order          `json:"bid"`
	SizeFilled decimal.Decimal `json:"sizeFilled"`
	Price      decimal.Decimal `json:"price"`
}

// newMatch builds a Match, orienting the incoming and resting orders onto
// their bid/ask slots.
func newMatch(incoming, resting *Order, sizeFilled, price decimal.Decimal) Match {
	m := Match{
		SizeFilled: sizeFilled,
		Price:      price,
	}
	if incoming.IsBid() {
		m.Bid = incoming
		m.Ask = resting
	} else {
		m.Bid = resting
		m.Ask = incoming
	}
	return m
}

// AskIsFilled checks if the ask order is filled.
func (m *Match) AskIsFilled() bool {
	return m.Ask.Size.IsZero()
}

// BidIsFilled checks if the bid order is filled.
func (m *Match) BidIsFilled() bool {
	return m.Bid.Size.IsZero()
}

// Counterparty returns the resting side of the match given the incoming
// order.
func (m *Match) Counterparty(incoming *Order) *Order {
	if m.Bid == incoming {
		return m.Ask
	}
	return m.Bid
}
