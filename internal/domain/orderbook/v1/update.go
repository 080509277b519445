package orderbookv1

// OrderUpdate is the notification payload delivered on every order status
// transition. It records the new status together with the status the order
// held just before the transition.
type OrderUpdate struct {
	Order      *Order `json:"order"`
	Status     Status `json:"status"`
	LastStatus Status `json:"lastStatus"`
}

// UpdateListener receives order status updates from a venue.
//
// Updates are delivered synchronously, while the venue still holds its
// internal lock. Implementations must return quickly and must not submit
// or cancel orders on the same venue from inside OnOrderUpdate.
type UpdateListener interface {
	OnOrderUpdate(update OrderUpdate)
}

// FanoutListener delivers each update to every registered listener in order.
type FanoutListener struct {
	listeners []UpdateListener
}

// NewFanoutListener creates a FanoutListener over the given listeners.
func NewFanoutListener(listeners ...UpdateListener) *FanoutListener {
	return &FanoutListener{listeners: listeners}
}

// OnOrderUpdate forwards the update to all registered listeners.
func (f *FanoutListener) OnOrderUpdate(update OrderUpdate) {
	for _, l := range f.listeners {
		l.OnOrderUpdate(update)
	}
}
