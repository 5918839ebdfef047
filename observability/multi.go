package observability

import "context"

// MultiObserver fans out events to multiple observers in registration order.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver creates a MultiObserver that forwards events to all
// non-nil observers.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	m := &MultiObserver{observers: make([]Observer, 0, len(observers))}
	for _, obs := range observers {
		m.Add(obs)
	}
	return m
}

// Add appends obs to the fan-out list. Nil observers are ignored.
func (m *MultiObserver) Add(obs Observer) {
	if obs != nil {
		m.observers = append(m.observers, obs)
	}
}

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		obs.OnEvent(ctx, event)
	}
}
