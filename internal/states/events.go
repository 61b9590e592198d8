package states

import "sync"

// EventType identifies a state change event.
type EventType string

// EventType constants.
const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event is a property state change notification. Created and Updated events
// carry the resulting projection; Deleted events carry only the identity.
//
// A write to a dynamic property fans out to one event per affected property
// instance: the dynamic property itself and every mapped child.
type Event struct {
	Type       EventType
	PropertyID string
	State      *StateProjection // nil for Deleted
	Source     string
}

// Listener receives state change events. Listeners are invoked
// synchronously on the writing goroutine and must not block.
type Listener func(Event)

// notifier fans events out to subscribed listeners.
type notifier struct {
	mu        sync.RWMutex
	listeners []Listener
}

// subscribe registers a listener for all subsequent events.
func (n *notifier) subscribe(l Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, l)
}

// notify dispatches the event to every listener.
func (n *notifier) notify(ev Event) {
	n.mu.RLock()
	listeners := n.listeners
	n.mu.RUnlock()

	for _, l := range listeners {
		l(ev)
	}
}
