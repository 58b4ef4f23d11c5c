package suggest

import (
	"sync"
)

// Identifiers carried by the click interaction event
const (
	EventComponent = "history-suggestion-provider"
	EventAction    = "interaction"
	EventItem      = "history_suggestion_clicked"
)

// Event is an interaction record delivered to observers
type Event struct {
	Component string `json:"component"`
	Action    string `json:"action"`
	Item      string `json:"item"`
}

// ClickEvent is the event emitted when a history suggestion is clicked
func ClickEvent() Event {
	return Event{Component: EventComponent, Action: EventAction, Item: EventItem}
}

// Observer receives interaction events
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to an Observer
type ObserverFunc func(Event)

// OnEvent calls f(e)
func (f ObserverFunc) OnEvent(e Event) { f(e) }

type registration struct {
	observer Observer
}

// Emitter delivers events synchronously to its registered observers.
// The zero value is an emitter with no observers.
type Emitter struct {
	mu        sync.RWMutex
	observers []*registration
}

// NewEmitter creates an emitter with no observers
func NewEmitter() *Emitter {
	return &Emitter{}
}

// Register adds an observer and returns a function that removes it again
func (e *Emitter) Register(o Observer) func() {
	reg := &registration{observer: o}

	e.mu.Lock()
	e.observers = append(e.observers, reg)
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()

			for i, r := range e.observers {
				if r == reg {
					e.observers = append(e.observers[:i:i], e.observers[i+1:]...)
					break
				}
			}
		})
	}
}

// Clear removes every observer
func (e *Emitter) Clear() {
	e.mu.Lock()
	e.observers = nil
	e.mu.Unlock()
}

// Len reports the number of registered observers
func (e *Emitter) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.observers)
}

// Emit delivers ev to the observers registered at the time of the call, in
// registration order. Observers run on the caller's goroutine without the
// emitter lock held.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	snapshot := make([]*registration, len(e.observers))
	copy(snapshot, e.observers)
	e.mu.RUnlock()

	for _, r := range snapshot {
		r.observer.OnEvent(ev)
	}
}
