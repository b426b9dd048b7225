package protocol

import "sync"

// Emitter fans connection lifecycle events out to registered listeners.
// It is safe for concurrent use and meant to be embedded by transports.
type Emitter struct {
	mu        sync.RWMutex
	listeners []Listener
}

// OnEvent registers a lifecycle listener.
func (e *Emitter) OnEvent(fn Listener) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	e.listeners = append(e.listeners, fn)
	e.mu.Unlock()
}

// Emit delivers an event to every registered listener, in registration
// order, on the calling goroutine.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	listeners := make([]Listener, len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}
