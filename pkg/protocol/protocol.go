package protocol

import (
	"context"

	"github.com/kuzzleio/go-sdk/pkg/types"
)

// Protocol is the transport contract every connection mechanism fulfills.
// Implementations must support concurrent Send calls: duplex transports
// correlate responses to requests through the request identifier.
type Protocol interface {
	// Connect establishes the connection. It is an error to connect an
	// already connected protocol.
	Connect(ctx context.Context) error

	// Disconnect tears the connection down and fails pending requests.
	Disconnect() error

	// Send transmits a serialized request envelope and blocks until the
	// correlated response arrives, the context is done, or the
	// connection is lost.
	Send(ctx context.Context, requestID string, payload []byte) (*types.Response, error)

	// State returns the current connection state.
	State() State

	// OnEvent registers a listener for connection lifecycle events.
	// Listeners are invoked synchronously and must not block.
	OnEvent(fn Listener)
}

// State describes the connection lifecycle of a transport.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Event is a connection lifecycle notification.
type Event int

const (
	// EventConnected fires after the first successful connection.
	EventConnected Event = iota

	// EventDisconnected fires when the connection is lost or closed.
	EventDisconnected

	// EventReconnected fires after an automatic reconnection succeeded.
	EventReconnected
)

// String returns a human-readable event name.
func (e Event) String() string {
	switch e {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventReconnected:
		return "reconnected"
	default:
		return "unknown"
	}
}

// Listener receives lifecycle events from a transport.
type Listener func(Event)
