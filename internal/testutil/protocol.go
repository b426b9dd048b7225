// Package testutil provides in-process doubles for exercising the client
// without a live backend.
package testutil

import (
	"context"
	"sync"

	"github.com/kuzzleio/go-sdk/pkg/protocol"
	"github.com/kuzzleio/go-sdk/pkg/types"
)

// FakeProtocol is a scriptable protocol.Protocol. Behaviors default to
// success; override the function fields to script failures or inspect
// traffic.
type FakeProtocol struct {
	protocol.Emitter

	ConnectFn    func(ctx context.Context) error
	DisconnectFn func() error
	SendFn       func(ctx context.Context, requestID string, payload []byte) (*types.Response, error)

	mu    sync.Mutex
	state protocol.State
	sent  [][]byte
}

// NewFakeProtocol creates a disconnected fake transport.
func NewFakeProtocol() *FakeProtocol {
	return &FakeProtocol{state: protocol.StateDisconnected}
}

// Connect runs ConnectFn, transitions to connected on success and emits
// the connected event.
func (f *FakeProtocol) Connect(ctx context.Context) error {
	if f.ConnectFn != nil {
		if err := f.ConnectFn(ctx); err != nil {
			return err
		}
	}
	f.SetState(protocol.StateConnected)
	f.Emit(protocol.EventConnected)
	return nil
}

// Disconnect runs DisconnectFn and transitions to disconnected.
func (f *FakeProtocol) Disconnect() error {
	if f.DisconnectFn != nil {
		if err := f.DisconnectFn(); err != nil {
			return err
		}
	}
	f.SetState(protocol.StateDisconnected)
	f.Emit(protocol.EventDisconnected)
	return nil
}

// Send records the payload and runs SendFn, or echoes an empty successful
// response correlated to the request.
func (f *FakeProtocol) Send(ctx context.Context, requestID string, payload []byte) (*types.Response, error) {
	f.mu.Lock()
	f.sent = append(f.sent, payload)
	f.mu.Unlock()

	if f.SendFn != nil {
		return f.SendFn(ctx, requestID, payload)
	}
	return &types.Response{RequestID: requestID, Status: 200}, nil
}

// State returns the scripted connection state.
func (f *FakeProtocol) State() protocol.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// SetState overrides the connection state.
func (f *FakeProtocol) SetState(s protocol.State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// Sent returns every payload passed to Send, in order.
func (f *FakeProtocol) Sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}
