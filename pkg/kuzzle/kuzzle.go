package kuzzle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kuzzleio/go-sdk/internal/wire"
	"github.com/kuzzleio/go-sdk/pkg/controllers/auth"
	"github.com/kuzzleio/go-sdk/pkg/controllers/document"
	"github.com/kuzzleio/go-sdk/pkg/controllers/index"
	"github.com/kuzzleio/go-sdk/pkg/controllers/server"
	"github.com/kuzzleio/go-sdk/pkg/protocol"
	"github.com/kuzzleio/go-sdk/pkg/types"
)

// QueueListener observes requests entering or leaving the offline queue.
type QueueListener func(*types.Request)

// Kuzzle is a client for a multiprotocol backend. It is safe for
// concurrent use.
type Kuzzle struct {
	proto protocol.Protocol
	log   *logrus.Logger

	queryTimeout time.Duration
	queue        *offlineQueue
	volatile     json.RawMessage

	mu  sync.RWMutex // guards jwt
	jwt string

	hookMu      sync.RWMutex
	onQueued    []QueueListener
	onDiscarded []QueueListener

	// Typed API wrappers.
	Server   *server.Controller
	Auth     *auth.Controller
	Document *document.Controller
	Index    *index.Controller
}

// New wraps a transport into a client.
func New(proto protocol.Protocol, opts ...Option) *Kuzzle {
	k := &Kuzzle{
		proto:        proto,
		log:          logrus.New(),
		queryTimeout: defaultQueryTimeout,
	}
	k.log.SetLevel(logrus.PanicLevel)

	for _, opt := range opts {
		opt(k)
	}

	k.Server = server.New(k)
	k.Auth = auth.New(k)
	k.Document = document.New(k)
	k.Index = index.New(k)

	proto.OnEvent(k.onProtocolEvent)
	return k
}

// Connect establishes the transport connection.
func (k *Kuzzle) Connect(ctx context.Context) error {
	return k.proto.Connect(ctx)
}

// Disconnect closes the transport. Queued requests fail with
// ErrClientShutdown.
func (k *Kuzzle) Disconnect() error {
	if k.queue != nil {
		live, expired := k.queue.drain(time.Now())
		for _, entry := range append(expired, live...) {
			entry.ch <- queueResult{err: types.ErrClientShutdown}
			k.notifyDiscarded(entry.req)
		}
	}
	return k.proto.Disconnect()
}

// State returns the transport connection state.
func (k *Kuzzle) State() protocol.State {
	return k.proto.State()
}

// OnEvent registers a listener for transport lifecycle events.
func (k *Kuzzle) OnEvent(fn protocol.Listener) {
	k.proto.OnEvent(fn)
}

// OnQueued registers a listener fired when a request enters the offline
// queue.
func (k *Kuzzle) OnQueued(fn QueueListener) {
	k.hookMu.Lock()
	k.onQueued = append(k.onQueued, fn)
	k.hookMu.Unlock()
}

// OnDiscarded registers a listener fired when a queued request is dropped.
func (k *Kuzzle) OnDiscarded(fn QueueListener) {
	k.hookMu.Lock()
	k.onDiscarded = append(k.onDiscarded, fn)
	k.hookMu.Unlock()
}

// Jwt returns the authentication token attached to outgoing requests.
func (k *Kuzzle) Jwt() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.jwt
}

// SetJwt stores the authentication token attached to outgoing requests.
func (k *Kuzzle) SetJwt(token string) {
	k.mu.Lock()
	k.jwt = token
	k.mu.Unlock()
}

// QueueLen reports the number of requests parked in the offline queue.
func (k *Kuzzle) QueueLen() int {
	if k.queue == nil {
		return 0
	}
	return k.queue.len()
}

// Query sends a request and waits for its response. The request identifier
// is generated when missing; the stored JWT and default volatile metadata
// are injected into requests that carry none. Backend errors come back as
// *types.APIError alongside the raw response.
func (k *Kuzzle) Query(ctx context.Context, req *types.Request) (*types.Response, error) {
	if req == nil {
		return nil, &types.RequestError{Field: "request", Err: types.ErrMissingField}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.EnsureID()
	if req.Jwt == "" {
		req.Jwt = k.Jwt()
	}
	if req.Volatile == nil {
		req.Volatile = k.volatile
	}

	payload, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	if k.queryTimeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, k.queryTimeout)
			defer cancel()
		}
	}

	if k.proto.State() != protocol.StateConnected {
		return k.enqueue(ctx, req, payload)
	}

	resp, err := k.proto.Send(ctx, req.RequestID, payload)
	if err != nil {
		return nil, err
	}
	return resp, resp.Err()
}

// enqueue parks a request while disconnected and blocks until it is
// replayed or dropped.
func (k *Kuzzle) enqueue(ctx context.Context, req *types.Request, payload []byte) (*types.Response, error) {
	if k.queue == nil {
		return nil, fmt.Errorf("query %s: %w", req.RequestID, types.ErrNotConnected)
	}

	entry, err := k.queue.push(req, payload)
	if err != nil {
		k.notifyDiscarded(req)
		return nil, err
	}

	k.log.WithFields(logrus.Fields{
		"requestId":  req.RequestID,
		"controller": req.Controller,
		"action":     req.Action,
	}).Debug("request queued while offline")
	k.notifyQueued(req)

	select {
	case res := <-entry.ch:
		return res.resp, res.err
	case <-ctx.Done():
		entry.abandon()
		return nil, ctx.Err()
	}
}

// onProtocolEvent reacts to transport lifecycle transitions. Any
// transition to a connected transport flushes the offline queue: requests
// can be queued before the first Connect or after a reconnection window
// has been abandoned, not only across an automatic reconnect.
func (k *Kuzzle) onProtocolEvent(ev protocol.Event) {
	switch ev {
	case protocol.EventConnected, protocol.EventReconnected:
		if k.queue != nil {
			go k.replay()
		}
	}
}

// replay flushes the offline queue in arrival order.
func (k *Kuzzle) replay() {
	live, expired := k.queue.drain(time.Now())

	for _, entry := range expired {
		k.log.WithField("requestId", entry.req.RequestID).Debug("queued request expired")
		entry.ch <- queueResult{err: types.ErrRequestDiscard}
		k.notifyDiscarded(entry.req)
	}

	for _, entry := range live {
		if entry.abandoned() {
			k.log.WithField("requestId", entry.req.RequestID).Debug("queued request abandoned by caller")
			k.notifyDiscarded(entry.req)
			continue
		}

		ctx := context.Background()
		var cancel context.CancelFunc
		if k.queryTimeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, k.queryTimeout)
		}

		resp, err := k.proto.Send(ctx, entry.req.RequestID, entry.payload)
		if cancel != nil {
			cancel()
		}
		if err != nil {
			entry.ch <- queueResult{err: err}
			continue
		}
		entry.ch <- queueResult{resp: resp, err: resp.Err()}
	}

	if n := len(live); n > 0 {
		k.log.WithField("requests", n).Info("offline queue replayed")
	}
}

func (k *Kuzzle) notifyQueued(req *types.Request) {
	k.hookMu.RLock()
	listeners := make([]QueueListener, len(k.onQueued))
	copy(listeners, k.onQueued)
	k.hookMu.RUnlock()
	for _, fn := range listeners {
		fn(req)
	}
}

func (k *Kuzzle) notifyDiscarded(req *types.Request) {
	k.hookMu.RLock()
	listeners := make([]QueueListener, len(k.onDiscarded))
	copy(listeners, k.onDiscarded)
	k.hookMu.RUnlock()
	for _, fn := range listeners {
		fn(req)
	}
}
