// Package websocket implements the full-duplex transport. It multiplexes
// concurrent requests over a single connection, correlating responses by
// request identifier, and reconnects automatically with exponential
// backoff when the connection drops.
package websocket

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/kuzzleio/go-sdk/internal/wire"
	"github.com/kuzzleio/go-sdk/pkg/protocol"
	"github.com/kuzzleio/go-sdk/pkg/types"
)

const (
	// DefaultPort is the backend's HTTP/WebSocket port.
	DefaultPort = 7512

	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 10 * time.Second
	defaultPingInterval     = 30 * time.Second
	defaultReconnectWindow  = 2 * time.Minute
)

// Option configures a WebSocket transport.
type Option func(*WebSocket)

// WithPort overrides the default backend port.
func WithPort(port int) Option {
	return func(ws *WebSocket) { ws.port = port }
}

// WithSSL switches the connection to wss.
func WithSSL(ssl bool) Option {
	return func(ws *WebSocket) { ws.ssl = ssl }
}

// WithLogger sets the logger used by the transport.
func WithLogger(log *logrus.Logger) Option {
	return func(ws *WebSocket) { ws.log = log }
}

// WithHandshakeTimeout bounds the connection handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(ws *WebSocket) { ws.handshakeTimeout = d }
}

// WithPingInterval sets the keep-alive ping period.
func WithPingInterval(d time.Duration) Option {
	return func(ws *WebSocket) { ws.pingInterval = d }
}

// WithAutoReconnect toggles automatic reconnection after a lost
// connection. Enabled by default.
func WithAutoReconnect(enabled bool) Option {
	return func(ws *WebSocket) { ws.autoReconnect = enabled }
}

// WithReconnectWindow bounds the total time spent retrying a lost
// connection before giving up.
func WithReconnectWindow(d time.Duration) Option {
	return func(ws *WebSocket) { ws.reconnectWindow = d }
}

type pendingResult struct {
	resp *types.Response
	err  error
}

// WebSocket is a protocol.Protocol over a single gorilla/websocket
// connection.
type WebSocket struct {
	protocol.Emitter

	host string
	port int
	ssl  bool

	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	pingInterval     time.Duration
	autoReconnect    bool
	reconnectWindow  time.Duration

	log *logrus.Logger

	state atomic.Int32

	mu      sync.Mutex // guards conn, pending, done
	conn    *websocket.Conn
	pending map[string]chan pendingResult
	done    chan struct{}

	writeMu sync.Mutex // serializes writes to the connection
}

// New creates a WebSocket transport targeting host on the default port.
func New(host string, opts ...Option) *WebSocket {
	ws := &WebSocket{
		host:             host,
		port:             DefaultPort,
		handshakeTimeout: defaultHandshakeTimeout,
		writeTimeout:     defaultWriteTimeout,
		pingInterval:     defaultPingInterval,
		autoReconnect:    true,
		reconnectWindow:  defaultReconnectWindow,
		log:              discardLogger(),
		pending:          make(map[string]chan pendingResult),
	}
	for _, opt := range opts {
		opt(ws)
	}
	return ws
}

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// URL returns the connection URL forged from host, port and SSL
// configuration.
func (ws *WebSocket) URL() string {
	scheme := "ws"
	if ws.ssl {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, ws.host, ws.port)
}

// State returns the current connection state.
func (ws *WebSocket) State() protocol.State {
	return protocol.State(ws.state.Load())
}

func (ws *WebSocket) setState(s protocol.State) {
	ws.state.Store(int32(s))
}

// Connect dials the backend and starts the read and keep-alive pumps.
func (ws *WebSocket) Connect(ctx context.Context) error {
	if ws.State() != protocol.StateDisconnected {
		return &types.TransportError{Transport: "websocket", Operation: "connect", Err: types.ErrAlreadyConnected}
	}
	ws.setState(protocol.StateConnecting)

	ws.mu.Lock()
	ws.done = make(chan struct{})
	ws.mu.Unlock()

	if err := ws.dial(ctx); err != nil {
		ws.setState(protocol.StateDisconnected)
		return &types.TransportError{Transport: "websocket", Operation: "connect", Err: err}
	}

	ws.Emit(protocol.EventConnected)
	return nil
}

// dial establishes a connection and hands it to the pumps. Callers own
// the state transitions around it.
func (ws *WebSocket) dial(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: ws.handshakeTimeout}

	conn, resp, err := dialer.DialContext(ctx, ws.URL(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", ws.URL(), err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	ws.mu.Lock()
	ws.conn = conn
	ws.mu.Unlock()
	ws.setState(protocol.StateConnected)

	g, gctx := errgroup.WithContext(context.Background())
	g.Go(func() error { return ws.readPump(conn) })
	g.Go(func() error { return ws.pingLoop(gctx, conn) })
	g.Go(func() error {
		<-gctx.Done()
		return conn.Close()
	})
	go ws.supervise(g)

	return nil
}

// supervise waits for the pumps to stop and drives the reconnection
// policy.
func (ws *WebSocket) supervise(g *errgroup.Group) {
	err := g.Wait()

	ws.mu.Lock()
	done := ws.done
	ws.mu.Unlock()

	select {
	case <-done:
		// Intentional disconnect, nothing to recover.
		return
	default:
	}

	ws.log.WithError(err).Warn("websocket connection lost")
	ws.setState(protocol.StateDisconnected)
	ws.failPending(types.ErrConnectionLost)
	ws.Emit(protocol.EventDisconnected)

	if ws.autoReconnect {
		ws.reconnect()
	}
}

// reconnect retries the dial with exponential backoff until it succeeds,
// the client is shut down, or the reconnect window elapses.
func (ws *WebSocket) reconnect() {
	ws.setState(protocol.StateReconnecting)

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = ws.reconnectWindow

	err := backoff.Retry(func() error {
		ws.mu.Lock()
		done := ws.done
		ws.mu.Unlock()

		select {
		case <-done:
			return backoff.Permanent(types.ErrClientShutdown)
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), ws.handshakeTimeout)
		defer cancel()

		if err := ws.dial(ctx); err != nil {
			ws.log.WithError(err).Debug("websocket reconnect attempt failed")
			ws.setState(protocol.StateReconnecting)
			return err
		}
		return nil
	}, policy)

	if err != nil {
		ws.setState(protocol.StateDisconnected)
		ws.log.WithError(err).Error("websocket reconnection abandoned")
		return
	}

	ws.log.Info("websocket reconnected")
	ws.Emit(protocol.EventReconnected)
}

// readPump reads frames until the connection fails and routes each
// response to the request waiting for it.
func (ws *WebSocket) readPump(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("websocket read: %w", err)
		}

		resp, err := wire.DecodeResponse(data)
		if err != nil {
			ws.log.WithError(err).Warn("discarding unparsable frame")
			continue
		}
		ws.dispatch(resp)
	}
}

func (ws *WebSocket) dispatch(resp *types.Response) {
	ws.mu.Lock()
	ch, ok := ws.pending[resp.RequestID]
	if ok {
		delete(ws.pending, resp.RequestID)
	}
	ws.mu.Unlock()

	if !ok {
		ws.log.WithField("requestId", resp.RequestID).Debug("unmatched response dropped")
		return
	}
	ch <- pendingResult{resp: resp}
}

func (ws *WebSocket) pingLoop(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(ws.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			ws.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ws.writeTimeout))
			ws.writeMu.Unlock()
			if err != nil {
				return fmt.Errorf("websocket ping: %w", err)
			}
		}
	}
}

// Send writes the payload and blocks until the response with the same
// request identifier arrives.
func (ws *WebSocket) Send(ctx context.Context, requestID string, payload []byte) (*types.Response, error) {
	if ws.State() != protocol.StateConnected {
		return nil, &types.TransportError{
			Transport: "websocket", Operation: "send", RequestID: requestID,
			Err: types.ErrNotConnected,
		}
	}

	ch := make(chan pendingResult, 1)
	ws.mu.Lock()
	conn := ws.conn
	if conn == nil {
		ws.mu.Unlock()
		return nil, &types.TransportError{
			Transport: "websocket", Operation: "send", RequestID: requestID,
			Err: types.ErrNotConnected,
		}
	}
	ws.pending[requestID] = ch
	ws.mu.Unlock()

	ws.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(ws.writeTimeout))
	err := conn.WriteMessage(websocket.TextMessage, payload)
	ws.writeMu.Unlock()
	if err != nil {
		ws.forget(requestID)
		return nil, &types.TransportError{
			Transport: "websocket", Operation: "send", RequestID: requestID, Err: err,
		}
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, &types.TransportError{
				Transport: "websocket", Operation: "send", RequestID: requestID, Err: res.err,
			}
		}
		return res.resp, nil
	case <-ctx.Done():
		ws.forget(requestID)
		return nil, ctx.Err()
	}
}

func (ws *WebSocket) forget(requestID string) {
	ws.mu.Lock()
	delete(ws.pending, requestID)
	ws.mu.Unlock()
}

// failPending unblocks every in-flight request with err.
func (ws *WebSocket) failPending(err error) {
	ws.mu.Lock()
	pending := ws.pending
	ws.pending = make(map[string]chan pendingResult)
	ws.mu.Unlock()

	for _, ch := range pending {
		ch <- pendingResult{err: err}
	}
}

// Disconnect closes the connection. In-flight requests fail with
// ErrConnectionLost and no reconnection is attempted.
func (ws *WebSocket) Disconnect() error {
	ws.mu.Lock()
	if ws.done != nil {
		select {
		case <-ws.done:
		default:
			close(ws.done)
		}
	}
	conn := ws.conn
	ws.conn = nil
	ws.mu.Unlock()

	if conn == nil || ws.State() == protocol.StateDisconnected {
		return &types.TransportError{Transport: "websocket", Operation: "disconnect", Err: types.ErrAlreadyClosed}
	}

	ws.setState(protocol.StateDisconnected)
	err := conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(ws.writeTimeout))
	_ = conn.Close()
	ws.failPending(types.ErrConnectionLost)
	ws.Emit(protocol.EventDisconnected)

	if err != nil {
		ws.log.WithError(err).Debug("close frame not delivered")
	}
	return nil
}
