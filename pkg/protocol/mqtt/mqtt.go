// Package mqtt implements the publish/subscribe transport. Requests are
// published on the backend's request topic and responses come back on the
// response topic, correlated by request identifier.
package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kuzzleio/go-sdk/internal/wire"
	"github.com/kuzzleio/go-sdk/pkg/protocol"
	"github.com/kuzzleio/go-sdk/pkg/types"
)

const (
	// DefaultPort is the backend's MQTT port.
	DefaultPort = 1883

	// requestTopic and responseTopic are the backend's MQTT entry points.
	requestTopic  = "Kuzzle/request"
	responseTopic = "Kuzzle/response"

	defaultConnectTimeout = 10 * time.Second
)

// Option configures an MQTT transport.
type Option func(*MQTT)

// WithPort overrides the default broker port.
func WithPort(port int) Option {
	return func(m *MQTT) { m.port = port }
}

// WithSSL switches the broker connection to TLS.
func WithSSL(ssl bool) Option {
	return func(m *MQTT) { m.ssl = ssl }
}

// WithLogger sets the logger used by the transport.
func WithLogger(log *logrus.Logger) Option {
	return func(m *MQTT) { m.log = log }
}

// WithClientID sets the MQTT client identifier. A random one is generated
// when unset.
func WithClientID(id string) Option {
	return func(m *MQTT) { m.clientID = id }
}

// WithConnectTimeout bounds the broker handshake.
func WithConnectTimeout(d time.Duration) Option {
	return func(m *MQTT) { m.connectTimeout = d }
}

type pendingResult struct {
	resp *types.Response
	err  error
}

// MQTT is a protocol.Protocol over the backend's MQTT topics.
type MQTT struct {
	protocol.Emitter

	host           string
	port           int
	ssl            bool
	clientID       string
	connectTimeout time.Duration

	log    *logrus.Logger
	client pahomqtt.Client
	state  atomic.Int32

	mu      sync.Mutex
	pending map[string]chan pendingResult
}

// New creates an MQTT transport targeting host on the default port.
func New(host string, opts ...Option) *MQTT {
	m := &MQTT{
		host:           host,
		port:           DefaultPort,
		connectTimeout: defaultConnectTimeout,
		log:            discardLogger(),
		pending:        make(map[string]chan pendingResult),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.clientID == "" {
		m.clientID = "kuzzle-go-sdk-" + uuid.NewString()
	}
	return m
}

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// BrokerURL returns the broker URL forged from host, port and SSL
// configuration.
func (m *MQTT) BrokerURL() string {
	scheme := "tcp"
	if m.ssl {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, m.host, m.port)
}

// State returns the current connection state.
func (m *MQTT) State() protocol.State {
	return protocol.State(m.state.Load())
}

func (m *MQTT) setState(s protocol.State) {
	m.state.Store(int32(s))
}

// Connect dials the broker and subscribes to the response topic.
// Reconnection is delegated to the underlying MQTT client; lifecycle
// transitions are bridged to protocol listeners.
func (m *MQTT) Connect(ctx context.Context) error {
	if m.State() != protocol.StateDisconnected {
		return &types.TransportError{Transport: "mqtt", Operation: "connect", Err: types.ErrAlreadyConnected}
	}
	m.setState(protocol.StateConnecting)

	// The connect handler runs on paho's goroutine, after the connect token
	// completes. Connect blocks on initialSub so the client is subscribed
	// (and the state settled) before it returns.
	initialSub := make(chan error, 1)
	var first atomic.Bool
	first.Store(true)

	opts := pahomqtt.NewClientOptions().
		AddBroker(m.BrokerURL()).
		SetClientID(m.clientID).
		SetConnectTimeout(m.connectTimeout).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(client pahomqtt.Client) {
			token := client.Subscribe(responseTopic, 0, m.onResponse)
			token.Wait()
			err := token.Error()
			if err != nil {
				m.log.WithError(err).Error("response topic subscription failed")
			} else {
				m.setState(protocol.StateConnected)
			}
			if first.CompareAndSwap(true, false) {
				initialSub <- err // Connect consumes this and emits the event.
				return
			}
			if err == nil {
				m.Emit(protocol.EventReconnected)
			}
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			m.log.WithError(err).Warn("mqtt connection lost")
			m.setState(protocol.StateReconnecting)
			m.failPending(types.ErrConnectionLost)
			m.Emit(protocol.EventDisconnected)
		})

	m.client = pahomqtt.NewClient(opts)

	token := m.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		m.client.Disconnect(0)
		m.setState(protocol.StateDisconnected)
		return &types.TransportError{Transport: "mqtt", Operation: "connect", Err: ctx.Err()}
	}
	if err := token.Error(); err != nil {
		m.setState(protocol.StateDisconnected)
		return &types.TransportError{Transport: "mqtt", Operation: "connect", Err: err}
	}

	select {
	case err := <-initialSub:
		if err != nil {
			m.client.Disconnect(0)
			m.setState(protocol.StateDisconnected)
			return &types.TransportError{Transport: "mqtt", Operation: "connect", Err: err}
		}
	case <-ctx.Done():
		m.client.Disconnect(0)
		m.setState(protocol.StateDisconnected)
		return &types.TransportError{Transport: "mqtt", Operation: "connect", Err: ctx.Err()}
	}

	m.Emit(protocol.EventConnected)
	return nil
}

// onResponse routes a response frame to the request waiting for it.
func (m *MQTT) onResponse(_ pahomqtt.Client, msg pahomqtt.Message) {
	resp, err := wire.DecodeResponse(msg.Payload())
	if err != nil {
		m.log.WithError(err).Warn("discarding unparsable frame")
		return
	}

	m.mu.Lock()
	ch, ok := m.pending[resp.RequestID]
	if ok {
		delete(m.pending, resp.RequestID)
	}
	m.mu.Unlock()

	if !ok {
		m.log.WithField("requestId", resp.RequestID).Debug("unmatched response dropped")
		return
	}
	ch <- pendingResult{resp: resp}
}

// Send publishes the payload on the request topic and blocks until the
// correlated response arrives on the response topic.
func (m *MQTT) Send(ctx context.Context, requestID string, payload []byte) (*types.Response, error) {
	if m.State() != protocol.StateConnected {
		return nil, &types.TransportError{
			Transport: "mqtt", Operation: "send", RequestID: requestID,
			Err: types.ErrNotConnected,
		}
	}

	ch := make(chan pendingResult, 1)
	m.mu.Lock()
	m.pending[requestID] = ch
	m.mu.Unlock()

	token := m.client.Publish(requestTopic, 0, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		m.forget(requestID)
		return nil, ctx.Err()
	}
	if err := token.Error(); err != nil {
		m.forget(requestID)
		return nil, &types.TransportError{Transport: "mqtt", Operation: "send", RequestID: requestID, Err: err}
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, &types.TransportError{
				Transport: "mqtt", Operation: "send", RequestID: requestID, Err: res.err,
			}
		}
		return res.resp, nil
	case <-ctx.Done():
		m.forget(requestID)
		return nil, ctx.Err()
	}
}

func (m *MQTT) forget(requestID string) {
	m.mu.Lock()
	delete(m.pending, requestID)
	m.mu.Unlock()
}

func (m *MQTT) failPending(err error) {
	m.mu.Lock()
	pending := m.pending
	m.pending = make(map[string]chan pendingResult)
	m.mu.Unlock()

	for _, ch := range pending {
		ch <- pendingResult{err: err}
	}
}

// Disconnect closes the broker connection and fails in-flight requests.
func (m *MQTT) Disconnect() error {
	if m.client == nil || m.State() == protocol.StateDisconnected {
		return &types.TransportError{Transport: "mqtt", Operation: "disconnect", Err: types.ErrAlreadyClosed}
	}

	m.setState(protocol.StateDisconnected)
	m.client.Disconnect(250)
	m.failPending(types.ErrConnectionLost)
	m.Emit(protocol.EventDisconnected)
	return nil
}
