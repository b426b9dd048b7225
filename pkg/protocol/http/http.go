// Package http implements the stateless transport. Every request is an
// independent POST to the backend's generic query endpoint, so there is no
// connection to keep alive and no reconnection machinery.
package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"

	"github.com/kuzzleio/go-sdk/internal/wire"
	"github.com/kuzzleio/go-sdk/pkg/protocol"
	"github.com/kuzzleio/go-sdk/pkg/types"
)

const (
	// DefaultPort is the backend's HTTP port.
	DefaultPort = 7512

	// queryRoute is the backend's generic query endpoint: it accepts any
	// serialized request envelope regardless of the targeted route.
	queryRoute = "/_query"

	defaultTimeout = 30 * time.Second
)

// Option configures an HTTP transport.
type Option func(*HTTP)

// WithPort overrides the default backend port.
func WithPort(port int) Option {
	return func(h *HTTP) { h.port = port }
}

// WithSSL switches the connection to https with HTTP/2 enabled.
func WithSSL(ssl bool) Option {
	return func(h *HTTP) { h.ssl = ssl }
}

// WithLogger sets the logger used by the transport.
func WithLogger(log *logrus.Logger) Option {
	return func(h *HTTP) { h.log = log }
}

// WithTimeout bounds each HTTP round trip.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTP) { h.timeout = d }
}

// WithTLSConfig sets the TLS configuration used for https endpoints.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(h *HTTP) { h.tlsConfig = cfg }
}

// HTTP is a protocol.Protocol over plain request/response HTTP.
type HTTP struct {
	protocol.Emitter

	host      string
	port      int
	ssl       bool
	timeout   time.Duration
	tlsConfig *tls.Config

	log    *logrus.Logger
	client *http.Client
	state  atomic.Int32
}

// New creates an HTTP transport targeting host on the default port.
func New(host string, opts ...Option) *HTTP {
	h := &HTTP{
		host:    host,
		port:    DefaultPort,
		timeout: defaultTimeout,
		log:     discardLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig:     h.tlsConfig,
	}
	if h.ssl {
		// Negotiate HTTP/2 on TLS endpoints.
		if err := http2.ConfigureTransport(transport); err != nil {
			h.log.WithError(err).Warn("http2 not enabled")
		}
	}
	h.client = &http.Client{Timeout: h.timeout, Transport: transport}

	return h
}

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// URL returns the base URL forged from host, port and SSL configuration.
func (h *HTTP) URL() string {
	scheme := "http"
	if h.ssl {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, h.host, h.port)
}

// State returns the reachability observed by the last probe or request.
func (h *HTTP) State() protocol.State {
	return protocol.State(h.state.Load())
}

func (h *HTTP) setState(s protocol.State) {
	h.state.Store(int32(s))
}

// Connect probes the backend root route for reachability. There is no
// persistent connection to establish.
func (h *HTTP) Connect(ctx context.Context) error {
	if h.State() == protocol.StateConnected {
		return &types.TransportError{Transport: "http", Operation: "connect", Err: types.ErrAlreadyConnected}
	}
	h.setState(protocol.StateConnecting)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL()+"/", nil)
	if err != nil {
		h.setState(protocol.StateDisconnected)
		return &types.TransportError{Transport: "http", Operation: "connect", Err: err}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.setState(protocol.StateDisconnected)
		return &types.TransportError{Transport: "http", Operation: "connect", Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 500 {
		h.setState(protocol.StateDisconnected)
		return &types.TransportError{
			Transport: "http", Operation: "connect",
			Err: fmt.Errorf("backend unhealthy: status %d", resp.StatusCode),
		}
	}

	h.setState(protocol.StateConnected)
	h.Emit(protocol.EventConnected)
	return nil
}

// Send posts the payload to the generic query endpoint and parses the
// response envelope from the body.
func (h *HTTP) Send(ctx context.Context, requestID string, payload []byte) (*types.Response, error) {
	if h.State() != protocol.StateConnected {
		return nil, &types.TransportError{
			Transport: "http", Operation: "send", RequestID: requestID,
			Err: types.ErrNotConnected,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL()+queryRoute, bytes.NewReader(payload))
	if err != nil {
		return nil, &types.TransportError{Transport: "http", Operation: "send", RequestID: requestID, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &types.TransportError{Transport: "http", Operation: "send", RequestID: requestID, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.TransportError{Transport: "http", Operation: "send", RequestID: requestID, Err: err}
	}

	envelope, err := wire.DecodeResponse(body)
	if err != nil {
		return nil, &types.TransportError{Transport: "http", Operation: "send", RequestID: requestID, Err: err}
	}
	if envelope.Status == 0 {
		envelope.Status = resp.StatusCode
	}
	return envelope, nil
}

// Disconnect drops idle connections. Subsequent sends require a new
// Connect probe.
func (h *HTTP) Disconnect() error {
	if h.State() == protocol.StateDisconnected {
		return &types.TransportError{Transport: "http", Operation: "disconnect", Err: types.ErrAlreadyClosed}
	}
	h.setState(protocol.StateDisconnected)
	h.client.CloseIdleConnections()
	h.Emit(protocol.EventDisconnected)
	return nil
}
