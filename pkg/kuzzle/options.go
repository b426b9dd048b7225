package kuzzle

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultQueryTimeout = 30 * time.Second
	defaultQueueTTL     = 2 * time.Minute
)

// Option configures a client.
type Option func(*Kuzzle)

// WithLogger sets the logger used by the client.
func WithLogger(log *logrus.Logger) Option {
	return func(k *Kuzzle) { k.log = log }
}

// WithQueryTimeout bounds each query when the caller's context carries no
// deadline. Zero disables the default bound.
func WithQueryTimeout(d time.Duration) Option {
	return func(k *Kuzzle) { k.queryTimeout = d }
}

// WithOfflineQueue enables request queuing while the transport is down.
// Queued requests are replayed in order on reconnection; requests older
// than ttl or beyond capacity are discarded.
func WithOfflineQueue(capacity int, ttl time.Duration) Option {
	return func(k *Kuzzle) {
		if ttl <= 0 {
			ttl = defaultQueueTTL
		}
		k.queue = newOfflineQueue(capacity, ttl)
	}
}

// WithVolatile attaches default volatile metadata to every request that
// does not carry its own.
func WithVolatile(volatile json.RawMessage) Option {
	return func(k *Kuzzle) { k.volatile = volatile }
}
