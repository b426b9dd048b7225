package kuzzle

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kuzzleio/go-sdk/pkg/types"
)

type queueResult struct {
	resp *types.Response
	err  error
}

// queuedRequest parks a serialized query until the transport comes back.
// The channel is buffered so replay never blocks on a caller that gave up.
type queuedRequest struct {
	req     *types.Request
	payload []byte
	ch      chan queueResult
	addedAt time.Time
	gone    atomic.Bool
}

// abandon flags the entry when its caller stops waiting, so replay does
// not execute a request nobody observes.
func (e *queuedRequest) abandon() { e.gone.Store(true) }

func (e *queuedRequest) abandoned() bool { return e.gone.Load() }

// offlineQueue is a bounded FIFO of requests issued while disconnected.
type offlineQueue struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    []*queuedRequest
}

func newOfflineQueue(capacity int, ttl time.Duration) *offlineQueue {
	if capacity <= 0 {
		capacity = 64
	}
	return &offlineQueue{capacity: capacity, ttl: ttl}
}

// push parks a request. It fails with ErrQueueFull at capacity.
func (q *offlineQueue) push(req *types.Request, payload []byte) (*queuedRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.capacity {
		return nil, types.ErrQueueFull
	}

	entry := &queuedRequest{
		req:     req,
		payload: payload,
		ch:      make(chan queueResult, 1),
		addedAt: time.Now(),
	}
	q.items = append(q.items, entry)
	return entry, nil
}

// drain empties the queue, splitting entries still within their TTL from
// the expired ones.
func (q *offlineQueue) drain(now time.Time) (live, expired []*queuedRequest) {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()

	for _, entry := range items {
		if now.Sub(entry.addedAt) > q.ttl {
			expired = append(expired, entry)
			continue
		}
		live = append(live, entry)
	}
	return live, expired
}

// len reports the number of parked requests.
func (q *offlineQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
