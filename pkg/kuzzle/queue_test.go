package kuzzle

import (
	"testing"
	"time"

	"github.com/kuzzleio/go-sdk/pkg/types"
)

func TestQueuePushBounded(t *testing.T) {
	q := newOfflineQueue(2, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := q.push(types.NewRequest("server", "now"), nil); err != nil {
			t.Fatalf("push %d failed: %v", i, err)
		}
	}

	if _, err := q.push(types.NewRequest("server", "now"), nil); err != types.ErrQueueFull {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	if q.len() != 2 {
		t.Errorf("queue length = %d, want 2", q.len())
	}
}

func TestQueueDrainSplitsExpired(t *testing.T) {
	q := newOfflineQueue(8, 10*time.Millisecond)

	stale, err := q.push(types.NewRequest("server", "now"), nil)
	if err != nil {
		t.Fatal(err)
	}
	stale.addedAt = time.Now().Add(-time.Second)

	fresh, err := q.push(types.NewRequest("server", "info"), nil)
	if err != nil {
		t.Fatal(err)
	}

	live, expired := q.drain(time.Now())
	if len(live) != 1 || live[0] != fresh {
		t.Errorf("live = %v", live)
	}
	if len(expired) != 1 || expired[0] != stale {
		t.Errorf("expired = %v", expired)
	}
	if q.len() != 0 {
		t.Errorf("drain left %d entries behind", q.len())
	}
}

func TestQueuePreservesOrder(t *testing.T) {
	q := newOfflineQueue(8, time.Minute)

	first, _ := q.push(types.NewRequest("server", "now"), nil)
	second, _ := q.push(types.NewRequest("server", "info"), nil)

	live, _ := q.drain(time.Now())
	if len(live) != 2 || live[0] != first || live[1] != second {
		t.Error("drain did not preserve arrival order")
	}
}

func TestQueueDefaultCapacity(t *testing.T) {
	q := newOfflineQueue(0, time.Minute)
	if q.capacity != 64 {
		t.Errorf("default capacity = %d, want 64", q.capacity)
	}
}
