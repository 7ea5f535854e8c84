package pipe

import (
	"context"
	"sync"
)

// threadQueue admits one event per thread at a time, in the order Acquire
// was called.
type threadQueue struct {
	mu    sync.Mutex
	tails map[string]*turn
}

type turn struct {
	done chan struct{}
}

func newThreadQueue() *threadQueue {
	return &threadQueue{tails: make(map[string]*turn)}
}

// Acquire waits for every earlier holder of key. The returned release must be
// called exactly once. When ctx ends first the turn is still released in
// order, after the predecessor.
func (q *threadQueue) Acquire(ctx context.Context, key string) (release func(), err error) {
	t := &turn{done: make(chan struct{})}

	q.mu.Lock()
	prev := q.tails[key]
	q.tails[key] = t
	q.mu.Unlock()

	release = func() {
		q.mu.Lock()
		if q.tails[key] == t {
			delete(q.tails, key)
		}
		q.mu.Unlock()
		close(t.done)
	}

	if prev == nil {
		return release, nil
	}
	select {
	case <-prev.done:
		return release, nil
	case <-ctx.Done():
		go func() {
			<-prev.done
			release()
		}()
		return nil, ctx.Err()
	}
}

// Len returns the number of threads with a queued or running event.
func (q *threadQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tails)
}
