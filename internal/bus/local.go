package bus

import (
	"context"
	"slices"
	"sync"
)

// Local is an in-process Bus. Handlers run synchronously on the publisher's
// goroutine, in subscription order.
type Local struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]Handler
	nextID uint64
	closed bool
}

// NewLocal returns an empty in-process bus.
func NewLocal() *Local {
	return &Local{subs: make(map[string]map[uint64]Handler)}
}

func (l *Local) Publish(_ context.Context, topic string, body []byte) error {
	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		return ErrClosed
	}
	hs := make([]Handler, 0, len(l.subs[topic]))
	ids := make([]uint64, 0, len(l.subs[topic]))
	for id := range l.subs[topic] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		hs = append(hs, l.subs[topic][id])
	}
	l.mu.RUnlock()

	for _, h := range hs {
		h(append([]byte(nil), body...))
	}
	return nil
}

func (l *Local) Subscribe(_ context.Context, topic string, h Handler) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}
	l.nextID++
	id := l.nextID
	if l.subs[topic] == nil {
		l.subs[topic] = make(map[uint64]Handler)
	}
	l.subs[topic][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs[topic], id)
			l.mu.Unlock()
		})
	}, nil
}

func (l *Local) Close() error {
	l.mu.Lock()
	l.closed = true
	l.subs = make(map[string]map[uint64]Handler)
	l.mu.Unlock()
	return nil
}
