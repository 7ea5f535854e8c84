package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Redis is a Bus over redis PUBLISH/SUBSCRIBE. Each Subscribe call opens its
// own pub/sub connection.
type Redis struct {
	rdb redis.UniversalClient
	log zerolog.Logger

	mu     sync.Mutex
	subs   map[*redis.PubSub]struct{}
	closed bool
}

// NewRedis wraps an existing client. The client is not closed by Close.
func NewRedis(rdb redis.UniversalClient, log zerolog.Logger) *Redis {
	return &Redis{
		rdb:  rdb,
		log:  log.With().Str("component", "bus").Str("driver", DriverRedis).Logger(),
		subs: make(map[*redis.PubSub]struct{}),
	}
}

func (r *Redis) Publish(ctx context.Context, topic string, body []byte) error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if err := r.rdb.Publish(ctx, topic, body).Err(); err != nil {
		return fmt.Errorf("bus: publish %s: %w", topic, err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, topic string, h Handler) (func(), error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	r.mu.Unlock()

	ps := r.rdb.Subscribe(ctx, topic)
	// Wait for the subscription confirmation so no message published after
	// Subscribe returns is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("bus: subscribe %s: %w", topic, err)
	}

	r.mu.Lock()
	r.subs[ps] = struct{}{}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range ps.Channel() {
			h([]byte(msg.Payload))
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, ps)
			r.mu.Unlock()
			if err := ps.Close(); err != nil {
				r.log.Debug().Err(err).Str("topic", topic).Msg("pubsub close")
			}
			<-done
		})
	}, nil
}

func (r *Redis) Close() error {
	r.mu.Lock()
	r.closed = true
	subs := r.subs
	r.subs = make(map[*redis.PubSub]struct{})
	r.mu.Unlock()

	for ps := range subs {
		_ = ps.Close()
	}
	return nil
}
