// Package bus moves small opaque messages between processes of the service.
// It carries routing-cache mutations and realtime notifications. Delivery is
// best effort: a subscriber that is not connected misses messages.
package bus

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Topics used by the service.
const (
	TopicCache    = "handoff.cache"
	TopicRealtime = "handoff.realtime"
)

// Drivers selectable through configuration.
const (
	DriverRedis = "redis"
	DriverAMQP  = "amqp"
	DriverLocal = "local"
)

// ErrClosed is returned by operations on a closed bus.
var ErrClosed = errors.New("bus: closed")

// Handler receives the raw body of a message.
type Handler func(body []byte)

// Bus is a topic based publish/subscribe transport.
type Bus interface {
	Publish(ctx context.Context, topic string, body []byte) error
	// Subscribe registers h for topic until the returned function is called.
	Subscribe(ctx context.Context, topic string, h Handler) (unsubscribe func(), err error)
	Close() error
}

// Options selects and configures a Bus implementation.
type Options struct {
	Driver  string
	Redis   redis.UniversalClient
	AMQPURL string
	Logger  zerolog.Logger
}

// Open returns the Bus selected by opts.Driver.
func Open(ctx context.Context, opts Options) (Bus, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case DriverLocal:
		return NewLocal(), nil
	case "", DriverRedis:
		if opts.Redis == nil {
			return nil, errors.New("bus: redis driver requires a client")
		}
		return NewRedis(opts.Redis, opts.Logger), nil
	case DriverAMQP:
		return DialAMQP(ctx, opts.AMQPURL, opts.Logger)
	default:
		return nil, fmt.Errorf("bus: unsupported driver %q", opts.Driver)
	}
}
