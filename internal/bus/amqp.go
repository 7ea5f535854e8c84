package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// AMQP is a Bus over RabbitMQ. Every topic maps to a fanout exchange; each
// subscription consumes from its own exclusive, auto-delete queue.
type AMQP struct {
	conn *amqp091.Connection
	log  zerolog.Logger

	mu       sync.Mutex
	pub      *amqp091.Channel
	declared map[string]bool
	closed   bool
}

// DialAMQP connects to url, retrying with exponential backoff until ctx is done
// or five attempts failed.
func DialAMQP(ctx context.Context, url string, log zerolog.Logger) (*AMQP, error) {
	log = log.With().Str("component", "bus").Str("driver", DriverAMQP).Logger()
	if url == "" {
		return nil, errors.New("bus: AMQP_URL is required for the amqp driver")
	}

	attempt := 0
	conn, err := backoff.Retry(ctx, func() (*amqp091.Connection, error) {
		attempt++
		return amqp091.Dial(url)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(5),
		backoff.WithNotify(func(err error, d time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("sleep", d).Msg("rabbit dial failed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("bus: connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &AMQP{conn: conn, log: log, pub: ch, declared: make(map[string]bool)}, nil
}

func declareExchange(ch *amqp091.Channel, topic string) error {
	return ch.ExchangeDeclare(topic, "fanout", true, false, false, false, nil)
}

func (a *AMQP) Publish(ctx context.Context, topic string, body []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	if !a.declared[topic] {
		if err := declareExchange(a.pub, topic); err != nil {
			return fmt.Errorf("bus: declare %s: %w", topic, err)
		}
		a.declared[topic] = true
	}
	err := a.pub.PublishWithContext(ctx, topic, "", false, false, amqp091.Publishing{
		ContentType: "application/json",
		MessageId:   uuid.NewString(),
		Timestamp:   time.Now(),
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("bus: publish %s: %w", topic, err)
	}
	return nil
}

func (a *AMQP) Subscribe(ctx context.Context, topic string, h Handler) (func(), error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil, ErrClosed
	}
	a.mu.Unlock()

	ch, err := a.conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := declareExchange(ch, topic); err != nil {
		ch.Close()
		return nil, fmt.Errorf("bus: declare %s: %w", topic, err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		return nil, err
	}
	if err := ch.QueueBind(q.Name, "", topic, false, nil); err != nil {
		ch.Close()
		return nil, err
	}
	msgs, err := ch.ConsumeWithContext(ctx, q.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for d := range msgs {
			h(d.Body)
		}
	}()
	a.log.Info().Str("topic", topic).Str("queue", q.Name).Msg("subscriber started")

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = ch.Close()
			<-done
		})
	}, nil
}

func (a *AMQP) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	return a.conn.Close()
}
