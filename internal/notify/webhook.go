package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

// Webhook defaults.
const (
	DefaultMaxAttempts     = 10
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 30 * time.Second
	DefaultWorkers         = 4
	DefaultQueueSize       = 1024
	defaultRequestTimeout  = 10 * time.Second
)

// DeliveryError reports a non-2xx webhook response.
type DeliveryError struct {
	StatusCode int
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("webhook responded %d", e.StatusCode)
}

// WebhookOptions configures a Webhook. An empty URL disables delivery.
type WebhookOptions struct {
	URL             string
	MaxAttempts     int
	Jitter          bool
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Workers         int
	QueueSize       int
	Client          *http.Client
}

// Webhook posts notifications to an external URL from a bounded worker pool,
// retrying failed attempts with exponential backoff.
type Webhook struct {
	opts  WebhookOptions
	log   zerolog.Logger
	queue chan Payload

	wg       sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
	stop     chan struct{}
	stopOnce sync.Once
}

// NewWebhook returns a Webhook and starts its workers.
func NewWebhook(opts WebhookOptions, log zerolog.Logger) *Webhook {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = DefaultInitialInterval
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = DefaultMaxInterval
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: defaultRequestTimeout}
	}

	w := &Webhook{
		opts:  opts,
		log:   log.With().Str("component", "webhook").Logger(),
		queue: make(chan Payload, opts.QueueSize),
		stop:  make(chan struct{}),
	}
	if w.Enabled() {
		for i := 0; i < opts.Workers; i++ {
			w.wg.Add(1)
			go w.worker()
		}
	}
	return w
}

// Enabled reports whether a URL is configured.
func (w *Webhook) Enabled() bool { return w.opts.URL != "" }

// Enqueue schedules p for delivery. It never blocks; when the queue is full
// the notification is dropped and false is returned.
func (w *Webhook) Enqueue(p Payload) bool {
	if !w.Enabled() {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}
	select {
	case w.queue <- p:
		return true
	default:
		webhookDeliveries.WithLabelValues("dropped").Inc()
		w.log.Error().
			Str("bot_id", p.BotID).
			Str("resource", p.Resource).
			Str("type", p.Type).
			Str("id", p.ID).
			Msg("webhook queue full, notification dropped")
		return false
	}
}

func (w *Webhook) worker() {
	defer w.wg.Done()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-w.stop:
			cancel()
		case <-ctx.Done():
		}
	}()
	for p := range w.queue {
		_ = w.Deliver(ctx, p)
	}
}

// Deliver posts p, retrying up to MaxAttempts times. The final error is
// logged and returned; callers on the notification path ignore it.
func (w *Webhook) Deliver(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.opts.InitialInterval
	b.MaxInterval = w.opts.MaxInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	if w.opts.Jitter {
		b.RandomizationFactor = 0.5
	}

	lg := w.log.With().
		Str("bot_id", p.BotID).
		Str("resource", p.Resource).
		Str("type", p.Type).
		Str("id", p.ID).
		Logger()

	attempt := 0
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := w.post(ctx, body)
		if err != nil {
			webhookAttempts.WithLabelValues("error").Inc()
			return struct{}{}, err
		}
		webhookAttempts.WithLabelValues("ok").Inc()
		return struct{}{}, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(w.opts.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			if attempt == 1 {
				lg.Warn().Err(err).Dur("retry_in", next).Msg("webhook delivery failed, retrying")
				return
			}
			lg.Debug().Err(err).Int("attempt", attempt).Dur("retry_in", next).Msg("webhook retry failed")
		}),
	)
	if err != nil {
		webhookDeliveries.WithLabelValues("exhausted").Inc()
		lg.Error().Err(err).Int("attempts", attempt).Msg("webhook delivery abandoned")
		return err
	}
	webhookDeliveries.WithLabelValues("delivered").Inc()
	return nil
}

func (w *Webhook) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.opts.URL, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.opts.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DeliveryError{StatusCode: resp.StatusCode}
	}
	return nil
}

// Close stops accepting notifications, then waits for queued ones to finish
// or ctx to end, whichever comes first.
func (w *Webhook) Close(ctx context.Context) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		w.stopOnce.Do(func() { close(w.stop) })
		<-done
	}
}
