// Package routing maintains the process-local map from a conversation thread
// to the active handoff that owns it, and keeps that map coherent across
// processes by broadcasting every local mutation on the bus.
//
// The cache is an accelerator only. A miss means "ask the store", never "no
// handoff", and a hit must be re-validated against the store before acting.
package routing

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-handoff-backend/internal/bus"
	"github.com/tbourn/go-handoff-backend/internal/domain"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultSize = 10000
	DefaultTTL  = 24 * time.Hour
)

// ErrNotWarm is returned by callers that require a warmed cache.
var ErrNotWarm = errors.New("routing cache not warm")

// Kind is the type of a cache mutation.
type Kind string

const (
	KindInsert     Kind = "insert"
	KindInvalidate Kind = "invalidate"
)

// Mutation is the wire form of a cache change. It is broadcast on
// bus.TopicCache and applied by every other process.
type Mutation struct {
	Kind      Kind   `json:"kind"`
	BotID     string `json:"botId"`
	ThreadID  string `json:"threadId"`
	HandoffID string `json:"handoffId,omitempty"`
	Origin    string `json:"origin"`
}

// Loader returns the active handoffs used to warm the cache.
type Loader func(ctx context.Context) ([]domain.Handoff, error)

// Options configures a Cache.
type Options struct {
	Size   int
	TTL    time.Duration
	Bus    bus.Bus // nil keeps the cache process-local
	Logger zerolog.Logger
}

// Cache is the routing cache of one process.
type Cache struct {
	lru    *expirable.LRU[string, string]
	bus    bus.Bus
	origin string
	log    zerolog.Logger
	warm   atomic.Bool

	mu    sync.Mutex
	unsub func()
}

// New returns an empty, not yet warmed cache.
func New(opts Options) *Cache {
	size, ttl := opts.Size, opts.TTL
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		lru:    expirable.NewLRU[string, string](size, nil, ttl),
		bus:    opts.Bus,
		origin: uuid.NewString(),
		log:    opts.Logger.With().Str("component", "routing").Logger(),
	}
}

func key(botID, threadID string) string {
	return botID + "|" + threadID
}

// Origin identifies this process in broadcast mutations.
func (c *Cache) Origin() string { return c.origin }

// Lookup returns the handoff id cached for a thread.
func (c *Cache) Lookup(botID, threadID string) (string, bool) {
	id, ok := c.lru.Get(key(botID, threadID))
	if ok {
		cacheLookups.WithLabelValues("hit").Inc()
	} else {
		cacheLookups.WithLabelValues("miss").Inc()
	}
	return id, ok
}

// Insert maps a thread to a handoff locally, then broadcasts the change.
func (c *Cache) Insert(ctx context.Context, botID, threadID, handoffID string) {
	if threadID == "" {
		return
	}
	c.mutate(ctx, Mutation{Kind: KindInsert, BotID: botID, ThreadID: threadID, HandoffID: handoffID, Origin: c.origin})
}

// Invalidate removes a thread's entry locally, then broadcasts the change.
func (c *Cache) Invalidate(ctx context.Context, botID, threadID string) {
	if threadID == "" {
		return
	}
	c.mutate(ctx, Mutation{Kind: KindInvalidate, BotID: botID, ThreadID: threadID, Origin: c.origin})
}

// InvalidateHandoff removes every thread key of h.
func (c *Cache) InvalidateHandoff(ctx context.Context, h *domain.Handoff) {
	for _, th := range h.ThreadIDs() {
		c.Invalidate(ctx, h.BotID, th)
	}
}

func (c *Cache) mutate(ctx context.Context, m Mutation) {
	c.apply(m, "local")
	if c.bus == nil {
		return
	}
	body, err := json.Marshal(m)
	if err != nil {
		c.log.Error().Err(err).Msg("encode cache mutation")
		return
	}
	// The local write stands even when the broadcast fails.
	if err := c.bus.Publish(ctx, bus.TopicCache, body); err != nil {
		c.log.Warn().Err(err).
			Str("kind", string(m.Kind)).
			Str("bot_id", m.BotID).
			Str("thread_id", m.ThreadID).
			Msg("cache mutation broadcast failed")
	}
}

func (c *Cache) apply(m Mutation, origin string) {
	k := key(m.BotID, m.ThreadID)
	switch m.Kind {
	case KindInsert:
		c.lru.Add(k, m.HandoffID)
	case KindInvalidate:
		c.lru.Remove(k)
	default:
		c.log.Warn().Str("kind", string(m.Kind)).Msg("unknown cache mutation")
		return
	}
	cacheMutations.WithLabelValues(string(m.Kind), origin).Inc()
	cacheEntries.Set(float64(c.lru.Len()))
}

// Start subscribes to mutations broadcast by other processes. Messages from
// this process are ignored.
func (c *Cache) Start(ctx context.Context) error {
	if c.bus == nil {
		return nil
	}
	unsub, err := c.bus.Subscribe(ctx, bus.TopicCache, c.receive)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.unsub = unsub
	c.mu.Unlock()
	return nil
}

func (c *Cache) receive(body []byte) {
	var m Mutation
	if err := json.Unmarshal(body, &m); err != nil {
		c.log.Warn().Err(err).Msg("discarding malformed cache mutation")
		return
	}
	if m.Origin == c.origin || strings.TrimSpace(m.ThreadID) == "" {
		return
	}
	c.apply(m, "remote")
}

// Warm populates the cache with the user and operator threads of every
// active handoff. The cache only reports Warmed after a successful run.
func (c *Cache) Warm(ctx context.Context, load Loader) error {
	started := time.Now()
	hs, err := load(ctx)
	if err != nil {
		return err
	}
	for i := range hs {
		h := &hs[i]
		if !h.Status.IsActive() {
			continue
		}
		for _, th := range h.ThreadIDs() {
			c.apply(Mutation{Kind: KindInsert, BotID: h.BotID, ThreadID: th, HandoffID: h.ID}, "warmup")
		}
	}
	c.warm.Store(true)
	c.log.Info().
		Int("handoffs", len(hs)).
		Int("entries", c.lru.Len()).
		Dur("took", time.Since(started)).
		Msg("routing cache warmed")
	return nil
}

// MarkWarm flags the cache usable without a warm-up run.
func (c *Cache) MarkWarm() { c.warm.Store(true) }

// Warmed reports whether Warm completed (or MarkWarm was called).
func (c *Cache) Warmed() bool { return c.warm.Load() }

// Len returns the number of live entries.
func (c *Cache) Len() int { return c.lru.Len() }

// Close stops listening for remote mutations.
func (c *Cache) Close() {
	c.mu.Lock()
	unsub := c.unsub
	c.unsub = nil
	c.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}
