// Package presence tracks which operators are currently online. An operator
// is online while a redis key with a TTL exists for them; every qualifying
// action renews it. Redis owns the expiry, so presence is shared by every
// process. A local timer mirrors the TTL to signal expiry to subscribers.
package presence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultTTL is the session length used when none is configured.
const DefaultTTL = 10 * time.Minute

const keyPrefix = "handoff:online"

// ExpiryFunc is invoked when an operator's session lapses without renewal.
type ExpiryFunc func(botID, agentID string)

// Tracker is the redis-backed presence tracker.
type Tracker struct {
	rdb redis.UniversalClient
	ttl time.Duration
	log zerolog.Logger

	mu       sync.Mutex
	timers   map[string]session
	gen      uint64
	onExpire ExpiryFunc
	closed   bool
}

// session is a local expiry timer; gen tells a stale firing from a live one.
type session struct {
	timer *time.Timer
	gen   uint64
}

// NewTracker returns a Tracker with the given session TTL (DefaultTTL when
// ttl <= 0).
func NewTracker(rdb redis.UniversalClient, ttl time.Duration, log zerolog.Logger) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{
		rdb:    rdb,
		ttl:    ttl,
		log:    log.With().Str("component", "presence").Logger(),
		timers: make(map[string]session),
	}
}

// OnExpire registers the expiry callback. Only one callback is kept.
func (t *Tracker) OnExpire(fn ExpiryFunc) {
	t.mu.Lock()
	t.onExpire = fn
	t.mu.Unlock()
}

// TTL returns the configured session length.
func (t *Tracker) TTL() time.Duration { return t.ttl }

// Key returns the redis key of an operator session.
func Key(botID, agentID string) string {
	return strings.Join([]string{keyPrefix, botID, agentID}, ":")
}

// SetOnline marks the operator online, renewing the session when it exists.
func (t *Tracker) SetOnline(ctx context.Context, botID, agentID string) error {
	if err := t.rdb.Set(ctx, Key(botID, agentID), 1, t.ttl).Err(); err != nil {
		return fmt.Errorf("presence: set online: %w", err)
	}
	t.arm(botID, agentID, t.ttl)
	return nil
}

// SetOffline ends the operator's session immediately. No expiry callback fires.
func (t *Tracker) SetOffline(ctx context.Context, botID, agentID string) error {
	t.disarm(botID, agentID)
	if err := t.rdb.Del(ctx, Key(botID, agentID)).Err(); err != nil {
		return fmt.Errorf("presence: set offline: %w", err)
	}
	return nil
}

// IsOnline reports whether the operator has a live session.
func (t *Tracker) IsOnline(ctx context.Context, botID, agentID string) (bool, error) {
	n, err := t.rdb.Exists(ctx, Key(botID, agentID)).Result()
	if err != nil {
		return false, fmt.Errorf("presence: is online: %w", err)
	}
	return n == 1, nil
}

// OnlineMany returns the presence of several operators in one round trip.
func (t *Tracker) OnlineMany(ctx context.Context, botID string, agentIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(agentIDs))
	if len(agentIDs) == 0 {
		return out, nil
	}
	keys := make([]string, len(agentIDs))
	for i, id := range agentIDs {
		keys[i] = Key(botID, id)
	}
	vals, err := t.rdb.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("presence: online many: %w", err)
	}
	for i, id := range agentIDs {
		out[id] = i < len(vals) && vals[i] != nil
	}
	return out, nil
}

// Close stops all pending expiry timers.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for k, s := range t.timers {
		s.timer.Stop()
		delete(t.timers, k)
	}
}

func (t *Tracker) arm(botID, agentID string, d time.Duration) {
	key := Key(botID, agentID)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if s, ok := t.timers[key]; ok {
		s.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timers[key] = session{timer: time.AfterFunc(d, func() { t.fire(botID, agentID, gen) }), gen: gen}
}

func (t *Tracker) disarm(botID, agentID string) {
	key := Key(botID, agentID)
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.timers[key]; ok {
		s.timer.Stop()
		delete(t.timers, key)
	}
}

// fire runs when the local timer lapses. Another process may have renewed
// the session meanwhile, so redis is consulted before reporting expiry.
func (t *Tracker) fire(botID, agentID string, gen uint64) {
	key := Key(botID, agentID)

	t.mu.Lock()
	if s, ok := t.timers[key]; t.closed || !ok || s.gen != gen {
		t.mu.Unlock()
		return
	}
	delete(t.timers, key)
	cb := t.onExpire
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	remaining, err := t.rdb.PTTL(ctx, key).Result()
	if err != nil {
		t.log.Warn().Err(err).Str("bot_id", botID).Str("agent_id", agentID).Msg("presence ttl check failed")
	} else if remaining > 0 {
		t.arm(botID, agentID, remaining)
		return
	}

	t.log.Debug().Str("bot_id", botID).Str("agent_id", agentID).Msg("operator session expired")
	if cb != nil {
		cb(botID, agentID)
	}
}
