// Package pipe routes inbound conversational events between the two sides of
// a live handoff.
//
// For every event the middleware decides whether the thread belongs to an
// active handoff. The routing cache answers first; a miss is confirmed
// against the store. Either way the handoff is read from the store before it
// forwards the message to the other side: user messages go to
// the operator thread once assigned (or become a live preview while pending),
// operator messages go to the user thread enriched with the operator's display
// attributes. A consumed event must not also be handled by the automation
// runtime.
package pipe

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-handoff-backend/internal/domain"
	"github.com/tbourn/go-handoff-backend/internal/notify"
	"github.com/tbourn/go-handoff-backend/internal/repo"
	"github.com/tbourn/go-handoff-backend/internal/routing"
	"github.com/tbourn/go-handoff-backend/internal/services"
)

// ErrCacheNotWarm is returned while the routing cache has not been warmed.
var ErrCacheNotWarm = routing.ErrNotWarm

// Side identifies which participant sent an event.
type Side string

const (
	SideNone  Side = ""
	SideUser  Side = "user"
	SideAgent Side = "agent"
)

// Exit bookkeeping.
const (
	ExitReasonKey     = "exitReason"
	ExitReasonHandoff = "handoff"
)

var exitTypes = map[string]bool{"session_reset": true, "exit": true}

// Result reports what the middleware did with an event.
type Result struct {
	// Consumed is true when the event was piped and must not reach the
	// automation runtime.
	Consumed bool `json:"consumed"`
	// Direction is the side the event came from; empty when not piped.
	Direction Side `json:"direction,omitempty"`
	// HandoffID is set when the thread belongs to an active handoff.
	HandoffID string `json:"handoffId,omitempty"`
}

// Preview is the partial projection of a user message published while a
// handoff is pending.
type Preview struct {
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	ThreadID  string    `json:"threadId"`
	CreatedOn time.Time `json:"createdOn"`
}

// Agents is what the middleware needs from the operator service.
type Agents interface {
	Extend(ctx context.Context, botID, agentID string) error
	DisplayName(ctx context.Context, botID, agentID string) (name, avatar string)
	MessagingUser(ctx context.Context, botID, agentID string) (string, error)
}

// Options configures a Middleware.
type Options struct {
	// MetadataChannels lists the user channels that render operator metadata.
	// Defaults to "web".
	MetadataChannels []string
	Logger           zerolog.Logger
}

// Middleware pipes events of active handoffs.
type Middleware struct {
	DB        *gorm.DB
	Cache     *routing.Cache
	Agents    Agents
	Messenger services.Messenger
	Notifier  notify.Notifier

	metadata map[string]bool
	queue    *threadQueue
	log      zerolog.Logger
}

// New returns a Middleware. Notifier defaults to a no-op.
func New(db *gorm.DB, cache *routing.Cache, agents Agents, messenger services.Messenger, opts Options) *Middleware {
	channels := opts.MetadataChannels
	if len(channels) == 0 {
		channels = []string{"web"}
	}
	md := make(map[string]bool, len(channels))
	for _, c := range channels {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			md[c] = true
		}
	}
	return &Middleware{
		DB:        db,
		Cache:     cache,
		Agents:    agents,
		Messenger: messenger,
		Notifier:  notify.NopNotifier{},
		metadata:  md,
		queue:     newThreadQueue(),
		log:       opts.Logger.With().Str("component", "pipe").Logger(),
	}
}

// Ready reports whether the routing cache has been warmed. Handle fails with
// ErrCacheNotWarm until it is.
func (m *Middleware) Ready() bool { return m.Cache.Warmed() }

// Handle runs one inbound event through the middleware. Events of the same
// thread are processed one at a time in arrival order. Bookkeeping may add
// fields to ev.Payload.
func (m *Middleware) Handle(ctx context.Context, ev *domain.Event) (res Result, err error) {
	ctx, span := otel.Tracer("pipe/Middleware").Start(ctx, "Handle", trace.WithAttributes(
		attribute.String("bot.id", ev.BotID),
		attribute.String("thread.id", ev.ThreadID),
		attribute.String("event.type", ev.Type),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.Bool("consumed", res.Consumed), attribute.String("side", string(res.Direction)))
		span.End()
	}()

	if !m.Cache.Warmed() {
		pipedEvents.WithLabelValues("none", "not_warm").Inc()
		return Result{}, ErrCacheNotWarm
	}
	if ev.Direction != "" && ev.Direction != domain.DirectionIncoming {
		return Result{}, nil
	}

	release, err := m.queue.Acquire(ctx, ev.BotID+"|"+ev.ThreadID)
	if err != nil {
		return Result{}, err
	}
	defer release()

	k, isMessage := lookupKind(ev.Type)
	if !isMessage {
		return m.bookkeep(ctx, ev)
	}

	h, side, err := m.resolve(ctx, ev)
	if err != nil || h == nil {
		if err == nil {
			pipedEvents.WithLabelValues("none", "passthrough").Inc()
		}
		return Result{}, err
	}
	res = Result{Consumed: true, Direction: side, HandoffID: h.ID}

	switch {
	case side == SideUser && h.Status == domain.StatusAssigned:
		err = m.toAgent(ctx, h, ev)
	case side == SideUser:
		m.preview(ctx, h, ev, k)
	default:
		err = m.toUser(ctx, h, ev)
	}
	outcome := "piped"
	if side == SideUser && h.Status == domain.StatusPending {
		outcome = "preview"
	}
	if err != nil {
		outcome = "error"
	}
	pipedEvents.WithLabelValues(string(side), outcome).Inc()
	return res, err
}

// resolve finds the active handoff owning the event's thread and the side the
// event came from. A nil handoff means the event is not piped.
//
// The cache only short-cuts the lookup. A cached id is always re-read from the
// store; stale entries are dropped. A miss (expired, evicted, or never
// replicated) falls back to the store, and a store hit refills the cache.
func (m *Middleware) resolve(ctx context.Context, ev *domain.Event) (*domain.Handoff, Side, error) {
	if id, ok := m.Cache.Lookup(ev.BotID, ev.ThreadID); ok {
		h, err := repo.GetHandoff(ctx, m.DB, id)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return nil, SideNone, err
		}
		if err == nil && h.Status.IsActive() && h.BotID == ev.BotID {
			if side := sideOf(h, ev.ThreadID); side != SideNone {
				return h, side, nil
			}
		}
		m.log.Debug().Str("handoff_id", id).Str("thread_id", ev.ThreadID).Msg("dropping stale routing entry")
		m.Cache.Invalidate(ctx, ev.BotID, ev.ThreadID)
	}

	h, err := repo.FindActiveHandoffByThread(ctx, m.DB, ev.BotID, ev.ThreadID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, SideNone, nil
	}
	if err != nil {
		return nil, SideNone, err
	}
	side := sideOf(h, ev.ThreadID)
	if side == SideNone {
		return nil, SideNone, nil
	}
	m.Cache.Insert(ctx, ev.BotID, ev.ThreadID, h.ID)
	return h, side, nil
}

func sideOf(h *domain.Handoff, threadID string) Side {
	switch {
	case threadID == h.UserThreadID:
		return SideUser
	case h.AgentThreadID != nil && threadID == *h.AgentThreadID:
		return SideAgent
	}
	return SideNone
}

// toAgent forwards a user message, payload unchanged, to the operator thread.
func (m *Middleware) toAgent(ctx context.Context, h *domain.Handoff, ev *domain.Event) error {
	var target string
	if h.AgentID != nil {
		uid, err := m.Agents.MessagingUser(ctx, h.BotID, *h.AgentID)
		if err != nil {
			m.log.Warn().Err(err).Str("handoff_id", h.ID).Msg("resolve operator messaging user")
		}
		target = uid
	}
	return m.Messenger.Send(ctx, services.OutgoingEvent{
		BotID:    h.BotID,
		ThreadID: *h.AgentThreadID,
		Channel:  "web",
		Target:   target,
		Type:     ev.Type,
		Payload:  ev.Payload.Clone(),
	})
}

// toUser forwards an operator message to the user thread and extends the
// operator's session.
func (m *Middleware) toUser(ctx context.Context, h *domain.Handoff, ev *domain.Event) error {
	payload := ev.Payload.Clone()
	if h.AgentID != nil && m.metadata[strings.ToLower(h.UserChannel)] {
		name, avatar := m.Agents.DisplayName(ctx, h.BotID, *h.AgentID)
		md := map[string]any{}
		if existing, ok := payload["metadata"].(map[string]any); ok {
			for k, v := range existing {
				md[k] = v
			}
		}
		md["agentName"] = name
		md["agentAvatarUrl"] = avatar
		payload["metadata"] = md
	}

	if err := m.Messenger.Send(ctx, services.OutgoingEvent{
		BotID:    h.BotID,
		ThreadID: h.UserThreadID,
		Channel:  h.UserChannel,
		Target:   h.UserID,
		Type:     ev.Type,
		Payload:  payload,
	}); err != nil {
		return err
	}

	if h.AgentID != nil {
		if err := m.Agents.Extend(ctx, h.BotID, *h.AgentID); err != nil {
			m.log.Warn().Err(err).Str("agent_id", *h.AgentID).Msg("extend agent session")
		}
	}
	return nil
}

// preview publishes a live preview of a user message on a pending handoff.
func (m *Middleware) preview(ctx context.Context, h *domain.Handoff, ev *domain.Event, k kind) {
	created := ev.CreatedOn
	if created.IsZero() {
		created = time.Now().UTC()
	}
	m.Notifier.Notify(ctx, notify.Payload{
		BotID:    h.BotID,
		Resource: notify.ResourceEvent,
		Type:     notify.TypeCreate,
		ID:       h.ID,
		Payload: Preview{
			Type:      ev.Type,
			Text:      k.preview(ev.Payload),
			ThreadID:  ev.ThreadID,
			CreatedOn: created,
		},
	})
}

// bookkeep handles non-message events. Exit events on the user thread of an
// active handoff are tagged so the runtime knows why the session ended.
// Non-message events are never consumed.
func (m *Middleware) bookkeep(ctx context.Context, ev *domain.Event) (Result, error) {
	if !exitTypes[strings.ToLower(ev.Type)] {
		pipedEvents.WithLabelValues("none", "skipped").Inc()
		return Result{}, nil
	}
	h, side, err := m.resolve(ctx, ev)
	if err != nil || h == nil || side != SideUser {
		return Result{}, err
	}
	if ev.Payload == nil {
		ev.Payload = domain.JSONMap{}
	}
	ev.Payload[ExitReasonKey] = ExitReasonHandoff
	ev.Payload["handoffId"] = h.ID
	pipedEvents.WithLabelValues(string(SideUser), "exit").Inc()
	return Result{HandoffID: h.ID}, nil
}
