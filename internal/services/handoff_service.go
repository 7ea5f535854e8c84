// Package services – HandoffService
//
// HandoffService is the lifecycle manager of handoffs. It owns the status
// state machine: every transition is checked against domain.CanTransition
// and applied with a single compare-and-set update in the store, so two
// concurrent actors can never both move the same handoff. Around each
// transition it keeps the routing cache in step, schedules or cancels the
// pending timeout, messages the end user, and emits notifications.
//
// Observability: all public methods are OpenTelemetry-instrumented.
package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
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
)

// Resume reasons passed to the runtime.
const (
	ResumeResolved = "handoff_resolved"
	ResumeRejected = "handoff_rejected"
	ResumeExpired  = "handoff_expired"
)

// DefaultReplayCount is the number of user events copied to a new operator thread.
const DefaultReplayCount = 10

// HandoffConfig holds behavior switches of the lifecycle manager.
type HandoffConfig struct {
	// TransferMessage is sent to the user when a handoff is created; empty disables it.
	TransferMessage string
	// AssignMessage is sent to the user on assignment; "{{agentName}}" is replaced.
	AssignMessage string
	// ReplayCount is how many recent user events are copied into a new operator thread.
	ReplayCount int
	// PendingTimeout applies when a create request carries no timeout; zero disables it.
	PendingTimeout time.Duration
}

// CreateHandoffInput is the body of a create request.
type CreateHandoffInput struct {
	BotID          string `json:"botId"          validate:"required,max=64"`
	UserID         string `json:"userId"         validate:"required,max=128"`
	UserThreadID   string `json:"userThreadId"   validate:"required,max=128"`
	UserChannel    string `json:"userChannel"    validate:"required,max=64"`
	TimeoutSeconds int    `json:"timeoutSeconds" validate:"gte=0"`
}

type actorInput struct {
	BotID     string `json:"botId"     validate:"required"`
	HandoffID string `json:"id"        validate:"required"`
	AgentID   string `json:"agentId"   validate:"required,max=255"`
}

type tagsInput struct {
	Tags []string `json:"tags" validate:"max=50,dive,max=64"`
}

type commentInput struct {
	AgentID string `json:"agentId" validate:"required,max=255"`
	Content string `json:"content" validate:"required,max=4096"`
}

// HandoffService provides the handoff lifecycle operations.
type HandoffService struct {
	DB        *gorm.DB
	Cache     *routing.Cache
	Agents    *AgentService
	Messenger Messenger
	Runtime   Runtime
	Notifier  notify.Notifier
	Config    HandoffConfig
	Log       zerolog.Logger

	timersOnce sync.Once
	timers     *timeoutScheduler

	// assignMu serializes assignment per handoff within the process.
	assignMu [32]sync.Mutex
}

// NewHandoffService constructs a HandoffService. Messenger defaults to the
// event log, Runtime to LogRuntime and Notifier to a no-op.
func NewHandoffService(db *gorm.DB, cache *routing.Cache, agents *AgentService, cfg HandoffConfig, log zerolog.Logger) *HandoffService {
	if cfg.ReplayCount < 0 {
		cfg.ReplayCount = 0
	}
	lg := log.With().Str("component", "handoffs").Logger()
	return &HandoffService{
		DB:        db,
		Cache:     cache,
		Agents:    agents,
		Messenger: NewStoreMessenger(db),
		Runtime:   LogRuntime{Log: lg},
		Notifier:  notify.NopNotifier{},
		Config:    cfg,
		Log:       lg,
	}
}

func (s *HandoffService) scheduler() *timeoutScheduler {
	s.timersOnce.Do(func() { s.timers = newTimeoutScheduler() })
	return s.timers
}

func (s *HandoffService) assignLock(id string) *sync.Mutex {
	f := fnv.New32a()
	_, _ = f.Write([]byte(id))
	return &s.assignMu[f.Sum32()%uint32(len(s.assignMu))]
}

func tracer() trace.Tracer { return otel.Tracer("services/HandoffService") }

// List returns the handoffs of a bot.
func (s *HandoffService) List(ctx context.Context, botID string, cond repo.ListConditions) ([]domain.Handoff, error) {
	ctx, span := tracer().Start(ctx, "List", trace.WithAttributes(attribute.String("bot.id", botID)))
	defer span.End()
	return repo.ListHandoffs(ctx, s.DB, botID, cond)
}

// Get returns one handoff with its comments and conversation preview.
func (s *HandoffService) Get(ctx context.Context, botID, id string) (*domain.Handoff, error) {
	ctx, span := tracer().Start(ctx, "Get", trace.WithAttributes(
		attribute.String("bot.id", botID),
		attribute.String("handoff.id", id),
	))
	defer span.End()
	return s.find(ctx, botID, id)
}

// Messages returns the event history of a thread.
func (s *HandoffService) Messages(ctx context.Context, botID, threadID string, cond repo.ListConditions) ([]domain.Event, error) {
	ctx, span := tracer().Start(ctx, "Messages", trace.WithAttributes(
		attribute.String("bot.id", botID),
		attribute.String("thread.id", threadID),
	))
	defer span.End()
	if strings.TrimSpace(threadID) == "" {
		return nil, &ValidationError{Problems: []string{`"threadId" is required`}}
	}
	return repo.ListEvents(ctx, s.DB, botID, threadID, cond)
}

func (s *HandoffService) find(ctx context.Context, botID, id string) (*domain.Handoff, error) {
	h, err := repo.FindHandoff(ctx, s.DB, botID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, &NotFoundError{Resource: "handoff", ID: id}
	}
	return h, err
}

// Create opens a pending handoff for a user conversation. When one is
// already active for the same (bot, thread, channel) it is returned unchanged
// and created is false.
func (s *HandoffService) Create(ctx context.Context, in CreateHandoffInput) (h *domain.Handoff, created bool, err error) {
	ctx, span := tracer().Start(ctx, "Create", trace.WithAttributes(
		attribute.String("bot.id", in.BotID),
		attribute.String("thread.id", in.UserThreadID),
		attribute.String("channel", in.UserChannel),
	))
	defer func() { endSpan(span, err) }()

	in.BotID = strings.TrimSpace(in.BotID)
	in.UserID = strings.TrimSpace(in.UserID)
	in.UserThreadID = strings.TrimSpace(in.UserThreadID)
	in.UserChannel = strings.TrimSpace(in.UserChannel)
	if err := validateStruct(in); err != nil {
		return nil, false, err
	}

	if existing, err := repo.FindActiveHandoff(ctx, s.DB, in.BotID, in.UserThreadID, in.UserChannel); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, false, err
	}

	timeout := time.Duration(in.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = s.Config.PendingTimeout
	}

	h = &domain.Handoff{
		BotID:        in.BotID,
		UserID:       in.UserID,
		UserThreadID: in.UserThreadID,
		UserChannel:  in.UserChannel,
	}
	if timeout > 0 {
		at := time.Now().UTC().Add(timeout)
		h.ExpiresAt = &at
	}
	if err := repo.CreateHandoff(ctx, s.DB, h); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			// Lost a concurrent create; the winner's row is the answer.
			existing, ferr := repo.FindActiveHandoff(ctx, s.DB, in.BotID, in.UserThreadID, in.UserChannel)
			if ferr == nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}

	s.Cache.Insert(ctx, h.BotID, h.UserThreadID, h.ID)
	s.notify(ctx, notify.TypeCreate, h)

	if s.Config.TransferMessage != "" {
		s.sendText(ctx, h, s.Config.TransferMessage)
	}
	if timeout > 0 {
		s.scheduleExpiry(h.ID, timeout)
	}

	s.Log.Info().Str("bot_id", h.BotID).Str("handoff_id", h.ID).Str("thread_id", h.UserThreadID).Msg("handoff created")
	return h, true, nil
}

// Assign gives a pending handoff to an online operator and opens the
// operator-side thread.
func (s *HandoffService) Assign(ctx context.Context, botID, id, agentID string) (h *domain.Handoff, err error) {
	ctx, span := tracer().Start(ctx, "Assign", trace.WithAttributes(
		attribute.String("bot.id", botID),
		attribute.String("handoff.id", id),
		attribute.String("agent.id", agentID),
	))
	defer func() { endSpan(span, err) }()

	if err := validateStruct(actorInput{BotID: botID, HandoffID: id, AgentID: agentID}); err != nil {
		return nil, err
	}

	online, err := s.Agents.IsOnline(ctx, botID, agentID)
	if err != nil {
		return nil, err
	}
	if !online {
		return nil, &PreconditionError{Reason: ReasonAgentOffline}
	}

	userID, agentThreadID, err := s.claim(ctx, botID, id, agentID)
	if err != nil {
		return nil, err
	}
	s.scheduler().Cancel(id)

	if h, err = s.find(ctx, botID, id); err != nil {
		return nil, err
	}
	s.Cache.Insert(ctx, botID, agentThreadID, h.ID)

	if err := s.Agents.Extend(ctx, botID, agentID); err != nil {
		s.Log.Warn().Err(err).Str("agent_id", agentID).Msg("extend agent session")
	}

	name, _ := s.Agents.DisplayName(ctx, botID, agentID)
	if s.Config.AssignMessage != "" {
		text := strings.ReplaceAll(s.Config.AssignMessage, "{{agentName}}", name)
		s.sendMessage(ctx, h, OutgoingEvent{
			Type:    "text",
			Payload: domain.JSONMap{"type": "text", "text": text, "agentName": name},
		})
	}
	s.replayHistory(ctx, h, userID)

	s.notify(ctx, notify.TypeUpdate, h)
	s.Log.Info().Str("bot_id", botID).Str("handoff_id", h.ID).Str("agent_id", agentID).Msg("handoff assigned")
	return h, nil
}

// claim moves a pending handoff to assigned and returns the operator's
// messaging user and the new operator thread.
//
// agent_id and agent_thread_id are written by the same update, so the thread
// is opened before the compare-and-set. Local callers queue on assignLock and
// fail the status check without opening a thread; a thread opened by a caller
// that still loses the update (another replica won) is logged and dropped.
func (s *HandoffService) claim(ctx context.Context, botID, id, agentID string) (userID, agentThreadID string, err error) {
	mu := s.assignLock(id)
	mu.Lock()
	defer mu.Unlock()

	h, err := s.find(ctx, botID, id)
	if err != nil {
		return "", "", err
	}
	if !domain.CanTransition(h.Status, domain.StatusAssigned) {
		return "", "", &TransitionError{From: h.Status, To: domain.StatusAssigned}
	}

	userID, err = s.Agents.MessagingUser(ctx, botID, agentID)
	if err != nil {
		return "", "", err
	}
	agentThreadID, err = s.Messenger.CreateThread(ctx, botID, userID)
	if err != nil {
		return "", "", err
	}

	if err := s.transition(ctx, h, domain.StatusAssigned, map[string]any{
		"agent_id":        agentID,
		"agent_thread_id": agentThreadID,
		"assigned_at":     time.Now().UTC(),
	}); err != nil {
		s.Log.Info().Err(err).
			Str("bot_id", botID).
			Str("handoff_id", id).
			Str("agent_thread_id", agentThreadID).
			Msg("operator thread discarded")
		return "", "", err
	}
	return userID, agentThreadID, nil
}

// Resolve closes an assigned handoff and returns the conversation to the
// automation runtime. agentID, when set, has their session extended.
func (s *HandoffService) Resolve(ctx context.Context, botID, id, agentID string) (*domain.Handoff, error) {
	return s.terminate(ctx, "Resolve", botID, id, agentID, domain.StatusResolved, ResumeResolved)
}

// Reject closes a pending or assigned handoff without resolution.
func (s *HandoffService) Reject(ctx context.Context, botID, id, agentID string) (*domain.Handoff, error) {
	return s.terminate(ctx, "Reject", botID, id, agentID, domain.StatusRejected, ResumeRejected)
}

func (s *HandoffService) terminate(ctx context.Context, op, botID, id, agentID string, to domain.HandoffStatus, reason string) (h *domain.Handoff, err error) {
	ctx, span := tracer().Start(ctx, op, trace.WithAttributes(
		attribute.String("bot.id", botID),
		attribute.String("handoff.id", id),
		attribute.String("agent.id", agentID),
	))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(botID) == "" || strings.TrimSpace(id) == "" {
		return nil, &ValidationError{Problems: []string{`"botId" and "id" are required`}}
	}

	h, err = s.find(ctx, botID, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(h.Status, to) {
		return nil, &TransitionError{From: h.Status, To: to}
	}
	if err := s.transition(ctx, h, to, map[string]any{"resolved_at": time.Now().UTC()}); err != nil {
		return nil, err
	}
	s.finish(ctx, h, reason)

	if h, err = s.find(ctx, botID, id); err != nil {
		return nil, err
	}
	if agentID != "" {
		if err := s.Agents.Extend(ctx, botID, agentID); err != nil {
			s.Log.Warn().Err(err).Str("agent_id", agentID).Msg("extend agent session")
		}
	}
	s.notify(ctx, notify.TypeUpdate, h)
	s.Log.Info().Str("bot_id", botID).Str("handoff_id", h.ID).Str("status", string(to)).Msg("handoff closed")
	return h, nil
}

// Expire moves a still-pending handoff to expired. It is the timeout task and
// is a no-op when the handoff already left pending.
func (s *HandoffService) Expire(ctx context.Context, id string) (err error) {
	ctx, span := tracer().Start(ctx, "Expire", trace.WithAttributes(attribute.String("handoff.id", id)))
	defer func() { endSpan(span, err) }()

	h, err := repo.GetHandoff(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		return err
	}
	if h.Status != domain.StatusPending {
		return nil
	}
	err = s.transition(ctx, h, domain.StatusExpired, map[string]any{"resolved_at": time.Now().UTC()})
	if errors.Is(err, ErrTransition) {
		return nil
	}
	if err != nil {
		return err
	}
	s.finish(ctx, h, ResumeExpired)

	if fresh, err := s.find(ctx, h.BotID, h.ID); err == nil {
		h = fresh
	}
	s.notify(ctx, notify.TypeUpdate, h)
	s.Log.Info().Str("bot_id", h.BotID).Str("handoff_id", h.ID).Msg("handoff expired")
	return nil
}

// UpdateTags replaces the tags of a handoff. Allowed in any status.
func (s *HandoffService) UpdateTags(ctx context.Context, botID, id string, tags []string) (h *domain.Handoff, err error) {
	ctx, span := tracer().Start(ctx, "UpdateTags", trace.WithAttributes(
		attribute.String("bot.id", botID),
		attribute.String("handoff.id", id),
		attribute.Int("tags", len(tags)),
	))
	defer func() { endSpan(span, err) }()

	if err := validateStruct(tagsInput{Tags: tags}); err != nil {
		return nil, err
	}
	norm := domain.Tags(tags).Normalize()
	if err := repo.UpdateHandoffTags(ctx, s.DB, botID, id, norm); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, &NotFoundError{Resource: "handoff", ID: id}
		}
		return nil, err
	}
	if h, err = s.find(ctx, botID, id); err != nil {
		return nil, err
	}
	s.notify(ctx, notify.TypeUpdate, h)
	return h, nil
}

// AddComment appends an operator comment to a handoff.
func (s *HandoffService) AddComment(ctx context.Context, botID, id, agentID, content string) (c *domain.Comment, err error) {
	ctx, span := tracer().Start(ctx, "AddComment", trace.WithAttributes(
		attribute.String("bot.id", botID),
		attribute.String("handoff.id", id),
		attribute.String("agent.id", agentID),
	))
	defer func() { endSpan(span, err) }()

	content = strings.TrimSpace(content)
	if err := validateStruct(commentInput{AgentID: agentID, Content: content}); err != nil {
		return nil, err
	}
	h, err := s.find(ctx, botID, id)
	if err != nil {
		return nil, err
	}
	c, err = repo.CreateComment(ctx, s.DB, h.ID, h.UserThreadID, agentID, content)
	if err != nil {
		return nil, err
	}
	h.Comments = append(h.Comments, *c)

	s.notify(ctx, notify.TypeUpdate, h)
	if err := s.Agents.Extend(ctx, botID, agentID); err != nil {
		s.Log.Warn().Err(err).Str("agent_id", agentID).Msg("extend agent session")
	}
	return c, nil
}

// RecoverTimeouts re-arms the timeout of every pending handoff that has a
// deadline, expiring the overdue ones. Called once at startup.
func (s *HandoffService) RecoverTimeouts(ctx context.Context, active []domain.Handoff) {
	now := time.Now().UTC()
	for _, h := range active {
		if h.Status != domain.StatusPending || h.ExpiresAt == nil {
			continue
		}
		d := h.ExpiresAt.Sub(now)
		if d < 0 {
			d = 0
		}
		s.scheduleExpiry(h.ID, d)
	}
}

// PendingTimeouts returns the number of armed timeout tasks.
func (s *HandoffService) PendingTimeouts() int { return s.scheduler().Len() }

// Close cancels every timeout task.
func (s *HandoffService) Close() { s.scheduler().Stop() }

// transition applies from → to with a compare-and-set. Losing the race is a
// TransitionError naming the status actually found.
func (s *HandoffService) transition(ctx context.Context, h *domain.Handoff, to domain.HandoffStatus, fields map[string]any) error {
	err := repo.TransitionHandoff(ctx, s.DB, h.ID, h.Status, to, fields)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return &NotFoundError{Resource: "handoff", ID: h.ID}
	case errors.Is(err, repo.ErrStaleStatus):
		from := h.Status
		if cur, gerr := repo.GetHandoff(ctx, s.DB, h.ID); gerr == nil {
			from = cur.Status
		}
		return &TransitionError{From: from, To: to}
	default:
		return err
	}
}

// finish runs the side effects shared by every terminal transition.
func (s *HandoffService) finish(ctx context.Context, h *domain.Handoff, reason string) {
	s.scheduler().Cancel(h.ID)
	s.Cache.InvalidateHandoff(ctx, h)
	if err := s.Runtime.Resume(ctx, h.BotID, h.UserThreadID, reason); err != nil {
		s.Log.Error().Err(err).Str("handoff_id", h.ID).Msg("resume conversation")
	}
}

func (s *HandoffService) scheduleExpiry(id string, d time.Duration) {
	s.scheduler().Schedule(id, d, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Expire(ctx, id); err != nil {
			s.Log.Error().Err(err).Str("handoff_id", id).Msg("expire handoff")
		}
	})
}

func (s *HandoffService) notify(ctx context.Context, typ string, h *domain.Handoff) {
	s.Notifier.Notify(ctx, notify.Payload{
		BotID:    h.BotID,
		Resource: notify.ResourceHandoff,
		Type:     typ,
		ID:       h.ID,
		Payload:  h,
	})
}

// sendText sends a plain text message to the end user.
func (s *HandoffService) sendText(ctx context.Context, h *domain.Handoff, text string) {
	s.sendMessage(ctx, h, OutgoingEvent{Type: "text", Payload: domain.JSONMap{"type": "text", "text": text}})
}

// sendMessage delivers ev on the user's thread. Failures are logged only.
func (s *HandoffService) sendMessage(ctx context.Context, h *domain.Handoff, ev OutgoingEvent) {
	ev.BotID, ev.ThreadID, ev.Channel, ev.Target = h.BotID, h.UserThreadID, h.UserChannel, h.UserID
	if err := s.Messenger.Send(ctx, ev); err != nil {
		s.Log.Warn().Err(err).Str("handoff_id", h.ID).Str("type", ev.Type).Msg("message to user failed")
	}
}

// replayHistory copies the latest user-side events into the operator thread
// and closes with a marker event the operator client renders. Best effort.
func (s *HandoffService) replayHistory(ctx context.Context, h *domain.Handoff, agentUserID string) {
	if h.AgentThreadID == nil {
		return
	}
	base := OutgoingEvent{BotID: h.BotID, ThreadID: *h.AgentThreadID, Channel: "web", Target: agentUserID}

	if s.Config.ReplayCount > 0 {
		events, err := repo.RecentEvents(ctx, s.DB, h.BotID, h.UserThreadID, s.Config.ReplayCount)
		if err != nil {
			s.Log.Warn().Err(err).Str("handoff_id", h.ID).Msg("load history for replay")
		}
		for _, e := range events {
			ev := base
			ev.Type, ev.Payload = e.Type, e.Payload.Clone()
			if err := s.Messenger.Send(ctx, ev); err != nil {
				s.Log.Warn().Err(err).Str("handoff_id", h.ID).Msg("replay event")
				return
			}
		}
	}

	marker := base
	marker.Type = "custom"
	marker.Payload = domain.JSONMap{
		"type":      "custom",
		"module":    "handoff",
		"component": "HandoffAssignedForAgent",
		"noBubble":  true,
		"wrapped":   map[string]any{"type": "handoff"},
	}
	if err := s.Messenger.Send(ctx, marker); err != nil {
		s.Log.Warn().Err(err).Str("handoff_id", h.ID).Msg("send assignment marker")
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
