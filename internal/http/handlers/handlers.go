// Package handlers exposes the handoff coordination API over HTTP.
//
// Handlers are transport-thin: they bind and check input, call the lifecycle
// and operator services, and translate results into HTTP responses. All
// routes are scoped by the :botId path parameter; the operator identity comes
// from middleware.AgentID.
package handlers

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-handoff-backend/internal/domain"
	"github.com/tbourn/go-handoff-backend/internal/notify"
	"github.com/tbourn/go-handoff-backend/internal/pipe"
	"github.com/tbourn/go-handoff-backend/internal/repo"
	"github.com/tbourn/go-handoff-backend/internal/services"
)

// HandoffService is the lifecycle manager consumed by the handlers.
type HandoffService interface {
	List(ctx context.Context, botID string, cond repo.ListConditions) ([]domain.Handoff, error)
	Get(ctx context.Context, botID, id string) (*domain.Handoff, error)
	Create(ctx context.Context, in services.CreateHandoffInput) (*domain.Handoff, bool, error)
	Assign(ctx context.Context, botID, id, agentID string) (*domain.Handoff, error)
	Resolve(ctx context.Context, botID, id, agentID string) (*domain.Handoff, error)
	Reject(ctx context.Context, botID, id, agentID string) (*domain.Handoff, error)
	UpdateTags(ctx context.Context, botID, id string, tags []string) (*domain.Handoff, error)
	AddComment(ctx context.Context, botID, id, agentID, content string) (*domain.Comment, error)
	Messages(ctx context.Context, botID, threadID string, cond repo.ListConditions) ([]domain.Event, error)
}

// AgentService is the operator service consumed by the handlers.
type AgentService interface {
	List(ctx context.Context, botID string) ([]services.AgentView, error)
	Me(ctx context.Context, botID, agentID string) (*services.AgentView, error)
	UpdateProfile(ctx context.Context, botID, agentID string, p services.AgentProfile) (*services.AgentView, error)
	SetOnline(ctx context.Context, botID, agentID string, online bool) error
}

// Pipe runs inbound events through the piping middleware.
type Pipe interface {
	// Ready reports whether events can be routed yet.
	Ready() bool
	Handle(ctx context.Context, ev *domain.Event) (pipe.Result, error)
}

// Runtime handles events the pipe did not consume.
type Runtime interface {
	Handle(ctx context.Context, ev *domain.Event) error
}

// Realtime hands out per-bot notification streams.
type Realtime interface {
	Subscribe(botID string) *notify.Subscriber
	Unsubscribe(s *notify.Subscriber)
}

// ClientConfig is the client-visible module configuration.
type ClientConfig struct {
	AgentSessionTimeoutSeconds int      `json:"agentSessionTimeoutSeconds" example:"600"`
	PendingTimeoutSeconds      int      `json:"pendingTimeoutSeconds"      example:"0"`
	ReplayEventCount           int      `json:"replayEventCount"           example:"10"`
	MetadataChannels           []string `json:"metadataChannels"`
}

// Deps wires the handlers. DB backs the ETag stats, the event log and the
// idempotency records.
type Deps struct {
	DB             *gorm.DB
	Handoffs       HandoffService
	Agents         AgentService
	Pipe           Pipe
	Runtime        Runtime
	Realtime       Realtime
	Config         ClientConfig
	IdempotencyTTL time.Duration
}

// Handlers groups the HTTP endpoints of the handoff API.
type Handlers struct {
	db       *gorm.DB
	handoffs HandoffService
	agents   AgentService
	pipe     Pipe
	runtime  Runtime
	realtime Realtime
	cfg      ClientConfig
	idemTTL  time.Duration
}

// New constructs the handlers.
func New(d Deps) *Handlers {
	ttl := d.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Handlers{
		db:       d.DB,
		handoffs: d.Handoffs,
		agents:   d.Agents,
		pipe:     d.Pipe,
		runtime:  d.Runtime,
		realtime: d.Realtime,
		cfg:      d.Config,
		idemTTL:  ttl,
	}
}
