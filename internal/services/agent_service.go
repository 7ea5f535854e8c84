// Package services – AgentService
//
// AgentService manages the operator directory and operator presence. It joins
// the persisted directory with the live presence state, extends sessions on
// operator activity, and maps operators to the messaging users that own their
// operator-side threads.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-handoff-backend/internal/domain"
	"github.com/tbourn/go-handoff-backend/internal/notify"
	"github.com/tbourn/go-handoff-backend/internal/repo"
)

// Presence is the contract of the presence tracker.
type Presence interface {
	SetOnline(ctx context.Context, botID, agentID string) error
	SetOffline(ctx context.Context, botID, agentID string) error
	IsOnline(ctx context.Context, botID, agentID string) (bool, error)
	OnlineMany(ctx context.Context, botID string, agentIDs []string) (map[string]bool, error)
}

// AgentView is an operator as exposed to clients.
type AgentView struct {
	domain.Agent
	Online bool `json:"online"`
}

// AgentProfile is the writable part of an operator record.
type AgentProfile struct {
	Firstname  string `json:"firstname"  validate:"max=128"`
	Lastname   string `json:"lastname"   validate:"max=128"`
	PictureURL string `json:"pictureUrl" validate:"omitempty,max=512,url"`
}

const (
	userMapSize = 10000
	userMapTTL  = 5 * time.Minute
)

// AgentService provides operator-level operations.
type AgentService struct {
	DB        *gorm.DB
	Presence  Presence
	Messenger Messenger
	Notifier  notify.Notifier
	Locale    language.Tag
	Log       zerolog.Logger

	users *expirable.LRU[string, string]
}

// NewAgentService constructs an AgentService. Messenger defaults to the event
// log and Notifier to a no-op.
func NewAgentService(db *gorm.DB, presence Presence, log zerolog.Logger) *AgentService {
	return &AgentService{
		DB:        db,
		Presence:  presence,
		Messenger: NewStoreMessenger(db),
		Notifier:  notify.NopNotifier{},
		Locale:    language.Und,
		Log:       log.With().Str("component", "agents").Logger(),
		users:     expirable.NewLRU[string, string](userMapSize, nil, userMapTTL),
	}
}

// List returns the operators of botID with their presence.
func (s *AgentService) List(ctx context.Context, botID string) ([]AgentView, error) {
	tr := otel.Tracer("services/AgentService")
	ctx, span := tr.Start(ctx, "List", trace.WithAttributes(attribute.String("bot.id", botID)))
	defer span.End()

	agents, err := repo.ListAgents(ctx, s.DB, botID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(agents))
	for i, a := range agents {
		ids[i] = a.ID
	}
	online, err := s.Presence.OnlineMany(ctx, botID, ids)
	if err != nil {
		return nil, err
	}
	out := make([]AgentView, len(agents))
	for i, a := range agents {
		out[i] = AgentView{Agent: a, Online: online[a.ID]}
	}
	return out, nil
}

// Me returns the calling operator. Operators without a directory record are
// returned with only their id and presence.
func (s *AgentService) Me(ctx context.Context, botID, agentID string) (*AgentView, error) {
	tr := otel.Tracer("services/AgentService")
	ctx, span := tr.Start(ctx, "Me", trace.WithAttributes(
		attribute.String("bot.id", botID),
		attribute.String("agent.id", agentID),
	))
	defer span.End()

	if agentID == "" {
		return nil, &ValidationError{Problems: []string{`"agentId" is required`}}
	}
	a, err := repo.GetAgent(ctx, s.DB, botID, agentID)
	if errors.Is(err, repo.ErrNotFound) {
		a = &domain.Agent{ID: agentID, BotID: botID, Role: "agent"}
	} else if err != nil {
		return nil, err
	}
	online, err := s.Presence.IsOnline(ctx, botID, agentID)
	if err != nil {
		return nil, err
	}
	return &AgentView{Agent: *a, Online: online}, nil
}

// UpdateProfile creates or refreshes the directory record of an operator.
func (s *AgentService) UpdateProfile(ctx context.Context, botID, agentID string, p AgentProfile) (*AgentView, error) {
	if agentID == "" {
		return nil, &ValidationError{Problems: []string{`"agentId" is required`}}
	}
	if err := validateStruct(p); err != nil {
		return nil, err
	}
	a := &domain.Agent{ID: agentID, BotID: botID, Firstname: p.Firstname, Lastname: p.Lastname, PictureURL: p.PictureURL}
	if err := repo.UpsertAgent(ctx, s.DB, a); err != nil {
		return nil, err
	}
	return s.Me(ctx, botID, agentID)
}

// SetOnline sets or clears the operator's presence and announces the change.
func (s *AgentService) SetOnline(ctx context.Context, botID, agentID string, online bool) error {
	if agentID == "" {
		return &ValidationError{Problems: []string{`"agentId" is required`}}
	}
	if online {
		return s.Extend(ctx, botID, agentID)
	}
	if err := s.Presence.SetOffline(ctx, botID, agentID); err != nil {
		return err
	}
	s.announce(ctx, botID, agentID, false)
	return nil
}

// Extend renews the operator's session. Called on every qualifying action.
func (s *AgentService) Extend(ctx context.Context, botID, agentID string) error {
	if err := s.Presence.SetOnline(ctx, botID, agentID); err != nil {
		return err
	}
	s.announce(ctx, botID, agentID, true)
	return nil
}

// IsOnline reports the operator's presence.
func (s *AgentService) IsOnline(ctx context.Context, botID, agentID string) (bool, error) {
	return s.Presence.IsOnline(ctx, botID, agentID)
}

// PresenceExpired is the presence tracker's expiry callback.
func (s *AgentService) PresenceExpired(botID, agentID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.announce(ctx, botID, agentID, false)
}

func (s *AgentService) announce(ctx context.Context, botID, agentID string, online bool) {
	s.Notifier.Notify(ctx, notify.Payload{
		BotID:    botID,
		Resource: notify.ResourceAgent,
		Type:     notify.TypeUpdate,
		ID:       agentID,
		Payload:  map[string]any{"online": online},
	})
}

// MessagingUser returns the messaging user owning the operator's threads,
// creating and recording one on first use.
func (s *AgentService) MessagingUser(ctx context.Context, botID, agentID string) (string, error) {
	key := botID + "|" + agentID
	if id, ok := s.users.Get(key); ok {
		return id, nil
	}

	m, err := repo.GetAgentUserMapping(ctx, s.DB, botID, agentID)
	switch {
	case err == nil:
		s.users.Add(key, m.UserID)
		return m.UserID, nil
	case !errors.Is(err, repo.ErrNotFound):
		return "", err
	}

	userID, err := s.Messenger.CreateUser(ctx, botID)
	if err != nil {
		return "", err
	}
	m, err = repo.CreateAgentUserMapping(ctx, s.DB, botID, agentID, userID)
	if errors.Is(err, repo.ErrDuplicate) {
		// Another request mapped the operator first; use its user.
		m, err = repo.GetAgentUserMapping(ctx, s.DB, botID, agentID)
	}
	if err != nil {
		return "", err
	}
	s.users.Add(key, m.UserID)
	return m.UserID, nil
}

// DisplayName returns the name shown to end users for an operator.
func (s *AgentService) DisplayName(ctx context.Context, botID, agentID string) (name, avatar string) {
	a, err := repo.GetAgent(ctx, s.DB, botID, agentID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			s.Log.Warn().Err(err).Str("agent_id", agentID).Msg("agent lookup failed")
		}
		return agentID, ""
	}
	return displayName(a, s.Locale), a.PictureURL
}
