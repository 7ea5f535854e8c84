package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-handoff-backend/internal/domain"
	"github.com/tbourn/go-handoff-backend/internal/repo"
)

// OutgoingEvent is a message the service asks the hosting system to deliver
// on a thread.
type OutgoingEvent struct {
	BotID    string
	ThreadID string
	Channel  string
	Target   string
	Type     string
	Payload  domain.JSONMap
}

// Messenger is the hosting system's messaging API.
type Messenger interface {
	Send(ctx context.Context, ev OutgoingEvent) error
	// CreateUser allocates a messaging user for a bot.
	CreateUser(ctx context.Context, botID string) (string, error)
	// CreateThread opens a new conversation owned by userID.
	CreateThread(ctx context.Context, botID, userID string) (string, error)
}

// Runtime is the conversational automation runtime hosting this subsystem.
type Runtime interface {
	// Resume hands the conversation back to automated handling.
	Resume(ctx context.Context, botID, threadID, reason string) error
	// Handle runs default automated handling for an event not consumed by
	// piping.
	Handle(ctx context.Context, ev *domain.Event) error
}

// StoreMessenger delivers outgoing events by appending them to the event log,
// where the hosting system's channel workers pick them up.
type StoreMessenger struct {
	DB *gorm.DB
}

// NewStoreMessenger returns a Messenger backed by the event log.
func NewStoreMessenger(db *gorm.DB) *StoreMessenger { return &StoreMessenger{DB: db} }

func (m *StoreMessenger) Send(ctx context.Context, ev OutgoingEvent) error {
	channel := ev.Channel
	if channel == "" {
		channel = "web"
	}
	return repo.CreateEvent(ctx, m.DB, &domain.Event{
		BotID:     ev.BotID,
		ThreadID:  ev.ThreadID,
		Channel:   channel,
		Direction: domain.DirectionOutgoing,
		Type:      ev.Type,
		Target:    ev.Target,
		Payload:   ev.Payload,
	})
}

func (m *StoreMessenger) CreateUser(context.Context, string) (string, error) {
	return uuid.NewString(), nil
}

func (m *StoreMessenger) CreateThread(context.Context, string, string) (string, error) {
	return uuid.NewString(), nil
}

// LogRuntime is a Runtime that only records what it was asked to do. It is
// used when the service runs without an automation runtime attached.
type LogRuntime struct {
	Log zerolog.Logger
}

func (r LogRuntime) Resume(_ context.Context, botID, threadID, reason string) error {
	r.Log.Info().Str("bot_id", botID).Str("thread_id", threadID).Str("reason", reason).Msg("conversation resumed")
	return nil
}

func (r LogRuntime) Handle(_ context.Context, ev *domain.Event) error {
	r.Log.Debug().Str("bot_id", ev.BotID).Str("thread_id", ev.ThreadID).Str("type", ev.Type).Msg("event left to automation")
	return nil
}
