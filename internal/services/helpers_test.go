package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-handoff-backend/internal/domain"
	"github.com/tbourn/go-handoff-backend/internal/notify"
	"github.com/tbourn/go-handoff-backend/internal/repo"
	"github.com/tbourn/go-handoff-backend/internal/routing"
)

// ----- Fakes -----

type fakePresence struct {
	mu     sync.Mutex
	online map[string]bool
	err    error
	sets   int
}

func newFakePresence() *fakePresence { return &fakePresence{online: map[string]bool{}} }

func (p *fakePresence) SetOnline(_ context.Context, botID, agentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sets++
	p.online[botID+"|"+agentID] = true
	return nil
}

func (p *fakePresence) SetOffline(_ context.Context, botID, agentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.online, botID+"|"+agentID)
	return p.err
}

func (p *fakePresence) IsOnline(_ context.Context, botID, agentID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[botID+"|"+agentID], p.err
}

func (p *fakePresence) OnlineMany(_ context.Context, botID string, ids []string) (map[string]bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := map[string]bool{}
	for _, id := range ids {
		out[id] = p.online[botID+"|"+id]
	}
	return out, p.err
}

type recordingMessenger struct {
	mu      sync.Mutex
	sent    []OutgoingEvent
	threads int
	users   int
	sendErr error
}

func (m *recordingMessenger) Send(_ context.Context, ev OutgoingEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, ev)
	return nil
}

func (m *recordingMessenger) CreateUser(context.Context, string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users++
	return fmt.Sprintf("agent-user-%d", m.users), nil
}

func (m *recordingMessenger) CreateThread(context.Context, string, string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads++
	return fmt.Sprintf("agent-thread-%d", m.threads), nil
}

func (m *recordingMessenger) onThread(threadID string) []OutgoingEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []OutgoingEvent
	for _, ev := range m.sent {
		if ev.ThreadID == threadID {
			out = append(out, ev)
		}
	}
	return out
}

type resumeCall struct{ BotID, ThreadID, Reason string }

type recordingRuntime struct {
	mu      sync.Mutex
	resumed []resumeCall
	handled []domain.Event
}

func (r *recordingRuntime) Resume(_ context.Context, botID, threadID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resumed = append(r.resumed, resumeCall{botID, threadID, reason})
	return nil
}

func (r *recordingRuntime) Handle(_ context.Context, ev *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handled = append(r.handled, *ev)
	return nil
}

func (r *recordingRuntime) resumes() []resumeCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]resumeCall(nil), r.resumed...)
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []notify.Payload
}

func (n *recordingNotifier) Notify(_ context.Context, p notify.Payload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, p)
}

func (n *recordingNotifier) of(resource, typ string) []notify.Payload {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.Payload
	for _, p := range n.got {
		if p.Resource == resource && p.Type == typ {
			out = append(out, p)
		}
	}
	return out
}

// ----- Harness -----

type harness struct {
	db       *gorm.DB
	cache    *routing.Cache
	presence *fakePresence
	msg      *recordingMessenger
	rt       *recordingRuntime
	notes    *recordingNotifier
	agents   *AgentService
	svc      *HandoffService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		// One connection keeps the shared in-memory database alive and
		// serializes writers like a single SQLite file would.
		sqlDB.SetMaxOpenConns(1)
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return db
}

func newHarness(t *testing.T, cfg HandoffConfig) *harness {
	t.Helper()
	h := &harness{
		db:       newTestDB(t),
		cache:    routing.New(routing.Options{Logger: zerolog.Nop()}),
		presence: newFakePresence(),
		msg:      &recordingMessenger{},
		rt:       &recordingRuntime{},
		notes:    &recordingNotifier{},
	}
	h.agents = NewAgentService(h.db, h.presence, zerolog.Nop())
	h.agents.Messenger = h.msg
	h.agents.Notifier = h.notes

	h.svc = NewHandoffService(h.db, h.cache, h.agents, cfg, zerolog.Nop())
	h.svc.Messenger = h.msg
	h.svc.Runtime = h.rt
	h.svc.Notifier = h.notes
	t.Cleanup(h.svc.Close)
	return h
}

func (h *harness) create(t *testing.T, thread string) *domain.Handoff {
	t.Helper()
	got, created, err := h.svc.Create(context.Background(), CreateHandoffInput{
		BotID: "b1", UserID: "u-" + thread, UserThreadID: thread, UserChannel: "web",
	})
	if err != nil || !created {
		t.Fatalf("Create: created=%v err=%v", created, err)
	}
	return got
}

func (h *harness) online(agentID string) {
	_ = h.presence.SetOnline(context.Background(), "b1", agentID)
}
