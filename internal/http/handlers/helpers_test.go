package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-handoff-backend/internal/domain"
	"github.com/tbourn/go-handoff-backend/internal/http/middleware"
	"github.com/tbourn/go-handoff-backend/internal/pipe"
	"github.com/tbourn/go-handoff-backend/internal/repo"
	"github.com/tbourn/go-handoff-backend/internal/services"
)

func init() { gin.SetMode(gin.TestMode) }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// ----- Fakes -----

type fakeHandoffs struct {
	mu       sync.Mutex
	items    map[string]*domain.Handoff
	creates  int
	err      error
	lastCond repo.ListConditions
	comments []string
}

func newFakeHandoffs() *fakeHandoffs {
	return &fakeHandoffs{items: map[string]*domain.Handoff{}}
}

func (f *fakeHandoffs) put(h *domain.Handoff) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[h.ID] = h
}

func (f *fakeHandoffs) List(_ context.Context, botID string, cond repo.ListConditions) ([]domain.Handoff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCond = cond
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Handoff
	for _, h := range f.items {
		if h.BotID == botID {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (f *fakeHandoffs) Get(_ context.Context, botID, id string) (*domain.Handoff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.items[id]; ok && h.BotID == botID {
		return h, nil
	}
	return nil, &services.NotFoundError{Resource: "handoff", ID: id}
}

func (f *fakeHandoffs) Create(_ context.Context, in services.CreateHandoffInput) (*domain.Handoff, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in.UserThreadID == "" {
		return nil, false, &services.ValidationError{Problems: []string{`"userThreadId" is required`}}
	}
	for _, h := range f.items {
		if h.BotID == in.BotID && h.UserThreadID == in.UserThreadID && h.Status.IsActive() {
			return h, false, nil
		}
	}
	f.creates++
	h := &domain.Handoff{ID: uuid.NewString(), BotID: in.BotID, UserID: in.UserID, UserThreadID: in.UserThreadID, UserChannel: in.UserChannel, Status: domain.StatusPending}
	f.items[h.ID] = h
	return h, true, nil
}

func (f *fakeHandoffs) move(botID, id string, to domain.HandoffStatus, agentID string) (*domain.Handoff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.items[id]
	if !ok || h.BotID != botID {
		return nil, &services.NotFoundError{Resource: "handoff", ID: id}
	}
	if !domain.CanTransition(h.Status, to) {
		return nil, &services.TransitionError{From: h.Status, To: to}
	}
	h.Status = to
	h.AgentID = &agentID
	return h, nil
}

func (f *fakeHandoffs) Assign(_ context.Context, botID, id, agentID string) (*domain.Handoff, error) {
	return f.move(botID, id, domain.StatusAssigned, agentID)
}

func (f *fakeHandoffs) Resolve(_ context.Context, botID, id, agentID string) (*domain.Handoff, error) {
	return f.move(botID, id, domain.StatusResolved, agentID)
}

func (f *fakeHandoffs) Reject(_ context.Context, botID, id, agentID string) (*domain.Handoff, error) {
	return f.move(botID, id, domain.StatusRejected, agentID)
}

func (f *fakeHandoffs) UpdateTags(ctx context.Context, botID, id string, tags []string) (*domain.Handoff, error) {
	h, err := f.Get(ctx, botID, id)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	h.Tags = domain.Tags(tags).Normalize()
	f.mu.Unlock()
	return h, nil
}

func (f *fakeHandoffs) AddComment(ctx context.Context, botID, id, agentID, content string) (*domain.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &services.ValidationError{Problems: []string{`"content" is required`}}
	}
	if _, err := f.Get(ctx, botID, id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.comments = append(f.comments, agentID+":"+content)
	f.mu.Unlock()
	return &domain.Comment{ID: uuid.NewString(), HandoffID: id, AgentID: agentID, Content: content}, nil
}

func (f *fakeHandoffs) Messages(_ context.Context, botID, threadID string, cond repo.ListConditions) ([]domain.Event, error) {
	f.mu.Lock()
	f.lastCond = cond
	f.mu.Unlock()
	if threadID == "empty" {
		return nil, nil
	}
	return []domain.Event{{ID: 1, BotID: botID, ThreadID: threadID, Type: "text"}}, nil
}

type fakeAgents struct {
	online  map[string]bool
	profile services.AgentProfile
	err     error
}

func (f *fakeAgents) List(_ context.Context, botID string) ([]services.AgentView, error) {
	if f.err != nil {
		return nil, f.err
	}
	if botID == "empty" {
		return nil, nil
	}
	return []services.AgentView{{Agent: domain.Agent{ID: "ada", BotID: botID}, Online: f.online["ada"]}}, nil
}

func (f *fakeAgents) Me(_ context.Context, botID, agentID string) (*services.AgentView, error) {
	if agentID == "" {
		return nil, &services.ValidationError{Problems: []string{`"agentId" is required`}}
	}
	return &services.AgentView{Agent: domain.Agent{ID: agentID, BotID: botID, Firstname: f.profile.Firstname}, Online: f.online[agentID]}, nil
}

func (f *fakeAgents) UpdateProfile(ctx context.Context, botID, agentID string, p services.AgentProfile) (*services.AgentView, error) {
	f.profile = p
	return f.Me(ctx, botID, agentID)
}

func (f *fakeAgents) SetOnline(_ context.Context, _, agentID string, online bool) error {
	if f.err != nil {
		return f.err
	}
	if f.online == nil {
		f.online = map[string]bool{}
	}
	f.online[agentID] = online
	return nil
}

type fakePipe struct {
	res  pipe.Result
	err  error
	cold bool
	seen []*domain.Event
}

func (f *fakePipe) Ready() bool { return !f.cold }

func (f *fakePipe) Handle(_ context.Context, ev *domain.Event) (pipe.Result, error) {
	f.seen = append(f.seen, ev)
	return f.res, f.err
}

type fakeRuntime struct {
	handled []*domain.Event
	err     error
}

func (f *fakeRuntime) Handle(_ context.Context, ev *domain.Event) error {
	f.handled = append(f.handled, ev)
	return f.err
}

// ----- Router + request helpers -----

type fixture struct {
	db       *gorm.DB
	handoffs *fakeHandoffs
	agents   *fakeAgents
	pipe     *fakePipe
	runtime  *fakeRuntime
	h        *Handlers
	r        *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:       newTestDB(t),
		handoffs: newFakeHandoffs(),
		agents:   &fakeAgents{online: map[string]bool{}},
		pipe:     &fakePipe{},
		runtime:  &fakeRuntime{},
	}
	f.h = New(Deps{
		DB:       f.db,
		Handoffs: f.handoffs,
		Agents:   f.agents,
		Pipe:     f.pipe,
		Runtime:  f.runtime,
		Config:   ClientConfig{AgentSessionTimeoutSeconds: 600, ReplayEventCount: 10},
	})

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Identity())
	g := r.Group("/bots/:botId/mod/handoff")
	g.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, func(ctx context.Context, agentID, botID, key string, now time.Time) (*middleware.Replay, error) {
		rec, err := repo.GetIdempotency(ctx, f.db, agentID, botID, key, now)
		if err != nil {
			return nil, nil
		}
		return &middleware.Replay{ResourceID: rec.ResourceID, Status: rec.Status}, nil
	}))
	g.GET("/handoffs", f.h.ListHandoffs)
	g.POST("/handoffs", f.h.CreateHandoff)
	g.POST("/handoffs/:id", f.h.UpdateHandoff)
	g.POST("/handoffs/:id/assign", f.h.AssignHandoff)
	g.POST("/handoffs/:id/resolve", f.h.ResolveHandoff)
	g.POST("/handoffs/:id/reject", f.h.RejectHandoff)
	g.POST("/handoffs/:id/comments", f.h.AddComment)
	g.GET("/conversations/:id/messages", f.h.ListMessages)
	g.GET("/agents", f.h.ListAgents)
	g.GET("/agents/me", f.h.GetMe)
	g.PUT("/agents/me", f.h.UpdateMe)
	g.POST("/agents/me/online", f.h.SetOnline)
	g.GET("/config", f.h.GetConfig)
	g.POST("/events", f.h.IngestEvent)
	f.r = r
	return f
}

const base = "/bots/b1/mod/handoff"

func (f *fixture) do(method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, base+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func as(agentID string) map[string]string { return map[string]string{middleware.HeaderAgentID: agentID} }

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func mustCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, w.Code, w.Body.String())
	}
	if code != "" {
		if got := decode[ErrorResponse](t, w).Code; got != code {
			t.Fatalf("expected code %q, got %q", code, got)
		}
	}
}
