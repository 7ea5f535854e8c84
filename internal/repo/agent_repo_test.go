package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-handoff-backend/internal/domain"
)

func TestUpsertAgent_InsertThenUpdate(t *testing.T) {
	db := newStoreDB(t)
	ctx := context.Background()

	a := &domain.Agent{ID: "a1", BotID: "b1", Firstname: "ada"}
	if err := UpsertAgent(ctx, db, a); err != nil {
		t.Fatalf("UpsertAgent insert: %v", err)
	}
	if a.Role != "agent" {
		t.Fatalf("expected default role, got %q", a.Role)
	}

	if err := UpsertAgent(ctx, db, &domain.Agent{ID: "a1", BotID: "b1", Firstname: "Ada", Lastname: "Lovelace", Role: "admin"}); err != nil {
		t.Fatalf("UpsertAgent update: %v", err)
	}
	got, err := GetAgent(ctx, db, "b1", "a1")
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if got.Firstname != "Ada" || got.Lastname != "Lovelace" || got.Role != "admin" {
		t.Fatalf("upsert did not refresh columns: %+v", got)
	}

	// Same id under another bot is a distinct operator.
	if err := UpsertAgent(ctx, db, &domain.Agent{ID: "a1", BotID: "b2"}); err != nil {
		t.Fatalf("UpsertAgent other bot: %v", err)
	}
	list, err := ListAgents(ctx, db, "b1")
	if err != nil || len(list) != 1 {
		t.Fatalf("ListAgents: got %d err=%v", len(list), err)
	}

	if _, err := GetAgent(ctx, db, "b1", "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAgentUserMapping(t *testing.T) {
	db := newStoreDB(t)
	ctx := context.Background()

	if _, err := GetAgentUserMapping(ctx, db, "b1", "a1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	m, err := CreateAgentUserMapping(ctx, db, "b1", "a1", "user-1")
	if err != nil {
		t.Fatalf("CreateAgentUserMapping: %v", err)
	}
	if m.UserID != "user-1" {
		t.Fatalf("unexpected mapping: %+v", m)
	}
	if _, err := CreateAgentUserMapping(ctx, db, "b1", "a1", "user-2"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	got, err := GetAgentUserMapping(ctx, db, "b1", "a1")
	if err != nil || got.UserID != "user-1" {
		t.Fatalf("GetAgentUserMapping: got=%+v err=%v", got, err)
	}
}
