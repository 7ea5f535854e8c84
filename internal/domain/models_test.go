package domain

import (
	"testing"
	"time"
)

func TestTags_ValueScanRoundTrip(t *testing.T) {
	v, err := Tags{"vip", "billing"}.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	var got Tags
	if err := got.Scan(v); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 2 || got[0] != "vip" || got[1] != "billing" {
		t.Fatalf("unexpected tags: %v", got)
	}

	var empty Tags
	if err := empty.Scan(nil); err != nil || len(empty) != 0 {
		t.Fatalf("nil scan: %v %v", empty, err)
	}
	if err := empty.Scan(42); err == nil {
		t.Fatalf("expected error on unsupported type")
	}
}

func TestTags_Normalize(t *testing.T) {
	got := Tags{" a ", "", "b", "a", "  "}.Normalize()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Normalize = %v", got)
	}
}

func TestJSONMap_ScanBytesAndString(t *testing.T) {
	var m JSONMap
	if err := m.Scan([]byte(`{"type":"text","text":"hi"}`)); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if m.String("text") != "hi" || m.String("missing") != "" {
		t.Fatalf("unexpected map: %v", m)
	}
	c := m.Clone()
	c["text"] = "changed"
	if m.String("text") != "hi" {
		t.Fatalf("Clone must not alias")
	}
}

func TestHandoff_ThreadIDsAndAssigned(t *testing.T) {
	h := &Handoff{UserThreadID: "t1"}
	if h.IsAssigned() || len(h.ThreadIDs()) != 1 {
		t.Fatalf("pending handoff should expose only the user thread")
	}
	agent, thread := "a1", "t2"
	h.AgentID, h.AgentThreadID = &agent, &thread
	ids := h.ThreadIDs()
	if !h.IsAssigned() || len(ids) != 2 || ids[1] != "t2" {
		t.Fatalf("unexpected thread ids: %v", ids)
	}
}

func TestHandoff_ActiveKeyUniqueIndex(t *testing.T) {
	db := newTestDB(t, &Handoff{}, &Comment{})
	now := time.Now().UTC()
	key := ActiveKeyFor("b1", "t1", "web")

	first := &Handoff{ID: "h1", BotID: "b1", UserID: "u1", UserThreadID: "t1", UserChannel: "web",
		Status: StatusPending, ActiveKey: &key, CreatedAt: now, UpdatedAt: now}
	if err := db.Create(first).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	second := &Handoff{ID: "h2", BotID: "b1", UserID: "u1", UserThreadID: "t1", UserChannel: "web",
		Status: StatusPending, ActiveKey: &key, CreatedAt: now, UpdatedAt: now}
	if err := db.Create(second).Error; err == nil {
		t.Fatalf("expected unique violation for a second active handoff")
	}

	// Terminal rows release the key.
	if err := db.Model(&Handoff{}).Where("id = ?", "h1").
		Updates(map[string]any{"status": StatusResolved, "active_key": nil}).Error; err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := db.Create(second).Error; err != nil {
		t.Fatalf("create after resolve: %v", err)
	}
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		Handoff{}.TableName():          "handoffs",
		Comment{}.TableName():          "comments",
		Event{}.TableName():            "events",
		Agent{}.TableName():            "agents",
		AgentUserMapping{}.TableName(): "agent_user_map",
		Idempotency{}.TableName():      "idempotency",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("TableName = %q; want %q", got, want)
		}
	}
}
