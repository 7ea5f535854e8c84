package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestIdempotency_UniquePerAgentBotKey(t *testing.T) {
	db := newTestDB(t, &Idempotency{})

	if !db.Migrator().HasIndex(&Idempotency{}, "ux_agent_bot_key") {
		t.Fatalf("expected composite index ux_agent_bot_key to exist")
	}

	now := time.Now().UTC()
	rec := &Idempotency{
		ID: "id-1", AgentID: "a1", BotID: "b1", Key: "k1",
		ResourceID: "h1", Status: 201, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("insert valid: %v", err)
	}

	var got Idempotency
	if err := db.First(&got, "id = ?", "id-1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.AgentID != "a1" || got.BotID != "b1" || got.ResourceID != "h1" || got.Status != 201 {
		t.Fatalf("unexpected row: %+v", got)
	}

	dup := &Idempotency{
		ID: "id-2", AgentID: "a1", BotID: "b1", Key: "k1",
		ResourceID: "h2", Status: 201, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected UNIQUE violation on (agent_id, bot_id, key)")
	}

	other := &Idempotency{
		ID: "id-3", AgentID: "a1", BotID: "b2", Key: "k1",
		ResourceID: "h3", Status: 201, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("same key on another bot should be accepted: %v", err)
	}
}
