package domain

import "time"

// Idempotency records the outcome of a previously processed create request,
// keyed by (agent_id, bot_id, key). A retry carrying the same Idempotency-Key
// is answered with the recorded resource instead of running the side effects
// (transfer message, notifications, timeout scheduling) a second time.
type Idempotency struct {
	ID         string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	AgentID    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_agent_bot_key,priority:1"`
	BotID      string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_agent_bot_key,priority:2"`
	Key        string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_agent_bot_key,priority:3"`
	ResourceID string    `gorm:"type:TEXT NOT NULL"`
	Status     int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt  time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt  time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
