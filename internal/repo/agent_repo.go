// Package repo implements the Handoff Store backed by GORM. This file provides
// the operator directory and the operator → messaging user mapping used to
// allocate operator-side threads.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-handoff-backend/internal/domain"
)

// ListAgents returns the operators registered for botID ordered by id.
func ListAgents(ctx context.Context, db *gorm.DB, botID string) ([]domain.Agent, error) {
	var out []domain.Agent
	err := db.WithContext(ctx).
		Where("bot_id = ?", botID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// GetAgent fetches one operator, or ErrNotFound.
func GetAgent(ctx context.Context, db *gorm.DB, botID, agentID string) (*domain.Agent, error) {
	var a domain.Agent
	if err := db.WithContext(ctx).Where("bot_id = ? AND id = ?", botID, agentID).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// UpsertAgent inserts or refreshes an operator's display attributes.
func UpsertAgent(ctx context.Context, db *gorm.DB, a *domain.Agent) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.Role == "" {
		a.Role = "agent"
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}, {Name: "bot_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"firstname", "lastname", "picture_url", "role", "updated_at"}),
	}).Create(a).Error
}

// GetAgentUserMapping returns the messaging user of an operator, or ErrNotFound.
func GetAgentUserMapping(ctx context.Context, db *gorm.DB, botID, agentID string) (*domain.AgentUserMapping, error) {
	var m domain.AgentUserMapping
	if err := db.WithContext(ctx).Where("bot_id = ? AND agent_id = ?", botID, agentID).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateAgentUserMapping stores a mapping; ErrDuplicate when one already exists.
func CreateAgentUserMapping(ctx context.Context, db *gorm.DB, botID, agentID, userID string) (*domain.AgentUserMapping, error) {
	m := &domain.AgentUserMapping{BotID: botID, AgentID: agentID, UserID: userID, CreatedAt: time.Now().UTC()}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		if IsDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return m, nil
}
