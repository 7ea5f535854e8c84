// Package repo implements the Handoff Store backed by GORM. This file provides
// access to the hosting system's conversational event log and to operator
// comments.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-handoff-backend/internal/domain"
)

// CreateEvent appends an event to the log. CreatedOn defaults to now (UTC).
func CreateEvent(ctx context.Context, db *gorm.DB, ev *domain.Event) error {
	if ev.CreatedOn.IsZero() {
		ev.CreatedOn = time.Now().UTC()
	}
	if ev.Payload == nil {
		ev.Payload = domain.JSONMap{}
	}
	return db.WithContext(ctx).Create(ev).Error
}

// ListEvents returns events of a thread, newest first unless cond says
// otherwise.
func ListEvents(ctx context.Context, db *gorm.DB, botID, threadID string, cond ListConditions) ([]domain.Event, error) {
	var out []domain.Event
	q := db.WithContext(ctx).Where("bot_id = ? AND thread_id = ?", botID, threadID)
	switch cond.Column {
	case "id", "createdOn":
		col := "id"
		if cond.Column == "createdOn" {
			col = "created_on"
		}
		if cond.Desc {
			q = q.Order(col + " DESC")
		} else {
			q = q.Order(col + " ASC")
		}
	default:
		q = q.Order("created_on DESC, id DESC")
	}
	if cond.Limit > 0 {
		q = q.Limit(cond.Limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// RecentEvents returns the n most recent events of a thread in chronological
// order (oldest first).
func RecentEvents(ctx context.Context, db *gorm.DB, botID, threadID string, n int) ([]domain.Event, error) {
	var out []domain.Event
	err := db.WithContext(ctx).
		Where("bot_id = ? AND thread_id = ?", botID, threadID).
		Order("id DESC").
		Limit(n).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// LatestIncomingTextEvents returns, per thread, the most recent incoming text
// event. The auto-increment id is assumed to follow insertion order.
func LatestIncomingTextEvents(ctx context.Context, db *gorm.DB, botID string, threadIDs []string) (map[string]domain.Event, error) {
	out := make(map[string]domain.Event, len(threadIDs))
	if len(threadIDs) == 0 {
		return out, nil
	}
	sub := db.WithContext(ctx).
		Model(&domain.Event{}).
		Select("MAX(id)").
		Where("bot_id = ? AND type = ? AND direction = ? AND thread_id IN ?", botID, "text", domain.DirectionIncoming, threadIDs).
		Group("thread_id")

	var rows []domain.Event
	if err := db.WithContext(ctx).Where("id IN (?)", sub).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, ev := range rows {
		out[ev.ThreadID] = ev
	}
	return out, nil
}

// CreateComment appends an operator comment and touches the owning handoff's
// UpdatedAt in the same transaction, so list ETags change with the comments.
func CreateComment(ctx context.Context, db *gorm.DB, handoffID, threadID, agentID, content string) (*domain.Comment, error) {
	now := time.Now().UTC()
	c := &domain.Comment{
		ID:        uuid.NewString(),
		HandoffID: handoffID,
		ThreadID:  threadID,
		AgentID:   agentID,
		Content:   strings.TrimSpace(content),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Handoff{}).Where("id = ?", handoffID).Update("updated_at", now).Error
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
