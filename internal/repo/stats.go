// Package repo implements the Handoff Store backed by GORM. This file provides
// small aggregate queries used for conditional responses (weak ETags on the
// handoff list) in the HTTP layer. Each function is context-aware and safe to
// call from services or handlers.
//
// A list ETag must change whenever any part of the rendered list changes. The
// handoff rows themselves are covered by HandoffsStats (comments touch their
// handoff's updated_at, see CreateComment); the derived userConversation of
// each row is covered by LatestIncomingTextEventID.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-handoff-backend/internal/domain"
)

// HandoffsStats returns aggregate metadata for a bot's handoffs: the total
// number of rows and the maximum UpdatedAt timestamp among those rows.
//
// It executes two lightweight queries against the handoffs table scoped to
// botID. When the bot has no handoffs, the returned count is 0 and
// maxUpdatedAt is nil.
//
// Return values:
//   - count:        total handoffs for botID
//   - maxUpdatedAt: pointer to the greatest UpdatedAt, or nil if no rows
//   - err:          database error, if any
func HandoffsStats(ctx context.Context, db *gorm.DB, botID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Handoff{}).Where("bot_id = ?", botID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Latest updated_at without MAX() (which comes back as TEXT in SQLite).
	var row struct {
		UpdatedAt time.Time
	}
	if err = db.WithContext(ctx).Model(&domain.Handoff{}).Where("bot_id = ?", botID).
		Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// LatestIncomingTextEventID returns the id of the most recent incoming text
// event of botID, or 0 when there is none. Event ids grow with insertion, so a
// new id means some handoff's userConversation may have changed.
func LatestIncomingTextEventID(ctx context.Context, db *gorm.DB, botID string) (int64, error) {
	var ev domain.Event
	err := db.WithContext(ctx).
		Select("id").
		Where("bot_id = ? AND type = ? AND direction = ?", botID, "text", domain.DirectionIncoming).
		Order("id DESC").
		First(&ev).Error
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return ev.ID, nil
}
