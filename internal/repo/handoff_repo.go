// Package repo implements the Handoff Store backed by GORM. This file holds
// the handoff queries.
//
// All functions are context-aware and accept a *gorm.DB handle, so they can
// run inside a caller's transaction. They follow the "thin repository"
// approach: no business rules, only persistence and query composition.
//
// Error semantics:
//   - A missing handoff yields ErrNotFound (gorm.ErrRecordNotFound).
//   - CreateHandoff yields ErrDuplicate when an active handoff already exists
//     for the same (bot, user thread, channel).
//   - TransitionHandoff yields ErrStaleStatus when the stored status no longer
//     matches the expected source state.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-handoff-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrStaleStatus is returned by TransitionHandoff when the compare-and-set
// lost: the row exists but its status is no longer the expected one.
var ErrStaleStatus = errors.New("handoff status changed")

// ListConditions narrows list queries. Column is a public (camelCase) field
// name; unknown columns are ignored.
type ListConditions struct {
	Limit  int
	Column string
	Desc   bool
}

// sortableColumns maps public field names to SQL columns.
var sortableColumns = map[string]string{
	"id":         "id",
	"status":     "status",
	"createdAt":  "created_at",
	"updatedAt":  "updated_at",
	"assignedAt": "assigned_at",
	"resolvedAt": "resolved_at",
}

func (c ListConditions) apply(q *gorm.DB, table string) *gorm.DB {
	if col, ok := sortableColumns[c.Column]; ok {
		dir := " ASC"
		if c.Desc {
			dir = " DESC"
		}
		q = q.Order(table + "." + col + dir)
	} else {
		q = q.Order(table + ".created_at DESC")
	}
	if c.Limit > 0 {
		q = q.Limit(c.Limit)
	}
	return q
}

// CreateHandoff inserts h as a new pending handoff. ID, timestamps, status,
// and the active-uniqueness key are assigned here.
func CreateHandoff(ctx context.Context, db *gorm.DB, h *domain.Handoff) error {
	now := time.Now().UTC()
	key := domain.ActiveKeyFor(h.BotID, h.UserThreadID, h.UserChannel)
	h.ID = uuid.NewString()
	h.Status = domain.StatusPending
	h.ActiveKey = &key
	h.AgentID, h.AgentThreadID = nil, nil
	h.CreatedAt, h.UpdatedAt = now, now
	if h.Tags == nil {
		h.Tags = domain.Tags{}
	}
	if err := db.WithContext(ctx).Omit("Comments").Create(h).Error; err != nil {
		if IsDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	h.Comments = []domain.Comment{}
	return nil
}

// GetHandoff fetches a handoff row without associations.
func GetHandoff(ctx context.Context, db *gorm.DB, id string) (*domain.Handoff, error) {
	var h domain.Handoff
	if err := db.WithContext(ctx).Where("id = ?", id).First(&h).Error; err != nil {
		return nil, err
	}
	return &h, nil
}

// FindHandoff fetches a handoff of botID with its comments and the most recent
// incoming text event of the user thread.
func FindHandoff(ctx context.Context, db *gorm.DB, botID, id string) (*domain.Handoff, error) {
	var h domain.Handoff
	err := withComments(db.WithContext(ctx)).
		Where("bot_id = ? AND id = ?", botID, id).
		First(&h).Error
	if err != nil {
		return nil, err
	}
	out := []domain.Handoff{h}
	if err := hydrateConversations(ctx, db, botID, out); err != nil {
		return nil, err
	}
	return &out[0], nil
}

// ListHandoffs returns the handoffs of botID with associations, ordered by
// cond (newest first by default).
func ListHandoffs(ctx context.Context, db *gorm.DB, botID string, cond ListConditions) ([]domain.Handoff, error) {
	var out []domain.Handoff
	q := withComments(db.WithContext(ctx)).Where("bot_id = ?", botID)
	if err := cond.apply(q, domain.Handoff{}.TableName()).Find(&out).Error; err != nil {
		return nil, err
	}
	if err := hydrateConversations(ctx, db, botID, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListActiveHandoffs returns every pending or assigned handoff across bots.
// Used to warm the routing cache.
func ListActiveHandoffs(ctx context.Context, db *gorm.DB) ([]domain.Handoff, error) {
	var out []domain.Handoff
	err := db.WithContext(ctx).
		Where("status IN ?", domain.ActiveStatuses()).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// FindActiveHandoff returns the active handoff of a user conversation, or
// ErrNotFound.
func FindActiveHandoff(ctx context.Context, db *gorm.DB, botID, userThreadID, userChannel string) (*domain.Handoff, error) {
	var h domain.Handoff
	err := withComments(db.WithContext(ctx)).
		Where("active_key = ?", domain.ActiveKeyFor(botID, userThreadID, userChannel)).
		First(&h).Error
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// FindActiveHandoffByThread returns the active handoff of botID linked to
// threadID on either side, or ErrNotFound. When a thread id is shared by
// several channels the most recent handoff wins.
func FindActiveHandoffByThread(ctx context.Context, db *gorm.DB, botID, threadID string) (*domain.Handoff, error) {
	var h domain.Handoff
	err := db.WithContext(ctx).
		Where("bot_id = ? AND status IN ?", botID, domain.ActiveStatuses()).
		Where("(user_thread_id = ? OR agent_thread_id = ?)", threadID, threadID).
		Order("created_at DESC").
		First(&h).Error
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// TransitionHandoff moves handoff id from status `from` to `to` with a single
// conditional UPDATE, also writing the given extra columns. Leaving the
// active set clears the uniqueness key.
func TransitionHandoff(ctx context.Context, db *gorm.DB, id string, from, to domain.HandoffStatus, fields map[string]any) error {
	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	for k, v := range fields {
		updates[k] = v
	}
	if to.IsTerminal() {
		updates["active_key"] = nil
	}

	res := db.WithContext(ctx).
		Model(&domain.Handoff{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var n int64
	if err := db.WithContext(ctx).Model(&domain.Handoff{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrStaleStatus
}

// UpdateHandoffTags replaces the tag set of a handoff owned by botID.
func UpdateHandoffTags(ctx context.Context, db *gorm.DB, botID, id string, tags domain.Tags) error {
	res := db.WithContext(ctx).
		Model(&domain.Handoff{}).
		Where("bot_id = ? AND id = ?", botID, id).
		Updates(map[string]any{"tags": tags, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func withComments(q *gorm.DB) *gorm.DB {
	return q.Preload("Comments", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	})
}

// hydrateConversations fills UserConversation and normalizes nil slices.
func hydrateConversations(ctx context.Context, db *gorm.DB, botID string, hs []domain.Handoff) error {
	if len(hs) == 0 {
		return nil
	}
	threads := make([]string, 0, len(hs))
	for _, h := range hs {
		threads = append(threads, h.UserThreadID)
	}
	latest, err := LatestIncomingTextEvents(ctx, db, botID, threads)
	if err != nil {
		return err
	}
	for i := range hs {
		if hs[i].Comments == nil {
			hs[i].Comments = []domain.Comment{}
		}
		if hs[i].Tags == nil {
			hs[i].Tags = domain.Tags{}
		}
		if ev, ok := latest[hs[i].UserThreadID]; ok {
			ev := ev
			hs[i].UserConversation = &ev
		}
	}
	return nil
}
