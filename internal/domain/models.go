// Package domain defines the persistence models for handoffs, operator
// comments, the conversational event log, and the operator directory. These
// types are mapped with GORM and form the core data layer of the handoff
// coordination service.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Handoff is the record coordinating a single human-takeover episode of one
// user conversation.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - BotID: owning bot; every query is scoped by it.
//   - UserID / UserThreadID / UserChannel: the end-user side, always present.
//     UserThreadID is immutable after creation.
//   - AgentID / AgentThreadID: the operator side, both nil until assigned.
//   - Status: see HandoffStatus and CanTransition.
//   - Tags: unordered labels, mutable regardless of status.
//   - ActiveKey: "<bot>|<thread>|<channel>" while the handoff is active, NULL
//     once terminal. Its unique index guarantees a single active handoff per
//     conversation without relying on read-then-insert.
//   - ExpiresAt: deadline of the pending timeout, if one was requested.
//   - Comments: operator annotations ordered by creation time.
//   - UserConversation: most recent incoming text event on the user thread.
//     Derived on read, never persisted.
type Handoff struct {
	ID            string        `json:"id"                      gorm:"type:char(36);primaryKey"`
	BotID         string        `json:"botId"                   gorm:"type:varchar(64);not null;index:idx_handoff_bot_thread,priority:1"`
	UserID        string        `json:"userId"                  gorm:"type:varchar(128);not null"`
	UserThreadID  string        `json:"userThreadId"            gorm:"type:varchar(128);not null;index:idx_handoff_bot_thread,priority:2"`
	UserChannel   string        `json:"userChannel"             gorm:"type:varchar(64);not null"`
	AgentID       *string       `json:"agentId,omitempty"       gorm:"type:varchar(255)"`
	AgentThreadID *string       `json:"agentThreadId,omitempty" gorm:"type:varchar(128);index"`
	Status        HandoffStatus `json:"status"                  gorm:"type:varchar(16);not null;index;check:status IN ('pending','assigned','resolved','rejected','expired')"`
	Tags          Tags          `json:"tags"                    gorm:"type:text"`
	ActiveKey     *string       `json:"-"                       gorm:"type:varchar(320);uniqueIndex:ux_handoff_active"`
	ExpiresAt     *time.Time    `json:"expiresAt,omitempty"`
	AssignedAt    *time.Time    `json:"assignedAt,omitempty"`
	ResolvedAt    *time.Time    `json:"resolvedAt,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`

	Comments         []Comment `json:"comments"                   gorm:"foreignKey:HandoffID;references:ID"`
	UserConversation *Event    `json:"userConversation,omitempty" gorm:"-"`
}

// TableName returns the database table name for Handoff.
func (Handoff) TableName() string { return "handoffs" }

// IsAssigned reports whether the operator side of the handoff is populated.
func (h *Handoff) IsAssigned() bool {
	return h.AgentID != nil && h.AgentThreadID != nil
}

// ThreadIDs returns every thread currently linked to the handoff: the user
// thread and, once assigned, the operator thread.
func (h *Handoff) ThreadIDs() []string {
	out := []string{h.UserThreadID}
	if h.AgentThreadID != nil && *h.AgentThreadID != "" {
		out = append(out, *h.AgentThreadID)
	}
	return out
}

// ActiveKeyFor builds the uniqueness key of an active handoff.
func ActiveKeyFor(botID, userThreadID, userChannel string) string {
	return strings.Join([]string{botID, userThreadID, userChannel}, "|")
}

// Comment is an append-only operator annotation on a handoff.
type Comment struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	HandoffID string    `json:"handoffId" gorm:"type:char(36);not null;index:idx_comment_handoff,priority:1"`
	ThreadID  string    `json:"threadId"  gorm:"type:varchar(128);not null"`
	AgentID   string    `json:"agentId"   gorm:"type:varchar(255);not null"`
	Content   string    `json:"content"   gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"index:idx_comment_handoff,priority:2"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Handoff is the owning record; comments go away with it.
	Handoff *Handoff `json:"-" gorm:"foreignKey:HandoffID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string { return "comments" }

// Event directions.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// Event is a row of the hosting system's conversational event log. The
// auto-increment ID is the ordering key: a higher ID is a more recent event.
type Event struct {
	ID        int64     `json:"id"        gorm:"primaryKey;autoIncrement"`
	BotID     string    `json:"botId"     gorm:"type:varchar(64);not null;index:idx_event_thread,priority:1"`
	ThreadID  string    `json:"threadId"  gorm:"type:varchar(128);not null;index:idx_event_thread,priority:2"`
	Channel   string    `json:"channel"   gorm:"type:varchar(64);not null"`
	Direction string    `json:"direction" gorm:"type:varchar(16);not null;check:direction IN ('incoming','outgoing')"`
	Type      string    `json:"type"      gorm:"type:varchar(64);not null"`
	Target    string    `json:"target"    gorm:"type:varchar(128)"`
	Payload   JSONMap   `json:"payload"   gorm:"type:text"`
	Success   *bool     `json:"success,omitempty"`
	CreatedOn time.Time `json:"createdOn" gorm:"index"`
}

// TableName returns the database table name for Event.
func (Event) TableName() string { return "events" }

// Agent is an operator known to a bot. Presence is tracked separately and
// joined on read.
type Agent struct {
	ID         string    `json:"agentId"    gorm:"type:varchar(255);primaryKey"`
	BotID      string    `json:"botId"      gorm:"type:varchar(64);primaryKey"`
	Firstname  string    `json:"firstname"  gorm:"type:varchar(128)"`
	Lastname   string    `json:"lastname"   gorm:"type:varchar(128)"`
	PictureURL string    `json:"pictureUrl" gorm:"type:varchar(512)"`
	Role       string    `json:"role"       gorm:"type:varchar(32);not null;default:'agent'"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TableName returns the database table name for Agent.
func (Agent) TableName() string { return "agents" }

// AgentUserMapping links an operator to the messaging user that owns their
// operator-side threads for a bot.
type AgentUserMapping struct {
	BotID     string    `gorm:"type:varchar(64);primaryKey"`
	AgentID   string    `gorm:"type:varchar(255);primaryKey"`
	UserID    string    `gorm:"type:varchar(128);not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the database table name for AgentUserMapping.
func (AgentUserMapping) TableName() string { return "agent_user_map" }

// Tags is a set of labels stored as a JSON array.
type Tags []string

// Value implements driver.Valuer.
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	return string(b), err
}

// Scan implements sql.Scanner.
func (t *Tags) Scan(src any) error {
	raw, err := scanBytes(src)
	if err != nil || len(raw) == 0 {
		*t = Tags{}
		return err
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*t = out
	return nil
}

// Normalize trims, drops empty labels, and removes duplicates while keeping
// first-seen order.
func (t Tags) Normalize() Tags {
	seen := make(map[string]struct{}, len(t))
	out := make(Tags, 0, len(t))
	for _, s := range t {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// JSONMap is a free-form JSON object column.
type JSONMap map[string]any

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]any(m))
	return string(b), err
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(src any) error {
	raw, err := scanBytes(src)
	if err != nil || len(raw) == 0 {
		*m = JSONMap{}
		return err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

// String returns the string value under key, or "" when absent.
func (m JSONMap) String(key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// Clone returns a shallow copy of m.
func (m JSONMap) Clone() JSONMap {
	out := make(JSONMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func scanBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("domain: unsupported JSON column type")
	}
}
