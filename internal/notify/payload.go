// Package notify delivers handoff and operator change notifications to
// realtime subscribers and to an optional external webhook.
package notify

import "context"

// Resources a notification may describe.
const (
	ResourceHandoff = "handoff"
	ResourceAgent   = "agent"
	ResourceEvent   = "event"
)

// Types of change.
const (
	TypeCreate = "create"
	TypeUpdate = "update"
)

// Payload is the notification envelope. Webhook listeners and realtime
// subscribers receive the same JSON shape; BotID also scopes realtime
// delivery.
type Payload struct {
	BotID    string `json:"botId"`
	Resource string `json:"resource"`
	Type     string `json:"type"`
	ID       string `json:"id"`
	Payload  any    `json:"payload"`
}

// Notifier accepts notifications. Implementations must not block on delivery
// and must not report delivery failures to the caller.
type Notifier interface {
	Notify(ctx context.Context, p Payload)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Payload) {}
