package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Fanout is the service Notifier: every notification goes to the realtime
// hub and to the webhook queue.
type Fanout struct {
	hub     *Hub
	webhook *Webhook
	log     zerolog.Logger
}

// NewFanout combines a hub and a webhook. Either may be nil.
func NewFanout(hub *Hub, webhook *Webhook, log zerolog.Logger) *Fanout {
	return &Fanout{hub: hub, webhook: webhook, log: log.With().Str("component", "notify").Logger()}
}

// Notify implements Notifier.
func (f *Fanout) Notify(ctx context.Context, p Payload) {
	if f.hub != nil {
		if err := f.hub.Broadcast(ctx, p); err != nil {
			f.log.Warn().Err(err).
				Str("bot_id", p.BotID).
				Str("resource", p.Resource).
				Str("type", p.Type).
				Msg("realtime broadcast failed")
		}
	}
	if f.webhook != nil {
		f.webhook.Enqueue(p)
	}
}
