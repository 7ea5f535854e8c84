package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-handoff-backend/internal/bus"
)

// envelope is the bus form of a realtime notification.
type envelope struct {
	BotID string          `json:"botId"`
	Body  json.RawMessage `json:"body"`
}

// Subscriber receives encoded payloads for one bot.
type Subscriber struct {
	C     <-chan []byte
	c     chan []byte
	botID string
}

// Hub keeps the realtime subscribers of this process, per bot. Broadcasts go
// through the bus so subscribers connected to any process receive them.
type Hub struct {
	bus    bus.Bus
	log    zerolog.Logger
	buffer int

	mu    sync.RWMutex
	subs  map[string]map[*Subscriber]struct{}
	unsub func()
}

// NewHub returns a Hub. With a nil bus, broadcasts are delivered locally.
func NewHub(b bus.Bus, buffer int, log zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		bus:    b,
		buffer: buffer,
		log:    log.With().Str("component", "realtime").Logger(),
		subs:   make(map[string]map[*Subscriber]struct{}),
	}
}

// Start listens for broadcasts from every process.
func (h *Hub) Start(ctx context.Context) error {
	if h.bus == nil {
		return nil
	}
	unsub, err := h.bus.Subscribe(ctx, bus.TopicRealtime, func(body []byte) {
		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			h.log.Warn().Err(err).Msg("discarding malformed realtime message")
			return
		}
		h.deliver(env.BotID, env.Body)
	})
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.unsub = unsub
	h.mu.Unlock()
	return nil
}

// Subscribe registers a subscriber for botID. Call Unsubscribe when done.
func (h *Hub) Subscribe(botID string) *Subscriber {
	ch := make(chan []byte, h.buffer)
	s := &Subscriber{C: ch, c: ch, botID: botID}
	h.mu.Lock()
	if h.subs[botID] == nil {
		h.subs[botID] = make(map[*Subscriber]struct{})
	}
	h.subs[botID][s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Unsubscribe removes s and closes its channel.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s.botID][s]; !ok {
		return
	}
	delete(h.subs[s.botID], s)
	if len(h.subs[s.botID]) == 0 {
		delete(h.subs, s.botID)
	}
	close(s.c)
}

// Broadcast sends p to the bot's subscribers on every process.
func (h *Hub) Broadcast(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if h.bus == nil {
		h.deliver(p.BotID, body)
		return nil
	}
	msg, err := json.Marshal(envelope{BotID: p.BotID, Body: body})
	if err != nil {
		return err
	}
	return h.bus.Publish(ctx, bus.TopicRealtime, msg)
}

// deliver fans body out to local subscribers. Slow subscribers lose messages.
func (h *Hub) deliver(botID string, body []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[botID] {
		select {
		case s.c <- body:
		default:
			realtimeDropped.Inc()
			h.log.Debug().Str("bot_id", botID).Msg("realtime subscriber too slow, message dropped")
		}
	}
}

// Close stops listening and disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	unsub := h.unsub
	h.unsub = nil
	for botID, set := range h.subs {
		for s := range set {
			close(s.c)
		}
		delete(h.subs, botID)
	}
	h.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}
