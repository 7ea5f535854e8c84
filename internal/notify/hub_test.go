package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-handoff-backend/internal/bus"
)

func recv(t *testing.T, s *Subscriber) map[string]any {
	t.Helper()
	select {
	case raw := <-s.C:
		var out map[string]any
		require.NoError(t, json.Unmarshal(raw, &out))
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("no realtime message")
		return nil
	}
}

func TestHub_BroadcastScopedByBot(t *testing.T) {
	h := NewHub(nil, 4, zerolog.Nop())
	defer h.Close()

	s1 := h.Subscribe("b1")
	s2 := h.Subscribe("b2")

	require.NoError(t, h.Broadcast(context.Background(), Payload{BotID: "b1", Resource: ResourceHandoff, Type: TypeCreate, ID: "h1"}))

	got := recv(t, s1)
	assert.Equal(t, "handoff", got["resource"])
	assert.Equal(t, "create", got["type"])
	assert.Equal(t, "h1", got["id"])
	assert.Equal(t, "b1", got["botId"], "subscribers see the webhook shape")

	select {
	case <-s2.C:
		t.Fatal("other bot must not receive the message")
	default:
	}
}

func TestHub_AcrossProcessesViaBus(t *testing.T) {
	shared := bus.NewLocal()
	ctx := context.Background()

	a := NewHub(shared, 4, zerolog.Nop())
	b := NewHub(shared, 4, zerolog.Nop())
	require.NoError(t, a.Start(ctx))
	require.NoError(t, b.Start(ctx))
	defer a.Close()
	defer b.Close()

	sub := b.Subscribe("b1")
	require.NoError(t, a.Broadcast(ctx, Payload{BotID: "b1", Resource: ResourceAgent, Type: TypeUpdate, ID: "a1", Payload: map[string]any{"online": false}}))

	got := recv(t, sub)
	assert.Equal(t, "agent", got["resource"])
	assert.Equal(t, map[string]any{"online": false}, got["payload"])
}

func TestHub_SlowSubscriberDrops(t *testing.T) {
	h := NewHub(nil, 1, zerolog.Nop())
	defer h.Close()
	s := h.Subscribe("b1")

	for i := 0; i < 3; i++ {
		require.NoError(t, h.Broadcast(context.Background(), Payload{BotID: "b1", ID: "x"}))
	}
	assert.Len(t, s.C, 1)
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	h := NewHub(nil, 1, zerolog.Nop())
	s := h.Subscribe("b1")
	h.Unsubscribe(s)
	h.Unsubscribe(s) // no double close

	_, open := <-s.C
	assert.False(t, open)
	h.Close()
}

func TestFanout_NotifiesHubAndWebhook(t *testing.T) {
	h := NewHub(nil, 4, zerolog.Nop())
	defer h.Close()
	s := h.Subscribe("b1")

	f := NewFanout(h, NewWebhook(WebhookOptions{}, zerolog.Nop()), zerolog.Nop())
	f.Notify(context.Background(), Payload{BotID: "b1", Resource: ResourceHandoff, Type: TypeUpdate, ID: "h1"})

	got := recv(t, s)
	assert.Equal(t, "update", got["type"])

	// A nil hub and webhook are tolerated.
	NewFanout(nil, nil, zerolog.Nop()).Notify(context.Background(), Payload{BotID: "b1"})
	NopNotifier{}.Notify(context.Background(), Payload{})
}
