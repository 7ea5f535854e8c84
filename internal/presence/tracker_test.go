package presence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTracker(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *Tracker) {
	t.Helper()
	mr := miniredis.RunT(t)

	rdb, err := Dial(context.Background(), RedisOptions{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	tr := NewTracker(rdb, ttl, zerolog.Nop())
	t.Cleanup(tr.Close)
	return mr, tr
}

func TestDial_Unreachable(t *testing.T) {
	_, err := Dial(context.Background(), RedisOptions{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestNewTracker_DefaultTTL(t *testing.T) {
	tr := NewTracker(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), 0, zerolog.Nop())
	assert.Equal(t, DefaultTTL, tr.TTL())
}

func TestTracker_SetOnlineAndOffline(t *testing.T) {
	mr, tr := setupTracker(t, time.Minute)
	ctx := context.Background()

	online, err := tr.IsOnline(ctx, "b1", "a1")
	require.NoError(t, err)
	assert.False(t, online)

	require.NoError(t, tr.SetOnline(ctx, "b1", "a1"))
	online, err = tr.IsOnline(ctx, "b1", "a1")
	require.NoError(t, err)
	assert.True(t, online)
	assert.Equal(t, time.Minute, mr.TTL(Key("b1", "a1")))

	// Scoped per bot.
	online, err = tr.IsOnline(ctx, "b2", "a1")
	require.NoError(t, err)
	assert.False(t, online)

	require.NoError(t, tr.SetOffline(ctx, "b1", "a1"))
	online, err = tr.IsOnline(ctx, "b1", "a1")
	require.NoError(t, err)
	assert.False(t, online)
}

func TestTracker_RenewResetsTTL(t *testing.T) {
	mr, tr := setupTracker(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, tr.SetOnline(ctx, "b1", "a1"))
	mr.FastForward(50 * time.Second)
	require.NoError(t, tr.SetOnline(ctx, "b1", "a1"))
	mr.FastForward(50 * time.Second)

	online, err := tr.IsOnline(ctx, "b1", "a1")
	require.NoError(t, err)
	assert.True(t, online, "renewal must extend the session")

	mr.FastForward(time.Minute)
	online, err = tr.IsOnline(ctx, "b1", "a1")
	require.NoError(t, err)
	assert.False(t, online)
}

func TestTracker_OnlineMany(t *testing.T) {
	_, tr := setupTracker(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, tr.SetOnline(ctx, "b1", "a1"))
	require.NoError(t, tr.SetOnline(ctx, "b1", "a3"))

	got, err := tr.OnlineMany(ctx, "b1", []string{"a1", "a2", "a3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"a1": true, "a2": false, "a3": true}, got)

	empty, err := tr.OnlineMany(ctx, "b1", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTracker_ExpiryCallback(t *testing.T) {
	mr, tr := setupTracker(t, 30*time.Millisecond)
	ctx := context.Background()

	expired := make(chan [2]string, 1)
	tr.OnExpire(func(botID, agentID string) { expired <- [2]string{botID, agentID} })

	require.NoError(t, tr.SetOnline(ctx, "b1", "a1"))
	mr.FastForward(time.Second) // redis side lapses

	select {
	case got := <-expired:
		assert.Equal(t, [2]string{"b1", "a1"}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("expiry callback not invoked")
	}
}

func TestTracker_ExpiryRearmsWhenRenewedElsewhere(t *testing.T) {
	_, tr := setupTracker(t, 30*time.Millisecond)
	ctx := context.Background()

	expired := make(chan struct{}, 1)
	tr.OnExpire(func(string, string) { expired <- struct{}{} })

	// miniredis does not advance its clock on its own, so the key outlives
	// the local timer as if another process had renewed it.
	require.NoError(t, tr.SetOnline(ctx, "b1", "a1"))

	select {
	case <-expired:
		t.Fatal("callback fired while the session was still live")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestTracker_OfflineSuppressesCallback(t *testing.T) {
	_, tr := setupTracker(t, 20*time.Millisecond)
	ctx := context.Background()

	expired := make(chan struct{}, 1)
	tr.OnExpire(func(string, string) { expired <- struct{}{} })

	require.NoError(t, tr.SetOnline(ctx, "b1", "a1"))
	require.NoError(t, tr.SetOffline(ctx, "b1", "a1"))

	select {
	case <-expired:
		t.Fatal("callback fired after explicit offline")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTracker_RedisErrorsSurface(t *testing.T) {
	mr, tr := setupTracker(t, time.Minute)
	mr.Close()

	_, err := tr.IsOnline(context.Background(), "b1", "a1")
	assert.Error(t, err)
	assert.Error(t, tr.SetOnline(context.Background(), "b1", "a1"))
}
