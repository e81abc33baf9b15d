package notifications

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifier(t *testing.T) (*Notifier, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewNotifier(rdb), rdb
}

func TestChannels(t *testing.T) {
	assert.Equal(t, "notifications:user:u1", UserChannel("u1"))
	assert.Equal(t, "chat:room:r1", RoomChannel("r1"))
}

func TestNilNotifierIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.PublishUser(context.Background(), "u1", map[string]string{"a": "b"}))

	_, err := n.WaitForRoom(context.Background(), "r1", time.Millisecond)
	assert.ErrorIs(t, err, ErrNoBroker)
}

func TestWaitForRoom_ReceivesPublish(t *testing.T) {
	n, _ := newTestNotifier(t)
	ctx := context.Background()

	done := make(chan string, 1)
	go func() {
		payload, err := n.WaitForRoom(ctx, "r1", 2*time.Second)
		assert.NoError(t, err)
		done <- payload
	}()

	// Keep publishing until the waiter is subscribed and picks one up.
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case payload := <-done:
			assert.JSONEq(t, `{"content":"hi"}`, payload)
			return
		case <-tick.C:
			require.NoError(t, n.PublishChatMessage(ctx, "r1", map[string]string{"content": "hi"}))
		case <-deadline:
			t.Fatal("waiter never returned")
		}
	}
}

func TestWaitForRoom_Timeout(t *testing.T) {
	n, _ := newTestNotifier(t)

	start := time.Now()
	payload, err := n.WaitForRoom(context.Background(), "quiet", 50*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, payload)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestStartUserSubscriber(t *testing.T) {
	n, _ := newTestNotifier(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var channels []string
	require.NoError(t, n.StartUserSubscriber(ctx, func(channel, _ string) {
		mu.Lock()
		channels = append(channels, channel)
		mu.Unlock()
	}))

	require.NoError(t, n.PublishUser(ctx, "u42", map[string]string{"type": "participant_joined"}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(channels) == 1 && channels[0] == "notifications:user:u42"
	}, 2*time.Second, 10*time.Millisecond)
}
