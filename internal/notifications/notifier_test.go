package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	t.Parallel()
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.PublishUser(context.Background(), 1, "test payload"))
	assert.NoError(t, n.PublishEvent(context.Background(), 1, Event{Type: EventFollow}))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(string, string) {
		t.Fatal("no messages expected")
	}))
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		userID   uint
		expected string
	}{
		{1, "notifications:user:1"},
		{100, "notifications:user:100"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, UserChannel(tt.userID))
		id, ok := parseUserChannel(tt.expected)
		assert.True(t, ok)
		assert.Equal(t, tt.userID, id)
	}
}

func TestParseUserChannel_Rejects(t *testing.T) {
	t.Parallel()
	for _, channel := range []string{"notifications:user:", "notifications:user:abc", "notifications:user:0", "chat:conv:5"} {
		_, ok := parseUserChannel(channel)
		assert.False(t, ok, channel)
	}
}

func TestEventType(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "like", eventType([]byte(`{"type":"like","payload":{}}`)))
	assert.Equal(t, "unknown", eventType([]byte(`not json`)))
	assert.Equal(t, EventMessagesDropped, eventType(dropNotice))
}

func TestNotifier_PatternSubscriberReceivesEvents(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type delivery struct{ channel, payload string }
	got := make(chan delivery, 1)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(channel, payload string) {
		got <- delivery{channel, payload}
	}))

	require.NoError(t, n.PublishEvent(context.Background(), 7, Event{
		Type:    EventFollow,
		Payload: map[string]interface{}{"follower_id": 3},
	}))

	select {
	case d := <-got:
		assert.Equal(t, "notifications:user:7", d.channel)
		assert.JSONEq(t, `{"type":"follow","payload":{"follower_id":3}}`, d.payload)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestNotifier_SubscriberSurvivesPanickingHandler(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payloads := make(chan string, 2)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(_ string, payload string) {
		if payload == "boom" {
			panic("handler failure")
		}
		payloads <- payload
	}))

	require.NoError(t, n.PublishUser(context.Background(), 1, "boom"))
	require.NoError(t, n.PublishUser(context.Background(), 1, "after"))

	select {
	case p := <-payloads:
		assert.Equal(t, "after", p)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber stopped after a panic")
	}
}
