package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/filmhub/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveEvent(t *testing.T, sub *auth.Subscription) auth.ActivityEvent {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return auth.ActivityEvent{}
	}
}

func assertNoEvent(t *testing.T, sub *auth.Subscription) {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		if ok {
			t.Fatalf("unexpected event: %s", ev.EventType)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubPublish(t *testing.T) {
	hub := auth.NewHub()
	defer hub.Close()

	alice := hub.Subscribe("user-alice")
	bob := hub.Subscribe("user-bob")

	hub.Publish("user-alice", auth.ActivityEvent{
		EventType: auth.ActivityEventMovieSaved,
		UserID:    "user-alice",
		MovieID:   "tt0111161",
	})

	ev := receiveEvent(t, alice)
	assert.Equal(t, auth.ActivityEventMovieSaved, ev.EventType)
	assert.Equal(t, "tt0111161", ev.MovieID)

	assertNoEvent(t, bob)
}

func TestHubMultipleSubscriptionsPerKey(t *testing.T) {
	hub := auth.NewHub()
	defer hub.Close()

	first := hub.Subscribe("user-1")
	second := hub.Subscribe("user-1")
	assert.Equal(t, 2, hub.SubscriberCount("user-1"))

	hub.Publish("user-1", auth.ActivityEvent{EventType: auth.ActivityEventLoginSuccess})

	assert.Equal(t, auth.ActivityEventLoginSuccess, receiveEvent(t, first).EventType)
	assert.Equal(t, auth.ActivityEventLoginSuccess, receiveEvent(t, second).EventType)
}

func TestHubClosedSubscriptionStopsReceiving(t *testing.T) {
	hub := auth.NewHub()
	defer hub.Close()

	open := hub.Subscribe("user-1")
	closed := hub.Subscribe("user-1")
	closed.Close()

	assert.Equal(t, 1, hub.SubscriberCount("user-1"))

	hub.Publish("user-1", auth.ActivityEvent{EventType: auth.ActivityEventLogout})
	assert.Equal(t, auth.ActivityEventLogout, receiveEvent(t, open).EventType)

	_, ok := <-closed.Events()
	assert.False(t, ok, "closed subscription channel should be closed")
}

func TestHubBroadcast(t *testing.T) {
	hub := auth.NewHub()
	defer hub.Close()

	subs := []*auth.Subscription{
		hub.Subscribe("user-1"),
		hub.Subscribe("user-2"),
		hub.Subscribe("user-3"),
	}

	hub.Broadcast(auth.ActivityEvent{EventType: auth.ActivityEventMovieRated})

	for _, sub := range subs {
		assert.Equal(t, auth.ActivityEventMovieRated, receiveEvent(t, sub).EventType)
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := auth.NewHub(auth.WithHubBuffer(1))
	defer hub.Close()

	sub := hub.Subscribe("user-1")

	hub.Publish("user-1", auth.ActivityEvent{EventType: auth.ActivityEventLoginSuccess, MovieID: "first"})
	hub.Publish("user-1", auth.ActivityEvent{EventType: auth.ActivityEventLoginSuccess, MovieID: "second"})

	ev := receiveEvent(t, sub)
	assert.Equal(t, "first", ev.MovieID)
	assertNoEvent(t, sub)
}

func TestHubClose(t *testing.T) {
	hub := auth.NewHub()

	sub := hub.Subscribe("user-1")
	hub.Close()

	_, ok := <-sub.Events()
	assert.False(t, ok)

	t.Run("subscribe after close yields closed subscription", func(t *testing.T) {
		late := hub.Subscribe("user-2")
		_, ok := <-late.Events()
		assert.False(t, ok)
	})

	t.Run("publish after close is a no-op", func(t *testing.T) {
		hub.Publish("user-1", auth.ActivityEvent{EventType: auth.ActivityEventLogout})
	})
}

func TestHubConcurrentPublishAndClose(t *testing.T) {
	hub := auth.NewHub()
	defer hub.Close()

	sub := hub.Subscribe("user-1")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			hub.Publish("user-1", auth.ActivityEvent{EventType: auth.ActivityEventMovieSaved})
		}
	}()

	go func() {
		for range sub.Events() {
		}
	}()

	time.Sleep(10 * time.Millisecond)
	sub.Close()
	<-done
}

func TestHubSink(t *testing.T) {
	hub := auth.NewHub()
	defer hub.Close()

	sink := auth.NewHubSink(hub)
	ctx := context.Background()

	t.Run("routes user events by user id", func(t *testing.T) {
		sub := hub.Subscribe("user-1")
		defer sub.Close()

		require.NoError(t, sink.Record(ctx, auth.ActivityEvent{
			EventType: auth.ActivityEventMovieSaved,
			UserID:    "user-1",
		}))

		assert.Equal(t, auth.ActivityEventMovieSaved, receiveEvent(t, sub).EventType)
	})

	t.Run("broadcasts events without a user", func(t *testing.T) {
		one := hub.Subscribe("user-1")
		two := hub.Subscribe("user-2")
		defer one.Close()
		defer two.Close()

		require.NoError(t, sink.Record(ctx, auth.ActivityEvent{
			EventType: auth.ActivityEventSignup,
		}))

		assert.Equal(t, auth.ActivityEventSignup, receiveEvent(t, one).EventType)
		assert.Equal(t, auth.ActivityEventSignup, receiveEvent(t, two).EventType)
	})
}
