package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/backtest-vault/internal/events"
	"github.com/yourusername/backtest-vault/internal/logger"
)

func TestFollowEventsResubscribesAfterFeedDrops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The first feed delivers one backtest event and then drops, as on a server restart.
	first := make(chan events.Event, 2)
	first <- events.Event{Collection: events.CollectionStrategies, Action: events.ActionCreated, ID: 7}
	first <- events.Event{Collection: events.CollectionBacktest, Action: events.ActionCreated, ID: 1}
	close(first)

	var calls atomic.Int32
	subscribe := func(ctx context.Context) (<-chan events.Event, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("connection refused")
		}
		feed := make(chan events.Event, 1)
		feed <- events.Event{Collection: events.CollectionBacktest, Action: events.ActionDeleted, ID: 2}
		go func() {
			<-ctx.Done()
			close(feed)
		}()
		return feed, nil
	}

	notified := make(chan struct{}, 8)
	notify := func() { notified <- struct{}{} }

	done := make(chan struct{})
	go func() {
		followEvents(ctx, subscribe, first, notify, time.Millisecond, 5*time.Millisecond, logger.Discard())
		close(done)
	}()

	// backtest event on the first feed, the reconnect itself, and the event on the new feed
	for i := 0; i < 3; i++ {
		select {
		case <-notified:
		case <-time.After(2 * time.Second):
			t.Fatalf("expected refresh signal %d", i+1)
		}
	}
	assert.Equal(t, int32(2), calls.Load())

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("followEvents did not stop after cancel")
	}
	assert.Empty(t, notified)
}

func TestFollowEventsStopsWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	subscribe := func(context.Context) (<-chan events.Event, error) {
		calls.Add(1)
		return nil, errors.New("connection refused")
	}

	done := make(chan struct{})
	go func() {
		followEvents(ctx, subscribe, nil, func() {}, time.Hour, time.Hour, logger.Discard())
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("followEvents did not stop after cancel")
	}
	require.Zero(t, calls.Load())
}
