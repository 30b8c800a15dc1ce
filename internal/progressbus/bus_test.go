package progressbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/channelintel/backend/internal/domain"
)

func TestEmitAndSubscribeReceivesEvent(t *testing.T) {
	b := New(8, 50*time.Millisecond, nil)

	ch, unsubscribe := b.Subscribe("req-1")
	defer unsubscribe()

	b.Emit("req-1", domain.ProgressEvent{ProcessedChannels: 1, TotalChannels: 3, CurrentChannel: "alpha"})

	select {
	case ev := <-ch:
		require.Equal(t, 1, ev.ProcessedChannels)
		require.Equal(t, "alpha", ev.CurrentChannel)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for progress event")
	}
}

func TestCompleteClosesSubscriberChannel(t *testing.T) {
	b := New(8, 50*time.Millisecond, nil)

	ch, unsubscribe := b.Subscribe("req-2")
	defer unsubscribe()

	b.Complete("req-2", domain.ProgressEvent{ProcessedChannels: 3, TotalChannels: 3})

	ev, ok := <-ch
	require.True(t, ok)
	require.Equal(t, 3, ev.ProcessedChannels)

	_, ok = <-ch
	require.False(t, ok, "channel should be closed after a terminal event")
}

func TestFailSetsErrorMessage(t *testing.T) {
	b := New(8, 50*time.Millisecond, nil)

	ch, unsubscribe := b.Subscribe("req-3")
	defer unsubscribe()

	b.Fail("req-3", domain.ProgressEvent{ProcessedChannels: 1, TotalChannels: 3}, "upstream timeout")

	ev := <-ch
	require.Equal(t, "upstream timeout", ev.Error)
}

func TestSubscribeAfterDoneReplaysFinalEvent(t *testing.T) {
	b := New(8, 50*time.Millisecond, nil)

	b.Complete("req-4", domain.ProgressEvent{ProcessedChannels: 5, TotalChannels: 5})

	ch, unsubscribe := b.Subscribe("req-4")
	defer unsubscribe()

	ev, ok := <-ch
	require.True(t, ok)
	require.Equal(t, 5, ev.ProcessedChannels)

	_, ok = <-ch
	require.False(t, ok)
}

func TestJobEvictedAfterGracePeriod(t *testing.T) {
	b := New(8, 20*time.Millisecond, nil)

	b.Complete("req-5", domain.ProgressEvent{ProcessedChannels: 2, TotalChannels: 2})

	_, ok := b.Snapshot("req-5")
	require.True(t, ok)

	time.Sleep(100 * time.Millisecond)

	_, ok = b.Snapshot("req-5")
	require.False(t, ok, "job should be evicted after its grace period elapses")
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New(8, 50*time.Millisecond, nil)

	ch, unsubscribe := b.Subscribe("req-6")
	unsubscribe()

	b.Emit("req-6", domain.ProgressEvent{ProcessedChannels: 1, TotalChannels: 1})

	select {
	case _, ok := <-ch:
		require.False(t, ok, "unsubscribed channel should not receive further events")
	case <-time.After(20 * time.Millisecond):
	}
}
