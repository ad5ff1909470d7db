package events

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/tccollector/internal/foundation/errors"
)

func TestBus_PublishSubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsubscribe := Subscribe[JobCompleted](b, 1)
	defer unsubscribe()

	require.NoError(t, b.Publish(context.Background(), JobCompleted{Ref: JobRef{ID: "j1"}}))

	select {
	case got := <-ch:
		require.Equal(t, "j1", got.Ref.ID)
	case <-time.After(250 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_JobEventInterfaceReceivesAllLifecycleEvents(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsubscribe := Subscribe[JobEvent](b, 4)
	defer unsubscribe()
	other, unsubscribeOther := Subscribe[JobFailed](b, 4)
	defer unsubscribeOther()

	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, JobActive{Ref: JobRef{ID: "a"}}))
	require.NoError(t, b.Publish(ctx, JobRetryScheduled{Ref: JobRef{ID: "a"}, Delay: time.Second}))
	require.NoError(t, b.Publish(ctx, JobFailed{Ref: JobRef{ID: "a"}}))

	var ids []string
	for range 3 {
		evt := <-ch
		ids = append(ids, evt.Job().ID)
	}
	require.Equal(t, []string{"a", "a", "a"}, ids)
	require.Len(t, other, 1, "concrete subscribers only see their own type")
}

func TestBus_PublishBackpressure(t *testing.T) {
	b := NewBus()
	defer b.Close()

	_, unsubscribe := Subscribe[JobStalled](b, 0) // unbuffered; no receiver => blocks
	defer unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := b.Publish(ctx, JobStalled{})
	require.Error(t, err)

	classified, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	require.Equal(t, ferrors.CategoryRuntime, classified.Category())
}

func TestBus_Close(t *testing.T) {
	b := NewBus()

	ch, _ := Subscribe[JobAdded](b, 1)
	b.Close()
	require.True(t, b.Closed())

	// Channel must be closed on bus close.
	_, ok := <-ch
	require.False(t, ok)

	err := b.Publish(context.Background(), JobAdded{})
	require.Error(t, err)
	require.Zero(t, SubscriberCount[JobAdded](b))
}

func TestListen(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var seen atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := Listen(ctx, b, 1, func(JobProgress) { seen.Add(1) })

	require.Eventually(t, func() bool { return SubscriberCount[JobProgress](b) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, b.Publish(context.Background(), JobProgress{Stage: "read"}))
	require.NoError(t, b.Publish(context.Background(), JobProgress{Stage: "parsed"}))
	require.Eventually(t, func() bool { return seen.Load() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}
	require.Zero(t, SubscriberCount[JobProgress](b))
}

func TestListen_DrainsBufferedEventsOnCancel(t *testing.T) {
	b := NewBus()
	defer b.Close()

	release := make(chan struct{})
	var seen atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := Listen(ctx, b, 4, func(JobFailed) {
		<-release
		seen.Add(1)
	})
	require.Eventually(t, func() bool { return SubscriberCount[JobFailed](b) == 1 }, time.Second, 5*time.Millisecond)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, b.Publish(context.Background(), JobFailed{Ref: JobRef{ID: id}}))
	}
	cancel()
	close(release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}
	require.Equal(t, int32(3), seen.Load())
	require.Zero(t, SubscriberCount[JobFailed](b))
}

func TestBus_UnsubscribeReleasesBlockedPublish(t *testing.T) {
	b := NewBus()
	defer b.Close()

	_, unsubscribe := Subscribe[JobStalled](b, 0)
	errc := make(chan error, 1)
	go func() { errc <- b.Publish(context.Background(), JobStalled{}) }()

	time.Sleep(20 * time.Millisecond)
	unsubscribe()

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("publish stayed blocked after unsubscribe")
	}
}
