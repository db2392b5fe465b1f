package eventbus_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentkernel/kernel/pkg/eventbus"
)

func TestBus_PublishDeliversInOrder(t *testing.T) {
	bus := eventbus.New()
	sub := bus.Subscribe("task-1")
	defer sub.Unsubscribe()

	for i := int64(1); i <= 5; i++ {
		bus.Publish(eventbus.LiveEvent{ID: i, TaskID: "task-1", Type: "task.stdout"})
	}

	for i := int64(1); i <= 5; i++ {
		select {
		case ev := <-sub.C:
			require.Equal(t, i, ev.ID)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestBus_PublishIgnoresOtherTasks(t *testing.T) {
	bus := eventbus.New()
	sub := bus.Subscribe("task-1")
	defer sub.Unsubscribe()

	bus.Publish(eventbus.LiveEvent{ID: 1, TaskID: "task-other"})

	select {
	case ev := <-sub.C:
		t.Fatalf("unexpected event delivered: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_OverflowDropsSlowSubscriberWithoutBlockingPublish(t *testing.T) {
	bus := eventbus.New()
	sub := bus.Subscribe("task-1")
	defer sub.Unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			bus.Publish(eventbus.LiveEvent{ID: int64(i), TaskID: "task-1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber instead of dropping it")
	}

	select {
	case <-sub.Overflow:
	case <-time.After(time.Second):
		t.Fatal("expected Overflow to close once the subscriber's queue filled")
	}
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := eventbus.New()
	sub := bus.Subscribe("task-1")
	sub.Unsubscribe()

	bus.Publish(eventbus.LiveEvent{ID: 1, TaskID: "task-1"})

	select {
	case ev, ok := <-sub.C:
		require.False(t, ok, "channel should be empty after unsubscribe, got %+v", ev)
	default:
	}
}
