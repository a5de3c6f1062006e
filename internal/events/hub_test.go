package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_ReachesOnlyOwnUser(t *testing.T) {
	hub := NewHub()
	userA := uuid.New()
	userB := uuid.New()

	chA, cancelA := hub.Subscribe(userA)
	defer cancelA()
	chB, cancelB := hub.Subscribe(userB)
	defer cancelB()

	hub.Publish(userA, "action_executed", map[string]string{"hello": "world"})

	select {
	case ev := <-chA:
		assert.Equal(t, "action_executed", ev.Type)
		assert.Contains(t, string(ev.Payload), "world")
	case <-time.After(time.Second):
		t.Fatal("subscriber A never received the event")
	}

	select {
	case ev := <-chB:
		t.Fatalf("subscriber B received foreign event %v", ev)
	default:
	}
}

func TestPublish_NoSubscribersIsANoOp(t *testing.T) {
	hub := NewHub()
	hub.Publish(uuid.New(), "action_executed", nil)
}

func TestPublish_SlowSubscriberNeverBlocks(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	_, cancel := hub.Subscribe(userID)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Overfill the buffer; the excess is dropped, not queued.
		for i := 0; i < subscriberBuffer*3; i++ {
			hub.Publish(userID, "tick", nil)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestSubscribe_CancelRemovesSubscriber(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	ch, cancel := hub.Subscribe(userID)
	require.Equal(t, 1, hub.Subscribers(userID))

	cancel()
	assert.Equal(t, 0, hub.Subscribers(userID))

	_, open := <-ch
	assert.False(t, open, "channel is closed after cancel")

	// Cancel is idempotent.
	cancel()
}

func TestSubscribe_MultipleListenersAllReceive(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	ch1, cancel1 := hub.Subscribe(userID)
	defer cancel1()
	ch2, cancel2 := hub.Subscribe(userID)
	defer cancel2()

	hub.Publish(userID, "ping", nil)

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, "ping", ev.Type)
		case <-time.After(time.Second):
			t.Fatal("listener missed the event")
		}
	}
}
