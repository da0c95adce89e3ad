package subscriber

import (
	"context"
	"testing"
	"time"

	"market-plant/src/models"
)

// -----------------------------------------------------------------------------

func update(instrumentID uint32) *models.MStreamResponse {
	return &models.MStreamResponse{
		Update: &models.MBookUpdate{InstrumentID: instrumentID},
	}
}

// -----------------------------------------------------------------------------

func TestQueueIsFIFO(t *testing.T) {
	s := NewSubscriber(1, []byte("key"), []uint32{1})

	s.Enqueue(update(10))
	s.Enqueue(update(20))
	s.Enqueue(update(30))

	for _, want := range []uint32{10, 20, 30} {
		msg := s.WaitDequeue(t.Context())
		if msg == nil || msg.Update.InstrumentID != want {
			t.Fatalf("dequeued %+v, want instrument %d", msg, want)
		}
	}
}

func TestSubscribeReportsNewlyAdded(t *testing.T) {
	s := NewSubscriber(1, []byte("key"), []uint32{1})

	if s.Subscribe(1) {
		t.Fatal("instrument 1 was already subscribed")
	}
	if !s.Subscribe(2) {
		t.Fatal("instrument 2 should be newly added")
	}
	if s.Subscribe(2) {
		t.Fatal("instrument 2 was already subscribed on the second call")
	}
}

func TestWaitDequeueReturnsNilOnCancel(t *testing.T) {
	s := NewSubscriber(1, []byte("key"), []uint32{1})

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan *models.MStreamResponse, 1)
	go func() {
		done <- s.WaitDequeue(ctx)
	}()

	cancel()

	select {
	case msg := <-done:
		if msg != nil {
			t.Fatalf("expected nil on cancellation, got %+v", msg)
		}
	case <-time.After(2 * CancellationPoll):
		t.Fatal("WaitDequeue did not observe cancellation")
	}
}

func TestWaitDequeueReturnsNilWhenSetEmpties(t *testing.T) {
	s := NewSubscriber(1, []byte("key"), []uint32{1, 2})

	done := make(chan *models.MStreamResponse, 1)
	go func() {
		done <- s.WaitDequeue(context.Background())
	}()

	s.Unsubscribe(1)
	s.Unsubscribe(2)

	select {
	case msg := <-done:
		if msg != nil {
			t.Fatalf("expected nil on emptied subscription set, got %+v", msg)
		}
	case <-time.After(2 * CancellationPoll):
		t.Fatal("WaitDequeue did not observe the emptied subscription set")
	}
}

func TestWaitDequeueWakesOnEnqueue(t *testing.T) {
	s := NewSubscriber(1, []byte("key"), []uint32{1})

	done := make(chan *models.MStreamResponse, 1)
	go func() {
		done <- s.WaitDequeue(context.Background())
	}()

	s.Enqueue(update(5))

	select {
	case msg := <-done:
		if msg == nil || msg.Update.InstrumentID != 5 {
			t.Fatalf("dequeued %+v, want instrument 5", msg)
		}
	case <-time.After(2 * CancellationPoll):
		t.Fatal("WaitDequeue did not wake on enqueue")
	}
}

func TestAliveLifecycle(t *testing.T) {
	s := NewSubscriber(1, []byte("key"), nil)

	if !s.Alive() {
		t.Fatal("fresh subscriber must be alive")
	}
	s.MarkDead()
	if s.Alive() {
		t.Fatal("subscriber must be dead after MarkDead")
	}
}
