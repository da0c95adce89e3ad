// Package subscriber implements the per-stream update queue and subscription
// set shared between the RPC writer loop and the book fan-out.
package subscriber

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"market-plant/src/models"
)

// -----------------------------------------------------------------------------

// CancellationPoll bounds how long a waiting writer loop sleeps before
// re-checking cancellation and subscription state.
const CancellationPoll = 500 * time.Millisecond

// -----------------------------------------------------------------------------

// Subscriber carries one stream's state: its identity, the instruments it is
// subscribed to, and the FIFO of updates waiting to be written. Lifecycle:
// created on stream open, draining once the stream context is cancelled or
// the subscription set empties, dead when the writer loop exits. Books hold
// it by pointer and treat a dead subscriber as an expired weak handle.
type Subscriber struct {
	id         uint32
	sessionKey []byte

	mu           sync.Mutex
	queue        []*models.MStreamResponse
	subscribedTo map[uint32]struct{}

	// signal carries "queue became non-empty" and "subscription set became
	// empty" wakeups to the single writer loop.
	signal chan struct{}

	dead atomic.Bool
}

// -----------------------------------------------------------------------------

// NewSubscriber creates a subscriber pre-subscribed to the given instruments.
func NewSubscriber(id uint32, sessionKey []byte, instruments []uint32) *Subscriber {
	subscribedTo := make(map[uint32]struct{}, len(instruments))
	for _, instrument := range instruments {
		subscribedTo[instrument] = struct{}{}
	}

	return &Subscriber{
		id:           id,
		sessionKey:   sessionKey,
		subscribedTo: subscribedTo,
		signal:       make(chan struct{}, 1),
	}
}

// -----------------------------------------------------------------------------

// ID returns the plant-wide subscriber id.
func (s *Subscriber) ID() uint32 {
	return s.id
}

// SessionKey returns the opaque token authorising control-plane mutations.
func (s *Subscriber) SessionKey() []byte {
	return s.sessionKey
}

// -----------------------------------------------------------------------------

// Subscribe adds an instrument to the subscription set and reports whether
// it was newly added.
func (s *Subscriber) Subscribe(instrumentID uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscribedTo[instrumentID]; ok {
		return false
	}
	s.subscribedTo[instrumentID] = struct{}{}
	return true
}

// -----------------------------------------------------------------------------

// Unsubscribe removes an instrument from the subscription set. When the set
// empties the writer loop is woken so the stream can terminate.
func (s *Subscriber) Unsubscribe(instrumentID uint32) {
	s.mu.Lock()
	delete(s.subscribedTo, instrumentID)
	empty := len(s.subscribedTo) == 0
	s.mu.Unlock()

	if empty {
		s.wake()
	}
}

// -----------------------------------------------------------------------------

// Enqueue appends one stream message to the FIFO and wakes the writer loop
// if it was empty.
func (s *Subscriber) Enqueue(msg *models.MStreamResponse) {
	s.mu.Lock()
	s.queue = append(s.queue, msg)
	wasEmpty := len(s.queue) == 1
	s.mu.Unlock()

	if wasEmpty {
		s.wake()
	}
}

// -----------------------------------------------------------------------------

// WaitDequeue blocks until a message is available and returns it, or returns
// nil when the context is cancelled or the subscription set is empty — the
// writer loop's signal to terminate. It re-checks state at least every
// CancellationPoll even without a wakeup.
func (s *Subscriber) WaitDequeue(ctx context.Context) *models.MStreamResponse {
	for {
		s.mu.Lock()
		if ctx.Err() != nil || len(s.subscribedTo) == 0 {
			s.mu.Unlock()
			return nil
		}
		if len(s.queue) > 0 {
			next := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return next
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil
		case <-s.signal:
		case <-time.After(CancellationPoll):
		}
	}
}

// -----------------------------------------------------------------------------

// Alive reports whether the writer loop is still draining this subscriber.
// Books use this as the weak-handle liveness check during fan-out.
func (s *Subscriber) Alive() bool {
	return !s.dead.Load()
}

// MarkDead flags the subscriber for lazy pruning from book subscription
// tables. Called once, when the stream terminates.
func (s *Subscriber) MarkDead() {
	s.dead.Store(true)
}

// -----------------------------------------------------------------------------

// QueueLen reports the number of undelivered messages.
func (s *Subscriber) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Subscriptions returns a copy of the current subscription set.
func (s *Subscriber) Subscriptions() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]uint32, 0, len(s.subscribedTo))
	for id := range s.subscribedTo {
		ids = append(ids, id)
	}
	return ids
}

// -----------------------------------------------------------------------------

func (s *Subscriber) wake() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}
