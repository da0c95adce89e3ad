package grpc_control

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"market-plant/src/book"
	"market-plant/src/logger"
	"market-plant/src/metrics"
	"market-plant/src/models"
	"market-plant/src/subscriber"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// -----------------------------------------------------------------------------

const sessionKeyLength = 16

// -----------------------------------------------------------------------------
// MarketPlantService implementation
// -----------------------------------------------------------------------------

// MarketPlantService serves the subscriber-facing RPC surface: the update
// stream and the subscription control plane. It owns the plant-wide
// subscriber registry; per-instrument subscription tables live in the books.
type MarketPlantService struct {
	Name   string
	books  *book.BookManager
	logger *logger.Logger

	// subLock guards subscribers: read path for control-plane lookups,
	// write path for stream open/close.
	subLock     sync.RWMutex
	subscribers map[uint32]*subscriber.Subscriber

	nextSubscriberID atomic.Uint32
}

// -----------------------------------------------------------------------------

// NewMarketPlantService creates the service over the given books.
func NewMarketPlantService(books *book.BookManager, lg *logger.Logger) *MarketPlantService {
	return &MarketPlantService{
		Name:        "MarketPlantService",
		books:       books,
		logger:      lg,
		subscribers: make(map[uint32]*subscriber.Subscriber),
	}
}

// -----------------------------------------------------------------------------
// Streaming data plane
// -----------------------------------------------------------------------------

// StreamUpdates registers a new subscriber, writes the init frame, then
// drains the subscriber's queue into the stream until cancellation or an
// empty subscription set. Snapshots for the requested instruments are
// enqueued by AddSubscriber before any increment can reach the queue.
func (s *MarketPlantService) StreamUpdates(req *SubscriptionRequest, stream MarketPlant_StreamUpdatesServer) error {
	sub, err := s.AddSubscriber(req.Instruments)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	defer s.RemoveSubscriber(sub.ID())

	metrics.ActiveSubscribers.Inc()
	defer metrics.ActiveSubscribers.Dec()

	s.logger.Info("%s : subscriber %d streaming %d instrument(s)", s.Name, sub.ID(), len(req.Instruments))

	init := &models.MStreamResponse{
		Init: &models.MInitFrame{
			SubscriberID: sub.ID(),
			SessionKey:   sub.SessionKey(),
		},
	}
	if err := stream.Send(init); err != nil {
		return err
	}

	ctx := stream.Context()
	for {
		update := sub.WaitDequeue(ctx)
		if update == nil {
			break
		}
		if err := stream.Send(update); err != nil {
			// The peer is gone; tear down this subscriber only.
			s.logger.Warning("%s : write to subscriber %d failed: %v", s.Name, sub.ID(), err)
			break
		}
	}

	s.logger.Info("%s : subscriber %d stream closed", s.Name, sub.ID())
	return nil
}

// -----------------------------------------------------------------------------
// Control plane
// -----------------------------------------------------------------------------

// UpdateSubscriptions mutates a live subscriber's subscription set after
// validating its identity and session key. New subscriptions receive a
// snapshot before any future increment; an emptied set terminates the
// stream on its next poll.
func (s *MarketPlantService) UpdateSubscriptions(ctx context.Context, req *UpdateRequest) (*Ack, error) {
	s.subLock.RLock()
	sub, ok := s.subscribers[req.SubscriberID]
	s.subLock.RUnlock()

	if !ok {
		return nil, status.Errorf(codes.NotFound, "unknown subscriber id %d", req.SubscriberID)
	}
	if !sub.Alive() {
		// Stale registry entry; prune it on the way out.
		s.subLock.Lock()
		if stale, ok := s.subscribers[req.SubscriberID]; ok && !stale.Alive() {
			delete(s.subscribers, req.SubscriberID)
		}
		s.subLock.Unlock()
		return nil, status.Errorf(codes.NotFound, "subscriber %d expired", req.SubscriberID)
	}

	if subtle.ConstantTimeCompare(sub.SessionKey(), req.SessionKey) != 1 {
		return nil, status.Error(codes.PermissionDenied, "invalid session key")
	}

	switch {
	case len(req.Subscribe) > 0 && len(req.Unsubscribe) > 0:
		return nil, status.Error(codes.InvalidArgument, "request must carry either subscribe or unsubscribe, not both")

	case len(req.Subscribe) > 0:
		for _, instrumentID := range req.Subscribe {
			b, err := s.books.Book(instrumentID)
			if err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
			// Only a newly added instrument gets a snapshot; re-subscribing
			// is a no-op.
			if sub.Subscribe(instrumentID) {
				b.InitSubscription(sub)
			}
		}

	case len(req.Unsubscribe) > 0:
		for _, instrumentID := range req.Unsubscribe {
			b, err := s.books.Book(instrumentID)
			if err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
			b.CancelSubscription(sub.ID())
			sub.Unsubscribe(instrumentID)
		}

	default:
		return nil, status.Error(codes.InvalidArgument, "request must carry subscribe or unsubscribe")
	}

	return &Ack{
		Success:   true,
		Message:   fmt.Sprintf("subscriber %d updated", req.SubscriberID),
		Timestamp: time.Now().Unix(),
	}, nil
}

// -----------------------------------------------------------------------------
// Subscriber registry
// -----------------------------------------------------------------------------

// AddSubscriber allocates a fresh identity, registers the subscriber, and
// initialises one subscription per requested instrument (each enqueueing its
// snapshot under the book mutex). Unknown instruments fail the whole call
// before anything is registered.
func (s *MarketPlantService) AddSubscriber(instruments []uint32) (*subscriber.Subscriber, error) {
	resolved := make([]*book.OrderBook, 0, len(instruments))
	for _, instrumentID := range instruments {
		b, err := s.books.Book(instrumentID)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, b)
	}

	key, err := newSessionKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session key: %w", err)
	}

	sub := subscriber.NewSubscriber(s.nextSubscriberID.Add(1), key, instruments)

	s.subLock.Lock()
	s.subscribers[sub.ID()] = sub
	s.subLock.Unlock()

	for _, b := range resolved {
		b.InitSubscription(sub)
	}

	return sub, nil
}

// -----------------------------------------------------------------------------

// RemoveSubscriber marks the subscriber dead and drops it from the registry.
// Book-side entries are pruned lazily on the next fan-out.
func (s *MarketPlantService) RemoveSubscriber(id uint32) {
	s.subLock.Lock()
	sub, ok := s.subscribers[id]
	if ok {
		delete(s.subscribers, id)
	}
	s.subLock.Unlock()

	if ok {
		sub.MarkDead()
	}
}

// -----------------------------------------------------------------------------

// SubscriberCount reports the registered subscribers.
func (s *MarketPlantService) SubscriberCount() int {
	s.subLock.RLock()
	defer s.subLock.RUnlock()
	return len(s.subscribers)
}

// -----------------------------------------------------------------------------

func newSessionKey() ([]byte, error) {
	key := make([]byte, sessionKeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}
