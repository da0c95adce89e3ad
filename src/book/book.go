// Package book implements the per-instrument order book: ordered bid/ask
// price levels, add/reduce event application, depth-bounded snapshots, and
// fan-out to registered subscribers.
package book

import (
	"sync"

	"market-plant/src/metrics"
	"market-plant/src/models"
	"market-plant/src/subscriber"

	"github.com/tidwall/btree"
)

// -----------------------------------------------------------------------------

type priceLevel struct {
	price    uint32
	quantity uint32
}

// -----------------------------------------------------------------------------

// OrderBook owns one instrument's bid/ask levels and its subscription table.
// All order-book updates come from the exchange feed; all subscription
// updates come from the plant server. Both serialise on the book mutex,
// which is what guarantees a subscriber's snapshot precedes every increment
// it sees.
type OrderBook struct {
	id    uint32
	depth uint64

	mu   sync.Mutex
	bids *btree.BTreeG[priceLevel] // descending price
	asks *btree.BTreeG[priceLevel] // ascending price

	// subscriptions holds weak handles: a dead subscriber is pruned lazily
	// on the next fan-out.
	subscriptions map[uint32]*subscriber.Subscriber
}

// -----------------------------------------------------------------------------

// NewOrderBook creates an empty book. Depth bounds snapshot size, not the
// level maps.
func NewOrderBook(id uint32, depth uint64) *OrderBook {
	return &OrderBook{
		id:    id,
		depth: depth,
		bids: btree.NewBTreeG(func(a, b priceLevel) bool {
			return a.price > b.price
		}),
		asks: btree.NewBTreeG(func(a, b priceLevel) bool {
			return a.price < b.price
		}),
		subscriptions: make(map[uint32]*subscriber.Subscriber),
	}
}

// -----------------------------------------------------------------------------

// ID returns the instrument id this book belongs to.
func (b *OrderBook) ID() uint32 {
	return b.id
}

// Depth returns the snapshot depth bound.
func (b *OrderBook) Depth() uint64 {
	return b.depth
}

// -----------------------------------------------------------------------------

// Apply mutates the book with one market event.
func (b *OrderBook) Apply(event models.MMarketEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.applyLocked(event)
}

// -----------------------------------------------------------------------------

// ApplyAndPublish applies one market event and enqueues the resulting
// incremental update on every live subscriber of this instrument. Dead
// subscribers found during the walk are pruned. The update message is built
// once and shared immutably across all queues.
func (b *OrderBook) ApplyAndPublish(event models.MMarketEvent) {
	var toEnqueue []*subscriber.Subscriber

	b.mu.Lock()
	b.applyLocked(event)

	for id, sub := range b.subscriptions {
		if sub.Alive() {
			toEnqueue = append(toEnqueue, sub)
		} else {
			delete(b.subscriptions, id)
		}
	}
	b.mu.Unlock()

	metrics.EventsApplied.Inc()

	if len(toEnqueue) == 0 {
		return
	}

	update := NewEventUpdate(b.id, event)
	for _, sub := range toEnqueue {
		sub.Enqueue(update)
	}
}

// -----------------------------------------------------------------------------

// InitSubscription registers the subscriber and enqueues a snapshot before
// the book mutex is released. Any concurrent ApplyAndPublish serialises on
// the same mutex, so no increment can reach the subscriber ahead of this
// snapshot.
func (b *OrderBook) InitSubscription(sub *subscriber.Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscriptions[sub.ID()] = sub

	sub.Enqueue(&models.MStreamResponse{
		Update: &models.MBookUpdate{
			InstrumentID: b.id,
			Snapshot:     b.snapshotLocked(),
		},
	})
}

// -----------------------------------------------------------------------------

// CancelSubscription removes the subscriber's entry from this book.
func (b *OrderBook) CancelSubscription(id uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscriptions, id)
}

// -----------------------------------------------------------------------------

// Snapshot returns up to depth levels per side in market-depth order.
func (b *OrderBook) Snapshot() *models.MSnapshotUpdate {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

// -----------------------------------------------------------------------------

// SubscriptionCount reports the registered (not necessarily live)
// subscription entries.
func (b *OrderBook) SubscriptionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscriptions)
}

// -----------------------------------------------------------------------------

func (b *OrderBook) applyLocked(event models.MMarketEvent) {
	levels := b.asks
	if event.Side == models.SideBid {
		levels = b.bids
	}

	switch event.Event {
	case models.AddLevel:
		existing, ok := levels.Get(priceLevel{price: event.Price})
		if ok {
			levels.Set(priceLevel{price: event.Price, quantity: existing.quantity + event.Quantity})
		} else {
			levels.Set(priceLevel{price: event.Price, quantity: event.Quantity})
		}

	case models.ReduceLevel:
		existing, ok := levels.Get(priceLevel{price: event.Price})
		if !ok {
			// Producer-side bug or stale retransmit; reducing a missing
			// level is a no-op.
			return
		}
		if event.Quantity >= existing.quantity {
			levels.Delete(priceLevel{price: event.Price})
		} else {
			levels.Set(priceLevel{price: event.Price, quantity: existing.quantity - event.Quantity})
		}
	}
}

// -----------------------------------------------------------------------------

// snapshotLocked builds the depth-bounded snapshot. Caller must hold the
// book mutex.
func (b *OrderBook) snapshotLocked() *models.MSnapshotUpdate {
	snapshot := &models.MSnapshotUpdate{}

	var taken uint64
	b.bids.Scan(func(level priceLevel) bool {
		if taken >= b.depth {
			return false
		}
		snapshot.Bids = append(snapshot.Bids, models.MPriceLevel{
			Side:     models.SideBid,
			Price:    level.price,
			Quantity: level.quantity,
		})
		taken++
		return true
	})

	taken = 0
	b.asks.Scan(func(level priceLevel) bool {
		if taken >= b.depth {
			return false
		}
		snapshot.Asks = append(snapshot.Asks, models.MPriceLevel{
			Side:     models.SideAsk,
			Price:    level.price,
			Quantity: level.quantity,
		})
		taken++
		return true
	})

	return snapshot
}

// -----------------------------------------------------------------------------

// NewEventUpdate builds the shared immutable stream message for one applied
// event.
func NewEventUpdate(instrumentID uint32, event models.MMarketEvent) *models.MStreamResponse {
	eventCopy := event
	return &models.MStreamResponse{
		Update: &models.MBookUpdate{
			InstrumentID: instrumentID,
			Incremental:  &eventCopy,
		},
	}
}
