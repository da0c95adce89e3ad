package book

import (
	"testing"

	"market-plant/src/models"
	"market-plant/src/subscriber"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

func addEvent(side models.Side, price, quantity uint32) models.MMarketEvent {
	return models.MMarketEvent{
		InstrumentID: 1,
		Side:         side,
		Event:        models.AddLevel,
		Price:        price,
		Quantity:     quantity,
	}
}

func reduceEvent(side models.Side, price, quantity uint32) models.MMarketEvent {
	return models.MMarketEvent{
		InstrumentID: 1,
		Side:         side,
		Event:        models.ReduceLevel,
		Price:        price,
		Quantity:     quantity,
	}
}

func newTestSubscriber(id uint32, instruments ...uint32) *subscriber.Subscriber {
	return subscriber.NewSubscriber(id, []byte("0123456789abcdef"), instruments)
}

// -----------------------------------------------------------------------------
// apply semantics
// -----------------------------------------------------------------------------

func TestApplyAddAccumulates(t *testing.T) {
	b := NewOrderBook(1, 10)

	b.Apply(addEvent(models.SideBid, 100, 5))
	b.Apply(addEvent(models.SideBid, 100, 2))

	snapshot := b.Snapshot()
	require.Equal(t, []models.MPriceLevel{{Side: models.SideBid, Price: 100, Quantity: 7}}, snapshot.Bids)
	require.Empty(t, snapshot.Asks)
}

func TestApplyReducePartial(t *testing.T) {
	b := NewOrderBook(1, 10)

	b.Apply(addEvent(models.SideAsk, 101, 5))
	b.Apply(reduceEvent(models.SideAsk, 101, 3))

	snapshot := b.Snapshot()
	require.Equal(t, []models.MPriceLevel{{Side: models.SideAsk, Price: 101, Quantity: 2}}, snapshot.Asks)
}

func TestApplyReduceErasesLevel(t *testing.T) {
	b := NewOrderBook(1, 10)

	// Exact reduce and over-reduce both erase: no zero-quantity levels.
	b.Apply(addEvent(models.SideBid, 100, 5))
	b.Apply(reduceEvent(models.SideBid, 100, 5))
	require.Empty(t, b.Snapshot().Bids)

	b.Apply(addEvent(models.SideBid, 99, 5))
	b.Apply(reduceEvent(models.SideBid, 99, 8))
	require.Empty(t, b.Snapshot().Bids)
}

func TestApplyReduceMissingLevelIgnored(t *testing.T) {
	b := NewOrderBook(1, 10)

	b.Apply(addEvent(models.SideBid, 100, 5))
	b.Apply(reduceEvent(models.SideBid, 42, 3))
	b.Apply(reduceEvent(models.SideAsk, 100, 3))

	snapshot := b.Snapshot()
	require.Equal(t, []models.MPriceLevel{{Side: models.SideBid, Price: 100, Quantity: 5}}, snapshot.Bids)
	require.Empty(t, snapshot.Asks)
}

// -----------------------------------------------------------------------------
// snapshot ordering and depth
// -----------------------------------------------------------------------------

func TestSnapshotMarketDepthOrder(t *testing.T) {
	b := NewOrderBook(1, 10)

	for _, price := range []uint32{95, 100, 97} {
		b.Apply(addEvent(models.SideBid, price, 1))
	}
	for _, price := range []uint32{105, 102, 108} {
		b.Apply(addEvent(models.SideAsk, price, 1))
	}

	snapshot := b.Snapshot()

	bidPrices := make([]uint32, 0, len(snapshot.Bids))
	for _, level := range snapshot.Bids {
		bidPrices = append(bidPrices, level.Price)
	}
	require.Equal(t, []uint32{100, 97, 95}, bidPrices, "bids must iterate descending")

	askPrices := make([]uint32, 0, len(snapshot.Asks))
	for _, level := range snapshot.Asks {
		askPrices = append(askPrices, level.Price)
	}
	require.Equal(t, []uint32{102, 105, 108}, askPrices, "asks must iterate ascending")
}

func TestSnapshotDepthBound(t *testing.T) {
	b := NewOrderBook(1, 3)

	for price := uint32(1); price <= 8; price++ {
		b.Apply(addEvent(models.SideBid, price, 1))
		b.Apply(addEvent(models.SideAsk, price+100, 1))
	}

	snapshot := b.Snapshot()
	require.Len(t, snapshot.Bids, 3)
	require.Len(t, snapshot.Asks, 3)
	// Depth takes the top of the book: best bids are the highest prices.
	require.Equal(t, uint32(8), snapshot.Bids[0].Price)
	require.Equal(t, uint32(101), snapshot.Asks[0].Price)
}

// -----------------------------------------------------------------------------
// subscription fan-out
// -----------------------------------------------------------------------------

func TestSnapshotBeforeIncrements(t *testing.T) {
	b := NewOrderBook(1, 10)
	b.Apply(addEvent(models.SideBid, 100, 5))
	b.Apply(addEvent(models.SideAsk, 101, 3))

	sub := newTestSubscriber(1, 1)
	b.InitSubscription(sub)
	b.ApplyAndPublish(addEvent(models.SideBid, 100, 2))

	// First frame: the snapshot taken at registration.
	first := sub.WaitDequeue(t.Context())
	require.NotNil(t, first.Update)
	require.NotNil(t, first.Update.Snapshot)
	require.Equal(t, []models.MPriceLevel{{Side: models.SideBid, Price: 100, Quantity: 5}}, first.Update.Snapshot.Bids)
	require.Equal(t, []models.MPriceLevel{{Side: models.SideAsk, Price: 101, Quantity: 3}}, first.Update.Snapshot.Asks)

	// Second frame: the increment applied after registration.
	second := sub.WaitDequeue(t.Context())
	require.NotNil(t, second.Update)
	require.NotNil(t, second.Update.Incremental)
	require.Equal(t, uint32(2), second.Update.Incremental.Quantity)
	require.Equal(t, uint32(100), second.Update.Incremental.Price)
}

func TestFanOutSharesOneUpdate(t *testing.T) {
	b := NewOrderBook(1, 10)

	subA := newTestSubscriber(1, 1)
	subB := newTestSubscriber(2, 1)
	b.InitSubscription(subA)
	b.InitSubscription(subB)

	b.ApplyAndPublish(addEvent(models.SideBid, 100, 5))

	subA.WaitDequeue(t.Context()) // snapshots
	subB.WaitDequeue(t.Context())

	updateA := subA.WaitDequeue(t.Context())
	updateB := subB.WaitDequeue(t.Context())
	require.Same(t, updateA, updateB, "fan-out must share one immutable update message")
}

func TestFanOutPrunesDeadSubscribers(t *testing.T) {
	b := NewOrderBook(1, 10)

	sub := newTestSubscriber(1, 1)
	b.InitSubscription(sub)
	require.Equal(t, 1, b.SubscriptionCount())

	sub.MarkDead()
	b.ApplyAndPublish(addEvent(models.SideBid, 100, 5))

	require.Equal(t, 0, b.SubscriptionCount(), "dead subscriber must be pruned on fan-out")
	// Only the snapshot from registration; the dead subscriber got no update.
	require.Equal(t, 1, sub.QueueLen())
}

func TestCancelSubscriptionStopsUpdates(t *testing.T) {
	b := NewOrderBook(1, 10)

	sub := newTestSubscriber(7, 1)
	b.InitSubscription(sub)
	b.CancelSubscription(7)

	b.ApplyAndPublish(addEvent(models.SideBid, 100, 5))
	require.Equal(t, 1, sub.QueueLen(), "only the registration snapshot expected")
}
