package feed

import (
	"context"
	"testing"

	"market-plant/src/book"
	"market-plant/src/logger"
	"market-plant/src/models"
	"market-plant/src/wire"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func newTestFeed(t *testing.T, instrumentIDs ...uint32) (*ExchangeFeed, *book.BookManager) {
	t.Helper()

	instruments := make([]*models.MInstrumentConfig, 0, len(instrumentIDs))
	for _, id := range instrumentIDs {
		instruments = append(instruments, &models.MInstrumentConfig{
			InstrumentID:   id,
			Specifications: models.MSpecifications{Depth: 10},
		})
	}
	books := book.NewBookManager(instruments)

	ctx, cancel := context.WithCancel(context.Background())
	f := &ExchangeFeed{
		Name:   "ExchangeFeed",
		logger: logger.NewLogger("test"),
		books:  books,
		ctx:    ctx,
		cancel: cancel,
	}
	return f, books
}

func payload(t *testing.T, event models.MMarketEvent) []byte {
	t.Helper()
	buf := make([]byte, wire.EventPayloadLength)
	require.NoError(t, wire.WriteEvent(buf, event))
	return buf
}

// -----------------------------------------------------------------------------

func TestHandleEventAppliesToBook(t *testing.T) {
	f, books := newTestFeed(t, 1)

	f.handleEvent(payload(t, models.MMarketEvent{
		InstrumentID: 1,
		Side:         models.SideBid,
		Event:        models.AddLevel,
		Price:        100,
		Quantity:     5,
	}))

	b, err := books.Book(1)
	require.NoError(t, err)

	snapshot := b.Snapshot()
	require.Equal(t, []models.MPriceLevel{{Side: models.SideBid, Price: 100, Quantity: 5}}, snapshot.Bids)
}

func TestHandleEventSkipsUnconfiguredInstrument(t *testing.T) {
	f, books := newTestFeed(t, 1)

	f.handleEvent(payload(t, models.MMarketEvent{
		InstrumentID: 42,
		Side:         models.SideBid,
		Event:        models.AddLevel,
		Price:        100,
		Quantity:     5,
	}))

	b, err := books.Book(1)
	require.NoError(t, err)
	require.Empty(t, b.Snapshot().Bids)
}

func TestHandleEventSkipsUnknownKind(t *testing.T) {
	f, books := newTestFeed(t, 1)

	f.handleEvent(payload(t, models.MMarketEvent{
		InstrumentID: 1,
		Side:         models.SideBid,
		Event:        models.LevelEvent(9),
		Price:        100,
		Quantity:     5,
	}))

	b, err := books.Book(1)
	require.NoError(t, err)
	require.Empty(t, b.Snapshot().Bids)
}

func TestHandleEventSkipsMalformedPayload(t *testing.T) {
	f, _ := newTestFeed(t, 1)

	// Shorter than an event payload: logged and dropped, no panic.
	f.handleEvent(make([]byte, wire.EventPayloadLength-4))
}
