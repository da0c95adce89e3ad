package book

import (
	"errors"
	"fmt"
	"sort"

	"market-plant/src/models"
)

// -----------------------------------------------------------------------------

// ErrUnknownInstrument is returned for ids outside the configured universe.
var ErrUnknownInstrument = errors.New("unknown instrument id")

// -----------------------------------------------------------------------------

// BookManager is the constant instrument-id → book mapping, built once at
// startup from configuration. Books live for the process lifetime, so the
// map is never mutated after construction and needs no lock.
type BookManager struct {
	books map[uint32]*OrderBook
}

// -----------------------------------------------------------------------------

// NewBookManager creates one book per configured instrument.
func NewBookManager(instruments []*models.MInstrumentConfig) *BookManager {
	books := make(map[uint32]*OrderBook, len(instruments))
	for _, instrument := range instruments {
		books[instrument.InstrumentID] = NewOrderBook(instrument.InstrumentID, instrument.Specifications.Depth)
	}
	return &BookManager{books: books}
}

// -----------------------------------------------------------------------------

// Book returns the book for id, or ErrUnknownInstrument.
func (m *BookManager) Book(id uint32) (*OrderBook, error) {
	b, ok := m.books[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownInstrument, id)
	}
	return b, nil
}

// -----------------------------------------------------------------------------

// IDs returns the configured instrument ids in ascending order.
func (m *BookManager) IDs() []uint32 {
	ids := make([]uint32, 0, len(m.books))
	for id := range m.books {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
