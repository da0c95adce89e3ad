package book

import (
	"errors"
	"testing"

	"market-plant/src/models"
)

func testInstruments(ids ...uint32) []*models.MInstrumentConfig {
	instruments := make([]*models.MInstrumentConfig, 0, len(ids))
	for _, id := range ids {
		instruments = append(instruments, &models.MInstrumentConfig{
			InstrumentID:   id,
			Specifications: models.MSpecifications{Depth: 10},
		})
	}
	return instruments
}

func TestManagerLookup(t *testing.T) {
	m := NewBookManager(testInstruments(3, 1, 2))

	b, err := m.Book(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.ID() != 2 || b.Depth() != 10 {
		t.Fatalf("unexpected book: id=%d depth=%d", b.ID(), b.Depth())
	}
}

func TestManagerUnknownInstrument(t *testing.T) {
	m := NewBookManager(testInstruments(1))

	_, err := m.Book(42)
	if err == nil {
		t.Fatal("expected error for unknown instrument")
	}
	if !errors.Is(err, ErrUnknownInstrument) {
		t.Fatalf("expected ErrUnknownInstrument, got %v", err)
	}
}

func TestManagerIDsSorted(t *testing.T) {
	m := NewBookManager(testInstruments(5, 1, 3))

	ids := m.IDs()
	want := []uint32{1, 3, 5}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}
