package models

// -----------------------------------------------------------------------------

// MPriceLevel is one resting level of a book snapshot.
type MPriceLevel struct {
	Side     Side   `json:"side"`
	Price    uint32 `json:"price"`
	Quantity uint32 `json:"quantity"`
}

// -----------------------------------------------------------------------------

// MInitFrame is the first frame written on a new update stream. The session
// key authorises later control-plane calls for this subscriber.
type MInitFrame struct {
	SubscriberID uint32 `json:"subscriber_id"`
	SessionKey   []byte `json:"session_key"`
}

// -----------------------------------------------------------------------------

// MSnapshotUpdate is a depth-bounded view of both sides of one book, emitted
// as ADD_LEVEL records in market-depth order (bids descending, asks
// ascending).
type MSnapshotUpdate struct {
	Bids []MPriceLevel `json:"bids"`
	Asks []MPriceLevel `json:"asks"`
}

// -----------------------------------------------------------------------------

// MBookUpdate carries either a snapshot or a single incremental event for one
// instrument. Exactly one of Snapshot / Incremental is set.
type MBookUpdate struct {
	InstrumentID uint32           `json:"instrument_id"`
	Snapshot     *MSnapshotUpdate `json:"snapshot,omitempty"`
	Incremental  *MMarketEvent    `json:"incremental,omitempty"`
}

// -----------------------------------------------------------------------------

// MStreamResponse is one frame of the update stream: either the init frame
// (first frame only) or a book update. Updates are built once per applied
// event and shared immutably across every subscriber queue that references
// them; no field may be mutated after construction.
type MStreamResponse struct {
	Init   *MInitFrame  `json:"init,omitempty"`
	Update *MBookUpdate `json:"update,omitempty"`
}
