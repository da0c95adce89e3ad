package grpc_control

// -----------------------------------------------------------------------------
// RPC message types
//
// The wire encoding is the registered serializer codec (see codec.go), so
// these are plain structs rather than generated code.
// -----------------------------------------------------------------------------

// SubscriptionRequest opens an update stream subscribed to the given
// instruments.
type SubscriptionRequest struct {
	Instruments []uint32
}

// -----------------------------------------------------------------------------

// UpdateRequest mutates an existing subscriber's subscription set. Exactly
// one of Subscribe / Unsubscribe must be non-empty, and SessionKey must
// match the key issued in the stream's init frame.
type UpdateRequest struct {
	SubscriberID uint32
	SessionKey   []byte
	Subscribe    []uint32
	Unsubscribe  []uint32
}

// -----------------------------------------------------------------------------

// Ack is the unary control-plane response.
type Ack struct {
	Success   bool
	Message   string
	Timestamp int64
}
