// Package moldudp64 implements the reliable sequenced-datagram receiver:
// gap detection, throttled retransmit requests, cold-start backfill,
// duplicate suppression, and end-of-session handling.
package moldudp64

import (
	"bytes"
	"time"

	"market-plant/src/interfaces"
	"market-plant/src/logger"
	"market-plant/src/metrics"
	"market-plant/src/wire"
)

// -----------------------------------------------------------------------------

const (
	// RetransmitTimeout throttles repeat requests for the same gap.
	RetransmitTimeout = 1000 * time.Millisecond

	// synchronized is the recovery-bound sentinel meaning "no active gap".
	// Valid active bounds are always strictly greater than nextExpected, so
	// zero is free to carry this meaning.
	synchronized uint64 = 0
)

// -----------------------------------------------------------------------------

// Receiver is the per-session sequencing state machine. It is single-writer
// by design: exactly one goroutine may call HandlePacket, and all fan-out
// parallelism lives downstream of the delivered message.
type Receiver struct {
	logger    *logger.Logger
	messenger interfaces.IMessenger

	nextExpected    uint64
	recoveryUntil   uint64
	recoverySet     bool
	lastRequestSent time.Time

	session    [wire.SessionLength]byte
	sessionSet bool

	// msg is a view into the last handled packet, valid until the next
	// HandlePacket call.
	msg []byte

	now func() time.Time
}

// -----------------------------------------------------------------------------

// NewReceiver creates a receiver expecting startSequence next. Zero means
// "align to the first packet received" (cold start).
func NewReceiver(startSequence uint64, messenger interfaces.IMessenger, lg *logger.Logger) *Receiver {
	return &Receiver{
		logger:       lg,
		messenger:    messenger,
		nextExpected: startSequence,
		now:          time.Now,
	}
}

// -----------------------------------------------------------------------------

// HandlePacket runs one datagram through the state machine. It returns true
// when an in-order message payload is ready in MessageView; the payload view
// is only valid until the next call. Errors are truncations: the packet is
// dropped without delivery and the expected sequence does not advance. A
// truncated message frame on an in-order packet is detected only after the
// recovery bookkeeping for that packet has run.
func (r *Receiver) HandlePacket(buf []byte) (bool, error) {
	r.msg = nil

	header, err := wire.ParsePacketHeader(buf)
	if err != nil {
		return false, err
	}

	if !r.sessionSet {
		r.session = header.Session
		r.sessionSet = true
	} else if !bytes.Equal(r.session[:], header.Session[:]) {
		// Producers use one session per run; a different session is another
		// run's traffic.
		r.logger.Warning("moldudp64 : dropping packet from foreign session %q (latched %q)",
			header.Session[:], r.session[:])
		return false, nil
	}

	nextSequence := header.SequenceNumber + uint64(header.MessageCount)

	// Cold-start alignment: begin the stream wherever the producer is.
	if r.nextExpected == 0 {
		r.nextExpected = header.SequenceNumber
	}

	switch {
	case header.SequenceNumber > r.nextExpected:
		// A packet has been dropped or delayed; a gap exists.
		r.handleGap(nextSequence)
		return false, nil

	case header.SequenceNumber < r.nextExpected:
		// Duplicate or stale packet: never delivered twice.
		metrics.DuplicatesDropped.Inc()
		return false, nil
	}

	// In-order packet: recovery bookkeeping first.
	if !r.recoverySet {
		// Cold start has produced its first in-order packet.
		r.recoverySet = true
		r.recoveryUntil = synchronized
	} else if r.recoveryUntil == nextSequence {
		// Reached the recovery window's end bound; the gap is filled.
		r.recoveryUntil = synchronized
	} else if r.recoveryUntil != synchronized {
		// Still recovering: pipeline the request for the next missing packet.
		r.request(nextSequence)
	}

	if header.EndOfSession {
		return false, nil
	}

	if err := r.read(buf); err != nil {
		return false, err
	}
	return true, nil
}

// -----------------------------------------------------------------------------

// MessageView returns the payload delivered by the last HandlePacket call.
func (r *Receiver) MessageView() []byte {
	return r.msg
}

// NextExpected returns the next sequence number the receiver will deliver.
func (r *Receiver) NextExpected() uint64 {
	return r.nextExpected
}

// Synchronized reports whether the receiver has no active recovery window.
func (r *Receiver) Synchronized() bool {
	return r.recoverySet && r.recoveryUntil == synchronized
}

// RecoveryUntil returns the exclusive upper bound of the active recovery
// window, or (0, false) when there is none.
func (r *Receiver) RecoveryUntil() (uint64, bool) {
	if !r.recoverySet || r.recoveryUntil == synchronized {
		return 0, false
	}
	return r.recoveryUntil, true
}

// -----------------------------------------------------------------------------

// handleGap processes a packet ahead of the expected sequence.
func (r *Receiver) handleGap(nextSequence uint64) {
	if !r.recoverySet {
		// Backfill: connected late, catch up from the first expected packet.
		metrics.GapsDetected.Inc()
		r.recoverySet = true
		r.recoveryUntil = nextSequence
		r.request(r.nextExpected)

	} else if r.recoveryUntil == synchronized {
		// Gap-fill: previously synchronized stream lost packets.
		metrics.GapsDetected.Inc()
		r.recoveryUntil = nextSequence
		r.request(r.nextExpected)

	} else {
		// Already recovering: widen the window if needed, throttle retries.
		if nextSequence > r.recoveryUntil {
			r.recoveryUntil = nextSequence
		}
		if r.now().Sub(r.lastRequestSent) > RetransmitTimeout {
			r.request(r.nextExpected)
		}
	}
}

// -----------------------------------------------------------------------------

// request sends a retransmit request for the window [sequence, recoveryUntil)
// on the feed socket, reusing the header frame with the latched session.
func (r *Receiver) request(sequence uint64) {
	remaining := r.recoveryUntil - sequence
	if remaining > uint64(wire.MaxMessageCount) {
		remaining = uint64(wire.MaxMessageCount)
	}

	var header [wire.HeaderLength]byte
	if err := wire.WriteHeader(header[:], r.session, sequence, uint16(remaining)); err != nil {
		r.logger.Error("moldudp64 : failed to build retransmit request: %v", err)
		return
	}

	if err := r.messenger.Send(header[:]); err != nil {
		r.logger.Error("moldudp64 : failed to send retransmit request for seq %d: %v", sequence, err)
	}
	metrics.RetransmitRequests.Inc()
	r.lastRequestSent = r.now()
}

// -----------------------------------------------------------------------------

// read bounds-checks the message frame and exposes the payload view, then
// advances the expected sequence: the message counts as delivered.
func (r *Receiver) read(buf []byte) error {
	messageLen, err := wire.ReadUint16(buf, wire.HeaderLength)
	if err != nil {
		return err
	}

	offset := wire.HeaderLength + wire.MessageHeaderLength
	end := offset + int(messageLen)
	if end > len(buf) {
		return &wire.TruncatedError{Received: len(buf), Expected: end}
	}

	r.msg = buf[offset:end]
	r.nextExpected++
	metrics.MessagesDelivered.Inc()
	return nil
}
