// Package wire implements the exchange's datagram framing: big-endian
// fixed-width integers, the 20-byte sequenced packet header, and the market
// event payload layout.
package wire

import (
	"encoding/binary"
	"fmt"
)

// -----------------------------------------------------------------------------
// Protocol constants
// -----------------------------------------------------------------------------

const (
	// SessionLength is the size of the opaque session identifier.
	SessionLength = 10

	// HeaderLength is the size of the packet header: session + sequence
	// number + message count.
	HeaderLength = SessionLength + 8 + 2

	// MessageHeaderLength is the size of the per-message length prefix that
	// follows the packet header.
	MessageHeaderLength = 2

	// EventPayloadLength is the size of a serialized market event.
	EventPayloadLength = 4 + 1 + 1 + 4 + 4 + 8

	// PacketSize is the total size of a live event packet.
	PacketSize = HeaderLength + MessageHeaderLength + EventPayloadLength

	// EndOfSession is the message-count sentinel marking the end of a
	// producer run. Treated as a count of zero for sequence arithmetic.
	EndOfSession uint16 = 0xFFFF

	// MaxMessageCount is the largest batch a retransmit request may ask for.
	MaxMessageCount uint16 = EndOfSession - 1
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

// TruncatedError reports a buffer shorter than the encoding requires.
type TruncatedError struct {
	Received int
	Expected int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("packet truncated: received %d bytes, expected >= %d", e.Received, e.Expected)
}

// -----------------------------------------------------------------------------
// Big-endian reads
// -----------------------------------------------------------------------------

// ReadUint16 reads a big-endian uint16 at offset.
func ReadUint16(buf []byte, offset int) (uint16, error) {
	if offset+2 > len(buf) {
		return 0, &TruncatedError{Received: len(buf), Expected: offset + 2}
	}
	return binary.BigEndian.Uint16(buf[offset:]), nil
}

// ReadUint32 reads a big-endian uint32 at offset.
func ReadUint32(buf []byte, offset int) (uint32, error) {
	if offset+4 > len(buf) {
		return 0, &TruncatedError{Received: len(buf), Expected: offset + 4}
	}
	return binary.BigEndian.Uint32(buf[offset:]), nil
}

// ReadUint64 reads a big-endian uint64 at offset.
func ReadUint64(buf []byte, offset int) (uint64, error) {
	if offset+8 > len(buf) {
		return 0, &TruncatedError{Received: len(buf), Expected: offset + 8}
	}
	return binary.BigEndian.Uint64(buf[offset:]), nil
}

// -----------------------------------------------------------------------------
// Big-endian writes
// -----------------------------------------------------------------------------

// WriteUint16 writes a big-endian uint16 at offset.
func WriteUint16(buf []byte, offset int, v uint16) error {
	if offset+2 > len(buf) {
		return &TruncatedError{Received: len(buf), Expected: offset + 2}
	}
	binary.BigEndian.PutUint16(buf[offset:], v)
	return nil
}

// WriteUint32 writes a big-endian uint32 at offset.
func WriteUint32(buf []byte, offset int, v uint32) error {
	if offset+4 > len(buf) {
		return &TruncatedError{Received: len(buf), Expected: offset + 4}
	}
	binary.BigEndian.PutUint32(buf[offset:], v)
	return nil
}

// WriteUint64 writes a big-endian uint64 at offset.
func WriteUint64(buf []byte, offset int, v uint64) error {
	if offset+8 > len(buf) {
		return &TruncatedError{Received: len(buf), Expected: offset + 8}
	}
	binary.BigEndian.PutUint64(buf[offset:], v)
	return nil
}
