package wire

import "market-plant/src/models"

// -----------------------------------------------------------------------------

// ParseEvent parses one market event from a message payload (the bytes after
// the per-message length prefix).
func ParseEvent(payload []byte) (models.MMarketEvent, error) {
	var event models.MMarketEvent

	if len(payload) < EventPayloadLength {
		return event, &TruncatedError{Received: len(payload), Expected: EventPayloadLength}
	}

	offset := 0

	instrument, err := ReadUint32(payload, offset)
	if err != nil {
		return event, err
	}
	event.InstrumentID = instrument
	offset += 4

	event.Side = models.Side(payload[offset])
	offset++
	event.Event = models.LevelEvent(payload[offset])
	offset++

	price, err := ReadUint32(payload, offset)
	if err != nil {
		return event, err
	}
	event.Price = price
	offset += 4

	quantity, err := ReadUint32(payload, offset)
	if err != nil {
		return event, err
	}
	event.Quantity = quantity
	offset += 4

	ts, err := ReadUint64(payload, offset)
	if err != nil {
		return event, err
	}
	event.ExchangeTS = ts

	return event, nil
}

// -----------------------------------------------------------------------------

// WriteEvent serialises a market event into the first EventPayloadLength
// bytes of buf.
func WriteEvent(buf []byte, event models.MMarketEvent) error {
	if len(buf) < EventPayloadLength {
		return &TruncatedError{Received: len(buf), Expected: EventPayloadLength}
	}

	offset := 0
	if err := WriteUint32(buf, offset, event.InstrumentID); err != nil {
		return err
	}
	offset += 4

	buf[offset] = byte(event.Side)
	offset++
	buf[offset] = byte(event.Event)
	offset++

	if err := WriteUint32(buf, offset, event.Price); err != nil {
		return err
	}
	offset += 4

	if err := WriteUint32(buf, offset, event.Quantity); err != nil {
		return err
	}
	offset += 4

	return WriteUint64(buf, offset, event.ExchangeTS)
}

// -----------------------------------------------------------------------------

// MarshalPacket builds a full live event packet: header, length prefix, and
// event payload. The producer side of the protocol.
func MarshalPacket(session [SessionLength]byte, sequence uint64, event models.MMarketEvent) ([]byte, error) {
	buf := make([]byte, PacketSize)

	if err := WriteHeader(buf, session, sequence, 1); err != nil {
		return nil, err
	}
	if err := WriteUint16(buf, HeaderLength, EventPayloadLength); err != nil {
		return nil, err
	}
	if err := WriteEvent(buf[HeaderLength+MessageHeaderLength:], event); err != nil {
		return nil, err
	}

	return buf, nil
}
