package wire

// -----------------------------------------------------------------------------

// PacketHeader is the parsed 20-byte sequenced packet header.
type PacketHeader struct {
	Session        [SessionLength]byte
	SequenceNumber uint64
	MessageCount   uint16
	EndOfSession   bool
}

// -----------------------------------------------------------------------------

// ParsePacketHeader parses the header at the start of buf. The 0xFFFF
// end-of-session sentinel is reported through EndOfSession and the count is
// normalised to zero so sequence arithmetic stays uniform.
func ParsePacketHeader(buf []byte) (PacketHeader, error) {
	var header PacketHeader

	if len(buf) < HeaderLength {
		return header, &TruncatedError{Received: len(buf), Expected: HeaderLength}
	}

	offset := 0
	copy(header.Session[:], buf[offset:offset+SessionLength])
	offset += SessionLength

	sequence, err := ReadUint64(buf, offset)
	if err != nil {
		return header, err
	}
	header.SequenceNumber = sequence
	offset += 8

	// INVARIANT: one message per packet in normal operation.
	count, err := ReadUint16(buf, offset)
	if err != nil {
		return header, err
	}

	header.EndOfSession = count == EndOfSession
	if header.EndOfSession {
		count = 0
	}
	header.MessageCount = count

	return header, nil
}

// -----------------------------------------------------------------------------

// WriteHeader serialises a packet header into the first HeaderLength bytes
// of buf. Used for retransmit requests and by the simulator's sender.
func WriteHeader(buf []byte, session [SessionLength]byte, sequence uint64, count uint16) error {
	if len(buf) < HeaderLength {
		return &TruncatedError{Received: len(buf), Expected: HeaderLength}
	}

	offset := 0
	copy(buf[offset:offset+SessionLength], session[:])
	offset += SessionLength

	if err := WriteUint64(buf, offset, sequence); err != nil {
		return err
	}
	offset += 8

	return WriteUint16(buf, offset, count)
}
