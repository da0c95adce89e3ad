package grpc_control

import (
	"fmt"

	"market-plant/src/interfaces"
	"market-plant/src/serializers"

	"google.golang.org/grpc/encoding"
)

// -----------------------------------------------------------------------------

// CodecName is the gRPC content-subtype clients request to speak the
// serializer-backed wire format.
const CodecName = "bin"

// -----------------------------------------------------------------------------

// binCodec adapts the serializer layer to gRPC's encoding.Codec. No code
// generation is committed for the RPC surface; both ends of the wire are
// this repository, so the gob serializer carries the messages.
type binCodec struct {
	serializer interfaces.ISerializer
}

func init() {
	encoding.RegisterCodec(&binCodec{serializer: serializers.NewBinSerializer()})
}

// -----------------------------------------------------------------------------

func (c *binCodec) Marshal(v interface{}) ([]byte, error) {
	data, err := c.serializer.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec marshal error: %w", err)
	}
	return data, nil
}

func (c *binCodec) Unmarshal(data []byte, v interface{}) error {
	if err := c.serializer.Unmarshal(data, v); err != nil {
		return fmt.Errorf("codec unmarshal error: %w", err)
	}
	return nil
}

func (c *binCodec) Name() string {
	return CodecName
}
