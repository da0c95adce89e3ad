package grpc_control

import (
	"testing"

	"market-plant/src/models"
	"market-plant/src/serializers"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func newTestCodec() *binCodec {
	return &binCodec{serializer: serializers.NewBinSerializer()}
}

// -----------------------------------------------------------------------------

func TestCodecRoundTripStreamResponse(t *testing.T) {
	codec := newTestCodec()

	quantity := models.MMarketEvent{
		InstrumentID: 1,
		Side:         models.SideAsk,
		Event:        models.ReduceLevel,
		Price:        101,
		Quantity:     3,
		ExchangeTS:   42,
	}
	in := &models.MStreamResponse{
		Update: &models.MBookUpdate{
			InstrumentID: 1,
			Incremental:  &quantity,
		},
	}

	data, err := codec.Marshal(in)
	require.NoError(t, err)

	out := new(models.MStreamResponse)
	require.NoError(t, codec.Unmarshal(data, out))
	require.Nil(t, out.Init)
	require.Equal(t, in.Update, out.Update)
}

func TestCodecRoundTripSnapshotFrame(t *testing.T) {
	codec := newTestCodec()

	in := &models.MStreamResponse{
		Update: &models.MBookUpdate{
			InstrumentID: 2,
			Snapshot: &models.MSnapshotUpdate{
				Bids: []models.MPriceLevel{{Side: models.SideBid, Price: 100, Quantity: 5}},
				Asks: []models.MPriceLevel{{Side: models.SideAsk, Price: 101, Quantity: 3}},
			},
		},
	}

	data, err := codec.Marshal(in)
	require.NoError(t, err)

	out := new(models.MStreamResponse)
	require.NoError(t, codec.Unmarshal(data, out))
	require.Equal(t, in.Update, out.Update)
}

func TestCodecRoundTripRequests(t *testing.T) {
	codec := newTestCodec()

	in := &UpdateRequest{
		SubscriberID: 7,
		SessionKey:   []byte("0123456789abcdef"),
		Subscribe:    []uint32{1, 2, 3},
	}

	data, err := codec.Marshal(in)
	require.NoError(t, err)

	out := new(UpdateRequest)
	require.NoError(t, codec.Unmarshal(data, out))
	require.Equal(t, in, out)
}

func TestCodecName(t *testing.T) {
	require.Equal(t, CodecName, newTestCodec().Name())
}
