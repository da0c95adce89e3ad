package publishers

import (
	"testing"

	"market-plant/src/logger"
	"market-plant/src/models"
	"market-plant/src/serializers"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func newTestPublisher(prefix string) *NATSPublisher {
	cfg := &models.MNATSConfig{
		Enabled:       true,
		Servers:       []string{"nats://127.0.0.1:4222"},
		ClientID:      "test-plant",
		SubjectPrefix: prefix,
	}
	return NewNATSPublisher(cfg, logger.NewLogger("test"), serializers.NewJSONSerializer()).(*NATSPublisher)
}

// -----------------------------------------------------------------------------

func TestSubjectPrefixResolvedOnce(t *testing.T) {
	require.Equal(t, "marketdata.", newTestPublisher("").subjectPrefix)
	require.Equal(t, "plant-a.marketdata.", newTestPublisher("plant-a").subjectPrefix)
}

func TestOnBookUpdateDropsWhileDisconnected(t *testing.T) {
	np := newTestPublisher("")
	require.False(t, np.IsConnected())

	// No connection yet: the update is dropped, not published or panicked on.
	np.OnBookUpdate(&models.MBookUpdate{InstrumentID: 1})
}

func TestDisconnectWithoutConnectIsNoOp(t *testing.T) {
	np := newTestPublisher("")
	require.NoError(t, np.Disconnect())
}
