package publishers

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"market-plant/src/interfaces"
	"market-plant/src/logger"
	"market-plant/src/models"

	"github.com/nats-io/nats.go"
)

// -----------------------------------------------------------------------------

// NATSPublisher tees incremental book updates onto the message bus. The gRPC
// stream stays the authoritative fan-out; this copy is fire-and-forget, so a
// lost bus message is never retried and no persistence is negotiated
// client-side (a server-defined stream over the tee subjects covers that
// without any change here).
type NATSPublisher struct {
	name       string
	config     *models.MNATSConfig
	logger     *logger.Logger
	serializer interfaces.ISerializer

	// subjectPrefix is resolved once: "<prefix>.marketdata." or "marketdata.".
	subjectPrefix string

	nc        *nats.Conn
	connected atomic.Bool
}

// -----------------------------------------------------------------------------

// NewNATSPublisher creates a new NATS publisher instance
func NewNATSPublisher(config *models.MNATSConfig, lg *logger.Logger, serializer interfaces.ISerializer) interfaces.IPublisher {
	prefix := "marketdata."
	if config.SubjectPrefix != "" {
		prefix = config.SubjectPrefix + ".marketdata."
	}

	return &NATSPublisher{
		name:          config.ClientID,
		config:        config,
		logger:        lg,
		serializer:    serializer,
		subjectPrefix: prefix,
	}
}

// -----------------------------------------------------------------------------

// OnBookUpdate serialises one book update and publishes it on the
// per-instrument subject. Updates racing a reconnect are dropped.
func (np *NATSPublisher) OnBookUpdate(update *models.MBookUpdate) {
	if !np.connected.Load() {
		return
	}

	subject := np.subjectPrefix + strconv.FormatUint(uint64(update.InstrumentID), 10)

	data, err := np.serializer.Marshal(update)
	if err != nil {
		np.logger.Error("%s : failed to serialize update for subject %s: %v", np.name, subject, err)
		return
	}

	if err := np.nc.Publish(subject, data); err != nil {
		np.logger.Error("%s : failed to publish update for instrument %d on %s: %v",
			np.name, update.InstrumentID, subject, err)
	}
}

// -----------------------------------------------------------------------------

// Connect dials the configured servers. Reconnection afterwards is the
// client's business; the handlers below keep the connected flag honest so
// OnBookUpdate can drop instead of erroring while the link is down.
func (np *NATSPublisher) Connect() error {
	if np.connected.Load() {
		return nil
	}

	nc, err := nats.Connect(strings.Join(np.config.Servers, ","), np.options()...)
	if err != nil {
		return fmt.Errorf("nats connection failed: %w", err)
	}

	np.nc = nc
	np.connected.Store(true)
	np.logger.Info("%s : connected to NATS at %s", np.name, nc.ConnectedUrl())
	return nil
}

// -----------------------------------------------------------------------------

// options maps the config knobs onto client options and installs the
// connection-state handlers.
func (np *NATSPublisher) options() []nats.Option {
	return []nats.Option{
		nats.Name(np.config.ClientID),
		nats.Timeout(np.config.ConnectTimeout),
		nats.ReconnectWait(np.config.ReconnectWait),
		nats.MaxReconnects(np.config.MaxReconnects),
		nats.RetryOnFailedConnect(true),

		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			np.connected.Store(false)
			np.logger.Warning("%s : NATS disconnected, reconnecting: %v", np.name, err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			np.connected.Store(true)
			np.logger.Info("%s : NATS reconnected to %s", np.name, nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			np.connected.Store(false)
		}),
	}
}

// -----------------------------------------------------------------------------

// Disconnect drains queued tee messages, then closes the connection.
func (np *NATSPublisher) Disconnect() error {
	if np.nc == nil || np.nc.IsClosed() {
		return nil
	}

	np.connected.Store(false)
	if err := np.nc.Drain(); err != nil {
		np.nc.Close()
		return fmt.Errorf("nats drain failed: %w", err)
	}

	np.logger.Info("%s : NATS connection closed", np.name)
	return nil
}

// -----------------------------------------------------------------------------

// IsConnected returns the current connection status
func (np *NATSPublisher) IsConnected() bool {
	return np.connected.Load()
}
