// Package feed glues the exchange-facing side of the plant together: the
// datagram loop, the sequenced receiver, event parsing, book application,
// and the optional message-bus tee.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"market-plant/src/book"
	"market-plant/src/config"
	"market-plant/src/interfaces"
	"market-plant/src/logger"
	"market-plant/src/metrics"
	"market-plant/src/models"
	"market-plant/src/moldudp64"
	"market-plant/src/publishers"
	"market-plant/src/serializers"
	"market-plant/src/transports"
	"market-plant/src/wire"
)

// -----------------------------------------------------------------------------

// recvBufferSize comfortably fits any packet the protocol produces.
const recvBufferSize = 512

// -----------------------------------------------------------------------------

// ExchangeFeed runs the single receiver thread: datagrams in, book updates
// and subscriber fan-out downstream.
type ExchangeFeed struct {
	Name   string
	config *config.Config
	logger *logger.Logger

	books     *book.BookManager
	messenger interfaces.IMessenger
	receiver  *moldudp64.Receiver

	// publisher is the optional NATS tee; nil when not configured.
	publisher interfaces.IPublisher

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// -----------------------------------------------------------------------------

// NewExchangeFeed binds the market socket and wires the receiver. A socket
// failure here is fatal to the caller.
func NewExchangeFeed(cfg *config.Config, lg *logger.Logger, books *book.BookManager) (*ExchangeFeed, error) {
	messenger, err := transports.NewUDPMessenger(cfg.MarketIP, cfg.MarketPort, cfg.ExchangeIP, cfg.ExchangePort, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to open exchange feed socket: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	f := &ExchangeFeed{
		Name:      "ExchangeFeed",
		config:    cfg,
		logger:    lg,
		books:     books,
		messenger: messenger,
		receiver:  moldudp64.NewReceiver(0, messenger, lg),
		ctx:       ctx,
		cancel:    cancel,
	}

	if cfg.NATS != nil && cfg.NATS.Enabled {
		f.publisher = publishers.NewNATSPublisher(cfg.NATS, lg, serializers.NewJSONSerializer())
	}

	return f, nil
}

// -----------------------------------------------------------------------------

// Start connects the optional publisher and launches the receive loop.
func (f *ExchangeFeed) Start() error {
	if f.publisher != nil {
		f.logger.Info("%s : connecting to publisher", f.Name)
		if err := f.publisher.Connect(); err != nil {
			return fmt.Errorf("failed to connect to publisher: %w", err)
		}
	}

	f.wg.Add(1)
	go f.run()

	f.logger.Info("%s : started, listening for exchange datagrams", f.Name)
	return nil
}

// -----------------------------------------------------------------------------

// Stop closes the socket (unblocking the receive loop) and waits for it to
// exit, then disconnects the publisher.
func (f *ExchangeFeed) Stop() {
	f.cancel()
	if err := f.messenger.Close(); err != nil {
		f.logger.Error("%s : failed to close feed socket: %v", f.Name, err)
	}
	f.wg.Wait()

	if f.publisher != nil {
		if err := f.publisher.Disconnect(); err != nil {
			f.logger.Error("%s : failed to disconnect publisher: %v", f.Name, err)
		}
	}

	f.logger.Info("%s : stopped", f.Name)
}

// -----------------------------------------------------------------------------

// run is the receiver thread. The receiver state machine is single-writer;
// this is the only goroutine that touches it.
func (f *ExchangeFeed) run() {
	defer f.wg.Done()

	buf := make([]byte, recvBufferSize)

	for {
		n, err := f.messenger.Recv(buf)
		if f.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
			return
		}
		if err != nil {
			f.logger.Error("%s : recv failed: %v", f.Name, err)
			continue
		}
		if n <= 0 {
			// Spurious wakeup; retry.
			continue
		}

		metrics.PacketsReceived.Inc()

		delivered, err := f.receiver.HandlePacket(buf[:n])
		if err != nil {
			metrics.PacketsTruncated.Inc()
			f.logger.Error("%s : dropping packet: %v", f.Name, err)
			continue
		}
		if delivered {
			f.handleEvent(f.receiver.MessageView())
		}
	}
}

// -----------------------------------------------------------------------------

// handleEvent parses one delivered payload and applies it to its book. A
// malformed or unroutable event is logged and skipped; the receiver has
// already advanced past it, so the stream cannot stall.
func (f *ExchangeFeed) handleEvent(payload []byte) {
	event, err := wire.ParseEvent(payload)
	if err != nil {
		f.logger.Error("%s : dropping malformed event payload: %v", f.Name, err)
		return
	}

	if event.Event != models.AddLevel && event.Event != models.ReduceLevel {
		f.logger.Warning("%s : dropping event with unknown kind %d for instrument %d",
			f.Name, event.Event, event.InstrumentID)
		return
	}

	b, err := f.books.Book(event.InstrumentID)
	if err != nil {
		f.logger.Warning("%s : dropping event for unconfigured instrument %d", f.Name, event.InstrumentID)
		return
	}

	b.ApplyAndPublish(event)

	if f.publisher != nil && f.publisher.IsConnected() {
		eventCopy := event
		f.publisher.OnBookUpdate(&models.MBookUpdate{
			InstrumentID: event.InstrumentID,
			Incremental:  &eventCopy,
		})
	}
}
