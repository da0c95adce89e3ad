// Package exchange implements the reference producer: a simulator that
// generates synthetic order-book events, emits them with strictly increasing
// sequence numbers, and replays history on retransmit request.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"market-plant/src/interfaces"
	"market-plant/src/logger"
	"market-plant/src/models"
	"market-plant/src/transports"
	"market-plant/src/wire"
)

// -----------------------------------------------------------------------------

// MaxExchangeEvents bounds the retransmit history for one simulator run.
const MaxExchangeEvents = 1_000_000

// Session is the simulator's fixed per-run session identifier.
var Session = [wire.SessionLength]byte{'E', 'X', 'C', 'H', 'A', 'N', 'G', 'E', 'I', 'D'}

// -----------------------------------------------------------------------------

// bookState is one side of the simulator's live book: the resting levels
// plus the pool of prices not currently occupied.
type bookState struct {
	levels      map[uint32]uint32
	availPrices []uint32
}

type instrumentState struct {
	bids *bookState
	asks *bookState
}

type eventToSend struct {
	event    models.MMarketEvent
	sequence uint64
}

// -----------------------------------------------------------------------------

// Simulator runs three concurrent activities over one socket: the generator
// produces events and assigns sequence numbers, the sender serialises and
// transmits them, and the retransmitter replays history on request.
type Simulator struct {
	Name   string
	config Config
	logger *logger.Logger

	messenger interfaces.IMessenger

	books     map[uint32]*instrumentState
	sendQueue chan eventToSend

	// historyMu guards history and sequence: assigning a sequence number
	// and recording the event are one atomic step.
	historyMu sync.Mutex
	history   []models.MMarketEvent

	rng *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// -----------------------------------------------------------------------------

// NewSimulator binds the exchange socket. A bind failure is fatal to the
// caller.
func NewSimulator(cfg Config, lg *logger.Logger) (*Simulator, error) {
	messenger, err := transports.NewUDPListener(cfg.ExchangePort, cfg.PlantIP, cfg.PlantPort, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to open exchange socket: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Simulator{
		Name:      "ExchangeSimulator",
		config:    cfg,
		logger:    lg,
		messenger: messenger,
		books:     make(map[uint32]*instrumentState),
		sendQueue: make(chan eventToSend, 1024),
		history:   make([]models.MMarketEvent, 0, 4096),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// -----------------------------------------------------------------------------

// Start launches the sender, generator, and retransmitter.
func (s *Simulator) Start() {
	s.wg.Add(3)
	go s.sendDatagrams()
	go s.generateMarketEvents()
	go s.retransmitter()

	s.logger.Info("%s : started, feeding %s:%d", s.Name, s.config.PlantIP, s.config.PlantPort)
}

// -----------------------------------------------------------------------------

// Stop announces end-of-session, then tears the simulator down.
func (s *Simulator) Stop() {
	// Best effort: tell the plant the session is over before closing.
	var header [wire.HeaderLength]byte
	s.historyMu.Lock()
	sequence := uint64(len(s.history))
	s.historyMu.Unlock()
	if err := wire.WriteHeader(header[:], Session, sequence, wire.EndOfSession); err == nil {
		if err := s.messenger.Send(header[:]); err != nil {
			s.logger.Warning("%s : failed to send end-of-session: %v", s.Name, err)
		}
	}

	s.cancel()
	if err := s.messenger.Close(); err != nil {
		s.logger.Error("%s : failed to close socket: %v", s.Name, err)
	}
	s.wg.Wait()
	s.logger.Info("%s : stopped", s.Name)
}

// -----------------------------------------------------------------------------
// Sender
// -----------------------------------------------------------------------------

// sendDatagrams serialises queued events and sends one datagram each.
func (s *Simulator) sendDatagrams() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case next := <-s.sendQueue:
			buf, err := wire.MarshalPacket(Session, next.sequence, next.event)
			if err != nil {
				s.logger.Error("%s : failed to serialize event seq %d: %v", s.Name, next.sequence, err)
				continue
			}
			if err := s.messenger.Send(buf); err != nil {
				s.logger.Error("%s : failed to send seq %d: %v", s.Name, next.sequence, err)
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Generator
// -----------------------------------------------------------------------------

// generateMarketEvents produces synthetic events against the live book
// state, assigns each the next sequence number, and queues it for sending.
func (s *Simulator) generateMarketEvents() {
	defer s.wg.Done()

	for s.ctx.Err() == nil {
		instrumentID := uint32(s.randBetween(s.config.MinInstrumentID, s.config.MaxInstrumentID))
		side := models.Side(s.rng.Intn(2))
		state := s.getBook(instrumentID, side)

		event := s.nextEvent(instrumentID, side, state)

		sequence, ok := s.record(event)
		if !ok {
			s.logger.Warning("%s : history full after %d events, generator stopping", s.Name, MaxExchangeEvents)
			return
		}

		s.enqueue(event, sequence)

		interval := time.Duration(s.randBetween(s.config.MinIntervalMS, s.config.MaxIntervalMS)) * time.Millisecond
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// -----------------------------------------------------------------------------

// nextEvent mutates the live book state and returns the matching event.
func (s *Simulator) nextEvent(instrumentID uint32, side models.Side, state *bookState) models.MMarketEvent {
	addLevel := len(state.levels) == 0 || s.chance(s.config.ChanceOfAdd)

	if addLevel {
		quantity := s.randQuantity()

		var price uint32
		newPrice := s.chance(s.config.ChanceOfNewPrice)
		if len(state.levels) == 0 || newPrice {
			var ok bool
			price, ok = s.pickNewPrice(state)
			if !ok {
				// Every price is occupied; fall through to topping one up.
				price = s.pickExistingPrice(state)
			}
			state.levels[price] += quantity
		} else {
			price = s.pickExistingPrice(state)
			state.levels[price] += quantity
		}

		return models.MMarketEvent{
			InstrumentID: instrumentID,
			Side:         side,
			Event:        models.AddLevel,
			Price:        price,
			Quantity:     quantity,
			ExchangeTS:   currentTime(),
		}
	}

	price := s.pickExistingPrice(state)
	currQuantity := state.levels[price]

	var quantityToRemove uint32
	if s.chance(s.config.ChanceOfDelete) || currQuantity == 1 {
		quantityToRemove = currQuantity
		s.releasePrice(state, price)
	} else {
		quantityToRemove = 1 + uint32(s.rng.Intn(int(currQuantity-1)))
		state.levels[price] -= quantityToRemove
	}

	return models.MMarketEvent{
		InstrumentID: instrumentID,
		Side:         side,
		Event:        models.ReduceLevel,
		Price:        price,
		Quantity:     quantityToRemove,
		ExchangeTS:   currentTime(),
	}
}

// -----------------------------------------------------------------------------
// Retransmitter
// -----------------------------------------------------------------------------

// retransmitter answers request packets by re-queueing historic events.
// Requests outside the emitted range are silently ignored.
func (s *Simulator) retransmitter() {
	defer s.wg.Done()

	buf := make([]byte, wire.PacketSize)

	for {
		n, err := s.messenger.Recv(buf)
		if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
			return
		}
		if err != nil {
			s.logger.Error("%s : recv failed: %v", s.Name, err)
			continue
		}
		if n <= 0 {
			continue
		}

		header, err := wire.ParsePacketHeader(buf[:n])
		if err != nil {
			s.logger.Error("%s : dropping request: %v", s.Name, err)
			continue
		}

		if header.Session != Session {
			continue
		}

		s.replay(header.SequenceNumber, header.MessageCount)
	}
}

// -----------------------------------------------------------------------------

// replay re-queues history[first .. first+count) up to the emitted range.
func (s *Simulator) replay(first uint64, count uint16) {
	for i := uint64(0); i < uint64(count); i++ {
		sequence := first + i

		s.historyMu.Lock()
		if sequence >= uint64(len(s.history)) {
			s.historyMu.Unlock()
			break
		}
		event := s.history[sequence]
		s.historyMu.Unlock()

		s.enqueue(event, sequence)
	}
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// record appends the event to history and returns its sequence number.
func (s *Simulator) record(event models.MMarketEvent) (uint64, bool) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	if len(s.history) >= MaxExchangeEvents {
		return 0, false
	}
	sequence := uint64(len(s.history))
	s.history = append(s.history, event)
	return sequence, true
}

func (s *Simulator) enqueue(event models.MMarketEvent, sequence uint64) {
	select {
	case s.sendQueue <- eventToSend{event: event, sequence: sequence}:
	case <-s.ctx.Done():
	}
}

// -----------------------------------------------------------------------------

func (s *Simulator) getBook(id uint32, side models.Side) *bookState {
	state, ok := s.books[id]
	if !ok {
		state = &instrumentState{
			bids: s.newBookState(),
			asks: s.newBookState(),
		}
		s.books[id] = state
	}
	if side == models.SideBid {
		return state.bids
	}
	return state.asks
}

func (s *Simulator) newBookState() *bookState {
	avail := make([]uint32, 0, s.config.MaxPrice-s.config.MinPrice+1)
	for price := s.config.MinPrice; price <= s.config.MaxPrice; price++ {
		avail = append(avail, price)
	}
	return &bookState{
		levels:      make(map[uint32]uint32),
		availPrices: avail,
	}
}

// -----------------------------------------------------------------------------

// pickNewPrice takes a random unoccupied price out of the pool.
func (s *Simulator) pickNewPrice(state *bookState) (uint32, bool) {
	if len(state.availPrices) == 0 {
		return 0, false
	}
	i := s.rng.Intn(len(state.availPrices))
	price := state.availPrices[i]
	state.availPrices[i] = state.availPrices[len(state.availPrices)-1]
	state.availPrices = state.availPrices[:len(state.availPrices)-1]
	return price, true
}

// pickExistingPrice returns a uniformly random occupied price.
func (s *Simulator) pickExistingPrice(state *bookState) uint32 {
	skip := s.rng.Intn(len(state.levels))
	for price := range state.levels {
		if skip == 0 {
			return price
		}
		skip--
	}
	panic("pickExistingPrice on empty book")
}

func (s *Simulator) releasePrice(state *bookState, price uint32) {
	delete(state.levels, price)
	state.availPrices = append(state.availPrices, price)
}

// -----------------------------------------------------------------------------

func (s *Simulator) chance(percent int) bool {
	return s.rng.Intn(100)+1 <= percent
}

func (s *Simulator) randBetween(min, max int) int {
	if max <= min {
		return min
	}
	return min + s.rng.Intn(max-min+1)
}

func (s *Simulator) randQuantity() uint32 {
	return s.config.MinQuantity + uint32(s.rng.Intn(int(s.config.MaxQuantity-s.config.MinQuantity+1)))
}

func currentTime() uint64 {
	return uint64(time.Now().UnixNano())
}
