// Command subscriber is a terminal market-data viewer: it opens an update
// stream against the plant, maintains a local copy of each subscribed book,
// and redraws it on every frame.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"market-plant/src/grpc_control"
	"market-plant/src/logger"
	"market-plant/src/models"
	"market-plant/src/utils"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// -----------------------------------------------------------------------------

type localBook struct {
	bids map[uint32]uint32
	asks map[uint32]uint32
}

func newLocalBook() *localBook {
	return &localBook{
		bids: make(map[uint32]uint32),
		asks: make(map[uint32]uint32),
	}
}

// -----------------------------------------------------------------------------

func (b *localBook) applyEvent(event *models.MMarketEvent) {
	levels := b.asks
	if event.Side == models.SideBid {
		levels = b.bids
	}

	switch event.Event {
	case models.AddLevel:
		levels[event.Price] += event.Quantity
	case models.ReduceLevel:
		existing, ok := levels[event.Price]
		if !ok {
			return
		}
		if event.Quantity >= existing {
			delete(levels, event.Price)
		} else {
			levels[event.Price] -= event.Quantity
		}
	}
}

func (b *localBook) applySnapshot(snapshot *models.MSnapshotUpdate) {
	b.bids = make(map[uint32]uint32)
	b.asks = make(map[uint32]uint32)
	for _, level := range snapshot.Bids {
		b.bids[level.Price] = level.Quantity
	}
	for _, level := range snapshot.Asks {
		b.asks[level.Price] = level.Quantity
	}
}

// -----------------------------------------------------------------------------

func (b *localBook) print(instrumentID uint32, depth int) {
	// Clear screen, cursor home.
	fmt.Print("\033[2J\033[H")

	bidPrices := sortedPrices(b.bids, true)
	askPrices := sortedPrices(b.asks, false)

	fmt.Printf("Instrument %d\n", instrumentID)
	fmt.Println("   BIDS (Price | Qty)       |   ASKS (Price | Qty)")
	fmt.Println("----------------------------+-----------------------------")

	for i := 0; i < depth; i++ {
		if i < len(bidPrices) {
			price := bidPrices[i]
			fmt.Printf("%8d | %8d", price, b.bids[price])
		} else {
			fmt.Printf("%8s | %8s", "-", "-")
		}
		fmt.Print("        |   ")
		if i < len(askPrices) {
			price := askPrices[i]
			fmt.Printf("%8d | %8d", price, b.asks[price])
		} else {
			fmt.Printf("%8s | %8s", "-", "-")
		}
		fmt.Println()
	}
	fmt.Println("----------------------------+-----------------------------")
}

func sortedPrices(levels map[uint32]uint32, descending bool) []uint32 {
	prices := make([]uint32, 0, len(levels))
	for price := range levels {
		prices = append(prices, price)
	}
	sort.Slice(prices, func(i, j int) bool {
		if descending {
			return prices[i] > prices[j]
		}
		return prices[i] < prices[j]
	})
	return prices
}

// -----------------------------------------------------------------------------

func parseInstrumentIDs(raw string) ([]uint32, error) {
	parts := strings.Split(raw, ",")
	ids := make([]uint32, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid instrument id '%s'", part)
		}
		ids = append(ids, uint32(id))
	}
	return ids, nil
}

// -----------------------------------------------------------------------------

func main() {
	appLogger := logger.NewLogger("subscriber")
	defer appLogger.Sync()

	address := utils.GetEnv("PLANT_ADDR", "127.0.0.1:50051")
	depth := utils.GetEnvInt("DISPLAY_DEPTH", 10)

	instruments, err := parseInstrumentIDs(utils.GetEnv("INSTRUMENT_IDS", "1"))
	if err != nil {
		appLogger.Critical("bad INSTRUMENT_IDS: %v", err)
		os.Exit(1)
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		appLogger.Critical("failed to connect to plant at %s: %v", address, err)
		os.Exit(1)
	}
	defer conn.Close()

	client := grpc_control.NewMarketPlantClient(conn)

	stream, err := client.StreamUpdates(context.Background(), &grpc_control.SubscriptionRequest{
		Instruments: instruments,
	})
	if err != nil {
		appLogger.Critical("failed to open update stream: %v", err)
		os.Exit(1)
	}

	books := make(map[uint32]*localBook, len(instruments))
	for _, id := range instruments {
		books[id] = newLocalBook()
	}

	for {
		resp, err := stream.Recv()
		if err != nil {
			appLogger.Info("stream closed: %v", err)
			return
		}

		if resp.Init != nil {
			appLogger.Info("subscribed as id %d to instruments %v", resp.Init.SubscriberID, instruments)
			continue
		}
		if resp.Update == nil {
			continue
		}

		b, ok := books[resp.Update.InstrumentID]
		if !ok {
			continue
		}

		if resp.Update.Snapshot != nil {
			b.applySnapshot(resp.Update.Snapshot)
			b.print(resp.Update.InstrumentID, depth)
		} else if resp.Update.Incremental != nil {
			b.applyEvent(resp.Update.Incremental)
			b.print(resp.Update.InstrumentID, depth)
		}
	}
}
