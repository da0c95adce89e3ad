package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-plant/src/book"
	"market-plant/src/config"
	"market-plant/src/feed"
	"market-plant/src/grpc_control"
	"market-plant/src/logger"
	"market-plant/src/rest"
)

// -----------------------------------------------------------------------------

func printUsage(w *os.File) {
	fmt.Fprint(w, `Usage:
  plant -c <config_file_path>
  plant --help

Options:
  -c, --config   Path to the instrument config file (JSON or YAML)
  -h, --help     Print this help and exit
`)
}

// -----------------------------------------------------------------------------

// parseArgs returns the config path, or help=true when usage was requested.
func parseArgs(args []string) (configPath string, help bool, err error) {
	if len(args) == 0 {
		return "", false, fmt.Errorf("insufficient options provided")
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-h", "--help":
			return "", true, nil
		case "-c", "--config":
			if i+1 >= len(args) {
				return "", false, fmt.Errorf("insufficient arguments provided")
			}
			configPath = args[i+1]
			i++
		default:
			return "", false, fmt.Errorf("invalid option '%s' provided", args[i])
		}
	}

	if configPath == "" {
		return "", false, fmt.Errorf("insufficient options provided")
	}
	return configPath, false, nil
}

// -----------------------------------------------------------------------------

func main() {
	configPath, help, err := parseArgs(os.Args[1:])
	if help {
		printUsage(os.Stdout)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		printUsage(os.Stderr)
		os.Exit(1)
	}

	// Load config from env + instrument file
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.Name)
	defer appLogger.Sync()

	// One book per configured instrument, for the process lifetime
	books := book.NewBookManager(cfg.Instruments)

	// Exchange-facing feed (binds the market UDP socket)
	feedService, err := feed.NewExchangeFeed(cfg, appLogger, books)
	if err != nil {
		appLogger.Critical("failed to create exchange feed: %v", err)
		os.Exit(1)
	}
	defer feedService.Stop()

	// Subscriber-facing RPC service
	plantService := grpc_control.NewMarketPlantService(books, appLogger)
	controlService, err := grpc_control.NewGRPCService(cfg, appLogger, plantService)
	if err != nil {
		appLogger.Critical("failed to create control service: %v", err)
		os.Exit(1)
	}

	// Monitor HTTP surface
	monitorService := rest.NewMonitorServer(cfg, appLogger, books, plantService)

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		monitorService.Stop(ctx)
		controlService.Stop(ctx)
	}()

	// Start gRPC server
	go func() {
		if err := controlService.Start(); err != nil {
			appLogger.Critical("control server error: %v", err)
			os.Exit(1)
		}
	}()

	// Start monitor server
	go func() {
		if err := monitorService.Start(); err != nil {
			appLogger.Error("monitor server error: %v", err)
		}
	}()

	// Start the feed receiver
	if err := feedService.Start(); err != nil {
		appLogger.Critical("failed to start exchange feed: %v", err)
		os.Exit(1)
	}

	appLogger.Info("market plant running. gRPC: %s, monitor: :%d, feed: %s:%d",
		cfg.GRPCAddress(), cfg.MonitorPort, cfg.MarketIP, cfg.MarketPort)
	appLogger.Info("Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("shutting down...")
}
