package main

import (
	"os"
	"os/signal"
	"syscall"

	"market-plant/src/exchange"
	"market-plant/src/logger"
)

func main() {
	cfg := exchange.NewConfig()

	appLogger := logger.NewLogger("exchange-simulator")
	defer appLogger.Sync()

	simulator, err := exchange.NewSimulator(cfg, appLogger)
	if err != nil {
		appLogger.Critical("failed to create simulator: %v", err)
		os.Exit(1)
	}

	simulator.Start()
	appLogger.Info("exchange simulator has started.")
	appLogger.Info("Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("shutting down...")
	simulator.Stop()
}
