package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"market-plant/src/models"
	"market-plant/src/utils"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config instance: endpoints from the environment
// (a .env file is honoured when present), instruments and the optional NATS
// block from the file at configPath. JSON is the canonical format; .yaml and
// .yml files are accepted too.
func NewConfig(configPath string) (*Config, error) {
	// .env is optional; ignore a missing file.
	_ = godotenv.Load()

	modelConfig := &models.MConfig{
		Name:         utils.GetEnv("PLANT_NAME", "market-plant"),
		GRPC_Host:    utils.GetEnv("GRPC_HOST", "0.0.0.0"),
		GRPC_Port:    utils.GetEnvInt("GRPC_PORT", 50051),
		MarketIP:     utils.GetEnv("MARKET_IP", "127.0.0.1"),
		MarketPort:   utils.GetEnvInt("MARKET_PORT", 9001),
		ExchangeIP:   utils.GetEnv("EXCHANGE_IP", "127.0.0.1"),
		ExchangePort: utils.GetEnvInt("EXCHANGE_PORT", 9000),
		MonitorPort:  utils.GetEnvInt("MONITOR_PORT", 8080),
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	switch filepath.Ext(configPath) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, modelConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, modelConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config from JSON: %w", err)
		}
	}

	config := &Config{MConfig: modelConfig}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation and checks the
// instruments / NATS sub-configs.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config name cannot be empty")
	}

	if c.GRPC_Port <= 0 || c.GRPC_Port > 65535 {
		return fmt.Errorf("invalid gRPC port number: %d", c.GRPC_Port)
	}
	if c.MarketPort <= 0 || c.MarketPort > 65535 {
		return fmt.Errorf("invalid market port number: %d", c.MarketPort)
	}
	if c.ExchangePort <= 0 || c.ExchangePort > 65535 {
		return fmt.Errorf("invalid exchange port number: %d", c.ExchangePort)
	}

	if len(c.Instruments) == 0 {
		return fmt.Errorf("at least one instrument must be configured")
	}
	seen := make(map[uint32]bool, len(c.Instruments))
	for i, instrument := range c.Instruments {
		if seen[instrument.InstrumentID] {
			return fmt.Errorf("instrument %d: duplicate instrument_id %d", i, instrument.InstrumentID)
		}
		seen[instrument.InstrumentID] = true
		if instrument.Specifications.Depth == 0 {
			return fmt.Errorf("instrument %d: depth cannot be zero", instrument.InstrumentID)
		}
	}

	if c.NATS != nil && c.NATS.Enabled && len(c.NATS.Servers) == 0 {
		return fmt.Errorf("NATS servers list cannot be empty when NATS is enabled")
	}

	return nil
}

// -----------------------------------------------------------------------------

// GetInstrumentByID returns a single instrument config by id, or nil.
func (c *Config) GetInstrumentByID(id uint32) *models.MInstrumentConfig {
	for _, instrument := range c.Instruments {
		if instrument.InstrumentID == id {
			return instrument
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// GRPCAddress returns the host:port the RPC server listens on.
func (c *Config) GRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.GRPC_Host, c.GRPC_Port)
}

// MonitorAddress returns the host:port the monitor HTTP server listens on.
func (c *Config) MonitorAddress() string {
	return fmt.Sprintf(":%d", c.MonitorPort)
}
