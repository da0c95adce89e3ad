package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// -----------------------------------------------------------------------------

func TestNewConfigJSON(t *testing.T) {
	path := writeConfig(t, "instruments.json", `{
		"instruments": [
			{"instrument_id": 1, "specifications": {"depth": 10}},
			{"instrument_id": 2, "specifications": {"depth": 5}}
		]
	}`)

	cfg, err := NewConfig(path)
	require.NoError(t, err)

	require.Len(t, cfg.Instruments, 2)
	require.Equal(t, uint32(1), cfg.Instruments[0].InstrumentID)
	require.Equal(t, uint64(10), cfg.Instruments[0].Specifications.Depth)

	// Environment defaults.
	require.Equal(t, "0.0.0.0:50051", cfg.GRPCAddress())
	require.Equal(t, "127.0.0.1", cfg.MarketIP)
	require.Equal(t, 9001, cfg.MarketPort)
	require.Equal(t, "127.0.0.1", cfg.ExchangeIP)
	require.Equal(t, 9000, cfg.ExchangePort)
}

func TestNewConfigYAML(t *testing.T) {
	path := writeConfig(t, "instruments.yaml", `
instruments:
  - instrument_id: 7
    specifications:
      depth: 3
`)

	cfg, err := NewConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Instruments, 1)
	require.Equal(t, uint32(7), cfg.Instruments[0].InstrumentID)
	require.Equal(t, uint64(3), cfg.Instruments[0].Specifications.Depth)
}

func TestNewConfigEnvOverrides(t *testing.T) {
	t.Setenv("GRPC_HOST", "10.0.0.1")
	t.Setenv("GRPC_PORT", "6000")
	t.Setenv("MARKET_PORT", "9100")

	path := writeConfig(t, "instruments.json", `{
		"instruments": [{"instrument_id": 1, "specifications": {"depth": 10}}]
	}`)

	cfg, err := NewConfig(path)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1:6000", cfg.GRPCAddress())
	require.Equal(t, 9100, cfg.MarketPort)
}

// -----------------------------------------------------------------------------

func TestNewConfigMissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestValidateRejectsEmptyInstruments(t *testing.T) {
	path := writeConfig(t, "instruments.json", `{"instruments": []}`)
	_, err := NewConfig(path)
	require.ErrorContains(t, err, "at least one instrument")
}

func TestValidateRejectsZeroDepth(t *testing.T) {
	path := writeConfig(t, "instruments.json", `{
		"instruments": [{"instrument_id": 1, "specifications": {"depth": 0}}]
	}`)
	_, err := NewConfig(path)
	require.ErrorContains(t, err, "depth cannot be zero")
}

func TestValidateRejectsDuplicateInstrument(t *testing.T) {
	path := writeConfig(t, "instruments.json", `{
		"instruments": [
			{"instrument_id": 1, "specifications": {"depth": 10}},
			{"instrument_id": 1, "specifications": {"depth": 5}}
		]
	}`)
	_, err := NewConfig(path)
	require.ErrorContains(t, err, "duplicate instrument_id")
}

// -----------------------------------------------------------------------------

func TestGetInstrumentByID(t *testing.T) {
	path := writeConfig(t, "instruments.json", `{
		"instruments": [{"instrument_id": 5, "specifications": {"depth": 10}}]
	}`)

	cfg, err := NewConfig(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.GetInstrumentByID(5))
	require.Nil(t, cfg.GetInstrumentByID(6))
}
