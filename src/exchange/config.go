package exchange

import "market-plant/src/utils"

// -----------------------------------------------------------------------------

// Config holds the simulator's network endpoints and event-generation knobs,
// all environment-derived.
type Config struct {
	// Network
	PlantIP      string
	PlantPort    int
	ExchangePort int

	// Market generation probabilities (percent)
	ChanceOfAdd      int
	ChanceOfDelete   int
	ChanceOfNewPrice int

	// Timing range between generated events
	MinIntervalMS int
	MaxIntervalMS int

	// Instrument range
	MinInstrumentID int
	MaxInstrumentID int

	MinPrice    uint32
	MaxPrice    uint32
	MinQuantity uint32
	MaxQuantity uint32
}

// -----------------------------------------------------------------------------

// NewConfig reads the simulator configuration from the environment.
func NewConfig() Config {
	return Config{
		PlantIP:      utils.GetEnv("PLANT_IP", "127.0.0.1"),
		PlantPort:    utils.GetEnvInt("PLANT_PORT", 9001),
		ExchangePort: utils.GetEnvInt("EXCHANGE_PORT", 9000),

		ChanceOfAdd:      utils.GetEnvInt("CHANCE_OF_ADD", 55),
		ChanceOfDelete:   utils.GetEnvInt("CHANCE_OF_DELETE", 50),
		ChanceOfNewPrice: utils.GetEnvInt("CHANCE_OF_NEW_PRICE", 50),

		MinIntervalMS: utils.GetEnvInt("MIN_INTERVAL_MS", 50),
		MaxIntervalMS: utils.GetEnvInt("MAX_INTERVAL_MS", 100),

		MinInstrumentID: utils.GetEnvInt("MIN_INSTRUMENT_ID", 1),
		MaxInstrumentID: utils.GetEnvInt("MAX_INSTRUMENT_ID", 1),

		MinPrice:    uint32(utils.GetEnvInt("MIN_PRICE", 1)),
		MaxPrice:    uint32(utils.GetEnvInt("MAX_PRICE", 100)),
		MinQuantity: uint32(utils.GetEnvInt("MIN_QUANTITY", 1)),
		MaxQuantity: uint32(utils.GetEnvInt("MAX_QUANTITY", 100)),
	}
}
