package models

import "time"

// -----------------------------------------------------------------------------

// MSpecifications holds the per-instrument trading specifications the plant
// cares about. Depth bounds snapshot size, not the book itself.
type MSpecifications struct {
	Depth uint64 `json:"depth" yaml:"depth"`
}

// MInstrumentConfig is one entry of the instrument configuration file.
type MInstrumentConfig struct {
	InstrumentID   uint32          `json:"instrument_id" yaml:"instrument_id"`
	Specifications MSpecifications `json:"specifications" yaml:"specifications"`
}

// -----------------------------------------------------------------------------

// MNATSConfig configures the optional NATS tee of incremental updates.
// When Enabled is false the plant runs without a message bus. The tee is
// fire-and-forget; persistence, if wanted, is a server-side stream over the
// tee subjects and needs no client configuration.
type MNATSConfig struct {
	Enabled        bool          `json:"enabled" yaml:"enabled"`
	Servers        []string      `json:"servers" yaml:"servers"`
	ClientID       string        `json:"client_id" yaml:"client_id"`
	SubjectPrefix  string        `json:"subject_prefix" yaml:"subject_prefix"`
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout"`
	ReconnectWait  time.Duration `json:"reconnect_wait" yaml:"reconnect_wait"`
	MaxReconnects  int           `json:"max_reconnects" yaml:"max_reconnects"`
}

// -----------------------------------------------------------------------------

// MConfig is the full plant configuration: network endpoints from the
// environment, instruments (and the optional NATS block) from the config
// file passed with -c/--config.
type MConfig struct {
	Name string `json:"name" yaml:"name"`

	// Environment-derived endpoints.
	GRPC_Host    string `json:"-" yaml:"-"`
	GRPC_Port    int    `json:"-" yaml:"-"`
	MarketIP     string `json:"-" yaml:"-"`
	MarketPort   int    `json:"-" yaml:"-"`
	ExchangeIP   string `json:"-" yaml:"-"`
	ExchangePort int    `json:"-" yaml:"-"`
	MonitorPort  int    `json:"-" yaml:"-"`

	Instruments []*MInstrumentConfig `json:"instruments" yaml:"instruments"`
	NATS        *MNATSConfig         `json:"nats,omitempty" yaml:"nats,omitempty"`
}
