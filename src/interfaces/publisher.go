package interfaces

import "market-plant/src/models"

// -----------------------------------------------------------------------------

// IPublisher defines the interface for teeing book updates to a message bus.
type IPublisher interface {
	// OnBookUpdate serialises and publishes one book update.
	OnBookUpdate(update *models.MBookUpdate)

	// Connect establishes connection to the message broker
	Connect() error

	// Disconnect closes the connection to the message broker
	Disconnect() error

	// IsConnected returns the current connection status
	IsConnected() bool
}
