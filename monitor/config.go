package monitor

import (
	"errors"
	"fmt"
)

// Default values for monitor configuration.
const (
	DefaultPath      = "/events"
	DefaultQueueSize = 64
)

// Below is the Error message for the monitor configuration.
var (
	ErrInvalidPort      = errors.New("invalid monitor port")
	ErrInvalidQueueSize = errors.New("invalid queue size")
)

// Config defines the configuration for the monitor server.
type Config struct {
	Port      int    // Port for the monitor server, 0 disables it
	Path      string // Path of the websocket endpoint
	QueueSize int    // Events buffered per subscriber
}

// Validate validates the port and the queue size.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("must be between 0 and 65535, given %d: %w", c.Port, ErrInvalidPort)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("must be positive, given %d: %w", c.QueueSize, ErrInvalidQueueSize)
	}
	return nil
}
