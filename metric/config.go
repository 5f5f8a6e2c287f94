package metric

import (
	"errors"
	"fmt"
	"time"
)

// Config defines the configuration for the metrics server.
type Config struct {
	Port           int           // Port for metrics server, 0 disables it
	Path           string        // Path for metrics endpoint
	UpdateInterval time.Duration // Interval of system metrics collection
}

// Default values for metrics configuration.
const (
	DefaultMetricsPort    = 9090
	DefaultMetricsPath    = "/metrics"
	DefaultUpdateInterval = 5 * time.Second
)

// Below is the Error message for the metrics configuration.
var (
	ErrInvalidPort     = errors.New("invalid metrics port")
	ErrInvalidPath     = errors.New("invalid metrics path")
	ErrInvalidInterval = errors.New("invalid update interval")
)

// Validate validates the port, the path and the update interval.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("must be between 0 and 65535, given %d: %w", c.Port, ErrInvalidPort)
	}
	if c.Port == 0 {
		return nil
	}
	if len(c.Path) == 0 || c.Path[0] != '/' {
		return fmt.Errorf("must start with a slash, given %q: %w", c.Path, ErrInvalidPath)
	}
	if c.UpdateInterval <= 0 {
		return fmt.Errorf("must be positive, given %s: %w", c.UpdateInterval, ErrInvalidInterval)
	}
	return nil
}
