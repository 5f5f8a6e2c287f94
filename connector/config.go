package connector

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	// DefaultEndpoint is the join endpoint of the conferencing service.
	DefaultEndpoint = "https://meet.googleapis.com/v2beta"

	// DefaultTimeout bounds one join round trip.
	DefaultTimeout = 30 * time.Second
)

// Below is the Error message for the connector configuration.
var (
	ErrInvalidEndpoint   = errors.New("invalid join endpoint")
	ErrInvalidCACertFile = errors.New("invalid ca cert file")
	ErrInvalidTimeout    = errors.New("invalid timeout")
)

// Config is the configuration for joining a conference.
type Config struct {
	Endpoint   string
	CACertPath string
	Timeout    time.Duration
}

// Validate validates the endpoint, the timeout and the CA override file.
func (c Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("unable to parse %q: %w", c.Endpoint, ErrInvalidEndpoint)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, given %q: %w", u.Scheme, ErrInvalidEndpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host: %w", c.Endpoint, ErrInvalidEndpoint)
	}
	if strings.HasSuffix(c.Endpoint, "/") {
		return fmt.Errorf("%q must not end with a slash: %w", c.Endpoint, ErrInvalidEndpoint)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("must not be negative, given %s: %w", c.Timeout, ErrInvalidTimeout)
	}

	if c.CACertPath == "" {
		return nil
	}
	if _, err := os.Stat(c.CACertPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s does not exist: %w", c.CACertPath, ErrInvalidCACertFile)
		}
		return fmt.Errorf("unable to access %s: %w", c.CACertPath, ErrInvalidCACertFile)
	}
	return nil
}
