package bookingapi

import "time"

// Config represents the configuration for the booking API client
type Config struct {
	// BaseURL is the API root, e.g. https://baz-car-server.online/api/v1
	BaseURL string

	// Timeout bounds every request
	Timeout time.Duration

	// CacheTTL is how long GET responses stay cached. Zero disables caching.
	CacheTTL time.Duration
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrInvalidConfig
	}
	if c.Timeout < 0 || c.CacheTTL < 0 {
		return ErrInvalidConfig
	}
	return nil
}
