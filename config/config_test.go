package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("BOOKING_API_BASE_URL", "")
	t.Setenv("BOOKING_API_DEV_URL", "")
	t.Setenv("SESSION_STORE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/api/v1", cfg.BookingAPI.BaseURL)
	assert.Equal(t, "http://localhost:8080", cfg.BookingAPI.ServerBaseURL())
	assert.Equal(t, 10*time.Second, cfg.BookingAPI.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.BookingAPI.CacheTTL)
	assert.Equal(t, SessionStorePostgres, cfg.Session.Store)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoad_BookingAPIPriority(t *testing.T) {
	t.Setenv("BOOKING_API_DEV_URL", "http://dev.local/api/v1")

	t.Run("explicit url wins", func(t *testing.T) {
		t.Setenv("BOOKING_API_BASE_URL", "https://api.example.com/api/v1/")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "https://api.example.com/api/v1", cfg.BookingAPI.BaseURL)
	})

	t.Run("dev url outside production", func(t *testing.T) {
		t.Setenv("BOOKING_API_BASE_URL", "")
		t.Setenv("ENVIRONMENT", "development")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "http://dev.local/api/v1", cfg.BookingAPI.BaseURL)
	})

	t.Run("dev url ignored in production", func(t *testing.T) {
		t.Setenv("BOOKING_API_BASE_URL", "")
		t.Setenv("ENVIRONMENT", "production")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "https://baz-car-server.online/api/v1", cfg.BookingAPI.BaseURL)
	})
}

func TestLoad_RejectsUnknownSessionStore(t *testing.T) {
	t.Setenv("SESSION_STORE", "memcached")

	_, err := Load()
	assert.Error(t, err)
}

func TestParseSlice(t *testing.T) {
	assert.Equal(t, []string{}, parseSlice(""))
	assert.Equal(t, []string{"a:9092", "b:9092"}, parseSlice("a:9092, b:9092,"))
}
