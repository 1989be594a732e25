package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Session    SessionConfig
	CORS       CORSConfig
	BookingAPI BookingAPIConfig
	Kafka      KafkaConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// SessionConfig controls visitor sessions and where their carts are kept.
type SessionConfig struct {
	Secret      string
	TTL         time.Duration
	Store       string // postgres, redis
	CleanupCron string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type BookingAPIConfig struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

type KafkaConfig struct {
	Brokers      []string
	BookingTopic string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	environment := getEnv("ENVIRONMENT", "development")

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8081"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: environment,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "bazcar"),
			Password: getEnv("DB_PASSWORD", "bazcar"),
			DBName:   getEnv("DB_NAME", "bazcar"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		Session: SessionConfig{
			Secret:      getEnv("SESSION_SECRET", "bazcar-session-secret"),
			TTL:         parseDuration(getEnv("SESSION_TTL", "720h"), 720*time.Hour),
			Store:       strings.ToLower(getEnv("SESSION_STORE", SessionStorePostgres)),
			CleanupCron: getEnv("SESSION_CLEANUP_CRON", "0 4 * * *"),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		BookingAPI: BookingAPIConfig{
			BaseURL:  bookingAPIBaseURL(environment),
			Timeout:  parseDuration(getEnv("BOOKING_API_TIMEOUT", "10s"), 10*time.Second),
			CacheTTL: parseDuration(getEnv("BOOKING_API_CACHE_TTL", "5m"), 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:      parseSlice(getEnv("KAFKA_BROKERS", "")),
			BookingTopic: getEnv("KAFKA_BOOKING_TOPIC", "bazcar.bookings"),
		},
	}

	if config.Session.Store != SessionStorePostgres && config.Session.Store != SessionStoreRedis {
		return nil, fmt.Errorf("unsupported SESSION_STORE %q", config.Session.Store)
	}

	return config, nil
}

// bookingAPIBaseURL resolves the booking API root.
// BOOKING_API_BASE_URL wins, then BOOKING_API_DEV_URL outside production.
func bookingAPIBaseURL(environment string) string {
	if v := os.Getenv("BOOKING_API_BASE_URL"); v != "" {
		return strings.TrimRight(v, "/")
	}
	if environment != "production" {
		if v := os.Getenv("BOOKING_API_DEV_URL"); v != "" {
			return strings.TrimRight(v, "/")
		}
		return "http://localhost:8080/api/v1"
	}
	return "https://baz-car-server.online/api/v1"
}

// ServerBaseURL is the booking API root without the /api/v1 suffix.
// Relative image paths returned by the API are resolved against it.
func (c *BookingAPIConfig) ServerBaseURL() string {
	return strings.Replace(c.BaseURL, "/api/v1", "", 1)
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
