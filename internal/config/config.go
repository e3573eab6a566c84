package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/goliatone/go-formsync/pkg/stream"
)

// Transport names accepted by FORMSYNC_STREAM_TRANSPORT.
const (
	TransportSSE       = stream.TransportSSE
	TransportWebSocket = stream.TransportWebSocket
	TransportRedis     = stream.TransportRedis
)

type Config struct {
	Env         string
	API         APIConfig
	Stream      StreamConfig
	HTTPTimeout time.Duration
}

type APIConfig struct {
	BaseURL string
	APIKey  string
}

type StreamConfig struct {
	Transport string
	RedisURL  string
	RetryBase time.Duration
	RetryCap  time.Duration
}

// Load reads configuration from the environment. In development a .env file
// in the working directory is loaded first when present.
func Load() (Config, error) {
	if getEnv("FORMSYNC_ENV", "development") == "development" {
		_ = godotenv.Load(".env")
	}

	cfg := Config{
		Env: getEnv("FORMSYNC_ENV", "development"),
		API: APIConfig{
			BaseURL: strings.TrimRight(getEnv("FORMSYNC_API_BASE", ""), "/"),
			APIKey:  getEnv("FORMSYNC_API_KEY", ""),
		},
		Stream: StreamConfig{
			Transport: strings.ToLower(getEnv("FORMSYNC_STREAM_TRANSPORT", TransportSSE)),
			RedisURL:  getEnv("FORMSYNC_REDIS_URL", "redis://localhost:6379/0"),
			RetryBase: getEnvDuration("FORMSYNC_RETRY_BASE", 4*time.Second),
			RetryCap:  getEnvDuration("FORMSYNC_RETRY_CAP", 15*time.Second),
		},
		HTTPTimeout: getEnvDuration("FORMSYNC_HTTP_TIMEOUT", 15*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values Load cannot default.
func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("FORMSYNC_API_BASE is required")
	}
	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("FORMSYNC_API_BASE must be an absolute url, got %q", c.API.BaseURL)
	}
	switch c.Stream.Transport {
	case TransportSSE, TransportWebSocket, TransportRedis:
	default:
		return fmt.Errorf("FORMSYNC_STREAM_TRANSPORT must be one of sse, websocket, redis, got %q", c.Stream.Transport)
	}
	if c.Stream.RetryBase <= 0 {
		return fmt.Errorf("FORMSYNC_RETRY_BASE must be positive")
	}
	if c.Stream.RetryCap < c.Stream.RetryBase {
		return fmt.Errorf("FORMSYNC_RETRY_CAP must not be below FORMSYNC_RETRY_BASE")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// getEnvDuration accepts Go durations ("4s") or bare milliseconds ("4000").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if d, err := time.ParseDuration(raw + "ms"); err == nil {
		return d
	}
	return fallback
}
