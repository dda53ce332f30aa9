package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultAddr           = ":6969"
	DefaultAdminAddr      = "localhost:6970"
	DefaultServerURL      = "ws://localhost:6969/"
	DefaultRequestTimeout = 500 * time.Millisecond
	DefaultSendBuffer     = 64
)

// Config holds server settings.
type Config struct {
	DBFile     string
	Addr       string
	AdminAddr  string
	LogLevel   zerolog.Level
	SendBuffer int
}

// ClientConfig holds console client settings.
type ClientConfig struct {
	ServerURL      string
	RequestTimeout time.Duration
	LogLevel       zerolog.Level
}

func Load(cliMode bool) (*Config, error) {
	logLevel, err := zerolog.ParseLevel(getEnv("PARLEY_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("PARLEY_LOG_LEVEL: %w", err)
	}

	sendBuffer, err := strconv.Atoi(getEnv("PARLEY_SEND_BUFFER", strconv.Itoa(DefaultSendBuffer)))
	if err != nil {
		return nil, fmt.Errorf("PARLEY_SEND_BUFFER: %w", err)
	}

	cfg := &Config{
		DBFile:     getEnv("PARLEY_DB", "parley.db"),
		Addr:       getEnv("PARLEY_ADDR", DefaultAddr),
		AdminAddr:  getEnv("PARLEY_ADMIN_ADDR", DefaultAdminAddr),
		LogLevel:   logLevel,
		SendBuffer: sendBuffer,
	}

	if err := cfg.Validate(cliMode); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate(cliMode bool) error {
	if c.AdminAddr == "" {
		return fmt.Errorf("PARLEY_ADMIN_ADDR is required")
	}

	// The CLI only talks to the admin API of a running server.
	if cliMode {
		return nil
	}

	if c.DBFile == "" {
		return fmt.Errorf("PARLEY_DB is required")
	}

	if c.Addr == "" {
		return fmt.Errorf("PARLEY_ADDR is required")
	}

	if c.SendBuffer <= 0 {
		return fmt.Errorf("PARLEY_SEND_BUFFER must be greater than 0")
	}

	return nil
}

func LoadClient() (*ClientConfig, error) {
	timeout, err := time.ParseDuration(getEnv("PARLEY_REQUEST_TIMEOUT", DefaultRequestTimeout.String()))
	if err != nil {
		return nil, fmt.Errorf("PARLEY_REQUEST_TIMEOUT: %w", err)
	}

	logLevel, err := zerolog.ParseLevel(getEnv("PARLEY_LOG_LEVEL", "warn"))
	if err != nil {
		return nil, fmt.Errorf("PARLEY_LOG_LEVEL: %w", err)
	}

	cfg := &ClientConfig{
		ServerURL:      getEnv("PARLEY_SERVER_URL", DefaultServerURL),
		RequestTimeout: timeout,
		LogLevel:       logLevel,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *ClientConfig) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("PARLEY_SERVER_URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("PARLEY_SERVER_URL must use ws or wss, got %q", u.Scheme)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("PARLEY_REQUEST_TIMEOUT must be greater than 0")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
