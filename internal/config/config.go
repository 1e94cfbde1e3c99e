package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sessamekesh/spanreed-driverstation/pkg/session"
)

// Config holds everything the driver station reads from its environment.
type Config struct {
	Session session.Config

	TickInterval time.Duration
	MonitorAddr  string
	AppEnv       string
}

// Load reads an optional .env file from the working directory, then the
// process environment. Variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	defaults := session.DefaultConfig()

	cfg := &Config{
		Session: session.Config{
			RemoteHost:          getEnv("DS_REMOTE_HOST", defaults.RemoteHost),
			ControlPort:         getEnvAsInt("DS_CONTROL_PORT", defaults.ControlPort),
			TelemetryPort:       getEnvAsInt("DS_TELEMETRY_PORT", defaults.TelemetryPort),
			LocalTelemetryPort:  getEnvAsInt("DS_LOCAL_TELEMETRY_PORT", defaults.LocalTelemetryPort),
			ReconnectPeriod:     getEnvAsMillis("DS_RECONNECT_PERIOD_MS", defaults.ReconnectPeriod),
			ConnectTimeout:      getEnvAsMillis("DS_CONNECT_TIMEOUT_MS", defaults.ConnectTimeout),
			CommandBufferLength: defaults.CommandBufferLength,
			InboundBufferLength: defaults.InboundBufferLength,
		},
		TickInterval: getEnvAsMillis("DS_TICK_INTERVAL_MS", 10*time.Millisecond),
		MonitorAddr:  getEnv("DS_MONITOR_ADDR", ""),
		AppEnv:       getEnv("APP_ENV", "production"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := c.Session.Validate(); err != nil {
		return err
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	return nil
}

func (c *Config) Development() bool {
	return c.AppEnv == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsMillis(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}
