package session

import (
	"testing"
	"time"
)

func TestDefaultConfigIsDeploymentAddressing(t *testing.T) {
	config := DefaultConfig()
	if err := config.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := config.ControlAddress(); got != "10.36.36.21:1234" {
		t.Errorf("ControlAddress() = %s", got)
	}
	if got := config.TelemetryPeerAddress(); got != "10.36.36.21:1235" {
		t.Errorf("TelemetryPeerAddress() = %s", got)
	}
	if got := config.LocalTelemetryAddress(); got != ":1235" {
		t.Errorf("LocalTelemetryAddress() = %s", got)
	}
	if config.ReconnectPeriod != 100*time.Millisecond {
		t.Errorf("ReconnectPeriod = %s", config.ReconnectPeriod)
	}
}

func TestConfigIPv6HostIsBracketed(t *testing.T) {
	config := DefaultConfig()
	config.RemoteHost = "::1"
	if got := config.ControlAddress(); got != "[::1]:1234" {
		t.Errorf("ControlAddress() = %s", got)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty host", func(c *Config) { c.RemoteHost = "" }},
		{"zero control port", func(c *Config) { c.ControlPort = 0 }},
		{"huge telemetry port", func(c *Config) { c.TelemetryPort = 70000 }},
		{"negative local port", func(c *Config) { c.LocalTelemetryPort = -1 }},
		{"zero period", func(c *Config) { c.ReconnectPeriod = 0 }},
		{"timeout equals period", func(c *Config) { c.ConnectTimeout = c.ReconnectPeriod }},
		{"zero timeout", func(c *Config) { c.ConnectTimeout = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig()
			tc.mutate(&config)
			if err := config.Validate(); err == nil {
				t.Error("Validate() accepted invalid config")
			}
		})
	}

	config := DefaultConfig()
	config.LocalTelemetryPort = 0
	if err := config.Validate(); err != nil {
		t.Errorf("local port 0 rejected: %v", err)
	}
}
