package session

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config is the fixed transport addressing for one robot deployment.
type Config struct {
	RemoteHost         string
	ControlPort        int
	TelemetryPort      int
	LocalTelemetryPort int

	// ReconnectPeriod is both the reconnect interval and the longest the
	// reactor waits without any socket activity.
	ReconnectPeriod time.Duration
	ConnectTimeout  time.Duration

	CommandBufferLength int
	InboundBufferLength int
}

func DefaultConfig() Config {
	return Config{
		RemoteHost:          "10.36.36.21",
		ControlPort:         1234,
		TelemetryPort:       1235,
		LocalTelemetryPort:  1235,
		ReconnectPeriod:     100 * time.Millisecond,
		ConnectTimeout:      50 * time.Millisecond,
		CommandBufferLength: 1024,
		InboundBufferLength: 256,
	}
}

func validPort(name string, port int, allowZero bool) error {
	if port == 0 && allowZero {
		return nil
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be in 1..65535, got %d", name, port)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.RemoteHost == "" {
		return fmt.Errorf("remote host is required")
	}
	if err := validPort("control port", c.ControlPort, false); err != nil {
		return err
	}
	if err := validPort("telemetry port", c.TelemetryPort, false); err != nil {
		return err
	}
	// 0 lets the OS pick, used by tests.
	if err := validPort("local telemetry port", c.LocalTelemetryPort, true); err != nil {
		return err
	}
	if c.ReconnectPeriod <= 0 {
		return fmt.Errorf("reconnect period must be positive, got %s", c.ReconnectPeriod)
	}
	if c.ConnectTimeout <= 0 || c.ConnectTimeout >= c.ReconnectPeriod {
		return fmt.Errorf("connect timeout must be positive and below the reconnect period (%s), got %s", c.ReconnectPeriod, c.ConnectTimeout)
	}
	return nil
}

func (c *Config) ControlAddress() string {
	return net.JoinHostPort(c.RemoteHost, strconv.Itoa(c.ControlPort))
}

func (c *Config) TelemetryPeerAddress() string {
	return net.JoinHostPort(c.RemoteHost, strconv.Itoa(c.TelemetryPort))
}

func (c *Config) LocalTelemetryAddress() string {
	return fmt.Sprintf(":%d", c.LocalTelemetryPort)
}
