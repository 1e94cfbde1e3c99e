package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are written by the reactor goroutine and, for dropped commands, by
// the bridge. Prometheus collectors are safe for that.
type Metrics struct {
	ConnectAttempts   prometheus.Counter
	Connects          prometheus.Counter
	Disconnects       prometheus.Counter
	DatagramsSent     prometheus.Counter
	DatagramsReceived prometheus.Counter
	DecodeErrors      prometheus.Counter
	SendErrors        prometheus.Counter
	DroppedCommands   prometheus.Counter
	DroppedInbound    prometheus.Counter
	OutboundQueue     prometheus.Gauge
}

// CreateMetrics registers the session collectors on reg. A nil reg gets a
// private registry so independent bridges never collide.
func CreateMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace: "driverstation",
			Subsystem: "session",
			Name:      name,
			Help:      help,
		})
	}

	return &Metrics{
		ConnectAttempts:   counter("connect_attempts_total", "Control channel connect attempts"),
		Connects:          counter("connects_total", "Successful control channel connects"),
		Disconnects:       counter("disconnects_total", "Control channel losses"),
		DatagramsSent:     counter("datagrams_sent_total", "Telemetry datagrams written to the robot"),
		DatagramsReceived: counter("datagrams_received_total", "Datagrams read from the telemetry socket"),
		DecodeErrors:      counter("decode_errors_total", "Inbound datagrams that failed to decode"),
		SendErrors:        counter("send_errors_total", "Telemetry datagrams that failed to send"),
		DroppedCommands:   counter("dropped_commands_total", "Outbound messages dropped before reaching the reactor"),
		DroppedInbound:    counter("dropped_inbound_total", "Decoded robot messages dropped because the application was not draining"),
		OutboundQueue: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "driverstation",
			Subsystem: "session",
			Name:      "outbound_queue_depth",
			Help:      "Encoded telemetry buffers waiting for the socket",
		}),
	}
}
