package session

import (
	"context"
	"net"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sessamekesh/spanreed-driverstation/pkg/message/robot"
	"github.com/sessamekesh/spanreed-driverstation/pkg/message/station"
	"go.uber.org/zap"
)

type BridgeParams struct {
	Config Config
	Logger *zap.Logger

	// Registerer receives the session metrics. Nil uses a private registry.
	Registerer prometheus.Registerer

	// Dialer opens the control stream. Nil uses a plain *net.Dialer.
	Dialer Dialer
}

// Bridge is the application-side handle on the session reactor. None of its
// methods block and none of them touch socket state; everything crosses to
// the reactor goroutine over channels.
//
// A Bridge is meant to be used from a single application goroutine.
type Bridge struct {
	log     *zap.Logger
	metrics *Metrics

	commands         chan<- station.StationMessage
	inbound          <-chan robot.RobotMessage
	connectedUpdates <-chan bool
	connected        bool

	localAddr net.Addr

	cancel    context.CancelFunc
	done      <-chan struct{}
	closeOnce sync.Once
}

// CreateBridge binds the local telemetry socket and starts the reactor
// goroutine. The reactor runs until Close is called.
func CreateBridge(params BridgeParams) (*Bridge, error) {
	logger := params.Logger
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}

	config := params.Config
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.CommandBufferLength <= 0 {
		config.CommandBufferLength = DefaultConfig().CommandBufferLength
	}
	if config.InboundBufferLength <= 0 {
		config.InboundBufferLength = DefaultConfig().InboundBufferLength
	}

	dialer := params.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}

	hostAddr, hostAddrErr := net.ResolveUDPAddr("udp", config.LocalTelemetryAddress())
	if hostAddrErr != nil {
		return nil, hostAddrErr
	}

	conn, listenErr := net.ListenUDP("udp", hostAddr)
	if listenErr != nil {
		return nil, listenErr
	}

	setSocketBuffers(conn, 2048, logger)

	metrics := CreateMetrics(params.Registerer)
	commands := make(chan station.StationMessage, config.CommandBufferLength)
	inbound := make(chan robot.RobotMessage, config.InboundBufferLength)
	connected := make(chan bool, 8)

	r := createReactor(reactorParams{
		config:    config,
		log:       logger.With(zap.String("handler", "sessionReactor")),
		metrics:   metrics,
		dialer:    dialer,
		telemetry: conn,
		commands:  commands,
		inbound:   inbound,
		connected: connected,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.run(ctx)
	}()

	return &Bridge{
		log:     logger.With(zap.String("handler", "sessionBridge")),
		metrics: metrics,

		commands:         commands,
		inbound:          inbound,
		connectedUpdates: connected,

		localAddr: conn.LocalAddr(),

		cancel: cancel,
		done:   done,
	}, nil
}

// Tick folds every pending link-state update into Connected.
func (b *Bridge) Tick() {
	for {
		select {
		case connected := <-b.connectedUpdates:
			b.connected = connected
		default:
			return
		}
	}
}

// Connected reports the link state as of the last Tick.
func (b *Bridge) Connected() bool {
	return b.connected
}

// Send hands msg to the reactor. Once the reactor has stopped the message is
// dropped silently; a full command queue drops it with a warning.
func (b *Bridge) Send(msg station.StationMessage) {
	select {
	case <-b.done:
		return
	default:
	}

	select {
	case b.commands <- msg:
	case <-b.done:
	default:
		b.metrics.DroppedCommands.Inc()
		b.log.Warn("Command queue full, dropping outbound message")
	}
}

// Recv returns at most one decoded robot message, oldest first.
func (b *Bridge) Recv() (robot.RobotMessage, bool) {
	select {
	case msg := <-b.inbound:
		return msg, true
	default:
		return nil, false
	}
}

// LocalAddr is the address the telemetry socket is bound to.
func (b *Bridge) LocalAddr() net.Addr {
	return b.localAddr
}

// Close stops the reactor, closes both sockets and waits for the reactor
// goroutine to exit. Safe to call more than once.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		b.cancel()
		<-b.done
	})
}

type bufferedSocket interface {
	SetReadBuffer(bytes int) error
	SetWriteBuffer(bytes int) error
}

// setSocketBuffers is best effort; the kernel may refuse or clamp the sizes.
func setSocketBuffers(conn bufferedSocket, size int, logger *zap.Logger) {
	if err := conn.SetReadBuffer(size); err != nil {
		logger.Warn("Failed to set telemetry socket read buffer", zap.Int("bytes", size), zap.Error(err))
	}
	if err := conn.SetWriteBuffer(size); err != nil {
		logger.Warn("Failed to set telemetry socket write buffer", zap.Int("bytes", size), zap.Error(err))
	}
}
