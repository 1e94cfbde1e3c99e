package session

import (
	"context"
	goerrs "errors"
	"net"
	"time"

	"github.com/sessamekesh/spanreed-driverstation/pkg/errors"
	"github.com/sessamekesh/spanreed-driverstation/pkg/message/robot"
	"github.com/sessamekesh/spanreed-driverstation/pkg/message/station"
	"go.uber.org/zap"
)

// Token identifies a resource registered with the reactor.
type Token int

const (
	Token_Control Token = iota
	Token_Telemetry
)

type eventKind uint8

const (
	eventKind_Readable eventKind = iota
	eventKind_Closed
	eventKind_Connected
)

type ioEvent struct {
	token Token
	kind  eventKind
	data  []byte
	size  int
	err   error

	// Set on a successful eventKind_Connected.
	conn net.Conn
	peer *net.UDPAddr
}

// Dialer is satisfied by *net.Dialer.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

const maxDatagramSize = 1400

// readErrorBackoff spaces out retries after a telemetry read fails with
// anything but a closed socket.
const readErrorBackoff = 10 * time.Millisecond

// Ready forever. Selecting on it models a socket with write interest
// registered; a nil channel models no interest.
var alwaysWritable = func() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

type reactorParams struct {
	config    Config
	log       *zap.Logger
	metrics   *Metrics
	dialer    Dialer
	telemetry net.PacketConn

	commands  <-chan station.StationMessage
	inbound   chan<- robot.RobotMessage
	connected chan bool
}

// reactor owns both sockets, the connection state and the outbound queue.
// Only the goroutine running run touches them; socket reads happen on helper
// goroutines that do nothing but hand bytes to the reactor as events.
type reactor struct {
	config    Config
	log       *zap.Logger
	metrics   *Metrics
	dialer    Dialer
	telemetry net.PacketConn

	state   connectionState
	dialing bool

	// Popped from the back: the newest buffer is sent first.
	outbound      [][]byte
	writeInterest bool

	handlers map[Token]func(ioEvent)
	events   chan ioEvent

	commands  <-chan station.StationMessage
	inbound   chan<- robot.RobotMessage
	connected chan bool
}

func createReactor(params reactorParams) *reactor {
	r := &reactor{
		config:    params.config,
		log:       params.log,
		metrics:   params.metrics,
		dialer:    params.dialer,
		telemetry: params.telemetry,

		outbound: [][]byte{},
		handlers: make(map[Token]func(ioEvent)),
		events:   make(chan ioEvent, 64),

		commands:  params.commands,
		inbound:   params.inbound,
		connected: params.connected,
	}

	r.register(Token_Telemetry, r.onTelemetryReadable)
	return r
}

func (r *reactor) register(token Token, handler func(ioEvent)) {
	r.handlers[token] = handler
}

func (r *reactor) deregister(token Token) {
	delete(r.handlers, token)
}

// dispatch panics on a token nothing registered: that can only come from a
// bug in the reactor itself, never from the network.
func (r *reactor) dispatch(ev ioEvent) {
	handler, has := r.handlers[ev.token]
	if !has {
		panic(&errors.UnknownToken{Token: int(ev.token)})
	}
	handler(ev)
}

func (r *reactor) run(ctx context.Context) {
	r.log.Info("Starting session reactor",
		zap.String("controlAddr", r.config.ControlAddress()),
		zap.String("telemetryAddr", r.telemetry.LocalAddr().String()))
	defer r.log.Info("Stopping session reactor")
	defer r.closeSockets()

	go r.readTelemetry(ctx)

	ticker := time.NewTicker(r.config.ReconnectPeriod)
	defer ticker.Stop()

	for {
		var writable <-chan struct{}
		if r.writeInterest {
			writable = alwaysWritable
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.onTimer(ctx)
		case msg := <-r.commands:
			r.onCommand(msg)
		case ev := <-r.events:
			r.dispatch(ev)
		case <-writable:
			r.onTelemetryWritable()
		}
	}
}

func (r *reactor) closeSockets() {
	if r.state.isConnected() {
		r.state.disconnect().Close()
	}
	r.deregister(Token_Control)
	r.dialing = false
	r.telemetry.Close()
}

func (r *reactor) emit(ctx context.Context, ev ioEvent) bool {
	select {
	case r.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *reactor) readTelemetry(ctx context.Context) {
	for {
		var buf [maxDatagramSize]byte
		bytesRead, _, err := r.telemetry.ReadFrom(buf[0:])
		if err != nil {
			if goerrs.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			if !r.emit(ctx, ioEvent{token: Token_Telemetry, kind: eventKind_Readable, err: err}) {
				return
			}
			select {
			case <-time.After(readErrorBackoff):
			case <-ctx.Done():
				return
			}
			continue
		}

		data := make([]byte, bytesRead)
		copy(data, buf[0:bytesRead])
		if !r.emit(ctx, ioEvent{token: Token_Telemetry, kind: eventKind_Readable, data: data, size: bytesRead}) {
			return
		}
	}
}

// readControl watches the control stream for peer close. The Closed event is
// always the last one it emits for a given stream.
func (r *reactor) readControl(ctx context.Context, control net.Conn) {
	var buf [512]byte
	for {
		n, err := control.Read(buf[0:])
		if n > 0 {
			if !r.emit(ctx, ioEvent{token: Token_Control, kind: eventKind_Readable, size: n}) {
				return
			}
		}
		if err != nil {
			r.emit(ctx, ioEvent{token: Token_Control, kind: eventKind_Closed, err: err})
			return
		}
	}
}

func (r *reactor) onTelemetryReadable(ev ioEvent) {
	if ev.err != nil {
		r.log.Error("Error reading telemetry datagram", zap.Error(ev.err))
		return
	}
	r.metrics.DatagramsReceived.Inc()

	msg, err := robot.Decode(ev.data)
	if err != nil {
		r.metrics.DecodeErrors.Inc()
		r.log.Warn("Failed to decode incoming datagram", zap.Int("bytes", len(ev.data)), zap.Error(err))
		return
	}

	select {
	case r.inbound <- msg:
	default:
		r.metrics.DroppedInbound.Inc()
		r.log.Warn("Inbound queue full, dropping robot message", zap.Any("msg", msg))
	}
}

func (r *reactor) onCommand(msg station.StationMessage) {
	buf, err := station.Encode(msg)
	if err != nil {
		r.log.Error("Failed to encode outbound message", zap.Error(err))
		return
	}

	r.outbound = append(r.outbound, buf)
	r.writeInterest = true
	r.metrics.OutboundQueue.Set(float64(len(r.outbound)))
}

func (r *reactor) onTelemetryWritable() {
	if !r.state.isConnected() {
		// Interest is re-armed by the next command; the queue is kept.
		r.log.Debug("Got writable telemetry socket without connection", zap.Int("queued", len(r.outbound)))
		r.writeInterest = false
		return
	}

	last := len(r.outbound) - 1
	if last < 0 {
		r.writeInterest = false
		return
	}
	buf := r.outbound[last]
	r.outbound[last] = nil
	r.outbound = r.outbound[:last]
	r.metrics.OutboundQueue.Set(float64(len(r.outbound)))

	if _, err := r.telemetry.WriteTo(buf, r.state.telemetryPeer); err != nil {
		r.metrics.SendErrors.Inc()
		r.log.Error("Failed to send telemetry datagram", zap.String("peer", r.state.telemetryPeer.String()), zap.Error(err))
	} else {
		r.metrics.DatagramsSent.Inc()
	}

	if len(r.outbound) == 0 {
		r.writeInterest = false
	}
}
