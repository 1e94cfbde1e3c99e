package session

import (
	"context"
	"net"

	"go.uber.org/zap"
)

type ConnectionStatus uint8

const (
	ConnectionStatus_Disconnected ConnectionStatus = iota
	ConnectionStatus_Connected
)

func (s ConnectionStatus) String() string {
	if s == ConnectionStatus_Connected {
		return "Connected"
	}
	return "Disconnected"
}

// connectionState is owned by the reactor goroutine. control and
// telemetryPeer are set exactly when status is Connected.
type connectionState struct {
	status        ConnectionStatus
	control       net.Conn
	telemetryPeer *net.UDPAddr
}

func (s *connectionState) isConnected() bool {
	return s.status == ConnectionStatus_Connected
}

func (s *connectionState) connect(control net.Conn, telemetryPeer *net.UDPAddr) {
	s.status = ConnectionStatus_Connected
	s.control = control
	s.telemetryPeer = telemetryPeer
}

// disconnect resets to Disconnected and hands back the control stream so the
// caller can close it.
func (s *connectionState) disconnect() net.Conn {
	control := s.control
	*s = connectionState{}
	return control
}

// onTimer runs on every reconnect tick. While disconnected it starts exactly
// one connect attempt; the dial runs off the reactor goroutine and its result
// comes back as a Connected event on Token_Control. A tick that finds a dial
// still in flight does nothing.
func (r *reactor) onTimer(ctx context.Context) {
	if r.state.isConnected() || r.dialing {
		return
	}

	r.dialing = true
	r.register(Token_Control, r.onControlEvent)
	r.metrics.ConnectAttempts.Inc()
	r.spawnDial(ctx, r.config.ControlAddress())
}

// spawnDial connects on a helper goroutine. On success the same goroutine
// goes on to watch the stream, so Connected is always the first event the
// reactor sees for it and Closed the last.
func (r *reactor) spawnDial(ctx context.Context, controlAddr string) {
	go func() {
		dialCtx, cancel := context.WithTimeout(ctx, r.config.ConnectTimeout)
		control, err := r.dialer.DialContext(dialCtx, "tcp", controlAddr)
		cancel()
		if err != nil {
			r.emit(ctx, ioEvent{token: Token_Control, kind: eventKind_Connected, err: err})
			return
		}

		telemetryPeer, err := net.ResolveUDPAddr("udp", r.config.TelemetryPeerAddress())
		if err != nil {
			r.log.Error("Cannot resolve telemetry peer address", zap.String("addr", r.config.TelemetryPeerAddress()), zap.Error(err))
			control.Close()
			r.emit(ctx, ioEvent{token: Token_Control, kind: eventKind_Connected, err: err})
			return
		}

		if !r.emit(ctx, ioEvent{token: Token_Control, kind: eventKind_Connected, conn: control, peer: telemetryPeer}) {
			control.Close()
			return
		}
		r.readControl(ctx, control)
	}()
}

func (r *reactor) onDialResult(ev ioEvent) {
	r.dialing = false
	controlAddr := r.config.ControlAddress()

	if ev.err != nil {
		r.deregister(Token_Control)
		r.log.Debug("Control channel connect failed", zap.String("addr", controlAddr), zap.Error(ev.err))
		return
	}

	r.state.connect(ev.conn, ev.peer)

	r.metrics.Connects.Inc()
	r.log.Info("Connected", zap.String("addr", controlAddr), zap.String("telemetryPeer", ev.peer.String()))
	r.publishConnected(true)
}

func (r *reactor) onControlEvent(ev ioEvent) {
	switch ev.kind {
	case eventKind_Connected:
		r.onDialResult(ev)
	case eventKind_Readable:
		// Nothing is carried over the control stream yet.
		r.log.Debug("Ignoring control channel payload", zap.Int("bytes", ev.size))
	case eventKind_Closed:
		r.log.Warn("Control channel lost", zap.Error(ev.err))
		r.dropConnection()
	}
}

func (r *reactor) dropConnection() {
	control := r.state.disconnect()
	r.deregister(Token_Control)
	if control != nil {
		control.Close()
	}

	r.metrics.Disconnects.Inc()
	r.log.Info("Disconnected", zap.String("addr", r.config.ControlAddress()))
	r.publishConnected(false)
}

// publishConnected never blocks. If the application has not drained older
// flags, the oldest is discarded; only the latest value matters.
func (r *reactor) publishConnected(connected bool) {
	for {
		select {
		case r.connected <- connected:
			return
		default:
		}

		select {
		case <-r.connected:
		default:
		}
	}
}
