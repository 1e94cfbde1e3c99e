// Package station holds the messages the driver station sends to the robot.
package station

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/sessamekesh/spanreed-driverstation/pkg/errors"
	"github.com/sessamekesh/spanreed-driverstation/pkg/sensor"
)

type StationMessageType uint8

const (
	StationMessageType_Telemetry StationMessageType = iota

	StationMessageType_NONE
)

func messageTypeToHeaderId(msgType StationMessageType) uint8 {
	switch msgType {
	case StationMessageType_Telemetry:
		return 0x0
	}

	return 0xFF
}

// TelemetryMessageSize is tag + 10 float64 fields + side.
const TelemetryMessageSize = 1 + 10*8 + 1

type StationMessage interface {
	MessageType() StationMessageType
}

type Telemetry struct {
	Sample sensor.ControllerSample
	Side   sensor.Side
}

func (Telemetry) MessageType() StationMessageType {
	return StationMessageType_Telemetry
}

func (t Telemetry) String() string {
	return fmt.Sprintf("Telemetry(%s, %+v)", t.Side, t.Sample)
}

func sideToWireId(side sensor.Side) (uint8, error) {
	switch side {
	case sensor.Side_Left:
		return 0, nil
	case sensor.Side_Right:
		return 1, nil
	}

	return 0, &errors.InvalidEnumValue{
		EnumName: "Side",
		IntValue: uint8(side),
	}
}

func appendFloat64(out []byte, v float64) []byte {
	return binary.BigEndian.AppendUint64(out, math.Float64bits(v))
}

func serializeTelemetry(out []byte, t *Telemetry) ([]byte, error) {
	sideId, err := sideToWireId(t.Side)
	if err != nil {
		return nil, err
	}

	s := &t.Sample
	for _, v := range [...]float64{
		s.Position.X, s.Position.Y, s.Position.Z,
		s.Rotation.W, s.Rotation.I, s.Rotation.J, s.Rotation.K,
		s.Joystick.X, s.Joystick.Y,
		s.Trigger,
	} {
		out = appendFloat64(out, v)
	}

	return append(out, sideId), nil
}

// Encode writes the tag byte followed by the big-endian payload. There is no
// length prefix; one datagram carries exactly one message.
func Encode(msg StationMessage) ([]byte, error) {
	var telemetry *Telemetry
	switch m := msg.(type) {
	case Telemetry:
		telemetry = &m
	case *Telemetry:
		telemetry = m
	}

	if telemetry == nil {
		return nil, &errors.UnsupportedMessage{
			MessageName: "StationMessage",
			GoType:      fmt.Sprintf("%T", msg),
		}
	}

	out := make([]byte, 0, TelemetryMessageSize)
	out = append(out, messageTypeToHeaderId(StationMessageType_Telemetry))
	return serializeTelemetry(out, telemetry)
}
