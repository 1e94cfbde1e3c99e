// Package robot holds the messages the robot sends back to the driver station.
package robot

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/sessamekesh/spanreed-driverstation/pkg/errors"
)

type RobotMessageType uint8

const (
	RobotMessageType_Gyro RobotMessageType = iota

	RobotMessageType_NONE
)

func headerIdToMessageType(headerId uint8) RobotMessageType {
	switch headerId {
	case 0x0:
		return RobotMessageType_Gyro
	}

	return RobotMessageType_NONE
}

type RobotMessage interface {
	MessageType() RobotMessageType
}

type Gyro struct {
	Value float64
}

func (Gyro) MessageType() RobotMessageType {
	return RobotMessageType_Gyro
}

func (g Gyro) String() string {
	return fmt.Sprintf("Gyro(%v)", g.Value)
}

func parseFloat64(msg []byte, readPtr int, name string) (int, float64, error) {
	if len(msg) < readPtr+8 {
		return readPtr, 0, &errors.Underflow{
			MessageName: name,
			MsgSize:     len(msg),
			MinimumSize: readPtr + 8,
		}
	}

	bits := binary.BigEndian.Uint64(msg[readPtr : readPtr+8])
	return readPtr + 8, math.Float64frombits(bits), nil
}

// Decode accepts any byte slice. Malformed input yields an error, never a
// panic. Bytes after a complete message are ignored.
func Decode(msg []byte) (RobotMessage, error) {
	if len(msg) < 1 {
		return nil, &errors.Underflow{
			MessageName: "RobotMessage",
			MsgSize:     len(msg),
			MinimumSize: 1,
		}
	}

	headerId := msg[0]
	readPtr := 1

	switch headerIdToMessageType(headerId) {
	case RobotMessageType_Gyro:
		_, value, err := parseFloat64(msg, readPtr, "RobotMessage::Gyro")
		if err != nil {
			return nil, err
		}
		return Gyro{Value: value}, nil
	case RobotMessageType_NONE:
	}

	return nil, &errors.InvalidEnumValue{
		EnumName: "RobotMessageType",
		IntValue: headerId,
	}
}
