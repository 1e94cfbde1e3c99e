// Package sensor describes the motion-controller samples the driver station
// relays to the robot. The hardware driver lives outside this module; it only
// has to satisfy Source.
package sensor

type Vector3 struct {
	X float64
	Y float64
	Z float64
}

type Quaternion struct {
	W float64
	I float64
	J float64
	K float64
}

type Joystick struct {
	X float64
	Y float64
}

// ControllerSample is one reading from a single handheld unit.
type ControllerSample struct {
	Position Vector3
	Rotation Quaternion
	Joystick Joystick
	Trigger  float64
}

type Side uint8

const (
	Side_Left Side = iota
	Side_Right
)

func (s Side) String() string {
	switch s {
	case Side_Left:
		return "Left"
	case Side_Right:
		return "Right"
	}
	return "Unknown"
}

// Source yields the newest sample pair. Called once per application tick.
type Source interface {
	Poll() (left ControllerSample, right ControllerSample)
}
