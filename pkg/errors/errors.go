package errors

import "fmt"

type Underflow struct {
	MessageName string
	MsgSize     int
	MinimumSize int
}

func (e *Underflow) Error() string {
	return fmt.Sprintf("Message parsing underflowed (type=%s), provided %d bytes, needed at least %d", e.MessageName, e.MsgSize, e.MinimumSize)
}

type InvalidEnumValue struct {
	EnumName string
	IntValue uint8
}

func (e *InvalidEnumValue) Error() string {
	return fmt.Sprintf("Invalid enum value=%d (enum: %s)", e.IntValue, e.EnumName)
}

type UnsupportedMessage struct {
	MessageName string
	GoType      string
}

func (e *UnsupportedMessage) Error() string {
	return fmt.Sprintf("No encoding for %s value of Go type %s", e.MessageName, e.GoType)
}

// UnknownToken is raised (via panic) when the reactor sees an event for a
// resource it never registered.
type UnknownToken struct {
	Token int
}

func (e *UnknownToken) Error() string {
	return fmt.Sprintf("Unknown token: %d", e.Token)
}
