package errors

import (
	goerrs "errors"
	"strings"
	"testing"
)

func TestErrorMessagesCarryFields(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want []string
	}{
		{"underflow", &Underflow{MessageName: "RobotMessage::Gyro", MsgSize: 4, MinimumSize: 9}, []string{"RobotMessage::Gyro", "4", "9"}},
		{"enum", &InvalidEnumValue{EnumName: "RobotMessageType", IntValue: 5}, []string{"RobotMessageType", "5"}},
		{"unsupported", &UnsupportedMessage{MessageName: "StationMessage", GoType: "int"}, []string{"StationMessage", "int"}},
		{"token", &UnknownToken{Token: 7}, []string{"7"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := tc.err.Error()
			for _, w := range tc.want {
				if !strings.Contains(msg, w) {
					t.Errorf("%q does not mention %q", msg, w)
				}
			}
		})
	}
}

func TestErrorsAsUnwrapsTypedErrors(t *testing.T) {
	var err error = &Underflow{MessageName: "x", MsgSize: 0, MinimumSize: 1}

	var underflow *Underflow
	if !goerrs.As(err, &underflow) {
		t.Fatal("errors.As did not match *Underflow")
	}
	if underflow.MinimumSize != 1 {
		t.Errorf("MinimumSize = %d, want 1", underflow.MinimumSize)
	}
}
