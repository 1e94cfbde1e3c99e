package monitor

import (
	"time"

	"github.com/sessamekesh/spanreed-driverstation/pkg/message/robot"
)

// Event is one JSON text frame sent to dashboard subscribers.
type Event struct {
	Type      string   `json:"type"`
	Value     *float64 `json:"value,omitempty"`
	Connected *bool    `json:"connected,omitempty"`
	Time      int64    `json:"time"`
}

func GyroEvent(value float64) Event {
	return Event{Type: "gyro", Value: &value, Time: time.Now().UnixMilli()}
}

func LinkEvent(connected bool) Event {
	return Event{Type: "link", Connected: &connected, Time: time.Now().UnixMilli()}
}

// EventForRobotMessage reports false for message kinds dashboards don't show.
func EventForRobotMessage(msg robot.RobotMessage) (Event, bool) {
	switch m := msg.(type) {
	case robot.Gyro:
		return GyroEvent(m.Value), true
	}
	return Event{}, false
}
