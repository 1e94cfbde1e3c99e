package main

import (
	"context"
	"time"

	"github.com/sessamekesh/spanreed-driverstation/pkg/message/robot"
	"github.com/sessamekesh/spanreed-driverstation/pkg/message/station"
	"github.com/sessamekesh/spanreed-driverstation/pkg/monitor"
	"github.com/sessamekesh/spanreed-driverstation/pkg/sensor"
	"go.uber.org/zap"
)

type sessionBridge interface {
	Tick()
	Connected() bool
	Send(msg station.StationMessage)
	Recv() (robot.RobotMessage, bool)
}

type eventPublisher interface {
	Publish(ev monitor.Event)
}

type discardPublisher struct{}

func (discardPublisher) Publish(monitor.Event) {}

type driverStation struct {
	bridge    sessionBridge
	source    sensor.Source
	publisher eventPublisher
	log       *zap.Logger

	connected bool
}

func (ds *driverStation) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ds.tick()
		}
	}
}

// tick is one pass of the control loop: refresh link state, send the newest
// sample pair, then drain whatever the robot sent since the last pass.
func (ds *driverStation) tick() {
	ds.bridge.Tick()
	if connected := ds.bridge.Connected(); connected != ds.connected {
		ds.connected = connected
		ds.log.Info("Robot link changed", zap.Bool("connected", connected))
		ds.publisher.Publish(monitor.LinkEvent(connected))
	}

	left, right := ds.source.Poll()
	ds.bridge.Send(station.Telemetry{Sample: left, Side: sensor.Side_Left})
	ds.bridge.Send(station.Telemetry{Sample: right, Side: sensor.Side_Right})

	for {
		msg, ok := ds.bridge.Recv()
		if !ok {
			break
		}
		ds.log.Info("Robot message", zap.Any("msg", msg))
		if ev, ok := monitor.EventForRobotMessage(msg); ok {
			ds.publisher.Publish(ev)
		}
	}
}
