// Main package for the driver station: samples both motion controllers and
// relays them to the robot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sessamekesh/spanreed-driverstation/internal/config"
	"github.com/sessamekesh/spanreed-driverstation/pkg/monitor"
	"github.com/sessamekesh/spanreed-driverstation/pkg/sensor"
	"github.com/sessamekesh/spanreed-driverstation/pkg/session"
	"go.uber.org/zap"
)

func main() {
	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %s\n", cfgErr.Error())
		os.Exit(1)
	}

	logger := zap.Must(zap.NewProduction())
	if cfg.Development() {
		logger = zap.Must(zap.NewDevelopment())
	}
	defer logger.Sync()

	shutdownCtx, shutdownRelease := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer shutdownRelease()

	registry := prometheus.NewRegistry()

	bridge, bridgeErr := session.CreateBridge(session.BridgeParams{
		Config:     cfg.Session,
		Logger:     logger,
		Registerer: registry,
	})
	if bridgeErr != nil {
		logger.Error("Failed to create session bridge", zap.Error(bridgeErr))
		return
	}
	defer bridge.Close()

	wg := sync.WaitGroup{}

	var publisher eventPublisher = discardPublisher{}
	if cfg.MonitorAddr != "" {
		monitorServer, monitorErr := monitor.CreateServer(monitor.ServerParams{
			ListenAddress: cfg.MonitorAddr,
			Gatherer:      registry,
			Logger:        logger,
		})
		if monitorErr != nil {
			logger.Error("Failed to create monitor server", zap.Error(monitorErr))
			return
		}
		publisher = monitorServer

		wg.Add(1)
		go func() {
			defer wg.Done()
			monitorServer.Start(shutdownCtx)
		}()
	}

	ds := &driverStation{
		bridge:    bridge,
		source:    sensor.CreateSimulatedSource(),
		publisher: publisher,
		log:       logger.With(zap.String("handler", "driverStation")),
	}

	logger.Info("Starting driver station", zap.String("robot", cfg.Session.RemoteHost), zap.Duration("tick", cfg.TickInterval))
	ds.run(shutdownCtx, cfg.TickInterval)

	wg.Wait()
	logger.Info("Driver station stopped")
}
