// Package app wires capture, detection, features, haptics and the dashboard
// into one running Beacon process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Dreta/Beacon/internal/config"
	"github.com/Dreta/Beacon/internal/log"
	"github.com/Dreta/Beacon/pkg/capture"
	"github.com/Dreta/Beacon/pkg/detection"
	"github.com/Dreta/Beacon/pkg/features"
	"github.com/Dreta/Beacon/pkg/haptics"
	"github.com/Dreta/Beacon/pkg/perception"
	"github.com/Dreta/Beacon/pkg/pipeline"
	"github.com/Dreta/Beacon/pkg/web"
)

// App is a running Beacon instance.
type App struct {
	config *config.Config
	logger *slog.Logger

	state        *perception.State
	pool         *detection.Pool
	emitter      *haptics.Emitter
	serial       *haptics.SerialActuator
	orchestrator *capture.Orchestrator
	registry     *features.Registry
	pipeline     *pipeline.Pipeline
	web          *web.Server

	previews chan perception.Frame
}

// New creates an application for cfg.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	return &App{
		config:   cfg,
		logger:   log.Component("app"),
		previews: make(chan perception.Frame, 1),
	}, nil
}

// Init builds every component. Optional hardware that cannot be opened is
// reported and replaced with a fallback.
func (a *App) Init() error {
	cfg := a.config

	objectModel, err := cfg.Detection.Object.Detection(detection.COCOLabels)
	if err != nil {
		return fmt.Errorf("object model: %w", err)
	}
	trafficModel, err := cfg.Detection.TrafficLight.Detection(detection.TrafficLightLabels)
	if err != nil {
		return fmt.Errorf("traffic light model: %w", err)
	}

	a.state = perception.NewState()
	a.pool = detection.NewPool(cfg.Detection.Workers)
	a.emitter = haptics.NewEmitter(a.actuator(), cfg.Haptics.Queue)

	a.orchestrator = capture.New(
		cfg.Capture.Orchestrator(),
		&capture.StaticAuthorizer{Grant: cfg.Capture.GrantPermission},
		cfg.Capture.Providers(),
	)

	a.registry = features.NewRegistry(features.Deps{
		State:             a.state,
		Pool:              a.pool,
		Pulses:            a.emitter,
		Haptics:           cfg.Haptics.Scheduler(),
		DepthWindow:       cfg.Features.DepthWindow,
		ObjectModel:       objectModel,
		TrafficLightModel: trafficModel,
	})
	for _, k := range cfg.Features.Kinds() {
		if err := a.registry.Enable(k); err != nil {
			a.logger.Warn("feature not enabled", "kind", k, "error", err)
		}
	}

	a.pipeline = pipeline.New(a.orchestrator, a, a.state)

	if cfg.Web.Enabled {
		a.web = web.NewServer(cfg.Web.Server(), a.state, a.registry, a.pipeline)
		a.emitter.OnEvent(a.web.SendHaptic)
	}
	return nil
}

// actuator opens the serial motor controller, falling back to logging.
func (a *App) actuator() haptics.Actuator {
	logAct := haptics.LogActuator{Logger: log.Component("haptics")}
	if a.config.Haptics.SerialPort == "" {
		return logAct
	}
	s, err := haptics.OpenSerial(a.config.Haptics.Serial())
	if err != nil {
		a.logger.Warn("haptic controller unavailable, logging pulses", "error", err)
		return logAct
	}
	a.serial = s
	return haptics.Fanout{s, logAct}
}

// Dispatch runs the features for a frame and offers it to the preview.
func (a *App) Dispatch(in features.Inputs) {
	a.registry.Dispatch(in)
	if a.web == nil {
		return
	}
	select {
	case a.previews <- in.Frame:
	default:
	}
}

// Run starts capture and serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.emitter.Run(ctx)
		return nil
	})
	g.Go(func() error {
		if err := a.pipeline.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	})
	if a.web != nil {
		g.Go(func() error { return a.web.Run(ctx) })
		g.Go(func() error {
			a.streamPreviews(ctx)
			return nil
		})
	}

	if err := a.pipeline.StartCapture(ctx); err != nil {
		a.logger.Warn("capture not started", "error", err, "permission", a.orchestrator.Permission().String())
	}

	a.logger.Info("beacon running", "features", a.registry.Enabled())
	return g.Wait()
}

func (a *App) streamPreviews(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-a.previews:
			a.web.SendFrame(f)
		}
	}
}

// Shutdown stops capture and releases every device.
func (a *App) Shutdown() {
	if a.pipeline != nil {
		a.pipeline.StopCapture()
	}
	if a.registry != nil {
		a.registry.Close()
	}
	if a.pool != nil {
		a.pool.Wait()
	}
	if a.orchestrator != nil {
		if err := a.orchestrator.Close(); err != nil {
			a.logger.Warn("close capture", "error", err)
		}
	}
	if a.serial != nil {
		a.serial.Close()
	}
	a.logger.Info("beacon stopped")
}

// State exposes the shared perception state.
func (a *App) State() *perception.State { return a.state }

// Registry exposes the feature registry.
func (a *App) Registry() *features.Registry { return a.registry }
