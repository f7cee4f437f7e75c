// Package web serves the dashboard read model: perception state, feature
// controls, a throttled camera preview and the haptic event stream.
package web

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/Dreta/Beacon/internal/log"
	"github.com/Dreta/Beacon/pkg/features"
	"github.com/Dreta/Beacon/pkg/haptics"
	"github.com/Dreta/Beacon/pkg/hub"
	"github.com/Dreta/Beacon/pkg/perception"
)

// Capture controls the perception session.
type Capture interface {
	StartCapture(ctx context.Context) error
	StopCapture()
	Running() bool
}

// Features controls the feature registry.
type Features interface {
	Enable(features.Kind) error
	Disable(features.Kind) error
	Toggle(features.Kind) (bool, error)
	Status() []features.Status
}

// Config holds dashboard configuration
type Config struct {
	Port      string
	StaticDir string // Optional directory served at /
	Preview   PreviewConfig
}

// DefaultConfig returns dashboard defaults.
func DefaultConfig() Config {
	return Config{
		Port:    "8080",
		Preview: DefaultPreviewConfig(),
	}
}

// Server is the dashboard server.
type Server struct {
	app      *fiber.App
	config   Config
	state    *perception.State
	features Features
	capture  Capture
	preview  *Preview
	logger   *slog.Logger

	stateHub   *hub.Hub
	cameraHub  *hub.Hub
	hapticsHub *hub.Hub
}

// NewServer creates the dashboard server.
func NewServer(cfg Config, state *perception.State, feats Features, capture Capture) *Server {
	s := &Server{
		config:     cfg,
		state:      state,
		features:   feats,
		capture:    capture,
		preview:    NewPreview(cfg.Preview),
		logger:     log.Component("web"),
		stateHub:   hub.New(hub.StreamState),
		cameraHub:  hub.New(hub.StreamCamera),
		hapticsHub: hub.New(hub.StreamHaptics),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Beacon",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(cors.New())

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Get("/features", s.handleFeatures)
	api.Post("/features/:kind/enable", s.handleEnable)
	api.Post("/features/:kind/disable", s.handleDisable)
	api.Post("/features/:kind/toggle", s.handleToggle)
	api.Post("/capture/start", s.handleCaptureStart)
	api.Post("/capture/stop", s.handleCaptureStop)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/state", websocket.New(s.serveHub(s.stateHub)))
	app.Get("/ws/camera", websocket.New(s.serveHub(s.cameraHub)))
	app.Get("/ws/haptics", websocket.New(s.serveHub(s.hapticsHub)))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	for _, h := range []*hub.Hub{s.stateHub, s.cameraHub, s.hapticsHub} {
		go h.Run(ctx)
	}
	go s.forwardState(ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "addr", "http://localhost:"+s.config.Port)
		errc <- s.app.Listen(":" + s.config.Port)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return s.app.ShutdownWithTimeout(5 * time.Second)
	}
}

// forwardState pushes every state change to the state stream.
func (s *Server) forwardState(ctx context.Context) {
	updates, cancel := s.state.Subscribe(4)
	defer cancel()

	s.stateHub.BroadcastJSON(NewStateView(s.state.Snapshot(), s.runningCapture()))
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := s.stateHub.BroadcastJSON(NewStateView(snap, s.runningCapture())); err != nil {
				s.logger.Warn("encode state", "error", err)
			}
		}
	}
}

// SendFrame offers a frame to the camera preview stream. Frames are only
// encoded while someone is watching.
func (s *Server) SendFrame(f perception.Frame) {
	if s.cameraHub.ClientCount() == 0 {
		return
	}
	if data, ok := s.preview.Encode(f); ok {
		s.cameraHub.BroadcastBinary(data)
	}
}

// SendHaptic publishes a delivered pulse.
func (s *Server) SendHaptic(ev haptics.Event) {
	if s.hapticsHub.ClientCount() == 0 {
		return
	}
	if err := s.hapticsHub.BroadcastJSON(ev); err != nil {
		s.logger.Warn("encode haptic event", "error", err)
	}
}

func (s *Server) runningCapture() bool {
	return s.capture != nil && s.capture.Running()
}

func (s *Server) serveHub(h *hub.Hub) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		c := hub.NewClient(h, conn)
		if c == nil {
			conn.Close()
			return
		}
		c.Run()
	}
}
