// Beacon turns a live camera and depth stream into haptic feedback about
// nearby obstacles.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/Dreta/Beacon/internal/config"
	"github.com/Dreta/Beacon/internal/log"
	"github.com/Dreta/Beacon/pkg/app"
)

// Options are the command line flags. Set flags override the config file.
type Options struct {
	Config   string   `short:"c" long:"config" description:"Path to the YAML configuration file"`
	LogLevel string   `short:"l" long:"log-level" description:"Log level: debug, info, warn, error"`
	Bridge   string   `short:"b" long:"bridge" description:"Sensor bridge websocket URL"`
	Webcam   bool     `short:"w" long:"webcam" description:"Use the local camera when no bridge is available"`
	Serial   string   `short:"s" long:"serial" description:"Serial port of the haptic controller"`
	Port     string   `short:"p" long:"port" description:"Dashboard port"`
	NoWeb    bool     `long:"no-web" description:"Disable the dashboard"`
	Features []string `short:"f" long:"feature" description:"Feature to enable at startup (repeatable)"`
}

func main() {
	opts := &Options{}
	if _, err := flags.Parse(opts); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "beacon: %v\n", err)
		os.Exit(1)
	}
	apply(opts, cfg)
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "beacon: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.LogLevel)

	a, err := app.New(cfg)
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}
	if err := a.Init(); err != nil {
		log.Error("initialization failed", "error", err)
		os.Exit(1)
	}
	defer a.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		log.Error("runtime error", "error", err)
	}
}

func apply(opts *Options, cfg *config.Config) {
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.Bridge != "" {
		cfg.Capture.BridgeURL = opts.Bridge
	}
	if opts.Webcam {
		cfg.Capture.Webcam = true
	}
	if opts.Serial != "" {
		cfg.Haptics.SerialPort = opts.Serial
	}
	if opts.Port != "" {
		cfg.Web.Port = opts.Port
	}
	if opts.NoWeb {
		cfg.Web.Enabled = false
	}
	if len(opts.Features) > 0 {
		cfg.Features.Enabled = opts.Features
	}
}
