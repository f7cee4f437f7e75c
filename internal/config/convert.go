package config

import (
	"github.com/Dreta/Beacon/pkg/capture"
	"github.com/Dreta/Beacon/pkg/detection"
	"github.com/Dreta/Beacon/pkg/features"
	"github.com/Dreta/Beacon/pkg/haptics"
	"github.com/Dreta/Beacon/pkg/web"
)

// Orchestrator returns the capture orchestrator settings.
func (c CaptureConfig) Orchestrator() capture.Config {
	return capture.Config{FrameBuffer: c.FrameBuffer, DepthBuffer: c.DepthBuffer}
}

// Bridge returns the sensor bridge settings.
func (c CaptureConfig) Bridge() capture.BridgeConfig {
	b := capture.DefaultBridgeConfig()
	b.URL = c.BridgeURL
	b.ReconnectDelay = c.ReconnectDelay
	return b
}

// WebcamSettings returns the local camera settings.
func (c CaptureConfig) WebcamSettings() capture.WebcamConfig {
	return capture.WebcamConfig{
		Enabled: c.Webcam,
		Index:   c.WebcamIndex,
		Width:   c.Width,
		Height:  c.Height,
	}
}

// Providers lists the capture backends in preference order.
func (c CaptureConfig) Providers() capture.Providers {
	return capture.Providers{
		capture.BridgeProvider{Config: c.Bridge()},
		capture.WebcamProvider{Config: c.WebcamSettings()},
	}
}

// Detection converts a model entry, loading its labels file when set.
// Without a labels file the given defaults are used.
func (m ModelConfig) Detection(labels []string) (detection.Config, error) {
	layout, err := detection.ParseLayout(m.Layout)
	if err != nil {
		return detection.Config{}, err
	}
	if m.LabelsFile != "" {
		if labels, err = detection.LoadLabels(m.LabelsFile); err != nil {
			return detection.Config{}, err
		}
	}
	return detection.Config{
		ModelPath:        m.Path,
		Layout:           layout,
		ConfidenceThresh: m.Confidence,
		NMSThresh:        m.NMS,
		InputWidth:       m.InputWidth,
		InputHeight:      m.InputHeight,
		NormalizedOutput: m.Normalized,
		Labels:           labels,
	}, nil
}

// Scheduler returns the haptic cadence settings.
func (h HapticsConfig) Scheduler() haptics.Config {
	return haptics.Config{
		Cutoff:       h.Cutoff,
		NearDistance: h.NearDistance,
		BaseInterval: h.BaseInterval,
		MinInterval:  h.MinInterval,
		MaxInterval:  h.MaxInterval,
		Hysteresis:   h.Hysteresis,
		HighBelow:    h.HighBelow,
		MediumBelow:  h.MediumBelow,
	}
}

// Serial returns the actuator link settings.
func (h HapticsConfig) Serial() haptics.SerialConfig {
	return haptics.SerialConfig{Port: h.SerialPort, BaudRate: h.BaudRate}
}

// Kinds returns the startup feature kinds.
func (f FeaturesConfig) Kinds() []features.Kind {
	out := make([]features.Kind, len(f.Enabled))
	for i, k := range f.Enabled {
		out[i] = features.Kind(k)
	}
	return out
}

// Server returns the dashboard settings.
func (w WebConfig) Server() web.Config {
	return web.Config{
		Port:      w.Port,
		StaticDir: w.StaticDir,
		Preview: web.PreviewConfig{
			Width:       w.PreviewWidth,
			Quality:     w.PreviewQuality,
			MinChange:   w.PreviewMinChange,
			MinInterval: w.PreviewMinInterval,
			MaxInterval: w.PreviewMaxInterval,
		},
	}
}
