// Package config loads Beacon's YAML configuration, fills defaults, applies
// environment overrides and validates the result.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/go-playground/validator.v9"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned when the configuration fails validation.
var ErrInvalid = errors.New("config: invalid")

// Config is the root configuration.
type Config struct {
	LogLevel  string          `yaml:"log_level" default:"info" validate:"oneof=debug info warn warning error"`
	Capture   CaptureConfig   `yaml:"capture"`
	Detection DetectionConfig `yaml:"detection"`
	Haptics   HapticsConfig   `yaml:"haptics"`
	Features  FeaturesConfig  `yaml:"features"`
	Web       WebConfig       `yaml:"web"`
}

// CaptureConfig selects and tunes the capture devices.
type CaptureConfig struct {
	GrantPermission bool          `yaml:"grant_permission" default:"true"`
	BridgeURL       string        `yaml:"bridge_url" validate:"omitempty,url"`
	ReconnectDelay  time.Duration `yaml:"reconnect_delay" default:"2s" validate:"gte=0"`
	Webcam          bool          `yaml:"webcam"`
	WebcamIndex     int           `yaml:"webcam_index" validate:"gte=0"`
	Width           int           `yaml:"width" default:"1280" validate:"gte=0"`
	Height          int           `yaml:"height" default:"720" validate:"gte=0"`
	FrameBuffer     int           `yaml:"frame_buffer" default:"2" validate:"min=1"`
	DepthBuffer     int           `yaml:"depth_buffer" default:"2" validate:"min=1"`
}

// ModelConfig describes one detection model.
type ModelConfig struct {
	Path        string  `yaml:"path"`
	Layout      string  `yaml:"layout" default:"yolov8" validate:"oneof=yolov8 yolov5"`
	Confidence  float32 `yaml:"confidence" default:"0.4" validate:"gte=0,lte=1"`
	NMS         float32 `yaml:"nms" default:"0.45" validate:"gte=0,lte=1"`
	InputWidth  int     `yaml:"input_width" default:"640" validate:"min=32"`
	InputHeight int     `yaml:"input_height" default:"640" validate:"min=32"`
	Normalized  bool    `yaml:"normalized"`
	LabelsFile  string  `yaml:"labels_file"`
}

// DetectionConfig holds the inference settings.
type DetectionConfig struct {
	Workers      int         `yaml:"workers" default:"2" validate:"min=1,max=16"`
	Object       ModelConfig `yaml:"object"`
	TrafficLight ModelConfig `yaml:"traffic_light"`
}

// SetDefaults fills model paths that differ between the two models.
func (d *DetectionConfig) SetDefaults() {
	if d.Object.Path == "" {
		d.Object.Path = "models/yolov8n.onnx"
	}
	if d.TrafficLight.Path == "" {
		d.TrafficLight.Path = "models/traffic_light.onnx"
	}
}

// HapticsConfig tunes the pulse cadence and the actuator link.
type HapticsConfig struct {
	Cutoff       float64       `yaml:"cutoff" default:"5.0" validate:"gtfield=NearDistance"`
	NearDistance float64       `yaml:"near_distance" default:"0.7" validate:"gte=0"`
	BaseInterval time.Duration `yaml:"base_interval" default:"50ms" validate:"gte=0"`
	MinInterval  time.Duration `yaml:"min_interval" default:"100ms" validate:"gt=0"`
	MaxInterval  time.Duration `yaml:"max_interval" default:"1s" validate:"gtefield=MinInterval"`
	Hysteresis   float64       `yaml:"hysteresis" default:"0.1" validate:"gte=0"`
	HighBelow    float64       `yaml:"high_below" default:"1.0" validate:"gt=0"`
	MediumBelow  float64       `yaml:"medium_below" default:"2.0" validate:"gtefield=HighBelow"`
	SerialPort   string        `yaml:"serial_port"`
	BaudRate     int           `yaml:"baud_rate" default:"115200" validate:"min=1200"`
	Queue        int           `yaml:"queue" default:"8" validate:"min=1"`
}

// FeaturesConfig lists the features enabled at startup.
type FeaturesConfig struct {
	Enabled     []string `yaml:"enabled" default:"[\"selected_haptics\",\"proximity_haptics\"]" validate:"dive,oneof=identify traffic_light selected_haptics proximity_haptics"`
	DepthWindow int      `yaml:"depth_window" default:"100" validate:"min=1"`
}

// WebConfig configures the dashboard.
type WebConfig struct {
	Enabled            bool          `yaml:"enabled" default:"true"`
	Port               string        `yaml:"port" default:"8080" validate:"numeric"`
	StaticDir          string        `yaml:"static_dir"`
	PreviewWidth       int           `yaml:"preview_width" default:"480" validate:"min=16"`
	PreviewQuality     int           `yaml:"preview_quality" default:"70" validate:"min=1,max=100"`
	PreviewMinChange   int           `yaml:"preview_min_change" default:"4" validate:"gte=0,lte=64"`
	PreviewMinInterval time.Duration `yaml:"preview_min_interval" default:"100ms" validate:"gte=0"`
	PreviewMaxInterval time.Duration `yaml:"preview_max_interval" default:"1s" validate:"gtefield=PreviewMinInterval"`
}

// Default returns a configuration with every default applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	return cfg, nil
}

// Load reads path (optional), applies environment overrides and validates.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg, lookup)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML onto cfg. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// Validate checks every field constraint.
func Validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", e.Namespace(), e.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(fields, ", "))
}
