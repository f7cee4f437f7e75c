package config

// Environment variables that override the file.
const (
	EnvLogLevel   = "BEACON_LOG_LEVEL"
	EnvBridgeURL  = "BEACON_BRIDGE_URL"
	EnvSerialPort = "BEACON_SERIAL_PORT"
	EnvWebPort    = "BEACON_WEB_PORT"
)

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup(EnvBridgeURL); ok {
		cfg.Capture.BridgeURL = v
	}
	if v, ok := lookup(EnvSerialPort); ok {
		cfg.Haptics.SerialPort = v
	}
	if v, ok := lookup(EnvWebPort); ok && v != "" {
		cfg.Web.Port = v
	}
}
