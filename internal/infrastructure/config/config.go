package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Lumen.
// All configuration is loaded from YAML and can be overridden by environment variables.
//
// This is the service configuration. The show itself (profiles, fixtures,
// looks, protocol settings, client roster) lives in the show document and is
// managed through the API.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Show      ShowConfig      `yaml:"show"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	MIDI      MIDIConfig      `yaml:"midi"`
}

// SiteConfig contains installation-specific information.
type SiteConfig struct {
	Name string `yaml:"name"`
}

// Show document storage backends.
const (
	ShowBackendFile   = "file"
	ShowBackendSQLite = "sqlite"
)

// ShowConfig selects where the show document is persisted.
type ShowConfig struct {
	// Backend is "file" (JSON document on disk) or "sqlite".
	Backend string `yaml:"backend"`

	// Path is the JSON document path for the file backend.
	Path string `yaml:"path"`

	// Watch reloads the document when it is edited outside the service.
	// Only meaningful for the file backend.
	Watch bool `yaml:"watch"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`

	// UIDir is a directory holding the pre-built web UI. Empty serves the
	// embedded placeholder page.
	UIDir string `yaml:"ui_dir"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// OutputConfig contains process-wide output engine settings. Per-show
// protocol settings (protocol, frame rate, destinations) live in the show
// document.
type OutputConfig struct {
	// RestartDelayMS is the pause between stopping and starting the engine
	// so sockets can release their OS resources.
	RestartDelayMS int `yaml:"restart_delay_ms"`

	// SourceName is the sACN source name used when the show document does
	// not set one.
	SourceName string `yaml:"source_name"`

	// MulticastTTL is applied to sACN multicast sockets.
	MulticastTTL int `yaml:"multicast_ttl"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig contains Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MQTTConfig contains MQTT broker connection settings for the remote-control
// bridge.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Role        string              `yaml:"role"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
	StatsInterval int    `yaml:"stats_interval"`
}

// MIDIConfig contains the MIDI fader surface settings.
type MIDIConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Port     string        `yaml:"port"`
	Mappings []MIDIMapping `yaml:"mappings"`
}

// MIDIMapping binds one control-change number to a target.
//
// Target forms: "look:<id>", "fixture:<id>:<channel>", "blackout".
type MIDIMapping struct {
	Channel    int    `yaml:"channel"`
	Controller int    `yaml:"controller"`
	Target     string `yaml:"target"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: LUMEN_SECTION_KEY
// For example: LUMEN_SHOW_PATH, LUMEN_API_PORT
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration with environment overrides
// applied. Used when no config file exists.
func Default() (*Config, error) {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			Name: "Lumen",
		},
		Show: ShowConfig{
			Backend: ShowBackendFile,
			Path:    "./data/show.json",
			Watch:   true,
		},
		Database: DatabaseConfig{
			Path:        "./data/lumen.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 3000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 65536,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Output: OutputConfig{
			RestartDelayMS: 250,
			SourceName:     "Lumen",
			MulticastTTL:   1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "lumen",
			},
			QoS:         1,
			TopicPrefix: "lumen",
			Role:        "controller",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			Org:           "lumen",
			Bucket:        "lumen",
			BatchSize:     100,
			FlushInterval: 10,
			StatsInterval: 10,
		},
	}
}

// EnvPrefix prefixes every environment override: LUMEN_<SECTION>_<KEY>.
const EnvPrefix = "LUMEN"

// envOverrides lists the settings that may come from the environment, keyed
// by their viper key (LUMEN_ + upper-cased key).
var envOverrides = []struct {
	key   string
	apply func(cfg *Config, v string)
}{
	{"show_backend", func(c *Config, v string) { c.Show.Backend = v }},
	{"show_path", func(c *Config, v string) { c.Show.Path = v }},
	{"database_path", func(c *Config, v string) { c.Database.Path = v }},
	{"api_host", func(c *Config, v string) { c.API.Host = v }},
	{"api_port", func(c *Config, v string) {
		if port, err := strconv.Atoi(v); err == nil {
			c.API.Port = port
		}
	}},
	{"ui_dir", func(c *Config, v string) { c.API.UIDir = v }},
	{"log_level", func(c *Config, v string) { c.Logging.Level = v }},
	{"mqtt_host", func(c *Config, v string) { c.MQTT.Broker.Host = v }},
	{"mqtt_username", func(c *Config, v string) { c.MQTT.Auth.Username = v }},
	{"mqtt_password", func(c *Config, v string) { c.MQTT.Auth.Password = v }},
	{"influxdb_token", func(c *Config, v string) { c.InfluxDB.Token = v }},
}

// applyEnvOverrides applies the non-empty LUMEN_* variables in envOverrides.
func applyEnvOverrides(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	for _, o := range envOverrides {
		if v.IsSet(o.key) {
			o.apply(cfg, v.GetString(o.key))
		}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	switch c.Show.Backend {
	case ShowBackendFile:
		if c.Show.Path == "" {
			errs = append(errs, "show.path is required for the file backend")
		}
	case ShowBackendSQLite:
		if c.Database.Path == "" {
			errs = append(errs, "database.path is required for the sqlite backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("show.backend must be %q or %q", ShowBackendFile, ShowBackendSQLite))
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.WebSocket.MaxMessageSize <= 0 {
		errs = append(errs, "websocket.max_message_size must be positive")
	}

	if c.Output.RestartDelayMS < 0 {
		errs = append(errs, "output.restart_delay_ms must not be negative")
	}
	if c.Output.MulticastTTL < 1 || c.Output.MulticastTTL > 255 {
		errs = append(errs, "output.multicast_ttl must be between 1 and 255")
	}

	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.TopicPrefix == "" {
			errs = append(errs, "mqtt.topic_prefix is required")
		}
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.MIDI.Enabled {
		if c.MIDI.Port == "" {
			errs = append(errs, "midi.port is required when midi is enabled")
		}
		for i, m := range c.MIDI.Mappings {
			if m.Channel < 0 || m.Channel > 15 {
				errs = append(errs, fmt.Sprintf("midi.mappings[%d].channel must be between 0 and 15", i))
			}
			if m.Controller < 0 || m.Controller > 127 {
				errs = append(errs, fmt.Sprintf("midi.mappings[%d].controller must be between 0 and 127", i))
			}
			if m.Target == "" {
				errs = append(errs, fmt.Sprintf("midi.mappings[%d].target is required", i))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetRestartDelay returns the output engine restart delay as a Duration.
func (c *Config) GetRestartDelay() time.Duration {
	return time.Duration(c.Output.RestartDelayMS) * time.Millisecond
}
