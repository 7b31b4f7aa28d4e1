package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lumen.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
site:
  name: "Studio A"
show:
  backend: "file"
  path: "/tmp/show.json"
api:
  host: "127.0.0.1"
  port: 8080
output:
  restart_delay_ms: 100
  multicast_ttl: 4
mqtt:
  enabled: true
  topic_prefix: "studio"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.Name != "Studio A" {
		t.Errorf("Site.Name = %q, want %q", cfg.Site.Name, "Studio A")
	}
	if cfg.Show.Path != "/tmp/show.json" {
		t.Errorf("Show.Path = %q, want %q", cfg.Show.Path, "/tmp/show.json")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want 8080", cfg.API.Port)
	}
	if cfg.GetRestartDelay() != 100*time.Millisecond {
		t.Errorf("GetRestartDelay() = %v, want 100ms", cfg.GetRestartDelay())
	}
	if cfg.MQTT.TopicPrefix != "studio" {
		t.Errorf("MQTT.TopicPrefix = %q, want %q", cfg.MQTT.TopicPrefix, "studio")
	}
	// Untouched sections keep their defaults.
	if cfg.WebSocket.Path != "/ws" {
		t.Errorf("WebSocket.Path = %q, want default /ws", cfg.WebSocket.Path)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/lumen.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
show:
  backend: "postgres"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected validation error for unknown backend, got nil")
	}
	if !strings.Contains(err.Error(), "show.backend") {
		t.Errorf("error = %v, want mention of show.backend", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
api:
  port: 8080
`)
	t.Setenv("LUMEN_API_PORT", "9090")
	t.Setenv("LUMEN_SHOW_PATH", "/srv/show.json")
	t.Setenv("LUMEN_MQTT_PASSWORD", "secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if cfg.Show.Path != "/srv/show.json" {
		t.Errorf("Show.Path = %q, want /srv/show.json", cfg.Show.Path)
	}
	if cfg.MQTT.Auth.Password != "secret" {
		t.Errorf("MQTT.Auth.Password not overridden")
	}
}

func TestEnvOverrides_Edges(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(*Config) string
	}{
		{
			name: "empty value keeps default",
			env:  map[string]string{"LUMEN_SHOW_PATH": ""},
			check: func(c *Config) string {
				if c.Show.Path != "./data/show.json" {
					return "Show.Path = " + c.Show.Path
				}
				return ""
			},
		},
		{
			name: "non-numeric port ignored",
			env:  map[string]string{"LUMEN_API_PORT": "http"},
			check: func(c *Config) string {
				if c.API.Port != 3000 {
					return "API.Port changed"
				}
				return ""
			},
		},
		{
			name: "default config takes overrides",
			env:  map[string]string{"LUMEN_LOG_LEVEL": "debug", "LUMEN_INFLUXDB_TOKEN": "tok"},
			check: func(c *Config) string {
				if c.Logging.Level != "debug" || c.InfluxDB.Token != "tok" {
					return "overrides not applied to Default()"
				}
				return ""
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Default()
			if err != nil {
				t.Fatalf("Default() error = %v", err)
			}
			if msg := tt.check(cfg); msg != "" {
				t.Error(msg)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if cfg.Show.Backend != ShowBackendFile {
		t.Errorf("Show.Backend = %q, want %q", cfg.Show.Backend, ShowBackendFile)
	}
	if cfg.Output.MulticastTTL != 1 {
		t.Errorf("Output.MulticastTTL = %d, want 1", cfg.Output.MulticastTTL)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "file backend needs a path",
			mutate:  func(c *Config) { c.Show.Path = "" },
			wantErr: "show.path",
		},
		{
			name: "sqlite backend needs a database path",
			mutate: func(c *Config) {
				c.Show.Backend = ShowBackendSQLite
				c.Database.Path = ""
			},
			wantErr: "database.path",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "api.port",
		},
		{
			name:    "ttl zero",
			mutate:  func(c *Config) { c.Output.MulticastTTL = 0 },
			wantErr: "output.multicast_ttl",
		},
		{
			name: "mqtt qos checked only when enabled",
			mutate: func(c *Config) {
				c.MQTT.QoS = 5
			},
		},
		{
			name: "mqtt qos invalid",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.QoS = 5
			},
			wantErr: "mqtt.qos",
		},
		{
			name:    "influxdb without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: "influxdb.url",
		},
		{
			name: "midi mapping controller out of range",
			mutate: func(c *Config) {
				c.MIDI.Enabled = true
				c.MIDI.Port = "nanoKONTROL"
				c.MIDI.Mappings = []MIDIMapping{{Channel: 0, Controller: 200, Target: "blackout"}}
			},
			wantErr: "midi.mappings[0].controller",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
