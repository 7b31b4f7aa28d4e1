package influxdb_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/lumen-core/internal/infrastructure/config"
	"github.com/nerrad567/lumen-core/internal/infrastructure/influxdb"
)

// testConfig returns a configuration for a local dev InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "lumen-dev-token",
		Org:           "lumen",
		Bucket:        "telemetry",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// skipIfNoInfluxDB skips the test if InfluxDB is not running.
func skipIfNoInfluxDB(t *testing.T) {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION") == "" {
		client, err := influxdb.Connect(testConfig())
		if err != nil {
			t.Skip("InfluxDB not available, skipping integration test")
		}
		client.Close()
	}
}

// connectWithErrors connects and records async write errors.
func connectWithErrors(t *testing.T) (*influxdb.Client, func() error) {
	t.Helper()
	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })

	var mu sync.Mutex
	var writeErr error
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})
	return client, func() error {
		client.Flush()
		time.Sleep(100 * time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		return writeErr
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999"

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestDisconnectedClient(t *testing.T) {
	var client influxdb.Client

	// Writers are no-ops while disconnected.
	client.WriteState("venue", true, 2)
	client.WriteLookLevel("venue", "warm", 0.5)
	client.WriteOutput("venue", influxdb.OutputCounters{Frames: 10})
	client.Flush()

	if client.IsConnected() {
		t.Error("IsConnected() = true on zero client")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestConnect(t *testing.T) {
	skipIfNoInfluxDB(t)

	tests := []struct {
		name   string
		mutate func(*config.InfluxDBConfig)
	}{
		{"configured", func(*config.InfluxDBConfig) {}},
		{"default batching", func(c *config.InfluxDBConfig) { c.BatchSize, c.FlushInterval = 0, 0 }},
		{"negative batching", func(c *config.InfluxDBConfig) { c.BatchSize, c.FlushInterval = -5, -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			client, err := influxdb.Connect(cfg)
			if err != nil {
				t.Fatalf("Connect() error = %v", err)
			}
			defer client.Close()
			if !client.IsConnected() {
				t.Error("IsConnected() = false after Connect()")
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	skipIfNoInfluxDB(t)
	client, _ := connectWithErrors(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	if err := client.HealthCheck(cancelled); err == nil {
		t.Error("HealthCheck() should fail for a cancelled context")
	}
}

func TestWriters(t *testing.T) {
	skipIfNoInfluxDB(t)

	tests := []struct {
		name  string
		write func(*influxdb.Client)
	}{
		{"state", func(c *influxdb.Client) { c.WriteState("test", false, 3) }},
		{"look", func(c *influxdb.Client) { c.WriteLookLevel("test", "warm", 0.75) }},
		{"output", func(c *influxdb.Client) {
			c.WriteOutput("test", influxdb.OutputCounters{Protocol: "sacn", Running: true, Universes: 2, Frames: 100, Packets: 200})
		}},
		{"output stopped", func(c *influxdb.Client) { c.WriteOutput("test", influxdb.OutputCounters{}) }},
		{"custom point", func(c *influxdb.Client) {
			c.WritePointWithTime("lumen_test", map[string]string{"source": "test"},
				map[string]interface{}{"value": 88.8}, time.Now().Add(-time.Hour))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, writeErr := connectWithErrors(t)
			tt.write(client)
			if err := writeErr(); err != nil {
				t.Errorf("write error = %v", err)
			}
		})
	}
}

func TestClose(t *testing.T) {
	skipIfNoInfluxDB(t)
	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.WriteLookLevel("test", "close", 1)

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}
