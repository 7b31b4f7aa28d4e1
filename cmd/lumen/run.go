package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nerrad567/lumen-core/internal/api"
	"github.com/nerrad567/lumen-core/internal/auth"
	"github.com/nerrad567/lumen-core/internal/bridges/fader"
	"github.com/nerrad567/lumen-core/internal/bridges/remote"
	"github.com/nerrad567/lumen-core/internal/console"
	"github.com/nerrad567/lumen-core/internal/infrastructure/config"
	"github.com/nerrad567/lumen-core/internal/infrastructure/database"
	"github.com/nerrad567/lumen-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/lumen-core/internal/infrastructure/logging"
	"github.com/nerrad567/lumen-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/lumen-core/internal/output"
	"github.com/nerrad567/lumen-core/internal/show"
	"github.com/nerrad567/lumen-core/internal/telemetry"
	"github.com/nerrad567/lumen-core/migrations"
)

// run wires every component and blocks until ctx is cancelled. Only startup
// failures are returned; deferred Close calls run in reverse order.
func run(ctx context.Context, cfg *config.Config, configPath string) error {
	log := logging.New(cfg.Logging, version)
	log.Info("starting Lumen",
		"version", version,
		"commit", commit,
		"build_date", date,
		"site", cfg.Site.Name,
	)
	if configPath != "" {
		log.Info("configuration loaded", "path", configPath)
	} else {
		log.Info("no config file, using built-in defaults")
	}

	var checks []healthCheck

	store, fileStore, closeStore, storeCheck, err := openShowStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()
	if storeCheck != nil {
		checks = append(checks, healthCheck{"database", storeCheck})
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc, err := console.New(ctx, store, console.Options{
		Logger: log.Component("console"),
		Output: output.Options{
			SourceName:   cfg.Output.SourceName,
			MulticastTTL: cfg.Output.MulticastTTL,
			RestartDelay: cfg.GetRestartDelay(),
			Logger:       log.Component("output"),
			Metrics:      output.NewMetrics(reg),
		},
	})
	if err != nil {
		return fmt.Errorf("starting console: %w", err)
	}
	// The UI can fix bad output settings, so an engine that cannot open its
	// sockets does not stop the server.
	if err := svc.Start(ctx); err != nil {
		log.Error("output engine failed to start", "error", err)
	}
	defer func() {
		log.Info("stopping output")
		svc.Stop()
	}()

	if fileStore != nil && cfg.Show.Watch {
		watcher := show.NewWatcher(fileStore, func(doc *show.Document) {
			if err := svc.ReloadFromStore(doc); err != nil {
				log.Warn("show reload rejected", "path", fileStore.Path(), "error", err)
			}
		})
		watcher.SetLogger(log.Component("watcher"))
		if err := watcher.Start(ctx); err != nil {
			log.Warn("show hot reload disabled", "error", err)
		} else {
			defer watcher.Close() //nolint:errcheck // shutdown
		}
	}

	server, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Metrics:    cfg.Metrics,
		Logger:     log.Component("api"),
		Service:    svc,
		Gatherer:   reg,
		Registerer: reg,
		Site:       cfg.Site.Name,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if err := server.Close(); err != nil {
			log.Error("error closing API server", "error", err)
		}
	}()
	checks = append(checks, healthCheck{"api", server.HealthCheck})

	if cfg.MQTT.Enabled {
		stop, check, err := startRemote(ctx, cfg, svc, log)
		if err != nil {
			return err
		}
		defer stop()
		checks = append(checks, healthCheck{"mqtt", check})
	} else {
		log.Info("MQTT remote control disabled")
	}

	if cfg.InfluxDB.Enabled {
		stop, check, err := startTelemetry(ctx, cfg, svc, log)
		if err != nil {
			return err
		}
		defer stop()
		checks = append(checks, healthCheck{"influxdb", check})
	} else {
		log.Info("InfluxDB telemetry disabled")
	}

	if cfg.MIDI.Enabled {
		surface, err := fader.New(cfg.MIDI, svc)
		if err != nil {
			return fmt.Errorf("midi mappings: %w", err)
		}
		surface.SetLogger(log.Component("midi"))
		// A surface that is unplugged at boot should not take the lights down.
		if err := surface.Start(); err != nil {
			log.Warn("MIDI surface unavailable", "port", cfg.MIDI.Port, "error", err)
		} else {
			defer surface.Stop()
		}
	}

	if err := runHealthChecks(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("Lumen running", "address", server.Addr())
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

// healthCheck is one startup check of a connected component.
type healthCheck struct {
	name  string
	check func(context.Context) error
}

// healthCheckTimeout bounds the startup checks as a whole.
const healthCheckTimeout = 5 * time.Second

// runHealthChecks runs checks in order and returns the first failure,
// prefixed with the component name.
func runHealthChecks(ctx context.Context, checks []healthCheck) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	for _, c := range checks {
		if err := c.check(ctx); err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
	}
	return nil
}

// openShowStore opens the configured show backend. fileStore is non-nil for
// the file backend so it can be watched; check is non-nil for SQLite.
func openShowStore(ctx context.Context, cfg *config.Config, log *logging.Logger) (show.Store, *show.FileStore, func(), func(context.Context) error, error) {
	if cfg.Show.Backend == config.ShowBackendSQLite {
		db, err := database.Open(ctx, database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("opening database: %w", err)
		}
		if err := db.Migrate(ctx, migrations.FS); err != nil {
			db.Close() //nolint:errcheck // already failing
			return nil, nil, nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		log.Info("show stored in SQLite", "path", cfg.Database.Path)
		return show.NewSQLiteStore(db), nil, func() {
			log.Info("closing database")
			if err := db.Close(); err != nil {
				log.Error("error closing database", "error", err)
			}
		}, db.HealthCheck, nil
	}

	fs := show.NewFileStore(cfg.Show.Path)
	log.Info("show stored in file", "path", cfg.Show.Path)
	return fs, fs, func() {}, nil, nil
}

func startRemote(ctx context.Context, cfg *config.Config, svc *console.Service, log *logging.Logger) (func(), func(context.Context) error, error) {
	role, err := auth.ParseRole(cfg.MQTT.Role)
	if err != nil {
		return nil, nil, fmt.Errorf("mqtt.role: %w", err)
	}

	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	mqttLog := log.Component("mqtt")
	client.SetLogger(mqttLog)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	bridge, err := remote.New(remote.Options{
		MQTT:    client,
		Console: svc,
		Topics:  client.Topics(),
		Role:    role,
		QoS:     byte(cfg.MQTT.QoS), // #nosec G115 -- validated 0..2
		Logger:  mqttLog,
	})
	if err != nil {
		client.Close() //nolint:errcheck // already failing
		return nil, nil, err
	}
	client.SetOnConnect(func() {
		mqttLog.Info("MQTT reconnected")
		bridge.Resync()
	})
	client.SetOnDisconnect(func(err error) {
		mqttLog.Warn("MQTT disconnected", "error", err)
	})
	if err := bridge.Start(ctx); err != nil {
		client.Close() //nolint:errcheck // already failing
		return nil, nil, fmt.Errorf("starting remote bridge: %w", err)
	}

	return func() {
		bridge.Stop()
		log.Info("disconnecting from MQTT")
		if err := client.Close(); err != nil {
			log.Error("error closing MQTT", "error", err)
		}
	}, client.HealthCheck, nil
}

func startTelemetry(ctx context.Context, cfg *config.Config, svc *console.Service, log *logging.Logger) (func(), func(context.Context) error, error) {
	client, err := influxdb.Connect(cfg.InfluxDB)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)

	rec := telemetry.New(client, svc, cfg.Site.Name, time.Duration(cfg.InfluxDB.StatsInterval)*time.Second)
	rec.SetLogger(log.Component("telemetry"))
	rec.Start(ctx)

	return func() {
		rec.Stop()
		log.Info("closing InfluxDB connection")
		if err := client.Close(); err != nil {
			log.Error("error closing InfluxDB", "error", err)
		}
	}, client.HealthCheck, nil
}
