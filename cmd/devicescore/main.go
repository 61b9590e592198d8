// Devices Core - Property State Runtime
//
// This is the main entry point for the devices-core service. It owns the
// property catalog and the runtime state of every dynamic property, exposes
// them over the MQTT action/state topics, and records state telemetry to
// InfluxDB.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/emberhome/devices-core/migrations"

	"github.com/emberhome/devices-core/internal/catalog"
	"github.com/emberhome/devices-core/internal/infrastructure/config"
	"github.com/emberhome/devices-core/internal/infrastructure/database"
	"github.com/emberhome/devices-core/internal/infrastructure/influxdb"
	"github.com/emberhome/devices-core/internal/infrastructure/logging"
	"github.com/emberhome/devices-core/internal/infrastructure/mqtt"
	"github.com/emberhome/devices-core/internal/states"
	"github.com/emberhome/devices-core/internal/telemetry"
	"github.com/emberhome/devices-core/internal/value"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting devices-core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise property catalog
	repo := catalog.NewSQLiteRepository(db.DB)
	registry := catalog.NewRegistry(repo)
	registry.SetLogger(log)

	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading property catalog: %w", refreshErr)
	}
	log.Info("property catalog initialised", "properties", registry.PropertyCount())

	// Shared value conversion pipeline (equation programs are cached inside)
	pipeline, err := value.NewPipeline()
	if err != nil {
		return fmt.Errorf("creating value pipeline: %w", err)
	}

	// One state manager per entity kind. In exchange delivery mode the bus
	// is authoritative, so the managers run without local storage.
	exchange := cfg.States.Delivery == config.DeliveryExchange
	managers := make(map[catalog.EntityKind]*states.Manager)
	for _, kind := range catalog.AllEntityKinds() {
		var store states.Store
		if exchange {
			store = states.NewNullStore()
		} else {
			store = states.NewSQLiteStore(db.DB, kind)
		}

		mgr := states.NewManager(kind, registry, store, pipeline)
		mgr.SetLogger(log)
		mgr.SetReadCacheTTL(cfg.GetReadCacheTTL())
		managers[kind] = mgr
	}
	log.Info("state managers initialised", "delivery", cfg.States.Delivery)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		if wireErr := wireExchange(mqttClient, registry, managers, exchange, log); wireErr != nil {
			return fmt.Errorf("wiring state exchange: %w", wireErr)
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		// Record state change telemetry from every manager
		recorder := telemetry.NewRecorder(influxClient)
		for _, mgr := range managers {
			mgr.Subscribe(recorder.Listener())
		}
	} else {
		log.Info("InfluxDB disabled")
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("devices-core stopped")
	return nil
}

// wireExchange connects the state managers to the action bus.
//
// In exchange mode each manager publishes its reads and writes as actions.
// In local mode this process owns the state: it consumes incoming actions
// and broadcasts resulting state records retained for subscribers.
func wireExchange(client *mqtt.Client, registry *catalog.Registry, managers map[catalog.EntityKind]*states.Manager, exchange bool, log *logging.Logger) error {
	if exchange {
		publisher := states.NewExchangePublisher(client)
		publisher.SetLogger(log)
		for _, mgr := range managers {
			mgr.SetPublisher(publisher)
		}
		log.Info("state delivery via action bus")
		return nil
	}

	for kind, mgr := range managers {
		consumer := states.NewConsumer(client, registry, mgr)
		consumer.SetLogger(log)
		if err := consumer.Start(); err != nil {
			return fmt.Errorf("starting %s action consumer: %w", kind, err)
		}

		broadcaster := states.NewBroadcaster(client, kind)
		broadcaster.SetLogger(log)
		mgr.Subscribe(broadcaster.Listener())
	}
	log.Info("action consumers and state broadcasters started")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses DEVICES_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("DEVICES_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// The MQTT and InfluxDB clients may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
