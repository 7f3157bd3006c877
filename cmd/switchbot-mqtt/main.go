// switchbot-mqtt bridges SwitchBot Bot and Curtain devices to MQTT.
//
// Commands arrive on MQTT topics, are executed over Bluetooth Low Energy
// through BlueZ, and the resulting state is published back as retained
// messages. See internal/bridge for the topic layout.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/switchbot-mqtt/internal/api"
	"github.com/nerrad567/switchbot-mqtt/internal/bluez"
	"github.com/nerrad567/switchbot-mqtt/internal/bridge"
	"github.com/nerrad567/switchbot-mqtt/internal/device"
	"github.com/nerrad567/switchbot-mqtt/internal/infrastructure/config"
	"github.com/nerrad567/switchbot-mqtt/internal/infrastructure/influxdb"
	"github.com/nerrad567/switchbot-mqtt/internal/infrastructure/logging"
	"github.com/nerrad567/switchbot-mqtt/internal/infrastructure/mqtt"
	"github.com/nerrad567/switchbot-mqtt/internal/switchbot"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
)

// configEnvVar names a config file when --config is not given.
const configEnvVar = "SWITCHBOT_CONFIG"

// connectionCheckInterval is how often the MQTT link state is sampled for logging.
const connectionCheckInterval = 30 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - args: Command-line arguments without the program name
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, args []string) error {
	fs := config.NewFlagSet("switchbot-mqtt")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parsing flags: %w", err)
	}

	configPath := getConfigPath(fs)
	cfg, err := config.Load(configPath, fs)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version)
	defer func() {
		_ = log.Close()
	}()
	log.Info("starting switchbot-mqtt",
		"version", version,
		"commit", commit,
		"config", configPath,
	)

	passwords, err := device.LoadPasswords(cfg.Devices.PasswordFile)
	if err != nil {
		return fmt.Errorf("loading device passwords: %w", err)
	}
	if len(passwords) > 0 {
		log.Info("device passwords loaded", "devices", len(passwords))
	}

	transport, err := bluez.New(cfg.BLE, log.With("component", "bluez"))
	if err != nil {
		return fmt.Errorf("opening BLE adapter: %w", err)
	}
	defer func() {
		if closeErr := transport.Close(); closeErr != nil {
			log.Error("error closing BLE transport", "error", closeErr)
		}
	}()
	log.Info("BLE adapter ready", "adapter", transport.Adapter())

	registry := device.NewRegistry(passwords, func(address, password string) device.Protocol {
		return switchbot.NewDevice(address, password, transport)
	})
	registry.SetLogger(log)

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT)
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
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT connected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"tls", cfg.MQTT.Broker.TLS,
		"availability_topic", mqttClient.AvailabilityTopic(),
	)

	// A nil *influxdb.Client must not become a non-nil interface.
	var telemetry bridge.TelemetrySink
	if influxClient != nil {
		telemetry = influxClient
	}

	br, err := bridge.NewBridge(bridge.BridgeOptions{
		MQTTClient:  &mqttBridgeAdapter{client: mqttClient},
		Registry:    registry,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		QoS:         byte(cfg.MQTT.QoS),
		Retry: bridge.RetryPolicy{
			Attempts: cfg.Devices.Retries,
			Backoff:  cfg.Devices.RetryBackoff,
		},
		FetchDeviceInfo: cfg.Devices.FetchDeviceInfo,
		Telemetry:       telemetry,
		Logger:          log.With("component", "bridge"),
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	if err := br.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		br.Stop()
	}()

	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:  cfg.API,
			Logger:  log.With("component", "api"),
			Status:  br,
			Version: version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if apiErr := server.Start(ctx); apiErr != nil {
			return fmt.Errorf("starting API server: %w", apiErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return monitorConnection(gctx, mqttClient, influxClient, log)
	})

	log.Info("initialisation complete, waiting for shutdown signal")
	if err := g.Wait(); err != nil {
		return err
	}

	// Deferred cleanup runs in reverse order: API, bridge (waits for
	// in-flight commands), MQTT (publishes offline), InfluxDB, BLE.
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns --config, falling back to SWITCHBOT_CONFIG.
// An empty result means defaults, environment and flags only.
func getConfigPath(fs *pflag.FlagSet) string {
	if path := config.ConfigPath(fs); path != "" {
		return path
	}
	return os.Getenv(configEnvVar)
}

// monitorConnection logs MQTT and InfluxDB health transitions until ctx is cancelled.
func monitorConnection(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client, log *logging.Logger) error {
	ticker := time.NewTicker(connectionCheckInterval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := healthCheck(ctx, mqttClient, influxClient)
			switch {
			case err != nil && healthy:
				log.Warn("health check failed", "error", err)
			case err == nil && !healthy:
				log.Info("health check recovered")
			}
			healthy = err == nil
		}
	}
}

// healthCheck verifies infrastructure connections. influxClient may be nil.
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the bridge's
// MQTTClient interface. The difference is the Subscribe handler signature:
//   - Infrastructure mqtt: func(msg mqtt.Message) error
//   - Bridge expects: func(topic string, payload []byte, retained bool)
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements bridge.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements bridge.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte, retained bool)) error {
	return a.client.Subscribe(topic, qos, func(msg mqtt.Message) error {
		handler(msg.Topic, msg.Payload, msg.Retained)
		return nil
	})
}

// IsConnected implements bridge.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}
