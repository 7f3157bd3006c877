package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Default MQTT broker ports.
const (
	DefaultMQTTPort    = 1883
	DefaultMQTTTLSPort = 8883
)

// DefaultTopicPrefix is prepended to every bridge topic unless overridden.
const DefaultTopicPrefix = "homeassistant/"

// envPrefix is the prefix for environment variable overrides.
const envPrefix = "SWITCHBOT_"

// Config is the root configuration structure for switchbot-mqtt.
// Values come from defaults, an optional YAML file, environment variables
// and command-line flags, in that order.
type Config struct {
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Devices  DevicesConfig  `yaml:"devices"`
	BLE      BLEConfig      `yaml:"ble"`
	API      APIConfig      `yaml:"api"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
// A zero Port is resolved to 8883 with TLS and 1883 without.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
// PasswordFile is read once at load time; a single trailing newline is stripped.
type MQTTAuthConfig struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	PasswordFile string `yaml:"password_file"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// DevicesConfig controls how commands are sent to SwitchBot devices.
type DevicesConfig struct {
	// PasswordFile is a JSON object mapping MAC addresses to device passwords.
	PasswordFile string `yaml:"password_file"`

	// Retries is the maximum number of attempts per device operation.
	Retries int `yaml:"retries"`

	// RetryBackoff is the pause between attempts. Zero retries immediately.
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	// FetchDeviceInfo enables battery (and curtain position) reports after commands.
	FetchDeviceInfo bool `yaml:"fetch_device_info"`
}

// BLEConfig contains BlueZ settings.
type BLEConfig struct {
	Adapter         string        `yaml:"adapter"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	ResponseTimeout time.Duration `yaml:"response_timeout"`
}

// APIConfig contains the status HTTP server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
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
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
// Sizes are in megabytes, ages in days.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Load builds the configuration.
//
// The loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values, if path is not empty
//  3. Environment variables (SWITCHBOT_SECTION_KEY, plus FETCH_DEVICE_INFO)
//  4. Flags explicitly set on fs, if fs is not nil
//  5. Secrets read from password files, derived defaults
//
// Parameters:
//   - path: Path to the YAML configuration file (optional)
//   - fs: Parsed flag set created by NewFlagSet (optional)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If a file cannot be read or parsed, or validation fails
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if fs != nil {
		if err := applyFlags(cfg, fs); err != nil {
			return nil, err
		}
	}

	if err := cfg.resolve(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				TLS: true,
			},
			QoS:         1,
			TopicPrefix: DefaultTopicPrefix,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Devices: DevicesConfig{
			Retries: 3,
		},
		BLE: BLEConfig{
			Adapter:         "hci0",
			ConnectTimeout:  10 * time.Second,
			ResponseTimeout: 5 * time.Second,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(envPrefix + "MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv(envPrefix + "MQTT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %sMQTT_PORT: %w", envPrefix, err)
		}
		cfg.MQTT.Broker.Port = port
	}
	if v := os.Getenv(envPrefix + "MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv(envPrefix + "MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv(envPrefix + "MQTT_TOPIC_PREFIX"); v != "" {
		cfg.MQTT.TopicPrefix = v
	}
	if v := os.Getenv(envPrefix + "DEVICE_PASSWORD_FILE"); v != "" {
		cfg.Devices.PasswordFile = v
	}
	if v := os.Getenv(envPrefix + "RETRIES"); v != "" {
		retries, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %sRETRIES: %w", envPrefix, err)
		}
		cfg.Devices.Retries = retries
	}
	if v := os.Getenv(envPrefix + "BLE_ADAPTER"); v != "" {
		cfg.BLE.Adapter = v
	}
	if v := os.Getenv(envPrefix + "INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Any non-empty value enables device info reports.
	if os.Getenv("FETCH_DEVICE_INFO") != "" {
		cfg.Devices.FetchDeviceInfo = true
	}

	return nil
}

// resolve reads secret files and fills values derived from other settings.
func (c *Config) resolve() error {
	if c.MQTT.Broker.Port == 0 {
		if c.MQTT.Broker.TLS {
			c.MQTT.Broker.Port = DefaultMQTTTLSPort
		} else {
			c.MQTT.Broker.Port = DefaultMQTTPort
		}
	}

	if c.MQTT.Auth.PasswordFile != "" {
		if c.MQTT.Auth.Password != "" {
			return fmt.Errorf("mqtt password and password file are mutually exclusive")
		}
		data, err := os.ReadFile(c.MQTT.Auth.PasswordFile)
		if err != nil {
			return fmt.Errorf("reading mqtt password file: %w", err)
		}
		c.MQTT.Auth.Password = stripTrailingNewline(string(data))
	}

	return nil
}

// stripTrailingNewline removes exactly one trailing "\r\n" or "\n".
func stripTrailingNewline(s string) string {
	if strings.HasSuffix(s, "\r\n") {
		return s[:len(s)-2]
	}
	return strings.TrimSuffix(s, "\n")
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required (--mqtt-host)")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.Auth.Password != "" && c.MQTT.Auth.Username == "" {
		errs = append(errs, "mqtt.auth.username is required when a password is set")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if strings.ContainsAny(c.MQTT.TopicPrefix, "+#") {
		errs = append(errs, "mqtt.topic_prefix must not contain wildcards")
	}

	if c.Devices.Retries < 1 {
		errs = append(errs, "devices.retries must be at least 1")
	}
	if c.Devices.RetryBackoff < 0 {
		errs = append(errs, "devices.retry_backoff must not be negative")
	}

	if c.BLE.Adapter == "" {
		errs = append(errs, "ble.adapter is required")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
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
