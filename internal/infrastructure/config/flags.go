package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Flag names accepted on the command line.
const (
	FlagConfig             = "config"
	FlagMQTTHost           = "mqtt-host"
	FlagMQTTPort           = "mqtt-port"
	FlagMQTTDisableTLS     = "mqtt-disable-tls"
	FlagMQTTUsername       = "mqtt-username"
	FlagMQTTPassword       = "mqtt-password"
	FlagMQTTPasswordFile   = "mqtt-password-file"
	FlagMQTTTopicPrefix    = "mqtt-topic-prefix"
	FlagDevicePasswordFile = "device-password-file"
	FlagRetries            = "retries"
	FlagFetchDeviceInfo    = "fetch-device-info"
	FlagBLEAdapter         = "ble-adapter"
	FlagDebug              = "debug"
)

// NewFlagSet defines the command-line flags understood by Load.
//
// Flag defaults are informational only: Load applies a flag value only when
// the flag was set explicitly, so file and environment values survive.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	defaults := defaultConfig()

	fs.String(FlagConfig, "", "path to YAML configuration file")
	fs.String(FlagMQTTHost, "", "MQTT broker hostname")
	fs.Int(FlagMQTTPort, 0, fmt.Sprintf("MQTT broker port (default %d, %d with --%s)", DefaultMQTTTLSPort, DefaultMQTTPort, FlagMQTTDisableTLS))
	fs.Bool(FlagMQTTDisableTLS, false, "connect to the broker without TLS")
	fs.String(FlagMQTTUsername, "", "MQTT username")
	fs.String(FlagMQTTPassword, "", "MQTT password")
	fs.String(FlagMQTTPasswordFile, "", "read MQTT password from file, stripping a trailing newline")
	fs.String(FlagMQTTTopicPrefix, defaults.MQTT.TopicPrefix, "prefix for all MQTT topics")
	fs.String(FlagDevicePasswordFile, "", `JSON file mapping MAC addresses to device passwords, e.g. {"aa:bb:cc:dd:ee:ff": "secret"}`)
	fs.Int(FlagRetries, defaults.Devices.Retries, "maximum number of attempts to send a command to a device")
	fs.Bool(FlagFetchDeviceInfo, false, "report battery level after every command and curtain position after stop (also enabled by a non-empty FETCH_DEVICE_INFO)")
	fs.String(FlagBLEAdapter, defaults.BLE.Adapter, "BlueZ adapter name")
	fs.Bool(FlagDebug, false, "enable debug logging in text format")

	return fs
}

// ConfigPath returns the --config value from a parsed flag set.
func ConfigPath(fs *pflag.FlagSet) string {
	path, err := fs.GetString(FlagConfig)
	if err != nil {
		return ""
	}
	return path
}

// applyFlags copies explicitly set flags into cfg.
func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	var firstErr error
	str := func(name string, dst *string) {
		if !fs.Changed(name) {
			return
		}
		v, err := fs.GetString(name)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("reading flag --%s: %w", name, err)
		}
		*dst = v
	}
	num := func(name string, dst *int) {
		if !fs.Changed(name) {
			return
		}
		v, err := fs.GetInt(name)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("reading flag --%s: %w", name, err)
		}
		*dst = v
	}
	flag := func(name string) bool {
		if !fs.Changed(name) {
			return false
		}
		v, err := fs.GetBool(name)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("reading flag --%s: %w", name, err)
		}
		return v
	}

	str(FlagMQTTHost, &cfg.MQTT.Broker.Host)
	num(FlagMQTTPort, &cfg.MQTT.Broker.Port)
	if flag(FlagMQTTDisableTLS) {
		cfg.MQTT.Broker.TLS = false
	}
	str(FlagMQTTUsername, &cfg.MQTT.Auth.Username)
	str(FlagMQTTPassword, &cfg.MQTT.Auth.Password)
	str(FlagMQTTPasswordFile, &cfg.MQTT.Auth.PasswordFile)
	str(FlagMQTTTopicPrefix, &cfg.MQTT.TopicPrefix)
	str(FlagDevicePasswordFile, &cfg.Devices.PasswordFile)
	num(FlagRetries, &cfg.Devices.Retries)
	if flag(FlagFetchDeviceInfo) {
		cfg.Devices.FetchDeviceInfo = true
	}
	str(FlagBLEAdapter, &cfg.BLE.Adapter)
	if flag(FlagDebug) {
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "text"
	}

	if fs.Changed(FlagMQTTPassword) && fs.Changed(FlagMQTTPasswordFile) {
		return fmt.Errorf("--%s and --%s are mutually exclusive", FlagMQTTPassword, FlagMQTTPasswordFile)
	}

	return firstErr
}
