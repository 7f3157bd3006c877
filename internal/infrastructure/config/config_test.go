package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load consults so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SWITCHBOT_MQTT_HOST", "SWITCHBOT_MQTT_PORT", "SWITCHBOT_MQTT_USERNAME",
		"SWITCHBOT_MQTT_PASSWORD", "SWITCHBOT_MQTT_TOPIC_PREFIX", "SWITCHBOT_DEVICE_PASSWORD_FILE",
		"SWITCHBOT_RETRIES", "SWITCHBOT_BLE_ADAPTER", "SWITCHBOT_INFLUXDB_TOKEN",
		"SWITCHBOT_LOG_LEVEL", "FETCH_DEVICE_INFO",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	clearEnv(t)
	content := `
mqtt:
  broker:
    host: "broker.local"
    tls: false
    client_id: "test-client"
  qos: 1
devices:
  retries: 5
  retry_backoff: 250ms
  fetch_device_info: true
ble:
  adapter: "hci1"
`
	configPath := writeFile(t, "config.yaml", content)

	cfg, err := Load(configPath, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
	if cfg.MQTT.Broker.Port != DefaultMQTTPort {
		t.Errorf("MQTT.Broker.Port = %d, want %d (plain default)", cfg.MQTT.Broker.Port, DefaultMQTTPort)
	}
	if cfg.Devices.Retries != 5 {
		t.Errorf("Devices.Retries = %d, want 5", cfg.Devices.Retries)
	}
	if cfg.Devices.RetryBackoff != 250*time.Millisecond {
		t.Errorf("Devices.RetryBackoff = %v, want 250ms", cfg.Devices.RetryBackoff)
	}
	if !cfg.Devices.FetchDeviceInfo {
		t.Error("Devices.FetchDeviceInfo = false, want true")
	}
	if cfg.BLE.Adapter != "hci1" {
		t.Errorf("BLE.Adapter = %q, want %q", cfg.BLE.Adapter, "hci1")
	}
	if cfg.MQTT.TopicPrefix != DefaultTopicPrefix {
		t.Errorf("MQTT.TopicPrefix = %q, want %q", cfg.MQTT.TopicPrefix, DefaultTopicPrefix)
	}
}

func TestLoad_TLSDefaultPort(t *testing.T) {
	clearEnv(t)
	fs := NewFlagSet("test")
	if err := fs.Parse([]string{"--mqtt-host", "broker.local"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg, err := Load("", fs)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.MQTT.Broker.TLS {
		t.Error("MQTT.Broker.TLS = false, want true by default")
	}
	if cfg.MQTT.Broker.Port != DefaultMQTTTLSPort {
		t.Errorf("MQTT.Broker.Port = %d, want %d", cfg.MQTT.Broker.Port, DefaultMQTTTLSPort)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load("/nonexistent/path/config.yaml", nil)
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	configPath := writeFile(t, "config.yaml", "invalid: [yaml: content")

	_, err := Load(configPath, nil)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_MissingHost(t *testing.T) {
	clearEnv(t)
	_, err := Load("", nil)
	if err == nil {
		t.Fatal("Load() expected error without mqtt host")
	}
	if !strings.Contains(err.Error(), "mqtt.broker.host") {
		t.Errorf("error = %v, want mention of mqtt.broker.host", err)
	}
}

func TestLoad_FlagsOverrideFileAndEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SWITCHBOT_MQTT_HOST", "env-host")
	t.Setenv("SWITCHBOT_RETRIES", "7")
	configPath := writeFile(t, "config.yaml", "mqtt:\n  broker:\n    host: file-host\n")

	fs := NewFlagSet("test")
	args := []string{
		"--mqtt-host", "flag-host",
		"--mqtt-disable-tls",
		"--mqtt-topic-prefix", "",
		"--debug",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg, err := Load(configPath, fs)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "flag-host" {
		t.Errorf("MQTT.Broker.Host = %q, want flag-host", cfg.MQTT.Broker.Host)
	}
	if cfg.MQTT.Broker.TLS {
		t.Error("MQTT.Broker.TLS = true, want false after --mqtt-disable-tls")
	}
	if cfg.MQTT.Broker.Port != DefaultMQTTPort {
		t.Errorf("MQTT.Broker.Port = %d, want %d", cfg.MQTT.Broker.Port, DefaultMQTTPort)
	}
	if cfg.Devices.Retries != 7 {
		t.Errorf("Devices.Retries = %d, want 7 from env", cfg.Devices.Retries)
	}
	if cfg.MQTT.TopicPrefix != "" {
		t.Errorf("MQTT.TopicPrefix = %q, want empty", cfg.MQTT.TopicPrefix)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want debug/text", cfg.Logging)
	}
}

func TestLoad_FetchDeviceInfoEnv(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{name: "unset", value: "", want: false},
		{name: "any value", value: "yes", want: true},
		{name: "zero still enables", value: "0", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("SWITCHBOT_MQTT_HOST", "broker.local")
			t.Setenv("FETCH_DEVICE_INFO", tt.value)

			cfg, err := Load("", nil)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Devices.FetchDeviceInfo != tt.want {
				t.Errorf("FetchDeviceInfo = %v, want %v", cfg.Devices.FetchDeviceInfo, tt.want)
			}
		})
	}
}

func TestLoad_PasswordFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "newline stripped", content: "secret\n", want: "secret"},
		{name: "crlf stripped", content: "secret\r\n", want: "secret"},
		{name: "only one newline stripped", content: "secret\n\n", want: "secret\n"},
		{name: "no newline", content: "secret", want: "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := writeFile(t, "password", tt.content)

			fs := NewFlagSet("test")
			args := []string{"--mqtt-host", "h", "--mqtt-username", "me", "--mqtt-password-file", path}
			if err := fs.Parse(args); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}

			cfg, err := Load("", fs)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.MQTT.Auth.Password != tt.want {
				t.Errorf("Password = %q, want %q", cfg.MQTT.Auth.Password, tt.want)
			}
		})
	}
}

func TestLoad_PasswordAndPasswordFileExclusive(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "password", "secret")

	fs := NewFlagSet("test")
	args := []string{"--mqtt-host", "h", "--mqtt-username", "me", "--mqtt-password", "x", "--mqtt-password-file", path}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if _, err := Load("", fs); err == nil {
		t.Error("Load() expected error for password and password file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			modify: func(*Config) {},
		},
		{
			name:    "password without username",
			modify:  func(c *Config) { c.MQTT.Auth.Password = "secret" },
			wantErr: "mqtt.auth.username",
		},
		{
			name:    "invalid qos",
			modify:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "wildcard prefix",
			modify:  func(c *Config) { c.MQTT.TopicPrefix = "home/+/" },
			wantErr: "mqtt.topic_prefix",
		},
		{
			name:    "zero retries",
			modify:  func(c *Config) { c.Devices.Retries = 0 },
			wantErr: "devices.retries",
		},
		{
			name:    "influx without url",
			modify:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: "influxdb.url",
		},
		{
			name: "api port ignored when disabled",
			modify: func(c *Config) {
				c.API.Enabled = false
				c.API.Port = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.MQTT.Broker.Host = "broker.local"
			cfg.MQTT.Broker.Port = DefaultMQTTTLSPort
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := defaultConfig()
	if got := cfg.GetReadTimeout(); got != 10*time.Second {
		t.Errorf("GetReadTimeout() = %v, want 10s", got)
	}
	if got := cfg.GetWriteTimeout(); got != 10*time.Second {
		t.Errorf("GetWriteTimeout() = %v, want 10s", got)
	}
	if got := cfg.GetIdleTimeout(); got != 60*time.Second {
		t.Errorf("GetIdleTimeout() = %v, want 60s", got)
	}
}
