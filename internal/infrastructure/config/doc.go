// Package config handles loading and validating switchbot-mqtt configuration.
//
// This package manages:
//   - Loading configuration from an optional YAML file
//   - Overriding with environment variables and command-line flags
//   - Reading secrets from password files
//   - Validation of required fields
//
// Security Considerations:
//   - Prefer --mqtt-password-file or SWITCHBOT_MQTT_PASSWORD over --mqtt-password,
//     which is visible in the process list
//   - The config and password files should have restricted permissions (0600)
//
// Usage:
//
//	fs := config.NewFlagSet("switchbot-mqtt")
//	if err := fs.Parse(os.Args[1:]); err != nil {
//	    log.Fatal(err)
//	}
//	cfg, err := config.Load(config.ConfigPath(fs), fs)
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
