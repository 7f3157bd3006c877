// Package logging provides structured logging for switchbot-mqtt.
//
// This package wraps Go's standard log/slog package so every component
// logs with the same fields and format.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, file
//	  file:
//	    path: "/var/log/switchbot-mqtt.log"
//	    max_size: 10     # megabytes before rotation
//	    max_backups: 3
//	    max_age: 28      # days
//	    compress: true
//
// The --debug flag switches to debug level with text output.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	defer logger.Close()
//	logger.Info("command executed", "mac", mac, "action", "TurnOn")
//
// Never log MQTT or device passwords.
package logging
