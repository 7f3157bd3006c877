// Package api provides a read-only HTTP status API for switchbot-mqtt.
//
// Routes:
//
//	GET /api/v1/health             200 while MQTT is connected, 503 otherwise
//	GET /api/v1/metrics            message and command counters
//	GET /api/v1/devices            every device handle seen since startup
//	GET /api/v1/devices/{address}  one device, address in any case
//
// The server is disabled unless api.enabled is set:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
