// Package influxdb records SwitchBot device telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Every device info
// report (battery, and position for curtains) becomes one point in the
// switchbot_device_info measurement, tagged by address and device class.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.WriteDeviceInfo("aa:bb:cc:dd:ee:ff", "switch", 92, nil)
//
// # Error Handling
//
// Writes are non-blocking. Batch failures are delivered to the callback
// registered with SetOnError. Connection and health check errors are
// returned directly.
package influxdb
