package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement and tag names written by this package.
const (
	measurementDeviceInfo = "switchbot_device_info"

	tagAddress = "address"
	tagClass   = "class"

	fieldBattery  = "battery"
	fieldPosition = "position"
)

// WriteDeviceInfo records a device info report.
//
// position is nil for devices that have no position (switches).
//
// Example:
//
//	pos := 40
//	client.WriteDeviceInfo("aa:bb:cc:dd:ee:ff", "curtain", 87, &pos)
func (c *Client) WriteDeviceInfo(address, class string, battery int, position *int) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]any{
		fieldBattery: battery,
	}
	if position != nil {
		fields[fieldPosition] = *position
	}

	point := write.NewPoint(
		measurementDeviceInfo,
		map[string]string{
			tagAddress: address,
			tagClass:   class,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
