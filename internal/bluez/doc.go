// Package bluez talks to SwitchBot devices over BLE GATT using BlueZ's
// D-Bus API.
//
// A command is a single write to the SwitchBot write characteristic
// followed by one notification on the notify characteristic:
//
//	t, err := bluez.New(cfg.BLE, logger)
//	resp, err := t.Command(ctx, "aa:bb:cc:dd:ee:ff", []byte{0x57, 0x01, 0x01})
//
// The transport needs access to the system bus and a powered adapter.
// Device discovery is out of scope; devices are addressed by MAC.
package bluez
