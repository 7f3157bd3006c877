// Package device owns the per-device handles of the bridge.
//
// A Handle binds one canonical MAC address to its protocol and optional
// password. The Registry creates handles on first use and never evicts
// them. Each handle serialises work in two ways:
//
//   - Submit queues jobs that run in order on a per-handle goroutine.
//   - Exclusive gives one caller sole use of the protocol.
//
// Work for different addresses runs concurrently.
//
// # Usage
//
//	passwords, err := device.LoadPasswords(cfg.Devices.PasswordFile)
//	registry := device.NewRegistry(passwords, func(address, password string) device.Protocol {
//	    return switchbot.NewDevice(address, password, transport)
//	})
//
//	h := registry.Resolve("AA:BB:CC:DD:EE:FF") // same handle as "aa:bb:cc:dd:ee:ff"
//	h.Submit(func() {
//	    _ = h.Exclusive(func(p device.Protocol) error {
//	        return p.TurnOn(ctx)
//	    })
//	})
package device
