package bluez

import "errors"

// Errors returned by the BlueZ transport.
var (
	// ErrInvalidAddress is returned for addresses that are not six hex octets.
	ErrInvalidAddress = errors.New("bluez: invalid device address")

	// ErrAdapterUnavailable is returned when the adapter is missing or powered off.
	ErrAdapterUnavailable = errors.New("bluez: adapter unavailable")

	// ErrNotConnected is returned when the device connection cannot be established.
	ErrNotConnected = errors.New("bluez: device not connected")

	// ErrServiceNotFound is returned when the device lacks the command characteristics.
	ErrServiceNotFound = errors.New("bluez: service not found")

	// ErrTimeout is returned when the device does not answer in time.
	ErrTimeout = errors.New("bluez: timed out waiting for device")

	ErrWriteFailed = errors.New("bluez: write failed")
)
