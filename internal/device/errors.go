package device

import "errors"

// Domain errors for the device package.
//
//	if errors.Is(err, device.ErrInvalidAddress) {
//	    // not a MAC address
//	}
var (
	// ErrInvalidAddress is returned when an address is not six hex octets.
	ErrInvalidAddress = errors.New("device: invalid address")

	// ErrInvalidPasswordFile is returned when the password file is not a
	// JSON object of address to string.
	ErrInvalidPasswordFile = errors.New("device: invalid password file")
)
