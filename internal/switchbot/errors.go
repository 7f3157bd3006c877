package switchbot

import "errors"

// Errors returned by SwitchBot device operations.
var (
	// ErrAuthFailed means the device rejected the configured password.
	ErrAuthFailed = errors.New("switchbot: authentication failed")

	// ErrCommandFailed means the device answered with a failure status.
	ErrCommandFailed = errors.New("switchbot: command failed")

	// ErrMalformedResponse means the response was empty or too short.
	ErrMalformedResponse = errors.New("switchbot: malformed response")

	// ErrInvalidPosition is returned for positions outside [0,100].
	ErrInvalidPosition = errors.New("switchbot: position out of range")
)
