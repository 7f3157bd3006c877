package bridge

import "errors"

// Decode errors. Messages failing to decode are logged and dropped.
var (
	// ErrUnrecognizedTopic is returned when a topic matches no subscription
	// pattern under the configured prefix.
	ErrUnrecognizedTopic = errors.New("bridge: unrecognized topic")

	// ErrInvalidPayload is returned when a payload cannot be parsed.
	ErrInvalidPayload = errors.New("bridge: invalid payload")

	// ErrOutOfRange is returned for positions outside [0,100].
	ErrOutOfRange = errors.New("bridge: position out of range")
)

// Execution errors.
var (
	// ErrTransportFailure wraps the error of a single failed attempt.
	ErrTransportFailure = errors.New("bridge: transport failure")

	// ErrRetriesExhausted is returned when every attempt failed. It wraps
	// the last ErrTransportFailure.
	ErrRetriesExhausted = errors.New("bridge: retries exhausted")

	// ErrUnsupportedAction is returned for an action the device class
	// does not support.
	ErrUnsupportedAction = errors.New("bridge: unsupported action")
)
