package bridge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nerrad567/switchbot-mqtt/internal/device"
)

// DeviceClass is the kind of device addressed by a topic.
type DeviceClass int

const (
	ClassSwitch DeviceClass = iota + 1
	ClassCurtain
)

// classPaths are the topic segments between prefix and address.
var classPaths = map[DeviceClass]string{
	ClassSwitch:  "switch/switchbot",
	ClassCurtain: "cover/switchbot-curtain",
}

func (c DeviceClass) String() string {
	switch c {
	case ClassSwitch:
		return "switch"
	case ClassCurtain:
		return "curtain"
	default:
		return "unknown"
	}
}

// TopicKind is the trailing topic segment(s) after the address.
type TopicKind string

const (
	KindSet               TopicKind = "set"
	KindState             TopicKind = "state"
	KindPosition          TopicKind = "position"
	KindBatteryPercentage TopicKind = "battery-percentage"
	KindPositionSet       TopicKind = "position/set-percent"
	KindRequestDeviceInfo TopicKind = "request-device-info"
)

// Action is a device operation.
type Action int

const (
	ActionTurnOn Action = iota + 1
	ActionTurnOff
	ActionOpen
	ActionClose
	ActionStop
	ActionSetPosition
)

func (a Action) String() string {
	switch a {
	case ActionTurnOn:
		return "TurnOn"
	case ActionTurnOff:
		return "TurnOff"
	case ActionOpen:
		return "Open"
	case ActionClose:
		return "Close"
	case ActionStop:
		return "Stop"
	case ActionSetPosition:
		return "SetPositionPercent"
	default:
		return "unknown"
	}
}

// Command is an action with its argument, if any.
type Command struct {
	Action Action

	// Position is the target percent open for ActionSetPosition.
	Position int
}

// RequestKind distinguishes decoded messages.
type RequestKind int

const (
	RequestCommand RequestKind = iota + 1
	RequestPositionSet
	RequestDeviceInfo
)

// Request is a decoded inbound message.
type Request struct {
	Kind    RequestKind
	Class   DeviceClass
	Address string
	Command Command
}

// Payloads.
const (
	payloadOn    = "ON"
	payloadOff   = "OFF"
	payloadOpen  = "OPEN"
	payloadClose = "CLOSE"
	payloadStop  = "STOP"

	stateOpening = "opening"
	stateClosing = "closing"
	stateStopped = ""
)

// Encode builds the topic for class, address and kind.
//
// Example: Encode("homeassistant/", ClassSwitch, "aa:bb:cc:dd:ee:ff", KindState)
// -> "homeassistant/switch/switchbot/aa:bb:cc:dd:ee:ff/state"
func Encode(prefix string, class DeviceClass, address string, kind TopicKind) string {
	return prefix + classPaths[class] + "/" + address + "/" + string(kind)
}

// SubscriptionTopic is Encode with the "+" wildcard in place of the address.
func SubscriptionTopic(prefix string, class DeviceClass, kind TopicKind) string {
	return Encode(prefix, class, "+", kind)
}

// Decode parses an inbound topic and payload.
func Decode(prefix, topic string, payload []byte) (Request, error) {
	rest, ok := strings.CutPrefix(topic, prefix)
	if !ok {
		return Request{}, fmt.Errorf("%w: %s", ErrUnrecognizedTopic, topic)
	}

	for _, class := range []DeviceClass{ClassSwitch, ClassCurtain} {
		remainder, ok := strings.CutPrefix(rest, classPaths[class]+"/")
		if !ok {
			continue
		}

		rawAddress, kind, ok := strings.Cut(remainder, "/")
		if !ok {
			break
		}
		address, err := device.CanonicalAddress(rawAddress)
		if err != nil {
			break
		}

		req := Request{Class: class, Address: address}
		return decodeKind(req, TopicKind(kind), topic, payload)
	}

	return Request{}, fmt.Errorf("%w: %s", ErrUnrecognizedTopic, topic)
}

func decodeKind(req Request, kind TopicKind, topic string, payload []byte) (Request, error) {
	switch {
	case kind == KindRequestDeviceInfo:
		req.Kind = RequestDeviceInfo
		return req, nil

	case kind == KindSet:
		action, err := decodeSetPayload(req.Class, payload)
		if err != nil {
			return Request{}, err
		}
		req.Kind = RequestCommand
		req.Command = Command{Action: action}
		return req, nil

	case kind == KindPositionSet && req.Class == ClassCurtain:
		position, err := decodePosition(payload)
		if err != nil {
			return Request{}, err
		}
		req.Kind = RequestPositionSet
		req.Command = Command{Action: ActionSetPosition, Position: position}
		return req, nil
	}

	return Request{}, fmt.Errorf("%w: %s", ErrUnrecognizedTopic, topic)
}

// decodeSetPayload maps case-sensitive command words to actions.
func decodeSetPayload(class DeviceClass, payload []byte) (Action, error) {
	word := string(payload)
	switch class {
	case ClassSwitch:
		switch word {
		case payloadOn:
			return ActionTurnOn, nil
		case payloadOff:
			return ActionTurnOff, nil
		}
	case ClassCurtain:
		switch word {
		case payloadOpen:
			return ActionOpen, nil
		case payloadClose:
			return ActionClose, nil
		case payloadStop:
			return ActionStop, nil
		}
	}
	return 0, fmt.Errorf("%w: %q for %s", ErrInvalidPayload, word, class)
}

func decodePosition(payload []byte) (int, error) {
	position, err := strconv.Atoi(strings.TrimSpace(string(payload)))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a base-10 integer", ErrInvalidPayload, payload)
	}
	if err := validatePosition(position); err != nil {
		return 0, err
	}
	return position, nil
}

func validatePosition(position int) error {
	if position < 0 || position > 100 {
		return fmt.Errorf("%w: %d", ErrOutOfRange, position)
	}
	return nil
}

// statePayload returns the state published after a successful command.
// ok is false for commands that publish no state.
func statePayload(action Action) (payload string, ok bool) {
	switch action {
	case ActionTurnOn:
		return payloadOn, true
	case ActionTurnOff:
		return payloadOff, true
	case ActionOpen:
		return stateOpening, true
	case ActionClose:
		return stateClosing, true
	case ActionStop:
		return stateStopped, true
	default:
		return "", false
	}
}
