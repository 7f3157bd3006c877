package switchbot

import (
	"context"
	"fmt"
)

// Transport carries one command to a device and returns its response.
type Transport interface {
	Command(ctx context.Context, address string, payload []byte) ([]byte, error)
}

// Device is a SwitchBot Bot or Curtain reachable at a fixed address.
//
// Curtains run in reverse mode: public position 0 is fully closed.
// Device does not serialise calls; the caller owns per-device exclusion.
type Device struct {
	address         string
	encodedPassword string
	transport       Transport
}

// NewDevice binds a device to address. An empty password disables
// password-protected commands.
func NewDevice(address, password string, transport Transport) *Device {
	return &Device{
		address:         address,
		encodedPassword: encodePassword(password),
		transport:       transport,
	}
}

// Address returns the device MAC address.
func (d *Device) Address() string {
	return d.address
}

// Authenticated reports whether commands carry a password.
func (d *Device) Authenticated() bool {
	return d.encodedPassword != ""
}

// Press triggers a momentary bot press.
func (d *Device) Press(ctx context.Context) error {
	_, err := d.send(ctx, keyBotPress)
	return err
}

// TurnOn switches a bot in switch mode on.
func (d *Device) TurnOn(ctx context.Context) error {
	_, err := d.send(ctx, keyBotOn)
	return err
}

// TurnOff switches a bot in switch mode off.
func (d *Device) TurnOff(ctx context.Context) error {
	_, err := d.send(ctx, keyBotOff)
	return err
}

// Open fully opens a curtain.
func (d *Device) Open(ctx context.Context) error {
	_, err := d.send(ctx, keyCurtainOpen)
	return err
}

// Close fully closes a curtain.
func (d *Device) Close(ctx context.Context) error {
	_, err := d.send(ctx, keyCurtainClose)
	return err
}

// Stop halts curtain motion.
func (d *Device) Stop(ctx context.Context) error {
	_, err := d.send(ctx, keyCurtainStop)
	return err
}

// SetPosition moves a curtain to percent open, 0 = closed, 100 = open.
func (d *Device) SetPosition(ctx context.Context, percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: %d", ErrInvalidPosition, percent)
	}
	_, err := d.send(ctx, positionKey(percent))
	return err
}

// GetBatteryPercent reads the battery level.
func (d *Device) GetBatteryPercent(ctx context.Context) (int, error) {
	resp, err := d.send(ctx, keyBasicInfo)
	if err != nil {
		return 0, err
	}
	if len(resp) <= infoBatteryOffset {
		return 0, fmt.Errorf("%w: %d byte info response", ErrMalformedResponse, len(resp))
	}
	return clampPercent(int(resp[infoBatteryOffset])), nil
}

// GetPosition reads a curtain's position as percent open.
func (d *Device) GetPosition(ctx context.Context) (int, error) {
	resp, err := d.send(ctx, keyBasicInfo)
	if err != nil {
		return 0, err
	}
	if len(resp) <= infoPositionOffset {
		return 0, fmt.Errorf("%w: %d byte info response", ErrMalformedResponse, len(resp))
	}
	return 100 - clampPercent(int(resp[infoPositionOffset])), nil
}

func (d *Device) send(ctx context.Context, key string) ([]byte, error) {
	payload, err := commandBytes(key, d.encodedPassword)
	if err != nil {
		return nil, err
	}

	resp, err := d.transport.Command(ctx, d.address, payload)
	if err != nil {
		return nil, fmt.Errorf("sending %s to %s: %w", key, d.address, err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("%s on %s: %w", key, d.address, err)
	}
	return resp, nil
}

func clampPercent(v int) int {
	return max(0, min(v, 100))
}
