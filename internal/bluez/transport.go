package bluez

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/nerrad567/switchbot-mqtt/internal/infrastructure/config"
)

const (
	defaultAdapter         = "hci0"
	defaultConnectTimeout  = 10 * time.Second
	defaultResponseTimeout = 5 * time.Second

	servicesPollInterval = 200 * time.Millisecond
	signalBuffer         = 16
)

// Logger is the logging surface the transport needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Transport sends SwitchBot commands over BLE GATT through BlueZ.
//
// Each Command call connects to the device if needed, writes the payload to
// the write characteristic and returns the first notification on the
// notify characteristic. Callers serialise commands per device; commands to
// different devices may run concurrently.
type Transport struct {
	conn            *dbus.Conn
	adapter         string
	connectTimeout  time.Duration
	responseTimeout time.Duration
	logger          Logger
}

// New connects to the system bus and checks the adapter is powered.
func New(cfg config.BLEConfig, logger Logger) (*Transport, error) {
	if logger == nil {
		logger = noopLogger{}
	}

	t := &Transport{
		adapter:         cfg.Adapter,
		connectTimeout:  cfg.ConnectTimeout,
		responseTimeout: cfg.ResponseTimeout,
		logger:          logger,
	}
	if t.adapter == "" {
		t.adapter = defaultAdapter
	}
	if t.connectTimeout <= 0 {
		t.connectTimeout = defaultConnectTimeout
	}
	if t.responseTimeout <= 0 {
		t.responseTimeout = defaultResponseTimeout
	}

	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("%w: system bus: %w", ErrAdapterUnavailable, err)
	}

	adapterPath := dbus.ObjectPath("/org/bluez/" + t.adapter)
	powered, err := getDBusProperty[bool](conn, adapterPath, bluezAdapter1, "Powered")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAdapterUnavailable, t.adapter, err)
	}
	if !powered {
		return nil, fmt.Errorf("%w: %s is powered off", ErrAdapterUnavailable, t.adapter)
	}

	t.conn = conn
	return t, nil
}

// Adapter returns the adapter name, e.g. "hci0".
func (t *Transport) Adapter() string {
	return t.adapter
}

// Command writes payload to the device at address and returns its response.
func (t *Transport) Command(ctx context.Context, address string, payload []byte) ([]byte, error) {
	if err := validateAddress(address); err != nil {
		return nil, err
	}

	devicePath := adapterDevicePath(t.adapter, address)

	if err := t.connectDevice(ctx, devicePath); err != nil {
		return nil, err
	}
	if err := t.waitServicesResolved(ctx, devicePath); err != nil {
		return nil, err
	}

	chars, err := t.discoverCharacteristics(devicePath)
	if err != nil {
		return nil, err
	}

	return t.exchange(ctx, chars, payload)
}

// exchange subscribes to notifications, writes payload and waits for the reply.
func (t *Transport) exchange(ctx context.Context, chars characteristics, payload []byte) ([]byte, error) {
	rule := notificationMatchRule(chars.notify)
	if call := t.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule); call.Err != nil {
		return nil, fmt.Errorf("add signal match: %w", call.Err)
	}
	defer t.conn.BusObject().Call("org.freedesktop.DBus.RemoveMatch", 0, rule)

	sigCh := make(chan *dbus.Signal, signalBuffer)
	t.conn.Signal(sigCh)
	defer t.conn.RemoveSignal(sigCh)

	notifyObj := t.conn.Object(bluezBus, chars.notify)
	if call := notifyObj.CallWithContext(ctx, bluezGattChar+".StartNotify", 0); call.Err != nil {
		return nil, fmt.Errorf("%w: StartNotify: %w", ErrNotConnected, call.Err)
	}
	defer notifyObj.Call(bluezGattChar+".StopNotify", 0)

	writeObj := t.conn.Object(bluezBus, chars.write)
	call := writeObj.CallWithContext(ctx, bluezGattChar+".WriteValue", 0, payload, map[string]dbus.Variant{
		"type": dbus.MakeVariant("request"),
	})
	if call.Err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteFailed, call.Err)
	}

	timer := time.NewTimer(t.responseTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, fmt.Errorf("%w: no response after %v", ErrTimeout, t.responseTimeout)
		case sig, ok := <-sigCh:
			if !ok {
				return nil, fmt.Errorf("%w: signal channel closed", ErrNotConnected)
			}
			if data, ok := notificationValue(sig, chars.notify); ok {
				return data, nil
			}
		}
	}
}

// connectDevice connects the device unless BlueZ already holds a connection.
func (t *Transport) connectDevice(ctx context.Context, devicePath dbus.ObjectPath) error {
	connected, err := getDBusProperty[bool](t.conn, devicePath, bluezDevice1, "Connected")
	if err == nil && connected {
		return nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, t.connectTimeout)
	defer cancel()

	t.logger.Debug("connecting BLE device", "path", devicePath)
	call := t.conn.Object(bluezBus, devicePath).CallWithContext(connectCtx, bluezDevice1+".Connect", 0)
	if call.Err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNotConnected, devicePath, call.Err)
	}
	return nil
}

// waitServicesResolved waits for GATT discovery to finish.
func (t *Transport) waitServicesResolved(ctx context.Context, devicePath dbus.ObjectPath) error {
	deadline := time.NewTimer(t.connectTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(servicesPollInterval)
	defer ticker.Stop()

	for {
		resolved, err := getDBusProperty[bool](t.conn, devicePath, bluezDevice1, "ServicesResolved")
		if err == nil && resolved {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w: service discovery after %v", ErrTimeout, t.connectTimeout)
		case <-ticker.C:
		}
	}
}

func (t *Transport) discoverCharacteristics(devicePath dbus.ObjectPath) (characteristics, error) {
	var objects managedObjects
	call := t.conn.Object(bluezBus, "/").Call(dbusObjectManager+".GetManagedObjects", 0)
	if call.Err != nil {
		return characteristics{}, fmt.Errorf("GetManagedObjects: %w", call.Err)
	}
	if err := call.Store(&objects); err != nil {
		return characteristics{}, fmt.Errorf("parsing managed objects: %w", err)
	}
	return findCharacteristics(objects, devicePath)
}

// Disconnect drops the BlueZ connection to a device. Errors are logged.
func (t *Transport) Disconnect(address string) {
	if err := validateAddress(address); err != nil {
		return
	}
	devicePath := adapterDevicePath(t.adapter, address)
	if call := t.conn.Object(bluezBus, devicePath).Call(bluezDevice1+".Disconnect", 0); call.Err != nil {
		t.logger.Warn("BLE disconnect failed", "address", address, "error", call.Err)
	}
}

// Close releases the transport. The shared system bus connection stays open.
func (t *Transport) Close() error {
	return nil
}
