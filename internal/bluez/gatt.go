package bluez

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

// D-Bus names used by BlueZ.
const (
	bluezBus          = "org.bluez"
	bluezAdapter1     = "org.bluez.Adapter1"
	bluezDevice1      = "org.bluez.Device1"
	bluezGattChar     = "org.bluez.GattCharacteristic1"
	dbusObjectManager = "org.freedesktop.DBus.ObjectManager"
	dbusProperties    = "org.freedesktop.DBus.Properties"
)

// SwitchBot GATT characteristics.
const (
	ServiceUUID    = "cba20d00-224d-11e6-9fb8-0002a5d5c51b"
	WriteCharUUID  = "cba20002-224d-11e6-9fb8-0002a5d5c51b"
	NotifyCharUUID = "cba20003-224d-11e6-9fb8-0002a5d5c51b"
)

// managedObjects is the reply shape of ObjectManager.GetManagedObjects.
type managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// characteristics holds the object paths of a device's command characteristics.
type characteristics struct {
	write  dbus.ObjectPath
	notify dbus.ObjectPath
}

// adapterDevicePath converts a MAC address to a BlueZ object path.
// Example: "aa:bb:cc:dd:ee:ff" -> "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF"
func adapterDevicePath(adapter, address string) dbus.ObjectPath {
	devAddr := strings.ReplaceAll(strings.ToUpper(address), ":", "_")
	return dbus.ObjectPath(fmt.Sprintf("/org/bluez/%s/dev_%s", adapter, devAddr))
}

// findCharacteristics picks the write and notify characteristics below devicePath.
func findCharacteristics(objects managedObjects, devicePath dbus.ObjectPath) (characteristics, error) {
	var found characteristics
	devicePrefix := string(devicePath) + "/"

	for path, ifaces := range objects {
		if !strings.HasPrefix(string(path), devicePrefix) {
			continue
		}
		charProps, ok := ifaces[bluezGattChar]
		if !ok {
			continue
		}
		uuidVar, ok := charProps["UUID"]
		if !ok {
			continue
		}
		uuid, ok := uuidVar.Value().(string)
		if !ok {
			continue
		}

		switch strings.ToLower(uuid) {
		case WriteCharUUID:
			found.write = path
		case NotifyCharUUID:
			found.notify = path
		}
	}

	if found.write == "" {
		return found, fmt.Errorf("%w: write characteristic %s", ErrServiceNotFound, WriteCharUUID)
	}
	if found.notify == "" {
		return found, fmt.Errorf("%w: notify characteristic %s", ErrServiceNotFound, NotifyCharUUID)
	}
	return found, nil
}

// notificationMatchRule returns the AddMatch rule for value changes on path.
func notificationMatchRule(path dbus.ObjectPath) string {
	return fmt.Sprintf(
		"type='signal',sender='%s',interface='%s',member='PropertiesChanged',path='%s'",
		bluezBus, dbusProperties, path,
	)
}

// notificationValue extracts the new characteristic value from a
// PropertiesChanged signal on path.
func notificationValue(sig *dbus.Signal, path dbus.ObjectPath) ([]byte, bool) {
	if sig == nil || sig.Path != path {
		return nil, false
	}
	if sig.Name != dbusProperties+".PropertiesChanged" {
		return nil, false
	}
	if len(sig.Body) < 2 {
		return nil, false
	}
	if iface, ok := sig.Body[0].(string); !ok || iface != bluezGattChar {
		return nil, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return nil, false
	}
	value, ok := changed["Value"]
	if !ok {
		return nil, false
	}
	data, ok := value.Value().([]byte)
	if !ok {
		return nil, false
	}
	return data, true
}

// getDBusProperty reads a property from a BlueZ object.
func getDBusProperty[T any](conn *dbus.Conn, path dbus.ObjectPath, iface, property string) (T, error) {
	var zero T

	variant, err := conn.Object(bluezBus, path).GetProperty(iface + "." + property)
	if err != nil {
		return zero, err
	}

	val, ok := variant.Value().(T)
	if !ok {
		return zero, fmt.Errorf("property %s.%s has unexpected type %T", iface, property, variant.Value())
	}
	return val, nil
}

// validateAddress checks for six colon-separated hex octets.
func validateAddress(address string) error {
	parts := strings.Split(address, ":")
	if len(parts) != 6 {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	for _, part := range parts {
		if len(part) != 2 {
			return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
		}
		for _, c := range part {
			if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
				return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
			}
		}
	}
	return nil
}
