package analytics

import (
	"fmt"
	"strings"

	"github.com/denisbrodbeck/machineid"
	"github.com/google/uuid"
)

// DeviceIDSource produces the device id once at wrapper construction.
type DeviceIDSource interface {
	DeviceID() (string, error)
}

// DeviceIDFunc adapts a function to DeviceIDSource.
type DeviceIDFunc func() (string, error)

func (f DeviceIDFunc) DeviceID() (string, error) {
	return f()
}

// MachineIDSource reads the operating system's stable machine identifier, so the
// same host yields the same device id across restarts.
func MachineIDSource() DeviceIDSource {
	return DeviceIDFunc(machineid.ID)
}

// RandomIDSource yields a fresh UUID per wrapper.
func RandomIDSource() DeviceIDSource {
	return DeviceIDFunc(func() (string, error) {
		return uuid.NewString(), nil
	})
}

// StaticDeviceID always returns id.
func StaticDeviceID(id string) DeviceIDSource {
	return DeviceIDFunc(func() (string, error) {
		return id, nil
	})
}

func sourceFor(kind DeviceIDSourceKind) DeviceIDSource {
	if kind == DeviceIDRandom {
		return RandomIDSource()
	}
	return MachineIDSource()
}

// resolveDeviceID never falls back silently: an unreadable or empty id is a
// configuration error.
func resolveDeviceID(src DeviceIDSource) (string, error) {
	id, err := src.DeviceID()
	if err != nil {
		return "", newError(KindConfiguration, "device_id", fmt.Errorf("%w: %v", ErrDeviceID, err))
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", newError(KindConfiguration, "device_id", fmt.Errorf("%w: source returned an empty id", ErrDeviceID))
	}
	return id, nil
}
