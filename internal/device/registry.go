// Package device enumerates capturable network interfaces.
package device

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"firestige.xyz/pcapture/internal/core"
)

// SelectionError reports an index outside [1, Max]. Its message is shown to operators
// verbatim.
type SelectionError struct {
	Max int
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("Invalid choice. Please enter a number between 1 and %d.", e.Max)
}

func (e *SelectionError) Unwrap() error { return core.ErrInvalidSelection }

// Lister is the source of capturable devices.
type Lister interface {
	Devices() ([]core.Device, error)
}

// Registry enumerates devices once and resolves selections against that snapshot.
type Registry struct {
	lister Lister

	once    sync.Once
	devices []core.Device
	err     error
}

// NewRegistry creates a registry backed by l.
func NewRegistry(l Lister) *Registry {
	return &Registry{lister: l}
}

// List returns the enumerated devices in enumeration order.
func (r *Registry) List() ([]core.Device, error) {
	r.once.Do(func() {
		devices, err := r.lister.Devices()
		if err != nil {
			r.err = fmt.Errorf("%w: %v", core.ErrDeviceEnumeration, err)
			return
		}
		if len(devices) == 0 {
			r.err = core.ErrNoDevicesFound
			return
		}
		r.devices = devices
		slog.Debug("devices enumerated", "count", len(devices))
	})
	if r.err != nil {
		return nil, r.err
	}
	out := make([]core.Device, len(r.devices))
	copy(out, r.devices)
	return out, nil
}

// ResolveDefault picks the preferred device: the first one that is up, not loopback and
// has an address; otherwise the first non-loopback device; otherwise the first device.
func (r *Registry) ResolveDefault() (core.Device, error) {
	devices, err := r.List()
	if err != nil {
		return core.Device{}, err
	}
	for _, d := range devices {
		if d.Up && !d.Loopback && len(d.Addresses) > 0 {
			return d, nil
		}
	}
	for _, d := range devices {
		if !d.Loopback {
			return d, nil
		}
	}
	return devices[0], nil
}

// ResolveByIndex returns the device at the 1-based position i of List.
func (r *Registry) ResolveByIndex(i int) (core.Device, error) {
	devices, err := r.List()
	if err != nil {
		return core.Device{}, err
	}
	if i < 1 || i > len(devices) {
		return core.Device{}, &SelectionError{Max: len(devices)}
	}
	return devices[i-1], nil
}

// ResolveByName returns the device with the given name.
func (r *Registry) ResolveByName(name string) (core.Device, error) {
	devices, err := r.List()
	if err != nil {
		return core.Device{}, err
	}
	for _, d := range devices {
		if d.Name == name {
			return d, nil
		}
	}
	return core.Device{}, fmt.Errorf("%w: unknown device %q", core.ErrInvalidSelection, name)
}

// WriteList prints one "<n>: <name> (<description>)" line per device, 1-indexed.
func WriteList(w io.Writer, devices []core.Device) error {
	for i, d := range devices {
		if _, err := fmt.Fprintf(w, "%d: %s\n", i+1, d.String()); err != nil {
			return err
		}
	}
	return nil
}
