// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors. Components wrap these with fmt.Errorf("...: %w", err) and callers
// classify failures with errors.Is.
var (
	// Setup errors
	ErrUsage             = errors.New("pcapture: invalid usage")
	ErrDeviceEnumeration = errors.New("pcapture: device enumeration failed")
	ErrNoDevicesFound    = errors.New("pcapture: no capture devices found")
	ErrInvalidSelection  = errors.New("pcapture: invalid device selection")
	ErrDeviceOpen        = errors.New("pcapture: device open failed")

	// Capture loop errors
	ErrCaptureTimeout = errors.New("pcapture: capture read timed out")
	ErrCaptureFatal   = errors.New("pcapture: capture device failed")

	// Capture file errors
	ErrFileCreate = errors.New("pcapture: capture file create failed")
	ErrWrite      = errors.New("pcapture: capture file write failed")

	// Post-capture hook errors
	ErrPostHook = errors.New("pcapture: post-capture hook failed")

	// Configuration errors
	ErrConfigInvalid = errors.New("pcapture: invalid configuration")
)

// IsSetupError reports whether err belongs to the setup phase, which terminates a run
// before any frame is captured.
func IsSetupError(err error) bool {
	for _, target := range []error{
		ErrUsage,
		ErrDeviceEnumeration,
		ErrNoDevicesFound,
		ErrInvalidSelection,
		ErrDeviceOpen,
		ErrFileCreate,
		ErrConfigInvalid,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
