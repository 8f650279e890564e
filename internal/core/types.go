// Package core defines core types with zero external dependencies.
package core

import (
	"fmt"
	"net/netip"
	"time"
)

// Snapshot length bounds accepted by CaptureConfig.
const (
	MinSnapLen = 1
	MaxSnapLen = 262144
)

// Device is a capturable network interface. Devices are enumerated once at startup
// and never mutated.
type Device struct {
	Name        string
	Description string
	Addresses   []netip.Addr
	Loopback    bool
	Up          bool
}

// DisplayDescription returns the description shown to operators.
func (d Device) DisplayDescription() string {
	if d.Description == "" {
		return "No description"
	}
	return d.Description
}

// String formats the device the way device listings print it, without the index.
func (d Device) String() string {
	return fmt.Sprintf("%s (%s)", d.Name, d.DisplayDescription())
}

// Backend selects the capture mechanism behind a session.
type Backend string

const (
	// BackendPcap captures through libpcap.
	BackendPcap Backend = "pcap"
	// BackendAFPacket captures through a Linux TPACKET_V3 ring.
	BackendAFPacket Backend = "afpacket"
)

// CaptureConfig is the immutable configuration of one capture session.
type CaptureConfig struct {
	Device      Device
	Promiscuous bool
	SnapLen     int           // Maximum bytes kept per frame
	TargetCount int           // Number of frames to capture, > 0
	ReadTimeout time.Duration // Upper bound of a single blocking read
	Backend     Backend
}

// Validate checks the session invariants.
func (c CaptureConfig) Validate() error {
	if c.TargetCount <= 0 {
		return fmt.Errorf("%w: target frame count must be > 0, got %d", ErrConfigInvalid, c.TargetCount)
	}
	if c.SnapLen < MinSnapLen || c.SnapLen > MaxSnapLen {
		return fmt.Errorf("%w: snapshot length must be within [%d, %d], got %d",
			ErrConfigInvalid, MinSnapLen, MaxSnapLen, c.SnapLen)
	}
	if c.Device.Name == "" {
		return fmt.Errorf("%w: no device selected", ErrConfigInvalid)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("%w: read timeout must be positive, got %s", ErrConfigInvalid, c.ReadTimeout)
	}
	switch c.Backend {
	case BackendPcap, BackendAFPacket:
	default:
		return fmt.Errorf("%w: unknown capture backend %q", ErrConfigInvalid, c.Backend)
	}
	return nil
}

// SessionStats tracks the counters of one capture session. It is mutated only by the
// session director; readers get copies.
type SessionStats struct {
	Requested    int
	Captured     int
	Dropped      int
	BytesWritten int64
	StartTime    time.Time
	EndTime      time.Time
}

// Elapsed returns the session duration so far, or in total once EndTime is set.
func (s SessionStats) Elapsed() time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Remaining returns how many frames are still missing from the target.
func (s SessionStats) Remaining() int {
	if s.Captured >= s.Requested {
		return 0
	}
	return s.Requested - s.Captured
}
