// Package core defines core data structures with zero external dependencies.
package core

import "time"

// Frame is one captured link-layer unit. It is produced by a capture session and
// consumed once by the capture file writer; it is never retained.
type Frame struct {
	Data           []byte    // Captured bytes, len(Data) <= snapshot length
	Timestamp      time.Time // Capture timestamp
	OriginalLength int       // Length of the frame on the wire
	InterfaceIndex int       // Interface index reported by the handle, 0 if unknown
}

// CaptureLength returns the number of bytes actually captured.
func (f Frame) CaptureLength() int {
	return len(f.Data)
}

// Truncated reports whether the frame was cut short by the snapshot length.
func (f Frame) Truncated() bool {
	return f.OriginalLength > len(f.Data)
}
