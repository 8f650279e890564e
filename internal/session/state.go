// Package session drives one capture from device selection to post-capture hooks.
package session

import "firestige.xyz/pcapture/internal/metrics"

// State is a session director state.
type State string

const (
	// StateIdle is the state before a device is chosen.
	StateIdle State = "idle"
	// StateDeviceSelected means a device was resolved.
	StateDeviceSelected State = "device_selected"
	// StateSessionOpen means the capture handle is active.
	StateSessionOpen State = "session_open"
	// StateCapturing means the capture file exists and frames are being pulled.
	StateCapturing State = "capturing"
	// StateFinalizing means the loop ended and resources are being released.
	StateFinalizing State = "finalizing"
	// StateCompleted means the capture file was finalized without write failures.
	StateCompleted State = "completed"
	// StateAborted means setup failed or the capture file could not be written.
	StateAborted State = "aborted"
)

var allStates = []string{
	string(StateIdle),
	string(StateDeviceSelected),
	string(StateSessionOpen),
	string(StateCapturing),
	string(StateFinalizing),
	string(StateCompleted),
	string(StateAborted),
}

// Terminal reports whether no further transition can happen from s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted
}

func exportState(s State) {
	metrics.SetSessionState(string(s), allStates)
}
