package session

import (
	"fmt"
	"time"

	"firestige.xyz/pcapture/internal/config"
	"firestige.xyz/pcapture/internal/core"
	"firestige.xyz/pcapture/internal/hook"
	"firestige.xyz/pcapture/internal/pcapfile"
	"firestige.xyz/pcapture/internal/progress"
)

// Selection is the device selection strategy of a plan.
type Selection int

const (
	// SelectDefault uses the registry's preferred device.
	SelectDefault Selection = iota
	// SelectByIndex uses a 1-based index, asked from the operator when a chooser is set.
	SelectByIndex
	// SelectByName uses Plan.DeviceName.
	SelectByName
)

func (s Selection) String() string {
	switch s {
	case SelectDefault:
		return "default"
	case SelectByIndex:
		return "index"
	case SelectByName:
		return "name"
	default:
		return fmt.Sprintf("Selection(%d)", int(s))
	}
}

// Plan is everything one run needs. Interactive and non-interactive front-ends only
// differ in the plan they build.
type Plan struct {
	TargetCount int
	Selection   Selection
	DeviceIndex int    // SelectByIndex without a chooser
	DeviceName  string // SelectByName

	Backend     core.Backend
	SnapLen     int
	Promiscuous bool
	ReadTimeout time.Duration
	MaxDuration time.Duration // 0 = unlimited

	OutputDir string
	FileName  string
	Policy    pcapfile.Policy
	SyncEvery int

	Progress progress.Options
	Hooks    []hook.Hook
}

// PlanFromConfig builds a plan for count frames. A configured device name selects by
// name; otherwise the default device is used.
func PlanFromConfig(cfg *config.Config, count int) Plan {
	p := Plan{
		TargetCount: count,
		Selection:   SelectDefault,
		Backend:     core.Backend(cfg.Capture.Backend),
		SnapLen:     cfg.Capture.SnapLen,
		Promiscuous: cfg.Capture.Promiscuous,
		ReadTimeout: cfg.Capture.ReadTimeout,
		MaxDuration: cfg.Capture.MaxDuration,
		OutputDir:   cfg.Output.Dir,
		FileName:    cfg.Output.FileName,
		Policy:      pcapfile.Policy(cfg.Output.Policy),
		SyncEvery:   cfg.Output.SyncEvery,
		Progress: progress.Options{
			RefreshInterval: cfg.Progress.RefreshInterval,
			Width:           cfg.Progress.Width,
			Quiet:           cfg.Progress.Quiet,
		},
	}
	if cfg.Capture.Device != "" {
		p.Selection = SelectByName
		p.DeviceName = cfg.Capture.Device
	}
	return p
}

// captureConfig returns the session configuration for dev.
func (p Plan) captureConfig(dev core.Device) core.CaptureConfig {
	return core.CaptureConfig{
		Device:      dev,
		Promiscuous: p.Promiscuous,
		SnapLen:     p.SnapLen,
		TargetCount: p.TargetCount,
		ReadTimeout: p.ReadTimeout,
		Backend:     p.Backend,
	}
}
