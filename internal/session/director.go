package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/spf13/afero"

	"firestige.xyz/pcapture/internal/capture"
	"firestige.xyz/pcapture/internal/core"
	"firestige.xyz/pcapture/internal/hook"
	"firestige.xyz/pcapture/internal/metrics"
	"firestige.xyz/pcapture/internal/pcapfile"
	"firestige.xyz/pcapture/internal/progress"
)

// DeviceSource resolves the capture device. *device.Registry implements it.
type DeviceSource interface {
	List() ([]core.Device, error)
	ResolveDefault() (core.Device, error)
	ResolveByIndex(i int) (core.Device, error)
	ResolveByName(name string) (core.Device, error)
}

// FrameSource is an open capture session. *capture.Session implements it.
type FrameSource interface {
	NextFrame() (core.Frame, capture.ReadStatus, error)
	LinkType() layers.LinkType
	Close() error
}

// Opener opens a capture session.
type Opener func(cfg core.CaptureConfig) (FrameSource, error)

// Chooser asks the operator for a 1-based index into devices.
type Chooser func(devices []core.Device) (int, error)

// Result is the outcome of one run.
type Result struct {
	State    State
	Device   core.Device
	Path     string
	LinkType layers.LinkType
	Stats    core.SessionStats

	// CaptureErr is the fatal read error that ended the loop early, if any.
	CaptureErr error
	// HookErr joins post-capture hook failures. It never changes State.
	HookErr error
}

// Director runs capture plans. It is not safe for concurrent use.
type Director struct {
	devices DeviceSource
	open    Opener
	choose  Chooser
	fs      afero.Fs
	out     io.Writer

	state State
}

// Option configures a Director.
type Option func(*Director)

// WithOpener replaces the capture session opener.
func WithOpener(o Opener) Option {
	return func(d *Director) { d.open = o }
}

// WithChooser sets the operator prompt used by SelectByIndex plans.
func WithChooser(c Chooser) Option {
	return func(d *Director) { d.choose = c }
}

// WithFs sets the filesystem capture files are written to.
func WithFs(fs afero.Fs) Option {
	return func(d *Director) { d.fs = fs }
}

// WithProgressOutput sets where the progress bar is rendered.
func WithProgressOutput(w io.Writer) Option {
	return func(d *Director) { d.out = w }
}

// New creates a Director resolving devices from devices.
func New(devices DeviceSource, opts ...Option) *Director {
	d := &Director{
		devices: devices,
		open:    openCapture,
		fs:      afero.NewOsFs(),
		out:     os.Stdout,
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func openCapture(cfg core.CaptureConfig) (FrameSource, error) {
	s, err := capture.Open(cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// State returns the current state.
func (d *Director) State() State {
	return d.state
}

func (d *Director) transition(to State, attrs ...any) {
	from := d.state
	d.state = to
	exportState(to)
	slog.Info("session state changed", append([]any{"from", from, "to", to}, attrs...)...)
}

// Run executes plan. Setup failures abort before any frame is read and return an error
// matching core.IsSetupError. A write failure aborts with core.ErrWrite. A fatal read
// error or cancellation ends the capture early but still completes it; see
// Result.CaptureErr. Hook failures are reported in Result.HookErr only.
func (d *Director) Run(ctx context.Context, plan Plan) (*Result, error) {
	if d.state != StateIdle && !d.state.Terminal() {
		return nil, fmt.Errorf("session already %s", d.state)
	}
	d.state = StateIdle
	exportState(StateIdle)

	res := &Result{Stats: core.SessionStats{Requested: plan.TargetCount}}
	if plan.TargetCount <= 0 {
		return d.abort(res, fmt.Errorf("%w: frame count must be > 0, got %d", core.ErrUsage, plan.TargetCount))
	}

	dev, err := d.selectDevice(plan)
	if err != nil {
		return d.abort(res, err)
	}
	res.Device = dev
	d.transition(StateDeviceSelected, "device", dev.Name, "selection", plan.Selection)

	src, err := d.open(plan.captureConfig(dev))
	if err != nil {
		return d.abort(res, err)
	}
	res.LinkType = src.LinkType()
	d.transition(StateSessionOpen, "device", dev.Name, "link_type", res.LinkType.String())

	w, err := d.createFile(plan, res.LinkType)
	if err != nil {
		closeSource(src, dev)
		return d.abort(res, err)
	}
	res.Path = w.Path()
	d.transition(StateCapturing, "path", res.Path, "target", plan.TargetCount)

	loopCtx := ctx
	if plan.MaxDuration > 0 {
		var cancel context.CancelFunc
		loopCtx, cancel = context.WithTimeout(ctx, plan.MaxDuration)
		defer cancel()
	}

	bar := progress.New(d.out, plan.TargetCount, plan.Progress)
	res.Stats.StartTime = time.Now()
	captureErr, writeErr := loop(loopCtx, src, w, dev.Name, &res.Stats, bar)
	res.CaptureErr = captureErr

	d.transition(StateFinalizing, "captured", res.Stats.Captured, "dropped", res.Stats.Dropped,
		"records", w.Records(), "file_bytes", w.BytesWritten())
	finalizeErr := w.Finalize()
	closeSource(src, dev)
	res.Stats.EndTime = time.Now()
	bar.Finish(finishMessage(res.Stats, captureErr, writeErr, loopCtx.Err()))

	if err := errors.Join(writeErr, finalizeErr); err != nil {
		slog.Error("capture file not written completely", "path", res.Path, "error", err)
		d.transition(StateAborted, "path", res.Path)
		res.State = StateAborted
		return res, err
	}

	d.transition(StateCompleted, "path", res.Path, "captured", res.Stats.Captured,
		"dropped", res.Stats.Dropped, "bytes", res.Stats.BytesWritten, "elapsed", res.Stats.Elapsed())
	res.State = StateCompleted

	if len(plan.Hooks) > 0 {
		// Hooks still run after an operator interrupt ended the capture.
		res.HookErr = hook.RunAll(context.WithoutCancel(ctx), plan.Hooks, hookResult(plan, res))
	}
	return res, nil
}

func (d *Director) abort(res *Result, err error) (*Result, error) {
	d.transition(StateAborted, "error", err)
	res.State = StateAborted
	return res, err
}

func (d *Director) selectDevice(plan Plan) (core.Device, error) {
	switch plan.Selection {
	case SelectDefault:
		return d.devices.ResolveDefault()
	case SelectByName:
		return d.devices.ResolveByName(plan.DeviceName)
	case SelectByIndex:
		if d.choose == nil {
			return d.devices.ResolveByIndex(plan.DeviceIndex)
		}
		devices, err := d.devices.List()
		if err != nil {
			return core.Device{}, err
		}
		i, err := d.choose(devices)
		if err != nil {
			return core.Device{}, err
		}
		return d.devices.ResolveByIndex(i)
	default:
		return core.Device{}, fmt.Errorf("%w: unknown device selection %s", core.ErrUsage, plan.Selection)
	}
}

func (d *Director) createFile(plan Plan, linkType layers.LinkType) (*pcapfile.Writer, error) {
	path, err := pcapfile.ResolvePath(d.fs, plan.OutputDir, plan.FileName, plan.Policy)
	if err != nil {
		return nil, err
	}
	return pcapfile.Create(d.fs, path, plan.SnapLen, linkType, pcapfile.WithSyncEvery(plan.SyncEvery))
}

// loop pulls frames until the target is reached, ctx is done, a read fails fatally
// or an append fails. Each frame is appended before the next one is read.
func loop(ctx context.Context, src FrameSource, w *pcapfile.Writer, name string,
	stats *core.SessionStats, bar *progress.Reporter) (captureErr, writeErr error) {
	captured := metrics.FramesCapturedTotal.WithLabelValues(name)
	dropped := metrics.FramesDroppedTotal.WithLabelValues(name, metrics.DropReasonTimeout)
	written := metrics.BytesWrittenTotal.WithLabelValues(name)
	truncated := metrics.FramesTruncatedTotal.WithLabelValues(name)

	for stats.Captured < stats.Requested {
		if err := ctx.Err(); err != nil {
			slog.Info("capture interrupted", "captured", stats.Captured, "remaining", stats.Remaining(), "reason", err)
			return nil, nil
		}

		frame, status, err := src.NextFrame()
		switch status {
		case capture.ReadOK:
			start := time.Now()
			if err := w.Append(frame); err != nil {
				return nil, err
			}
			metrics.AppendLatencySeconds.Observe(time.Since(start).Seconds())

			n := frame.CaptureLength()
			stats.Captured++
			stats.BytesWritten += int64(n)
			captured.Inc()
			written.Add(float64(n))
			if frame.Truncated() {
				truncated.Inc()
			}
			bar.Advance(1)
		case capture.ReadTimeout:
			stats.Dropped++
			dropped.Inc()
			slog.Debug("capture read yielded no frame", "dropped", stats.Dropped, "error", err)
		case capture.ReadFatal:
			slog.Warn("capture ended early", "captured", stats.Captured, "remaining", stats.Remaining(), "error", err)
			return err, nil
		}
	}
	return nil, nil
}

func closeSource(src FrameSource, dev core.Device) {
	if err := src.Close(); err != nil {
		slog.Warn("failed to close capture session", "device", dev.Name, "error", err)
	}
}

func finishMessage(stats core.SessionStats, captureErr, writeErr, ctxErr error) string {
	switch {
	case writeErr != nil:
		return fmt.Sprintf("Capture aborted after %d packets: %v", stats.Captured, writeErr)
	case captureErr != nil:
		return fmt.Sprintf("Capture ended early after %d of %d packets", stats.Captured, stats.Requested)
	case ctxErr != nil && stats.Captured < stats.Requested:
		return fmt.Sprintf("Capture stopped after %d of %d packets", stats.Captured, stats.Requested)
	default:
		return "Capture complete"
	}
}

func hookResult(plan Plan, res *Result) hook.Result {
	return hook.Result{
		Path:     res.Path,
		Device:   res.Device.Name,
		Backend:  string(plan.Backend),
		SnapLen:  plan.SnapLen,
		LinkType: res.LinkType.String(),
		Status:   string(res.State),
		Stats:    res.Stats,
	}
}
