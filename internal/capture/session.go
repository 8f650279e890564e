package capture

import (
	"fmt"
	"log/slog"

	"github.com/google/gopacket/layers"

	"firestige.xyz/pcapture/internal/core"
)

// Session owns one open capture handle. It is not safe for concurrent use; the
// session director drives it from a single goroutine.
type Session struct {
	cfg      core.CaptureConfig
	handle   Handle
	linkType layers.LinkType
	closed   bool

	// transient counts back-to-back unclassified read errors.
	transient int
}

// Open activates a handle on cfg.Device with the configured backend.
func Open(cfg core.CaptureConfig) (*Session, error) {
	open, err := openerFor(cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDeviceOpen, err)
	}
	return OpenWith(cfg, open)
}

// OpenWith activates a handle through open. A failed open leaves nothing to close.
func OpenWith(cfg core.CaptureConfig, open Opener) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h, err := open(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrDeviceOpen, cfg.Device.Name, err)
	}

	s := &Session{
		cfg:      cfg,
		handle:   h,
		linkType: h.LinkType(),
	}
	slog.Info("capture session opened",
		"device", cfg.Device.Name,
		"backend", cfg.Backend,
		"snaplen", cfg.SnapLen,
		"promiscuous", cfg.Promiscuous,
		"link_type", s.linkType.String())
	return s, nil
}

// Config returns the session configuration.
func (s *Session) Config() core.CaptureConfig {
	return s.cfg
}

// LinkType returns the data link type reported by the handle.
func (s *Session) LinkType() layers.LinkType {
	return s.linkType
}

// NextFrame blocks for at most the read timeout and returns the next frame.
// Frames longer than the snapshot length are truncated; the original length is kept.
func (s *Session) NextFrame() (core.Frame, ReadStatus, error) {
	if s.closed {
		return core.Frame{}, ReadFatal, fmt.Errorf("%w: session closed", core.ErrCaptureFatal)
	}

	data, ci, err := s.handle.ReadPacketData()
	if err != nil {
		if classify(err) == ReadFatal {
			return core.Frame{}, ReadFatal, fmt.Errorf("%w: %w", core.ErrCaptureFatal, err)
		}
		if isTimeout(err) {
			s.transient = 0
		} else {
			s.transient++
			if s.transient >= maxTransientErrors {
				return core.Frame{}, ReadFatal, fmt.Errorf("%w: %d consecutive read errors: %w",
					core.ErrCaptureFatal, s.transient, err)
			}
		}
		return core.Frame{}, ReadTimeout, fmt.Errorf("%w: %w", core.ErrCaptureTimeout, err)
	}
	s.transient = 0
	if len(data) == 0 {
		return core.Frame{}, ReadTimeout, fmt.Errorf("%w: empty read", core.ErrCaptureTimeout)
	}

	if len(data) > s.cfg.SnapLen {
		data = data[:s.cfg.SnapLen]
	}
	orig := ci.Length
	if orig < len(data) {
		orig = len(data)
	}

	return core.Frame{
		Data:           data,
		Timestamp:      ci.Timestamp,
		OriginalLength: orig,
		InterfaceIndex: ci.InterfaceIndex,
	}, ReadOK, nil
}

// Close releases the handle. It is safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.handle.Close()
	slog.Info("capture session closed", "device", s.cfg.Device.Name)
	return nil
}
