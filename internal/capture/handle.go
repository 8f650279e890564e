// Package capture implements capture sessions over libpcap and AF_PACKET handles.
package capture

import (
	"errors"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/pcapture/internal/core"
)

// Handle is an activated capture handle. *pcap.Handle satisfies it directly.
type Handle interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
	Close()
}

// Opener activates a handle for cfg.
type Opener func(cfg core.CaptureConfig) (Handle, error)

// ErrHandleTimeout is returned by handles whose backend reports poll timeouts with its
// own error value.
var ErrHandleTimeout = errors.New("capture handle read timeout")

// ErrHandleGone is returned by handles whose backend reports a dead interface or socket
// without an errno.
var ErrHandleGone = errors.New("capture handle gone")

// maxTransientErrors is the number of back-to-back unclassified read errors after
// which a handle is considered broken.
const maxTransientErrors = 100

// ReadStatus classifies the outcome of one read.
type ReadStatus int

const (
	// ReadOK means a frame was returned.
	ReadOK ReadStatus = iota
	// ReadTimeout means no frame arrived in time or the read failed transiently.
	ReadTimeout
	// ReadFatal means the handle can produce no more frames.
	ReadFatal
)

func (s ReadStatus) String() string {
	switch s {
	case ReadOK:
		return "ok"
	case ReadTimeout:
		return "timeout"
	case ReadFatal:
		return "fatal"
	default:
		return fmt.Sprintf("ReadStatus(%d)", int(s))
	}
}

// openerFor returns the opener of backend b.
func openerFor(b core.Backend) (Opener, error) {
	switch b {
	case core.BackendPcap, "":
		return openPcap, nil
	case core.BackendAFPacket:
		return openAFPacket, nil
	default:
		return nil, fmt.Errorf("unknown capture backend %q", b)
	}
}
