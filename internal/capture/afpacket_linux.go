//go:build linux

package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/afpacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/pcapture/internal/core"
)

// afpacketHandle reads from a TPACKET_V3 ring.
type afpacketHandle struct {
	tpacket *afpacket.TPacket
	promisc *promiscGuard
	device  string
}

func openAFPacket(cfg core.CaptureConfig) (Handle, error) {
	frameSize, blockSize, numBlocks, err := ringSize(afpacketRingMB, cfg.SnapLen, os.Getpagesize())
	if err != nil {
		return nil, fmt.Errorf("failed to compute ring size: %w", err)
	}

	tpacket, err := afpacket.NewTPacket(
		afpacket.OptInterface(cfg.Device.Name),
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(blockSize),
		afpacket.OptNumBlocks(numBlocks),
		afpacket.OptPollTimeout(cfg.ReadTimeout),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create TPacket handle: %w", err)
	}

	h := &afpacketHandle{tpacket: tpacket, device: cfg.Device.Name}
	if cfg.Promiscuous {
		guard, err := enablePromisc(cfg.Device.Name)
		if err != nil {
			tpacket.Close()
			return nil, fmt.Errorf("promiscuous mode error: %w", err)
		}
		h.promisc = guard
	}

	slog.Debug("afpacket ring configured",
		"interface", cfg.Device.Name,
		"frame_size", frameSize,
		"block_size", blockSize,
		"num_blocks", numBlocks)
	return h, nil
}

// ReadPacketData copies the next frame out of the ring.
func (h *afpacketHandle) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := h.tpacket.ReadPacketData()
	if err != nil {
		return nil, ci, afpacketError(err)
	}
	return data, ci, nil
}

// afpacketError maps afpacket sentinels to handle errors. ErrPoll means poll reported
// POLLERR, which stays set once the interface is down or unregistered.
func afpacketError(err error) error {
	switch {
	case errors.Is(err, afpacket.ErrTimeout):
		return ErrHandleTimeout
	case errors.Is(err, afpacket.ErrPoll):
		return fmt.Errorf("%w: %w", ErrHandleGone, err)
	default:
		return err
	}
}

// LinkType is always Ethernet for SOCK_RAW packet sockets on Ethernet devices.
func (h *afpacketHandle) LinkType() layers.LinkType {
	return layers.LinkTypeEthernet
}

// Close unmaps the ring and restores the interface flags.
func (h *afpacketHandle) Close() {
	h.tpacket.Close()
	if h.promisc != nil {
		if err := h.promisc.restore(); err != nil {
			slog.Warn("failed to restore promiscuous flag", "interface", h.device, "error", err)
		}
	}
}
