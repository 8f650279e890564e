package capture

import (
	"fmt"

	"github.com/google/gopacket/pcap"

	"firestige.xyz/pcapture/internal/core"
)

// openPcap activates a libpcap handle configured through an inactive handle.
func openPcap(cfg core.CaptureConfig) (Handle, error) {
	inactive, err := pcap.NewInactiveHandle(cfg.Device.Name)
	if err != nil {
		return nil, fmt.Errorf("inactive handle error: %w", err)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(cfg.SnapLen); err != nil {
		return nil, fmt.Errorf("snapshot length error: %w", err)
	}
	if err := inactive.SetPromisc(cfg.Promiscuous); err != nil {
		return nil, fmt.Errorf("promiscuous mode error: %w", err)
	}
	if err := inactive.SetTimeout(cfg.ReadTimeout); err != nil {
		return nil, fmt.Errorf("read timeout error: %w", err)
	}
	// Frames are delivered as they arrive instead of when the kernel buffer fills.
	if err := inactive.SetImmediateMode(true); err != nil {
		return nil, fmt.Errorf("immediate mode error: %w", err)
	}

	handle, err := inactive.Activate()
	if err != nil {
		return nil, fmt.Errorf("activate: %w", err)
	}
	return handle, nil
}
