//go:build !linux

package capture

import (
	"errors"

	"firestige.xyz/pcapture/internal/core"
)

func openAFPacket(cfg core.CaptureConfig) (Handle, error) {
	return nil, errors.New("afpacket backend is only supported on linux")
}
