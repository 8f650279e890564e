package capture

import (
	"errors"
	"io"

	"github.com/google/gopacket/pcap"
)

// classify maps a handle read error to a read status. Errors that are neither known
// timeouts nor known device failures are treated as transient.
func classify(err error) ReadStatus {
	switch {
	case err == nil:
		return ReadOK
	case isTimeout(err):
		return ReadTimeout
	case errors.Is(err, ErrHandleGone),
		errors.Is(err, pcap.NextErrorReadError),
		errors.Is(err, pcap.NextErrorNoMorePackets),
		errors.Is(err, pcap.NextErrorNotActivated),
		errors.Is(err, io.EOF):
		return ReadFatal
	case isDeviceGone(err):
		return ReadFatal
	default:
		return ReadTimeout
	}
}

// isTimeout reports errors meaning only that no frame arrived within the read timeout.
func isTimeout(err error) bool {
	return errors.Is(err, ErrHandleTimeout) || errors.Is(err, pcap.NextErrorTimeoutExpired)
}
