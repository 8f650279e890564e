//go:build unix

package capture

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isDeviceGone reports errno values meaning the interface or socket is no longer usable.
func isDeviceGone(err error) bool {
	for _, errno := range []unix.Errno{unix.ENODEV, unix.ENETDOWN, unix.ENXIO, unix.EBADF} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
