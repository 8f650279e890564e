//go:build unix

package capture

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestClassifyErrno(t *testing.T) {
	tests := []struct {
		err  error
		want ReadStatus
	}{
		{unix.EAGAIN, ReadTimeout},
		{fmt.Errorf("poll: %w", unix.EINTR), ReadTimeout},
		{unix.ENODEV, ReadFatal},
		{fmt.Errorf("recvfrom: %w", unix.ENETDOWN), ReadFatal},
		{unix.ENXIO, ReadFatal},
		{unix.EBADF, ReadFatal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}
