package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingSize(t *testing.T) {
	tests := []struct {
		name       string
		bufferMB   int
		snapLen    int
		pageSize   int
		wantFrame  int
		wantBlock  int
		wantBlocks int
	}{
		{"default snaplen", 4, 5000, 4096, 8192, 128 * 1024, 32},
		{"small snaplen", 4, 64, 4096, 128, 128 * 1024, 32},
		{"max snaplen", 4, 262144, 4096, 512 * 1024, 512 * 1024, 8},
		{"budget smaller than a block", 1, 262144, 4096, 512 * 1024, 512 * 1024, 2},
		{"large pages", 4, 5000, 65536, 8192, 128 * 1024, 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, block, blocks, err := ringSize(tt.bufferMB, tt.snapLen, tt.pageSize)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFrame, frame)
			assert.Equal(t, tt.wantBlock, block)
			assert.Equal(t, tt.wantBlocks, blocks)

			assert.Zero(t, block%tt.pageSize, "block must be page aligned")
			assert.Zero(t, block%frame, "block must hold whole frames")
			assert.Zero(t, frame%tpacketAlignment, "frame must be TPACKET aligned")
			assert.GreaterOrEqual(t, frame, tt.snapLen+tpacketHdrLen)
		})
	}
}

func TestRingSizeInvalid(t *testing.T) {
	_, _, _, err := ringSize(0, 5000, 4096)
	assert.Error(t, err)

	_, _, _, err = ringSize(4, 0, 4096)
	assert.Error(t, err)

	_, _, _, err = ringSize(4, 5000, 3000)
	assert.Error(t, err)
}
