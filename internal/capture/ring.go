package capture

import "fmt"

const (
	tpacketAlignment = 16 // TPACKET_ALIGNMENT
	tpacketHdrLen    = 52 // TPACKET3_HDRLEN, approximate
	minRingBlockSize = 128 * 1024
	afpacketRingMB   = 4
)

// ringSize computes TPACKET_V3 ring geometry for snapLen within a ringBufferSizeMB
// budget. PACKET_MMAP requires the block size to be a multiple of both the page size
// and the frame size, so frames and blocks are sized in powers of two.
func ringSize(ringBufferSizeMB, snapLen, pageSize int) (frameSize, blockSize, numBlocks int, err error) {
	if ringBufferSizeMB <= 0 {
		return 0, 0, 0, fmt.Errorf("ringBufferSizeMB must be positive, got %d", ringBufferSizeMB)
	}
	if snapLen <= 0 {
		return 0, 0, 0, fmt.Errorf("snapLen must be positive, got %d", snapLen)
	}
	if pageSize < tpacketAlignment || pageSize&(pageSize-1) != 0 {
		return 0, 0, 0, fmt.Errorf("pageSize must be a power of two >= %d, got %d", tpacketAlignment, pageSize)
	}

	frameSize = tpacketAlignment
	for frameSize < tpacketHdrLen+snapLen {
		frameSize <<= 1
	}

	blockSize = max(frameSize, pageSize)
	for blockSize < minRingBlockSize {
		blockSize <<= 1
	}

	numBlocks = ringBufferSizeMB * 1024 * 1024 / blockSize
	if numBlocks < 1 {
		numBlocks = 1
	}
	return frameSize, blockSize, numBlocks, nil
}
