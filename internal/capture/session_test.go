package capture

import (
	"errors"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pcapture/internal/core"
)

type fakeRead struct {
	data []byte
	ci   gopacket.CaptureInfo
	err  error
}

// fakeHandle replays a fixed sequence of reads, then reports io.EOF.
type fakeHandle struct {
	reads  []fakeRead
	pos    int
	closed int
}

func (h *fakeHandle) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	if h.pos >= len(h.reads) {
		return nil, gopacket.CaptureInfo{}, io.EOF
	}
	r := h.reads[h.pos]
	h.pos++
	return r.data, r.ci, r.err
}

func (h *fakeHandle) LinkType() layers.LinkType { return layers.LinkTypeEthernet }

func (h *fakeHandle) Close() { h.closed++ }

// buildUDPFrame serializes an Ethernet/IPv4/UDP frame with payloadLen bytes of payload.
func buildUDPFrame(t *testing.T, payloadLen int) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(192, 168, 1, 50),
		DstIP:    net.IPv4(192, 168, 1, 100),
	}
	udp := &layers.UDP{SrcPort: 5000, DstPort: 6000}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(make([]byte, payloadLen)))
	require.NoError(t, err)
	return buf.Bytes()
}

func frameRead(data []byte) fakeRead {
	return fakeRead{
		data: data,
		ci: gopacket.CaptureInfo{
			Timestamp:      time.Unix(1700000000, 123456000),
			CaptureLength:  len(data),
			Length:         len(data),
			InterfaceIndex: 2,
		},
	}
}

func testConfig() core.CaptureConfig {
	return core.CaptureConfig{
		Device:      core.Device{Name: "eth0"},
		Promiscuous: true,
		SnapLen:     5000,
		TargetCount: 3,
		ReadTimeout: time.Second,
		Backend:     core.BackendPcap,
	}
}

func openFake(t *testing.T, cfg core.CaptureConfig, h *fakeHandle) *Session {
	t.Helper()
	s, err := OpenWith(cfg, func(core.CaptureConfig) (Handle, error) { return h, nil })
	require.NoError(t, err)
	return s
}

func TestOpenWith_Failure(t *testing.T) {
	s, err := OpenWith(testConfig(), func(core.CaptureConfig) (Handle, error) {
		return nil, errors.New("eth0: You don't have permission to capture on that device")
	})

	assert.Nil(t, s)
	assert.ErrorIs(t, err, core.ErrDeviceOpen)
	assert.Contains(t, err.Error(), "permission")
}

func TestOpenWith_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.TargetCount = 0
	called := false

	_, err := OpenWith(cfg, func(core.CaptureConfig) (Handle, error) {
		called = true
		return &fakeHandle{}, nil
	})

	assert.ErrorIs(t, err, core.ErrConfigInvalid)
	assert.False(t, called, "handle must not be opened for an invalid config")
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Backend = "xdp"

	_, err := Open(cfg)
	assert.ErrorIs(t, err, core.ErrDeviceOpen)
}

func TestSession_NextFrame(t *testing.T) {
	frame := buildUDPFrame(t, 32)
	h := &fakeHandle{reads: []fakeRead{frameRead(frame)}}
	s := openFake(t, testConfig(), h)

	f, status, err := s.NextFrame()
	require.NoError(t, err)
	assert.Equal(t, ReadOK, status)
	assert.Equal(t, frame, f.Data)
	assert.Equal(t, len(frame), f.OriginalLength)
	assert.Equal(t, 2, f.InterfaceIndex)
	assert.Equal(t, time.Unix(1700000000, 123456000), f.Timestamp)
	assert.False(t, f.Truncated())

	packet := gopacket.NewPacket(f.Data, s.LinkType(), gopacket.Default)
	assert.NotNil(t, packet.Layer(layers.LayerTypeUDP))
}

func TestSession_NextFrameTruncatesToSnapLen(t *testing.T) {
	cfg := testConfig()
	cfg.SnapLen = 64
	frame := buildUDPFrame(t, 1472)
	h := &fakeHandle{reads: []fakeRead{frameRead(frame)}}
	s := openFake(t, cfg, h)

	f, status, err := s.NextFrame()
	require.NoError(t, err)
	assert.Equal(t, ReadOK, status)
	assert.Len(t, f.Data, 64)
	assert.Equal(t, 1514, f.OriginalLength)
	assert.True(t, f.Truncated())
}

func TestSession_NextFrameOriginalLengthNeverShorter(t *testing.T) {
	r := frameRead(buildUDPFrame(t, 10))
	r.ci.Length = 0
	s := openFake(t, testConfig(), &fakeHandle{reads: []fakeRead{r}})

	f, _, err := s.NextFrame()
	require.NoError(t, err)
	assert.Equal(t, len(r.data), f.OriginalLength)
}

func TestSession_NextFrameClassification(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status ReadStatus
		target error
	}{
		{"pcap timeout", pcap.NextErrorTimeoutExpired, ReadTimeout, core.ErrCaptureTimeout},
		{"afpacket timeout", ErrHandleTimeout, ReadTimeout, core.ErrCaptureTimeout},
		{"unknown", errors.New("something odd"), ReadTimeout, core.ErrCaptureTimeout},
		{"pcap read error", pcap.NextErrorReadError, ReadFatal, core.ErrCaptureFatal},
		{"handle gone", fmt.Errorf("%w: poll error", ErrHandleGone), ReadFatal, core.ErrCaptureFatal},
		{"eof", io.EOF, ReadFatal, core.ErrCaptureFatal},
		{"wrapped eof", errors.Join(errors.New("read"), io.EOF), ReadFatal, core.ErrCaptureFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openFake(t, testConfig(), &fakeHandle{reads: []fakeRead{{err: tt.err}}})

			f, status, err := s.NextFrame()
			assert.Equal(t, tt.status, status)
			assert.ErrorIs(t, err, tt.target)
			assert.ErrorIs(t, err, tt.err)
			assert.Empty(t, f.Data)
		})
	}
}

func TestSession_NextFrameRepeatedUnknownErrorsBecomeFatal(t *testing.T) {
	odd := errors.New("something odd")
	reads := make([]fakeRead, 0, maxTransientErrors)
	for i := 0; i < maxTransientErrors; i++ {
		reads = append(reads, fakeRead{err: odd})
	}
	s := openFake(t, testConfig(), &fakeHandle{reads: reads})

	for i := 1; i < maxTransientErrors; i++ {
		_, status, _ := s.NextFrame()
		require.Equal(t, ReadTimeout, status, "read %d", i)
	}
	_, status, err := s.NextFrame()
	assert.Equal(t, ReadFatal, status)
	assert.ErrorIs(t, err, core.ErrCaptureFatal)
	assert.ErrorIs(t, err, odd)
}

func TestSession_NextFrameUnknownErrorCountResets(t *testing.T) {
	odd := fakeRead{err: errors.New("something odd")}
	var reads []fakeRead
	for i := 0; i < maxTransientErrors-1; i++ {
		reads = append(reads, odd)
	}
	reads = append(reads, fakeRead{err: ErrHandleTimeout})
	for i := 0; i < maxTransientErrors-1; i++ {
		reads = append(reads, odd)
	}
	reads = append(reads, frameRead(buildUDPFrame(t, 8)))
	s := openFake(t, testConfig(), &fakeHandle{reads: reads})

	for i := 0; i < len(reads)-1; i++ {
		_, status, _ := s.NextFrame()
		require.Equal(t, ReadTimeout, status, "read %d", i)
	}
	_, status, err := s.NextFrame()
	require.NoError(t, err)
	assert.Equal(t, ReadOK, status)
}

func TestSession_NextFrameEmptyReadIsTimeout(t *testing.T) {
	s := openFake(t, testConfig(), &fakeHandle{reads: []fakeRead{{data: []byte{}}}})

	_, status, err := s.NextFrame()
	assert.Equal(t, ReadTimeout, status)
	assert.ErrorIs(t, err, core.ErrCaptureTimeout)
}

func TestSession_CloseIdempotent(t *testing.T) {
	h := &fakeHandle{reads: []fakeRead{frameRead(buildUDPFrame(t, 8))}}
	s := openFake(t, testConfig(), h)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, h.closed)

	_, status, err := s.NextFrame()
	assert.Equal(t, ReadFatal, status)
	assert.ErrorIs(t, err, core.ErrCaptureFatal)
	assert.Equal(t, 0, h.pos, "closed session must not touch the handle")
}

func TestReadStatusString(t *testing.T) {
	assert.Equal(t, "ok", ReadOK.String())
	assert.Equal(t, "timeout", ReadTimeout.String())
	assert.Equal(t, "fatal", ReadFatal.String())
	assert.Equal(t, "ReadStatus(9)", ReadStatus(9).String())
}
