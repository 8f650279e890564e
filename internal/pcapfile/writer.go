// Package pcapfile writes and inspects classic libpcap capture files.
package pcapfile

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/spf13/afero"

	"firestige.xyz/pcapture/internal/core"
)

const (
	fileHeaderLen   = 24
	recordHeaderLen = 16
)

var errWriterClosed = errors.New("writer already finalized")

// Writer appends frames to a libpcap file. The file is a valid capture after every
// successful Append. A Writer is not safe for concurrent use.
type Writer struct {
	fs       afero.Fs
	path     string
	file     afero.File
	buf      *bufio.Writer
	pcap     *pcapgo.Writer
	snapLen  int
	linkType layers.LinkType

	syncEvery int
	records   int
	bytes     int64
	offset    int64

	failed    error
	finalized bool
	finalErr  error
}

// Option configures a Writer.
type Option func(*Writer)

// WithSyncEvery fsyncs the file after every n records. Zero syncs on Finalize only.
func WithSyncEvery(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.syncEvery = n
		}
	}
}

// Create truncates or creates path and writes the global header for snapLen and
// linkType. The header has reached the OS when Create returns.
func Create(fs afero.Fs, path string, snapLen int, linkType layers.LinkType, opts ...Option) (*Writer, error) {
	if snapLen < core.MinSnapLen || snapLen > core.MaxSnapLen {
		return nil, fmt.Errorf("%w: %s: snapshot length %d out of range", core.ErrFileCreate, path, snapLen)
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrFileCreate, err)
	}

	f, err := fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrFileCreate, err)
	}

	// One record header plus the largest payload fit the buffer, so each record is
	// handed to the OS in a single write.
	buf := bufio.NewWriterSize(f, recordHeaderLen+snapLen)
	w := &Writer{
		fs:       fs,
		path:     path,
		file:     f,
		buf:      buf,
		pcap:     pcapgo.NewWriter(buf),
		snapLen:  snapLen,
		linkType: linkType,
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.pcap.WriteFileHeader(uint32(snapLen), linkType); err == nil {
		err = buf.Flush()
	}
	if err != nil {
		_ = f.Close()
		_ = fs.Remove(path)
		return nil, fmt.Errorf("%w: %s: write header: %w", core.ErrFileCreate, path, err)
	}
	w.offset = fileHeaderLen

	slog.Info("capture file created", "path", path, "snaplen", snapLen, "link_type", linkType.String())
	return w, nil
}

// Path returns the file path.
func (w *Writer) Path() string { return w.path }

// Records returns the number of records written.
func (w *Writer) Records() int { return w.records }

// BytesWritten returns the number of captured payload bytes written.
func (w *Writer) BytesWritten() int64 { return w.bytes }

// Append writes one record. Payload beyond the snapshot length is dropped and the
// original length is never less than the stored length. After a failed Append the
// writer refuses further records; earlier records stay readable.
func (w *Writer) Append(frame core.Frame) error {
	if w.finalized {
		return fmt.Errorf("%w: %w", core.ErrWrite, errWriterClosed)
	}
	if w.failed != nil {
		return fmt.Errorf("%w: previous append failed: %w", core.ErrWrite, w.failed)
	}

	data := frame.Data
	if len(data) > w.snapLen {
		data = data[:w.snapLen]
	}
	orig := max(frame.OriginalLength, len(data))
	ts := frame.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	ci := gopacket.CaptureInfo{
		Timestamp:      ts,
		CaptureLength:  len(data),
		Length:         orig,
		InterfaceIndex: frame.InterfaceIndex,
	}
	err := w.pcap.WritePacket(ci, data)
	if err == nil {
		err = w.buf.Flush()
	}
	if err != nil {
		w.fail(err)
		return fmt.Errorf("%w: %w", core.ErrWrite, err)
	}

	w.records++
	w.bytes += int64(len(data))
	w.offset += int64(recordHeaderLen + len(data))

	if w.syncEvery > 0 && w.records%w.syncEvery == 0 {
		if err := w.file.Sync(); err != nil {
			w.fail(err)
			return fmt.Errorf("%w: sync: %w", core.ErrWrite, err)
		}
	}
	return nil
}

// fail marks the writer broken and cuts any partial record so the file stays parseable.
func (w *Writer) fail(err error) {
	w.failed = err
	w.buf.Reset(w.file)
	if terr := w.file.Truncate(w.offset); terr != nil {
		slog.Warn("failed to truncate partial record", "path", w.path, "offset", w.offset, "error", terr)
	}
}

// Finalize flushes, syncs and closes the file. It is idempotent and returns the first
// error encountered.
func (w *Writer) Finalize() error {
	if w.finalized {
		return w.finalErr
	}
	w.finalized = true

	var errs []error
	if w.failed == nil {
		if err := w.buf.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := w.file.Sync(); err != nil {
		errs = append(errs, err)
	}
	if err := w.file.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		w.finalErr = fmt.Errorf("%w: finalize %s: %w", core.ErrWrite, w.path, errs[0])
	}

	slog.Info("capture file finalized", "path", w.path, "records", w.records, "bytes", w.bytes)
	return w.finalErr
}
