package pcapfile

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/gopacket/pcapgo"
	"github.com/spf13/afero"
)

// Summary describes a capture file.
type Summary struct {
	Path             string    `json:"path" yaml:"path"`
	LinkType         string    `json:"link_type" yaml:"link_type"`
	SnapLen          uint32    `json:"snaplen" yaml:"snaplen"`
	Records          int       `json:"records" yaml:"records"`
	CapturedBytes    int64     `json:"captured_bytes" yaml:"captured_bytes"`
	OriginalBytes    int64     `json:"original_bytes" yaml:"original_bytes"`
	TruncatedRecords int       `json:"truncated_records" yaml:"truncated_records"`
	// First and Last are nil for a file without records.
	First *time.Time `json:"first,omitempty" yaml:"first,omitempty"`
	Last  *time.Time `json:"last,omitempty" yaml:"last,omitempty"`
	// Complete is false when the file ends inside a record.
	Complete bool `json:"complete" yaml:"complete"`
}

// Duration returns the time between the first and last record.
func (s Summary) Duration() time.Duration {
	if s.First == nil || s.Last == nil {
		return 0
	}
	return s.Last.Sub(*s.First)
}

// Inspect parses path and summarizes its records.
func Inspect(fs afero.Fs, path string) (*Summary, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening pcap file: %w", err)
	}
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("error creating pcap reader: %w", err)
	}

	s := &Summary{
		Path:     path,
		LinkType: r.LinkType().String(),
		SnapLen:  r.Snaplen(),
		Complete: true,
	}
	for {
		data, ci, err := r.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			s.Complete = false
			break
		}
		if err != nil {
			return s, fmt.Errorf("error reading record %d: %w", s.Records+1, err)
		}

		ts := ci.Timestamp
		if s.First == nil {
			s.First = &ts
		}
		s.Last = &ts
		s.Records++
		s.CapturedBytes += int64(len(data))
		s.OriginalBytes += int64(ci.Length)
		if ci.Length > len(data) {
			s.TruncatedRecords++
		}
	}
	return s, nil
}
