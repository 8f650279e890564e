package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"firestige.xyz/pcapture/internal/core"
	"firestige.xyz/pcapture/internal/pcapfile"
)

var inspectFormat string

// inspectCmd summarizes a capture file
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Summarize a capture file",
	Long: `Parse a libpcap capture file and print its link type, snapshot length,
record count, byte totals and time range.

Examples:
  pcapture inspect captured_packets/capture.pcap
  pcapture inspect captured_packets/capture-2.pcap --format yaml`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("%w: expected exactly one <file> argument, got %d", core.ErrUsage, len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(afero.NewOsFs(), args[0], inspectFormat, cmd.OutOrStdout())
	},
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectFormat, "format", "f", "text", "output format: text | json | yaml")
}

func runInspect(fs afero.Fs, path, format string, out io.Writer) error {
	switch format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("%w: unknown format %q (must be text/json/yaml)", core.ErrUsage, format)
	}

	s, err := pcapfile.Inspect(fs, path)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format summary: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("failed to format summary: %w", err)
		}
		return enc.Close()
	default:
		return writeSummary(out, s)
	}
}

func writeSummary(out io.Writer, s *pcapfile.Summary) error {
	rows := [][2]string{
		{"File", s.Path},
		{"Link type", s.LinkType},
		{"Snapshot length", fmt.Sprint(s.SnapLen)},
		{"Records", fmt.Sprintf("%d (%d truncated)", s.Records, s.TruncatedRecords)},
		{"Captured bytes", fmt.Sprint(s.CapturedBytes)},
		{"Original bytes", fmt.Sprint(s.OriginalBytes)},
	}
	if s.First != nil && s.Last != nil {
		rows = append(rows,
			[2]string{"First record", s.First.Format(time.RFC3339Nano)},
			[2]string{"Last record", s.Last.Format(time.RFC3339Nano)},
			[2]string{"Duration", s.Duration().String()},
		)
	}
	rows = append(rows, [2]string{"Complete", yesNo(s.Complete)})

	for _, r := range rows {
		if _, err := fmt.Fprintf(out, "%-17s%s\n", r[0]+":", r[1]); err != nil {
			return err
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no (truncated record at end of file)"
}
