// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"firestige.xyz/pcapture/internal/config"
	"firestige.xyz/pcapture/internal/core"
	"firestige.xyz/pcapture/internal/log"
)

var (
	// Global flags
	configFile string

	// Loaded by loadConfig before any command runs
	cfg *config.Config
)

// rootCmd represents the base command. Without a sub-command it runs an interactive capture.
var rootCmd = &cobra.Command{
	Use:   "pcapture",
	Short: "pcapture - bounded live packet capture to libpcap files",
	Long: `pcapture captures a fixed number of link-layer frames from a live network
interface and writes them to a libpcap capture file while showing progress.

Run without a sub-command to be prompted for the packet count and the interface.

Examples:
  pcapture                                  # Interactive capture
  pcapture capture 100                      # Capture 100 packets on the default device
  pcapture capture 100 --device eth0 -c pcapture.yml
  pcapture devices                          # List capturable interfaces
  pcapture inspect captured_packets/capture.pcap --format json`,
	Args:              noArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractiveCmd(cmd)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	pf.Int("snaplen", 5000, "maximum bytes captured per frame")
	pf.Bool("promisc", true, "capture in promiscuous mode")
	pf.String("output-dir", "captured_packets", "directory the capture file is written to")
	pf.String("policy", "overwrite", "existing output file policy: overwrite | version")
	pf.String("backend", string(core.BackendPcap), "capture backend: pcap | afpacket")
	pf.String("device", "", "capture device name (default: preferred device)")
	pf.String("log-level", "warn", "log level: debug | info | warn | error")
	pf.Bool("quiet", false, "suppress the progress bar")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", core.ErrUsage, err)
	})

	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(interactiveCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(versionCmd)
}

// flagBindings maps config keys to persistent flag names.
var flagBindings = map[string]string{
	"capture.snaplen":     "snaplen",
	"capture.promiscuous": "promisc",
	"capture.backend":     "backend",
	"capture.device":      "device",
	"output.dir":          "output-dir",
	"output.policy":       "policy",
	"log.level":           "log-level",
	"progress.quiet":      "quiet",
}

func configOptions(flags *pflag.FlagSet) []config.Option {
	opts := make([]config.Option, 0, len(flagBindings))
	for key, name := range flagBindings {
		opts = append(opts, config.WithFlag(key, flags.Lookup(name)))
	}
	return opts
}

// loadConfig loads the configuration and initializes logging.
func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configFile, configOptions(cmd.Flags())...)
	if err != nil {
		return err
	}
	if err := log.Init(c.Log); err != nil {
		return fmt.Errorf("%w: %v", core.ErrConfigInvalid, err)
	}
	cfg = c
	return nil
}

// Execute runs the root command and returns the process exit status.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// Restore default signal handling once interrupted so a second Ctrl-C exits.
	go func() {
		<-ctx.Done()
		stop()
	}()

	c, err := rootCmd.ExecuteContextC(ctx)
	if err != nil {
		reportError(os.Stderr, c, err)
		return 1
	}
	return 0
}

// reportError prints err, plus usage for usage errors.
func reportError(w io.Writer, c *cobra.Command, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	if c != nil && errors.Is(err, core.ErrUsage) {
		fmt.Fprint(w, c.UsageString())
	}
}

// noArgs rejects positional arguments as a usage error.
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: unknown command %q for %q", core.ErrUsage, args[0], cmd.CommandPath())
	}
	return nil
}
