package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"firestige.xyz/pcapture/internal/config"
	"firestige.xyz/pcapture/internal/core"
	"firestige.xyz/pcapture/internal/device"
	"firestige.xyz/pcapture/internal/hook"
	"firestige.xyz/pcapture/internal/metrics"
	"firestige.xyz/pcapture/internal/prompt"
	"firestige.xyz/pcapture/internal/session"
)

const viewerQuestion = "Would you like to open the capture in Wireshark?"

// captureCmd runs a non-interactive capture
var captureCmd = &cobra.Command{
	Use:   "capture <frame-count>",
	Short: "Capture a number of packets on the default device",
	Long: `Capture <frame-count> packets without prompting and write them to
<output-dir>/capture.pcap. The preferred device is used unless --device is set.

Examples:
  pcapture capture 100
  pcapture capture 1000 --device eth0 --policy version
  pcapture capture 500 --backend afpacket --snaplen 128`,
	Args: countArg,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := prompt.ParseCount(args[0])
		if err != nil {
			return err
		}
		return withMetrics(cmd.Context(), cfg.Metrics, func() error {
			hooks, err := buildHooks(cfg, afero.NewOsFs())
			if err != nil {
				return err
			}
			defer hook.CloseAll(hooks)

			plan := session.PlanFromConfig(cfg, n)
			plan.Hooks = hooks
			d := session.New(device.NewRegistry(device.PcapLister{}))
			return runCapture(cmd.Context(), d, plan, cmd.OutOrStdout(), cmd.ErrOrStderr())
		})
	},
}

// interactiveCmd runs a prompted capture
var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Prompt for the packet count and interface, then capture",
	Args:  noArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractiveCmd(cmd)
	},
}

func runInteractiveCmd(cmd *cobra.Command) error {
	return withMetrics(cmd.Context(), cfg.Metrics, func() error {
		hooks, err := buildHooks(cfg, afero.NewOsFs())
		if err != nil {
			return err
		}
		defer hook.CloseAll(hooks)

		p := prompt.New(cmd.InOrStdin(), cmd.OutOrStdout())
		reg := device.NewRegistry(device.PcapLister{})
		return runInteractive(cmd.Context(), cfg, reg, p, hooks, cmd.OutOrStdout(), cmd.ErrOrStderr())
	})
}

// countArg validates the single <frame-count> argument.
func countArg(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: expected exactly one <frame-count> argument, got %d", core.ErrUsage, len(args))
	}
	_, err := prompt.ParseCount(args[0])
	return err
}

// runInteractive asks for the frame count, lets the operator pick a device and offers
// the viewer once the capture completes. --device skips the device prompt.
func runInteractive(ctx context.Context, c *config.Config, devices session.DeviceSource, p *prompt.Prompter,
	hooks []hook.Hook, out, errOut io.Writer, opts ...session.Option) error {
	n, err := p.FrameCount()
	if err != nil {
		return err
	}

	plan := session.PlanFromConfig(c, n)
	if plan.Selection == session.SelectDefault {
		plan.Selection = session.SelectByIndex
	}
	viewer := hook.WhenConfirmed(hook.NewViewer(c.Viewer.Command, c.Viewer.Args), viewerQuestion, p.Confirm)
	plan.Hooks = append([]hook.Hook{viewer}, hooks...)

	opts = append([]session.Option{session.WithChooser(p.ChooseDevice), session.WithProgressOutput(out)}, opts...)
	return runCapture(ctx, session.New(devices, opts...), plan, out, errOut)
}

// runCapture runs plan and prints the session summary.
func runCapture(ctx context.Context, d *session.Director, plan session.Plan, out, errOut io.Writer) error {
	res, err := d.Run(ctx, plan)
	if err != nil {
		return err
	}

	if res.CaptureErr != nil {
		fmt.Fprintf(errOut, "Warning: capture ended early: %v\n", res.CaptureErr)
	}
	printResult(out, res)
	if res.HookErr != nil {
		fmt.Fprintf(errOut, "Warning: %v\n", res.HookErr)
	}
	return nil
}

func printResult(w io.Writer, res *session.Result) {
	s := res.Stats
	fmt.Fprintf(w, "Captured %d of %d packets on %s (%d dropped, %d bytes) in %s\n",
		s.Captured, s.Requested, res.Device.Name, s.Dropped, s.BytesWritten, s.Elapsed().Round(time.Millisecond))
	fmt.Fprintf(w, "Saved to %s\n", res.Path)
}

// buildHooks creates the configured non-interactive post-capture hooks.
func buildHooks(c *config.Config, fs afero.Fs) ([]hook.Hook, error) {
	var hooks []hook.Hook
	if c.Hooks.Kafka.Enabled {
		k, err := hook.NewKafka(c.Hooks.Kafka)
		if err != nil {
			return nil, fmt.Errorf("%w: kafka hook: %v", core.ErrConfigInvalid, err)
		}
		hooks = append(hooks, k)
	}
	if c.Hooks.S3.Enabled {
		s, err := hook.NewS3(c.Hooks.S3, fs)
		if err != nil {
			hook.CloseAll(hooks)
			return nil, fmt.Errorf("%w: s3 hook: %v", core.ErrConfigInvalid, err)
		}
		hooks = append(hooks, s)
	}
	return hooks, nil
}

// withMetrics serves metrics around fn when enabled.
func withMetrics(ctx context.Context, mc config.MetricsConfig, fn func() error) error {
	if !mc.Enabled {
		return fn()
	}
	srv := metrics.NewServer(mc.Listen, mc.Path)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("%w: %v", core.ErrConfigInvalid, err)
	}
	defer func() {
		if err := srv.Stop(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("failed to stop metrics server", "error", err)
		}
	}()
	return fn()
}
