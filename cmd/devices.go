package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/pcapture/internal/core"
	"firestige.xyz/pcapture/internal/device"
)

// devicesCmd lists capturable interfaces
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List capturable network interfaces",
	Long: `List the interfaces libpcap can capture on, numbered the way the
interactive prompt numbers them.`,
	Args: noArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDevices(device.NewRegistry(device.PcapLister{}), cmd.OutOrStdout())
	},
}

type deviceLister interface {
	List() ([]core.Device, error)
}

func runDevices(reg deviceLister, out io.Writer) error {
	devices, err := reg.List()
	if err != nil {
		return err
	}
	return device.WriteList(out, devices)
}
