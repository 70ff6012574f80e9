package app

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gajzzs/rpiburn/internal/device"
)

func (a *App) NewListCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List removable disks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := a.inventory().ListCandidates(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if output != outputTable {
				if devices == nil {
					devices = []device.Device{}
				}
				return writeStructured(out, output, devices)
			}
			if len(devices) == 0 {
				fmt.Fprintln(out, "No removable disks found.")
				return nil
			}
			return printDeviceTable(out, devices, false)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table, yaml or json")
	return cmd
}

func (a *App) NewInfoCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "info [device-path]",
		Short: "Show details of one disk or partition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.inventory().GetCandidate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if output != outputTable {
				return writeStructured(out, output, d)
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Device:\t%s\n", d.Path)
			fmt.Fprintf(tw, "Label:\t%s\n", d.Label)
			fmt.Fprintf(tw, "Size:\t%s (%d bytes)\n", d.HumanSize(), d.Size)
			fmt.Fprintf(tw, "Content:\t%s\n", d.Content)
			fmt.Fprintf(tw, "Removable:\t%t\n", d.Removable)
			fmt.Fprintf(tw, "Ejectable:\t%t\n", d.Ejectable)
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table, yaml or json")
	return cmd
}

// printDeviceTable prints devices, numbered from 1 when numbered is set.
func printDeviceTable(w io.Writer, devices []device.Device, numbered bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if numbered {
		fmt.Fprint(tw, "#\t")
	}
	fmt.Fprintln(tw, "DEVICE\tNAME\tSIZE\tFILESYSTEM")
	for i, d := range devices {
		if numbered {
			fmt.Fprintf(tw, "[%d]\t", i+1)
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f GB\t%s\n", d.Path, displayLabel(d), d.SizeGB(), d.Content)
	}
	return tw.Flush()
}
