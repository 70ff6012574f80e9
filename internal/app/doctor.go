package app

import (
	"fmt"
	"os"
	"runtime"
	"text/tabwriter"

	"github.com/c2h5oh/datasize"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/gajzzs/rpiburn/internal/platform"
	"github.com/gajzzs/rpiburn/internal/system"
)

func (a *App) NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:                   "doctor",
		Short:                 "Check that this host can burn images",
		DisableFlagsInUseLine: true,
		Args:                  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

			fmt.Fprintln(tw, "Required tools:")
			required := platform.RequiredTools(runtime.GOOS)
			missing := a.missingTools()
			if len(required) == 0 {
				fmt.Fprintf(tw, "  %s\tunsupported platform\n", runtime.GOOS)
			}
			for _, tool := range required {
				status := "ok"
				if lo.Contains(missing, tool) {
					status = "MISSING"
				}
				fmt.Fprintf(tw, "  %s\t%s\n", tool, status)
			}

			fmt.Fprintln(tw, "\nPrivileges:")
			if a.geteuid() == 0 {
				fmt.Fprintln(tw, "  root\tyes")
			} else {
				fmt.Fprintln(tw, "  root\tno (burn usually needs sudo to open the raw device)")
			}

			wd, _ := os.Getwd()
			facts := system.CollectFacts(cmd.Context(), wd)
			fmt.Fprintln(tw, "\nHost:")
			fmt.Fprintf(tw, "  Hostname:\t%s\n", facts.Hostname)
			fmt.Fprintf(tw, "  OS:\t%s %s %s (%s)\n", facts.OS, facts.Platform, facts.PlatformVersion, facts.Arch)
			fmt.Fprintf(tw, "  Kernel:\t%s\n", facts.KernelVersion)
			fmt.Fprintf(tw, "  Memory:\t%s\n", datasize.ByteSize(facts.MemoryTotal).HumanReadable())
			if facts.ScratchFree > 0 {
				fmt.Fprintf(tw, "  Free space here:\t%s\n", datasize.ByteSize(facts.ScratchFree).HumanReadable())
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if len(required) == 0 {
				return platform.ErrUnsupported
			}
			if len(missing) > 0 {
				return fmt.Errorf("missing required tools: %v", missing)
			}
			return nil
		},
	}
}
