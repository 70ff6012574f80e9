package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gajzzs/rpiburn/internal/burn"
	"github.com/gajzzs/rpiburn/internal/cloudinit"
	"github.com/gajzzs/rpiburn/internal/config"
	"github.com/gajzzs/rpiburn/internal/device"
	"github.com/gajzzs/rpiburn/internal/imaging"
)

// ErrNoDevices is returned when no removable disk is available to burn.
var ErrNoDevices = errors.New("no removable disks found")

func (a *App) NewBurnCommand() *cobra.Command {
	var (
		devicePath string
		cloudInit  string
		metaData   string
		confirmed  bool
		noEject    bool
		noProgress bool
	)
	cmd := &cobra.Command{
		Use:   "burn [image]",
		Short: "Burn an image to a removable disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			in := bufio.NewReader(cmd.InOrStdin())
			cfg := config.GetConfig()
			image := args[0]

			if cloudInit == "" {
				cloudInit = cfg.UserData
			}
			if metaData == "" {
				metaData = cfg.MetaData
			}
			if metaData != "" && cloudInit == "" {
				return errors.New("--meta-data requires --cloud-init")
			}

			// Everything that can be checked up front is, before the device is touched.
			if err := imaging.CheckImage(image); err != nil {
				return err
			}
			var userDoc, metaDoc []byte
			var err error
			if cloudInit != "" {
				if userDoc, err = cloudinit.LoadUserData(cloudInit); err != nil {
					return err
				}
			}
			if metaData != "" {
				if metaDoc, err = cloudinit.LoadMetaData(metaData); err != nil {
					return err
				}
			}

			dev, err := a.selectDevice(ctx, in, out, devicePath)
			if err != nil {
				return err
			}

			fmt.Fprintln(out, "\nReady to burn:")
			fmt.Fprintf(out, "  Image:      %s\n", image)
			fmt.Fprintf(out, "  Target:     %s (%.2f GB)\n", dev.DisplayName(), dev.SizeGB())
			if cloudInit != "" {
				fmt.Fprintf(out, "  Cloud-Init: %s\n", cloudInit)
			}
			if metaData != "" {
				fmt.Fprintf(out, "  Meta-Data:  %s\n", metaData)
			}
			fmt.Fprintln(out)

			if !confirmed {
				fmt.Fprintf(out, "All data on %s will be destroyed. Type \"yes\" to confirm: ", dev.Path)
				answer, err := readLine(in)
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				if !strings.EqualFold(answer, "yes") {
					fmt.Fprintln(out, "Cancelled.")
					return nil
				}
			}

			var progress io.Writer
			if cfg.ShowProgress && !noProgress {
				progress = cmd.ErrOrStderr()
			}
			res, err := burn.NewBurner(a.Disks, a.Logger).Burn(ctx, burn.Request{
				Image:    image,
				Device:   dev.Path,
				UserData: userDoc,
				MetaData: metaDoc,
				Eject:    cfg.Eject && !noEject,
			}, newConsoleReporter(out, progress))
			if err != nil {
				return err
			}

			if res.Injected {
				fmt.Fprintf(out, "Cloud-init files written to %s\n", res.MountPoint)
			}
			if res.Ejected {
				fmt.Fprintln(out, "Done! SD card is ready.")
			} else {
				fmt.Fprintln(out, "Write complete.")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&devicePath, "disk", "d", "", "target disk device path (e.g. /dev/disk4)")
	cmd.Flags().StringVar(&cloudInit, "cloud-init", "", "cloud-init user-data file (YAML)")
	cmd.Flags().StringVar(&metaData, "meta-data", "", "cloud-init meta-data file (YAML)")
	cmd.Flags().BoolVar(&confirmed, "confirm", false, "skip the confirmation prompt (DANGEROUS)")
	cmd.Flags().BoolVar(&noEject, "no-eject", false, "don't eject the disk after writing")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "don't show copy progress")
	return cmd
}

// selectDevice resolves the burn target: the explicit path if given, the
// only candidate if there is one, otherwise the user's pick.
func (a *App) selectDevice(ctx context.Context, in *bufio.Reader, out io.Writer, path string) (device.Device, error) {
	inv := a.inventory()
	if path != "" {
		return inv.GetCandidate(ctx, path)
	}

	devices, err := inv.ListCandidates(ctx)
	if err != nil {
		return device.Device{}, err
	}
	switch len(devices) {
	case 0:
		return device.Device{}, ErrNoDevices
	case 1:
		fmt.Fprintf(out, "Using single disk: %s\n", devices[0].DisplayName())
		return devices[0], nil
	}

	fmt.Fprintln(out, "\nAvailable disks:")
	if err := printDeviceTable(out, devices, true); err != nil {
		return device.Device{}, err
	}
	for {
		fmt.Fprintf(out, "\nSelect disk number [%d]: ", len(devices))
		answer, err := readLine(in)
		if err != nil {
			return device.Device{}, fmt.Errorf("read selection: %w", err)
		}
		if answer == "" {
			return devices[len(devices)-1], nil
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(devices) {
			return devices[n-1], nil
		}
		fmt.Fprintln(out, "Invalid selection")
	}
}

func (a *App) NewCloudInitCommand() *cobra.Command {
	var metaData string
	cmd := &cobra.Command{
		Use:   "cloud-init [mount-path] [user-data]",
		Short: "Write cloud-init files to an already mounted boot partition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userDoc, err := cloudinit.LoadUserData(args[1])
			if err != nil {
				return err
			}
			var metaDoc []byte
			if metaData != "" {
				if metaDoc, err = cloudinit.LoadMetaData(metaData); err != nil {
					return err
				}
			}
			if err := cloudinit.Write(args[0], userDoc, metaDoc, a.Logger); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cloud-init files written to %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&metaData, "meta-data", "", "cloud-init meta-data file (YAML)")
	return cmd
}

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change saved defaults",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the current configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "# %s\n", config.ConfigFile)
				for _, key := range config.Keys {
					v, err := config.Get(key)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s = %s\n", key, v)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "set [key] [value]",
			Short: "Set a configuration value",
			Long:  "Set a configuration value. Keys: " + strings.Join(config.Keys, ", "),
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := config.Set(args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", args[0], config.ConfigFile)
				return nil
			},
		},
	)

	return cmd
}
