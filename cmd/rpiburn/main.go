package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gajzzs/rpiburn/internal/app"
	"github.com/gajzzs/rpiburn/internal/config"
	"github.com/gajzzs/rpiburn/internal/platform"
)

var (
	logLevel = new(slog.LevelVar)
	verbose  bool
)

func newRootCommand(a *app.App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "rpiburn",
		Short:         "Burn Raspberry Pi images to SD cards with cloud-init support",
		Long:          "rpiburn writes a disk image to a removable disk and can drop cloud-init user-data and meta-data onto its boot partition",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logLevel.Set(slog.LevelDebug)
			}
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log external commands")
	rootCmd.AddCommand(
		a.NewListCommand(),
		a.NewInfoCommand(),
		a.NewBurnCommand(),
		a.NewCloudInitCommand(),
		a.NewDoctorCommand(),
		app.NewConfigCommand(),
	)
	return rootCmd
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if err := config.InitConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(config.GetConfig().LogLevel))); err != nil {
		logLevel.Set(slog.LevelInfo)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	disks := platform.NewDiskManager(platform.NewExecRunner(logger), logger)
	if err := newRootCommand(app.New(disks, logger)).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
