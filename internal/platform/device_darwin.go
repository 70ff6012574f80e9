//go:build darwin
// +build darwin

package platform

import "log/slog"

func newDiskManager(runner Runner, logger *slog.Logger) DiskManager {
	return NewDiskutil(runner, logger)
}
