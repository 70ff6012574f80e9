//go:build linux
// +build linux

package platform

import "log/slog"

func newDiskManager(runner Runner, logger *slog.Logger) DiskManager {
	return NewLsblk(runner, logger)
}
