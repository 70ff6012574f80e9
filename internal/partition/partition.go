// Package partition finds the FAT boot partition of a freshly written card
// and makes sure it is mounted.
package partition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/gajzzs/rpiburn/internal/platform"
)

// ErrMount is returned when a partition has no mount point after mounting.
var ErrMount = errors.New("partition mount failed")

var fatFamily = map[string]struct{}{
	"DOS":            {},
	"FAT32":          {},
	"msdos":          {},
	"MS-DOS":         {},
	"vfat":           {},
	"Windows_FAT_32": {},
	"Windows_FAT_16": {},
	"DOS_FAT_32":     {},
	"DOS_FAT_16":     {},
}

// IsFATFamily reports whether the content tag names a FAT filesystem.
// Matching is exact.
func IsFATFamily(content string) bool {
	_, ok := fatFamily[content]
	return ok
}

// BootPartition is the first FAT partition of a device.
type BootPartition struct {
	Path    string
	Content string
	// MountPath is set only after a successful Mount.
	MountPath string
}

// Locator finds and mounts boot partitions.
type Locator struct {
	disks  platform.DiskManager
	logger *slog.Logger
}

// NewLocator creates a locator backed by the given disk manager.
func NewLocator(disks platform.DiskManager, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{disks: disks, logger: logger}
}

// FindBootPartition returns the first FAT-family partition of device in
// table order. Query failures are logged and reported as not found.
func (l *Locator) FindBootPartition(ctx context.Context, device string) (BootPartition, bool) {
	parts, err := l.disks.Partitions(ctx, device)
	if err != nil {
		l.logger.WarnContext(ctx, "partition query failed", "device", device, "error", err)
		return BootPartition{}, false
	}

	p, ok := lo.Find(parts, func(p platform.Partition) bool {
		return p.DeviceIdentifier != "" && IsFATFamily(p.Content)
	})
	if !ok {
		l.logger.DebugContext(ctx, "no FAT partition", "device", device, "partitions", len(parts))
		return BootPartition{}, false
	}
	return BootPartition{Path: platform.DevicePath(p.DeviceIdentifier), Content: p.Content}, true
}

// Mount mounts the partition and returns its mount point. A failed mount
// command is not fatal on its own: the volume may already be mounted, so
// the mount point is read back either way.
func (l *Locator) Mount(ctx context.Context, part BootPartition) (string, error) {
	if err := l.disks.Mount(ctx, part.Path); err != nil {
		l.logger.WarnContext(ctx, "mount command failed", "partition", part.Path, "error", err)
	}

	info, err := l.disks.DiskInfo(ctx, part.Path)
	if err != nil {
		return "", fmt.Errorf("%w: query %s: %w", ErrMount, part.Path, err)
	}
	if info.MountPoint == "" {
		return "", fmt.Errorf("%w: %s has no mount point", ErrMount, part.Path)
	}
	l.logger.InfoContext(ctx, "partition mounted", "partition", part.Path, "mount_point", info.MountPoint)
	return info.MountPoint, nil
}
