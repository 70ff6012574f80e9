package device

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/samber/lo"

	"github.com/gajzzs/rpiburn/internal/platform"
)

// Inventory lists the removable devices that are candidates for imaging.
type Inventory struct {
	disks  platform.DiskManager
	logger *slog.Logger
}

// NewInventory creates an inventory backed by the given disk manager.
func NewInventory(disks platform.DiskManager, logger *slog.Logger) *Inventory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inventory{disks: disks, logger: logger}
}

// ListCandidates queries the OS for external physical disks. Every call
// re-queries; a failed query returns no devices at all.
func (i *Inventory) ListCandidates(ctx context.Context) ([]Device, error) {
	disks, err := i.disks.ListExternalDisks(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list external disks: %w", ErrInventory, err)
	}

	var devices []Device
	for _, d := range disks {
		// Entries without an identifier cannot be addressed; skip them.
		if d.DeviceIdentifier == "" {
			continue
		}
		if !isCandidate(d) {
			i.logger.DebugContext(ctx, "skipping disk", "device", d.DeviceIdentifier)
			continue
		}
		devices = append(devices, Device{
			Path:      platform.DevicePath(d.DeviceIdentifier),
			Label:     resolveLabel(d.Partitions),
			Size:      d.Size,
			Content:   contentOrUnknown(d.Content),
			Removable: d.Removable,
			Ejectable: d.Ejectable,
		})
	}
	return devices, nil
}

// GetCandidate describes one device by path. Unlike ListCandidates, an
// empty volume name is reported as UntitledLabel.
func (i *Inventory) GetCandidate(ctx context.Context, path string) (Device, error) {
	info, err := i.disks.DiskInfo(ctx, path)
	if err != nil {
		return Device{}, fmt.Errorf("%w: query %s: %w", ErrInventory, path, err)
	}
	if info.DeviceIdentifier == "" {
		return Device{}, fmt.Errorf("%w: no such device %s", ErrInventory, path)
	}

	label := info.VolumeName
	if label == "" {
		label = UntitledLabel
	}
	return Device{
		Path:      platform.DevicePath(info.DeviceIdentifier),
		Label:     label,
		Size:      info.Size,
		Content:   contentOrUnknown(info.Content),
		Removable: info.Removable,
		Ejectable: info.Ejectable,
	}, nil
}

// isCandidate accepts disks flagged removable or ejectable, and also any
// disk exposing partitions, since some card readers report neither flag.
func isCandidate(d platform.Disk) bool {
	mounted := lo.SomeBy(d.Partitions, func(p platform.Partition) bool { return p.MountPoint != "" })
	return d.Removable || d.Ejectable || mounted || len(d.Partitions) > 0
}

// resolveLabel picks the first non-empty partition volume name, falling
// back to the directory name of a mounted partition.
func resolveLabel(parts []platform.Partition) string {
	if p, ok := lo.Find(parts, func(p platform.Partition) bool { return p.VolumeName != "" }); ok {
		return p.VolumeName
	}
	if p, ok := lo.Find(parts, func(p platform.Partition) bool { return p.MountPoint != "" }); ok {
		return filepath.Base(p.MountPoint)
	}
	return ""
}

func contentOrUnknown(content string) string {
	if content == "" {
		return UnknownContent
	}
	return content
}
