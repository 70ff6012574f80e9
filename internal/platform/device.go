package platform

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// ErrUnsupported is returned by every operation on platforms without a disk backend.
var ErrUnsupported = errors.New("disk management is not supported on this platform")

// Disk is one whole-disk entry as reported by the OS disk listing.
type Disk struct {
	DeviceIdentifier string
	Size             uint64
	Content          string
	Removable        bool
	Ejectable        bool
	Partitions       []Partition
}

// Partition is one entry of a disk's partition table.
type Partition struct {
	DeviceIdentifier string
	Size             uint64
	Content          string
	VolumeName       string
	MountPoint       string
}

// Info is the OS description of a single disk or partition.
type Info struct {
	DeviceIdentifier string
	Size             uint64
	Content          string
	VolumeName       string
	MountPoint       string
	Removable        bool
	Ejectable        bool
}

// DiskManager wraps the host's disk-management facility.
type DiskManager interface {
	// ListExternalDisks lists external, physical disks only.
	ListExternalDisks(ctx context.Context) ([]Disk, error)
	// DiskInfo describes one disk or partition.
	DiskInfo(ctx context.Context, path string) (Info, error)
	// Partitions re-reads the partition table of a disk, in table order.
	Partitions(ctx context.Context, path string) ([]Partition, error)
	UnmountDisk(ctx context.Context, path string) error
	Mount(ctx context.Context, path string) error
	Eject(ctx context.Context, path string) error
	// RawDevicePath returns the unbuffered device node for a disk path.
	RawDevicePath(path string) string
	// Copy writes the image sequentially to the device node in 1 MiB blocks.
	// Progress is streamed to progress when it is non-nil.
	Copy(ctx context.Context, imagePath, devicePath string, progress io.Writer) error
}

// NewDiskManager creates the disk manager for the running platform.
func NewDiskManager(runner Runner, logger *slog.Logger) DiskManager {
	if logger == nil {
		logger = slog.Default()
	}
	return newDiskManager(runner, logger)
}

// DevicePath turns an OS device identifier such as "disk4" into its /dev path.
func DevicePath(identifier string) string {
	return "/dev/" + identifier
}
