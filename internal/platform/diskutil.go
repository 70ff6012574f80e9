package platform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/samber/lo"
	"howett.net/plist"
)

// Diskutil is the macOS backend. It shells out to diskutil(8) and dd(1).
type Diskutil struct {
	runner Runner
	logger *slog.Logger
}

// NewDiskutil creates the diskutil-backed DiskManager.
func NewDiskutil(runner Runner, logger *slog.Logger) *Diskutil {
	if logger == nil {
		logger = slog.Default()
	}
	return &Diskutil{runner: runner, logger: logger}
}

type diskutilDisk struct {
	DeviceIdentifier string `plist:"DeviceIdentifier"`
	Size             uint64 `plist:"Size"`
	Content          string `plist:"Content"`
	Removable        bool   `plist:"Removable"`
	Ejectable        bool   `plist:"Ejectable"`
}

type diskutilPartition struct {
	DeviceIdentifier string `plist:"DeviceIdentifier"`
	Size             uint64 `plist:"Size"`
	Content          string `plist:"Content"`
	VolumeName       string `plist:"VolumeName"`
	MountPoint       string `plist:"MountPoint"`
}

// diskutilEntry is one AllDisksAndPartitions item. Whole-disk fields are
// either flat on the entry or nested under "Disk".
type diskutilEntry struct {
	Disk             diskutilDisk        `plist:"Disk"`
	DeviceIdentifier string              `plist:"DeviceIdentifier"`
	Size             uint64              `plist:"Size"`
	Content          string              `plist:"Content"`
	Removable        bool                `plist:"Removable"`
	Ejectable        bool                `plist:"Ejectable"`
	Partitions       []diskutilPartition `plist:"Partitions"`
}

type diskutilList struct {
	AllDisksAndPartitions []diskutilEntry `plist:"AllDisksAndPartitions"`
}

type diskutilInfo struct {
	DeviceIdentifier string `plist:"DeviceIdentifier"`
	Size             uint64 `plist:"Size"`
	Content          string `plist:"Content"`
	VolumeName       string `plist:"VolumeName"`
	MountPoint       string `plist:"MountPoint"`
	Removable        bool   `plist:"Removable"`
	Ejectable        bool   `plist:"Ejectable"`
}

func (e diskutilEntry) disk() diskutilDisk {
	if e.Disk.DeviceIdentifier != "" {
		return e.Disk
	}
	return diskutilDisk{
		DeviceIdentifier: e.DeviceIdentifier,
		Size:             e.Size,
		Content:          e.Content,
		Removable:        e.Removable,
		Ejectable:        e.Ejectable,
	}
}

func toPartition(p diskutilPartition, _ int) Partition {
	return Partition{
		DeviceIdentifier: p.DeviceIdentifier,
		Size:             p.Size,
		Content:          p.Content,
		VolumeName:       p.VolumeName,
		MountPoint:       p.MountPoint,
	}
}

func (d *Diskutil) list(ctx context.Context, args ...string) (diskutilList, error) {
	var out diskutilList
	data, err := d.runner.Output(ctx, "diskutil", append([]string{"list", "-plist"}, args...)...)
	if err != nil {
		return out, err
	}
	if _, err := plist.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode diskutil list: %w", err)
	}
	return out, nil
}

func (d *Diskutil) ListExternalDisks(ctx context.Context) ([]Disk, error) {
	// Restricting the query to external physical media keeps internal disks
	// out of the candidate set entirely.
	out, err := d.list(ctx, "external", "physical")
	if err != nil {
		return nil, err
	}

	disks := make([]Disk, 0, len(out.AllDisksAndPartitions))
	for _, entry := range out.AllDisksAndPartitions {
		whole := entry.disk()
		disks = append(disks, Disk{
			DeviceIdentifier: whole.DeviceIdentifier,
			Size:             whole.Size,
			Content:          whole.Content,
			Removable:        whole.Removable,
			Ejectable:        whole.Ejectable,
			Partitions:       lo.Map(entry.Partitions, toPartition),
		})
	}
	return disks, nil
}

func (d *Diskutil) DiskInfo(ctx context.Context, path string) (Info, error) {
	data, err := d.runner.Output(ctx, "diskutil", "info", "-plist", path)
	if err != nil {
		return Info{}, err
	}

	var info diskutilInfo
	if _, err := plist.Unmarshal(data, &info); err != nil {
		return Info{}, fmt.Errorf("decode diskutil info %s: %w", path, err)
	}
	return Info(info), nil
}

func (d *Diskutil) Partitions(ctx context.Context, path string) ([]Partition, error) {
	out, err := d.list(ctx, path)
	if err != nil {
		return nil, err
	}

	var parts []Partition
	for _, entry := range out.AllDisksAndPartitions {
		parts = append(parts, lo.Map(entry.Partitions, toPartition)...)
	}
	return parts, nil
}

func (d *Diskutil) UnmountDisk(ctx context.Context, path string) error {
	_, err := d.runner.Output(ctx, "diskutil", "unmountDisk", path)
	return err
}

func (d *Diskutil) Mount(ctx context.Context, path string) error {
	_, err := d.runner.Output(ctx, "diskutil", "mount", path)
	return err
}

func (d *Diskutil) Eject(ctx context.Context, path string) error {
	_, err := d.runner.Output(ctx, "diskutil", "eject", path)
	return err
}

// RawDevicePath maps /dev/diskN to the unbuffered /dev/rdiskN node.
func (d *Diskutil) RawDevicePath(path string) string {
	if strings.HasPrefix(path, "/dev/r") {
		return path
	}
	return strings.Replace(path, "/dev/disk", "/dev/rdisk", 1)
}

func (d *Diskutil) Copy(ctx context.Context, imagePath, devicePath string, progress io.Writer) error {
	args := []string{"if=" + imagePath, "of=" + devicePath, "bs=1m"}
	if progress != nil {
		args = append(args, "status=progress")
	}
	return d.runner.Stream(ctx, progress, progress, "dd", args...)
}
