package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/partition/gpt"
	"github.com/diskfs/go-diskfs/partition/mbr"
	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v3/disk"
)

const (
	lsblkColumns = "NAME,SIZE,TYPE,FSTYPE,PTTYPE,LABEL,MOUNTPOINT,RM,HOTPLUG,TRAN"
	unusedGUID   = "00000000-0000-0000-0000-000000000000"
)

// Mount points that mark a disk as the running system's own storage.
var systemMountPoints = map[string]bool{
	"/":         true,
	"/boot":     true,
	"/boot/efi": true,
	"/usr":      true,
	"/var":      true,
	"/home":     true,
	"[SWAP]":    true,
}

// Lsblk is the Linux backend. Disks are listed with lsblk(8), partition
// tables are read straight from the device and mounts come from the
// kernel mount table.
type Lsblk struct {
	runner Runner
	logger *slog.Logger

	// mounts and openTable are replaceable in tests.
	mounts    func(ctx context.Context) ([]disk.PartitionStat, error)
	openTable func(path string) ([]Partition, error)
}

// NewLsblk creates the lsblk-backed DiskManager.
func NewLsblk(runner Runner, logger *slog.Logger) *Lsblk {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lsblk{
		runner: runner,
		logger: logger,
		mounts: func(ctx context.Context) ([]disk.PartitionStat, error) {
			return disk.PartitionsWithContext(ctx, true)
		},
		openTable: readPartitionTable,
	}
}

// flexBool accepts the bool, number and string encodings used by
// different lsblk releases.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	switch s {
	case "true", "1":
		*b = true
	case "false", "0", "null", "":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}

// flexSize accepts sizes encoded either as numbers or as strings.
type flexSize uint64

func (s *flexSize) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)
	if str == "null" || str == "" {
		*s = 0
		return nil
	}
	n, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid size %s: %w", data, err)
	}
	*s = flexSize(n)
	return nil
}

type lsblkDevice struct {
	Name       string        `json:"name"`
	Size       flexSize      `json:"size"`
	Type       string        `json:"type"`
	FSType     string        `json:"fstype"`
	PTType     string        `json:"pttype"`
	Label      string        `json:"label"`
	MountPoint string        `json:"mountpoint"`
	RM         flexBool      `json:"rm"`
	Hotplug    flexBool      `json:"hotplug"`
	Tran       string        `json:"tran"`
	Children   []lsblkDevice `json:"children"`
}

type lsblkOutput struct {
	BlockDevices []lsblkDevice `json:"blockdevices"`
}

func (d lsblkDevice) content() string {
	if d.FSType != "" {
		return d.FSType
	}
	return d.PTType
}

// external reports whether a whole disk is attached through a
// removable or hot-pluggable transport and is not hosting the system.
func (d lsblkDevice) external() bool {
	if d.Type != "disk" {
		return false
	}
	if d.hostsSystem() {
		return false
	}
	return bool(d.RM) || bool(d.Hotplug) || d.Tran == "usb" || d.Tran == "mmc"
}

// hostsSystem reports whether the device or any node stacked on it,
// such as an LVM volume or dm-crypt mapping, carries a system mount.
func (d lsblkDevice) hostsSystem() bool {
	return systemMountPoints[d.MountPoint] ||
		lo.SomeBy(d.Children, func(c lsblkDevice) bool { return c.hostsSystem() })
}

func (l *Lsblk) query(ctx context.Context, args ...string) (lsblkOutput, error) {
	var out lsblkOutput
	base := []string{"--json", "--bytes", "--output", lsblkColumns}
	data, err := l.runner.Output(ctx, "lsblk", append(base, args...)...)
	if err != nil {
		return out, err
	}
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&out); err != nil {
		return out, fmt.Errorf("decode lsblk output: %w", err)
	}
	return out, nil
}

func (l *Lsblk) ListExternalDisks(ctx context.Context) ([]Disk, error) {
	// lsblk cannot filter by transport itself, so internal media is dropped
	// here before any caller sees it.
	out, err := l.query(ctx, "--exclude", "1,7,11")
	if err != nil {
		return nil, err
	}

	var disks []Disk
	for _, dev := range out.BlockDevices {
		if !dev.external() {
			l.logger.DebugContext(ctx, "skipping internal block device", "name", dev.Name, "type", dev.Type)
			continue
		}
		disks = append(disks, Disk{
			DeviceIdentifier: dev.Name,
			Size:             uint64(dev.Size),
			Content:          dev.content(),
			Removable:        bool(dev.RM),
			Ejectable:        bool(dev.Hotplug),
			Partitions:       lo.FilterMap(dev.Children, toLsblkPartition),
		})
	}
	return disks, nil
}

func (l *Lsblk) DiskInfo(ctx context.Context, path string) (Info, error) {
	out, err := l.query(ctx, "--nodeps", path)
	if err != nil {
		return Info{}, err
	}
	if len(out.BlockDevices) == 0 {
		return Info{}, nil
	}

	dev := out.BlockDevices[0]
	return Info{
		DeviceIdentifier: dev.Name,
		Size:             uint64(dev.Size),
		Content:          dev.content(),
		VolumeName:       dev.Label,
		MountPoint:       dev.MountPoint,
		Removable:        bool(dev.RM),
		Ejectable:        bool(dev.Hotplug),
	}, nil
}

// Partitions prefers the kernel's view from lsblk, which carries real
// partition names and filesystem types. The on-disk table is read only
// when the kernel reports no partitions, e.g. before it re-reads the
// table of a freshly written card.
func (l *Lsblk) Partitions(ctx context.Context, path string) ([]Partition, error) {
	out, err := l.query(ctx, path)
	if err != nil {
		l.logger.DebugContext(ctx, "lsblk partition query failed", "device", path, "error", err)
	} else if parts := childPartitions(out); len(parts) > 0 {
		return parts, nil
	}

	l.logger.DebugContext(ctx, "reading partition table", "device", path)
	return l.openTable(path)
}

func childPartitions(out lsblkOutput) []Partition {
	var parts []Partition
	for _, dev := range out.BlockDevices {
		parts = append(parts, lo.FilterMap(dev.Children, toLsblkPartition)...)
	}
	return parts
}

func toLsblkPartition(c lsblkDevice, _ int) (Partition, bool) {
	return Partition{
		DeviceIdentifier: c.Name,
		Size:             uint64(c.Size),
		Content:          c.content(),
		VolumeName:       c.Label,
		MountPoint:       c.MountPoint,
	}, c.Type == "part"
}

// UnmountDisk unmounts every mounted partition of the disk, and the disk
// itself when it carries a filesystem without a partition table.
func (l *Lsblk) UnmountDisk(ctx context.Context, path string) error {
	mounts, err := l.mounts(ctx)
	if err != nil {
		return fmt.Errorf("read mount table: %w", err)
	}

	for _, m := range mounts {
		if m.Device != path && !onDisk(m.Device, path) {
			continue
		}
		if _, err := l.runner.Output(ctx, "umount", m.Mountpoint); err != nil {
			return err
		}
	}
	return nil
}

func (l *Lsblk) Mount(ctx context.Context, path string) error {
	_, err := l.runner.Output(ctx, "udisksctl", "mount", "--no-user-interaction", "--block-device", path)
	return err
}

func (l *Lsblk) Eject(ctx context.Context, path string) error {
	_, err := l.runner.Output(ctx, "eject", path)
	return err
}

// RawDevicePath is the identity on Linux, which has no unbuffered block
// node; Copy flushes with conv=fsync instead.
func (l *Lsblk) RawDevicePath(path string) string {
	return path
}

func (l *Lsblk) Copy(ctx context.Context, imagePath, devicePath string, progress io.Writer) error {
	args := []string{"if=" + imagePath, "of=" + devicePath, "bs=1M", "conv=fsync"}
	if progress != nil {
		args = append(args, "status=progress")
	}
	return l.runner.Stream(ctx, progress, progress, "dd", args...)
}

// onDisk reports whether partition device part lives on disk, e.g.
// /dev/sdb1 on /dev/sdb or /dev/mmcblk0p2 on /dev/mmcblk0.
func onDisk(part, whole string) bool {
	if !strings.HasPrefix(part, whole) || part == whole {
		return false
	}
	suffix := strings.TrimPrefix(strings.TrimPrefix(part, whole), "p")
	_, err := strconv.Atoi(suffix)
	return err == nil
}

// partitionName builds the kernel name of partition index on disk.
func partitionName(whole string, index int) string {
	if strings.HasPrefix(whole, "mmcblk") || strings.HasPrefix(whole, "nvme") || strings.HasPrefix(whole, "loop") {
		return fmt.Sprintf("%sp%d", whole, index)
	}
	return fmt.Sprintf("%s%d", whole, index)
}

func readPartitionTable(path string) ([]Partition, error) {
	d, err := diskfs.Open(path, diskfs.WithOpenMode(diskfs.ReadOnly))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer d.Close()

	table, err := d.GetPartitionTable()
	if err != nil {
		return nil, fmt.Errorf("read partition table of %s: %w", path, err)
	}

	name := filepath.Base(path)
	var parts []Partition
	for i, p := range table.GetPartitions() {
		var content, label string
		switch tp := p.(type) {
		case *mbr.Partition:
			if byte(tp.Type) == 0 {
				continue
			}
			content = mbrContent(byte(tp.Type))
		case *gpt.Partition:
			if string(tp.Type) == unusedGUID {
				continue
			}
			content = gptContent(string(tp.Type))
			label = tp.Name
		default:
			continue
		}
		// Table slots map one to one onto kernel partition numbers.
		parts = append(parts, Partition{
			DeviceIdentifier: partitionName(name, i+1),
			Size:             uint64(p.GetSize()),
			Content:          content,
			VolumeName:       label,
		})
	}
	return parts, nil
}

// mbrContent maps MBR type codes onto the content tags diskutil reports.
func mbrContent(code byte) string {
	switch code {
	case 0x0b, 0x0c:
		return "Windows_FAT_32"
	case 0x04, 0x06, 0x0e:
		return "Windows_FAT_16"
	case 0x01:
		return "DOS_FAT_12"
	case 0x07:
		return "Windows_NTFS"
	case 0x82:
		return "Linux_Swap"
	case 0x83:
		return "Linux"
	case 0xef:
		return "EFI"
	default:
		return fmt.Sprintf("0x%02X", code)
	}
}

func gptContent(guid string) string {
	switch strings.ToUpper(guid) {
	case "C12A7328-F81F-11D2-BA4B-00A0C93EC93B":
		return "EFI"
	case "EBD0A0A2-B9E5-4433-87C0-68B6B72699C7":
		return "Microsoft Basic Data"
	case "0FC63DAF-8483-4772-8E79-3D69D8477DE4":
		return "Linux Filesystem"
	default:
		return guid
	}
}
