// Package platformtest provides an in-memory platform.DiskManager for tests.
package platformtest

import (
	"context"
	"io"
	"strings"

	"github.com/gajzzs/rpiburn/internal/platform"
)

// DiskManager is a scripted platform.DiskManager. Zero-valued fields
// produce empty successful results. Every call is recorded in Calls.
type DiskManager struct {
	Disks    []platform.Disk
	ListErr  error
	Infos    map[string]platform.Info
	InfoErrs map[string]error
	Parts    map[string][]platform.Partition
	PartsErr error

	UnmountErr error
	MountErr   error
	EjectErr   error
	CopyErr    error
	// OnMount runs when Mount is called, e.g. to simulate the OS
	// assigning a mount point.
	OnMount func(path string)

	Calls []string
}

var _ platform.DiskManager = (*DiskManager)(nil)

// New returns an empty fake.
func New() *DiskManager {
	return &DiskManager{
		Infos:    map[string]platform.Info{},
		InfoErrs: map[string]error{},
		Parts:    map[string][]platform.Partition{},
	}
}

func (f *DiskManager) record(parts ...string) {
	f.Calls = append(f.Calls, strings.Join(parts, " "))
}

// Called reports whether a call whose description starts with prefix was made.
func (f *DiskManager) Called(prefix string) bool {
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (f *DiskManager) ListExternalDisks(context.Context) ([]platform.Disk, error) {
	f.record("list")
	return f.Disks, f.ListErr
}

func (f *DiskManager) DiskInfo(_ context.Context, path string) (platform.Info, error) {
	f.record("info", path)
	return f.Infos[path], f.InfoErrs[path]
}

func (f *DiskManager) Partitions(_ context.Context, path string) ([]platform.Partition, error) {
	f.record("partitions", path)
	return f.Parts[path], f.PartsErr
}

func (f *DiskManager) UnmountDisk(_ context.Context, path string) error {
	f.record("unmount", path)
	return f.UnmountErr
}

func (f *DiskManager) Mount(_ context.Context, path string) error {
	f.record("mount", path)
	if f.OnMount != nil {
		f.OnMount(path)
	}
	return f.MountErr
}

func (f *DiskManager) Eject(_ context.Context, path string) error {
	f.record("eject", path)
	return f.EjectErr
}

// RawDevicePath applies the diskutil convention so tests can observe the rewrite.
func (f *DiskManager) RawDevicePath(path string) string {
	return strings.Replace(path, "/dev/disk", "/dev/rdisk", 1)
}

func (f *DiskManager) Copy(_ context.Context, imagePath, devicePath string, progress io.Writer) error {
	f.record("copy", imagePath, devicePath)
	if progress != nil && f.CopyErr == nil {
		_, _ = io.WriteString(progress, "copied\n")
	}
	return f.CopyErr
}
