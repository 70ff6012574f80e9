//go:build !darwin && !linux
// +build !darwin,!linux

package platform

import (
	"context"
	"io"
	"log/slog"
)

type unsupportedManager struct{}

func newDiskManager(Runner, *slog.Logger) DiskManager { return unsupportedManager{} }

func (unsupportedManager) ListExternalDisks(context.Context) ([]Disk, error) {
	return nil, ErrUnsupported
}
func (unsupportedManager) DiskInfo(context.Context, string) (Info, error) {
	return Info{}, ErrUnsupported
}
func (unsupportedManager) Partitions(context.Context, string) ([]Partition, error) {
	return nil, ErrUnsupported
}
func (unsupportedManager) UnmountDisk(context.Context, string) error { return ErrUnsupported }
func (unsupportedManager) Mount(context.Context, string) error       { return ErrUnsupported }
func (unsupportedManager) Eject(context.Context, string) error       { return ErrUnsupported }
func (unsupportedManager) RawDevicePath(path string) string          { return path }
func (unsupportedManager) Copy(context.Context, string, string, io.Writer) error {
	return ErrUnsupported
}
