package imaging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gajzzs/rpiburn/internal/platform"
)

// Writer copies disk images onto block devices.
type Writer struct {
	disks  platform.DiskManager
	logger *slog.Logger
	sync   func()
}

// NewWriter creates a writer that drives the given disk manager.
func NewWriter(disks platform.DiskManager, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{disks: disks, logger: logger, sync: syncFilesystems}
}

// Unmount unmounts every volume on the device. The device stays attached.
func (w *Writer) Unmount(ctx context.Context, device string) error {
	w.logger.InfoContext(ctx, "unmounting device", "device", device)
	if err := w.disks.UnmountDisk(ctx, device); err != nil {
		return fmt.Errorf("%w: unmount %s: %w", ErrWrite, device, err)
	}
	return nil
}

// WriteImage copies image onto the raw node of device. Copy progress is
// streamed to progress when it is non-nil. The image is checked before any
// external command runs.
func (w *Writer) WriteImage(ctx context.Context, image, device string, progress io.Writer) error {
	if err := CheckImage(image); err != nil {
		return err
	}

	raw := w.disks.RawDevicePath(device)
	w.logger.InfoContext(ctx, "writing image", "image", image, "device", raw)
	if err := w.disks.Copy(ctx, image, raw, progress); err != nil {
		return fmt.Errorf("%w: copy %s to %s: %w", ErrWrite, image, raw, err)
	}

	w.sync()
	w.logger.InfoContext(ctx, "image written", "device", raw)
	return nil
}

// Eject detaches the device from the host.
func (w *Writer) Eject(ctx context.Context, device string) error {
	w.logger.InfoContext(ctx, "ejecting device", "device", device)
	if err := w.disks.Eject(ctx, device); err != nil {
		return fmt.Errorf("%w: eject %s: %w", ErrWrite, device, err)
	}
	return nil
}

// CheckImage verifies that image names a non-empty regular file.
func CheckImage(image string) error {
	st, err := os.Stat(image)
	if err != nil {
		return fmt.Errorf("%w: image %s: %w", ErrWrite, image, err)
	}
	if !st.Mode().IsRegular() {
		return fmt.Errorf("%w: image %s is not a regular file", ErrWrite, image)
	}
	if st.Size() == 0 {
		return fmt.Errorf("%w: image %s is empty", ErrWrite, image)
	}
	return nil
}
