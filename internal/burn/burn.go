// Package burn runs the full imaging pipeline: unmount, write, inject
// cloud-init files into the boot partition, and eject.
package burn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/gajzzs/rpiburn/internal/cloudinit"
	"github.com/gajzzs/rpiburn/internal/imaging"
	"github.com/gajzzs/rpiburn/internal/partition"
	"github.com/gajzzs/rpiburn/internal/platform"
)

// ErrNoBootPartition is recorded when the written device has no FAT partition.
var ErrNoBootPartition = errors.New("no FAT boot partition found")

// Reporter receives user-facing progress from a burn. Implementations
// belong to the presentation layer.
type Reporter interface {
	Step(msg string)
	Warn(msg string, err error)
	// Progress returns the writer for raw copy progress, or nil to
	// suppress it.
	Progress() io.Writer
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) Step(string)         {}
func (NopReporter) Warn(string, error)  {}
func (NopReporter) Progress() io.Writer { return nil }

// Request describes one burn. Device must already be chosen by the caller.
type Request struct {
	Image  string
	Device string
	// UserData and MetaData are canonical documents from the cloudinit
	// package. Injection is skipped when UserData is empty.
	UserData []byte
	MetaData []byte
	Eject    bool
}

// Result reports what a completed burn did.
type Result struct {
	Device        string
	BootPartition string
	MountPoint    string
	Injected      bool
	// InjectErr is set when the image was written but injection failed.
	// The burn itself still counts as successful.
	InjectErr error
	Ejected   bool
}

// Burner wires the imaging, partition and cloudinit steps together.
type Burner struct {
	writer  *imaging.Writer
	locator *partition.Locator
	logger  *slog.Logger
}

// NewBurner creates a burner over the given disk manager.
func NewBurner(disks platform.DiskManager, logger *slog.Logger) *Burner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Burner{
		writer:  imaging.NewWriter(disks, logger),
		locator: partition.NewLocator(disks, logger),
		logger:  logger,
	}
}

// Burn writes req.Image to req.Device. Unmount and write failures are
// returned. Injection and eject failures are reported through r and the
// Result only, since the image is already on the card by then.
func (b *Burner) Burn(ctx context.Context, req Request, r Reporter) (Result, error) {
	if r == nil {
		r = NopReporter{}
	}
	res := Result{Device: req.Device}

	if err := imaging.CheckImage(req.Image); err != nil {
		return res, err
	}

	r.Step(fmt.Sprintf("Unmounting %s", req.Device))
	if err := b.writer.Unmount(ctx, req.Device); err != nil {
		return res, err
	}

	r.Step(fmt.Sprintf("Writing %s to %s", req.Image, req.Device))
	if err := b.writer.WriteImage(ctx, req.Image, req.Device, r.Progress()); err != nil {
		return res, err
	}

	if len(req.UserData) > 0 {
		res.InjectErr = b.inject(ctx, req, r, &res)
		if res.InjectErr != nil {
			r.Warn("cloud-init injection failed", res.InjectErr)
		} else {
			res.Injected = true
		}
	}

	if req.Eject {
		r.Step(fmt.Sprintf("Ejecting %s", req.Device))
		if err := b.writer.Eject(ctx, req.Device); err != nil {
			r.Warn("eject failed, remove the card manually after unmounting", err)
		} else {
			res.Ejected = true
		}
	}

	b.logger.InfoContext(ctx, "burn complete", "device", req.Device, "injected", res.Injected, "ejected", res.Ejected)
	return res, nil
}

func (b *Burner) inject(ctx context.Context, req Request, r Reporter, res *Result) error {
	r.Step("Locating boot partition")
	part, ok := b.locator.FindBootPartition(ctx, req.Device)
	if !ok {
		return fmt.Errorf("%w on %s", ErrNoBootPartition, req.Device)
	}
	res.BootPartition = part.Path

	mountPoint, err := b.locator.Mount(ctx, part)
	if err != nil {
		return err
	}
	res.MountPoint = mountPoint

	r.Step(fmt.Sprintf("Writing cloud-init files to %s", mountPoint))
	return cloudinit.Write(mountPoint, req.UserData, req.MetaData, b.logger)
}
