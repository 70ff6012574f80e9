package imaging

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gajzzs/rpiburn/internal/platform/platformtest"
)

func newTestWriter(fake *platformtest.DiskManager) (*Writer, *int) {
	w := NewWriter(fake, nil)
	synced := 0
	w.sync = func() { synced++ }
	return w, &synced
}

func writeImage(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raspios.img")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestWriteImage(t *testing.T) {
	fake := platformtest.New()
	w, synced := newTestWriter(fake)
	image := writeImage(t, "boot sector")

	var progress bytes.Buffer
	require.NoError(t, w.WriteImage(context.Background(), image, "/dev/disk4", &progress))

	assert.Equal(t, []string{"copy " + image + " /dev/rdisk4"}, fake.Calls)
	assert.Equal(t, "copied\n", progress.String())
	assert.Equal(t, 1, *synced)
}

func TestWriteImageRejectsBadImages(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.img")
	require.NoError(t, os.WriteFile(empty, nil, 0644))

	tests := []struct {
		name  string
		image string
	}{
		{"missing", filepath.Join(dir, "nope.img")},
		{"directory", dir},
		{"empty", empty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := platformtest.New()
			w, synced := newTestWriter(fake)

			err := w.WriteImage(context.Background(), tt.image, "/dev/disk4", nil)
			require.ErrorIs(t, err, ErrWrite)
			assert.Empty(t, fake.Calls, "no OS command may run for a bad image")
			assert.Zero(t, *synced)
		})
	}
}

func TestWriteImageCopyFailure(t *testing.T) {
	fake := platformtest.New()
	fake.CopyErr = errors.New("dd: /dev/rdisk4: Resource busy")
	w, synced := newTestWriter(fake)

	err := w.WriteImage(context.Background(), writeImage(t, "x"), "/dev/disk4", nil)
	require.ErrorIs(t, err, ErrWrite)
	assert.Contains(t, err.Error(), "Resource busy")
	assert.Zero(t, *synced)
}

func TestUnmountAndEject(t *testing.T) {
	fake := platformtest.New()
	w, _ := newTestWriter(fake)
	ctx := context.Background()

	require.NoError(t, w.Unmount(ctx, "/dev/disk4"))
	require.NoError(t, w.Eject(ctx, "/dev/disk4"))
	assert.Equal(t, []string{"unmount /dev/disk4", "eject /dev/disk4"}, fake.Calls)

	fake.UnmountErr = errors.New("Unmount of disk4 failed: at least one volume could not be unmounted")
	fake.EjectErr = errors.New("eject failed")

	err := w.Unmount(ctx, "/dev/disk4")
	require.ErrorIs(t, err, ErrWrite)
	assert.Contains(t, err.Error(), "could not be unmounted")
	require.ErrorIs(t, w.Eject(ctx, "/dev/disk4"), ErrWrite)
}
