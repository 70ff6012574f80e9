package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gajzzs/rpiburn/internal/cloudinit"
	"github.com/gajzzs/rpiburn/internal/device"
	"github.com/gajzzs/rpiburn/internal/imaging"
	"github.com/gajzzs/rpiburn/internal/platform"
	"github.com/gajzzs/rpiburn/internal/platform/platformtest"
)

func run(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func twoCards() *platformtest.DiskManager {
	fake := platformtest.New()
	fake.Disks = []platform.Disk{
		{DeviceIdentifier: "disk4", Size: 32_000_000_000, Content: "FDisk_partition_scheme", Removable: true, Partitions: []platform.Partition{{VolumeName: "bootfs"}}},
		{DeviceIdentifier: "disk5", Size: 16_000_000_000, Removable: true},
	}
	return fake
}

func testImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raspios.img")
	require.NoError(t, os.WriteFile(path, []byte("image"), 0644))
	return path
}

func TestListTable(t *testing.T) {
	out, err := run(t, New(twoCards(), nil).NewListCommand(), "")
	require.NoError(t, err)

	assert.Contains(t, out, "DEVICE")
	assert.Contains(t, out, "/dev/disk4")
	assert.Contains(t, out, "bootfs")
	assert.Contains(t, out, "29.80 GB")
	assert.Contains(t, out, device.UntitledLabel, "unlabelled disk gets the placeholder in the table")
}

func TestListJSONKeepsEmptyLabel(t *testing.T) {
	out, err := run(t, New(twoCards(), nil).NewListCommand(), "", "--output", "json")
	require.NoError(t, err)

	var devices []device.Device
	require.NoError(t, json.Unmarshal([]byte(out), &devices))
	require.Len(t, devices, 2)
	assert.Equal(t, "bootfs", devices[0].Label)
	assert.Equal(t, "", devices[1].Label)
}

func TestListEmpty(t *testing.T) {
	out, err := run(t, New(platformtest.New(), nil).NewListCommand(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "No removable disks found.")

	out, err = run(t, New(platformtest.New(), nil).NewListCommand(), "", "-o", "yaml")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestListUnknownFormat(t *testing.T) {
	_, err := run(t, New(twoCards(), nil).NewListCommand(), "", "-o", "xml")
	require.Error(t, err)
}

func TestInfo(t *testing.T) {
	fake := platformtest.New()
	fake.Infos["/dev/disk4"] = platform.Info{DeviceIdentifier: "disk4", Size: 32_000_000_000, Removable: true}

	out, err := run(t, New(fake, nil).NewInfoCommand(), "", "/dev/disk4", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "label: Untitled")
	assert.Contains(t, out, "path: /dev/disk4")

	out, err = run(t, New(fake, nil).NewInfoCommand(), "", "/dev/disk4")
	require.NoError(t, err)
	assert.Contains(t, out, "29.8 GB")
}

func TestBurnSingleDiskConfirmed(t *testing.T) {
	fake := platformtest.New()
	fake.Disks = twoCards().Disks[:1]
	image := testImage(t)

	out, err := run(t, New(fake, nil).NewBurnCommand(), "", image, "--confirm", "--no-progress")
	require.NoError(t, err)

	assert.Contains(t, out, "Using single disk: bootfs (/dev/disk4)")
	assert.Contains(t, out, "Done! SD card is ready.")
	assert.Equal(t, []string{
		"list",
		"unmount /dev/disk4",
		"copy " + image + " /dev/rdisk4",
		"eject /dev/disk4",
	}, fake.Calls)
}

func TestBurnPromptsForDiskAndConfirmation(t *testing.T) {
	fake := twoCards()
	image := testImage(t)

	out, err := run(t, New(fake, nil).NewBurnCommand(), "7\n2\nyes\n", image, "--no-eject")
	require.NoError(t, err)

	assert.Contains(t, out, "Invalid selection")
	assert.Contains(t, out, "Write complete.")
	assert.True(t, fake.Called("copy "+image+" /dev/rdisk5"))
	assert.False(t, fake.Called("eject"))
}

func TestBurnCancelled(t *testing.T) {
	fake := platformtest.New()
	fake.Infos["/dev/disk4"] = platform.Info{DeviceIdentifier: "disk4"}

	out, err := run(t, New(fake, nil).NewBurnCommand(), "no\n", testImage(t), "--disk", "/dev/disk4")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")
	assert.False(t, fake.Called("unmount"))
}

func TestBurnNoDisks(t *testing.T) {
	_, err := run(t, New(platformtest.New(), nil).NewBurnCommand(), "", testImage(t), "--confirm")
	require.ErrorIs(t, err, ErrNoDevices)
}

func TestBurnChecksInputsBeforeTouchingDisks(t *testing.T) {
	t.Run("MissingImage", func(t *testing.T) {
		fake := twoCards()
		_, err := run(t, New(fake, nil).NewBurnCommand(), "", filepath.Join(t.TempDir(), "nope.img"), "--confirm")
		require.ErrorIs(t, err, imaging.ErrWrite)
		assert.Empty(t, fake.Calls)
	})

	t.Run("MissingCloudInit", func(t *testing.T) {
		fake := twoCards()
		_, err := run(t, New(fake, nil).NewBurnCommand(), "", testImage(t), "--confirm",
			"--cloud-init", filepath.Join(t.TempDir(), "user-data.yaml"))
		require.ErrorIs(t, err, cloudinit.ErrConfigNotFound)
		assert.Empty(t, fake.Calls)
	})

	t.Run("MetaDataWithoutUserData", func(t *testing.T) {
		fake := twoCards()
		_, err := run(t, New(fake, nil).NewBurnCommand(), "", testImage(t), "--confirm", "--meta-data", "meta.yaml")
		require.Error(t, err)
		assert.Empty(t, fake.Calls)
	})
}

func TestBurnWithCloudInit(t *testing.T) {
	mount := t.TempDir()
	fake := platformtest.New()
	fake.Infos["/dev/disk4"] = platform.Info{DeviceIdentifier: "disk4"}
	fake.Infos["/dev/disk4s1"] = platform.Info{DeviceIdentifier: "disk4s1", MountPoint: mount}
	fake.Parts["/dev/disk4"] = []platform.Partition{{DeviceIdentifier: "disk4s1", Content: "Windows_FAT_32"}}

	userData := filepath.Join(t.TempDir(), "user-data.yaml")
	require.NoError(t, os.WriteFile(userData, []byte("hostname: pi\n"), 0644))

	out, err := run(t, New(fake, nil).NewBurnCommand(), "yes\n", testImage(t), "-d", "/dev/disk4", "--cloud-init", userData)
	require.NoError(t, err)
	assert.Contains(t, out, "Cloud-init files written to "+mount)

	got, err := os.ReadFile(filepath.Join(mount, cloudinit.UserDataFile))
	require.NoError(t, err)
	assert.Equal(t, "#cloud-config\nhostname: pi\n", string(got))
}

func TestCloudInitCommand(t *testing.T) {
	mount := t.TempDir()
	dir := t.TempDir()
	userData := filepath.Join(dir, "user-data.yaml")
	metaData := filepath.Join(dir, "meta-data.yaml")
	require.NoError(t, os.WriteFile(userData, []byte("hostname: pi\n"), 0644))
	require.NoError(t, os.WriteFile(metaData, []byte("instance-id: pi\n"), 0644))

	_, err := run(t, New(platformtest.New(), nil).NewCloudInitCommand(), "", mount, userData, "--meta-data", metaData)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(mount, cloudinit.UserDataFile))
	assert.FileExists(t, filepath.Join(mount, cloudinit.MetaDataFile))

	_, err = run(t, New(platformtest.New(), nil).NewCloudInitCommand(), "", filepath.Join(mount, "absent"), userData)
	require.ErrorIs(t, err, cloudinit.ErrConfig)
}

func TestDoctor(t *testing.T) {
	if len(platform.RequiredTools(runtime.GOOS)) == 0 {
		t.Skip("no disk backend on " + runtime.GOOS)
	}

	a := New(platformtest.New(), nil)
	a.geteuid = func() int { return 0 }
	a.missingTools = func() []string { return nil }
	out, err := run(t, a.NewDoctorCommand(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "dd")
	assert.NotContains(t, out, "MISSING")

	a.geteuid = func() int { return 501 }
	a.missingTools = func() []string { return []string{"dd"} }
	out, err = run(t, a.NewDoctorCommand(), "")
	require.Error(t, err)
	assert.Contains(t, out, "MISSING")
	assert.Contains(t, out, "needs sudo")
}
