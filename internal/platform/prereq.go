package platform

import (
	"os/exec"
	"runtime"

	"github.com/samber/lo"
)

// RequiredTools lists the external commands the disk backend for goos shells out to.
func RequiredTools(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"diskutil", "dd"}
	case "linux":
		return []string{"lsblk", "dd", "umount", "udisksctl", "eject"}
	default:
		return nil
	}
}

// MissingTools returns the required tools that are not on PATH.
func MissingTools() []string {
	return lo.Filter(RequiredTools(runtime.GOOS), func(tool string, _ int) bool {
		_, err := exec.LookPath(tool)
		return err != nil
	})
}
