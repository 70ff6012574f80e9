//go:build unix

package imaging

import "golang.org/x/sys/unix"

// syncFilesystems flushes kernel buffers so the card can be pulled safely.
func syncFilesystems() {
	unix.Sync()
}
