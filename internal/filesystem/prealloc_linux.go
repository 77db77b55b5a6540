//go:build linux

package filesystem

import (
	"os"

	"golang.org/x/sys/unix"
)

func preallocate(f *os.File, length int64) error {
	if err := unix.Fallocate(int(f.Fd()), 0, 0, length); err == nil {
		return nil
	}
	// Filesystems without fallocate support (NFS, some FUSE mounts)
	return f.Truncate(length)
}
