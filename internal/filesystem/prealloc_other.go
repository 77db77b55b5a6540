//go:build !linux

package filesystem

import "os"

func preallocate(f *os.File, length int64) error {
	return f.Truncate(length)
}
