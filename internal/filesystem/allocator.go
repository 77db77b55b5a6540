// Package filesystem handles disk-space checks and file pre-allocation for
// download targets.
package filesystem

import (
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
)

// Allocator reserves space for download targets and answers free-space queries.
type Allocator struct{}

func NewAllocator() *Allocator {
	return &Allocator{}
}

// Free returns the free bytes on the volume holding dir. If dir does not
// exist yet, the nearest existing parent is measured instead.
func (a *Allocator) Free(dir string) (uint64, error) {
	probe := dir
	for {
		usage, err := disk.Usage(probe)
		if err == nil {
			return usage.Free, nil
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			return 0, err
		}
		probe = parent
	}
}

// Reserve pre-allocates length bytes for the open file. On Linux this is a
// real fallocate, so writers never fail late with a full disk; elsewhere it
// falls back to truncate.
func (a *Allocator) Reserve(f *os.File, length int64) error {
	if length <= 0 {
		return nil
	}
	return preallocate(f, length)
}
