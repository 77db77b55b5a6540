package download

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"drop-desktop/internal/filesystem"
	"drop-desktop/internal/remote"
)

const (
	// TargetBucketSize caps a grouped bucket's total byte size.
	TargetBucketSize = 63 * 1000 * 1000
	// MaxFilesPerBucket caps a grouped bucket's drop count.
	MaxFilesPerBucket = (1024 / 4) - 1
)

// DownloadDrop is one hashed byte range within one file, the atomic unit of
// download and retry.
type DownloadDrop struct {
	Filename    string // relative path, as the manifest names it
	Path        string // absolute target path
	Start       int64
	Length      int64
	Checksum    string
	Index       int
	Permissions uint32
}

// DownloadBucket is a bounded group of drops assigned to one worker.
type DownloadBucket struct {
	GameID  string
	Version string
	Drops   []DownloadDrop
}

// TotalLength sums the bucket's drop lengths.
func (b *DownloadBucket) TotalLength() int64 {
	var total int64
	for _, d := range b.Drops {
		total += d.Length
	}
	return total
}

// GenerateBuckets partitions a manifest into buckets, creating parent
// directories and reserving space for files that do not exist yet. Chunks at
// or above TargetBucketSize get singleton buckets; the rest accumulate per
// version until either bound would be exceeded.
func GenerateBuckets(manifest remote.Manifest, gameID, basePath string, alloc *filesystem.Allocator) ([]DownloadBucket, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, &IOError{Err: err}
	}

	// Deterministic bucket order regardless of map iteration
	paths := make([]string, 0, len(manifest))
	for p := range manifest {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var buckets []DownloadBucket
	currentBuckets := make(map[string]*DownloadBucket)
	currentSizes := make(map[string]int64)

	for _, rawPath := range paths {
		entry := manifest[rawPath]
		if len(entry.Lengths) != len(entry.Checksums) {
			return nil, &IOError{Err: fmt.Errorf("manifest entry %s: %d lengths but %d checksums",
				rawPath, len(entry.Lengths), len(entry.Checksums))}
		}

		path := filepath.Join(basePath, filepath.FromSlash(rawPath))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, &IOError{Err: err}
		}

		_, statErr := os.Stat(path)
		alreadyExists := statErr == nil

		file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			return nil, &IOError{Err: err}
		}

		var runningOffset int64
		for index, length := range entry.Lengths {
			drop := DownloadDrop{
				Filename:    rawPath,
				Path:        path,
				Start:       runningOffset,
				Length:      length,
				Checksum:    entry.Checksums[index],
				Index:       index,
				Permissions: entry.Permissions,
			}
			runningOffset += length

			if length >= TargetBucketSize {
				// Oversize chunks get their own bucket
				buckets = append(buckets, DownloadBucket{
					GameID:  gameID,
					Version: entry.VersionName,
					Drops:   []DownloadDrop{drop},
				})
				continue
			}

			current, ok := currentBuckets[entry.VersionName]
			if !ok {
				current = &DownloadBucket{GameID: gameID, Version: entry.VersionName}
				currentBuckets[entry.VersionName] = current
			}

			if (currentSizes[entry.VersionName]+length >= TargetBucketSize ||
				len(current.Drops) >= MaxFilesPerBucket) && len(current.Drops) > 0 {
				buckets = append(buckets, *current)
				current.Drops = nil
				currentSizes[entry.VersionName] = 0
			}

			current.Drops = append(current.Drops, drop)
			currentSizes[entry.VersionName] += length
		}

		if !alreadyExists && runningOffset > 0 {
			if err := alloc.Reserve(file, runningOffset); err != nil {
				file.Close()
				return nil, &IOError{Err: err}
			}
		}
		file.Close()
	}

	// Flush leftovers, in stable version order
	versions := make([]string, 0, len(currentBuckets))
	for v := range currentBuckets {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	for _, v := range versions {
		if bucket := currentBuckets[v]; len(bucket.Drops) > 0 {
			buckets = append(buckets, *bucket)
		}
	}

	return buckets, nil
}

// RefreshContexts reseeds the drop data so every planned hash is present,
// preserving completion state for hashes already known.
func RefreshContexts(buckets []DownloadBucket, dropData *DropData) {
	existing := dropData.Contexts()
	var pairs []ContextPair
	for _, bucket := range buckets {
		for _, drop := range bucket.Drops {
			pairs = append(pairs, ContextPair{
				Checksum: drop.Checksum,
				Complete: existing[drop.Checksum],
			})
		}
	}
	dropData.SetContexts(pairs)
}
