package download

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
)

// ValidateContext is one chunk to re-read and hash.
type ValidateContext struct {
	Path     string
	Start    int64
	Length   int64
	Checksum string
	Index    int
}

// validateContexts flattens buckets into per-chunk validation work.
func validateContexts(buckets []DownloadBucket) []ValidateContext {
	var contexts []ValidateContext
	for _, bucket := range buckets {
		for _, drop := range bucket.Drops {
			contexts = append(contexts, ValidateContext{
				Path:     drop.Path,
				Start:    drop.Start,
				Length:   drop.Length,
				Checksum: drop.Checksum,
				Index:    drop.Index,
			})
		}
	}
	return contexts
}

// validateChunk re-reads one chunk from disk and compares its hash. It
// returns (false, nil) on mismatch and polls the control flag between reads.
func validateChunk(vc *ValidateContext, flag *Control, progress ProgressHandle) (bool, error) {
	if flag.Get() != FlagGo {
		return true, nil // stopped, not invalid
	}

	file, err := os.Open(vc.Path)
	if err != nil {
		return false, &IOError{Err: err}
	}
	defer file.Close()

	hasher := md5.New()
	buf := make([]byte, downloadBufferSize)
	offset := vc.Start
	remaining := vc.Length

	for remaining > 0 {
		if flag.Get() != FlagGo {
			return true, nil
		}

		chunk := int64(len(buf))
		if remaining < chunk {
			chunk = remaining
		}

		n, readErr := file.ReadAt(buf[:chunk], offset)
		if n > 0 {
			hasher.Write(buf[:n])
			offset += int64(n)
			remaining -= int64(n)
			progress.Add(int64(n))
		}
		if readErr != nil {
			if readErr == io.EOF && remaining == 0 {
				break
			}
			// Short file reads as invalid, not as an error; the chunk just
			// gets downloaded again.
			if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
				return false, nil
			}
			return false, &IOError{Err: readErr}
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)) == vc.Checksum, nil
}
