package download

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"

	"golang.org/x/time/rate"

	"drop-desktop/internal/remote"
)

// downloadBufferSize is the network read granularity, and therefore the
// cancellation latency within a drop.
const downloadBufferSize = 32 * 1024

// downloadBucket streams one bucket's drops from the server into their target
// files. It returns (false, nil) when the control flag stopped it (canceled,
// non-terminal) and (true, nil) when every drop landed and hashed correctly.
func downloadBucket(ctx context.Context, client *remote.Client, bucket *DownloadBucket, contextToken string, flag *Control, progress ProgressHandle, limiter *rate.Limiter) (bool, error) {
	if flag.Get() != FlagGo {
		return false, nil
	}

	drops := make([]remote.ChunkRequestDrop, len(bucket.Drops))
	for i, drop := range bucket.Drops {
		drops[i] = remote.ChunkRequestDrop{
			Filename: drop.Filename,
			Checksum: drop.Checksum,
			Start:    drop.Start,
			Length:   drop.Length,
			Index:    drop.Index,
		}
	}

	resp, err := client.FetchChunks(ctx, drops, contextToken)
	if err != nil {
		return false, &CommunicationError{Err: err}
	}
	defer resp.Body.Close()

	for i := range bucket.Drops {
		ok, err := writeDrop(ctx, resp.Body, &bucket.Drops[i], flag, progress, limiter)
		if err != nil || !ok {
			return ok, err
		}
	}
	return true, nil
}

// writeDrop copies exactly drop.Length bytes from the stream to the drop's
// offset, hashing as it goes. The flag is polled between reads.
func writeDrop(ctx context.Context, body io.Reader, drop *DownloadDrop, flag *Control, progress ProgressHandle, limiter *rate.Limiter) (bool, error) {
	file, err := os.OpenFile(drop.Path, os.O_WRONLY, 0o644)
	if err != nil {
		return false, &IOError{Err: err}
	}
	defer file.Close()

	hasher := md5.New()
	buf := make([]byte, downloadBufferSize)
	offset := drop.Start
	remaining := drop.Length

	for remaining > 0 {
		if flag.Get() != FlagGo {
			return false, nil
		}

		chunk := int64(len(buf))
		if remaining < chunk {
			chunk = remaining
		}
		if limiter != nil {
			if err := limiter.WaitN(ctx, int(chunk)); err != nil {
				return false, nil
			}
		}

		n, readErr := io.ReadFull(body, buf[:chunk])
		if n > 0 {
			if _, writeErr := file.WriteAt(buf[:n], offset); writeErr != nil {
				return false, &IOError{Err: writeErr}
			}
			hasher.Write(buf[:n])
			offset += int64(n)
			remaining -= int64(n)
			progress.Add(int64(n))
		}
		if readErr != nil {
			return false, &CommunicationError{
				Err: fmt.Errorf("chunk stream ended %d bytes short for %s: %w", remaining, drop.Filename, readErr),
			}
		}
	}

	if hex.EncodeToString(hasher.Sum(nil)) != drop.Checksum {
		return false, ErrChecksum
	}

	if drop.Permissions != 0 {
		// Executable bits from the manifest; best effort on platforms
		// without POSIX modes.
		_ = file.Chmod(fs.FileMode(drop.Permissions & 0o777))
	}

	return true, nil
}
