package download

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

var (
	// ErrNotInitialized means a run was requested before the manifest was
	// fetched. Fatal to the run.
	ErrNotInitialized = errors.New("download not initialized, did something go wrong?")

	// ErrChecksum means a chunk body did not match its expected hash.
	ErrChecksum = errors.New("checksum failed to validate for download")

	// ErrLock means an internal lock could not be acquired.
	ErrLock = errors.New("failed to acquire internal lock, please restart the application")
)

// DiskFullError is the pre-flight failure when the install volume cannot hold
// the remaining download.
type DiskFullError struct {
	Required  uint64
	Available uint64
}

func (e *DiskFullError) Error() string {
	return fmt.Sprintf("game requires %s, %s remaining on disk",
		humanize.IBytes(e.Required), humanize.IBytes(e.Available))
}

// CommunicationError wraps a network or server-side failure.
type CommunicationError struct {
	Err error
}

func (e *CommunicationError) Error() string {
	return e.Err.Error()
}

func (e *CommunicationError) Unwrap() error {
	return e.Err
}

// IOError wraps a filesystem failure during chunk write or read-back.
type IOError struct {
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error: %v", e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// DownloadError reports a post-completion server acknowledgement failure. The
// download itself is complete; only the metadata step failed.
type DownloadError struct {
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download failed with error %v", e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// IsRetryable classifies an error for the chunk worker's in-process retry:
// communication, checksum, lock and I/O failures are transient; everything
// else gives up immediately.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrChecksum) || errors.Is(err, ErrLock) {
		return true
	}
	var comm *CommunicationError
	if errors.As(err, &comm) {
		return true
	}
	var ioErr *IOError
	return errors.As(err, &ioErr)
}
