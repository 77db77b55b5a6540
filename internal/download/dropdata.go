package download

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// dropDataFile is the per-download record inside the game's install dir.
const dropDataFile = ".dropdata.json"

// DropData is the durable per-download record: which chunk hashes are already
// complete on disk. It is the source of truth for resumption; a hash marked
// true is never redownloaded.
type DropData struct {
	BasePath string
	ID       string
	Version  string

	mu       sync.Mutex
	contexts map[string]bool

	lock *flock.Flock
	log  *slog.Logger
}

type dropDataRecord struct {
	ID       string          `json:"id"`
	Version  string          `json:"version"`
	BasePath string          `json:"base_path"`
	Contexts map[string]bool `json:"contexts"`
}

// GenerateDropData loads the record under basePath, or creates an empty one.
// A malformed file degrades to "redownload everything", never to a crash.
func GenerateDropData(id, version, basePath string, log *slog.Logger) *DropData {
	d := &DropData{
		BasePath: basePath,
		ID:       id,
		Version:  version,
		contexts: make(map[string]bool),
		lock:     flock.New(filepath.Join(basePath, dropDataFile+".lock")),
		log:      log,
	}

	data, err := os.ReadFile(d.path())
	if err != nil {
		return d
	}

	var record dropDataRecord
	if err := json.Unmarshal(data, &record); err != nil || record.ID != id {
		log.Warn("malformed drop data, resetting", "path", d.path(), "error", err)
		return d
	}
	if record.Version != version {
		// New version invalidates old completion state
		return d
	}
	if record.Contexts != nil {
		d.contexts = record.Contexts
	}
	return d
}

func (d *DropData) path() string {
	return filepath.Join(d.BasePath, dropDataFile)
}

// Contexts returns a snapshot of the completion bitmap.
func (d *DropData) Contexts() map[string]bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]bool, len(d.contexts))
	for k, v := range d.contexts {
		out[k] = v
	}
	return out
}

// ContextPair is one (hash, complete) entry.
type ContextPair struct {
	Checksum string
	Complete bool
}

// SetContexts replaces the whole bitmap.
func (d *DropData) SetContexts(pairs []ContextPair) {
	contexts := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		contexts[p.Checksum] = p.Complete
	}
	d.mu.Lock()
	d.contexts = contexts
	d.mu.Unlock()
}

// SetContext updates one entry.
func (d *DropData) SetContext(checksum string, complete bool) {
	d.mu.Lock()
	d.contexts[checksum] = complete
	d.mu.Unlock()
}

// Write flushes the record atomically: marshal, write to a temp file, rename.
// An interrupted write leaves either the old or the new record, never a
// corrupt one. The file lock keeps concurrent processes from interleaving.
func (d *DropData) Write() error {
	if err := os.MkdirAll(d.BasePath, 0o755); err != nil {
		return err
	}

	locked, err := d.lock.TryLock()
	if err == nil && !locked {
		err = d.lock.Lock()
	}
	if err != nil {
		return ErrLock
	}
	defer d.lock.Unlock()

	d.mu.Lock()
	record := dropDataRecord{
		ID:       d.ID,
		Version:  d.Version,
		BasePath: d.BasePath,
		Contexts: make(map[string]bool, len(d.contexts)),
	}
	for k, v := range d.contexts {
		record.Contexts[k] = v
	}
	d.mu.Unlock()

	data, err := json.Marshal(&record)
	if err != nil {
		return err
	}

	tmp := filepath.Join(d.BasePath, "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, d.path())
}
