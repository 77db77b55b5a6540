package download

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"drop-desktop/internal/config"
	"drop-desktop/internal/events"
	"drop-desktop/internal/filesystem"
	"drop-desktop/internal/library"
	"drop-desktop/internal/logger"
	"drop-desktop/internal/remote"
)

// retryCount bounds in-process attempts per bucket on transient errors. No
// backoff: the server controls rate.
const retryCount = 3

// AgentDeps are the collaborators a download agent needs. One value is shared
// by every agent.
type AgentDeps struct {
	Client   *remote.Client
	Config   *config.ConfigManager
	Library  *library.Service
	Emitter  events.Emitter
	Alloc    *filesystem.Allocator
	Log      *slog.Logger
	DataRoot string
}

// GameDownloadAgent owns one game's download lifecycle: manifest, buckets,
// worker pool, validation and the durable drop data. Created on enqueue,
// destroyed on completion, cancellation or error.
type GameDownloadAgent struct {
	id      string
	version string

	control  *Control
	progress *Progress
	sender   Sender
	dropData *DropData
	deps     AgentDeps

	mu         sync.Mutex // manifest, buckets, contextMap
	manifest   remote.Manifest
	buckets    []DownloadBucket
	contextMap map[string]bool

	statusMu sync.Mutex
	status   DownloadStatus
}

// NewGameDownloadAgent fetches the manifest, loads any prior completion state
// and verifies the install volume can hold the remaining bytes. It fails fast
// with DiskFullError before any bucket exists.
func NewGameDownloadAgent(ctx context.Context, id, version, baseDir string, sender Sender, deps AgentDeps) (*GameDownloadAgent, error) {
	installDir := filepath.Join(baseDir, id)

	agent := &GameDownloadAgent{
		id:         id,
		version:    version,
		control:    NewControl(FlagStop),
		progress:   NewProgress(0, 0, sender),
		sender:     sender,
		dropData:   GenerateDropData(id, version, installDir, deps.Log),
		deps:       deps,
		contextMap: make(map[string]bool),
		status:     StatusQueued,
	}

	manifest, err := deps.Client.FetchManifest(ctx, id, version)
	if err != nil {
		return nil, &CommunicationError{Err: err}
	}
	agent.manifest = manifest

	// Only the chunks not already complete on disk count against free space.
	contexts := agent.dropData.Contexts()
	var required uint64
	for _, entry := range manifest {
		for i, length := range entry.Lengths {
			if !contexts[entry.Checksums[i]] {
				required += uint64(length)
			}
		}
	}

	available, err := deps.Alloc.Free(installDir)
	if err != nil {
		return nil, &IOError{Err: err}
	}
	if required > available {
		return nil, &DiskFullError{Required: required, Available: available}
	}

	return agent, nil
}

func (a *GameDownloadAgent) InstallDir() string {
	return a.dropData.BasePath
}

func (a *GameDownloadAgent) setStatus(s DownloadStatus) {
	a.statusMu.Lock()
	a.status = s
	a.statusMu.Unlock()
}

// ensureBuckets plans the run once and reloads the completion bitmap. All
// drop-data writes happen between pool-scope boundaries, so this snapshot
// cannot race a writer.
func (a *GameDownloadAgent) ensureBuckets() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.manifest == nil {
		return ErrNotInitialized
	}
	if len(a.buckets) == 0 {
		buckets, err := GenerateBuckets(a.manifest, a.id, a.dropData.BasePath, a.deps.Alloc)
		if err != nil {
			return err
		}
		RefreshContexts(buckets, a.dropData)
		a.buckets = buckets
		a.deps.Log.Info("planned download", "game", a.id, "buckets", len(buckets))
	}

	a.contextMap = a.dropData.Contexts()
	return nil
}

func (a *GameDownloadAgent) setupProgress() {
	a.mu.Lock()
	chunkCount := 0
	var totalLength int64
	for i := range a.buckets {
		chunkCount += len(a.buckets[i].Drops)
		totalLength += a.buckets[i].TotalLength()
	}
	a.mu.Unlock()

	a.progress.SetMax(totalLength)
	a.progress.SetSize(chunkCount)
	a.progress.Reset()
}

// Download transfers every incomplete bucket through a bounded worker pool.
// (false, nil) means the run was stopped or left incomplete chunks; the
// caller decides whether that is a pause or a retry.
func (a *GameDownloadAgent) Download() (bool, error) {
	a.setStatus(StatusDownloading)
	a.deps.Library.SetTransient(a.id, library.TransientStatus{
		Kind:        library.TransientDownloading,
		VersionName: a.version,
	})

	if err := a.ensureBuckets(); err != nil {
		return false, err
	}

	// Durable breadcrumb so an unexpected exit can resume; the transient
	// downloading status hides it in the UI.
	a.deps.Library.SetPartiallyInstalled(a.id, a.version, a.dropData.BasePath, false)

	a.control.Set(FlagGo)

	timer := time.Now()
	a.deps.Log.Info("beginning download", "game", a.id, "version", a.version)

	ok, err := a.run()

	a.deps.Log.Debug("download pass finished", "game", a.id,
		"complete", ok, "elapsed", time.Since(timer))

	if err != nil {
		return false, err
	}
	if a.control.Get() == FlagStop {
		// Paused: the entry stays queued so a Go signal can restart it.
		a.setStatus(StatusQueued)
	}
	return ok, nil
}

func (a *GameDownloadAgent) run() (bool, error) {
	a.setupProgress()

	runLog, logErr := logger.GameLog(a.deps.DataRoot, a.id, a.version)
	if logErr == nil {
		defer runLog.Close()
		fmt.Fprintf(runLog, "%s download start game=%s version=%s\n",
			time.Now().Format(time.RFC3339), a.id, a.version)
	}

	a.mu.Lock()
	buckets := a.buckets
	contextMap := make(map[string]bool, len(a.contextMap))
	for k, v := range a.contextMap {
		contextMap[k] = v
	}
	a.mu.Unlock()

	// One context token per distinct version in the plan.
	versionSet := make(map[string]struct{})
	for i := range buckets {
		versionSet[buckets[i].Version] = struct{}{}
	}
	versions := make([]string, 0, len(versionSet))
	for v := range versionSet {
		versions = append(versions, v)
	}
	sort.Strings(versions)

	tokens := make(map[string]string, len(versions))
	for _, version := range versions {
		dc, err := a.deps.Client.FetchDownloadContext(a.id, version)
		if err != nil {
			return false, &CommunicationError{Err: err}
		}
		tokens[version] = dc.Context
	}

	threads := a.deps.Config.MaxDownloadThreads()
	var limiter *rate.Limiter
	if limit := a.deps.Config.DownloadRateLimit(); limit > 0 {
		// The burst must admit one full network read, or WaitN fails.
		limiter = rate.NewLimiter(rate.Limit(limit), max(limit, downloadBufferSize))
	}

	var (
		wg          sync.WaitGroup
		sem         = make(chan struct{}, threads)
		completedMu sync.Mutex
		completed   []string
		errOnce     sync.Once
	)

	for index := range buckets {
		handle := a.progress.Handle(index)

		// Drops already complete on disk are skipped without touching the
		// network; their bytes move the bar but not the speed estimate.
		var todo []DownloadDrop
		var skipped int64
		for _, drop := range buckets[index].Drops {
			if contextMap[drop.Checksum] {
				handle.Skip(drop.Length)
				skipped += drop.Length
				continue
			}
			todo = append(todo, drop)
		}
		if len(todo) == 0 {
			continue
		}

		bucket := DownloadBucket{
			GameID:  buckets[index].GameID,
			Version: buckets[index].Version,
			Drops:   todo,
		}
		token := tokens[bucket.Version]

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			for attempt := 0; attempt < retryCount; attempt++ {
				// A failed attempt redoes the whole bucket; rewind its slot
				// so partial bytes are not double counted.
				handle.Set(skipped)

				ok, err := downloadBucket(context.Background(), a.deps.Client, &bucket, token, a.control, handle, limiter)
				if err == nil {
					if ok {
						completedMu.Lock()
						for _, drop := range bucket.Drops {
							completed = append(completed, drop.Checksum)
						}
						completedMu.Unlock()
					}
					return // complete, or canceled cooperatively
				}

				a.deps.Log.Warn("bucket download failed", "game", a.id,
					"attempt", attempt+1, "error", err)
				if runLog != nil {
					fmt.Fprintf(runLog, "%s bucket error attempt=%d err=%v\n",
						time.Now().Format(time.RFC3339), attempt+1, err)
				}

				if attempt == retryCount-1 || !IsRetryable(err) {
					errOnce.Do(func() {
						a.sender.Send(SignalError{Err: err})
					})
					return
				}
			}
		}()
	}

	wg.Wait()

	// Merge the collector, then persist the whole bitmap. Both happen after
	// the pool has quiesced; no worker can still be writing.
	a.mu.Lock()
	for _, checksum := range completed {
		contextMap[checksum] = true
	}
	a.contextMap = contextMap

	allComplete := true
	var pairs []ContextPair
	for i := range a.buckets {
		for _, drop := range a.buckets[i].Drops {
			done := contextMap[drop.Checksum]
			if !done {
				allComplete = false
			}
			pairs = append(pairs, ContextPair{Checksum: drop.Checksum, Complete: done})
		}
	}
	a.mu.Unlock()

	a.dropData.SetContexts(pairs)
	if err := a.dropData.Write(); err != nil {
		a.deps.Log.Error("failed to write drop data", "game", a.id, "error", err)
	}

	if runLog != nil {
		fmt.Fprintf(runLog, "%s download pass done complete=%v\n",
			time.Now().Format(time.RFC3339), allComplete)
	}

	return allComplete, nil
}

// Validate re-reads every chunk and flags mismatches for re-download.
func (a *GameDownloadAgent) Validate() (bool, error) {
	a.setStatus(StatusValidating)
	a.deps.Library.SetTransient(a.id, library.TransientStatus{
		Kind:        library.TransientValidating,
		VersionName: a.version,
	})

	a.setupProgress()
	a.control.Set(FlagGo)

	a.mu.Lock()
	contexts := validateContexts(a.buckets)
	a.mu.Unlock()

	a.deps.Log.Info("validating download", "game", a.id, "chunks", len(contexts))

	threads := a.deps.Config.MaxDownloadThreads()
	var (
		wg        sync.WaitGroup
		sem       = make(chan struct{}, threads)
		invalidMu sync.Mutex
		invalid   []string
		firstErr  error
	)

	for i := range contexts {
		handle := a.progress.Handle(i)
		vc := &contexts[i]

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			ok, err := validateChunk(vc, a.control, handle)
			if err != nil {
				invalidMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				invalidMu.Unlock()
				return
			}
			if !ok {
				invalidMu.Lock()
				invalid = append(invalid, vc.Checksum)
				invalidMu.Unlock()
			}
		}()
	}

	wg.Wait()

	if firstErr != nil {
		return false, firstErr
	}

	if a.control.Get() == FlagStop {
		// Paused mid-validation: stay restartable.
		a.setStatus(StatusQueued)
	}

	if len(invalid) > 0 {
		a.deps.Log.Warn("validation failed", "game", a.id, "invalid_chunks", len(invalid))

		a.mu.Lock()
		for _, checksum := range invalid {
			a.contextMap[checksum] = false
		}
		a.mu.Unlock()
		for _, checksum := range invalid {
			a.dropData.SetContext(checksum, false)
		}
		if err := a.dropData.Write(); err != nil {
			a.deps.Log.Error("failed to write drop data", "game", a.id, "error", err)
		}
		return false, nil
	}

	return true, nil
}

// --- Downloadable ---

func (a *GameDownloadAgent) Progress() *Progress {
	return a.progress
}

func (a *GameDownloadAgent) ControlFlag() *Control {
	return a.control
}

func (a *GameDownloadAgent) Status() DownloadStatus {
	a.statusMu.Lock()
	defer a.statusMu.Unlock()
	return a.status
}

func (a *GameDownloadAgent) Metadata() DownloadableKey {
	return DownloadableKey{ID: a.id, Version: a.version, Kind: KindGame}
}

func (a *GameDownloadAgent) OnQueued() {
	a.setStatus(StatusQueued)
	a.deps.Library.SetTransient(a.id, library.TransientStatus{
		Kind:        library.TransientQueued,
		VersionName: a.version,
	})
}

func (a *GameDownloadAgent) OnError(err error) {
	a.setStatus(StatusError)
	a.deps.Emitter.Emit(events.DownloadError, err.Error())
	a.deps.Log.Error("error while managing download", "game", a.id, "error", err)

	if errLog, logErr := logger.GameErrorLog(a.deps.DataRoot, a.id, a.version); logErr == nil {
		fmt.Fprintf(errLog, "%s %v\n", time.Now().Format(time.RFC3339), err)
		errLog.Close()
	}

	// The game returns to its prior durable status in the UI.
	a.deps.Library.ClearTransient(a.id)
}

func (a *GameDownloadAgent) OnComplete() {
	err := a.deps.Library.OnGameComplete(context.Background(), a.id, a.version, a.dropData.BasePath)
	if err != nil {
		// The install is durably recorded; only surface the metadata error.
		a.deps.Emitter.Emit(events.DownloadError, err.Error())
	}
}

func (a *GameDownloadAgent) OnCancelled() {
	a.deps.Log.Info("cancelled download", "game", a.id)
	a.deps.Library.SetPartiallyInstalled(a.id, a.version, a.dropData.BasePath, true)
	if err := a.dropData.Write(); err != nil {
		a.deps.Log.Error("failed to write drop data", "game", a.id, "error", err)
	}
}

var _ Downloadable = (*GameDownloadAgent)(nil)
