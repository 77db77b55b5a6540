package download

// The manager takes a queue of keys and their associated agents and executes
// them one at a time. Commands arrive as signals on a single channel and are
// processed in order on the manager goroutine, which is the only place the
// registry or the queue membership changes. The queue holds keys only; the
// agents live in the registry, which is why both must move together through
// signals.

import (
	"log/slog"
	"sync"

	"drop-desktop/internal/events"
)

// ManagerStatus is the queue manager's own state, distinct from any one
// entry's status.
type ManagerStatus string

const (
	ManagerEmpty       ManagerStatus = "empty"
	ManagerDownloading ManagerStatus = "downloading"
	ManagerPaused      ManagerStatus = "paused"
	ManagerError       ManagerStatus = "error"
)

const signalBuffer = 1024

// Manager consumes signals and drives at most one download run at a time.
type Manager struct {
	log     *slog.Logger
	emitter events.Emitter

	// Only touched on the manager goroutine.
	registry map[DownloadableKey]Downloadable

	queue   *queueStore
	signals chan Signal

	statusMu sync.Mutex
	status   ManagerStatus

	workerDone chan struct{} // nil when idle
	activeFlag *Control      // flag of the running agent, nil when idle

	done chan struct{}
}

// NewManager builds the manager, starts its goroutine and returns the handle
// the rest of the app uses.
func NewManager(log *slog.Logger, emitter events.Emitter) *DownloadManager {
	m := &Manager{
		log:      log,
		emitter:  emitter,
		registry: make(map[DownloadableKey]Downloadable),
		queue:    newQueueStore(),
		signals:  make(chan Signal, signalBuffer),
		status:   ManagerEmpty,
		done:     make(chan struct{}),
	}

	go m.manageQueue()

	return &DownloadManager{
		queue:   m.queue,
		signals: m.signals,
		done:    m.done,
		manager: m,
	}
}

func (m *Manager) setStatus(s ManagerStatus) {
	m.statusMu.Lock()
	m.status = s
	m.statusMu.Unlock()
}

func (m *Manager) Status() ManagerStatus {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()
	return m.status
}

func (m *Manager) sender() Sender {
	return Sender{signals: m.signals}
}

func (m *Manager) manageQueue() {
	defer close(m.done)

	for signal := range m.signals {
		switch sig := signal.(type) {
		case SignalQueue:
			m.handleQueue(sig.Agent)
		case SignalGo:
			m.handleGo()
		case SignalStop:
			m.handleStop()
		case SignalCompleted:
			m.handleCompleted(sig.Key)
		case SignalCancel:
			m.handleCancel(sig.Key)
		case SignalError:
			m.handleError(sig.Err)
		case SignalUpdateQueue:
			m.pushQueueUpdate()
		case SignalUpdateStats:
			m.emitter.Emit(events.UpdateStats, StatsUpdateEvent{
				Speed: sig.KBps,
				Time:  sig.SecondsRemaining,
			})
		case SignalFinish:
			m.stopAndWaitCurrent()
			return
		}
	}
}

func (m *Manager) handleQueue(agent Downloadable) {
	meta := agent.Metadata()
	m.log.Debug("got signal queue", "key", meta)

	if m.queue.Exists(meta) {
		m.log.Warn("download with same key already exists", "key", meta)
		return
	}

	agent.OnQueued()
	m.queue.Append(meta)
	m.registry[meta] = agent

	m.sender().Send(SignalUpdateQueue{})
}

func (m *Manager) handleGo() {
	if m.workerDone != nil {
		select {
		case <-m.workerDone:
			// The previous worker already unwound (pause); clear it so the
			// front can restart.
			m.workerDone = nil
			m.activeFlag = nil
		default:
			if m.Status() == ManagerDownloading {
				return // a run is already active
			}
			// Paused but the worker has not finished unwinding yet; join it
			// before restarting so two workers never coexist.
			m.drainJoin(m.workerDone)
			m.workerDone = nil
			m.activeFlag = nil
		}
	}
	if len(m.registry) == 0 {
		return
	}

	meta, ok := m.queue.Front()
	if !ok {
		return
	}
	agent := m.registry[meta]

	// No worker exists at this point, so a transient downloading/validating
	// status can only be left over from a pause; restart it. Errored entries
	// stay put until cancelled.
	if agent.Status() == StatusError {
		return
	}

	m.log.Info("starting download", "key", meta)
	m.activeFlag = agent.ControlFlag()

	done := make(chan struct{})
	m.workerDone = done
	sender := m.sender()

	go func() {
		defer close(done)

		for {
			ok, err := agent.Download()
			if err != nil {
				m.log.Error("download failed", "key", agent.Metadata(), "error", err)
				sender.Send(SignalError{Err: err})
				return
			}
			// Canceled or paused: cleanup is driven by whoever stopped us.
			if !ok {
				return
			}
			if agent.ControlFlag().Get() == FlagStop {
				return
			}

			valid, err := agent.Validate()
			if err != nil {
				m.log.Error("validation failed", "key", agent.Metadata(), "error", err)
				sender.Send(SignalError{Err: err})
				return
			}
			if agent.ControlFlag().Get() == FlagStop {
				return
			}

			if valid {
				agent.OnComplete()
				sender.Send(SignalCompleted{Key: agent.Metadata()})
				sender.Send(SignalUpdateQueue{})
				return
			}
			// Invalid chunks were flagged; loop back into download.
		}
	}()

	m.setStatus(ManagerDownloading)
	m.activeFlag.Set(FlagGo)
}

func (m *Manager) handleStop() {
	m.log.Debug("got signal stop")
	if m.activeFlag != nil {
		m.setStatus(ManagerPaused)
		m.activeFlag.Set(FlagStop)
	}
}

func (m *Manager) handleCompleted(key DownloadableKey) {
	m.log.Debug("got signal completed", "key", key)
	if front, ok := m.queue.Front(); ok && front == key {
		m.removeAndCleanupFront(key)
	}
	m.pushQueueUpdate()
	m.sender().Send(SignalGo{})
}

func (m *Manager) handleCancel(key DownloadableKey) {
	m.log.Debug("got signal cancel", "key", key)

	if front, ok := m.queue.Front(); ok && front == key {
		if agent, ok := m.registry[key]; ok {
			// Stop and join first; the cancel hook flushes drop data and must
			// not race the run's own final write.
			m.stopAndWaitCurrent()
			agent.OnCancelled()
			m.queue.PopFront()
			delete(m.registry, key)
		}
	} else if agent, ok := m.registry[key]; ok {
		agent.OnCancelled()
		m.queue.Remove(key)
		delete(m.registry, key)
	}

	m.sender().Send(SignalGo{})
	m.pushQueueUpdate()
}

func (m *Manager) handleError(err error) {
	m.log.Debug("got signal error", "error", err)

	if front, ok := m.queue.Front(); ok {
		if agent, exists := m.registry[front]; exists {
			agent.OnError(err)
			m.stopAndWaitCurrent()
			m.removeAndCleanupFront(front)
		}
	}
	m.pushQueueUpdate()
	m.setStatus(ManagerError)
}

// removeAndCleanupFront pops the front entry and drops its agent. The worker
// must already be finished or stopped.
func (m *Manager) removeAndCleanupFront(key DownloadableKey) {
	m.queue.PopFront()
	delete(m.registry, key)
	m.cleanupCurrent()
}

// cleanupCurrent clears the active run state, joining the worker if one is
// still unwinding. Careful with this: never call it while the control flag is
// still set to go.
func (m *Manager) cleanupCurrent() {
	m.activeFlag = nil
	if m.workerDone != nil {
		<-m.workerDone
		m.workerDone = nil
	}
}

// stopAndWaitCurrent flips the active flag to stop and joins the worker, so
// no stale worker can touch freed state afterwards.
func (m *Manager) stopAndWaitCurrent() {
	m.setStatus(ManagerPaused)
	if m.activeFlag != nil {
		m.activeFlag.Set(FlagStop)
		m.activeFlag = nil
	}
	if m.workerDone != nil {
		m.drainJoin(m.workerDone)
		m.workerDone = nil
	}
}

// drainJoin waits for the worker while consuming its trailing UI signals, so
// a worker blocked on a full channel cannot deadlock the join.
func (m *Manager) drainJoin(done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case signal := <-m.signals:
			switch signal.(type) {
			case SignalUpdateQueue, SignalUpdateStats:
				// drop; a fresh snapshot follows the join
			default:
				// Requeue control signals behind the join.
				go func(s Signal) { m.signals <- s }(signal)
			}
		}
	}
}

func (m *Manager) pushQueueUpdate() {
	keys := m.queue.Snapshot()
	entries := make([]QueueEntryData, 0, len(keys))
	for _, key := range keys {
		agent, ok := m.registry[key]
		if !ok {
			continue
		}
		progress := agent.Progress()
		entries = append(entries, QueueEntryData{
			Meta:     key,
			Status:   agent.Status(),
			Progress: progress.Fraction(),
			Current:  progress.Sum(),
			Max:      progress.Max(),
		})
	}
	m.emitter.Emit(events.UpdateQueue, QueueUpdateEvent{Queue: entries})
}
