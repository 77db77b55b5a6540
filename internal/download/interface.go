package download

// DownloadManager is the process-wide handle onto the queue manager. It only
// posts signals; it never mutates the queue or registry directly, with the
// single exception of Rearrange, which reorders keys under the queue lock.
type DownloadManager struct {
	queue   *queueStore
	signals chan Signal
	done    chan struct{}
	manager *Manager
}

// Sender returns the signal sender agents use to report their own errors,
// completions and stats.
func (dm *DownloadManager) Sender() Sender {
	return Sender{signals: dm.signals}
}

// Queue registers an agent and starts the queue if it is idle.
func (dm *DownloadManager) Queue(agent Downloadable) {
	dm.Sender().Send(SignalQueue{Agent: agent})
	dm.Sender().Send(SignalGo{})
}

// PauseDownloads stops the active run cooperatively without popping it.
func (dm *DownloadManager) PauseDownloads() {
	dm.Sender().Send(SignalStop{})
}

// ResumeDownloads restarts the front of the queue.
func (dm *DownloadManager) ResumeDownloads() {
	dm.Sender().Send(SignalGo{})
}

// Cancel removes one entry, stopping it first if it is running.
func (dm *DownloadManager) Cancel(key DownloadableKey) {
	dm.Sender().Send(SignalCancel{Key: key})
}

// Rearrange moves the queue entry at oldIndex to newIndex and refreshes the
// UI snapshot. The front entry cannot be displaced while it is running; a
// completed run is only popped when its key is still at the front.
func (dm *DownloadManager) Rearrange(oldIndex, newIndex int) bool {
	if dm.manager.Status() == ManagerDownloading && (oldIndex == 0 || newIndex == 0) {
		return false
	}
	moved := dm.queue.Move(oldIndex, newIndex)
	if moved {
		dm.Sender().Send(SignalUpdateQueue{})
	}
	return moved
}

// QueueSnapshot returns the current key ordering.
func (dm *DownloadManager) QueueSnapshot() []DownloadableKey {
	return dm.queue.Snapshot()
}

// Status reports the manager's own state.
func (dm *DownloadManager) Status() ManagerStatus {
	return dm.manager.Status()
}

// EnsureTerminated stops the current run and shuts the manager loop down,
// blocking until it exits.
func (dm *DownloadManager) EnsureTerminated() {
	dm.Sender().Send(SignalFinish{})
	<-dm.done
}
