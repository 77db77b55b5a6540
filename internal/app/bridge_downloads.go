package app

import (
	"context"

	"drop-desktop/internal/download"
)

// QueueGameDownload creates an agent for (id, version) targeting the install
// dir at installDirIndex and enqueues it. Returns an error string for the
// frontend, empty on success.
func (a *App) QueueGameDownload(id, version string, installDirIndex int) string {
	a.log.Info("frontend_request", "method", "QueueGameDownload", "id", id, "version", version, "dir", installDirIndex)

	baseDir, err := a.db.InstallDirAt(installDirIndex)
	if err != nil {
		a.log.Error("failed to resolve install dir", "index", installDirIndex, "error", err)
		return err.Error()
	}

	agent, err := download.NewGameDownloadAgent(
		context.Background(), id, version, baseDir, a.manager.Sender(), a.agentDeps)
	if err != nil {
		a.log.Error("failed to create download agent", "id", id, "error", err)
		return err.Error()
	}

	a.manager.Queue(agent)
	return ""
}

// PauseDownloads stops the active run without losing queue position.
func (a *App) PauseDownloads() {
	a.log.Info("frontend_request", "method", "PauseDownloads")
	a.manager.PauseDownloads()
}

// ResumeDownloads restarts the front of the queue.
func (a *App) ResumeDownloads() {
	a.log.Info("frontend_request", "method", "ResumeDownloads")
	a.manager.ResumeDownloads()
}

// CancelDownload removes one entry from the queue.
func (a *App) CancelDownload(id, version string) {
	a.log.Info("frontend_request", "method", "CancelDownload", "id", id, "version", version)
	a.manager.Cancel(download.DownloadableKey{
		ID:      id,
		Version: version,
		Kind:    download.KindGame,
	})
}

// RearrangeQueue moves the entry at oldIndex to newIndex.
func (a *App) RearrangeQueue(oldIndex, newIndex int) bool {
	a.log.Info("frontend_request", "method", "RearrangeQueue", "old", oldIndex, "new", newIndex)
	return a.manager.Rearrange(oldIndex, newIndex)
}
