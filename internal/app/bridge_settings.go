package app

import (
	"drop-desktop/internal/autostart"
)

// Settings is the flat settings view the frontend binds to.
type Settings struct {
	MaxDownloadThreads int      `json:"max_download_threads"`
	Autostart          bool     `json:"autostart"`
	ForceOffline       bool     `json:"force_offline"`
	InstallDirs        []string `json:"install_dirs"`
}

func (a *App) GetSettings() Settings {
	dirs, err := a.db.InstallDirs()
	if err != nil {
		a.log.Error("failed to read install dirs", "error", err)
	}
	paths := make([]string, 0, len(dirs))
	for _, d := range dirs {
		paths = append(paths, d.Path)
	}
	return Settings{
		MaxDownloadThreads: a.cfg.MaxDownloadThreads(),
		Autostart:          a.cfg.Autostart(),
		ForceOffline:       a.cfg.ForceOffline(),
		InstallDirs:        paths,
	}
}

func (a *App) SetMaxDownloadThreads(n int) {
	a.log.Info("frontend_request", "method", "SetMaxDownloadThreads", "n", n)
	if err := a.cfg.SetMaxDownloadThreads(n); err != nil {
		a.log.Error("failed to save setting", "error", err)
	}
}

func (a *App) SetAutostart(enabled bool) {
	a.log.Info("frontend_request", "method", "SetAutostart", "enabled", enabled)
	if err := a.cfg.SetAutostart(enabled); err != nil {
		a.log.Error("failed to save setting", "error", err)
		return
	}
	if err := autostart.Sync(enabled); err != nil {
		a.log.Error("failed to sync autostart", "error", err)
	}
}

func (a *App) SetForceOffline(enabled bool) {
	a.log.Info("frontend_request", "method", "SetForceOffline", "enabled", enabled)
	if err := a.cfg.SetForceOffline(enabled); err != nil {
		a.log.Error("failed to save setting", "error", err)
	}
}

func (a *App) AddInstallDir(path string) {
	a.log.Info("frontend_request", "method", "AddInstallDir", "path", path)
	if err := a.db.AddInstallDir(path); err != nil {
		a.log.Error("failed to add install dir", "error", err)
	}
}

func (a *App) RemoveInstallDir(path string) {
	a.log.Info("frontend_request", "method", "RemoveInstallDir", "path", path)
	if err := a.db.RemoveInstallDir(path); err != nil {
		a.log.Error("failed to remove install dir", "error", err)
	}
}
