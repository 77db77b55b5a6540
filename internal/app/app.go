// Package app provides the Wails bridge between the frontend and backend.
// It is split into multiple files by domain.
package app

import (
	"context"
	"log/slog"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"drop-desktop/internal/config"
	"drop-desktop/internal/database"
	"drop-desktop/internal/download"
	"drop-desktop/internal/events"
	"drop-desktop/internal/library"
	"drop-desktop/internal/remote"
)

// App is the main Wails binding, bridging frontend calls to the download
// manager and its collaborators.
type App struct {
	ctx        context.Context
	log        *slog.Logger
	emitter    *events.WailsEmitter
	db         *database.DB
	cfg        *config.ConfigManager
	client     *remote.Client
	library    *library.Service
	manager    *download.DownloadManager
	agentDeps  download.AgentDeps
	isQuitting bool
}

func NewApp(
	log *slog.Logger,
	emitter *events.WailsEmitter,
	db *database.DB,
	cfg *config.ConfigManager,
	client *remote.Client,
	lib *library.Service,
	manager *download.DownloadManager,
	agentDeps download.AgentDeps,
) *App {
	return &App{
		log:       log,
		emitter:   emitter,
		db:        db,
		cfg:       cfg,
		client:    client,
		library:   lib,
		manager:   manager,
		agentDeps: agentDeps,
	}
}

// Startup is called when the app starts. The context is saved so runtime
// methods and event emission work from here on.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
	a.emitter.SetContext(ctx)
	a.log.Info("app started")
}

// BeforeClose hides the window instead of closing, unless a real quit is in
// progress.
func (a *App) BeforeClose(ctx context.Context) (prevent bool) {
	if a.isQuitting {
		return false
	}
	a.log.Info("window close requested, hiding")
	runtime.WindowHide(ctx)
	return true
}

// QuitApp shuts the queue down and exits.
func (a *App) QuitApp() {
	a.isQuitting = true
	a.manager.EnsureTerminated()
	if err := a.db.Close(); err != nil {
		a.log.Error("error closing database", "error", err)
	}
	runtime.Quit(a.ctx)
}

// ShowApp restores the window from the background.
func (a *App) ShowApp() {
	runtime.WindowShow(a.ctx)
	if runtime.WindowIsMinimised(a.ctx) {
		runtime.WindowUnminimise(a.ctx)
	}
}
