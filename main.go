package main

import (
	"context"
	"crypto/rand"
	"embed"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"drop-desktop/internal/api"
	"drop-desktop/internal/app"
	"drop-desktop/internal/autostart"
	"drop-desktop/internal/config"
	"drop-desktop/internal/database"
	"drop-desktop/internal/download"
	"drop-desktop/internal/events"
	"drop-desktop/internal/filesystem"
	"drop-desktop/internal/library"
	"drop-desktop/internal/logger"
	"drop-desktop/internal/remote"
)

//go:embed all:frontend/dist
var assets embed.FS

const defaultServerURL = "https://drop.example.com"

func main() {
	dataRoot, err := database.DataRoot()
	if err != nil {
		println("Error resolving data dir:", err.Error())
		return
	}

	emitter := events.NewWailsEmitter()

	log, err := logger.New(os.Stdout, dataRoot, emitter)
	if err != nil {
		println("Error initializing logger:", err.Error())
		return
	}

	db, err := database.Open(filepath.Join(dataRoot, "drop.db"))
	if err != nil {
		log.Error("error initializing database", "error", err)
		return
	}

	cfg := config.NewConfigManager(db)
	if cfg.ControlToken() == "" {
		if err := cfg.SetControlToken(generateToken()); err != nil {
			log.Warn("failed to persist control token", "error", err)
		}
	}

	serverURL, err := db.GetString("base_url")
	if err != nil || serverURL == "" {
		serverURL = defaultServerURL
	}

	client, err := remote.New(serverURL, dataRoot, db, log)
	if err != nil {
		log.Error("error building server client", "error", err)
		return
	}

	if err := client.Healthcheck(context.Background()); err != nil {
		// Offline start is fine; downloads will surface errors when tried.
		log.Warn("server healthcheck failed", "error", err)
	}

	lib := library.NewService(db, client, emitter, log)
	manager := download.NewManager(log, emitter)

	agentDeps := download.AgentDeps{
		Client:   client,
		Config:   cfg,
		Library:  lib,
		Emitter:  emitter,
		Alloc:    filesystem.NewAllocator(),
		Log:      log,
		DataRoot: dataRoot,
	}

	controlServer := api.NewControlServer(log, cfg, manager, lib)
	controlServer.Start(cfg.ControlPort())

	if err := autostart.Sync(cfg.Autostart()); err != nil {
		log.Warn("failed to sync autostart state", "error", err)
	}

	application := app.NewApp(log, emitter, db, cfg, client, lib, manager, agentDeps)

	startHidden := false
	for _, arg := range os.Args {
		if arg == "--minimized" {
			startHidden = true
		}
	}

	appMenu := menu.NewMenu()
	fileMenu := appMenu.AddSubmenu("File")
	fileMenu.AddText("Open Drop", keys.CmdOrCtrl("o"), func(_ *menu.CallbackData) {
		application.ShowApp()
	})
	fileMenu.AddSeparator()
	fileMenu.AddText("Quit", keys.CmdOrCtrl("q"), func(_ *menu.CallbackData) {
		application.QuitApp()
	})

	err = wails.Run(&options.App{
		Title:  "Drop",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 24, G: 24, B: 27, A: 1},
		OnStartup:        application.Startup,
		OnBeforeClose:    application.BeforeClose,
		StartHidden:      startHidden,
		Menu:             appMenu,
		Bind: []interface{}{
			application,
		},
	})

	if err != nil {
		println("Error:", err.Error())
	}
}

func generateToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "drop-fallback-token-change-me"
	}
	return hex.EncodeToString(b)
}
