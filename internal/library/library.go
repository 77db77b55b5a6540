// Package library tracks what is installed: durable per-game install state in
// the database, transient run state in memory, and the update_game events
// that keep the frontend current.
package library

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"drop-desktop/internal/database"
	"drop-desktop/internal/events"
	"drop-desktop/internal/remote"
)

// TransientKind is the ephemeral activity a game can be in. A game has at
// most one transient status at any time, and it always wins over the durable
// status in the UI.
type TransientKind string

const (
	TransientQueued       TransientKind = "queued"
	TransientDownloading  TransientKind = "downloading"
	TransientValidating   TransientKind = "validating"
	TransientUninstalling TransientKind = "uninstalling"
	TransientRunning      TransientKind = "running"
)

// TransientStatus is one ephemeral state with the version it refers to.
type TransientStatus struct {
	Kind        TransientKind `json:"kind"`
	VersionName string        `json:"version_name,omitempty"`
}

// GameStatus pairs durable and transient state; exactly one side is set when
// anything is known about the game.
type GameStatus struct {
	Durable   *database.GameStatusRow `json:"durable,omitempty"`
	Transient *TransientStatus        `json:"transient,omitempty"`
}

// GameUpdateEvent is the update_game/<id> payload.
type GameUpdateEvent struct {
	GameID  string                      `json:"game_id"`
	Status  GameStatus                  `json:"status"`
	Version *database.GameVersionRecord `json:"version,omitempty"`
}

type Service struct {
	db      *database.DB
	client  *remote.Client
	emitter events.Emitter
	log     *slog.Logger

	mu        sync.Mutex
	transient map[string]TransientStatus
}

func NewService(db *database.DB, client *remote.Client, emitter events.Emitter, log *slog.Logger) *Service {
	return &Service{
		db:        db,
		client:    client,
		emitter:   emitter,
		log:       log,
		transient: make(map[string]TransientStatus),
	}
}

// FetchState resolves a game's visible status: transient wins, then durable,
// then nothing (remote).
func (s *Service) FetchState(gameID string) GameStatus {
	s.mu.Lock()
	transient, ok := s.transient[gameID]
	s.mu.Unlock()
	if ok {
		return GameStatus{Transient: &transient}
	}

	row, err := s.db.GameStatus(gameID)
	if err != nil {
		s.log.Error("failed to read game status", "game", gameID, "error", err)
		return GameStatus{}
	}
	if row != nil {
		return GameStatus{Durable: row}
	}
	return GameStatus{}
}

// SetTransient records an ephemeral status and pushes the game update.
func (s *Service) SetTransient(gameID string, status TransientStatus) {
	s.mu.Lock()
	s.transient[gameID] = status
	s.mu.Unlock()
	s.pushUpdate(gameID, GameStatus{Transient: &status}, nil)
}

// ClearTransient drops the ephemeral status; the game falls back to its
// durable state in the UI.
func (s *Service) ClearTransient(gameID string) {
	s.mu.Lock()
	delete(s.transient, gameID)
	s.mu.Unlock()
	s.pushUpdate(gameID, s.FetchState(gameID), nil)
}

func (s *Service) pushUpdate(gameID string, status GameStatus, version *database.GameVersionRecord) {
	s.emitter.Emit(events.GameUpdate(gameID), GameUpdateEvent{
		GameID:  gameID,
		Status:  status,
		Version: version,
	})
}

// SetPartiallyInstalled durably records that some of a version is on disk.
// Called on cancel, and silently while downloading so an unexpected exit can
// still resume. With push=false no event is emitted (the transient
// downloading state already covers the UI).
func (s *Service) SetPartiallyInstalled(gameID, versionName, installDir string, push bool) {
	row := &database.GameStatusRow{
		GameID:      gameID,
		Status:      database.StatusPartiallyInstalled,
		VersionName: versionName,
		InstallDir:  installDir,
	}
	if err := s.db.SetGameStatus(row); err != nil {
		s.log.Error("failed to persist partially installed state", "game", gameID, "error", err)
	}
	if err := s.db.SetInstalledVersion(gameID, versionName); err != nil {
		s.log.Error("failed to persist installed version", "game", gameID, "error", err)
	}

	if push {
		s.mu.Lock()
		delete(s.transient, gameID)
		s.mu.Unlock()
		s.pushUpdate(gameID, GameStatus{Durable: row}, nil)
	}
}

// OnGameComplete marks a finished download installed. The version metadata
// fetch decides between installed and setup-required; if that fetch fails the
// game is still durably installed with what the client knows, and the error
// is returned for the caller to surface. A completed download is never
// rolled back by a metadata failure.
func (s *Service) OnGameComplete(ctx context.Context, gameID, versionName, installDir string) error {
	rec, fetchErr := s.client.FetchGameVersion(ctx, gameID, versionName)
	if fetchErr != nil {
		s.log.Error("could not fetch version metadata for completed game",
			"game", gameID, "version", versionName, "error", fetchErr)
	} else if err := s.db.SaveGameVersion(rec); err != nil {
		s.log.Error("failed to save game version record", "game", gameID, "error", err)
	}

	status := database.StatusInstalled
	if rec != nil && rec.SetupCommand != "" {
		status = database.StatusSetupRequired
	}

	row := &database.GameStatusRow{
		GameID:      gameID,
		Status:      status,
		VersionName: versionName,
		InstallDir:  installDir,
	}
	if err := s.db.SetGameStatus(row); err != nil {
		return err
	}
	if err := s.db.SetInstalledVersion(gameID, versionName); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.transient, gameID)
	s.mu.Unlock()

	s.pushUpdate(gameID, GameStatus{Durable: row}, rec)

	if fetchErr != nil {
		return fmt.Errorf("game installed, but its version metadata could not be fetched: %w", fetchErr)
	}
	return nil
}

// Uninstall removes the install dir in the background and returns the game to
// remote. While it runs the game shows as uninstalling.
func (s *Service) Uninstall(gameID string) {
	row, err := s.db.GameStatus(gameID)
	if err != nil || row == nil || row.InstallDir == "" {
		s.log.Warn("uninstall has no previous state, failing silently", "game", gameID)
		return
	}

	s.SetTransient(gameID, TransientStatus{Kind: TransientUninstalling})

	installDir := row.InstallDir
	go func() {
		if err := os.RemoveAll(installDir); err != nil {
			s.log.Error("failed to remove install dir", "game", gameID, "error", err)
			s.ClearTransient(gameID)
			return
		}

		if err := s.db.DeleteGameStatus(gameID); err != nil {
			s.log.Error("failed to clear game status", "game", gameID, "error", err)
		}
		if err := s.db.DeleteInstalledVersion(gameID); err != nil {
			s.log.Error("failed to clear installed version", "game", gameID, "error", err)
		}

		s.mu.Lock()
		delete(s.transient, gameID)
		s.mu.Unlock()

		s.pushUpdate(gameID, GameStatus{}, nil)
		s.emitter.Emit(events.UpdateLibrary, nil)
		s.log.Debug("uninstalled game", "game", gameID)
	}()
}
