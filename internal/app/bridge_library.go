package app

import "drop-desktop/internal/library"

// FetchGameStatus resolves one game's visible state for the frontend.
func (a *App) FetchGameStatus(gameID string) library.GameStatus {
	return a.library.FetchState(gameID)
}

// UninstallGame removes the game's install dir and returns it to remote.
func (a *App) UninstallGame(gameID string) {
	a.log.Info("frontend_request", "method", "UninstallGame", "id", gameID)
	a.library.Uninstall(gameID)
}
