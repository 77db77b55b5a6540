package app

import (
	"context"

	"drop-desktop/internal/database"
	"drop-desktop/internal/events"
)

// AuthInitiate begins the browser sign-in flow and returns the URL to open.
func (a *App) AuthInitiate() string {
	a.log.Info("frontend_request", "method", "AuthInitiate")
	a.emitter.Emit(events.AuthProcessing, nil)

	url, err := a.client.AuthInitiate("callback")
	if err != nil {
		a.log.Error("auth initiate failed", "error", err)
		a.emitter.Emit(events.AuthFailed, err.Error())
		return ""
	}
	return url
}

// AuthHandshake exchanges the browser-issued token for the client
// certificate and persists it.
func (a *App) AuthHandshake(clientID, token string) bool {
	a.log.Info("frontend_request", "method", "AuthHandshake", "clientId", clientID)

	resp, err := a.client.Handshake(clientID, token)
	if err != nil {
		a.log.Error("handshake failed", "error", err)
		a.emitter.Emit(events.AuthFailed, err.Error())
		return false
	}

	if err := a.db.SetAuth(&database.AuthRecord{
		ClientID:    resp.ID,
		PrivateKey:  resp.Private,
		Certificate: resp.Certificate,
	}); err != nil {
		a.log.Error("failed to persist auth", "error", err)
		a.emitter.Emit(events.AuthFailed, err.Error())
		return false
	}

	// Web token is best effort; a failed fetch does not fail the handshake.
	if webToken, err := a.client.FetchWebToken(); err == nil {
		if err := a.db.SetWebToken(webToken); err != nil {
			a.log.Warn("failed to store web token", "error", err)
		}
	}

	a.emitter.Emit(events.AuthFinished, nil)
	return true
}

// SignOut drops the stored certificate material.
func (a *App) SignOut() {
	a.log.Info("frontend_request", "method", "SignOut")
	if err := a.db.ClearAuth(); err != nil {
		a.log.Error("failed to clear auth", "error", err)
		return
	}
	a.emitter.Emit(events.AuthSignedOut, nil)
}

// CheckServer probes the configured server.
func (a *App) CheckServer() bool {
	err := a.client.Healthcheck(context.Background())
	if err != nil {
		a.log.Warn("healthcheck failed", "error", err)
		return false
	}
	return true
}
