// Package events is the one-way bus between the backend and the frontend.
// Everything the UI learns about downloads, auth and library state arrives
// through Emit.
package events

import (
	"context"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// Event streams the frontend subscribes to.
const (
	UpdateQueue   = "update_queue"
	UpdateStats   = "update_stats"
	UpdateLibrary = "update_library"
	DownloadError = "download_error"

	AuthProcessing = "auth/processing"
	AuthFailed     = "auth/failed"
	AuthFinished   = "auth/finished"
	AuthSignedOut  = "auth/signedout"
)

// GameUpdate returns the per-game event stream name.
func GameUpdate(gameID string) string {
	return "update_game/" + gameID
}

// Emitter is the only surface the rest of the app uses to reach the UI.
type Emitter interface {
	Emit(event string, payload interface{})
}

// WailsEmitter emits through the Wails runtime. Until the context is set
// (Wails startup), events are dropped silently.
type WailsEmitter struct {
	mu  sync.RWMutex
	ctx context.Context
}

func NewWailsEmitter() *WailsEmitter {
	return &WailsEmitter{}
}

func (e *WailsEmitter) SetContext(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctx = ctx
}

func (e *WailsEmitter) Emit(event string, payload interface{}) {
	e.mu.RLock()
	ctx := e.ctx
	e.mu.RUnlock()

	if ctx == nil {
		return
	}
	runtime.EventsEmit(ctx, event, payload)
}

// Recorded is a single captured emission.
type Recorded struct {
	Event   string
	Payload interface{}
}

// Recorder buffers emissions for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{Event: event, Payload: payload})
}

// Events returns a snapshot of everything emitted so far.
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many times event was emitted.
func (r *Recorder) Count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Event == event {
			n++
		}
	}
	return n
}
