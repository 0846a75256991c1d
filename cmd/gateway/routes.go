package main

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/polymeet/gateway/internal/provider"
	"github.com/polymeet/gateway/internal/session"
	"github.com/polymeet/gateway/internal/transcript"
)

type deps struct {
	registry    *session.Registry
	provider    *provider.Handler
	wsHandler   http.Handler
	transcripts *transcript.Store // optional
}

// registerRoutes wires all HTTP endpoints to the shared mux.
func registerRoutes(mux *http.ServeMux, d deps) {
	mux.Handle("/ws/rooms/{roomID}", d.wsHandler)
	mux.HandleFunc("/health", handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	d.provider.Register(mux)
	mux.HandleFunc("GET /api/rooms/{roomID}/transcript", d.handleTranscript)
	mux.HandleFunc("GET /api/rooms/{roomID}/subtitles", d.handleSubtitles)
	mux.HandleFunc("GET /api/rooms/{roomID}/participants", d.handleParticipants)
	if d.transcripts != nil {
		mux.HandleFunc("GET /api/transcripts/{sessionID}", d.handleSavedTranscript)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (d deps) room(w http.ResponseWriter, r *http.Request) (*session.Store, bool) {
	store, ok := d.registry.Lookup(r.PathValue("roomID"))
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return nil, false
	}
	return store, true
}

// handleTranscript serves the room's retained history as a plain text
// download.
func (d deps) handleTranscript(w http.ResponseWriter, r *http.Request) {
	store, ok := d.room(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transcript.txt"`)
	w.Write([]byte(store.Transcript()))
}

func (d deps) handleSubtitles(w http.ResponseWriter, r *http.Request) {
	store, ok := d.room(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(store.Subtitles())
}

// handleSavedTranscript serves a persisted room session's subtitles.
func (d deps) handleSavedTranscript(w http.ResponseWriter, r *http.Request) {
	subs, err := d.transcripts.RoomSubtitles(r.PathValue("sessionID"))
	if err != nil {
		http.Error(w, "transcript lookup failed", http.StatusInternalServerError)
		return
	}
	if len(subs) == 0 {
		http.Error(w, "transcript not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(subs)
}

func (d deps) handleParticipants(w http.ResponseWriter, r *http.Request) {
	store, ok := d.room(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"participants":   store.Participants(),
		"currentSpeaker": store.CurrentSpeaker(),
		"connected":      store.Connected(),
	})
}
