package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/polymeet/gateway/internal/pipeline"
	"github.com/polymeet/gateway/internal/provider"
	"github.com/polymeet/gateway/internal/rtc"
	"github.com/polymeet/gateway/internal/session"
	signalhub "github.com/polymeet/gateway/internal/signal"
	"github.com/polymeet/gateway/internal/simulate"
	"github.com/polymeet/gateway/internal/speech"
	"github.com/polymeet/gateway/internal/transcript"
	"github.com/polymeet/gateway/internal/ws"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := loadConfig()

	// Speech provider: OpenAI when a key is present, offline demo payloads
	// otherwise. The pipeline clients call back into this process.
	var upstream provider.Provider
	if cfg.openaiAPIKey != "" {
		upstream = provider.NewOpenAI(cfg.openaiAPIKey)
		slog.Info("speech provider enabled", "provider", "openai")
	} else {
		slog.Info("speech provider in demo mode")
	}
	providerHandler := provider.NewHandler(upstream)

	sttClient := pipeline.NewSTTClient(cfg.providerURL, cfg.sttPoolSize)
	translateClient := pipeline.NewTranslateClient(cfg.providerURL, cfg.translatePoolSize)
	ttsClient := speech.NewTTSClient(cfg.providerURL, cfg.ttsPoolSize)

	var transcriptStore *transcript.Store
	if cfg.transcriptDBURL != "" {
		var err error
		transcriptStore, err = transcript.Open(cfg.transcriptDBURL)
		if err != nil {
			slog.Error("transcript store open failed", "error", err)
			os.Exit(1)
		}
		defer transcriptStore.Close()
		slog.Info("transcript persistence enabled")
	}

	registry := session.NewRegistry()
	hub := signalhub.NewHub()

	wsHandler := ws.NewHandler(ws.HandlerConfig{
		Registry:           registry,
		Hub:                hub,
		STT:                sttClient,
		Translator:         translateClient,
		TTS:                ttsClient,
		Voices:             defaultVoices(),
		RTCFactory:         rtc.NewPionFactory(cfg.stunServers),
		TranscriptStore:    transcriptStore,
		MaxConcurrent:      cfg.maxConcurrentSessions,
		SilenceThresholdDB: cfg.silenceThresholdDB,
	})

	mux := http.NewServeMux()
	registerRoutes(mux, deps{
		registry:    registry,
		provider:    providerHandler,
		wsHandler:   wsHandler,
		transcripts: transcriptStore,
	})

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	var sim *simulate.Simulator
	if cfg.demoRoom != "" {
		sim = startDemoRoom(rootCtx, cfg.demoRoom, registry, hub, ttsClient)
	}

	addr := ":" + cfg.port
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		if sim != nil {
			sim.Disconnect()
		}
		rootCancel()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	slog.Info("gateway starting", "addr", addr, "max_concurrent", cfg.maxConcurrentSessions)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}

	slog.Info("gateway stopped")
}

// startDemoRoom runs the scripted conversation in its own room so the demo
// has something to show before any client speaks. The room is retained in the
// registry: clients coming and going must not drop the simulator's store.
func startDemoRoom(ctx context.Context, roomID string, registry *session.Registry, hub *signalhub.Hub, tts speech.AudioSynthesizer) *simulate.Simulator {
	store := registry.Retain(roomID)

	// Mirror roster and speaker changes from the scripted session out to any
	// watching clients.
	var mu sync.Mutex
	var lastSpeaker string
	var lastRoster int
	store.OnChange(func(snap session.Snapshot) {
		mu.Lock()
		speakerChanged := snap.CurrentSpeaker != lastSpeaker
		rosterChanged := len(snap.Participants) != lastRoster
		lastSpeaker = snap.CurrentSpeaker
		lastRoster = len(snap.Participants)
		mu.Unlock()
		if rosterChanged {
			hub.BroadcastRoster(roomID, snap.Participants)
		}
		if speakerChanged {
			hub.BroadcastSpeaker(roomID, snap.CurrentSpeaker)
		}
	})

	speaker := speech.NewSynthesizer(defaultVoices(), tts, demoPlayer{hub: hub, roomID: roomID})
	if err := speaker.Init(ctx); err != nil {
		slog.Warn("demo speech init failed", "error", err)
	}

	sim := simulate.New(simulate.Config{
		Store: store,
		Speak: func(ctx context.Context, text, language string) error {
			return speaker.Speak(ctx, text, language, 0, 0)
		},
		OnSubtitle: func(sub session.Subtitle) {
			hub.BroadcastSubtitle(roomID, sub)
		},
	})
	go func() {
		if err := sim.Connect(ctx); err != nil {
			slog.Warn("demo room connect aborted", "error", err)
			return
		}
		slog.Info("demo room running", "room_id", roomID)
	}()
	return sim
}

type demoPlayer struct {
	hub    *signalhub.Hub
	roomID string
}

func (p demoPlayer) Play(ctx context.Context, audio []byte, rate, pitch float64) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	p.hub.BroadcastBinary(p.roomID, audio)
	return nil
}

// defaultVoices is the gateway's built-in voice inventory, one per upstream
// TTS language.
func defaultVoices() speech.StaticVoices {
	return speech.StaticVoices{
		{Name: "alloy-en", Lang: "en-US"},
		{Name: "nova-es", Lang: "es-ES"},
		{Name: "shimmer-fr", Lang: "fr-FR"},
		{Name: "echo-de", Lang: "de-DE"},
		{Name: "fable-it", Lang: "it-IT"},
		{Name: "onyx-pt", Lang: "pt-BR"},
		{Name: "alloy-ja", Lang: "ja-JP"},
		{Name: "nova-ko", Lang: "ko-KR"},
		{Name: "shimmer-zh", Lang: "zh-CN"},
		{Name: "alloy-ar", Lang: "ar-SA"},
	}
}
