package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "session_rooms_active",
		Help: "Currently connected session rooms",
	})

	SessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_rooms_total",
		Help: "Total session rooms opened",
	})

	AudioChunks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audio_chunks_captured_total",
		Help: "Total audio chunks emitted by capture",
	})

	ChunksDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audio_chunks_dropped_total",
		Help: "Chunks dropped because a previous chunk was still in flight",
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_stage_duration_seconds",
		Help:    "Per-stage latency",
		Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.8, 1.0, 2.0, 5.0},
	}, []string{"stage"})

	StageFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_stage_fallbacks_total",
		Help: "Stage results served from the deterministic fallback path",
	}, []string{"stage"})

	SubtitlesEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subtitles_emitted_total",
		Help: "Subtitle entries appended to session state",
	})

	SynthesisUtterances = promauto.NewCounter(prometheus.CounterOpts{
		Name: "synthesis_utterances_total",
		Help: "Utterances handed to speech synthesis",
	})

	PeerConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rtc_peer_connections",
		Help: "Peer connection records currently held",
	})

	SignalingErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rtc_signaling_errors_total",
		Help: "Signaling operations that failed",
	})
)
