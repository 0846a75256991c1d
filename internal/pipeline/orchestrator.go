package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/polymeet/gateway/internal/audio"
	"github.com/polymeet/gateway/internal/capture"
	"github.com/polymeet/gateway/internal/metrics"
	"github.com/polymeet/gateway/internal/session"
)

// State is the orchestrator's position in the capture cycle.
type State int32

const (
	StateIdle State = iota
	StateCapturing
	StateTranscribing
	StateTranslating
	StateSpeaking
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateTranscribing:
		return "transcribing"
	case StateTranslating:
		return "translating"
	case StateSpeaking:
		return "speaking"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Speaker voices a finished subtitle. Satisfied by speech.Synthesizer.
type Speaker interface {
	Speak(ctx context.Context, text, languageName string, rate, pitch float64) error
}

// Config wires one orchestrator to its room.
type Config struct {
	Store       *session.Store
	Recognizer  Transcriber
	Translator  Translator
	Speaker     Speaker // optional
	Participant session.Participant
	OnSubtitle  func(session.Subtitle) // optional, called after store append

	// Chunks quieter than this are dropped before transcription. Zero
	// disables the gate.
	SilenceThresholdDB float64

	// ChunkInterval overrides the capture cadence, mainly for tests.
	ChunkInterval time.Duration
}

// Orchestrator drives one participant's chunks through recognize → translate
// → emit → (speak). At most one chunk is in flight; chunks arriving while
// busy are dropped, never queued. Settings are re-read from the store at
// each stage so preference changes apply mid-utterance.
type Orchestrator struct {
	cfg Config
	rec *capture.Recorder

	state  atomic.Int32
	busy   atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator builds an orchestrator over src.
func NewOrchestrator(cfg Config, src capture.Source) *Orchestrator {
	o := &Orchestrator{cfg: cfg}
	o.rec = capture.NewRecorder(src, cfg.ChunkInterval)
	o.state.Store(int32(StateIdle))
	return o
}

// State returns the current pipeline state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Start opens capture and begins the cycle. Capture open failures
// (permission, device) pass through wrapped.
func (o *Orchestrator) Start(ctx context.Context) error {
	if !o.state.CompareAndSwap(int32(StateIdle), int32(StateCapturing)) {
		return fmt.Errorf("pipeline: start from state %s", o.State())
	}
	o.ctx, o.cancel = context.WithCancel(ctx)
	if err := o.rec.Initialize(o.handleChunk); err != nil {
		o.state.Store(int32(StateStopped))
		o.cancel()
		return err
	}
	if err := o.rec.StartRecording(); err != nil {
		o.state.Store(int32(StateStopped))
		o.cancel()
		return err
	}
	slog.Info("pipeline started", "participant_id", o.cfg.Participant.ID)
	return nil
}

// Stop tears the pipeline down: capture is released, the in-flight chunk (if
// any) is cancelled, and no subtitle is emitted afterwards. Idempotent.
func (o *Orchestrator) Stop() {
	prev := State(o.state.Swap(int32(StateStopped)))
	if prev == StateStopped {
		return
	}
	if o.cancel != nil {
		o.cancel()
	}
	o.rec.Cleanup()
	o.wg.Wait()
	slog.Info("pipeline stopped", "participant_id", o.cfg.Participant.ID)
}

func (o *Orchestrator) handleChunk(chunk capture.Chunk) {
	if o.State() == StateStopped {
		return
	}
	if !o.busy.CompareAndSwap(false, true) {
		metrics.ChunksDropped.Inc()
		return
	}
	o.wg.Add(1)
	go o.process(chunk)
}

// setState transitions unless the pipeline was stopped meanwhile.
func (o *Orchestrator) setState(s State) bool {
	for {
		cur := o.state.Load()
		if State(cur) == StateStopped {
			return false
		}
		if o.state.CompareAndSwap(cur, int32(s)) {
			return true
		}
	}
}

func (o *Orchestrator) process(chunk capture.Chunk) {
	defer o.wg.Done()
	defer o.busy.Store(false)

	ctx := o.ctx
	if ctx.Err() != nil {
		return
	}

	if o.cfg.SilenceThresholdDB != 0 && audio.IsSilence(chunk.Samples, o.cfg.SilenceThresholdDB) {
		return
	}

	if !o.setState(StateTranscribing) {
		return
	}
	tr, err := o.cfg.Recognizer.Transcribe(ctx, chunk.Samples, chunk.SampleRate)
	if err != nil {
		slog.Warn("transcription failed", "participant_id", o.cfg.Participant.ID, "error", err)
		o.setState(StateCapturing)
		return
	}
	if strings.TrimSpace(tr.Text) == "" {
		o.setState(StateCapturing)
		return
	}

	if !o.setState(StateTranslating) {
		return
	}
	settings := o.cfg.Store.Settings()
	translated, err := o.cfg.Translator.Translate(ctx, tr.Text, tr.Language, settings.PreferredLanguage)
	if err != nil {
		slog.Warn("translation failed, using original text", "participant_id", o.cfg.Participant.ID, "error", err)
		translated = tr.Text
	}

	if ctx.Err() != nil {
		return
	}
	sub := o.cfg.Store.AppendSubtitle(session.Subtitle{
		ParticipantID:  o.cfg.Participant.ID,
		Name:           o.cfg.Participant.Name,
		OriginalText:   tr.Text,
		TranslatedText: translated,
		Language:       settings.PreferredLanguage,
		Timestamp:      time.Now(),
	})
	if o.cfg.OnSubtitle != nil {
		o.cfg.OnSubtitle(sub)
	}

	// Settings re-read: speech may have been toggled while translating.
	settings = o.cfg.Store.Settings()
	if settings.SpeechEnabled && o.cfg.Speaker != nil {
		if !o.setState(StateSpeaking) {
			return
		}
		metrics.SynthesisUtterances.Inc()
		if err := o.cfg.Speaker.Speak(ctx, translated, settings.PreferredLanguage, settings.SpeechRate, settings.SpeechPitch); err != nil {
			slog.Warn("synthesis failed", "participant_id", o.cfg.Participant.ID, "error", err)
		}
	}

	o.setState(StateCapturing)
}
