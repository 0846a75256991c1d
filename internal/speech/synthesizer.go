package speech

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// AudioSynthesizer produces audio bytes for text in a locale. Satisfied by
// TTSClient; tests substitute a recorder.
type AudioSynthesizer interface {
	Synthesize(ctx context.Context, text, langCode string) ([]byte, error)
}

// Player renders synthesized audio and blocks until playback completes or
// ctx is cancelled. The server's player broadcasts frames to room clients.
type Player interface {
	Play(ctx context.Context, audio []byte, rate, pitch float64) error
}

// SynthesisError reports a failed utterance with a coarse error code.
type SynthesisError struct {
	Code string
	Err  error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("speech synthesis %s: %v", e.Code, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

const (
	voicePollInterval = 100 * time.Millisecond
	voicePollAttempts = 50
)

// Synthesizer voices text through an AudioSynthesizer and a Player. At most
// one utterance plays at a time; a new Speak cancels the one in flight, and
// Stop cancels immediately.
type Synthesizer struct {
	provider VoiceProvider
	synth    AudioSynthesizer
	player   Player

	mu      sync.Mutex
	voices  []Voice
	ready   bool
	current context.CancelFunc
	seq     uint64
}

// NewSynthesizer wires the three collaborators. A nil provider means
// synthesis is unsupported and every Speak is a logged no-op.
func NewSynthesizer(provider VoiceProvider, synth AudioSynthesizer, player Player) *Synthesizer {
	return &Synthesizer{provider: provider, synth: synth, player: player}
}

// Init polls the voice provider until at least one voice is available, the
// attempt budget runs out, or ctx ends. Providers that legitimately have no
// voices leave the synthesizer unsupported rather than failing Init.
func (s *Synthesizer) Init(ctx context.Context) error {
	if s.provider == nil {
		return nil
	}
	for i := 0; i < voicePollAttempts; i++ {
		voices, err := s.provider.Voices(ctx)
		if err != nil {
			return fmt.Errorf("speech: list voices: %w", err)
		}
		if len(voices) > 0 {
			s.mu.Lock()
			s.voices = voices
			s.ready = true
			s.mu.Unlock()
			slog.Info("speech synthesis initialized", "voices", len(voices))
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(voicePollInterval):
		}
	}
	slog.Warn("speech synthesis found no voices, disabled")
	return nil
}

// IsSupported reports whether Speak will do anything.
func (s *Synthesizer) IsSupported() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready && len(s.voices) > 0
}

// VoiceFor resolves the voice that would be used for a language name.
func (s *Synthesizer) VoiceFor(language string) (Voice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return selectVoice(s.voices, language)
}

// Speak voices text in the named language, cancelling any utterance already
// playing. It blocks until playback completes and returns a *SynthesisError
// on failure. Unsupported synthesizers no-op.
func (s *Synthesizer) Speak(ctx context.Context, text, languageName string, rate, pitch float64) error {
	if !s.IsSupported() {
		slog.Warn("speech synthesis not supported, skipping", "language", languageName)
		return nil
	}
	if rate == 0 {
		rate = 0.9
	}
	if pitch == 0 {
		pitch = 1.0
	}

	voice, _ := s.VoiceFor(languageName)
	lang := voice.Lang
	if lang == "" {
		lang = LocaleFor(languageName)
	}
	// The upstream endpoint keys voices on the bare language code.
	code, _, _ := strings.Cut(lang, "-")

	utterCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.current != nil {
		s.current()
	}
	s.seq++
	id := s.seq
	s.current = cancel
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		// Only release the slot if a newer utterance has not claimed it.
		if s.seq == id {
			s.current = nil
		}
		s.mu.Unlock()
	}()

	audio, err := s.synth.Synthesize(utterCtx, text, code)
	if err != nil {
		return &SynthesisError{Code: "synthesis-failed", Err: err}
	}
	if err := s.player.Play(utterCtx, audio, rate, pitch); err != nil {
		if utterCtx.Err() != nil {
			return nil // cancelled by a newer utterance or Stop
		}
		return &SynthesisError{Code: "playback-failed", Err: err}
	}
	return nil
}

// Stop cancels the utterance in flight, if any.
func (s *Synthesizer) Stop() {
	s.mu.Lock()
	if s.current != nil {
		s.current()
		s.current = nil
	}
	s.mu.Unlock()
}
