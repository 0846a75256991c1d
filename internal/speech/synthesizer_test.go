package speech

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeSynth struct {
	mu    sync.Mutex
	calls []string // "text|lang"
	err   error
}

func (f *fakeSynth) Synthesize(_ context.Context, text, langCode string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, text+"|"+langCode)
	return []byte("audio:" + text), nil
}

type recordingPlayer struct {
	mu     sync.Mutex
	played [][]byte
	rates  []float64
}

func (p *recordingPlayer) Play(_ context.Context, audio []byte, rate, _ float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, audio)
	p.rates = append(p.rates, rate)
	return nil
}

func TestVoiceSelection(t *testing.T) {
	t.Parallel()

	voices := []Voice{
		{Name: "brit", Lang: "en-GB"},
		{Name: "mex", Lang: "es-MX"},
		{Name: "par", Lang: "fr-FR"},
	}

	tests := []struct {
		language string
		want     string
	}{
		{"Spanish", "mex"},  // es-ES misses, es-MX prefix-matches
		{"English", "brit"}, // en-US misses, en-GB matches
		{"French", "par"},   // exact locale
		{"Klingon", "brit"}, // unknown language settles for first voice
		{"German", "brit"},  // known language, no matching voice
	}
	for _, tt := range tests {
		t.Run(tt.language, func(t *testing.T) {
			v, ok := selectVoice(voices, tt.language)
			if !ok {
				t.Fatal("expected a voice")
			}
			if v.Name != tt.want {
				t.Errorf("got %q want %q", v.Name, tt.want)
			}
		})
	}

	if _, ok := selectVoice(nil, "English"); ok {
		t.Error("expected no voice from empty inventory")
	}
}

func TestCaseInsensitivePrefixMatch(t *testing.T) {
	t.Parallel()

	voices := []Voice{{Name: "loud", Lang: "EN-us"}}
	v, ok := selectVoice(voices, "English")
	if !ok || v.Name != "loud" {
		t.Errorf("expected case-insensitive match, got %+v ok=%v", v, ok)
	}
}

func TestSpeakSynthesizesAndPlays(t *testing.T) {
	t.Parallel()

	synth := &fakeSynth{}
	player := &recordingPlayer{}
	s := NewSynthesizer(StaticVoices{{Name: "v", Lang: "es-ES"}}, synth, player)
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if !s.IsSupported() {
		t.Fatal("expected supported")
	}

	if err := s.Speak(context.Background(), "hola", "Spanish", 1.1, 1.0); err != nil {
		t.Fatalf("speak: %v", err)
	}

	synth.mu.Lock()
	defer synth.mu.Unlock()
	if len(synth.calls) != 1 || synth.calls[0] != "hola|es" {
		t.Errorf("unexpected synth calls: %v", synth.calls)
	}
	player.mu.Lock()
	defer player.mu.Unlock()
	if len(player.played) != 1 || string(player.played[0]) != "audio:hola" {
		t.Errorf("unexpected playback: %q", player.played)
	}
	if player.rates[0] != 1.1 {
		t.Errorf("rate not forwarded: %v", player.rates[0])
	}
}

func TestSpeakUnsupportedIsNoOp(t *testing.T) {
	t.Parallel()

	synth := &fakeSynth{}
	s := NewSynthesizer(nil, synth, &recordingPlayer{})
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if s.IsSupported() {
		t.Fatal("expected unsupported")
	}
	if err := s.Speak(context.Background(), "hi", "English", 0, 0); err != nil {
		t.Errorf("unsupported speak must be a silent no-op, got %v", err)
	}
	synth.mu.Lock()
	defer synth.mu.Unlock()
	if len(synth.calls) != 0 {
		t.Error("synth called despite being unsupported")
	}
}

func TestSpeakReportsSynthesisError(t *testing.T) {
	t.Parallel()

	synth := &fakeSynth{err: errors.New("endpoint down")}
	s := NewSynthesizer(StaticVoices{{Name: "v", Lang: "en-US"}}, synth, &recordingPlayer{})
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	err := s.Speak(context.Background(), "hi", "English", 0, 0)
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("expected *SynthesisError, got %v", err)
	}
	if synthErr.Code != "synthesis-failed" {
		t.Errorf("unexpected code %q", synthErr.Code)
	}
}

// blockingPlayer holds playback until its context is cancelled, so a second
// Speak can demonstrate cancel-before-speak.
type blockingPlayer struct {
	started chan struct{}
	mu      sync.Mutex
	cancels int
}

func (p *blockingPlayer) Play(ctx context.Context, _ []byte, _, _ float64) error {
	select {
	case p.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	p.mu.Lock()
	p.cancels++
	p.mu.Unlock()
	return ctx.Err()
}

func TestNewUtteranceCancelsCurrent(t *testing.T) {
	t.Parallel()

	player := &blockingPlayer{started: make(chan struct{}, 1)}
	s := NewSynthesizer(StaticVoices{{Name: "v", Lang: "en-US"}}, &fakeSynth{}, player)
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.Speak(context.Background(), "first", "English", 0, 0) }()
	<-player.started

	s.Stop()
	if err := <-errCh; err != nil {
		t.Errorf("cancelled utterance must not report an error, got %v", err)
	}
	player.mu.Lock()
	defer player.mu.Unlock()
	if player.cancels != 1 {
		t.Errorf("expected 1 cancelled playback, got %d", player.cancels)
	}
}
