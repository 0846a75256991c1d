package simulate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/polymeet/gateway/internal/session"
)

func fastConfig(store *session.Store) Config {
	return Config{
		Store:         store,
		Script:        fastScript(DefaultScript()),
		ConnectDelay:  time.Millisecond,
		JoinStagger:   time.Millisecond,
		StartDelay:    5 * time.Millisecond,
		SubtitleDelay: time.Millisecond,
		MessageGap:    time.Millisecond,
		CyclePause:    time.Millisecond,
	}
}

// fastScript shrinks line durations so loops spin in milliseconds.
func fastScript(script []Line) []Line {
	for i := range script {
		script[i].Duration = 2 * time.Millisecond
	}
	return script
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestConnectJoinsRosterAndEmitsSubtitles(t *testing.T) {
	t.Parallel()

	store := session.NewStore()
	sim := New(fastConfig(store))
	if err := sim.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sim.Disconnect()

	if !store.Connected() {
		t.Error("expected connected after Connect returns")
	}

	waitFor(t, func() bool { return len(store.Participants()) == len(DefaultRoster()) })
	waitFor(t, func() bool { return len(store.Subtitles()) >= 2 })

	subs := store.Subtitles()
	if subs[0].ParticipantID != "user-1" || subs[0].OriginalText != "How are you doing today?" {
		t.Errorf("unexpected first subtitle: %+v", subs[0])
	}
}

func TestSubtitleUsesPreferredLanguage(t *testing.T) {
	t.Parallel()

	store := session.NewStore()
	settings := store.Settings()
	settings.PreferredLanguage = "Spanish"
	store.SetSettings(settings)

	sim := New(fastConfig(store))
	if err := sim.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sim.Disconnect()

	waitFor(t, func() bool { return len(store.Subtitles()) >= 1 })
	if got := store.Subtitles()[0].TranslatedText; got != "¿Cómo estás hoy?" {
		t.Errorf("expected Spanish translation, got %q", got)
	}
}

func TestSubtitleFallsBackToOriginalText(t *testing.T) {
	t.Parallel()

	store := session.NewStore()
	settings := store.Settings()
	settings.PreferredLanguage = "Finnish" // not in any line's table
	store.SetSettings(settings)

	sim := New(fastConfig(store))
	if err := sim.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sim.Disconnect()

	waitFor(t, func() bool { return len(store.Subtitles()) >= 1 })
	sub := store.Subtitles()[0]
	if sub.TranslatedText != sub.OriginalText {
		t.Errorf("expected original text fallback, got %q", sub.TranslatedText)
	}
}

func TestDisconnectStopsEmission(t *testing.T) {
	t.Parallel()

	store := session.NewStore()
	sim := New(fastConfig(store))
	if err := sim.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitFor(t, func() bool { return len(store.Subtitles()) >= 1 })

	sim.Disconnect()
	sim.Disconnect() // idempotent

	if store.Connected() {
		t.Error("expected disconnected")
	}
	n := len(store.Subtitles())
	time.Sleep(20 * time.Millisecond)
	if got := len(store.Subtitles()); got != n {
		t.Errorf("subtitles kept flowing after disconnect: %d -> %d", n, got)
	}
	if store.CurrentSpeaker() != "" {
		t.Error("speaker left set after disconnect")
	}
}

func TestSpeakInvokedWhenSpeechEnabled(t *testing.T) {
	t.Parallel()

	store := session.NewStore()
	settings := store.Settings()
	settings.SpeechEnabled = true
	settings.PreferredLanguage = "Spanish"
	store.SetSettings(settings)

	var mu sync.Mutex
	var spoken []string
	cfg := fastConfig(store)
	cfg.Speak = func(_ context.Context, text, language string) error {
		mu.Lock()
		defer mu.Unlock()
		spoken = append(spoken, language+"|"+text)
		return nil
	}

	sim := New(cfg)
	if err := sim.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sim.Disconnect()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(spoken) >= 1
	})
	mu.Lock()
	defer mu.Unlock()
	if spoken[0] != "Spanish|¿Cómo estás hoy?" {
		t.Errorf("unexpected speech: %q", spoken[0])
	}
}

func TestScriptWrapsAround(t *testing.T) {
	t.Parallel()

	store := session.NewStore()
	cfg := fastConfig(store)
	cfg.Script = fastScript(DefaultScript()[:2])
	sim := New(cfg)
	if err := sim.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sim.Disconnect()

	waitFor(t, func() bool { return len(store.Subtitles()) >= 3 })
	subs := store.Subtitles()
	if subs[2].OriginalText != subs[0].OriginalText {
		t.Errorf("expected wrap to first line, got %q", subs[2].OriginalText)
	}
}
