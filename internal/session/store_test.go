package session

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestAddParticipantUniqueByID(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.AddParticipant(Participant{ID: "p1", Name: "Alice"})
	s.AddParticipant(Participant{ID: "p2", Name: "Bob"})
	s.AddParticipant(Participant{ID: "p1", Name: "Alice Johnson"})

	got := s.Participants()
	if len(got) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(got))
	}
	if got[0].Name != "Alice Johnson" {
		t.Errorf("expected duplicate join to replace record, got name %q", got[0].Name)
	}
}

func TestRemoveParticipantClearsSpeaker(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.AddParticipant(Participant{ID: "p1"})
	s.SetCurrentSpeaker("p1")
	s.RemoveParticipant("p1")

	if got := s.CurrentSpeaker(); got != "" {
		t.Errorf("expected speaker cleared after removal, got %q", got)
	}
	if len(s.Participants()) != 0 {
		t.Error("expected empty roster")
	}

	// Removing an unknown id is a no-op.
	s.RemoveParticipant("nope")
}

func TestCurrentSpeakerLastWriteWins(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.SetCurrentSpeaker("p1")
	s.SetCurrentSpeaker("p2")
	if got := s.CurrentSpeaker(); got != "p2" {
		t.Errorf("expected p2, got %q", got)
	}

	// A stale clear for the old speaker must not stomp the new one.
	s.ClearCurrentSpeaker("p1")
	if got := s.CurrentSpeaker(); got != "p2" {
		t.Errorf("expected p2 after stale clear, got %q", got)
	}
	s.ClearCurrentSpeaker("p2")
	if got := s.CurrentSpeaker(); got != "" {
		t.Errorf("expected speaker cleared, got %q", got)
	}
}

func TestSpeakingFlagTracksCurrentSpeaker(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.AddParticipant(Participant{ID: "p1"})
	s.AddParticipant(Participant{ID: "p2"})

	speaking := func(id string) bool {
		p, ok := s.Participant(id)
		return ok && p.IsSpeaking
	}

	s.SetCurrentSpeaker("p1")
	if !speaking("p1") || speaking("p2") {
		t.Error("expected only p1 flagged as speaking")
	}

	s.SetCurrentSpeaker("p2")
	if speaking("p1") || !speaking("p2") {
		t.Error("expected flag to follow the speaker")
	}

	// A rejoin while speaking must not lose the flag.
	s.AddParticipant(Participant{ID: "p2", Name: "Bob"})
	if !speaking("p2") {
		t.Error("expected flag to survive a roster refresh")
	}

	s.ClearCurrentSpeaker("p2")
	if speaking("p1") || speaking("p2") {
		t.Error("expected no one flagged after clear")
	}
}

func TestSubtitleHistoryBounded(t *testing.T) {
	t.Parallel()

	s := NewStore()
	base := time.Now()
	for i := 0; i < maxSubtitles+10; i++ {
		s.AppendSubtitle(Subtitle{
			ParticipantID:  "p1",
			TranslatedText: fmt.Sprintf("line %d", i),
			Timestamp:      base.Add(time.Duration(i) * time.Second),
		})
	}

	subs := s.Subtitles()
	if len(subs) != maxSubtitles {
		t.Fatalf("expected %d subtitles, got %d", maxSubtitles, len(subs))
	}
	if subs[0].TranslatedText != "line 10" {
		t.Errorf("expected oldest entries evicted, first is %q", subs[0].TranslatedText)
	}
	if subs[len(subs)-1].TranslatedText != fmt.Sprintf("line %d", maxSubtitles+9) {
		t.Errorf("expected newest entry retained, last is %q", subs[len(subs)-1].TranslatedText)
	}
	for i := 1; i < len(subs); i++ {
		if subs[i].Timestamp.Before(subs[i-1].Timestamp) {
			t.Fatalf("subtitles out of order at %d", i)
		}
	}
}

func TestSubtitleIDsUniqueOnCollision(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ts := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		sub := s.AppendSubtitle(Subtitle{ParticipantID: "p1", Timestamp: ts})
		if seen[sub.ID] {
			t.Fatalf("duplicate subtitle id %q", sub.ID)
		}
		seen[sub.ID] = true
		if !strings.HasPrefix(sub.ID, "p1-") {
			t.Errorf("expected participant-prefixed id, got %q", sub.ID)
		}
	}
}

func TestSettingsWholeValueUpdate(t *testing.T) {
	t.Parallel()

	s := NewStore()
	got := s.Settings()
	if got.PreferredLanguage != "English" || !got.SubtitlesEnabled || !got.SpeechEnabled {
		t.Fatalf("unexpected defaults: %+v", got)
	}
	if got.PlayOriginalAudio || got.AutoDownloadTranscript {
		t.Fatalf("expected original passthrough and auto-download off by default: %+v", got)
	}

	s.SetSettings(Settings{PreferredLanguage: "Spanish", SpeechEnabled: true, SpeechRate: 1.2, SpeechPitch: 0.8})
	got = s.Settings()
	if got.PreferredLanguage != "Spanish" || !got.SpeechEnabled {
		t.Errorf("settings not replaced: %+v", got)
	}
	if got.SubtitlesEnabled {
		t.Error("expected whole-value replace to drop unset fields")
	}
}

func TestResetReturnsToInitialState(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.SetConnected(true)
	s.AddParticipant(Participant{ID: "p1"})
	s.SetCurrentSpeaker("p1")
	s.AppendSubtitle(Subtitle{ParticipantID: "p1"})
	s.SetSettings(Settings{PreferredLanguage: "French"})

	s.Reset()

	if s.Connected() || len(s.Participants()) != 0 || len(s.Subtitles()) != 0 || s.CurrentSpeaker() != "" {
		t.Error("reset left state behind")
	}
	if got := s.Settings().PreferredLanguage; got != "English" {
		t.Errorf("expected default settings after reset, got %q", got)
	}
}

func TestOnChangeObservesMutations(t *testing.T) {
	t.Parallel()

	s := NewStore()
	var last Snapshot
	calls := 0
	s.OnChange(func(snap Snapshot) {
		last = snap
		calls++
	})

	s.AddParticipant(Participant{ID: "p1"})
	s.SetCurrentSpeaker("p1")

	if calls != 2 {
		t.Fatalf("expected 2 notifications, got %d", calls)
	}
	if last.CurrentSpeaker != "p1" || len(last.Participants) != 1 {
		t.Errorf("snapshot stale: %+v", last)
	}
}

func TestTranscriptFormat(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ts := time.Date(2025, 3, 1, 9, 30, 15, 0, time.Local)
	s.AppendSubtitle(Subtitle{
		ParticipantID:  "p1",
		Name:           "Alice Johnson",
		TranslatedText: "Hola a todos.",
		Timestamp:      ts,
	})
	s.AppendSubtitle(Subtitle{
		ParticipantID:  "p2",
		Name:           "Carlos Rodriguez",
		TranslatedText: "Good morning.",
		Timestamp:      ts.Add(5 * time.Second),
	})

	got := s.Transcript()
	want := "[09:30:15] Alice Johnson: Hola a todos.\n[09:30:20] Carlos Rodriguez: Good morning.\n"
	if got != want {
		t.Errorf("transcript mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestRegistryRoomLifecycle(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	a := r.Room("room-1")
	if b := r.Room("room-1"); a != b {
		t.Error("expected same store for same room")
	}
	if _, ok := r.Lookup("room-2"); ok {
		t.Error("lookup must not create rooms")
	}
	r.Drop("room-1")
	if _, ok := r.Lookup("room-1"); ok {
		t.Error("expected room dropped")
	}
}

func TestRegistryRetainedRoomSurvivesDrop(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	a := r.Retain("demo")
	if b := r.Room("demo"); a != b {
		t.Error("expected Retain and Room to share a store")
	}
	if !r.Pinned("demo") || r.Pinned("other") {
		t.Error("pinned flag wrong")
	}

	r.Drop("demo")
	st, ok := r.Lookup("demo")
	if !ok || st != a {
		t.Error("expected retained room to survive Drop")
	}

	r.Drop("other") // unknown rooms stay a no-op
}
