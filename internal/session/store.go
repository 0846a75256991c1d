package session

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/polymeet/gateway/internal/metrics"
)

// maxSubtitles bounds the subtitle history; the oldest entry is evicted once
// the cap is reached.
const maxSubtitles = 50

// Store holds the live state of one room. All mutation goes through typed
// setters; reads return copies so callers never alias internal slices.
type Store struct {
	mu             sync.Mutex
	participants   []Participant
	currentSpeaker string
	subtitles      []Subtitle
	settings       Settings
	connected      bool

	onChange func(Snapshot)
}

// Snapshot is a point-in-time copy of store state handed to change listeners.
type Snapshot struct {
	Participants   []Participant
	CurrentSpeaker string
	Subtitles      []Subtitle
	Settings       Settings
	Connected      bool
}

// NewStore returns an empty store with default settings.
func NewStore() *Store {
	return &Store{settings: DefaultSettings()}
}

// OnChange registers a listener invoked (synchronously, under no lock) after
// every mutation. Only one listener is supported.
func (s *Store) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Participants:   slices.Clone(s.participants),
		CurrentSpeaker: s.currentSpeaker,
		Subtitles:      slices.Clone(s.subtitles),
		Settings:       s.settings,
		Connected:      s.connected,
	}
}

// notify must be called without the lock held.
func (s *Store) finish() {
	s.mu.Lock()
	fn := s.onChange
	snap := s.snapshotLocked()
	s.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// AddParticipant appends p unless a participant with the same ID already
// exists, in which case the existing record is replaced.
func (s *Store) AddParticipant(p Participant) {
	s.mu.Lock()
	replaced := false
	for i := range s.participants {
		if s.participants[i].ID == p.ID {
			s.participants[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		s.participants = append(s.participants, p)
	}
	s.setSpeakerLocked(s.currentSpeaker)
	s.mu.Unlock()
	s.finish()
}

// RemoveParticipant deletes the participant with the given ID, clearing the
// current speaker if it pointed at them. Unknown IDs are a no-op.
func (s *Store) RemoveParticipant(id string) {
	s.mu.Lock()
	s.participants = slices.DeleteFunc(s.participants, func(p Participant) bool {
		return p.ID == id
	})
	if s.currentSpeaker == id {
		s.setSpeakerLocked("")
	}
	s.mu.Unlock()
	s.finish()
}

// SetParticipantAudioEnabled flips the audio flag for one participant.
func (s *Store) SetParticipantAudioEnabled(id string, enabled bool) {
	s.mu.Lock()
	for i := range s.participants {
		if s.participants[i].ID == id {
			s.participants[i].AudioEnabled = enabled
			break
		}
	}
	s.mu.Unlock()
	s.finish()
}

// SetParticipantVideoEnabled flips the video flag for one participant.
func (s *Store) SetParticipantVideoEnabled(id string, enabled bool) {
	s.mu.Lock()
	for i := range s.participants {
		if s.participants[i].ID == id {
			s.participants[i].VideoEnabled = enabled
			break
		}
	}
	s.mu.Unlock()
	s.finish()
}

// Participants returns a copy of the current roster.
func (s *Store) Participants() []Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.participants)
}

// Participant looks up one participant by ID.
func (s *Store) Participant(id string) (Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// setSpeakerLocked records the speaker and keeps each roster entry's
// IsSpeaking flag in step with it.
func (s *Store) setSpeakerLocked(id string) {
	s.currentSpeaker = id
	for i := range s.participants {
		s.participants[i].IsSpeaking = id != "" && s.participants[i].ID == id
	}
}

// SetCurrentSpeaker marks id as the active speaker. Last write wins.
func (s *Store) SetCurrentSpeaker(id string) {
	s.mu.Lock()
	s.setSpeakerLocked(id)
	s.mu.Unlock()
	s.finish()
}

// ClearCurrentSpeaker resets the speaker only if it is still who the caller
// thinks it is, so a stale clear cannot stomp a newer speaker.
func (s *Store) ClearCurrentSpeaker(id string) {
	s.mu.Lock()
	if s.currentSpeaker == id {
		s.setSpeakerLocked("")
	}
	s.mu.Unlock()
	s.finish()
}

// CurrentSpeaker returns the active speaker ID, or "" when nobody speaks.
func (s *Store) CurrentSpeaker() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentSpeaker
}

// AppendSubtitle adds a subtitle, assigning an ID when absent and evicting
// the oldest entry past the history bound. The assigned ID is returned.
func (s *Store) AppendSubtitle(sub Subtitle) Subtitle {
	s.mu.Lock()
	if sub.Timestamp.IsZero() {
		sub.Timestamp = time.Now()
	}
	if sub.ID == "" {
		sub.ID = s.subtitleIDLocked(sub.ParticipantID, sub.Timestamp)
	}
	s.subtitles = append(s.subtitles, sub)
	if len(s.subtitles) > maxSubtitles {
		s.subtitles = slices.Delete(s.subtitles, 0, len(s.subtitles)-maxSubtitles)
	}
	s.mu.Unlock()
	metrics.SubtitlesEmitted.Inc()
	s.finish()
	return sub
}

// subtitleIDLocked derives "participantID-epochMillis", bumping the millis
// until the ID is unique within the retained window.
func (s *Store) subtitleIDLocked(participantID string, ts time.Time) string {
	ms := ts.UnixMilli()
	for {
		id := fmt.Sprintf("%s-%d", participantID, ms)
		if !slices.ContainsFunc(s.subtitles, func(sub Subtitle) bool { return sub.ID == id }) {
			return id
		}
		ms++
	}
}

// Subtitles returns a copy of the retained history, oldest first.
func (s *Store) Subtitles() []Subtitle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.subtitles)
}

// Settings returns the current settings value.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SetSettings replaces settings wholesale.
func (s *Store) SetSettings(v Settings) {
	s.mu.Lock()
	s.settings = v
	s.mu.Unlock()
	s.finish()
}

// SetConnected flips the room connection flag.
func (s *Store) SetConnected(v bool) {
	s.mu.Lock()
	changed := s.connected != v
	s.connected = v
	s.mu.Unlock()
	if changed {
		if v {
			metrics.SessionsActive.Inc()
			metrics.SessionsTotal.Inc()
		} else {
			metrics.SessionsActive.Dec()
		}
	}
	s.finish()
}

// Connected reports the room connection flag.
func (s *Store) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Reset returns the store to its initial empty state.
func (s *Store) Reset() {
	s.mu.Lock()
	wasConnected := s.connected
	s.participants = nil
	s.currentSpeaker = ""
	s.subtitles = nil
	s.settings = DefaultSettings()
	s.connected = false
	s.mu.Unlock()
	if wasConnected {
		metrics.SessionsActive.Dec()
	}
	s.finish()
}
