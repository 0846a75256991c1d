package simulate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/polymeet/gateway/internal/session"
)

// Config sets the simulator's cast, script and pacing. The zero value of
// each delay selects the demo default.
type Config struct {
	Store  *session.Store
	Roster []session.Participant
	Script []Line

	// Speak voices a line's translation; optional. Errors are logged only.
	Speak func(ctx context.Context, text, language string) error

	// OnSubtitle observes each emitted subtitle; optional.
	OnSubtitle func(session.Subtitle)

	ConnectDelay  time.Duration // before the room reports connected
	JoinStagger   time.Duration // between scripted participant joins
	StartDelay    time.Duration // before the first line plays
	SubtitleDelay time.Duration // speaker set → subtitle visible
	MessageGap    time.Duration // after a line's duration, before the next
	CyclePause    time.Duration // extra pause when the script wraps
}

func (c *Config) applyDefaults() {
	if c.Roster == nil {
		c.Roster = DefaultRoster()
	}
	if c.Script == nil {
		c.Script = DefaultScript()
	}
	if c.ConnectDelay == 0 {
		c.ConnectDelay = time.Second
	}
	if c.JoinStagger == 0 {
		c.JoinStagger = 2 * time.Second
	}
	if c.StartDelay == 0 {
		c.StartDelay = 12 * time.Second
	}
	if c.SubtitleDelay == 0 {
		c.SubtitleDelay = time.Second
	}
	if c.MessageGap == 0 {
		c.MessageGap = 2 * time.Second
	}
	if c.CyclePause == 0 {
		c.CyclePause = 5 * time.Second
	}
}

// Simulator replays a scripted multilingual conversation into a session
// store, standing in for a live meeting. All pacing flows through a single
// context: Disconnect cancels it and every sleeping goroutine folds.
type Simulator struct {
	cfg Config

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a simulator; missing config fields get demo defaults.
func New(cfg Config) *Simulator {
	cfg.applyDefaults()
	return &Simulator{cfg: cfg}
}

// Connect marks the room connected after the connect delay, then starts the
// staggered joins and the conversation loop in the background. It blocks
// only for the connect delay. Calling Connect on a running simulator is a
// no-op.
func (s *Simulator) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	if !sleep(runCtx, s.cfg.ConnectDelay) {
		return runCtx.Err()
	}
	s.cfg.Store.SetConnected(true)
	slog.Info("simulated meeting connected", "participants", len(s.cfg.Roster))

	s.wg.Add(2)
	go s.joinLoop(runCtx)
	go s.conversationLoop(runCtx)
	return nil
}

// Disconnect stops the simulation and waits for its goroutines.
func (s *Simulator) Disconnect() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.cfg.Store.SetConnected(false)
	slog.Info("simulated meeting disconnected")
}

// joinLoop adds roster members one by one; each join lands one stagger
// interval after the previous.
func (s *Simulator) joinLoop(ctx context.Context) {
	defer s.wg.Done()
	for _, p := range s.cfg.Roster {
		if !sleep(ctx, s.cfg.JoinStagger) {
			return
		}
		s.cfg.Store.AddParticipant(p)
		slog.Info("simulated participant joined", "participant_id", p.ID, "name", p.Name)
	}
}

func (s *Simulator) conversationLoop(ctx context.Context) {
	defer s.wg.Done()
	if !sleep(ctx, s.cfg.StartDelay) {
		return
	}
	for i := 0; ; i = (i + 1) % len(s.cfg.Script) {
		line := s.cfg.Script[i]
		if !s.playLine(ctx, line) {
			return
		}
		if !sleep(ctx, s.cfg.MessageGap) {
			return
		}
		if i == len(s.cfg.Script)-1 {
			if !sleep(ctx, s.cfg.CyclePause) {
				return
			}
		}
	}
}

// playLine runs one utterance: speaker on, delayed subtitle in the viewer's
// preferred language, optional speech, speaker off after the line's
// duration. Returns false when the context ended mid-line.
func (s *Simulator) playLine(ctx context.Context, line Line) bool {
	s.cfg.Store.SetCurrentSpeaker(line.ParticipantID)

	if !sleep(ctx, s.cfg.SubtitleDelay) {
		s.cfg.Store.ClearCurrentSpeaker(line.ParticipantID)
		return false
	}
	settings := s.cfg.Store.Settings()
	translated := line.TranslationFor(settings.PreferredLanguage)
	sub := s.cfg.Store.AppendSubtitle(session.Subtitle{
		ParticipantID:  line.ParticipantID,
		Name:           line.Name,
		OriginalText:   line.OriginalText,
		TranslatedText: translated,
		Language:       line.Language,
		Timestamp:      time.Now(),
	})
	if s.cfg.OnSubtitle != nil {
		s.cfg.OnSubtitle(sub)
	}
	if settings.SpeechEnabled && s.cfg.Speak != nil {
		if err := s.cfg.Speak(ctx, translated, settings.PreferredLanguage); err != nil {
			slog.Warn("simulated speech failed", "participant_id", line.ParticipantID, "error", err)
		}
	}

	remaining := line.Duration - s.cfg.SubtitleDelay
	ok := sleep(ctx, remaining)
	s.cfg.Store.ClearCurrentSpeaker(line.ParticipantID)
	return ok
}

// sleep waits for d or until ctx ends, reporting whether the full duration
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
