package transcript

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/polymeet/gateway/internal/session"
)

// Saver writes subtitles to the store off the pipeline's hot path. Saves go
// through a buffered channel; when the buffer is full the subtitle is
// dropped with a log line rather than stalling subtitle emission.
type Saver struct {
	store         *Store
	roomSessionID string
	ch            chan session.Subtitle
	done          chan struct{}
	closeOnce     sync.Once
}

// NewSaver opens a room session in store and starts the save worker.
func NewSaver(store *Store, roomID string, bufferSize int) (*Saver, error) {
	id := uuid.NewString()
	if err := store.OpenRoom(id, roomID); err != nil {
		return nil, err
	}
	s := &Saver{
		store:         store,
		roomSessionID: id,
		ch:            make(chan session.Subtitle, bufferSize),
		done:          make(chan struct{}),
	}
	go s.worker()
	return s, nil
}

// RoomSessionID identifies this room session in the store.
func (s *Saver) RoomSessionID() string { return s.roomSessionID }

// Save enqueues a subtitle for persistence. Never blocks.
func (s *Saver) Save(sub session.Subtitle) {
	select {
	case s.ch <- sub:
	default:
		slog.Warn("transcript save buffer full, subtitle dropped", "subtitle_id", sub.ID)
	}
}

func (s *Saver) worker() {
	defer close(s.done)
	for sub := range s.ch {
		if err := s.store.SaveSubtitle(s.roomSessionID, sub); err != nil {
			slog.Warn("transcript save failed", "subtitle_id", sub.ID, "error", err)
		}
	}
}

// Close drains pending saves, marks the room session ended, and stops the
// worker. Idempotent.
func (s *Saver) Close() {
	s.closeOnce.Do(func() {
		close(s.ch)
		<-s.done
		if err := s.store.CloseRoom(s.roomSessionID); err != nil {
			slog.Warn("transcript room close failed", "error", err)
		}
	})
}
