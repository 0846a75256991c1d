package transcript

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver

	"github.com/polymeet/gateway/internal/session"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const maxRooms = 100

// Store persists room transcripts to PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open connects to the transcript database at connStr and applies pending
// migrations.
func Open(connStr string) (*Store, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("transcript open: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("transcript ping: %w", err)
	}
	if err = migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("transcript migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`)
	if err != nil {
		return err
	}

	var current int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), -1) FROM schema_version`)
	if err = row.Scan(&current); err != nil {
		return err
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	for i := current + 1; i < len(entries); i++ {
		data, readErr := migrationFS.ReadFile("migrations/" + entries[i].Name())
		if readErr != nil {
			return fmt.Errorf("read migration %d: %w", i, readErr)
		}
		if _, execErr := db.Exec(string(data)); execErr != nil {
			return fmt.Errorf("migration %d: %w", i, execErr)
		}
		if _, execErr := db.Exec(`INSERT INTO schema_version (version) VALUES ($1)`, i); execErr != nil {
			return fmt.Errorf("migration %d record: %w", i, execErr)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// OpenRoom records a room session start and prunes old rooms.
func (s *Store) OpenRoom(id, roomID string) error {
	_, err := s.db.Exec(
		`INSERT INTO rooms (id, room_id, started_at) VALUES ($1, $2, $3)`,
		id, roomID, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`DELETE FROM rooms WHERE id NOT IN (SELECT id FROM rooms ORDER BY started_at DESC LIMIT $1)`,
		maxRooms,
	)
	return err
}

// CloseRoom sets the room's ended_at timestamp.
func (s *Store) CloseRoom(id string) error {
	_, err := s.db.Exec(
		`UPDATE rooms SET ended_at = $1 WHERE id = $2`,
		time.Now().UTC(), id,
	)
	return err
}

// SaveSubtitle inserts one subtitle under a room session.
func (s *Store) SaveSubtitle(roomSessionID string, sub session.Subtitle) error {
	_, err := s.db.Exec(
		`INSERT INTO subtitles (id, room_session_id, participant_id, participant_name,
		    original_text, translated_text, language, spoken_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sub.ID, roomSessionID, sub.ParticipantID, sub.Name,
		sub.OriginalText, sub.TranslatedText, sub.Language, sub.Timestamp.UTC(),
	)
	return err
}

// RoomSubtitles returns a room session's subtitles in spoken order.
func (s *Store) RoomSubtitles(roomSessionID string) ([]session.Subtitle, error) {
	rows, err := s.db.Query(`
		SELECT id, participant_id, participant_name, original_text, translated_text, language, spoken_at
		FROM subtitles
		WHERE room_session_id = $1
		ORDER BY spoken_at ASC
	`, roomSessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []session.Subtitle
	for rows.Next() {
		var sub session.Subtitle
		if err = rows.Scan(&sub.ID, &sub.ParticipantID, &sub.Name,
			&sub.OriginalText, &sub.TranslatedText, &sub.Language, &sub.Timestamp); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
