// Package store provides an optional on-disk session log. The core keeps all
// state in memory; when AGENT_LOG_DB is set, the REPL appends each turn's
// messages and usage entries here for later inspection.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SessionLog appends conversation messages and usage entries for one session
// to a SQLite database.
type SessionLog struct {
	db        *sql.DB
	sessionID string
	seq       int
}

// Open opens (or creates) the database at path, runs migrations, and records
// the session row.
func Open(path, sessionID, model string) (*SessionLog, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}

	s := &SessionLog{db: db, sessionID: sessionID}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate session log: %w", err)
	}

	_, err = db.Exec(
		`INSERT INTO sessions (id, model, started_at) VALUES (?, ?, ?)`,
		sessionID, model, time.Now().UTC(),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("record session: %w", err)
	}
	return s, nil
}

func (s *SessionLog) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		model TEXT NOT NULL DEFAULT '',
		started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (session_id, seq),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS usage_entries (
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		input_tokens INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		cost REAL NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (session_id, seq),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AppendMessage logs one conversation message.
func (s *SessionLog) AppendMessage(role, content string) error {
	s.seq++
	_, err := s.db.Exec(
		`INSERT INTO messages (session_id, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		s.sessionID, s.seq, role, content, time.Now().UTC(),
	)
	return err
}

// RecordUsage logs one priced provider call.
func (s *SessionLog) RecordUsage(inputTokens, outputTokens int, cost float64) error {
	s.seq++
	_, err := s.db.Exec(
		`INSERT INTO usage_entries (session_id, seq, input_tokens, output_tokens, cost, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		s.sessionID, s.seq, inputTokens, outputTokens, cost, time.Now().UTC(),
	)
	return err
}

// Messages returns the logged messages for a session in order.
func (s *SessionLog) Messages(sessionID string) ([]LoggedMessage, error) {
	rows, err := s.db.Query(
		`SELECT seq, role, content FROM messages WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LoggedMessage
	for rows.Next() {
		var m LoggedMessage
		if err := rows.Scan(&m.Seq, &m.Role, &m.Content); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// LoggedMessage is one row of the messages table.
type LoggedMessage struct {
	Seq     int
	Role    string
	Content string
}

// Close closes the underlying database.
func (s *SessionLog) Close() error {
	return s.db.Close()
}
