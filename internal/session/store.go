package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/consultprep-dev/consultprep/internal/interview"
)

// DBFile is the database file name inside the state directory.
const DBFile = "consultprep.db"

// Store provides SQLite-backed persistence for sessions. It implements
// interview.Recorder.
type Store struct {
	db *sql.DB
}

var _ interview.Recorder = (*Store)(nil)

// NewStore opens the SQLite database at dbPath and creates tables if they don't exist.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		case_id TEXT NOT NULL,
		company TEXT NOT NULL,
		stage TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE TABLE IF NOT EXISTS history (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		session_id TEXT NOT NULL,
		case_name TEXT NOT NULL,
		feedback TEXT NOT NULL,
		score INTEGER NOT NULL,
		structure INTEGER NOT NULL,
		analysis INTEGER NOT NULL,
		communication INTEGER NOT NULL,
		recorded_at DATETIME NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveTranscript upserts the session row and replaces its stored messages
// with the session's current transcript.
func (s *Store) SaveTranscript(ctx context.Context, sess *interview.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, case_id, company, stage, started_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET stage = excluded.stage, updated_at = excluded.updated_at`,
		sess.ID, sess.Case.Identity(), sess.Case.Company, sess.Stage().String(), sess.StartTime, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	for _, m := range sess.Messages() {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO messages (session_id, role, content, timestamp)
			 VALUES (?, ?, ?, ?)`,
			sess.ID, string(m.Role), m.Text, m.Time,
		)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transcript: %w", err)
	}
	return nil
}

// Transcript returns the stored messages of a session in order.
func (s *Store) Transcript(ctx context.Context, sessionID string) ([]interview.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, timestamp
		 FROM messages
		 WHERE session_id = ?
		 ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []interview.Message
	for rows.Next() {
		var (
			msg  interview.Message
			role string
		)
		if err := rows.Scan(&role, &msg.Text, &msg.Time); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = interview.Role(role)
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return messages, nil
}

// Record implements interview.Recorder. Each entry is appended in its own
// transaction.
func (s *Store) Record(ctx context.Context, e interview.HistoryEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO history (id, session_id, case_name, feedback, score, structure, analysis, communication, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.Case, e.Feedback, e.Score,
		e.Breakdown.Structure, e.Breakdown.Analysis, e.Breakdown.Communication, e.Time,
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`,
		e.Time, e.SessionID,
	)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history: %w", err)
	}
	return nil
}

// History returns finished sessions oldest first. A positive limit keeps
// only the most recent limit entries.
func (s *Store) History(ctx context.Context, limit int) ([]interview.HistoryEntry, error) {
	query := `SELECT id, session_id, case_name, feedback, score, structure, analysis, communication, recorded_at
		 FROM history ORDER BY seq ASC`
	args := []any{}
	if limit > 0 {
		query = `SELECT * FROM (
			SELECT seq, id, session_id, case_name, feedback, score, structure, analysis, communication, recorded_at
			FROM history ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []interview.HistoryEntry
	for rows.Next() {
		var (
			e   interview.HistoryEntry
			seq int64
		)
		dest := []any{&e.ID, &e.SessionID, &e.Case, &e.Feedback, &e.Score,
			&e.Breakdown.Structure, &e.Breakdown.Analysis, &e.Breakdown.Communication, &e.Time}
		if limit > 0 {
			dest = append([]any{&seq}, dest...)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return entries, nil
}

// Finished reports whether a history entry was recorded for sessionID.
func (s *Store) Finished(ctx context.Context, sessionID string) (bool, error) {
	var finished bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM history WHERE session_id = ?)`,
		sessionID,
	).Scan(&finished)
	if err != nil {
		return false, fmt.Errorf("query history: %w", err)
	}
	return finished, nil
}

// ListSessions returns summaries of the most recently updated sessions. A
// non-positive limit returns all of them.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.case_id, s.company, s.stage, s.started_at, s.updated_at,
		        (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id) AS message_count,
		        EXISTS (SELECT 1 FROM history h WHERE h.session_id = s.id) AS finished
		 FROM sessions s
		 ORDER BY s.updated_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.CaseID, &sum.Company, &sum.Stage, &sum.StartedAt, &sum.UpdatedAt, &sum.Messages, &sum.Finished); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return summaries, nil
}
