// Package sqlite persists conversation contexts and user progress in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/pmguide/pkg/domain"
	_ "modernc.org/sqlite"
)

// Store implements ports.ContextStore and ports.ProgressStore using SQLite.
type Store struct {
	db      *sql.DB
	writeMu sync.Mutex // Serializes write transactions to prevent SQLITE_BUSY
	now     func() time.Time
}

// Open creates or opens the database at dbPath and applies the schema.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS chat_sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL DEFAULT '',
	progress_json TEXT NOT NULL,
	preferences_json TEXT NOT NULL DEFAULT '{}',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS conversation_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_session ON conversation_history(session_id, seq);

CREATE TABLE IF NOT EXISTS application_progress (
	user_id TEXT PRIMARY KEY,
	current_step TEXT NOT NULL,
	completed_steps TEXT NOT NULL DEFAULT '[]',
	total_steps INTEGER NOT NULL,
	start_date INTEGER,
	last_updated INTEGER
);

CREATE TABLE IF NOT EXISTS tasks (
	id TEXT NOT NULL,
	user_id TEXT NOT NULL REFERENCES application_progress(user_id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL CHECK(status IN ('pending','in_progress','completed')),
	due_date INTEGER,
	created_at INTEGER NOT NULL,
	updated_at INTEGER,
	completed_at INTEGER,
	PRIMARY KEY (user_id, id)
);
`

func (s *Store) initSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts the session row and writes only the turns the table lacks.
// A history that does not extend the stored one replaces it.
func (s *Store) Save(ctx context.Context, sessionID string, cc *domain.ConversationContext) error {
	progress, err := json.Marshal(cc.Progress)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	prefs, err := json.Marshal(cc.Preferences)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}

	updated := cc.UpdatedAt
	if updated.IsZero() {
		updated = s.now()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chat_sessions (id, user_id, progress_json, preferences_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			progress_json = excluded.progress_json,
			preferences_json = excluded.preferences_json,
			updated_at = excluded.updated_at`,
		sessionID, cc.UserID, string(progress), string(prefs), s.now().UnixNano(), updated.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	from, err := storedPrefix(ctx, tx, sessionID, cc.History)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conversation_history WHERE session_id = ? AND seq >= ?`, sessionID, from); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}

	if from < len(cc.History) {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO conversation_history (session_id, seq, role, content, created_at)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare history insert: %w", err)
		}
		defer stmt.Close()

		for i := from; i < len(cc.History); i++ {
			turn := cc.History[i]
			if _, err := stmt.ExecContext(ctx, sessionID, i, string(turn.Role), turn.Content, turn.Timestamp.UnixNano()); err != nil {
				return fmt.Errorf("insert turn %d: %w", i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

// storedPrefix returns how many leading turns of history are already stored.
// The stored rows count as a prefix when their length fits and the last one
// matches the turn at the same position.
func storedPrefix(ctx context.Context, tx *sql.Tx, sessionID string, history []domain.Turn) (int, error) {
	var (
		count      int
		role, text sql.NullString
		createdAt  sql.NullInt64
	)
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*),
			(SELECT role FROM conversation_history WHERE session_id = ? ORDER BY seq DESC LIMIT 1),
			(SELECT content FROM conversation_history WHERE session_id = ? ORDER BY seq DESC LIMIT 1),
			(SELECT created_at FROM conversation_history WHERE session_id = ? ORDER BY seq DESC LIMIT 1)
		FROM conversation_history WHERE session_id = ?`, sessionID, sessionID, sessionID, sessionID,
	).Scan(&count, &role, &text, &createdAt)
	if err != nil {
		return 0, fmt.Errorf("read stored history: %w", err)
	}
	if count == 0 || count > len(history) {
		return 0, nil
	}
	last := history[count-1]
	if role.String != string(last.Role) || text.String != last.Content || createdAt.Int64 != last.Timestamp.UnixNano() {
		return 0, nil
	}
	return count, nil
}

// Load reads the session row and its ordered history.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.ConversationContext, error) {
	var (
		userID, progressJSON, prefsJSON string
		updatedAt                       int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, progress_json, preferences_json, updated_at
		FROM chat_sessions WHERE id = ?`, sessionID,
	).Scan(&userID, &progressJSON, &prefsJSON, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	cc := domain.NewConversationContext(sessionID)
	cc.UserID = userID
	cc.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if err := json.Unmarshal([]byte(progressJSON), &cc.Progress); err != nil {
		return nil, fmt.Errorf("unmarshal progress: %w", err)
	}
	if err := json.Unmarshal([]byte(prefsJSON), &cc.Preferences); err != nil {
		return nil, fmt.Errorf("unmarshal preferences: %w", err)
	}
	if cc.Preferences == nil {
		cc.Preferences = make(map[string]any)
	}
	if cc.Progress.CompletedSteps == nil {
		cc.Progress.CompletedSteps = []string{}
	}
	if cc.Progress.RemainingTasks == nil {
		cc.Progress.RemainingTasks = []string{}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, created_at FROM conversation_history
		WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			turn domain.Turn
			role string
			ts   int64
		)
		if err := rows.Scan(&role, &turn.Content, &ts); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turn.Role = domain.Role(role)
		turn.Timestamp = time.Unix(0, ts).UTC()
		cc.History = append(cc.History, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	return cc, nil
}

// Delete removes the session and, through the foreign key, its history.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// List returns session IDs ordered by ID.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM chat_sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
