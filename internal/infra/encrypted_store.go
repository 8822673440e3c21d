package infra

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"screentime/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ sqlcipher.SQLiteDriver

const snapshotDBName = "usage.db"

// EncryptedStore implements domain.LedgerStore on top of a SQLCipher
// encrypted SQLite database, for households where the usage record
// itself should not be readable (or editable) by the child.
type EncryptedStore struct {
	db     *sql.DB
	dbPath string
}

// NewEncryptedStore opens (or creates) the encrypted snapshot
// database. The key is applied as the SQLCipher passphrase.
func NewEncryptedStore(dataDir string, key []byte) (*EncryptedStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, snapshotDBName)
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096",
		dbPath, hex.EncodeToString(key))

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	s := &EncryptedStore{db: db, dbPath: dbPath}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *EncryptedStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS apps (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		icon TEXT NOT NULL DEFAULT '',
		used_seconds INTEGER NOT NULL,
		limit_seconds INTEGER NOT NULL,
		running INTEGER NOT NULL,
		started_at_ms INTEGER,
		base_used INTEGER NOT NULL,
		position INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		app_id TEXT NOT NULL,
		ts_ms INTEGER NOT NULL,
		reached_limit INTEGER NOT NULL,
		position INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load reads the persisted ledger. An empty database is reported as
// domain.ErrSnapshotNotFound.
func (s *EncryptedStore) Load() (*domain.Ledger, error) {
	var childName string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'child_name'`).Scan(&childName)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read meta: %w", err)
	}

	ledger := &domain.Ledger{ChildName: childName}
	if err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'total_limit_seconds'`).
		Scan(&ledger.TotalLimitSeconds); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to read meta: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT id, label, color, icon, used_seconds, limit_seconds, running, started_at_ms, base_used
		FROM apps ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to read apps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a domain.App
		var running int
		var startedAtMs sql.NullInt64
		if err := rows.Scan(&a.ID, &a.Label, &a.Color, &a.Icon,
			&a.UsedSeconds, &a.LimitSeconds, &running, &startedAtMs, &a.BaseUsed); err != nil {
			return nil, fmt.Errorf("failed to scan app: %w", err)
		}
		a.Running = running != 0
		if startedAtMs.Valid {
			t := time.UnixMilli(startedAtMs.Int64)
			a.StartedAt = &t
		}
		ledger.Apps = append(ledger.Apps, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read apps: %w", err)
	}

	evRows, err := s.db.Query(`
		SELECT id, kind, app_id, ts_ms, reached_limit FROM events ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	defer evRows.Close()

	for evRows.Next() {
		var ev domain.Event
		var kind string
		var tsMs int64
		var reached int
		if err := evRows.Scan(&ev.ID, &kind, &ev.AppID, &tsMs, &reached); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Kind = domain.EventKind(kind)
		ev.Timestamp = time.UnixMilli(tsMs)
		ev.ReachedLimit = reached != 0
		ledger.EventLog = append(ledger.EventLog, ev)
	}
	if err := evRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	return ledger, nil
}

// Save replaces the whole snapshot in one transaction. The snapshot
// is small and bounded, so full replacement once per tick is fine and
// keeps last-write-wins semantics trivially.
func (s *EncryptedStore) Save(l *domain.Ledger) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin save: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM meta`, `DELETE FROM apps`, `DELETE FROM events`} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to clear tables: %w", err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO meta (key, value) VALUES ('child_name', ?), ('total_limit_seconds', ?)`,
		l.ChildName, l.TotalLimitSeconds); err != nil {
		return fmt.Errorf("failed to write meta: %w", err)
	}

	for i, a := range l.Apps {
		var startedAtMs sql.NullInt64
		if a.StartedAt != nil {
			startedAtMs = sql.NullInt64{Int64: a.StartedAt.UnixMilli(), Valid: true}
		}
		running := 0
		if a.Running {
			running = 1
		}
		if _, err := tx.Exec(`
			INSERT INTO apps (id, label, color, icon, used_seconds, limit_seconds, running, started_at_ms, base_used, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.Label, a.Color, a.Icon, a.UsedSeconds, a.LimitSeconds,
			running, startedAtMs, a.BaseUsed, i); err != nil {
			return fmt.Errorf("failed to write app %s: %w", a.ID, err)
		}
	}

	for i, ev := range l.EventLog {
		reached := 0
		if ev.ReachedLimit {
			reached = 1
		}
		if _, err := tx.Exec(`
			INSERT INTO events (id, kind, app_id, ts_ms, reached_limit, position)
			VALUES (?, ?, ?, ?, ?, ?)`,
			ev.ID, string(ev.Kind), ev.AppID, ev.Timestamp.UnixMilli(), reached, i); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit save: %w", err)
	}
	return nil
}

// Clear empties all tables, keeping the schema and key.
func (s *EncryptedStore) Clear() error {
	for _, stmt := range []string{`DELETE FROM meta`, `DELETE FROM apps`, `DELETE FROM events`} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to clear snapshot: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *EncryptedStore) Close() error {
	return s.db.Close()
}

// Ensure EncryptedStore implements domain.LedgerStore.
var _ domain.LedgerStore = (*EncryptedStore)(nil)
