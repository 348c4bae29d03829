package security

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/apperr"
)

// Entry is one audited chat request. The message itself is never stored.
type Entry struct {
	Time        time.Time `json:"timestamp"`
	ClientIP    string    `json:"client_ip"`
	MessageHash string    `json:"message_hash"`
	Model       string    `json:"model"`
	Passed      bool      `json:"validation_passed"`
	Errors      []string  `json:"errors"`
	Warnings    []string  `json:"warnings"`
}

// Stats summarizes audit entries over a period.
type Stats struct {
	Since         time.Time `json:"since"`
	Total         int       `json:"total_requests"`
	Failed        int       `json:"failed_validations"`
	WithWarnings  int       `json:"requests_with_warnings"`
	UniqueClients int       `json:"unique_ips"`
	Recent        []Entry   `json:"recent"`
}

const statsRecentLimit = 10

// Audit persists request entries.
type Audit interface {
	Record(ctx context.Context, e Entry) error
	Stats(ctx context.Context, since time.Time) (Stats, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

// MemoryAudit keeps entries in process.
type MemoryAudit struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryAudit() *MemoryAudit {
	return &MemoryAudit{}
}

func (m *MemoryAudit) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *MemoryAudit) Stats(_ context.Context, since time.Time) (Stats, error) {
	m.mu.Lock()
	var recent []Entry
	for _, e := range m.entries {
		if e.Time.After(since) {
			recent = append(recent, e)
		}
	}
	m.mu.Unlock()

	sort.SliceStable(recent, func(i, j int) bool { return recent[i].Time.After(recent[j].Time) })
	return summarize(since, recent), nil
}

func (m *MemoryAudit) Prune(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	for _, e := range m.entries {
		if !e.Time.Before(before) {
			kept = append(kept, e)
		}
	}
	n := int64(len(m.entries) - len(kept))
	m.entries = kept
	return n, nil
}

func (m *MemoryAudit) Close() error { return nil }

// summarize expects entries sorted newest first.
func summarize(since time.Time, entries []Entry) Stats {
	s := Stats{Since: since, Total: len(entries)}
	clients := map[string]struct{}{}
	for _, e := range entries {
		if !e.Passed {
			s.Failed++
		}
		if len(e.Warnings) > 0 {
			s.WithWarnings++
		}
		clients[e.ClientIP] = struct{}{}
	}
	s.UniqueClients = len(clients)
	if len(entries) > statsRecentLimit {
		entries = entries[:statsRecentLimit]
	}
	s.Recent = entries
	return s
}

// SQLiteAudit stores entries in a SQLite database.
type SQLiteAudit struct {
	db *sql.DB
}

// NewSQLiteAudit opens (and migrates) the database at path. ":memory:" is accepted.
func NewSQLiteAudit(path string) (*SQLiteAudit, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create audit directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping audit database: %w", err)
	}

	a := &SQLiteAudit{db: db}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit database: %w", err)
	}
	return a, nil
}

func (a *SQLiteAudit) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts INTEGER NOT NULL,
		client_ip TEXT NOT NULL,
		message_hash TEXT NOT NULL,
		model TEXT NOT NULL,
		passed INTEGER NOT NULL,
		errors TEXT NOT NULL,
		warnings TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_log_ts ON audit_log(ts DESC);
	`
	_, err := a.db.Exec(schema)
	return err
}

func (a *SQLiteAudit) Record(ctx context.Context, e Entry) error {
	errs, err := json.Marshal(nonNil(e.Errors))
	if err != nil {
		return err
	}
	warns, err := json.Marshal(nonNil(e.Warnings))
	if err != nil {
		return err
	}

	_, err = a.db.ExecContext(ctx, `
	INSERT INTO audit_log (ts, client_ip, message_hash, model, passed, errors, warnings)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Time.UnixNano(), e.ClientIP, e.MessageHash, e.Model, e.Passed, string(errs), string(warns))
	if err != nil {
		return fmt.Errorf("%w: record audit entry: %v", apperr.ErrStorage, err)
	}
	return nil
}

func (a *SQLiteAudit) Stats(ctx context.Context, since time.Time) (Stats, error) {
	rows, err := a.db.QueryContext(ctx, `
	SELECT ts, client_ip, message_hash, model, passed, errors, warnings
	FROM audit_log WHERE ts > ? ORDER BY ts DESC, id DESC`, since.UnixNano())
	if err != nil {
		return Stats{}, fmt.Errorf("%w: query audit log: %v", apperr.ErrStorage, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e           Entry
			ts          int64
			errs, warns string
		)
		if err := rows.Scan(&ts, &e.ClientIP, &e.MessageHash, &e.Model, &e.Passed, &errs, &warns); err != nil {
			return Stats{}, fmt.Errorf("%w: scan audit row: %v", apperr.ErrStorage, err)
		}
		e.Time = time.Unix(0, ts).UTC()
		_ = json.Unmarshal([]byte(errs), &e.Errors)
		_ = json.Unmarshal([]byte(warns), &e.Warnings)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("%w: iterate audit log: %v", apperr.ErrStorage, err)
	}
	return summarize(since, entries), nil
}

func (a *SQLiteAudit) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := a.db.ExecContext(ctx, `DELETE FROM audit_log WHERE ts < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("%w: prune audit log: %v", apperr.ErrStorage, err)
	}
	return res.RowsAffected()
}

func (a *SQLiteAudit) Close() error {
	return a.db.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
