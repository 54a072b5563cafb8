// Package audit persists a record of everything the daemon did on the
// agent's behalf: each tool invocation and each executed command. The
// log is the daemon's only persistent state besides the files
// themselves.
package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS command_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    command TEXT NOT NULL,
    cwd TEXT,
    exit_code INTEGER,
    duration_ms INTEGER,
    stdout_len INTEGER,
    stderr_len INTEGER,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS invocation_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    tool TEXT NOT NULL,
    duration_ms INTEGER,
    error_kind TEXT,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`

// Log is the append-only audit database.
type Log struct {
	db *sql.DB
}

// Open opens (or creates) the audit database under dataDir.
func Open(dataDir string) (*Log, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dataDir, err)
	}

	dbPath := filepath.Join(dataDir, "audit.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply audit schema: %w", err)
	}
	return &Log{db: db}, nil
}

// Close closes the database.
func (l *Log) Close() error {
	return l.db.Close()
}

// LogCommand records one executed command.
func (l *Log) LogCommand(command, cwd string, exitCode, durationMs, stdoutLen, stderrLen int) error {
	_, err := l.db.Exec(
		`INSERT INTO command_log (command, cwd, exit_code, duration_ms, stdout_len, stderr_len) VALUES (?, ?, ?, ?, ?, ?)`,
		command, cwd, exitCode, durationMs, stdoutLen, stderrLen)
	if err != nil {
		return fmt.Errorf("log command: %w", err)
	}
	return nil
}

// LogInvocation records one tool dispatch. errKind is empty on success.
func (l *Log) LogInvocation(tool string, durationMs int, errKind string) error {
	_, err := l.db.Exec(
		`INSERT INTO invocation_log (tool, duration_ms, error_kind) VALUES (?, ?, ?)`,
		tool, durationMs, errKind)
	if err != nil {
		return fmt.Errorf("log invocation: %w", err)
	}
	return nil
}

// CommandRecord is one row of the command log.
type CommandRecord struct {
	ID         int64
	Command    string
	Cwd        string
	ExitCode   int
	DurationMs int
	CreatedAt  string
}

// RecentCommands returns the newest command records, most recent first.
func (l *Log) RecentCommands(limit int) ([]CommandRecord, error) {
	rows, err := l.db.Query(
		`SELECT id, command, cwd, exit_code, duration_ms, created_at FROM command_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []CommandRecord
	for rows.Next() {
		var r CommandRecord
		if err := rows.Scan(&r.ID, &r.Command, &r.Cwd, &r.ExitCode, &r.DurationMs, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
