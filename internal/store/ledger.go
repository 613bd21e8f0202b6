// Package store keeps a local SQLite ledger of persona builds so that a
// build's module digests can be compared against earlier builds.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	_ "modernc.org/sqlite"

	"personakit/internal/logging"
	"personakit/internal/report"
	"personakit/internal/ums"
)

// Ledger is a build history backed by SQLite.
type Ledger struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// BuildRecord is one recorded build.
type BuildRecord struct {
	ID            string
	PersonaName   string
	PersonaDigest string
	ToolVersion   string
	BuiltAt       string
	Modules       []ModuleRecord
}

// ModuleRecord is one module digest within a recorded build.
type ModuleRecord struct {
	ModuleID string
	Digest   string
	Source   string
}

// Open opens or creates the ledger at path. ":memory:" gives a private
// in-memory ledger.
func Open(path string) (*Ledger, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection: an in-memory database is per connection, and builds are
	// recorded by a single process anyway
	db.SetMaxOpenConns(1)

	l := &Ledger{db: db, dbPath: path}
	if err := l.initialize(); err != nil {
		return nil, multierr.Append(err, db.Close())
	}
	logging.Get(logging.CategoryStore).Debug("Opened build ledger at %s", path)
	return l, nil
}

func (l *Ledger) initialize() error {
	buildsTable := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		persona_name TEXT NOT NULL,
		persona_digest TEXT NOT NULL,
		tool_version TEXT NOT NULL,
		built_at TEXT NOT NULL,
		report_json TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_persona ON builds(persona_name);
	`

	modulesTable := `
	CREATE TABLE IF NOT EXISTS build_modules (
		build_id TEXT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		module_id TEXT NOT NULL,
		digest TEXT NOT NULL,
		source TEXT NOT NULL,
		PRIMARY KEY (build_id, module_id)
	);
	`

	for _, table := range []string{buildsTable, modulesTable} {
		if _, err := l.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Path returns the database path.
func (l *Ledger) Path() string {
	return l.dbPath
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record stores a build report and returns the new build id.
func (l *Ledger) Record(ctx context.Context, rep *ums.BuildReport) (id string, err error) {
	if rep == nil {
		return "", fmt.Errorf("cannot record a nil report")
	}
	timer := logging.StartTimer(logging.CategoryStore, "Record")
	defer timer.Stop()

	raw, err := json.Marshal(rep)
	if err != nil {
		return "", fmt.Errorf("failed to marshal build report: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, tx.Rollback())
		}
	}()

	id = uuid.New().String()
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO builds (id, persona_name, persona_digest, tool_version, built_at, report_json) VALUES (?, ?, ?, ?, ?, ?)`,
		id, rep.PersonaName, rep.PersonaDigest, rep.ToolVersion, rep.BuildTimestamp, string(raw),
	); err != nil {
		return "", fmt.Errorf("failed to insert build: %w", err)
	}

	for i, m := range rep.Modules() {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO build_modules (build_id, position, module_id, digest, source) VALUES (?, ?, ?, ?, ?)`,
			id, i, m.ID, m.Digest, m.Source,
		); err != nil {
			return "", fmt.Errorf("failed to insert module %s: %w", m.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit build: %w", err)
	}
	logging.Get(logging.CategoryStore).Info("Recorded build %s for %s (%d modules)", id, rep.PersonaName, len(rep.Modules()))
	return id, nil
}

// History returns the most recent builds of a persona, newest first.
// limit <= 0 returns every build.
func (l *Ledger) History(ctx context.Context, personaName string, limit int) ([]BuildRecord, error) {
	if limit <= 0 {
		limit = -1
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.QueryContext(ctx,
		`SELECT id, persona_name, persona_digest, tool_version, built_at FROM builds
		WHERE persona_name = ? ORDER BY rowid DESC LIMIT ?`,
		personaName, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query builds: %w", err)
	}

	var records []BuildRecord
	for rows.Next() {
		var r BuildRecord
		if err := rows.Scan(&r.ID, &r.PersonaName, &r.PersonaDigest, &r.ToolVersion, &r.BuiltAt); err != nil {
			return nil, multierr.Append(fmt.Errorf("failed to scan build: %w", err), rows.Close())
		}
		records = append(records, r)
	}
	if err := multierr.Append(rows.Err(), rows.Close()); err != nil {
		return nil, fmt.Errorf("failed to read builds: %w", err)
	}

	for i := range records {
		mods, err := l.modules(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Modules = mods
	}
	return records, nil
}

func (l *Ledger) modules(ctx context.Context, buildID string) ([]ModuleRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT module_id, digest, source FROM build_modules WHERE build_id = ? ORDER BY position`,
		buildID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query build modules: %w", err)
	}
	defer rows.Close()

	var out []ModuleRecord
	for rows.Next() {
		var m ModuleRecord
		if err := rows.Scan(&m.ModuleID, &m.Digest, &m.Source); err != nil {
			return nil, fmt.Errorf("failed to scan build module: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Changed compares a report against the last recorded build of the same
// persona and returns, sorted, the ids of modules that were added, removed or
// whose digest differs. With no earlier build every module counts as added.
func (l *Ledger) Changed(ctx context.Context, rep *ums.BuildReport) ([]string, error) {
	history, err := l.History(ctx, rep.PersonaName, 1)
	if err != nil {
		return nil, err
	}

	prev := make(map[string]string)
	if len(history) > 0 {
		for _, m := range history[0].Modules {
			prev[m.ModuleID] = m.Digest
		}
	}
	return report.ChangedModules(prev, report.Digests(rep)), nil
}
