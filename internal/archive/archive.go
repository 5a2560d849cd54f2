// Package archive keeps the final status documents of finished recordings in
// a SQLite database.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one archived status document.
type Entry struct {
	ID         string
	VHost      string
	App        string
	State      string
	Document   []byte
	ArchivedAt time.Time
}

// Archive is a SQLite-backed store of final record documents.
type Archive struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates dir if needed and opens (or creates) dir/records.db.
func Open(dir string) (*Archive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := filepath.Join(dir, "records.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	// SQLite has a single writer; one connection serializes saves in the pool
	// instead of in the database lock.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open archive: %w", err)
	}

	a := &Archive{db: db, now: time.Now}
	if err := a.initTable(); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) initTable() error {
	_, err := a.db.Exec(`
	CREATE TABLE IF NOT EXISTS record_archive (
		id TEXT PRIMARY KEY,
		vhost TEXT NOT NULL,
		app TEXT NOT NULL,
		state TEXT NOT NULL,
		document TEXT NOT NULL,
		archived_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_record_archive_owner ON record_archive(vhost, app);
	`)
	if err != nil {
		return fmt.Errorf("init archive table: %w", err)
	}
	return nil
}

// Save stores doc for the record id, replacing any earlier document.
func (a *Archive) Save(ctx context.Context, vhost, app, id, state string, doc []byte) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO record_archive (id, vhost, app, state, document, archived_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			vhost = excluded.vhost,
			app = excluded.app,
			state = excluded.state,
			document = excluded.document,
			archived_at = excluded.archived_at`,
		id, vhost, app, state, string(doc), a.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("archive record %s: %w", id, err)
	}
	return nil
}

// List returns the archived documents of vhost/app, newest first.
func (a *Archive) List(ctx context.Context, vhost, app string) ([]Entry, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, vhost, app, state, document, archived_at
		FROM record_archive
		WHERE vhost = ? AND app = ?
		ORDER BY archived_at DESC, id`,
		vhost, app)
	if err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e   Entry
			doc string
			at  int64
		)
		if err := rows.Scan(&e.ID, &e.VHost, &e.App, &e.State, &doc, &at); err != nil {
			return nil, fmt.Errorf("list archive: %w", err)
		}
		e.Document = []byte(doc)
		e.ArchivedAt = time.UnixMilli(at)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}
