package backup

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Index is a SQLite ledger of snapshots taken on this host, so the operator
// can find the backup matching a failed upgrade. Rows are append-only; the
// tool never deletes them.
type Index struct {
	db *sql.DB
}

// OpenIndex opens (and creates if needed) the ledger at path.
func OpenIndex(path string) (*Index, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty backup index path")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, err
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// busy timeout helps with short concurrent locks
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	return &Index{db: d}, nil
}

func (i *Index) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS backup_record(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			taken_at TIMESTAMP NOT NULL,
			purpose TEXT NOT NULL,
			dir TEXT NOT NULL UNIQUE,
			config_path TEXT NOT NULL,
			artifact_path TEXT NOT NULL,
			db_dump_path TEXT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_backup_record_purpose ON backup_record(purpose);`,
	}
	for _, q := range stmts {
		if _, err := i.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (i *Index) Close() error { return i.db.Close() }

// Add records one snapshot.
func (i *Index) Add(ctx context.Context, rec Record) error {
	var dump sql.NullString
	if rec.DBDumpPath != "" {
		dump = sql.NullString{String: rec.DBDumpPath, Valid: true}
	}
	_, err := i.db.ExecContext(ctx, `
		INSERT INTO backup_record(taken_at, purpose, dir, config_path, artifact_path, db_dump_path)
		VALUES(?, ?, ?, ?, ?, ?);`,
		rec.Timestamp.UTC(), rec.Purpose, rec.Dir, rec.ConfigPath, rec.ArtifactPath, dump)
	return err
}

// List returns every recorded snapshot, most recent first.
func (i *Index) List(ctx context.Context) ([]Record, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT taken_at, purpose, dir, config_path, artifact_path, db_dump_path
		FROM backup_record ORDER BY taken_at DESC;`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var rec Record
		var ts time.Time
		var dump sql.NullString
		if err := rows.Scan(&ts, &rec.Purpose, &rec.Dir, &rec.ConfigPath, &rec.ArtifactPath, &dump); err != nil {
			return nil, err
		}
		rec.Timestamp = ts
		if dump.Valid {
			rec.DBDumpPath = dump.String
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
