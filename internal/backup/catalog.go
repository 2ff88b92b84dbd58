package backup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Catalog keeps a local history of backup runs next to the archives.
// Every write is best-effort from the orchestrator's point of view.
type Catalog struct {
	db *sql.DB
}

type Run struct {
	ID        int64
	Archive   string
	SizeBytes int64
	Status    string
	Message   string
	CreatedAt time.Time
}

func OpenCatalog(path string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir catalog dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS backup_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		archive TEXT NOT NULL,
		size_bytes INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}
	return &Catalog{db: db}, nil
}

func (c *Catalog) Close() error { return c.db.Close() }

func (c *Catalog) RecordRun(ctx context.Context, r Run) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO backup_runs (archive, size_bytes, status, message, created_at) VALUES (?,?,?,?,?)`,
		r.Archive, r.SizeBytes, r.Status, r.Message, r.CreatedAt)
	return err
}

// History returns the most recent runs, newest first.
func (c *Catalog) History(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, archive, size_bytes, status, message, created_at FROM backup_runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Archive, &r.SizeBytes, &r.Status, &r.Message, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
