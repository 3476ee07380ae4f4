// Package catalog tracks which media files have been indexed or organized,
// backed by SQLite. The index itself stores only ordinals and paths; the
// catalog is what lets repeated runs skip files that are already up to date.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/omoide/internal/models"
)

// ErrNotFound is returned when a catalog row does not exist.
var ErrNotFound = errors.New("catalog: not found")

// IndexedFile records one file added to the similarity index.
type IndexedFile struct {
	Path      string          `json:"path"`
	MtimeNs   int64           `json:"mtime_ns"`
	Size      int64           `json:"size"`
	FileType  models.FileType `json:"file_type"`
	Ordinal   int             `json:"ordinal"`
	RunID     string          `json:"run_id"`
	IndexedAt time.Time       `json:"indexed_at"`
}

// OrganizedFile records one file placed into a dated folder.
type OrganizedFile struct {
	Source      string    `json:"source"`
	Dest        string    `json:"dest"`
	TakenAt     time.Time `json:"taken_at"`
	RunID       string    `json:"run_id"`
	OrganizedAt time.Time `json:"organized_at"`
}

// Run records one ingest or organize pass with its counters.
type Run struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Processed  int       `json:"processed"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
}

// Catalog is the SQLite-backed media catalog.
type Catalog struct {
	db *sql.DB
}

// Open opens or creates the catalog database at dbPath and initializes the
// schema. Parent directories are created if they do not exist.
func Open(dbPath string) (*Catalog, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Catalog{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS indexed_files (
		path TEXT PRIMARY KEY,
		mtime_ns INTEGER NOT NULL,
		size INTEGER NOT NULL,
		file_type TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		run_id TEXT NOT NULL,
		indexed_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_indexed_files_run ON indexed_files(run_id);

	CREATE TABLE IF NOT EXISTS organized_files (
		source TEXT NOT NULL,
		dest TEXT NOT NULL,
		taken_at TIMESTAMP NOT NULL,
		run_id TEXT NOT NULL,
		organized_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_organized_files_run ON organized_files(run_id);
	CREATE INDEX IF NOT EXISTS idx_organized_files_source ON organized_files(source);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		processed INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordIndexed upserts the row for an indexed file. Re-indexing a changed
// file replaces its previous row.
func (c *Catalog) RecordIndexed(ctx context.Context, f *IndexedFile) error {
	if f.IndexedAt.IsZero() {
		f.IndexedAt = time.Now()
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO indexed_files (path, mtime_ns, size, file_type, ordinal, run_id, indexed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			mtime_ns = excluded.mtime_ns,
			size = excluded.size,
			file_type = excluded.file_type,
			ordinal = excluded.ordinal,
			run_id = excluded.run_id,
			indexed_at = excluded.indexed_at`,
		f.Path, f.MtimeNs, f.Size, string(f.FileType), f.Ordinal, f.RunID, f.IndexedAt,
	)
	return err
}

// GetIndexed returns the catalog row for path, or ErrNotFound.
func (c *Catalog) GetIndexed(ctx context.Context, path string) (*IndexedFile, error) {
	var f IndexedFile
	var fileType string
	err := c.db.QueryRowContext(ctx,
		`SELECT path, mtime_ns, size, file_type, ordinal, run_id, indexed_at
		 FROM indexed_files WHERE path = ?`, path,
	).Scan(&f.Path, &f.MtimeNs, &f.Size, &fileType, &f.Ordinal, &f.RunID, &f.IndexedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	f.FileType = models.FileType(fileType)
	return &f, nil
}

// IsCurrent reports whether path is already indexed with the same mtime and
// size, i.e. whether an ingest run can skip it.
func (c *Catalog) IsCurrent(ctx context.Context, path string, mtimeNs, size int64) (bool, error) {
	f, err := c.GetIndexed(ctx, path)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return f.MtimeNs == mtimeNs && f.Size == size, nil
}

// CountIndexed returns the number of indexed files in the catalog.
func (c *Catalog) CountIndexed(ctx context.Context) (int64, error) {
	var count int64
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM indexed_files`).Scan(&count)
	return count, err
}

// RecordOrganized inserts a row for a file placed into a dated folder.
func (c *Catalog) RecordOrganized(ctx context.Context, f *OrganizedFile) error {
	if f.OrganizedAt.IsZero() {
		f.OrganizedAt = time.Now()
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO organized_files (source, dest, taken_at, run_id, organized_at)
		 VALUES (?, ?, ?, ?, ?)`,
		f.Source, f.Dest, f.TakenAt, f.RunID, f.OrganizedAt,
	)
	return err
}

// CountOrganized returns the number of organized-file records.
func (c *Catalog) CountOrganized(ctx context.Context) (int64, error) {
	var count int64
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM organized_files`).Scan(&count)
	return count, err
}

// StartRun inserts a new run row and returns it with a fresh ID.
func (c *Catalog) StartRun(ctx context.Context, kind string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		StartedAt: time.Now(),
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, started_at) VALUES (?, ?, ?)`,
		run.ID, run.Kind, run.StartedAt,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// FinishRun stamps the run as finished and persists its counters.
func (c *Catalog) FinishRun(ctx context.Context, run *Run) error {
	run.FinishedAt = time.Now()
	result, err := c.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, processed = ?, skipped = ?, failed = ?
		 WHERE id = ?`,
		run.FinishedAt, run.Processed, run.Skipped, run.Failed, run.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: run %s", ErrNotFound, run.ID)
	}
	return nil
}

// GetRun returns a run by ID, or ErrNotFound.
func (c *Catalog) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	var finished sql.NullTime
	err := c.db.QueryRowContext(ctx,
		`SELECT id, kind, started_at, finished_at, processed, skipped, failed
		 FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.Kind, &run.StartedAt, &finished, &run.Processed, &run.Skipped, &run.Failed)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: run %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	return &run, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}
