package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/MeKo-Tech/reliefkit/internal/grid"
)

// DefaultBatchSize is the number of grids buffered before a transaction is committed.
const DefaultBatchSize = 16

type entry struct {
	key  Key
	grid *grid.Grid
}

// Writer writes grids to a store database. It is safe for concurrent use.
type Writer struct {
	db        *sql.DB
	path      string
	batch     []entry
	batchSize int
	mu        sync.Mutex
}

// Create opens (or creates) the database at path, initialises the schema and
// replaces the metadata.
func Create(path string, metadata Metadata) (*Writer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if err := replaceMetadata(db, metadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to insert metadata: %w", err)
	}

	return &Writer{
		db:        db,
		path:      path,
		batch:     make([]entry, 0, DefaultBatchSize),
		batchSize: DefaultBatchSize,
	}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS metadata (
			name TEXT NOT NULL PRIMARY KEY,
			value TEXT
		);

		CREATE TABLE IF NOT EXISTS grids (
			job TEXT NOT NULL,
			product TEXT NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			xmin REAL,
			xmax REAL,
			ymin REAL,
			ymax REAL,
			cells BLOB NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS grid_index ON grids (job, product);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

func replaceMetadata(db *sql.DB, meta Metadata) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint:errcheck

	if _, err := tx.Exec("DELETE FROM metadata"); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	for key, value := range meta.ToMap() {
		if _, err := tx.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("failed to insert metadata %q: %w", key, err)
		}
	}
	return tx.Commit()
}

// WriteGrid buffers g under (job, product). Full batches are flushed
// automatically. g must not be modified until the next Flush.
func (w *Writer) WriteGrid(job, product string, g *grid.Grid) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if job == "" || product == "" {
		return grid.InvalidParam("key", Key{job, product}, "job and product must be set")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.batch = append(w.batch, entry{key: Key{Job: job, Product: product}, grid: g})
	if len(w.batch) >= w.batchSize {
		return w.flushLocked()
	}
	return nil
}

// Has reports whether (job, product) is buffered or already stored.
// Query errors count as missing.
func (w *Writer) Has(job, product string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, e := range w.batch {
		if e.key.Job == job && e.key.Product == product {
			return true
		}
	}

	var one int
	err := w.db.QueryRow("SELECT 1 FROM grids WHERE job = ? AND product = ?", job, product).Scan(&one)
	return err == nil
}

// Flush writes any buffered grids to the database.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *Writer) flushLocked() error {
	if len(w.batch) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO grids
		(job, product, width, height, xmin, xmax, ymin, ymax, cells)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range w.batch {
		cells, err := encodeCells(e.grid.Data)
		if err != nil {
			return fmt.Errorf("failed to compress grid %s: %w", e.key, err)
		}

		var xmin, xmax, ymin, ymax sql.NullFloat64
		if b := e.grid.Extent; b != nil {
			xmin = sql.NullFloat64{Float64: b.Left(), Valid: true}
			xmax = sql.NullFloat64{Float64: b.Right(), Valid: true}
			ymin = sql.NullFloat64{Float64: b.Bottom(), Valid: true}
			ymax = sql.NullFloat64{Float64: b.Top(), Valid: true}
		}

		if _, err := stmt.Exec(e.key.Job, e.key.Product, e.grid.Width, e.grid.Height,
			xmin, xmax, ymin, ymax, cells); err != nil {
			return fmt.Errorf("failed to insert grid %s: %w", e.key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.batch = w.batch[:0]
	return nil
}

// Close flushes any remaining grids and closes the database.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		w.db.Close()
		return err
	}
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
