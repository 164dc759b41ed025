package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/MeKo-Tech/reliefkit/internal/grid"
)

// Reader reads grids from a store database.
type Reader struct {
	db   *sql.DB
	path string
}

// OpenReader opens a store database read-only.
func OpenReader(path string) (*Reader, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='grids'").Scan(&count)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify schema: %w", err)
	}
	if count == 0 {
		db.Close()
		return nil, fmt.Errorf("database %s does not contain a grids table", path)
	}

	return &Reader{db: db, path: path}, nil
}

// ReadGrid loads the grid stored under (job, product).
func (r *Reader) ReadGrid(job, product string) (*grid.Grid, error) {
	var (
		width, height          int
		xmin, xmax, ymin, ymax sql.NullFloat64
		cells                  []byte
	)
	err := r.db.QueryRow(
		"SELECT width, height, xmin, xmax, ymin, ymax, cells FROM grids WHERE job=? AND product=?",
		job, product,
	).Scan(&width, &height, &xmin, &xmax, &ymin, &ymax, &cells)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, job, product)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query grid: %w", err)
	}

	data, err := decodeCells(cells, width*height)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress grid %s/%s: %w", job, product, err)
	}

	g := &grid.Grid{Width: width, Height: height, Data: data}
	if xmin.Valid && xmax.Valid && ymin.Valid && ymax.Valid {
		g.WithExtent(xmin.Float64, xmax.Float64, ymin.Float64, ymax.Float64)
	}
	return g, nil
}

// Keys lists every stored grid ordered by job then product.
func (r *Reader) Keys() ([]Key, error) {
	rows, err := r.db.Query("SELECT job, product FROM grids ORDER BY job, product")
	if err != nil {
		return nil, fmt.Errorf("failed to list grids: %w", err)
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.Job, &k.Product); err != nil {
			return nil, fmt.Errorf("failed to scan grid key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grids: %w", err)
	}
	return keys, nil
}

// Metadata reads the metadata table.
func (r *Reader) Metadata() (Metadata, error) {
	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	kv := make(map[string]string)
	for rows.Next() {
		var name string
		var value sql.NullString
		if err := rows.Scan(&name, &value); err != nil {
			return Metadata{}, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		kv[name] = value.String
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, fmt.Errorf("error iterating metadata: %w", err)
	}

	return metadataFromMap(kv), nil
}

// Close closes the database connection.
func (r *Reader) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
