package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/reliefkit/internal/grid"
	"github.com/MeKo-Tech/reliefkit/internal/gridio"
)

// Sink receives the products of a job. *store.Writer satisfies it.
type Sink interface {
	WriteGrid(job, product string, g *grid.Grid) error
}

// existenceChecker is implemented by sinks that can report finished outputs,
// which lets the generator skip jobs that are already complete.
type existenceChecker interface {
	Has(job, product string) bool
}

// FolderSink writes each product to <Dir>/<job>/<product>.<Format>.
type FolderSink struct {
	Dir     string
	Format  gridio.Format
	Options []gridio.ImageOption
}

// Path returns the file a product is written to.
func (s FolderSink) Path(job, product string) string {
	format := s.Format
	if format == "" {
		format = gridio.FormatASCII
	}
	return filepath.Join(s.Dir, job, product+"."+string(format))
}

// WriteGrid writes g, creating the job directory as needed.
func (s FolderSink) WriteGrid(job, product string, g *grid.Grid) error {
	path := s.Path(job, product)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	return gridio.WriteFile(path, g, s.Options...)
}

// Has reports whether the product file already exists.
func (s FolderSink) Has(job, product string) bool {
	_, err := os.Stat(s.Path(job, product))
	return err == nil
}
