// Package gridio reads and writes grids as ESRI ASCII rasters and exports
// 16-bit grayscale PNG/TIFF images.
package gridio

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/reliefkit/internal/grid"
)

// DefaultNoDataValue is written as NODATA_VALUE for NaN cells.
const DefaultNoDataValue = -9999.0

// ErrMalformed is returned for ASCII rasters that cannot be parsed.
var ErrMalformed = errors.New("malformed ascii grid")

type asciiHeader struct {
	ncols, nrows int
	x, y         float64
	cellX, cellY float64
	noData       float64
	center       bool
	hasNoData    bool

	seenCols, seenRows, seenX, seenY bool
}

// ReadASCII parses an ESRI ASCII grid. Header keywords are case-insensitive;
// either the corner or the center form of the lower-left origin is accepted,
// as is a DX/DY pair instead of CELLSIZE. Cells equal to NODATA_VALUE become
// grid.NoData.
func ReadASCII(r io.Reader) (*grid.Grid, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	var h asciiHeader
	var g *grid.Grid
	row := 0
	line := 0

	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		if g == nil {
			if isHeaderKeyword(fields[0]) {
				if err := h.parse(fields); err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				continue
			}

			var err error
			if g, err = h.allocate(); err != nil {
				return nil, err
			}
		}

		if row >= g.Height {
			break
		}
		if err := parseDataLine(fields, g.Row(row), h); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ascii grid: %w", err)
	}
	if g == nil {
		return nil, fmt.Errorf("%w: no data rows", ErrMalformed)
	}
	if row < g.Height {
		return nil, fmt.Errorf("%w: expected %d rows, got %d", ErrMalformed, g.Height, row)
	}
	return g, nil
}

func isHeaderKeyword(s string) bool {
	switch strings.ToUpper(s) {
	case "NCOLS", "NROWS", "XLLCORNER", "YLLCORNER", "XLLCENTER", "YLLCENTER",
		"CELLSIZE", "DX", "DY", "NODATA_VALUE":
		return true
	}
	return false
}

func (h *asciiHeader) parse(fields []string) error {
	if len(fields) != 2 {
		return fmt.Errorf("%w: header line must have exactly two fields", ErrMalformed)
	}
	key := strings.ToUpper(fields[0])

	if key == "NCOLS" || key == "NROWS" {
		n, err := strconv.Atoi(fields[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: %s must be a positive integer, got %q", ErrMalformed, key, fields[1])
		}
		if key == "NCOLS" {
			h.ncols, h.seenCols = n, true
		} else {
			h.nrows, h.seenRows = n, true
		}
		return nil
	}

	f, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
	}

	switch key {
	case "XLLCORNER", "XLLCENTER":
		h.x, h.seenX = f, true
		h.center = key == "XLLCENTER"
	case "YLLCORNER", "YLLCENTER":
		h.y, h.seenY = f, true
	case "CELLSIZE":
		h.cellX, h.cellY = f, f
	case "DX":
		h.cellX = f
	case "DY":
		h.cellY = f
	case "NODATA_VALUE":
		h.noData, h.hasNoData = f, true
	}
	return nil
}

func (h *asciiHeader) allocate() (*grid.Grid, error) {
	if !h.seenCols || !h.seenRows || !h.seenX || !h.seenY {
		return nil, fmt.Errorf("%w: missing mandatory header", ErrMalformed)
	}
	if h.cellX <= 0 || h.cellY <= 0 {
		return nil, fmt.Errorf("%w: cell size must be greater than 0", ErrMalformed)
	}

	g, err := grid.New(h.ncols, h.nrows)
	if err != nil {
		return nil, err
	}

	left, bottom := h.x, h.y
	if h.center {
		left -= h.cellX / 2
		bottom -= h.cellY / 2
	}
	g.WithExtent(left, left+float64(h.ncols)*h.cellX, bottom, bottom+float64(h.nrows)*h.cellY)
	return g, nil
}

func parseDataLine(fields []string, dst []float64, h asciiHeader) error {
	if len(fields) < len(dst) {
		return fmt.Errorf("%w: row has %d values, expected %d", ErrMalformed, len(fields), len(dst))
	}
	for i := range dst {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if h.hasNoData && f == h.noData {
			f = grid.NoData
		}
		dst[i] = f
	}
	return nil
}

// WriteASCII writes g as an ESRI ASCII grid with a lower-left corner origin.
// Grids without an extent are written with unit cells at the origin.
func WriteASCII(w io.Writer, g *grid.Grid) error {
	if err := g.Validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	dx, dy := g.CellSize()
	left, bottom := 0.0, 0.0
	if g.Extent != nil {
		left, bottom = g.Extent.Left(), g.Extent.Bottom()
	}

	fmt.Fprintf(bw, "ncols %d\nnrows %d\n", g.Width, g.Height)
	fmt.Fprintf(bw, "xllcorner %s\nyllcorner %s\n", formatFloat(left), formatFloat(bottom))
	if dx == dy {
		fmt.Fprintf(bw, "cellsize %s\n", formatFloat(dx))
	} else {
		fmt.Fprintf(bw, "dx %s\ndy %s\n", formatFloat(dx), formatFloat(dy))
	}
	fmt.Fprintf(bw, "NODATA_value %s\n", formatFloat(DefaultNoDataValue))

	for r := 0; r < g.Height; r++ {
		for c, v := range g.Row(r) {
			if c > 0 {
				bw.WriteByte(' ')
			}
			if math.IsNaN(v) {
				v = DefaultNoDataValue
			}
			bw.WriteString(formatFloat(v))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ReadASCIIFile reads an ASCII grid from path, decompressing ".gz" files.
func ReadASCIIFile(path string) (*grid.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	g, err := ReadASCII(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// WriteASCIIFile writes g to path, compressing when the path ends in ".gz".
func WriteASCIIFile(path string, g *grid.Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(f)
		if err := WriteASCII(gz, g); err != nil {
			f.Close()
			return err
		}
		if err := gz.Close(); err != nil {
			f.Close()
			return fmt.Errorf("failed to finish gzip stream: %w", err)
		}
	} else if err := WriteASCII(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
