// Package grid defines the dense 2-D float raster shared by every analysis step.
package grid

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/floats"
)

// NoData marks a cell without a defined value.
var NoData = math.NaN()

// IsNoData reports whether v is the no-data sentinel.
func IsNoData(v float64) bool { return math.IsNaN(v) }

// Grid is a row-major raster of Width x Height float64 cells.
// Row 0 is the northern edge of Extent, column 0 the western edge.
type Grid struct {
	Extent *orb.Bound
	Data   []float64
	Width  int
	Height int
}

// New allocates a zero-filled grid.
func New(width, height int) (*Grid, error) {
	if err := CheckDims(width, height); err != nil {
		return nil, err
	}
	return &Grid{
		Width:  width,
		Height: height,
		Data:   make([]float64, width*height),
	}, nil
}

// FromRows builds a grid from a slice of equally long rows.
func FromRows(rows [][]float64) (*Grid, error) {
	if len(rows) == 0 {
		return nil, InvalidParam("height", 0, "must be positive")
	}
	g, err := New(len(rows[0]), len(rows))
	if err != nil {
		return nil, err
	}
	for r, row := range rows {
		if len(row) != g.Width {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrShapeMismatch, r, len(row), g.Width)
		}
		copy(g.Data[r*g.Width:], row)
	}
	return g, nil
}

// Filled allocates a grid with every cell set to v.
func Filled(width, height int, v float64) (*Grid, error) {
	g, err := New(width, height)
	if err != nil {
		return nil, err
	}
	for i := range g.Data {
		g.Data[i] = v
	}
	return g, nil
}

// WithExtent sets the geographic extent and returns g.
func (g *Grid) WithExtent(xMin, xMax, yMin, yMax float64) *Grid {
	g.Extent = &orb.Bound{Min: orb.Point{xMin, yMin}, Max: orb.Point{xMax, yMax}}
	return g
}

func (g *Grid) idx(row, col int) int { return row*g.Width + col }

// At returns the value at (row, col).
func (g *Grid) At(row, col int) float64 { return g.Data[g.idx(row, col)] }

// Set writes v at (row, col).
func (g *Grid) Set(row, col int, v float64) { g.Data[g.idx(row, col)] = v }

// Row returns the backing slice of a single row.
func (g *Grid) Row(row int) []float64 { return g.Data[row*g.Width : (row+1)*g.Width] }

// Len returns the number of cells.
func (g *Grid) Len() int { return g.Width * g.Height }

// Clone returns a deep copy, including the extent.
func (g *Grid) Clone() *Grid {
	out := &Grid{
		Width:  g.Width,
		Height: g.Height,
		Data:   make([]float64, len(g.Data)),
	}
	copy(out.Data, g.Data)
	out.Extent = g.cloneExtent()
	return out
}

// Like allocates a zero grid with the same shape and extent as g.
func (g *Grid) Like() *Grid {
	return &Grid{
		Width:  g.Width,
		Height: g.Height,
		Data:   make([]float64, len(g.Data)),
		Extent: g.cloneExtent(),
	}
}

func (g *Grid) cloneExtent() *orb.Bound {
	if g.Extent == nil {
		return nil
	}
	b := *g.Extent
	return &b
}

// CellSize returns the world-unit width and height of one cell.
// Grids without an extent use unit cells.
func (g *Grid) CellSize() (dx, dy float64) {
	if g.Extent == nil || g.Extent.IsEmpty() {
		return 1, 1
	}
	dx = (g.Extent.Right() - g.Extent.Left()) / float64(g.Width)
	dy = (g.Extent.Top() - g.Extent.Bottom()) / float64(g.Height)
	if dx <= 0 {
		dx = 1
	}
	if dy <= 0 {
		dy = 1
	}
	return dx, dy
}

// CellCenter maps (row, col) to the world coordinate of the cell center.
func (g *Grid) CellCenter(row, col int) orb.Point {
	if g.Extent == nil {
		return orb.Point{float64(col) + 0.5, float64(row) + 0.5}
	}
	dx, dy := g.CellSize()
	return orb.Point{
		g.Extent.Left() + (float64(col)+0.5)*dx,
		g.Extent.Top() - (float64(row)+0.5)*dy,
	}
}

// Validate checks that the data slice matches the declared dimensions.
func (g *Grid) Validate() error {
	if g == nil {
		return InvalidParam("grid", nil, "must not be nil")
	}
	if err := CheckDims(g.Width, g.Height); err != nil {
		return err
	}
	if len(g.Data) != g.Width*g.Height {
		return fmt.Errorf("%w: data has %d cells, expected %dx%d", ErrShapeMismatch, len(g.Data), g.Width, g.Height)
	}
	return nil
}

// Add returns the elementwise sum of a and b. The result keeps a's extent.
func Add(a, b *Grid) (*Grid, error) {
	if err := CheckSameShape(a, b); err != nil {
		return nil, err
	}
	out := a.Like()
	floats.AddTo(out.Data, a.Data, b.Data)
	return out, nil
}

// Scale returns g with every cell multiplied by c.
func Scale(g *Grid, c float64) *Grid {
	out := g.Like()
	floats.ScaleTo(out.Data, c, g.Data)
	return out
}

// Stats summarises the defined cells of a grid.
type Stats struct {
	Min    float64
	Max    float64
	Mean   float64
	Count  int
	NoData int
}

// Stats computes min/max/mean over cells that are not NoData.
// All fields except NoData are zero when every cell is NoData.
func (g *Grid) Stats() Stats {
	valid := make([]float64, 0, len(g.Data))
	for _, v := range g.Data {
		if !IsNoData(v) {
			valid = append(valid, v)
		}
	}
	s := Stats{Count: len(valid), NoData: len(g.Data) - len(valid)}
	if len(valid) == 0 {
		return s
	}
	s.Min = floats.Min(valid)
	s.Max = floats.Max(valid)
	s.Mean = floats.Sum(valid) / float64(len(valid))
	return s
}

// Normalize linearly rescales defined cells into [0, 1].
// A constant grid maps to all zeros. NoData cells are preserved.
func Normalize(g *Grid) *Grid {
	out := g.Clone()
	s := g.Stats()
	span := s.Max - s.Min
	for i, v := range out.Data {
		if IsNoData(v) {
			continue
		}
		if span == 0 {
			out.Data[i] = 0
			continue
		}
		out.Data[i] = (v - s.Min) / span
	}
	return out
}

// Equal reports whether two grids have the same shape and identical cells.
// NoData cells compare equal to each other.
func Equal(a, b *Grid) bool {
	if CheckSameShape(a, b) != nil {
		return false
	}
	for i := range a.Data {
		av, bv := a.Data[i], b.Data[i]
		if IsNoData(av) && IsNoData(bv) {
			continue
		}
		if av != bv {
			return false
		}
	}
	return true
}
