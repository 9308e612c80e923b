// Package depth provides per-frame depth maps sampled by normalized screen
// position. Depth values are distances from the camera in meters.
package depth

import (
	"errors"
	"math"

	"github.com/ayusman/handspace/internal/geom"
)

// ErrSizeMismatch is returned when grid data does not match its dimensions.
var ErrSizeMismatch = errors.New("depth data does not match grid size")

// Map is a per-frame depth buffer.
type Map interface {
	// Sample returns the depth at a normalized screen position.
	Sample(p geom.Point2D) (float32, bool)

	// At returns the depth at a pixel column and row.
	At(col, row int) (float32, bool)

	// Size returns the buffer dimensions in pixels.
	Size() (cols, rows int)
}

// pixelFor maps a normalized point to the nearest pixel of a cols x rows
// buffer. Points on the right or bottom edge clamp to the last pixel.
func pixelFor(p geom.Point2D, cols, rows int) (col, row int, ok bool) {
	if cols <= 0 || rows <= 0 || !p.InViewport() {
		return 0, 0, false
	}

	col = int(math.Floor(p.X * float64(cols)))
	row = int(math.Floor(p.Y * float64(rows)))
	if col >= cols {
		col = cols - 1
	}
	if row >= rows {
		row = rows - 1
	}
	return col, row, true
}

// Grid is an in-memory depth buffer stored row by row.
type Grid struct {
	cols, rows int
	data       []float32
}

// NewGrid creates a zero-filled grid.
func NewGrid(cols, rows int) *Grid {
	return &Grid{
		cols: cols,
		rows: rows,
		data: make([]float32, cols*rows),
	}
}

// NewGridFromData wraps existing row-major data.
func NewGridFromData(cols, rows int, data []float32) (*Grid, error) {
	if cols < 0 || rows < 0 || len(data) != cols*rows {
		return nil, ErrSizeMismatch
	}
	return &Grid{cols: cols, rows: rows, data: data}, nil
}

// Uniform returns a grid where every pixel has the same depth.
func Uniform(cols, rows int, meters float32) *Grid {
	g := NewGrid(cols, rows)
	g.Fill(meters)
	return g
}

// Fill sets every pixel to the given depth.
func (g *Grid) Fill(meters float32) {
	for i := range g.data {
		g.data[i] = meters
	}
}

// Set writes a depth value. Out-of-range pixels are ignored.
func (g *Grid) Set(col, row int, meters float32) {
	if col < 0 || row < 0 || col >= g.cols || row >= g.rows {
		return
	}
	g.data[row*g.cols+col] = meters
}

// At implements Map.
func (g *Grid) At(col, row int) (float32, bool) {
	if col < 0 || row < 0 || col >= g.cols || row >= g.rows {
		return 0, false
	}
	return g.data[row*g.cols+col], true
}

// Sample implements Map.
func (g *Grid) Sample(p geom.Point2D) (float32, bool) {
	col, row, ok := pixelFor(p, g.cols, g.rows)
	if !ok {
		return 0, false
	}
	return g.At(col, row)
}

// Size implements Map.
func (g *Grid) Size() (int, int) {
	return g.cols, g.rows
}
