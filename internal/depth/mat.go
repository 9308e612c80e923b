package depth

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/handspace/internal/geom"
)

// MillimetersPerMeter converts 16-bit depth frames to meters.
const MillimetersPerMeter = 1000.0

// MatMap reads depth directly from an OpenCV matrix.
//
// Supported formats are single-channel CV32F in meters and single-channel
// CV16U in millimeters. Any other pixel format yields no samples.
type MatMap struct {
	mat gocv.Mat
}

// NewMatMap wraps mat without copying it. The caller keeps ownership.
func NewMatMap(mat gocv.Mat) *MatMap {
	return &MatMap{mat: mat}
}

// Supported reports whether the pixel format can be read as depth.
func (m *MatMap) Supported() bool {
	if m.mat.Empty() || m.mat.Channels() != 1 {
		return false
	}
	switch m.mat.Type() {
	case gocv.MatTypeCV32F, gocv.MatTypeCV16U:
		return true
	}
	return false
}

// At implements Map.
func (m *MatMap) At(col, row int) (float32, bool) {
	if !m.Supported() {
		return 0, false
	}
	if col < 0 || row < 0 || col >= m.mat.Cols() || row >= m.mat.Rows() {
		return 0, false
	}

	switch m.mat.Type() {
	case gocv.MatTypeCV32F:
		return m.mat.GetFloatAt(row, col), true
	case gocv.MatTypeCV16U:
		// GetShortAt returns the raw 16 bits as int16.
		mm := uint16(m.mat.GetShortAt(row, col))
		return float32(float64(mm) / MillimetersPerMeter), true
	}
	return 0, false
}

// Sample implements Map.
func (m *MatMap) Sample(p geom.Point2D) (float32, bool) {
	col, row, ok := pixelFor(p, m.mat.Cols(), m.mat.Rows())
	if !ok {
		return 0, false
	}
	return m.At(col, row)
}

// Size implements Map.
func (m *MatMap) Size() (int, int) {
	return m.mat.Cols(), m.mat.Rows()
}

// Mat returns the wrapped matrix.
func (m *MatMap) Mat() gocv.Mat {
	return m.mat
}
