package geom

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// PinholeCamera is a rigid pinhole camera with normalized intrinsics.
//
// FX and CX are fractions of the image width, FY and CY fractions of the
// image height. The camera looks down -Z with +Y up; Pose maps camera space
// into world space.
type PinholeCamera struct {
	FX, FY float64
	CX, CY float64
	Pose   mgl64.Mat4
}

// NewPinholeCameraFOV returns a centered camera at the world origin with the
// given vertical field of view (degrees) and width/height aspect ratio.
func NewPinholeCameraFOV(fovYDegrees, aspect float64) *PinholeCamera {
	fy := 0.5 / math.Tan(mgl64.DegToRad(fovYDegrees)/2)
	return &PinholeCamera{
		FX:   fy / aspect,
		FY:   fy,
		CX:   0.5,
		CY:   0.5,
		Pose: mgl64.Ident4(),
	}
}

// Ray implements RayCaster.
func (c *PinholeCamera) Ray(p Point2D) (Ray, bool) {
	if c == nil || !p.InViewport() || c.FX == 0 || c.FY == 0 {
		return Ray{}, false
	}

	local := mgl64.Vec3{
		(p.X - c.CX) / c.FX,
		-(p.Y - c.CY) / c.FY,
		-1,
	}

	dir := c.Pose.Mat3().Mul3x1(local)
	if dir.Len() < 1e-12 {
		return Ray{}, false
	}

	return Ray{
		Origin:    c.Pose.Col(3).Vec3(),
		Direction: dir.Normalize(),
	}, true
}

// PoseFromSlice builds a pose from 16 row-major values.
func PoseFromSlice(values []float64) (mgl64.Mat4, error) {
	if len(values) != 16 {
		return mgl64.Mat4{}, fmt.Errorf("pose needs 16 values, got %d", len(values))
	}

	var m mgl64.Mat4
	copy(m[:], values)

	// mgl64 matrices are column-major
	return m.Transpose(), nil
}
