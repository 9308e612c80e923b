package geom

import "github.com/go-gl/mathgl/mgl64"

// Ray is a world-space half line with a unit-length Direction.
type Ray struct {
	Origin    mgl64.Vec3
	Direction mgl64.Vec3
}

// At returns the point at the given distance along the ray.
func (r Ray) At(distance float64) mgl64.Vec3 {
	return r.Origin.Add(r.Direction.Mul(distance))
}

// RayCaster converts a normalized screen position into a world-space ray.
// It returns false when no ray can be derived, e.g. for a point outside the
// viewport.
type RayCaster interface {
	Ray(p Point2D) (Ray, bool)
}
