// Package geom provides screen points, camera rays, and the pinhole camera
// model used to turn screen positions into world-space rays.
package geom

import "fmt"

// Point2D is a normalized screen position. (0,0) is the top-left corner of
// the viewport and (1,1) the bottom-right.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// InViewport reports whether the point lies inside the normalized viewport.
func (p Point2D) InViewport() bool {
	return p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1
}

func (p Point2D) String() string {
	return fmt.Sprintf("(%.3f, %.3f)", p.X, p.Y)
}
