package tracker

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ayusman/handspace/internal/detector"
	"github.com/ayusman/handspace/internal/geom"
)

// Projector turns a joint's screen position and depth sample into a world
// position. It remembers the last valid depth of every joint so that an
// invalid sample can fall back to the reference joint's depth.
type Projector struct {
	maxDistance float32
	reference   detector.Joint
	lastDepth   map[detector.Joint]float32
}

// NewProjector creates a projector that rejects depths above maxDistance
// meters and falls back to the reference joint's last valid depth.
func NewProjector(maxDistance float32, reference detector.Joint) *Projector {
	return &Projector{
		maxDistance: maxDistance,
		reference:   reference,
		lastDepth:   make(map[detector.Joint]float32),
	}
}

// ResolveDepth applies the validity gate to a raw sample and returns the
// depth to project with.
//
// A sample outside (0, maxDistance], NaN included, is replaced by the
// reference joint's last valid depth when one exists, and passed through
// unchanged otherwise.
// A valid sample becomes the joint's last known depth.
func (p *Projector) ResolveDepth(joint detector.Joint, raw float32) float32 {
	if !(raw > 0 && raw <= p.maxDistance) {
		if last, ok := p.lastDepth[p.reference]; ok {
			return last
		}
		return raw
	}

	p.lastDepth[joint] = raw
	return raw
}

// Project returns the world position of a joint, or false if the caster
// cannot produce a ray for the screen position or the resolved depth is NaN.
func (p *Projector) Project(caster geom.RayCaster, joint detector.Joint, screen geom.Point2D, raw float32) (mgl64.Vec3, bool) {
	world, _, ok := p.project(caster, joint, screen, raw)
	return world, ok
}

// project also returns the depth the position was computed with.
func (p *Projector) project(caster geom.RayCaster, joint detector.Joint, screen geom.Point2D, raw float32) (mgl64.Vec3, float32, bool) {
	d := p.ResolveDepth(joint, raw)

	if caster == nil || math.IsNaN(float64(d)) {
		return mgl64.Vec3{}, d, false
	}
	ray, ok := caster.Ray(screen)
	if !ok {
		return mgl64.Vec3{}, d, false
	}

	return ray.At(float64(d)), d, true
}

// LastDepth returns the last valid depth recorded for a joint.
func (p *Projector) LastDepth(joint detector.Joint) (float32, bool) {
	d, ok := p.lastDepth[joint]
	return d, ok
}

// Reference returns the fallback joint.
func (p *Projector) Reference() detector.Joint {
	return p.reference
}

// MaxDistance returns the largest accepted depth in meters.
func (p *Projector) MaxDistance() float32 {
	return p.maxDistance
}

// SetMaxDistance changes the largest accepted depth. Cached depths are kept.
func (p *Projector) SetMaxDistance(meters float32) {
	p.maxDistance = meters
}

// Reset forgets every cached depth.
func (p *Projector) Reset() {
	clear(p.lastDepth)
}
