package tracker

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/handspace/internal/detector"
	"github.com/ayusman/handspace/internal/geom"
)

// fixedCaster returns the same ray for every in-viewport point.
type fixedCaster struct {
	ray geom.Ray
}

func (c fixedCaster) Ray(p geom.Point2D) (geom.Ray, bool) {
	if !p.InViewport() {
		return geom.Ray{}, false
	}
	return c.ray, true
}

var testRay = geom.Ray{
	Origin:    mgl64.Vec3{0.25, 1.5, -2},
	Direction: mgl64.Vec3{0.6, 0, -0.8},
}

func TestProjector_ResolveDepth(t *testing.T) {
	t.Run("valid depth is cached exactly", func(t *testing.T) {
		p := NewProjector(3, detector.Wrist)

		got := p.ResolveDepth(detector.IndexTip, 0.4375)
		assert.Equal(t, float32(0.4375), got)

		last, ok := p.LastDepth(detector.IndexTip)
		require.True(t, ok)
		assert.Equal(t, float32(0.4375), last)
	})

	t.Run("depth equal to max is valid", func(t *testing.T) {
		p := NewProjector(3, detector.Wrist)
		assert.Equal(t, float32(3), p.ResolveDepth(detector.ThumbTip, 3))

		_, ok := p.LastDepth(detector.ThumbTip)
		assert.True(t, ok)
	})

	t.Run("zero depth uses reference joint", func(t *testing.T) {
		p := NewProjector(3, detector.Wrist)
		p.ResolveDepth(detector.Wrist, 0.6)

		assert.Equal(t, float32(0.6), p.ResolveDepth(detector.IndexTip, 0))

		_, cached := p.LastDepth(detector.IndexTip)
		assert.False(t, cached, "fallback must not be cached as the joint's own depth")
	})

	t.Run("zero depth without reference passes through", func(t *testing.T) {
		p := NewProjector(3, detector.Wrist)
		p.ResolveDepth(detector.IndexTip, 0.5)

		assert.Equal(t, float32(0), p.ResolveDepth(detector.MiddleTip, 0))
	})

	t.Run("out of range uses reference joint", func(t *testing.T) {
		p := NewProjector(3, detector.Wrist)
		p.ResolveDepth(detector.Wrist, 0.7)

		assert.Equal(t, float32(0.7), p.ResolveDepth(detector.PinkyTip, 3.01))
		last, _ := p.LastDepth(detector.Wrist)
		assert.Equal(t, float32(0.7), last)
	})

	t.Run("out of range without reference passes through", func(t *testing.T) {
		p := NewProjector(3, detector.Wrist)
		assert.Equal(t, float32(9), p.ResolveDepth(detector.PinkyTip, 9))
	})

	t.Run("NaN is invalid and never cached", func(t *testing.T) {
		p := NewProjector(3, detector.Wrist)
		nan := float32(math.NaN())

		got := p.ResolveDepth(detector.Wrist, nan)
		assert.True(t, math.IsNaN(float64(got)), "NaN without reference passes through")
		_, cached := p.LastDepth(detector.Wrist)
		assert.False(t, cached)

		p.ResolveDepth(detector.Wrist, 0.8)
		assert.Equal(t, float32(0.8), p.ResolveDepth(detector.Wrist, nan))
		assert.Equal(t, float32(0.8), p.ResolveDepth(detector.IndexTip, 0),
			"a NaN reference sample must not poison the fallback")

		last, _ := p.LastDepth(detector.Wrist)
		assert.Equal(t, float32(0.8), last)
	})

	t.Run("negative depth uses reference joint", func(t *testing.T) {
		p := NewProjector(3, detector.Wrist)
		assert.Equal(t, float32(-1), p.ResolveDepth(detector.RingTip, -1))
		_, cached := p.LastDepth(detector.RingTip)
		assert.False(t, cached)

		p.ResolveDepth(detector.Wrist, 1.1)
		assert.Equal(t, float32(1.1), p.ResolveDepth(detector.RingTip, -0.25))
	})

	t.Run("max distance can change", func(t *testing.T) {
		p := NewProjector(3, detector.Wrist)
		p.ResolveDepth(detector.Wrist, 1)
		p.SetMaxDistance(1.5)

		assert.Equal(t, float32(1.5), p.MaxDistance())
		assert.Equal(t, float32(1), p.ResolveDepth(detector.IndexTip, 2))
	})

	t.Run("reset clears the cache", func(t *testing.T) {
		p := NewProjector(3, detector.Wrist)
		p.ResolveDepth(detector.Wrist, 0.7)
		p.Reset()

		_, ok := p.LastDepth(detector.Wrist)
		assert.False(t, ok)
	})
}

func TestProjector_Project(t *testing.T) {
	caster := fixedCaster{ray: testRay}

	t.Run("origin plus direction times depth", func(t *testing.T) {
		p := NewProjector(5, detector.Wrist)

		for _, d := range []float32{0.25, 0.5, 1.75, 4.5} {
			got, ok := p.Project(caster, detector.IndexTip, geom.Point2D{X: 0.5, Y: 0.5}, d)
			require.True(t, ok)

			want := testRay.Origin.Add(testRay.Direction.Mul(float64(d)))
			assert.Equal(t, want, got)
		}
	})

	t.Run("fallback depth is projected", func(t *testing.T) {
		p := NewProjector(5, detector.Wrist)
		p.ResolveDepth(detector.Wrist, 2)

		got, ok := p.Project(caster, detector.IndexTip, geom.Point2D{X: 0.5, Y: 0.5}, 0)
		require.True(t, ok)
		assert.Equal(t, testRay.At(2), got)
	})

	t.Run("NaN without fallback fails", func(t *testing.T) {
		p := NewProjector(5, detector.Wrist)
		nan := float32(math.NaN())

		_, ok := p.Project(caster, detector.IndexTip, geom.Point2D{X: 0.5, Y: 0.5}, nan)
		assert.False(t, ok)

		p.ResolveDepth(detector.Wrist, 1.5)
		got, ok := p.Project(caster, detector.IndexTip, geom.Point2D{X: 0.5, Y: 0.5}, nan)
		require.True(t, ok)
		assert.Equal(t, testRay.At(1.5), got)
	})

	t.Run("no ray fails", func(t *testing.T) {
		p := NewProjector(5, detector.Wrist)

		_, ok := p.Project(caster, detector.IndexTip, geom.Point2D{X: 2, Y: 0.5}, 1)
		assert.False(t, ok)
	})

	t.Run("no ray still caches a valid depth", func(t *testing.T) {
		p := NewProjector(5, detector.Wrist)

		_, ok := p.Project(caster, detector.Wrist, geom.Point2D{X: -1, Y: 0.5}, 1.5)
		assert.False(t, ok)

		last, cached := p.LastDepth(detector.Wrist)
		assert.True(t, cached)
		assert.Equal(t, float32(1.5), last)
	})

	t.Run("nil caster fails", func(t *testing.T) {
		p := NewProjector(5, detector.Wrist)

		_, ok := p.Project(nil, detector.IndexTip, geom.Point2D{X: 0.5, Y: 0.5}, 1)
		assert.False(t, ok)
	})

	t.Run("pinhole camera center", func(t *testing.T) {
		p := NewProjector(5, detector.Wrist)
		cam := geom.NewPinholeCameraFOV(60, 1)

		got, ok := p.Project(cam, detector.Wrist, geom.Point2D{X: 0.5, Y: 0.5}, 0.5)
		require.True(t, ok)
		assert.InDelta(t, 0, got.X(), 1e-12)
		assert.InDelta(t, 0, got.Y(), 1e-12)
		assert.InDelta(t, -0.5, got.Z(), 1e-12)
	})
}
