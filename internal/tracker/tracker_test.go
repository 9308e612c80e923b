package tracker

import (
	"image/color"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/handspace/internal/depth"
	"github.com/ayusman/handspace/internal/detector"
	"github.com/ayusman/handspace/internal/geom"
	"github.com/ayusman/handspace/internal/scene"
)

func newSphere() *scene.Sphere {
	return scene.NewSphere(0.01, color.RGBA{R: 255, A: 255})
}

func newTestTracker(t *testing.T, autoToggle bool) (*Tracker, *scene.Graph) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.AutoToggle = autoToggle
	g := scene.NewGraph()
	return New(cfg, g), g
}

func handFrame(d depth.Map) Frame {
	hand := detector.OpenPalmLandmarks()
	return Frame{
		Hand:   &hand,
		Depth:  d,
		Camera: fixedCaster{ray: testRay},
	}
}

func TestTracker_AttachReplaces(t *testing.T) {
	tr, g := newTestTracker(t, true)
	first := newSphere()
	second := newSphere()

	require.NoError(t, tr.Attach(detector.IndexTip, first))
	require.NoError(t, tr.Attach(detector.IndexTip, second))

	got, ok := tr.Entity(detector.IndexTip)
	require.True(t, ok)
	assert.Same(t, second, got)

	assert.False(t, g.Contains(first), "replaced entity must be detached from the scene")
	assert.True(t, g.Contains(second))
	assert.Equal(t, 1, g.Len())

	tr.Update(handFrame(depth.Uniform(8, 8, 0.5)))
	assert.Equal(t, mgl64.Vec3{}, first.Position(), "replaced entity must no longer be moved")
	assert.NotEqual(t, mgl64.Vec3{}, second.Position())
}

func TestTracker_AttachSameEntityTwice(t *testing.T) {
	tr, g := newTestTracker(t, true)
	s := newSphere()

	require.NoError(t, tr.Attach(detector.Wrist, s))
	require.NoError(t, tr.Attach(detector.Wrist, s))

	assert.True(t, g.Contains(s))
	assert.Equal(t, 1, g.Len())
}

func TestTracker_AttachErrors(t *testing.T) {
	tr, _ := newTestTracker(t, true)

	assert.Error(t, tr.Attach(detector.Joint(21), newSphere()))
	assert.Error(t, tr.Attach(detector.Wrist, nil))

	tr.Close()
	assert.ErrorIs(t, tr.Attach(detector.Wrist, newSphere()), ErrClosed)
}

func TestTracker_Detach(t *testing.T) {
	tr, g := newTestTracker(t, true)
	s := newSphere()
	require.NoError(t, tr.Attach(detector.ThumbTip, s))

	assert.True(t, tr.Detach(detector.ThumbTip))
	assert.False(t, tr.Detach(detector.ThumbTip))
	assert.False(t, g.Contains(s))
	assert.Empty(t, tr.Joints())
}

func TestTracker_UpdateProjectsJoints(t *testing.T) {
	tr, _ := newTestTracker(t, true)
	wrist := newSphere()
	tip := newSphere()
	require.NoError(t, tr.Attach(detector.IndexTip, tip))
	require.NoError(t, tr.Attach(detector.Wrist, wrist))

	moved := tr.Update(handFrame(depth.Uniform(8, 8, 0.5)))

	require.Len(t, moved, 2)
	assert.Equal(t, detector.Wrist, moved[0].Joint, "reference joint updates first")
	assert.Equal(t, testRay.At(0.5), wrist.Position())
	assert.Equal(t, testRay.At(0.5), tip.Position())
	assert.Equal(t, float32(0.5), moved[1].Depth)
}

func TestTracker_InvalidDepthFallsBackWithinFrame(t *testing.T) {
	tr, _ := newTestTracker(t, true)
	wrist := newSphere()
	tip := newSphere()
	require.NoError(t, tr.Attach(detector.Wrist, wrist))
	require.NoError(t, tr.Attach(detector.IndexTip, tip))

	hand := detector.OpenPalmLandmarks()
	grid := depth.Uniform(10, 10, 0.8)
	// Zero out the pixel under the index fingertip.
	tipPos, _ := hand.ScreenPosition(detector.IndexTip)
	grid.Set(int(tipPos.X*10), int(tipPos.Y*10), 0)

	tr.Update(Frame{Hand: &hand, Depth: grid, Camera: fixedCaster{ray: testRay}})

	assert.Equal(t, testRay.At(0.8), tip.Position())
	_, cached := tr.Projector().LastDepth(detector.IndexTip)
	assert.False(t, cached)
}

func TestTracker_UnattachedReferenceStillSuppliesFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReferenceJoint = detector.IndexMCP
	tr := New(cfg, scene.NewGraph())
	tip := newSphere()
	require.NoError(t, tr.Attach(detector.IndexTip, tip))

	hand := detector.OpenPalmLandmarks()
	grid := depth.Uniform(10, 10, 0.9)
	tipPos, _ := hand.ScreenPosition(detector.IndexTip)
	grid.Set(int(tipPos.X*10), int(tipPos.Y*10), 0)

	moved := tr.Update(Frame{Hand: &hand, Depth: grid, Camera: fixedCaster{ray: testRay}})

	require.Len(t, moved, 1, "the reference joint has no entity to move")
	assert.Equal(t, detector.IndexTip, moved[0].Joint)
	assert.Equal(t, float32(0.9), moved[0].Depth)
	assert.Equal(t, testRay.At(0.9), tip.Position())

	last, ok := tr.Projector().LastDepth(detector.IndexMCP)
	require.True(t, ok)
	assert.Equal(t, float32(0.9), last)
}

func TestTracker_SetMaxDistance(t *testing.T) {
	tr, _ := newTestTracker(t, true)
	wrist := newSphere()
	tip := newSphere()
	require.NoError(t, tr.Attach(detector.Wrist, wrist))
	require.NoError(t, tr.Attach(detector.IndexTip, tip))

	assert.Error(t, tr.SetMaxDistance(0))
	assert.Error(t, tr.SetMaxDistance(float32(math.NaN())))

	tr.Update(handFrame(depth.Uniform(8, 8, 1)))
	require.NoError(t, tr.SetMaxDistance(0.75))
	assert.Equal(t, float32(0.75), tr.Config().MaxDistance)

	moved := tr.Update(handFrame(depth.Uniform(8, 8, 1)))
	require.Len(t, moved, 2)
	for _, p := range moved {
		assert.Equal(t, float32(1), p.Depth, "1m is now out of range and falls back to the cached wrist depth")
	}
	last, _ := tr.Projector().LastDepth(detector.Wrist)
	assert.Equal(t, float32(1), last)
}

func TestTracker_SetAutoToggle(t *testing.T) {
	tr, _ := newTestTracker(t, true)
	s := newSphere()
	require.NoError(t, tr.Attach(detector.Wrist, s))

	tr.Update(handFrame(depth.Uniform(4, 4, 1)))
	tr.Update(Frame{})
	require.False(t, s.Enabled())

	tr.SetAutoToggle(false)
	assert.False(t, tr.Config().AutoToggle)
	assert.True(t, s.Enabled(), "turning auto toggle off shows identified entities")

	tr.SetAutoToggle(true)
	assert.False(t, s.Enabled(), "no hand in view")
}

func TestTracker_MissingRayKeepsStalePosition(t *testing.T) {
	tr, _ := newTestTracker(t, true)
	tip := newSphere()
	require.NoError(t, tr.Attach(detector.IndexTip, tip))

	tr.Update(handFrame(depth.Uniform(8, 8, 1)))
	stale := tip.Position()

	hand := detector.OpenPalmLandmarks()
	moved := tr.Update(Frame{Hand: &hand, Depth: depth.Uniform(8, 8, 2), Camera: nil})

	assert.Empty(t, moved)
	assert.Equal(t, stale, tip.Position())
}

func TestTracker_MissingDepthKeepsStalePosition(t *testing.T) {
	tr, _ := newTestTracker(t, true)
	tip := newSphere()
	require.NoError(t, tr.Attach(detector.IndexTip, tip))

	tr.Update(handFrame(depth.Uniform(8, 8, 1)))
	stale := tip.Position()

	hand := detector.OpenPalmLandmarks()
	hand.Points[detector.IndexTip].X = 1.5 // off screen
	moved := tr.Update(Frame{Hand: &hand, Depth: depth.Uniform(8, 8, 2), Camera: fixedCaster{ray: testRay}})
	assert.Empty(t, moved)
	assert.Equal(t, stale, tip.Position())

	moved = tr.Update(handFrame(depth.NewGrid(0, 0)))
	assert.Empty(t, moved)
	assert.Equal(t, stale, tip.Position())

	moved = tr.Update(handFrame(nil))
	assert.Empty(t, moved)
	assert.Equal(t, stale, tip.Position())
}

func TestTracker_EnabledAfterFirstIdentification(t *testing.T) {
	tr, _ := newTestTracker(t, false)
	s := newSphere()
	require.NoError(t, tr.Attach(detector.Wrist, s))
	assert.False(t, s.Enabled(), "entities start hidden")

	tr.Update(Frame{})
	assert.False(t, s.Enabled(), "no hand yet")

	weak := detector.OpenHandAt(0.5, 0.8, 0.4, 0.1)
	tr.Update(Frame{Hand: &weak, Depth: depth.Uniform(4, 4, 1), Camera: fixedCaster{ray: testRay}})
	assert.False(t, s.Enabled(), "low-confidence hand is not an identification")

	tr.Update(handFrame(depth.Uniform(4, 4, 1)))
	assert.True(t, s.Enabled())
	assert.True(t, tr.Identified())

	tr.Update(Frame{})
	assert.True(t, s.Enabled(), "without auto toggle entities stay visible")

	late := newSphere()
	require.NoError(t, tr.Attach(detector.ThumbTip, late))
	assert.True(t, late.Enabled(), "entities attached after identification are visible")
}

func TestTracker_AutoToggle(t *testing.T) {
	tr, _ := newTestTracker(t, true)
	s := newSphere()
	require.NoError(t, tr.Attach(detector.Wrist, s))

	tr.Update(handFrame(depth.Uniform(4, 4, 1)))
	assert.True(t, s.Enabled())

	tr.Update(Frame{})
	assert.False(t, s.Enabled())
	assert.False(t, tr.HandVisible())

	hidden := newSphere()
	require.NoError(t, tr.Attach(detector.ThumbTip, hidden))
	assert.False(t, hidden.Enabled(), "no hand in view")

	tr.Update(handFrame(depth.Uniform(4, 4, 1)))
	assert.True(t, s.Enabled())
	assert.True(t, hidden.Enabled())
}

func TestTracker_Close(t *testing.T) {
	tr, g := newTestTracker(t, true)
	a := newSphere()
	b := newSphere()
	require.NoError(t, tr.Attach(detector.Wrist, a))
	require.NoError(t, tr.Attach(detector.MiddleTip, b))
	tr.Update(handFrame(depth.Uniform(4, 4, 1)))

	tr.Close()

	assert.Equal(t, 0, g.Len())
	assert.Empty(t, tr.Joints())
	_, ok := tr.Projector().LastDepth(detector.Wrist)
	assert.False(t, ok)
	assert.Nil(t, tr.Update(handFrame(depth.Uniform(4, 4, 1))))
}

func TestTracker_Reset(t *testing.T) {
	tr, _ := newTestTracker(t, false)
	s := newSphere()
	require.NoError(t, tr.Attach(detector.Wrist, s))
	tr.Update(handFrame(depth.Uniform(4, 4, 1)))

	tr.Reset()

	assert.False(t, s.Enabled())
	assert.False(t, tr.Identified())
	_, ok := tr.Projector().LastDepth(detector.Wrist)
	assert.False(t, ok)
}

func TestTracker_WithPinholeCamera(t *testing.T) {
	tr, _ := newTestTracker(t, true)
	s := newSphere()
	require.NoError(t, tr.Attach(detector.MiddleMCP, s))

	hand := detector.OpenPalmLandmarks()
	cam := geom.NewPinholeCameraFOV(60, 4.0/3.0)
	tr.Update(Frame{Hand: &hand, Depth: depth.Uniform(16, 12, 0.6), Camera: cam})

	p := s.Position()
	assert.InDelta(t, 0.6, p.Len(), 1e-9, "distance from camera equals depth")
	assert.Less(t, p.Z(), 0.0, "point is in front of the camera")
}
