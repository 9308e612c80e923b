package scene

import (
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
)

func TestSphere(t *testing.T) {
	s := NewSphere(0.01, color.RGBA{R: 255, A: 255})

	if s.ID() == "" {
		t.Error("sphere should have an ID")
	}
	if s.Enabled() {
		t.Error("new sphere should start disabled")
	}

	s.SetPosition(mgl64.Vec3{1, 2, 3})
	s.SetEnabled(true)

	if s.Position() != (mgl64.Vec3{1, 2, 3}) {
		t.Errorf("Position() = %v, want [1 2 3]", s.Position())
	}
	if !s.Enabled() {
		t.Error("sphere should be enabled")
	}

	other := NewSphere(0.01, color.RGBA{})
	if other.ID() == s.ID() {
		t.Error("spheres should have distinct IDs")
	}
}

func TestGraph_AddRemove(t *testing.T) {
	g := NewGraph()
	a := NewSphere(0.01, color.RGBA{})
	b := NewSphere(0.02, color.RGBA{})

	g.Add(a)
	g.Add(a)
	g.Add(b)
	g.Add(nil)

	if g.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", g.Len())
	}
	if !g.Contains(a) || !g.Contains(b) {
		t.Error("graph should contain both spheres")
	}

	g.Remove(a)
	g.Remove(a)

	if g.Contains(a) {
		t.Error("graph should not contain removed sphere")
	}
	if g.Len() != 1 {
		t.Errorf("Len() = %d, want 1", g.Len())
	}
}

func TestGraph_Snapshot(t *testing.T) {
	g := NewGraph()
	s := NewSphere(0.015, color.RGBA{R: 0x12, G: 0xab, B: 0xff, A: 255})
	s.SetPosition(mgl64.Vec3{0.1, -0.2, -0.5})
	s.SetEnabled(true)
	g.Add(s)

	want := []Node{{
		ID:       s.ID(),
		Position: [3]float64{0.1, -0.2, -0.5},
		Enabled:  true,
		Radius:   0.015,
		Color:    "#12abff",
	}}

	if diff := cmp.Diff(want, g.Snapshot()); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}
}
