// Package scene holds the visual entities attached to a tracked hand and the
// graph that renderers and viewers read them from.
package scene

import (
	"image/color"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Entity is a visual object that can be positioned in world space.
type Entity interface {
	ID() string
	Position() mgl64.Vec3
	SetPosition(p mgl64.Vec3)
	Enabled() bool
	SetEnabled(enabled bool)
}

// Sphere is a colored sphere entity. It is safe for concurrent use.
type Sphere struct {
	id     string
	Radius float64
	Color  color.RGBA

	mu       sync.RWMutex
	position mgl64.Vec3
	enabled  bool
}

// NewSphere creates a disabled sphere at the world origin.
func NewSphere(radius float64, c color.RGBA) *Sphere {
	return &Sphere{
		id:     uuid.New().String(),
		Radius: radius,
		Color:  c,
	}
}

// ID returns the sphere's unique identifier.
func (s *Sphere) ID() string {
	return s.id
}

// Position returns the sphere's world position.
func (s *Sphere) Position() mgl64.Vec3 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.position
}

// SetPosition moves the sphere.
func (s *Sphere) SetPosition(p mgl64.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = p
}

// Enabled reports whether the sphere should be rendered.
func (s *Sphere) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// SetEnabled shows or hides the sphere.
func (s *Sphere) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}
