// Package tracker projects 2D hand joints into world space and keeps the
// entities attached to each joint positioned frame by frame.
package tracker

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ayusman/handspace/internal/depth"
	"github.com/ayusman/handspace/internal/detector"
	"github.com/ayusman/handspace/internal/geom"
	"github.com/ayusman/handspace/internal/scene"
)

// ErrClosed is returned when attaching to a tracker that has been closed.
var ErrClosed = errors.New("tracker is closed")

// Config holds tracker options.
type Config struct {
	// MaxDistance is the largest depth in meters accepted as valid.
	MaxDistance float32

	// ReferenceJoint supplies the fallback depth for invalid samples.
	ReferenceJoint detector.Joint

	// MinConfidence is the score a hand needs to count as identified.
	MinConfidence float64

	// AutoToggle hides entities while no hand is identified.
	AutoToggle bool
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxDistance:    5.0,
		ReferenceJoint: detector.Wrist,
		MinConfidence:  0.5,
		AutoToggle:     true,
	}
}

// Frame is the input for one tracker update.
type Frame struct {
	// Hand is the hand seen this frame, or nil if none.
	Hand *detector.HandLandmarks
	// Depth is this frame's depth buffer.
	Depth depth.Map
	// Camera casts rays for this frame's viewpoint.
	Camera geom.RayCaster
}

// Position is a joint placed in world space during an update.
type Position struct {
	Joint  detector.Joint `json:"joint"`
	Screen geom.Point2D   `json:"screen"`
	Depth  float32        `json:"depth"`
	World  mgl64.Vec3     `json:"world"`
}

// Tracker owns the joint-to-entity association for one hand.
// It is driven from a single frame loop and is not safe for concurrent use.
type Tracker struct {
	config    Config
	graph     *scene.Graph
	projector *Projector
	entities  map[detector.Joint]scene.Entity

	identified bool // a hand has been identified at least once
	visible    bool // a hand was identified in the latest frame
	closed     bool
}

// New creates a tracker that attaches entities to graph.
func New(config Config, graph *scene.Graph) *Tracker {
	if config.MaxDistance <= 0 {
		config.MaxDistance = DefaultConfig().MaxDistance
	}
	if !config.ReferenceJoint.Valid() {
		config.ReferenceJoint = detector.Wrist
	}
	if graph == nil {
		graph = scene.NewGraph()
	}

	return &Tracker{
		config:    config,
		graph:     graph,
		projector: NewProjector(config.MaxDistance, config.ReferenceJoint),
		entities:  make(map[detector.Joint]scene.Entity),
	}
}

// Attach associates an entity with a joint and adds it to the scene. An
// entity already attached to the joint is detached from the scene first.
func (t *Tracker) Attach(joint detector.Joint, e scene.Entity) error {
	if t.closed {
		return ErrClosed
	}
	if !joint.Valid() {
		return fmt.Errorf("attach: invalid joint %d", int(joint))
	}
	if e == nil {
		return fmt.Errorf("attach %s: nil entity", joint)
	}

	if prev, ok := t.entities[joint]; ok && prev != e {
		t.graph.Remove(prev)
	}

	e.SetEnabled(t.shouldShow())
	t.entities[joint] = e
	t.graph.Add(e)
	return nil
}

// Detach removes a joint's entity from the scene. It returns false if no
// entity was attached.
func (t *Tracker) Detach(joint detector.Joint) bool {
	e, ok := t.entities[joint]
	if !ok {
		return false
	}
	delete(t.entities, joint)
	t.graph.Remove(e)
	return true
}

// Entity returns the entity attached to a joint.
func (t *Tracker) Entity(joint detector.Joint) (scene.Entity, bool) {
	e, ok := t.entities[joint]
	return e, ok
}

// Joints returns the joints with attached entities in landmark order.
func (t *Tracker) Joints() []detector.Joint {
	joints := make([]detector.Joint, 0, len(t.entities))
	for j := range t.entities {
		joints = append(joints, j)
	}
	sort.Slice(joints, func(a, b int) bool { return joints[a] < joints[b] })
	return joints
}

// Identified reports whether a hand has been identified since creation.
func (t *Tracker) Identified() bool {
	return t.identified
}

// HandVisible reports whether the latest update identified a hand.
func (t *Tracker) HandVisible() bool {
	return t.visible
}

// Config returns the tracker's current settings.
func (t *Tracker) Config() Config {
	return t.config
}

// SetMaxDistance changes the largest depth accepted as valid.
func (t *Tracker) SetMaxDistance(meters float32) error {
	if !(meters > 0) {
		return fmt.Errorf("max distance must be positive, got %v", meters)
	}
	t.config.MaxDistance = meters
	t.projector.SetMaxDistance(meters)
	return nil
}

// SetAutoToggle turns hiding entities without an identified hand on or off.
// Entity visibility is updated right away.
func (t *Tracker) SetAutoToggle(on bool) {
	t.config.AutoToggle = on
	if t.identified {
		t.setEntitiesEnabled(t.shouldShow())
	}
}

// Projector exposes the tracker's projector.
func (t *Tracker) Projector() *Projector {
	return t.projector
}

// Update moves every attached entity to its joint's world position for this
// frame and returns the positions that were updated. Joints without a ray or
// depth sample keep their previous position.
func (t *Tracker) Update(f Frame) []Position {
	if t.closed {
		return nil
	}

	identified := f.Hand != nil && f.Hand.Score >= t.config.MinConfidence
	t.setVisible(identified)
	if !identified || f.Depth == nil {
		return nil
	}

	var moved []Position
	for _, joint := range t.updateOrder() {
		screen, ok := f.Hand.ScreenPosition(joint)
		if !ok {
			continue
		}
		raw, ok := f.Depth.Sample(screen)
		if !ok {
			continue
		}

		entity, attached := t.entities[joint]
		if !attached {
			// Reference joint without an entity: only refresh its cached depth.
			t.projector.ResolveDepth(joint, raw)
			continue
		}

		world, d, ok := t.projector.project(f.Camera, joint, screen, raw)
		if !ok {
			continue
		}

		entity.SetPosition(world)
		moved = append(moved, Position{Joint: joint, Screen: screen, Depth: d, World: world})
	}

	return moved
}

// updateOrder puts the reference joint first so that its fresh depth is
// available as a fallback for the other joints in the same frame. The
// reference joint is included even when no entity is attached to it.
func (t *Tracker) updateOrder() []detector.Joint {
	ref := t.config.ReferenceJoint
	order := []detector.Joint{ref}
	for _, j := range t.Joints() {
		if j != ref {
			order = append(order, j)
		}
	}
	return order
}

func (t *Tracker) setVisible(identified bool) {
	changed := identified != t.visible
	t.visible = identified

	if identified && !t.identified {
		t.identified = true
		t.setEntitiesEnabled(true)
		return
	}

	if t.config.AutoToggle && changed && t.identified {
		t.setEntitiesEnabled(identified)
	}
}

func (t *Tracker) shouldShow() bool {
	if !t.identified {
		return false
	}
	return !t.config.AutoToggle || t.visible
}

func (t *Tracker) setEntitiesEnabled(enabled bool) {
	for _, e := range t.entities {
		e.SetEnabled(enabled)
	}
}

// Reset forgets cached depths and the identification state. Attached
// entities stay attached but are hidden until the next identification.
func (t *Tracker) Reset() {
	t.projector.Reset()
	t.identified = false
	t.visible = false
	t.setEntitiesEnabled(false)
}

// Close detaches every entity and clears all caches. Later updates are no-ops.
func (t *Tracker) Close() {
	for joint := range t.entities {
		t.Detach(joint)
	}
	t.projector.Reset()
	t.identified = false
	t.visible = false
	t.closed = true
}
