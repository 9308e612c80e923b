package scene

import (
	"fmt"
	"sort"
	"sync"
)

// Graph is the set of entities currently attached to the scene.
type Graph struct {
	mu       sync.RWMutex
	entities map[string]Entity
}

// NewGraph creates an empty scene graph.
func NewGraph() *Graph {
	return &Graph{
		entities: make(map[string]Entity),
	}
}

// Add attaches an entity. Adding an attached entity is a no-op.
func (g *Graph) Add(e Entity) {
	if e == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entities[e.ID()] = e
}

// Remove detaches an entity. Removing an unknown entity is a no-op.
func (g *Graph) Remove(e Entity) {
	if e == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entities, e.ID())
}

// Contains reports whether the entity is attached.
func (g *Graph) Contains(e Entity) bool {
	if e == nil {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.entities[e.ID()]
	return ok
}

// Len returns the number of attached entities.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entities)
}

// Node is a point-in-time view of an entity.
type Node struct {
	ID       string     `json:"id"`
	Position [3]float64 `json:"position"`
	Enabled  bool       `json:"enabled"`
	Radius   float64    `json:"radius,omitempty"`
	Color    string     `json:"color,omitempty"`
}

// Snapshot returns every attached entity ordered by ID.
func (g *Graph) Snapshot() []Node {
	g.mu.RLock()
	nodes := make([]Node, 0, len(g.entities))
	for _, e := range g.entities {
		p := e.Position()
		n := Node{
			ID:       e.ID(),
			Position: [3]float64{p.X(), p.Y(), p.Z()},
			Enabled:  e.Enabled(),
		}
		if s, ok := e.(*Sphere); ok {
			n.Radius = s.Radius
			n.Color = hexColor(s.Color.R, s.Color.G, s.Color.B)
		}
		nodes = append(nodes, n)
	}
	g.mu.RUnlock()

	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].ID < nodes[j].ID
	})
	return nodes
}

func hexColor(r, g, b uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}
