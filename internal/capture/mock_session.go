package capture

import (
	"sync"
	"time"

	"github.com/ayusman/handspace/internal/depth"
	"github.com/ayusman/handspace/internal/geom"
)

// MockSession plays back in-memory depth maps for testing. Frames carry no
// color image.
type MockSession struct {
	mu       sync.Mutex
	depths   []depth.Map
	camera   geom.RayCaster
	loop     bool
	noDepth  bool
	next     int
	index    uint64
	running  bool
	lastOpen SessionConfig
}

// NewMockSession creates a session that returns the given depth maps in
// order, all seen through camera.
func NewMockSession(depths []depth.Map, camera geom.RayCaster, loop bool) *MockSession {
	return &MockSession{
		depths: depths,
		camera: camera,
		loop:   loop,
	}
}

// SetDepthSupported controls whether the mock claims depth support.
func (m *MockSession) SetDepthSupported(supported bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.noDepth = !supported
}

// Supports implements Session.
func (m *MockSession) Supports(sem Semantic) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !(sem.Has(SemanticDepth) && m.noDepth)
}

// Open implements Session.
func (m *MockSession) Open(cfg SessionConfig) error {
	if !m.Supports(cfg.Semantics) {
		return ErrDepthUnsupported
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
	m.next = 0
	m.lastOpen = cfg
	return nil
}

// Close implements Session.
func (m *MockSession) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	return nil
}

// ReadFrame implements Session.
func (m *MockSession) ReadFrame() (*Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil, ErrSessionNotOpen
	}
	if m.next >= len(m.depths) {
		if !m.loop || len(m.depths) == 0 {
			return nil, ErrEndOfStream
		}
		m.next = 0
	}

	f := &Frame{
		Index:     m.index,
		Timestamp: time.Now(),
		Depth:     m.depths[m.next],
		Camera:    m.camera,
	}
	m.next++
	m.index++
	return f, nil
}

// IsOpen implements Session.
func (m *MockSession) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// LastConfig returns the configuration of the most recent Open.
func (m *MockSession) LastConfig() SessionConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOpen
}
