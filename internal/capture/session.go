// Package capture provides RGB-D capture sessions: a color frame, a depth map
// and the camera that took them, once per frame.
package capture

import (
	"errors"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/handspace/internal/depth"
	"github.com/ayusman/handspace/internal/geom"
)

// Default session settings
const (
	DefaultFPS    = 30
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrSessionNotOpen is returned when reading from a session that is not open.
	ErrSessionNotOpen = errors.New("session is not open")

	// ErrDepthUnsupported is returned when depth is requested from a source
	// that cannot provide it.
	ErrDepthUnsupported = errors.New("depth capture is not supported by this source")

	// ErrEndOfStream is returned when a finite source has no more frames.
	ErrEndOfStream = errors.New("end of stream")
)

// Semantic is a set of per-frame data a session is asked to deliver.
type Semantic uint8

const (
	SemanticColor Semantic = 1 << iota
	SemanticDepth
)

// Has reports whether all bits of other are set in s.
func (s Semantic) Has(other Semantic) bool {
	return s&other == other
}

// SessionConfig configures a capture session.
type SessionConfig struct {
	Semantics Semantic
	FPS       int
	Width     int
	Height    int
}

// DefaultSessionConfig requests color and depth at the default resolution.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Semantics: SemanticColor | SemanticDepth,
		FPS:       DefaultFPS,
		Width:     DefaultWidth,
		Height:    DefaultHeight,
	}
}

// Frame is one captured frame. Close releases the OpenCV buffers.
type Frame struct {
	Index     uint64
	Timestamp time.Time
	Color     *gocv.Mat
	Depth     depth.Map
	Camera    geom.RayCaster

	depthMat *gocv.Mat
}

// Close releases the frame's matrices. It is safe to call more than once.
func (f *Frame) Close() {
	if f == nil {
		return
	}
	if f.Color != nil {
		f.Color.Close()
		f.Color = nil
	}
	if f.depthMat != nil {
		f.depthMat.Close()
		f.depthMat = nil
	}
	f.Depth = nil
}

// Session is a source of RGB-D frames.
type Session interface {
	// Open starts capture. It returns ErrDepthUnsupported if cfg asks for
	// depth the source cannot deliver.
	Open(cfg SessionConfig) error
	Close() error
	// ReadFrame returns the next frame. The caller must Close it.
	ReadFrame() (*Frame, error)
	// Supports reports whether the source can deliver the semantic.
	Supports(s Semantic) bool
	IsOpen() bool
}
