package capture

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"gocv.io/x/gocv"

	"github.com/ayusman/handspace/internal/depth"
	"github.com/ayusman/handspace/internal/geom"
)

// Replay directory layout.
const (
	CameraFile   = "camera.json"
	colorSuffix  = "_color.jpg"
	depthSuffix  = "_depth.png"
	framePattern = "%06d"
)

// CameraInfo is the camera.json file of a recorded sequence. Intrinsics are
// normalized; Pose is 16 row-major values and defaults to identity.
type CameraInfo struct {
	FX   float64   `json:"fx"`
	FY   float64   `json:"fy"`
	CX   float64   `json:"cx"`
	CY   float64   `json:"cy"`
	Pose []float64 `json:"pose,omitempty"`
}

// Camera builds the pinhole camera described by the file.
func (c CameraInfo) Camera() (*geom.PinholeCamera, error) {
	if c.FX <= 0 || c.FY <= 0 {
		return nil, fmt.Errorf("camera focal lengths must be positive")
	}

	cam := &geom.PinholeCamera{FX: c.FX, FY: c.FY, CX: c.CX, CY: c.CY}
	if len(c.Pose) == 0 {
		cam.Pose = mgl64.Ident4()
		return cam, nil
	}

	pose, err := geom.PoseFromSlice(c.Pose)
	if err != nil {
		return nil, err
	}
	cam.Pose = pose
	return cam, nil
}

// ReplaySession plays back a recorded RGB-D sequence from a directory
// holding camera.json and numbered NNNNNN_color.jpg / NNNNNN_depth.png
// pairs. Depth PNGs are 16-bit millimeters.
type ReplaySession struct {
	dir  string
	loop bool

	mu      sync.Mutex
	frames  []string // frame name prefixes in playback order
	camera  *geom.PinholeCamera
	next    int
	index   uint64
	running bool
}

// NewReplaySession creates a session over dir. With loop set, playback
// restarts at the first frame instead of returning ErrEndOfStream.
func NewReplaySession(dir string, loop bool) *ReplaySession {
	return &ReplaySession{dir: dir, loop: loop}
}

// Supports implements Session. Recordings always carry color and depth.
func (s *ReplaySession) Supports(Semantic) bool {
	return true
}

// Open reads the camera description and indexes the frames.
func (s *ReplaySession) Open(cfg SessionConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	data, err := os.ReadFile(filepath.Join(s.dir, CameraFile))
	if err != nil {
		return fmt.Errorf("read camera info: %w", err)
	}
	var info CameraInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return fmt.Errorf("parse camera info: %w", err)
	}
	cam, err := info.Camera()
	if err != nil {
		return fmt.Errorf("camera info: %w", err)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read replay dir: %w", err)
	}

	var frames []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, colorSuffix) {
			continue
		}
		prefix := strings.TrimSuffix(name, colorSuffix)
		if _, err := os.Stat(filepath.Join(s.dir, prefix+depthSuffix)); err != nil {
			continue // color without depth is not a usable frame
		}
		frames = append(frames, prefix)
	}
	if len(frames) == 0 {
		return fmt.Errorf("no frames in %s", s.dir)
	}
	sort.Strings(frames)

	s.frames = frames
	s.camera = cam
	s.next = 0
	s.index = 0
	s.running = true

	return nil
}

// Close stops playback.
func (s *ReplaySession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

// ReadFrame loads the next recorded frame.
func (s *ReplaySession) ReadFrame() (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrSessionNotOpen
	}
	if s.next >= len(s.frames) {
		if !s.loop {
			return nil, ErrEndOfStream
		}
		s.next = 0
	}

	prefix := filepath.Join(s.dir, s.frames[s.next])
	s.next++

	color := gocv.IMRead(prefix+colorSuffix, gocv.IMReadColor)
	if color.Empty() {
		color.Close()
		return nil, fmt.Errorf("read %s%s", prefix, colorSuffix)
	}

	raw := gocv.IMRead(prefix+depthSuffix, gocv.IMReadUnchanged)
	if raw.Empty() {
		raw.Close()
		color.Close()
		return nil, fmt.Errorf("read %s%s", prefix, depthSuffix)
	}

	f := &Frame{
		Index:     s.index,
		Timestamp: time.Now(),
		Color:     &color,
		Depth:     depth.NewMatMap(raw),
		Camera:    s.camera,
		depthMat:  &raw,
	}
	s.index++

	return f, nil
}

// IsOpen returns true while playback is active.
func (s *ReplaySession) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Len returns the number of indexed frames.
func (s *ReplaySession) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// WriteReplayFrame stores one frame in replay layout. depthMM must be a
// single-channel 16-bit millimeter matrix.
func WriteReplayFrame(dir string, index int, color, depthMM gocv.Mat) error {
	prefix := filepath.Join(dir, fmt.Sprintf(framePattern, index))
	if ok := gocv.IMWrite(prefix+colorSuffix, color); !ok {
		return fmt.Errorf("write %s%s", prefix, colorSuffix)
	}
	if ok := gocv.IMWrite(prefix+depthSuffix, depthMM); !ok {
		return fmt.Errorf("write %s%s", prefix, depthSuffix)
	}
	return nil
}

// WriteCameraInfo stores camera.json in dir.
func WriteCameraInfo(dir string, info CameraInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, CameraFile), data, 0644)
}
