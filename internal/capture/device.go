package capture

import (
	"errors"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/handspace/internal/depth"
	"github.com/ayusman/handspace/internal/geom"
)

// NoDevice disables the depth stream of a DeviceSession.
const NoDevice = -1

// DeviceConfig identifies the capture devices of a live session.
type DeviceConfig struct {
	// ColorID is the OpenCV device index of the color camera.
	ColorID int
	// DepthID is the device index of a 16-bit depth stream, or NoDevice.
	DepthID int
	// FOVY is the color camera's vertical field of view in degrees.
	FOVY float64
}

// DeviceSession captures from local video devices using GoCV. Depth is
// available only when a depth device is configured; it must deliver
// single-channel 16-bit millimeter frames aligned with the color stream.
type DeviceSession struct {
	devices DeviceConfig

	mu      sync.Mutex
	color   *gocv.VideoCapture
	depth   *gocv.VideoCapture
	config  SessionConfig
	camera  *geom.PinholeCamera
	running bool
	index   uint64
}

// NewDeviceSession creates a session for the given devices.
func NewDeviceSession(devices DeviceConfig) *DeviceSession {
	if devices.FOVY <= 0 {
		devices.FOVY = 60
	}
	return &DeviceSession{
		devices: devices,
		config:  DefaultSessionConfig(),
	}
}

// Supports implements Session.
func (s *DeviceSession) Supports(sem Semantic) bool {
	if sem.Has(SemanticDepth) && s.devices.DepthID == NoDevice {
		return false
	}
	return true
}

// Open opens the configured devices.
func (s *DeviceSession) Open(cfg SessionConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if !s.Supports(cfg.Semantics) {
		return ErrDepthUnsupported
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = DefaultWidth, DefaultHeight
	}
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultFPS
	}

	color, err := gocv.OpenVideoCapture(s.devices.ColorID)
	if err != nil {
		return err
	}
	color.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	color.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	color.Set(gocv.VideoCaptureFPS, float64(cfg.FPS))

	if cfg.Semantics.Has(SemanticDepth) {
		d, err := gocv.OpenVideoCapture(s.devices.DepthID)
		if err != nil {
			color.Close()
			return err
		}
		// Keep the raw 16-bit samples instead of converting to BGR.
		d.Set(gocv.VideoCaptureConvertRGB, 0)
		d.Set(gocv.VideoCaptureFPS, float64(cfg.FPS))
		s.depth = d
	}

	s.color = color
	s.config = cfg
	s.camera = geom.NewPinholeCameraFOV(s.devices.FOVY, float64(cfg.Width)/float64(cfg.Height))
	s.running = true
	s.index = 0

	return nil
}

// Close closes the devices and releases resources.
func (s *DeviceSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.color != nil {
		errs = append(errs, s.color.Close())
		s.color = nil
	}
	if s.depth != nil {
		errs = append(errs, s.depth.Close())
		s.depth = nil
	}
	s.running = false

	return errors.Join(errs...)
}

// ReadFrame reads one color frame and, when requested, one depth frame.
func (s *DeviceSession) ReadFrame() (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.color == nil {
		return nil, ErrSessionNotOpen
	}

	color := gocv.NewMat()
	if ok := s.color.Read(&color); !ok || color.Empty() {
		color.Close()
		return nil, errors.New("failed to read color frame")
	}

	f := &Frame{
		Index:     s.index,
		Timestamp: time.Now(),
		Color:     &color,
		Camera:    s.camera,
	}
	s.index++

	if s.depth != nil {
		raw := gocv.NewMat()
		if ok := s.depth.Read(&raw); !ok || raw.Empty() {
			// Depth dropouts leave the frame without a depth map.
			raw.Close()
			return f, nil
		}
		f.depthMat = &raw
		f.Depth = depth.NewMatMap(raw)
	}

	return f, nil
}

// IsOpen returns true if the session is capturing.
func (s *DeviceSession) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
