package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ayusman/handspace/internal/capture"
	"github.com/ayusman/handspace/internal/detector"
	"github.com/ayusman/handspace/internal/tracker"
)

// Config is the handspace process configuration.
type Config struct {
	Addr    string `env:"HANDSPACE_ADDR" envDefault:":8080"`
	DataDir string `env:"HANDSPACE_DATA_DIR"`
	WebDir  string `env:"HANDSPACE_WEB_DIR"`
	Tray    bool   `env:"HANDSPACE_TRAY" envDefault:"true"`

	// ReplayDir plays back a recorded RGB-D directory instead of devices.
	ReplayDir   string  `env:"HANDSPACE_REPLAY_DIR"`
	ReplayLoop  bool    `env:"HANDSPACE_REPLAY_LOOP" envDefault:"true"`
	ColorDevice int     `env:"HANDSPACE_COLOR_DEVICE" envDefault:"0"`
	DepthDevice int     `env:"HANDSPACE_DEPTH_DEVICE" envDefault:"-1"`
	FOVY        float64 `env:"HANDSPACE_FOV_Y" envDefault:"60"`
	FPS         int     `env:"HANDSPACE_FPS" envDefault:"30"`

	DetectionRate   tracker.Rate   `env:"HANDSPACE_DETECTION_RATE" envDefault:"every-frame"`
	MaxDistance     float32        `env:"HANDSPACE_MAX_DISTANCE" envDefault:"5"`
	ReferenceJoint  detector.Joint `env:"HANDSPACE_REFERENCE_JOINT" envDefault:"wrist"`
	MinConfidence   float64        `env:"HANDSPACE_MIN_CONFIDENCE" envDefault:"0.5"`
	AutoToggle      bool           `env:"HANDSPACE_AUTO_TOGGLE" envDefault:"true"`
	Handedness      string         `env:"HANDSPACE_HANDEDNESS"`
	Joints          []string       `env:"HANDSPACE_JOINTS" envSeparator:"," envDefault:"wrist,thumbTip,indexTip,middleTip,ringTip,pinkyTip"`
	SphereRadius    float64        `env:"HANDSPACE_SPHERE_RADIUS" envDefault:"0.01"`
	Record          bool           `env:"HANDSPACE_RECORD"`
	MediaPipeScript string         `env:"HANDSPACE_MEDIAPIPE_SCRIPT"`
}

// Load parses the environment and fills derived defaults.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve data dir: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".handspace")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the environment parser cannot.
func (c Config) Validate() error {
	var errs []error
	if c.MaxDistance <= 0 {
		errs = append(errs, fmt.Errorf("max distance must be positive, got %v", c.MaxDistance))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps must be positive, got %d", c.FPS))
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("min confidence must be within [0,1], got %v", c.MinConfidence))
	}
	switch c.Handedness {
	case "", "Left", "Right":
	default:
		errs = append(errs, fmt.Errorf("handedness must be Left or Right, got %q", c.Handedness))
	}
	if _, err := c.TrackedJoints(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// DBPath returns the SQLite database location.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "handspace.db")
}

// TrackedJoints parses Joints.
func (c Config) TrackedJoints() ([]detector.Joint, error) {
	joints := make([]detector.Joint, 0, len(c.Joints))
	for _, name := range c.Joints {
		j, err := detector.ParseJoint(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		joints = append(joints, j)
	}
	return joints, nil
}

// Tracker returns the tracker settings.
func (c Config) Tracker() tracker.Config {
	return tracker.Config{
		MaxDistance:    c.MaxDistance,
		ReferenceJoint: c.ReferenceJoint,
		MinConfidence:  c.MinConfidence,
		AutoToggle:     c.AutoToggle,
	}
}

// Detector returns the 2D detector settings.
func (c Config) Detector() detector.Config {
	cfg := detector.DefaultConfig()
	cfg.MinConfidence = c.MinConfidence
	cfg.ScriptPath = c.MediaPipeScript
	return cfg
}

// Session builds the capture session the configuration selects.
func (c Config) Session() capture.Session {
	if c.ReplayDir != "" {
		return capture.NewReplaySession(c.ReplayDir, c.ReplayLoop)
	}
	return capture.NewDeviceSession(capture.DeviceConfig{
		ColorID: c.ColorDevice,
		DepthID: c.DepthDevice,
		FOVY:    c.FOVY,
	})
}

// SourceName labels recordings made from this configuration.
func (c Config) SourceName() string {
	if c.ReplayDir != "" {
		return "replay:" + c.ReplayDir
	}
	return fmt.Sprintf("device:%d/%d", c.ColorDevice, c.DepthDevice)
}
