// Package app wires the capture session, the 2D detector and the tracker
// into the per-frame loop of the handspace system.
package app

import (
	"errors"
	"fmt"
	"image/color"
	"log"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/ayusman/handspace/internal/capture"
	"github.com/ayusman/handspace/internal/detector"
	"github.com/ayusman/handspace/internal/scene"
	"github.com/ayusman/handspace/internal/store"
	"github.com/ayusman/handspace/internal/tracker"
)

// DefaultFPS is the loop rate when the config leaves FPS unset.
const DefaultFPS = capture.DefaultFPS

// ErrRunning is returned when changing configuration that is fixed while
// the loop runs.
var ErrRunning = errors.New("app is running")

// Config holds configuration options for the application.
type Config struct {
	Session  capture.Session
	Detector detector.Detector
	Store    *store.Store

	Tracker tracker.Config
	Rate    tracker.Rate
	FPS     int

	// Handedness restricts tracking to "Left" or "Right". Empty tracks the
	// best scoring hand.
	Handedness string

	// Record stores every frame's joint positions as a recording.
	Record bool

	// Source labels recordings.
	Source string
}

// DefaultConfig returns a Config with sensible default values. Session and
// Detector must still be set.
func DefaultConfig() Config {
	return Config{
		Tracker: tracker.DefaultConfig(),
		Rate:    tracker.EveryFrame,
		FPS:     DefaultFPS,
	}
}

// App runs the tracking loop.
type App struct {
	config   Config
	graph    *scene.Graph
	throttle *tracker.Throttle

	// trackMu guards the tracker and the per-run loop state.
	trackMu     sync.Mutex
	tracker     *tracker.Tracker
	lastHand    *detector.HandLandmarks
	recordingID string

	// lifeMu serializes Start and Stop.
	lifeMu sync.Mutex

	mu      sync.RWMutex
	enabled bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	depthAlert sync.Once

	subMu       sync.Mutex
	subscribers map[chan Update]struct{}
}

// New creates a new App instance with the given configuration. Stored
// settings override the detection rate, max distance and auto toggle.
func New(config Config) *App {
	if config.FPS <= 0 {
		config.FPS = DefaultFPS
	}
	if !config.Rate.Valid() {
		config.Rate = tracker.EveryFrame
	}

	if config.Store != nil {
		restoreSettings(config.Store.Settings(), &config)
	}

	graph := scene.NewGraph()
	return &App{
		config:      config,
		graph:       graph,
		throttle:    tracker.NewThrottle(config.Rate),
		tracker:     tracker.New(config.Tracker, graph),
		enabled:     true,
		subscribers: make(map[chan Update]struct{}),
	}
}

// restoreSettings applies persisted settings on top of config. Unparsable
// values are logged and ignored.
func restoreSettings(settings *store.SettingsRepository, config *Config) {
	if v, err := settings.Get(store.SettingDetectionRate); err == nil {
		if r, err := tracker.ParseRate(v); err == nil {
			config.Rate = r
		} else {
			log.Printf("Ignoring stored detection rate %q: %v", v, err)
		}
	}

	if v, err := settings.Get(store.SettingMaxDistance); err == nil {
		if d, err := strconv.ParseFloat(v, 32); err == nil && d > 0 {
			config.Tracker.MaxDistance = float32(d)
		} else {
			log.Printf("Ignoring stored max distance %q", v)
		}
	}

	if v, err := settings.Get(store.SettingAutoToggle); err == nil {
		if on, err := strconv.ParseBool(v); err == nil {
			config.Tracker.AutoToggle = on
		} else {
			log.Printf("Ignoring stored auto toggle %q: %v", v, err)
		}
	}
}

// Graph returns the scene graph entities are attached to.
func (a *App) Graph() *scene.Graph {
	return a.graph
}

// Throttle returns the detection rate throttle shared with control surfaces.
func (a *App) Throttle() *tracker.Throttle {
	return a.throttle
}

// Attach associates an entity with a joint.
func (a *App) Attach(joint detector.Joint, e scene.Entity) error {
	a.trackMu.Lock()
	defer a.trackMu.Unlock()
	return a.tracker.Attach(joint, e)
}

// Detach removes the entity attached to a joint.
func (a *App) Detach(joint detector.Joint) bool {
	a.trackMu.Lock()
	defer a.trackMu.Unlock()
	return a.tracker.Detach(joint)
}

// AttachSpheres attaches a new sphere of the given radius to each joint.
func (a *App) AttachSpheres(joints []detector.Joint, radius float64, c color.RGBA) error {
	for _, j := range joints {
		if err := a.Attach(j, scene.NewSphere(radius, c)); err != nil {
			return fmt.Errorf("attach sphere: %w", err)
		}
	}
	return nil
}

// HandVisible reports whether the latest frame identified a hand.
func (a *App) HandVisible() bool {
	a.trackMu.Lock()
	defer a.trackMu.Unlock()
	return a.tracker.HandVisible()
}

// SetEnabled pauses or resumes frame processing without closing the session.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether frame processing is enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// IsRunning returns whether the loop is running.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// SetRate changes the detection rate and persists it.
func (a *App) SetRate(r tracker.Rate) error {
	if err := a.throttle.SetRate(r); err != nil {
		return err
	}
	if err := a.persist(store.SettingDetectionRate, strconv.Itoa(int(r))); err != nil {
		return fmt.Errorf("persist detection rate: %w", err)
	}
	log.Printf("Detection rate set to %s", r)
	return nil
}

// MaxDistance returns the largest depth in meters accepted as valid.
func (a *App) MaxDistance() float32 {
	a.trackMu.Lock()
	defer a.trackMu.Unlock()
	return a.tracker.Config().MaxDistance
}

// SetMaxDistance changes the largest valid depth and persists it.
func (a *App) SetMaxDistance(meters float32) error {
	a.trackMu.Lock()
	err := a.tracker.SetMaxDistance(meters)
	if err == nil {
		a.config.Tracker.MaxDistance = meters
	}
	a.trackMu.Unlock()
	if err != nil {
		return err
	}

	if err := a.persist(store.SettingMaxDistance, strconv.FormatFloat(float64(meters), 'f', -1, 32)); err != nil {
		return fmt.Errorf("persist max distance: %w", err)
	}
	log.Printf("Max distance set to %.2fm", meters)
	return nil
}

// AutoToggle returns whether entities are hidden while no hand is identified.
func (a *App) AutoToggle() bool {
	a.trackMu.Lock()
	defer a.trackMu.Unlock()
	return a.tracker.Config().AutoToggle
}

// SetAutoToggle turns auto toggling on or off and persists it.
func (a *App) SetAutoToggle(on bool) error {
	a.trackMu.Lock()
	a.tracker.SetAutoToggle(on)
	a.config.Tracker.AutoToggle = on
	a.trackMu.Unlock()

	if err := a.persist(store.SettingAutoToggle, strconv.FormatBool(on)); err != nil {
		return fmt.Errorf("persist auto toggle: %w", err)
	}
	return nil
}

func (a *App) persist(key, value string) error {
	if a.config.Store == nil {
		return nil
	}
	return a.config.Store.Settings().Set(key, value)
}

// Start opens the session with depth enabled and starts the frame loop.
// A source without depth support is reported once and the app does not
// start.
func (a *App) Start() error {
	a.lifeMu.Lock()
	defer a.lifeMu.Unlock()

	if a.IsRunning() {
		return nil
	}
	if a.config.Session == nil {
		return errors.New("no capture session configured")
	}

	cfg := capture.DefaultSessionConfig()
	cfg.FPS = a.config.FPS

	if !a.config.Session.Supports(capture.SemanticDepth) {
		a.reportDepthUnsupported()
		return capture.ErrDepthUnsupported
	}
	if err := a.config.Session.Open(cfg); err != nil {
		if errors.Is(err, capture.ErrDepthUnsupported) {
			a.reportDepthUnsupported()
		}
		return fmt.Errorf("open session: %w", err)
	}

	if a.config.Record && a.config.Store != nil {
		if err := a.startRecording(); err != nil {
			a.config.Session.Close()
			return err
		}
	}

	stopCh, doneCh := make(chan struct{}), make(chan struct{})
	a.mu.Lock()
	a.stopCh, a.doneCh = stopCh, doneCh
	a.mu.Unlock()
	go a.runLoop(stopCh, doneCh)

	log.Println("Tracking loop started")
	return nil
}

func (a *App) reportDepthUnsupported() {
	a.depthAlert.Do(func() {
		log.Println("Depth capture is not supported by this source; hand tracking is unavailable")
	})
}

// Stop halts the loop, detaches every entity, clears cached depths and
// releases the detector and session.
func (a *App) Stop() {
	a.lifeMu.Lock()
	defer a.lifeMu.Unlock()

	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh

	a.teardown()
	log.Println("Tracking loop stopped")
}

// teardown runs once the loop has exited.
func (a *App) teardown() {
	a.trackMu.Lock()
	a.tracker.Close()
	// A fresh tracker lets the app be started again.
	a.tracker = tracker.New(a.config.Tracker, a.graph)
	a.lastHand = nil
	a.finishRecording()
	a.trackMu.Unlock()

	if a.config.Detector != nil {
		if err := a.config.Detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}
	if err := a.config.Session.Close(); err != nil {
		log.Printf("Error closing session: %v", err)
	}

	a.closeSubscribers()
}

func (a *App) startRecording() error {
	a.trackMu.Lock()
	defer a.trackMu.Unlock()

	rec := &store.Recording{
		ID:            uuid.New().String(),
		Source:        a.config.Source,
		DetectionRate: int(a.throttle.Rate()),
		MaxDistance:   float64(a.tracker.Projector().MaxDistance()),
	}
	if err := a.config.Store.Recordings().Create(rec); err != nil {
		return fmt.Errorf("create recording: %w", err)
	}
	a.recordingID = rec.ID

	log.Printf("Recording %s started", rec.ID)
	return nil
}

// finishRecording must be called with trackMu held.
func (a *App) finishRecording() {
	if a.recordingID == "" {
		return
	}
	if err := a.config.Store.Recordings().Finish(a.recordingID, timeNow()); err != nil {
		log.Printf("Error finishing recording %s: %v", a.recordingID, err)
	} else {
		log.Printf("Recording %s finished", a.recordingID)
	}
	a.recordingID = ""
}

// RecordingID returns the ID of the active recording, if any.
func (a *App) RecordingID() string {
	a.trackMu.Lock()
	defer a.trackMu.Unlock()
	return a.recordingID
}

// Rate returns the current detection rate.
func (a *App) Rate() tracker.Rate {
	return a.throttle.Rate()
}
