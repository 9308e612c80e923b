package app

import (
	"errors"
	"log"
	"time"

	"github.com/ayusman/handspace/internal/capture"
	"github.com/ayusman/handspace/internal/detector"
	"github.com/ayusman/handspace/internal/scene"
	"github.com/ayusman/handspace/internal/store"
	"github.com/ayusman/handspace/internal/tracker"
)

// SubscriberBuffer is the channel size handed out by Subscribe.
const SubscriberBuffer = 8

var timeNow = time.Now

// Update is published to subscribers after every processed frame.
type Update struct {
	Frame       uint64             `json:"frame"`
	TimestampMs int64              `json:"timestamp_ms"`
	Detected    bool               `json:"detected"`
	HandVisible bool               `json:"hand_visible"`
	Positions   []tracker.Position `json:"positions"`
	Nodes       []scene.Node       `json:"nodes"`
}

// Subscribe returns a channel receiving every frame update and a function
// that cancels the subscription. Updates are dropped for subscribers that
// fall behind. The channel is closed when the app stops.
func (a *App) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, SubscriberBuffer)

	a.subMu.Lock()
	a.subscribers[ch] = struct{}{}
	a.subMu.Unlock()

	cancel := func() {
		a.subMu.Lock()
		defer a.subMu.Unlock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
	}
	return ch, cancel
}

func (a *App) publish(u Update) {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	for ch := range a.subscribers {
		select {
		case ch <- u:
		default:
		}
	}
}

func (a *App) closeSubscribers() {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	for ch := range a.subscribers {
		delete(a.subscribers, ch)
		close(ch)
	}
}

// runLoop reads and processes one frame per tick until stopCh is closed or
// the source runs out of frames.
func (a *App) runLoop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(time.Second / time.Duration(a.config.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}
			if !a.step() {
				return
			}
		}
	}
}

// step handles one frame. It returns false when the source is exhausted.
func (a *App) step() bool {
	frame, err := a.config.Session.ReadFrame()
	if err != nil {
		if errors.Is(err, capture.ErrEndOfStream) {
			log.Println("Capture stream ended")
			return false
		}
		log.Printf("Error reading frame: %v", err)
		return true
	}
	defer frame.Close()

	u := a.processFrame(frame)
	a.publish(u)
	return true
}

// processFrame runs throttled detection and the tracker update for one
// frame. Frames skipped by the throttle reuse the previous detection.
func (a *App) processFrame(frame *capture.Frame) Update {
	a.trackMu.Lock()
	defer a.trackMu.Unlock()

	detected := false
	if a.config.Detector != nil && a.throttle.Allow() {
		hands, err := a.config.Detector.Detect(frame.Color)
		if err != nil {
			log.Printf("Error detecting hands: %v", err)
		} else {
			detected = true
			a.lastHand = nil
			if h := detector.SelectHand(hands, a.config.Handedness, 0); h != nil {
				hand := *h
				a.lastHand = &hand
			}
		}
	}

	positions := a.tracker.Update(tracker.Frame{
		Hand:   a.lastHand,
		Depth:  frame.Depth,
		Camera: frame.Camera,
	})

	if a.recordingID != "" && len(positions) > 0 {
		a.recordFrame(frame, positions)
	}

	return Update{
		Frame:       frame.Index,
		TimestampMs: frame.Timestamp.UnixMilli(),
		Detected:    detected,
		HandVisible: a.tracker.HandVisible(),
		Positions:   positions,
		Nodes:       a.graph.Snapshot(),
	}
}

// recordFrame must be called with trackMu held.
func (a *App) recordFrame(frame *capture.Frame, positions []tracker.Position) {
	samples := make([]store.JointSample, len(positions))
	for i, p := range positions {
		samples[i] = store.JointSample{
			Frame:       frame.Index,
			Joint:       p.Joint.String(),
			X:           p.World.X(),
			Y:           p.World.Y(),
			Z:           p.World.Z(),
			Depth:       float64(p.Depth),
			TimestampMs: frame.Timestamp.UnixMilli(),
		}
	}

	if err := a.config.Store.Recordings().AddFrame(a.recordingID, samples); err != nil {
		log.Printf("Error recording frame %d: %v", frame.Index, err)
	}
}
