package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It returns preconfigured hands and counts how often it was asked.
type MockDetector struct {
	mu     sync.Mutex
	hands  []HandLandmarks
	err    error
	calls  int
	closed bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Calls returns the number of Detect invocations.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// openPalmOffsets are joint positions relative to the wrist for an upright
// right hand with all fingers spread, in units of the wrist-to-middle-tip span.
var openPalmOffsets = [NumJoints][2]float64{
	Wrist:     {0, 0},
	ThumbCMC:  {0.10, -0.10},
	ThumbMCP:  {0.23, -0.19},
	ThumbIP:   {0.35, -0.29},
	ThumbTip:  {0.44, -0.38},
	IndexMCP:  {0.10, -0.23},
	IndexPIP:  {0.13, -0.48},
	IndexDIP:  {0.15, -0.67},
	IndexTip:  {0.15, -0.87},
	MiddleMCP: {0, -0.27},
	MiddlePIP: {0, -0.54},
	MiddleDIP: {0, -0.77},
	MiddleTip: {0, -1},
	RingMCP:   {-0.10, -0.23},
	RingPIP:   {-0.13, -0.48},
	RingDIP:   {-0.15, -0.67},
	RingTip:   {-0.15, -0.87},
	PinkyMCP:  {-0.19, -0.19},
	PinkyPIP:  {-0.25, -0.38},
	PinkyDIP:  {-0.29, -0.56},
	PinkyTip:  {-0.31, -0.71},
}

// OpenHandAt returns an open right hand whose wrist sits at (wristX, wristY)
// in normalized screen coordinates, scaled so the middle fingertip is span
// above the wrist.
func OpenHandAt(wristX, wristY, span, score float64) HandLandmarks {
	lm := HandLandmarks{
		Handedness: "Right",
		Score:      score,
	}
	for j, off := range openPalmOffsets {
		lm.Points[j] = Point3D{
			X: wristX + off[0]*span,
			Y: wristY + off[1]*span,
		}
	}
	return lm
}

// OpenPalmLandmarks returns a confident open right hand centered low in the frame.
func OpenPalmLandmarks() HandLandmarks {
	return OpenHandAt(0.5, 0.8, 0.5, 0.95)
}
