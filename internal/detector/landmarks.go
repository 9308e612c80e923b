// Package detector provides the upstream 2D hand-joint detector interfaces
// and the hand landmark types shared by the rest of the tracker.
package detector

import (
	"fmt"

	"github.com/ayusman/handspace/internal/geom"
)

// Joint identifies a hand landmark. Values follow the MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
type Joint int

const (
	Wrist Joint = iota
	ThumbCMC
	ThumbMCP
	ThumbIP
	ThumbTip
	IndexMCP
	IndexPIP
	IndexDIP
	IndexTip
	MiddleMCP
	MiddlePIP
	MiddleDIP
	MiddleTip
	RingMCP
	RingPIP
	RingDIP
	RingTip
	PinkyMCP
	PinkyPIP
	PinkyDIP
	PinkyTip
)

// NumJoints is the number of landmarks per hand.
const NumJoints = 21

var jointNames = [NumJoints]string{
	"wrist",
	"thumbCMC", "thumbMCP", "thumbIP", "thumbTip",
	"indexMCP", "indexPIP", "indexDIP", "indexTip",
	"middleMCP", "middlePIP", "middleDIP", "middleTip",
	"ringMCP", "ringPIP", "ringDIP", "ringTip",
	"pinkyMCP", "pinkyPIP", "pinkyDIP", "pinkyTip",
}

// String returns the joint's canonical name, e.g. "indexTip".
func (j Joint) String() string {
	if !j.Valid() {
		return fmt.Sprintf("Joint(%d)", int(j))
	}
	return jointNames[j]
}

// Valid reports whether j is one of the 21 hand landmarks.
func (j Joint) Valid() bool {
	return j >= 0 && j < NumJoints
}

// MarshalText implements encoding.TextMarshaler so joints key JSON maps by name.
func (j Joint) MarshalText() ([]byte, error) {
	if !j.Valid() {
		return nil, fmt.Errorf("invalid joint %d", int(j))
	}
	return []byte(jointNames[j]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (j *Joint) UnmarshalText(text []byte) error {
	parsed, err := ParseJoint(string(text))
	if err != nil {
		return err
	}
	*j = parsed
	return nil
}

// ParseJoint looks up a joint by its canonical name.
func ParseJoint(name string) (Joint, error) {
	for i, n := range jointNames {
		if n == name {
			return Joint(i), nil
		}
	}
	return 0, fmt.Errorf("unknown joint %q", name)
}

// AllJoints returns every joint in landmark order.
func AllJoints() []Joint {
	joints := make([]Joint, NumJoints)
	for i := range joints {
		joints[i] = Joint(i)
	}
	return joints
}

// Fingertips returns the five fingertip joints.
func Fingertips() []Joint {
	return []Joint{ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip}
}

// Point3D is a landmark position. X and Y are normalized image coordinates;
// Z is the detector's relative depth estimate and is not metric.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks reported for one hand.
type HandLandmarks struct {
	Points     [NumJoints]Point3D `json:"points"`
	Handedness string             `json:"handedness"` // "Left" or "Right"
	Score      float64            `json:"score"`
}

// ScreenPosition returns the normalized screen position of a joint.
func (h *HandLandmarks) ScreenPosition(j Joint) (geom.Point2D, bool) {
	if h == nil || !j.Valid() {
		return geom.Point2D{}, false
	}
	p := h.Points[j]
	return geom.Point2D{X: p.X, Y: p.Y}, true
}

// SelectHand picks the highest scoring hand with at least minScore.
// A non-empty handedness restricts the choice to that hand.
// Returns nil if no hand qualifies.
func SelectHand(hands []HandLandmarks, handedness string, minScore float64) *HandLandmarks {
	var best *HandLandmarks
	for i := range hands {
		h := &hands[i]
		if h.Score < minScore {
			continue
		}
		if handedness != "" && h.Handedness != handedness {
			continue
		}
		if best == nil || h.Score > best.Score {
			best = h
		}
	}
	return best
}
