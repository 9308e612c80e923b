package tracker

import (
	"fmt"
	"strconv"
	"sync/atomic"
)

// Rate is how often the upstream 2D detector runs, as a frame divisor.
type Rate int

const (
	EveryFrame       Rate = 1
	EveryOtherFrame  Rate = 2
	EveryFourthFrame Rate = 4
)

// Valid reports whether r is a supported rate.
func (r Rate) Valid() bool {
	switch r {
	case EveryFrame, EveryOtherFrame, EveryFourthFrame:
		return true
	}
	return false
}

func (r Rate) String() string {
	switch r {
	case EveryFrame:
		return "every-frame"
	case EveryOtherFrame:
		return "every-other-frame"
	case EveryFourthFrame:
		return "every-fourth-frame"
	}
	return "Rate(" + strconv.Itoa(int(r)) + ")"
}

// MarshalText implements encoding.TextMarshaler.
func (r Rate) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid detection rate %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rate) UnmarshalText(text []byte) error {
	parsed, err := ParseRate(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRate accepts a rate name ("every-other-frame") or divisor ("2").
func ParseRate(s string) (Rate, error) {
	for _, r := range []Rate{EveryFrame, EveryOtherFrame, EveryFourthFrame} {
		if s == r.String() || s == strconv.Itoa(int(r)) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown detection rate %q", s)
}

// Throttle decides on which frames the detector runs. One Throttle is shared
// by the frame loop and the controls that change its rate.
type Throttle struct {
	rate  atomic.Int64
	frame atomic.Uint64
}

// NewThrottle creates a throttle. Invalid rates fall back to EveryFrame.
func NewThrottle(r Rate) *Throttle {
	t := &Throttle{}
	if !r.Valid() {
		r = EveryFrame
	}
	t.rate.Store(int64(r))
	return t
}

// Allow is called once per frame and reports whether detection should run.
// The first frame after creation or a rate change always runs.
func (t *Throttle) Allow() bool {
	n := t.frame.Add(1) - 1
	return n%uint64(t.rate.Load()) == 0
}

// Rate returns the current rate.
func (t *Throttle) Rate() Rate {
	return Rate(t.rate.Load())
}

// SetRate changes the rate and restarts the frame count.
func (t *Throttle) SetRate(r Rate) error {
	if !r.Valid() {
		return fmt.Errorf("invalid detection rate %d", int(r))
	}
	t.rate.Store(int64(r))
	t.frame.Store(0)
	return nil
}
