// Package animator blends resolved morph weights toward their targets and
// plays viseme timelines. The scheduler's Tick is the single writer of mesh
// weight state.
package animator

import (
	"math"
	"sort"

	"github.com/normanking/lipsync/internal/registry"
)

const (
	DefaultTransitionSpeed = 0.35
	DefaultSnapEpsilon     = 0.001

	// referenceRate is the frame rate the transition speed is normalized
	// to: at a 60Hz step the per-tick blend fraction equals the speed.
	referenceRate = 60.0
)

// ChannelWeight pairs a channel name with a blended weight
type ChannelWeight struct {
	Name   string
	Weight float32
}

// trackedChannel carries blend state for one morph channel. written is the
// last value flushed to the meshes, so immediate jumps still reach them on
// the next Tick.
type trackedChannel struct {
	channel *registry.Channel
	current float32
	target  float32
	written float32
}

// Scheduler eases tracked channels toward their targets with frame-rate
// normalized exponential smoothing, snapping within epsilon. Channels that
// settle at zero are dropped from tracking.
type Scheduler struct {
	speed   float32
	epsilon float32
	tracked map[string]*trackedChannel
}

// NewScheduler creates a scheduler; out-of-range arguments fall back to the
// defaults.
func NewScheduler(speed, epsilon float32) *Scheduler {
	if speed <= 0 || speed > 1 {
		speed = DefaultTransitionSpeed
	}
	if epsilon <= 0 {
		epsilon = DefaultSnapEpsilon
	}
	return &Scheduler{
		speed:   speed,
		epsilon: epsilon,
		tracked: make(map[string]*trackedChannel),
	}
}

// SetSpeed adjusts the per-reference-frame blend fraction, clamped to (0,1].
// Non-positive rates are ignored.
func (s *Scheduler) SetSpeed(speed float32) bool {
	if speed <= 0 {
		return false
	}
	if speed > 1 {
		speed = 1
	}
	s.speed = speed
	return true
}

// Speed returns the current transition speed
func (s *Scheduler) Speed() float32 {
	return s.speed
}

// SetTarget tracks a channel and retargets it. With immediate the current
// weight jumps too; the mesh still updates on the next Tick.
func (s *Scheduler) SetTarget(ch *registry.Channel, weight float32, immediate bool) {
	tc, ok := s.tracked[ch.Name]
	if !ok {
		cur := ch.Current()
		tc = &trackedChannel{channel: ch, current: cur, written: cur}
		s.tracked[ch.Name] = tc
	}
	tc.target = weight
	if immediate {
		tc.current = weight
	}
}

// ZeroTargets retargets every tracked channel to zero
func (s *Scheduler) ZeroTargets(immediate bool) {
	for _, tc := range s.tracked {
		tc.target = 0
		if immediate {
			tc.current = 0
		}
	}
}

// Tick advances all tracked channels by dt seconds and writes changed
// weights through to the meshes. Returns the number of channel writes.
func (s *Scheduler) Tick(dt float32) int {
	if dt <= 0 {
		return 0
	}

	factor := 1 - float32(math.Pow(float64(1-s.speed), float64(dt*referenceRate)))

	written := 0
	for name, tc := range s.tracked {
		delta := tc.target - tc.current
		if abs32(delta) <= s.epsilon {
			tc.current = tc.target
		} else {
			tc.current += delta * factor
		}

		if tc.current != tc.written {
			tc.channel.Set(tc.current)
			tc.written = tc.current
			written++
		}

		if tc.current == 0 && tc.target == 0 {
			delete(s.tracked, name)
		}
	}

	return written
}

// Target returns the target weight for a channel name, 0 when untracked
func (s *Scheduler) Target(name string) float32 {
	if tc, ok := s.tracked[name]; ok {
		return tc.target
	}
	return 0
}

// Current returns the blended weight for a channel name, 0 when untracked
func (s *Scheduler) Current(name string) float32 {
	if tc, ok := s.tracked[name]; ok {
		return tc.current
	}
	return 0
}

// Targets returns a snapshot of the target vector, sorted by name
func (s *Scheduler) Targets() []ChannelWeight {
	out := make([]ChannelWeight, 0, len(s.tracked))
	for name, tc := range s.tracked {
		out = append(out, ChannelWeight{Name: name, Weight: tc.target})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Active returns channels with non-zero blended weight, sorted by name
func (s *Scheduler) Active() []ChannelWeight {
	out := make([]ChannelWeight, 0, len(s.tracked))
	for name, tc := range s.tracked {
		if tc.current <= 0 {
			continue
		}
		out = append(out, ChannelWeight{Name: name, Weight: tc.current})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Settled reports whether every tracked channel reached its target
func (s *Scheduler) Settled() bool {
	for _, tc := range s.tracked {
		if tc.current != tc.target {
			return false
		}
	}
	return true
}

// Reset writes zero to every tracked channel and clears tracking
func (s *Scheduler) Reset() {
	for _, tc := range s.tracked {
		tc.channel.Set(0)
	}
	s.tracked = make(map[string]*trackedChannel)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
