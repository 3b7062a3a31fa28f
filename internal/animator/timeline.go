package animator

import (
	"fmt"
	"sort"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// defaultTailMs extends the final frame when it carries no duration
const defaultTailMs = 120.0

// Frame is one timeline entry: a viseme onset with intensity and an optional
// hold duration, all in milliseconds. A zero duration extends the frame to
// the next frame's start.
type Frame struct {
	TimeMs     float64 `json:"time"`
	Viseme     string  `json:"viseme"`
	Intensity  float64 `json:"intensity"`
	DurationMs float64 `json:"duration,omitempty"`
}

// Timeline is an immutable time-sorted viseme sequence with a session id
type Timeline struct {
	ID     string
	frames []Frame
}

// NewTimeline sorts the frames and assigns a playback session id. Intensity
// defaults to 1 when unset.
func NewTimeline(frames []Frame) *Timeline {
	sorted := make([]Frame, len(frames))
	copy(sorted, frames)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TimeMs < sorted[j].TimeMs })

	for i := range sorted {
		if sorted[i].Intensity == 0 {
			sorted[i].Intensity = 1
		}
	}

	return &Timeline{
		ID:     uuid.NewString(),
		frames: sorted,
	}
}

// Frames returns the sorted frames
func (t *Timeline) Frames() []Frame {
	return t.frames
}

// Len returns the frame count
func (t *Timeline) Len() int {
	return len(t.frames)
}

// end returns the exclusive end time of frame i
func (t *Timeline) end(i int) float64 {
	f := t.frames[i]
	if f.DurationMs > 0 {
		return f.TimeMs + f.DurationMs
	}
	if i+1 < len(t.frames) {
		return t.frames[i+1].TimeMs
	}
	return f.TimeMs + defaultTailMs
}

// DurationMs returns the total playback length including the final tail
func (t *Timeline) DurationMs() float64 {
	if len(t.frames) == 0 {
		return 0
	}
	return t.end(len(t.frames) - 1)
}

// FrameAt returns the frame whose interval contains the clock, with its
// index. Before the first frame, inside gaps and past the end it reports
// silence. Evaluation is pure: the same clock always yields the same frame.
func (t *Timeline) FrameAt(clockMs float64) (Frame, int, bool) {
	if len(t.frames) == 0 || clockMs < t.frames[0].TimeMs {
		return Frame{}, -1, false
	}

	// first frame starting after the clock, minus one
	idx := sort.Search(len(t.frames), func(i int) bool {
		return t.frames[i].TimeMs > clockMs
	}) - 1

	if idx < 0 {
		return Frame{}, -1, false
	}
	if clockMs >= t.end(idx) {
		return Frame{}, -1, false
	}
	return t.frames[idx], idx, true
}

// timelineFile accepts both the wrapped and the bare-array JSON shapes
type timelineFile struct {
	Frames []Frame `json:"frames"`
}

// DecodeTimeline parses timeline JSON: either {"frames": [...]} or a bare
// frame array.
func DecodeTimeline(data []byte) (*Timeline, error) {
	var file timelineFile
	if err := sonic.Unmarshal(data, &file); err == nil && len(file.Frames) > 0 {
		return NewTimeline(file.Frames), nil
	}

	var frames []Frame
	if err := sonic.Unmarshal(data, &frames); err != nil {
		return nil, fmt.Errorf("decode timeline: %w", err)
	}
	return NewTimeline(frames), nil
}

// EncodeTimeline renders a timeline to the wrapped JSON shape
func EncodeTimeline(t *Timeline) ([]byte, error) {
	data, err := sonic.Marshal(timelineFile{Frames: t.frames})
	if err != nil {
		return nil, fmt.Errorf("encode timeline: %w", err)
	}
	return data, nil
}
