package animator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimelineSortsAndDefaultsIntensity(t *testing.T) {
	tl := NewTimeline([]Frame{
		{TimeMs: 300, Viseme: "O"},
		{TimeMs: 0, Viseme: "aa", Intensity: 0.5},
		{TimeMs: 150, Viseme: "U"},
	})

	frames := tl.Frames()
	require.Len(t, frames, 3)
	assert.Equal(t, "aa", frames[0].Viseme)
	assert.Equal(t, "U", frames[1].Viseme)
	assert.Equal(t, "O", frames[2].Viseme)

	assert.Equal(t, 0.5, frames[0].Intensity)
	assert.Equal(t, 1.0, frames[1].Intensity)
	assert.Equal(t, 1.0, frames[2].Intensity)
	assert.NotEmpty(t, tl.ID)

	other := NewTimeline(nil)
	assert.NotEqual(t, tl.ID, other.ID)
}

func TestNewTimelineStableForEqualTimes(t *testing.T) {
	tl := NewTimeline([]Frame{
		{TimeMs: 100, Viseme: "first"},
		{TimeMs: 100, Viseme: "second"},
	})
	assert.Equal(t, "first", tl.Frames()[0].Viseme)
	assert.Equal(t, "second", tl.Frames()[1].Viseme)
}

func TestTimelineDurationMs(t *testing.T) {
	tl := NewTimeline([]Frame{
		{TimeMs: 0, Viseme: "aa", DurationMs: 100},
		{TimeMs: 150, Viseme: "U"},
		{TimeMs: 300, Viseme: "O", DurationMs: 50},
	})
	assert.Equal(t, 350.0, tl.DurationMs())

	// A tail-less final frame gets the default hold
	tl = NewTimeline([]Frame{{TimeMs: 100, Viseme: "aa"}})
	assert.Equal(t, 220.0, tl.DurationMs())

	assert.Zero(t, NewTimeline(nil).DurationMs())
}

func TestFrameAt(t *testing.T) {
	tl := NewTimeline([]Frame{
		{TimeMs: 0, Viseme: "aa", DurationMs: 100},
		{TimeMs: 150, Viseme: "U"},
		{TimeMs: 300, Viseme: "O", DurationMs: 50},
	})

	cases := []struct {
		name    string
		clockMs float64
		viseme  string
		idx     int
		ok      bool
	}{
		{"before start", -1, "", -1, false},
		{"first frame onset", 0, "aa", 0, true},
		{"inside explicit duration", 99.9, "aa", 0, true},
		{"duration end is exclusive", 100, "", -1, false},
		{"gap before next frame", 149.9, "", -1, false},
		{"second frame onset", 150, "U", 1, true},
		{"open frame runs to next onset", 299.9, "U", 1, true},
		{"third frame onset", 300, "O", 2, true},
		{"inside final hold", 349.9, "O", 2, true},
		{"past the end", 350, "", -1, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			frame, idx, ok := tl.FrameAt(tc.clockMs)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.idx, idx)
			assert.Equal(t, tc.viseme, frame.Viseme)
		})
	}
}

func TestFrameAtRepeatable(t *testing.T) {
	tl := NewTimeline([]Frame{{TimeMs: 0, Viseme: "aa", DurationMs: 100}})

	a, _, _ := tl.FrameAt(50)
	b, _, _ := tl.FrameAt(50)
	assert.Equal(t, a, b)
}

func TestFrameAtEmptyTimeline(t *testing.T) {
	tl := NewTimeline(nil)
	_, idx, ok := tl.FrameAt(0)
	assert.False(t, ok)
	assert.Equal(t, -1, idx)
	assert.Zero(t, tl.Len())
}

func TestDecodeTimelineWrapped(t *testing.T) {
	data := []byte(`{"frames":[{"time":0,"viseme":"aa","intensity":0.8,"duration":100},{"time":150,"viseme":"U"}]}`)

	tl, err := DecodeTimeline(data)
	require.NoError(t, err)
	require.Equal(t, 2, tl.Len())

	frames := tl.Frames()
	assert.Equal(t, "aa", frames[0].Viseme)
	assert.Equal(t, 0.8, frames[0].Intensity)
	assert.Equal(t, 100.0, frames[0].DurationMs)
	assert.Equal(t, 1.0, frames[1].Intensity)
}

func TestDecodeTimelineBareArray(t *testing.T) {
	data := []byte(`[{"time":50,"viseme":"PP"}]`)

	tl, err := DecodeTimeline(data)
	require.NoError(t, err)
	require.Equal(t, 1, tl.Len())
	assert.Equal(t, "PP", tl.Frames()[0].Viseme)
	assert.Equal(t, 1.0, tl.Frames()[0].Intensity)
}

func TestDecodeTimelineInvalid(t *testing.T) {
	_, err := DecodeTimeline([]byte("not json"))
	assert.ErrorContains(t, err, "decode timeline")
}

func TestEncodeTimelineRoundTrip(t *testing.T) {
	tl := NewTimeline([]Frame{
		{TimeMs: 0, Viseme: "aa", Intensity: 0.8, DurationMs: 100},
		{TimeMs: 150, Viseme: "U"},
	})

	data, err := EncodeTimeline(tl)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"frames"`)

	back, err := DecodeTimeline(data)
	require.NoError(t, err)
	assert.Equal(t, tl.Frames(), back.Frames())
}
