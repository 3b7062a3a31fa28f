package animator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeTimelineBasicWord(t *testing.T) {
	tl := SynthesizeTimeline("hi", 0)

	assert.Equal(t, []Frame{
		{TimeMs: 0, Viseme: "sil", Intensity: 1},
		{TimeMs: 50, Viseme: "aa", Intensity: 0.8},
		{TimeMs: 110, Viseme: "I", Intensity: 0.8},
		{TimeMs: 210, Viseme: "sil", Intensity: 1},
	}, tl.Frames())
	assert.Equal(t, 330.0, tl.DurationMs())
}

func TestSynthesizeTimelineDigraph(t *testing.T) {
	tl := SynthesizeTimeline("this", 0)

	assert.Equal(t, []Frame{
		{TimeMs: 0, Viseme: "sil", Intensity: 1},
		{TimeMs: 50, Viseme: "TH", Intensity: 0.8},
		{TimeMs: 110, Viseme: "I", Intensity: 0.8},
		{TimeMs: 210, Viseme: "SS", Intensity: 0.8},
		{TimeMs: 290, Viseme: "sil", Intensity: 1},
	}, tl.Frames())
}

func TestSynthesizeTimelinePauses(t *testing.T) {
	tl := SynthesizeTimeline("a b", 0)
	assert.Equal(t, []Frame{
		{TimeMs: 0, Viseme: "sil", Intensity: 1},
		{TimeMs: 50, Viseme: "aa", Intensity: 0.8},
		{TimeMs: 150, Viseme: "sil", Intensity: 0.5},
		{TimeMs: 230, Viseme: "PP", Intensity: 0.8},
		{TimeMs: 290, Viseme: "sil", Intensity: 1},
	}, tl.Frames())

	tl = SynthesizeTimeline("a,b", 0)
	assert.Equal(t, []Frame{
		{TimeMs: 0, Viseme: "sil", Intensity: 1},
		{TimeMs: 50, Viseme: "aa", Intensity: 0.8},
		{TimeMs: 150, Viseme: "sil", Intensity: 0.7},
		{TimeMs: 250, Viseme: "PP", Intensity: 0.8},
		{TimeMs: 310, Viseme: "sil", Intensity: 1},
	}, tl.Frames())

	tl = SynthesizeTimeline("a.", 0)
	assert.Equal(t, []Frame{
		{TimeMs: 0, Viseme: "sil", Intensity: 1},
		{TimeMs: 50, Viseme: "aa", Intensity: 0.8},
		{TimeMs: 150, Viseme: "sil", Intensity: 1},
		{TimeMs: 300, Viseme: "sil", Intensity: 1},
	}, tl.Frames())
}

func TestSynthesizeTimelineSkipsUnknownChars(t *testing.T) {
	tl := SynthesizeTimeline("a1b", 0)

	assert.Equal(t, []Frame{
		{TimeMs: 0, Viseme: "sil", Intensity: 1},
		{TimeMs: 50, Viseme: "aa", Intensity: 0.8},
		{TimeMs: 150, Viseme: "PP", Intensity: 0.8},
		{TimeMs: 210, Viseme: "sil", Intensity: 1},
	}, tl.Frames())
}

func TestSynthesizeTimelineStretchToDuration(t *testing.T) {
	tl := SynthesizeTimeline("hi", 420*time.Millisecond)

	frames := tl.Frames()
	require.Len(t, frames, 4)
	assert.Equal(t, 0.0, frames[0].TimeMs)
	assert.Equal(t, 100.0, frames[1].TimeMs)
	assert.Equal(t, 220.0, frames[2].TimeMs)
	assert.Equal(t, 420.0, frames[3].TimeMs)
}

func TestSynthesizeTimelineEmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		tl := SynthesizeTimeline(text, 0)
		require.Equal(t, 1, tl.Len(), "text %q", text)
		assert.Equal(t, "sil", tl.Frames()[0].Viseme)
	}
}

func TestSynthesizeTimelineUppercase(t *testing.T) {
	upper := SynthesizeTimeline("THIS", 0)
	lower := SynthesizeTimeline("this", 0)
	assert.Equal(t, lower.Frames(), upper.Frames())
}

func TestTimelineFromWords(t *testing.T) {
	tl := TimelineFromWords([]string{"hi"}, []float64{1.0}, []float64{2.0})

	assert.Equal(t, []Frame{
		{TimeMs: 0, Viseme: "sil", Intensity: 1},
		{TimeMs: 1000, Viseme: "aa", Intensity: 0.8},
		{TimeMs: 1500, Viseme: "I", Intensity: 0.8},
		{TimeMs: 2000, Viseme: "sil", Intensity: 0.3},
		{TimeMs: 2050, Viseme: "sil", Intensity: 1},
	}, tl.Frames())
}

func TestTimelineFromWordsEmpty(t *testing.T) {
	tl := TimelineFromWords(nil, nil, nil)
	require.Equal(t, 1, tl.Len())
	assert.Equal(t, "sil", tl.Frames()[0].Viseme)
}

func TestTimelineFromWordsTruncatedTimestamps(t *testing.T) {
	tl := TimelineFromWords([]string{"hi", "yo"}, []float64{0.0}, []float64{0.5})

	// Only the first word carries timing; the second is dropped
	frames := tl.Frames()
	require.Len(t, frames, 5)
	assert.Equal(t, "aa", frames[1].Viseme)
	assert.Equal(t, "I", frames[2].Viseme)
	assert.Equal(t, 550.0, frames[4].TimeMs)
}

func TestTimelineFromWordsUnpronounceableWord(t *testing.T) {
	tl := TimelineFromWords([]string{"123"}, []float64{0.0}, []float64{1.0})

	frames := tl.Frames()
	require.Len(t, frames, 2)
	assert.Equal(t, "sil", frames[0].Viseme)
	assert.Equal(t, 1050.0, frames[1].TimeMs)
}
