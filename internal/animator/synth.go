package animator

import (
	"strings"
	"time"

	"github.com/normanking/lipsync/internal/viseme"
)

// Approximate speech pacing in milliseconds. Vowels hold longer than stops,
// fricatives sit between.
const (
	leadInMs        = 50.0
	consonantMs     = 60.0
	vowelMs         = 100.0
	fricativeMs     = 80.0
	wordPauseMs     = 80.0
	clausePauseMs   = 100.0
	sentencePauseMs = 150.0

	speechIntensity = 0.8
)

// SynthesizeTimeline builds an approximate viseme timeline from raw text,
// for hosts without per-phoneme timing from their TTS provider. When total
// is positive the timeline is stretched to fit it, matching the audio the
// text was spoken over.
func SynthesizeTimeline(text string, total time.Duration) *Timeline {
	text = strings.TrimSpace(text)
	if text == "" {
		return silenceTimeline()
	}

	frames := []Frame{{TimeMs: 0, Viseme: viseme.Sil.String(), Intensity: 1}}
	cur := leadInMs

	chars := []byte(strings.ToLower(text))
	for i := 0; i < len(chars); i++ {
		ch := chars[i]

		switch ch {
		case ' ', '\n', '\t':
			frames = append(frames, Frame{TimeMs: cur, Viseme: viseme.Sil.String(), Intensity: 0.5})
			cur += wordPauseMs
			continue
		case '.', '!', '?':
			frames = append(frames, Frame{TimeMs: cur, Viseme: viseme.Sil.String(), Intensity: 1})
			cur += sentencePauseMs
			continue
		case ',', ';', ':':
			frames = append(frames, Frame{TimeMs: cur, Viseme: viseme.Sil.String(), Intensity: 0.7})
			cur += clausePauseMs
			continue
		}

		var id viseme.ID
		matched := false
		if i+1 < len(chars) && isLetter(ch) && isLetter(chars[i+1]) {
			if d, ok := viseme.ForPhoneme(string(chars[i : i+2])); ok {
				id = d
				matched = true
				i++
			}
		}
		if !matched {
			d, ok := viseme.ForPhoneme(string(ch))
			if !ok {
				continue
			}
			id = d
		}

		frames = append(frames, Frame{TimeMs: cur, Viseme: id.String(), Intensity: speechIntensity})
		cur += letterDuration(ch)
	}

	frames = append(frames, Frame{TimeMs: cur, Viseme: viseme.Sil.String(), Intensity: 1})

	if targetMs := float64(total.Milliseconds()); targetMs > 0 && cur > 0 {
		scale := targetMs / cur
		for i := range frames {
			frames[i].TimeMs *= scale
		}
	}

	return NewTimeline(frames)
}

// TimelineFromWords builds a timeline from word-level timestamps, the shape
// streaming TTS providers report. Visemes for each word are spread evenly
// across its interval.
func TimelineFromWords(words []string, startTimes, endTimes []float64) *Timeline {
	if len(words) == 0 {
		return silenceTimeline()
	}

	frames := []Frame{{TimeMs: 0, Viseme: viseme.Sil.String(), Intensity: 1}}
	var maxEnd float64

	for i, word := range words {
		if i >= len(startTimes) || i >= len(endTimes) {
			break
		}

		startMs := startTimes[i] * 1000
		endMs := endTimes[i] * 1000
		if endMs > maxEnd {
			maxEnd = endMs
		}

		seq := viseme.WordSequence(word)
		if len(seq) == 0 {
			continue
		}

		step := (endMs - startMs) / float64(len(seq))
		for j, id := range seq {
			frames = append(frames, Frame{
				TimeMs:    startMs + float64(j)*step,
				Viseme:    id.String(),
				Intensity: speechIntensity,
			})
		}

		// Soft closure at the word boundary
		frames = append(frames, Frame{TimeMs: endMs, Viseme: viseme.Sil.String(), Intensity: 0.3})
	}

	frames = append(frames, Frame{TimeMs: maxEnd + leadInMs, Viseme: viseme.Sil.String(), Intensity: 1})

	return NewTimeline(frames)
}

func silenceTimeline() *Timeline {
	return NewTimeline([]Frame{{TimeMs: 0, Viseme: viseme.Sil.String(), Intensity: 1}})
}

func letterDuration(ch byte) float64 {
	if viseme.IsVowelLetter(ch) {
		return vowelMs
	}
	switch ch {
	case 's', 'z', 'f', 'v':
		return fricativeMs
	}
	return consonantMs
}

func isLetter(ch byte) bool {
	return ch >= 'a' && ch <= 'z'
}
