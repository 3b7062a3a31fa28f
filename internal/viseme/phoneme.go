package viseme

import "strings"

// digraphVisemes are two-letter phonemes checked before single letters
var digraphVisemes = map[string]ID{
	"th": TH,
	"ch": CH,
	"sh": CH,
}

// letterVisemes maps single letters to the closest viseme. Letters without
// a dedicated mouth shape borrow one: w rounds like u, y spreads like i,
// h opens like a.
var letterVisemes = map[byte]ID{
	'p': PP, 'b': PP, 'm': PP,
	'f': FF, 'v': FF,
	't': DD, 'd': DD,
	'k': KK, 'g': KK, 'c': KK, 'q': KK, 'x': KK,
	'j': CH,
	's': SS, 'z': SS,
	'n': NN, 'l': NN,
	'r': RR,
	'a': AA,
	'e': E,
	'i': I,
	'o': O,
	'u': U,
	'w': U,
	'y': I,
	'h': AA,
}

// ForPhoneme maps a letter or digraph to a viseme. Empty strings and
// whitespace map to silence.
func ForPhoneme(ph string) (ID, bool) {
	ph = strings.ToLower(strings.TrimSpace(ph))
	if ph == "" {
		return Sil, true
	}
	if id, ok := digraphVisemes[ph]; ok {
		return id, ok
	}
	if len(ph) == 1 {
		if id, ok := letterVisemes[ph[0]]; ok {
			return id, ok
		}
	}
	return Sil, false
}

// WordSequence converts a word to its viseme sequence, collapsing repeats.
// Non-letter characters are skipped.
func WordSequence(word string) []ID {
	if word == "" {
		return nil
	}

	seq := make([]ID, 0, len(word))
	chars := []byte(strings.ToLower(word))

	for i := 0; i < len(chars); i++ {
		ch := chars[i]
		if ch < 'a' || ch > 'z' {
			continue
		}

		var ph string
		if i < len(chars)-1 {
			digraph := string(chars[i : i+2])
			if _, ok := digraphVisemes[digraph]; ok {
				ph = digraph
				i++
			}
		}
		if ph == "" {
			ph = string(ch)
		}

		id, ok := ForPhoneme(ph)
		if !ok {
			// Neutral open mouth for anything unclassified
			id = AA
		}

		if len(seq) > 0 && seq[len(seq)-1] == id {
			continue
		}
		seq = append(seq, id)
	}

	return seq
}

// IsVowelLetter reports whether a letter carries vowel timing
func IsVowelLetter(ch byte) bool {
	switch ch {
	case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
		return true
	}
	return false
}
