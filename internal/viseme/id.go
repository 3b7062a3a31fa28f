// Package viseme defines the viseme vocabulary, the morph mapping tables and
// the prioritized resolver that turns a viseme into calibrated morph weights.
package viseme

import "strings"

// ID is a viseme identifier. The set is closed: ids are validated at the
// boundary and stay typed until morph names are bound at mesh level.
type ID string

// The Oculus 15-viseme set
const (
	Sil ID = "sil" // silence
	PP  ID = "PP"  // p, b, m
	FF  ID = "FF"  // f, v
	TH  ID = "TH"  // th
	DD  ID = "DD"  // t, d
	KK  ID = "kk"  // k, g
	CH  ID = "CH"  // tS, dZ, S
	SS  ID = "SS"  // s, z
	NN  ID = "nn"  // n, l
	RR  ID = "RR"  // r
	AA  ID = "aa"  // A
	E   ID = "E"   // e
	I   ID = "I"   // ih
	O   ID = "O"   // oh
	U   ID = "U"   // ou
)

var allIDs = []ID{Sil, PP, FF, TH, DD, KK, CH, SS, NN, RR, AA, E, I, O, U}

var validIDs = func() map[ID]bool {
	m := make(map[ID]bool, len(allIDs))
	for _, id := range allIDs {
		m[id] = true
	}
	return m
}()

// All returns every defined viseme id in canonical order
func All() []ID {
	ids := make([]ID, len(allIDs))
	copy(ids, allIDs)
	return ids
}

// Parse validates a raw viseme string. Unknown ids return false; callers
// treat them as unmapped, never as errors.
func Parse(raw string) (ID, bool) {
	id := ID(raw)
	if validIDs[id] {
		return id, true
	}
	return "", false
}

// ParseFold is Parse with case-insensitive matching, for config sources like
// viper that normalize key case.
func ParseFold(raw string) (ID, bool) {
	if id, ok := Parse(raw); ok {
		return id, ok
	}
	for _, id := range allIDs {
		if strings.EqualFold(string(id), raw) {
			return id, true
		}
	}
	return "", false
}

// Valid reports whether the id belongs to the closed set
func Valid(id ID) bool {
	return validIDs[id]
}

func (id ID) String() string {
	return string(id)
}
