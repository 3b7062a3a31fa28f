package viseme

import (
	"sync"
)

// Source identifies which resolution stage produced the applied morphs
type Source string

const (
	SourceNone        Source = "none"
	SourceCombination Source = "combination"
	SourceLegacy      Source = "legacy"
	SourceFallback    Source = "fallback"
	SourceProxy       Source = "proxy"
)

// Condition classifies the resolution outcome. Every condition is recovered
// locally; resolution never fails with an error.
type Condition string

const (
	ConditionOK           Condition = "ok"
	ConditionSilence      Condition = "silence"
	ConditionUnmapped     Condition = "unmapped_viseme"
	ConditionPartial      Condition = "partial_resolution"
	ConditionProxy        Condition = "proxy_substituted"
	ConditionNoneResolved Condition = "no_morphs_resolved"
	// ConditionNoCapability is reported by the engine when the attached
	// model has no morph-capable meshes at all.
	ConditionNoCapability Condition = "no_morph_capability"
)

// Resolution is the outcome of resolving one viseme against a rig
type Resolution struct {
	Viseme    ID
	Source    Source
	Condition Condition
	// Morphs carries final calibrated weights, ready to schedule
	Morphs []WeightedMorph
	// Missing lists morph names consulted but absent from the rig
	Missing []string
}

// Applied reports whether any morph resolved
func (r Resolution) Applied() bool {
	return len(r.Morphs) > 0
}

// Resolver runs the prioritized resolution chain: combination table first,
// then the legacy single-morph map, then per-viseme synonym lists. Tongue
// visemes substitute jaw/lip proxies when no tongue morph is drivable.
// Calibration is swappable at runtime.
type Resolver struct {
	mu  sync.RWMutex
	cal *Calibration
}

// NewResolver creates a resolver with the given calibration, defaulting when nil
func NewResolver(cal *Calibration) *Resolver {
	if cal == nil {
		cal = DefaultCalibration()
	}
	return &Resolver{cal: cal}
}

// SetCalibration atomically swaps the calibration preset
func (r *Resolver) SetCalibration(cal *Calibration) {
	if cal == nil {
		return
	}
	r.mu.Lock()
	r.cal = cal
	r.mu.Unlock()
}

// Calibration returns the active preset
func (r *Resolver) Calibration() *Calibration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cal
}

// Resolve maps a viseme to calibrated morph weights against the rig described
// by has. intensity is clamped to [0,1].
func (r *Resolver) Resolve(id ID, intensity float32, has func(name string) bool) Resolution {
	res := Resolution{Viseme: id, Source: SourceNone, Condition: ConditionOK}

	def, ok := Lookup(id)
	if !ok {
		res.Condition = ConditionUnmapped
		return res
	}

	if len(def.Morphs) == 0 {
		res.Condition = ConditionSilence
		return res
	}

	intensity = clamp01(intensity)
	mult := r.Calibration().Multiplier(def)
	scale := mult * intensity

	// Stage 1: combination table
	applied, missing := partition(def.Morphs, has)
	res.Missing = append(res.Missing, missing...)
	if len(applied) > 0 {
		res.Source = SourceCombination
		if len(missing) > 0 {
			res.Condition = ConditionPartial
		}
		if tongueLost(def, applied) {
			applied = mergeProxy(id, applied, has)
			res.Condition = ConditionProxy
		}
		res.Morphs = finalize(applied, scale)
		return res
	}

	// Stage 2: legacy single-morph map
	if lm, ok := legacy[id]; ok {
		if has(lm.Name) {
			res.Source = SourceLegacy
			res.Condition = ConditionPartial
			res.Morphs = finalize([]WeightedMorph{lm}, scale)
			return res
		}
		res.Missing = append(res.Missing, lm.Name)
	}

	// Stage 3: synonym fallback list
	if syn, ok := synonyms[id]; ok {
		applied, missing = partition(syn, has)
		res.Missing = append(res.Missing, missing...)
		if len(applied) > 0 {
			res.Source = SourceFallback
			res.Condition = ConditionPartial
			res.Morphs = finalize(applied, scale)
			return res
		}
	}

	// Last resort for tongue visemes: the proxy combination alone
	if proxy, ok := tongueProxies[id]; ok {
		applied, missing = partition(proxy, has)
		res.Missing = append(res.Missing, missing...)
		if len(applied) > 0 {
			res.Source = SourceProxy
			res.Condition = ConditionProxy
			res.Morphs = finalize(applied, scale)
			return res
		}
	}

	res.Condition = ConditionNoneResolved
	return res
}

// partition splits a morph list by rig availability
func partition(morphs []WeightedMorph, has func(string) bool) (applied []WeightedMorph, missing []string) {
	for _, m := range morphs {
		if has(m.Name) {
			applied = append(applied, m)
		} else {
			missing = append(missing, m.Name)
		}
	}
	return applied, missing
}

// tongueLost reports whether the definition wanted tongue articulation but
// none of the resolved morphs provide it
func tongueLost(def Definition, applied []WeightedMorph) bool {
	wanted := false
	for _, m := range def.Morphs {
		if IsTongueMorph(m.Name) {
			wanted = true
			break
		}
	}
	if !wanted {
		return false
	}
	for _, m := range applied {
		if IsTongueMorph(m.Name) {
			return false
		}
	}
	return true
}

// mergeProxy folds the viseme's proxy morphs into the applied set, keeping
// the stronger weight on overlap
func mergeProxy(id ID, applied []WeightedMorph, has func(string) bool) []WeightedMorph {
	proxy, ok := tongueProxies[id]
	if !ok {
		return applied
	}
	for _, p := range proxy {
		if !has(p.Name) {
			continue
		}
		merged := false
		for i := range applied {
			if applied[i].Name == p.Name {
				if p.Weight > applied[i].Weight {
					applied[i].Weight = p.Weight
				}
				merged = true
				break
			}
		}
		if !merged {
			applied = append(applied, p)
		}
	}
	return applied
}

// finalize scales relative weights into final clamped values
func finalize(morphs []WeightedMorph, scale float32) []WeightedMorph {
	out := make([]WeightedMorph, 0, len(morphs))
	for _, m := range morphs {
		out = append(out, WeightedMorph{
			Name:   m.Name,
			Weight: clamp01(m.Weight * scale),
		})
	}
	return out
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
