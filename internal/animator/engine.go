package animator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/lipsync/internal/bus"
	"github.com/normanking/lipsync/internal/registry"
	"github.com/normanking/lipsync/internal/scene"
	"github.com/normanking/lipsync/internal/viseme"
)

// AppliedMorph reports one morph driven for a viseme
type AppliedMorph struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// ApplyResult reports an ApplyViseme outcome. Resolution failures surface as
// conditions, never as errors: a bad viseme mid-speech must not take the
// pipeline down.
type ApplyResult struct {
	Success       bool
	Viseme        string
	MorphsApplied int
	Applied       []AppliedMorph
	Source        viseme.Source
	Condition     viseme.Condition
	Missing       []string
}

// State is an engine snapshot for diagnostics
type State struct {
	Viseme       string
	MeshCount    int
	ActiveMorphs []AppliedMorph
}

// playback tracks an active timeline. lastIdx -1 means silence.
type playback struct {
	timeline *Timeline
	clockMs  float64
	lastIdx  int
}

// Engine is the lip-sync facade: it resolves visemes against the attached
// model, schedules blended transitions and plays timelines. Tick is the only
// continuous writer of mesh state; every other operation just retargets.
type Engine struct {
	mu     sync.RWMutex
	log    zerolog.Logger
	events *bus.EventBus

	registry  *registry.MeshRegistry
	resolver  *viseme.Resolver
	scheduler *Scheduler

	current          viseme.ID
	extraction       *registry.Extraction
	playback         *playback
	capabilityWarned bool
}

// NewEngine wires the facade from its parts
func NewEngine(reg *registry.MeshRegistry, res *viseme.Resolver, sched *Scheduler, log zerolog.Logger) *Engine {
	return &Engine{
		log:       log,
		registry:  reg,
		resolver:  res,
		scheduler: sched,
		current:   viseme.Sil,
	}
}

// SetEventBus attaches an optional event bus for lifecycle events
func (e *Engine) SetEventBus(events *bus.EventBus) {
	e.events = events
}

func (e *Engine) publish(t bus.EventType, data map[string]any) {
	if e.events != nil {
		e.events.Publish(bus.Event{Type: t, Data: data})
	}
}

// AttachModel builds the morph catalog for a model, running hidden-target
// recovery first. Attaching replaces any previous model.
func (e *Engine) AttachModel(model *scene.Model) registry.AttachReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.scheduler.Reset()
	e.playback = nil
	e.current = viseme.Sil
	e.capabilityWarned = false

	ext := registry.ExtractHidden(model, e.log)
	e.extraction = ext
	report := e.registry.Attach(model, registry.DictionaryProber{}, ext)

	e.publish(bus.EventTypeModelAttached, map[string]any{
		"model":       model.Name,
		"meshes":      report.Meshes,
		"morphMeshes": report.MorphMeshes,
		"channels":    report.Channels,
	})
	if ext.Recovered() {
		e.publish(bus.EventTypeMorphsRecovered, map[string]any{
			"model":    model.Name,
			"channels": len(ext.Channels),
			"methods":  ext.Methods,
		})
	} else {
		e.publish(bus.EventTypeRecoveryFailed, map[string]any{"model": model.Name})
	}

	return report
}

// DisposeModel zeroes weights and drops the catalog
func (e *Engine) DisposeModel() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.scheduler.Reset()
	e.registry.Dispose()
	e.extraction = nil
	e.playback = nil
	e.current = viseme.Sil

	e.publish(bus.EventTypeModelDisposed, nil)
}

// Extraction returns the hidden-target recovery result for the attached
// model, nil before the first attach.
func (e *Engine) Extraction() *registry.Extraction {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.extraction
}

// ApplyViseme resolves a viseme and retargets the blend scheduler. intensity
// is clamped to [0,1]; immediate skips the transition. The call never fails:
// outcomes degrade through the result's Condition.
func (e *Engine) ApplyViseme(rawID string, intensity float64, immediate bool) ApplyResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applyLocked(rawID, float32(intensity), immediate)
}

func (e *Engine) applyLocked(rawID string, intensity float32, immediate bool) ApplyResult {
	result := ApplyResult{
		Viseme:    rawID,
		Source:    viseme.SourceNone,
		Condition: viseme.ConditionOK,
	}

	if !e.registry.MorphCapable() {
		result.Condition = viseme.ConditionNoCapability
		if !e.capabilityWarned {
			e.log.Warn().Msg("no morph-capable meshes attached, visemes are no-ops")
			e.capabilityWarned = true
		}
		return result
	}

	id, ok := viseme.Parse(rawID)
	if !ok {
		result.Condition = viseme.ConditionUnmapped
		e.scheduler.ZeroTargets(immediate)
		e.current = viseme.Sil
		e.log.Warn().Str("viseme", rawID).Msg("unmapped viseme, decaying to silence")
		e.publish(bus.EventTypeVisemeUnmapped, map[string]any{"viseme": rawID})
		return result
	}

	res := e.resolver.Resolve(id, intensity, e.registry.Has)
	result.Source = res.Source
	result.Condition = res.Condition
	result.Missing = res.Missing

	switch res.Condition {
	case viseme.ConditionSilence:
		e.scheduler.ZeroTargets(immediate)
		e.current = id
		result.Success = true
		return result

	case viseme.ConditionUnmapped:
		e.scheduler.ZeroTargets(immediate)
		e.current = viseme.Sil
		e.publish(bus.EventTypeVisemeUnmapped, map[string]any{"viseme": rawID})
		return result

	case viseme.ConditionNoneResolved:
		e.scheduler.ZeroTargets(immediate)
		e.current = id
		e.log.Warn().
			Str("viseme", rawID).
			Strs("missing", res.Missing).
			Msg("viseme resolved to zero morphs")
		e.publish(bus.EventTypeVisemeUnresolved, map[string]any{
			"viseme":  rawID,
			"missing": res.Missing,
		})
		return result
	}

	// Clean switch: everything previously active decays unless retargeted
	e.scheduler.ZeroTargets(immediate)

	applied := make([]AppliedMorph, 0, len(res.Morphs))
	for _, m := range res.Morphs {
		ch, ok := e.registry.Channel(m.Name)
		if !ok {
			continue
		}
		e.scheduler.SetTarget(ch, m.Weight, immediate)
		applied = append(applied, AppliedMorph{Name: m.Name, Weight: float64(m.Weight)})
	}

	result.Applied = applied
	result.MorphsApplied = len(applied)
	result.Success = len(applied) > 0
	e.current = id

	e.log.Debug().
		Str("viseme", rawID).
		Int("morphs", result.MorphsApplied).
		Str("source", string(res.Source)).
		Str("condition", string(res.Condition)).
		Msg("viseme applied")
	e.publish(bus.EventTypeVisemeApplied, map[string]any{
		"viseme":    rawID,
		"morphs":    result.MorphsApplied,
		"source":    string(res.Source),
		"condition": string(res.Condition),
	})

	return result
}

// Reset zeroes every morph target immediately and clears blending state.
// An active timeline is stopped.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.scheduler.Reset()
	e.registry.ZeroAll()
	e.playback = nil
	e.current = viseme.Sil

	e.publish(bus.EventTypeEngineReset, nil)
}

// CurrentState snapshots the engine for diagnostics
func (e *Engine) CurrentState() State {
	e.mu.RLock()
	defer e.mu.RUnlock()

	active := e.scheduler.Active()
	morphs := make([]AppliedMorph, 0, len(active))
	for _, cw := range active {
		morphs = append(morphs, AppliedMorph{Name: cw.Name, Weight: float64(cw.Weight)})
	}

	return State{
		Viseme:       e.current.String(),
		MeshCount:    e.registry.MeshCount(),
		ActiveMorphs: morphs,
	}
}

// CurrentViseme returns the active viseme id
func (e *Engine) CurrentViseme() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current.String()
}

// SetTransitionSpeed adjusts the blend rate. Non-positive rates are ignored,
// rates above 1 clamp.
func (e *Engine) SetTransitionSpeed(rate float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.scheduler.SetSpeed(float32(rate)) {
		e.log.Warn().Float64("rate", rate).Msg("ignoring non-positive transition speed")
	}
}

// TransitionSpeed returns the current blend rate
func (e *Engine) TransitionSpeed() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return float64(e.scheduler.Speed())
}

// Tick advances playback and blending by dt seconds. Returns the number of
// channel writes, which doubles as a dirty signal for hosts.
func (e *Engine) Tick(dt float64) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.playback != nil {
		e.advancePlayback(dt)
	}

	return e.scheduler.Tick(float32(dt))
}

func (e *Engine) advancePlayback(dt float64) {
	pb := e.playback

	if pb.clockMs > pb.timeline.DurationMs() {
		if pb.lastIdx != -1 {
			e.applyLocked(viseme.Sil.String(), 1, false)
		}
		e.log.Info().Str("session", pb.timeline.ID).Msg("timeline playback completed")
		e.publish(bus.EventTypePlaybackCompleted, map[string]any{"session": pb.timeline.ID})
		e.playback = nil
		return
	}

	frame, idx, ok := pb.timeline.FrameAt(pb.clockMs)
	if ok && idx != pb.lastIdx {
		e.applyLocked(frame.Viseme, float32(frame.Intensity), false)
		pb.lastIdx = idx
	} else if !ok && pb.lastIdx != -1 {
		// Gap between frames: decay to silence
		e.applyLocked(viseme.Sil.String(), 1, false)
		pb.lastIdx = -1
	}

	pb.clockMs += dt * 1000
}

// PlayTimeline starts (or replaces) timeline playback. Replacement is the
// cancellation mechanism: the previous timeline simply stops being evaluated
// and its weights decay through the scheduler.
func (e *Engine) PlayTimeline(tl *Timeline) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.playback != nil {
		e.log.Debug().Str("session", e.playback.timeline.ID).Msg("replacing active timeline")
	}

	e.playback = &playback{timeline: tl, lastIdx: -1}
	e.log.Info().
		Str("session", tl.ID).
		Int("frames", tl.Len()).
		Float64("durationMs", tl.DurationMs()).
		Msg("timeline playback started")
	e.publish(bus.EventTypePlaybackStarted, map[string]any{
		"session":    tl.ID,
		"frames":     tl.Len(),
		"durationMs": tl.DurationMs(),
	})
}

// StopPlayback cancels the active timeline and decays to silence
func (e *Engine) StopPlayback() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.playback == nil {
		return
	}

	session := e.playback.timeline.ID
	e.playback = nil
	e.scheduler.ZeroTargets(false)
	e.current = viseme.Sil

	e.publish(bus.EventTypePlaybackStopped, map[string]any{"session": session})
}

// Seek moves the playback clock. The frame under the new clock is re-applied
// on the next Tick.
func (e *Engine) Seek(clockMs float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.playback == nil {
		return
	}
	e.playback.clockMs = clockMs
	e.playback.lastIdx = -1
}

// Playing reports whether a timeline is active
func (e *Engine) Playing() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.playback != nil
}

// PlaybackSession returns the active timeline's session id, empty when idle
func (e *Engine) PlaybackSession() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.playback == nil {
		return ""
	}
	return e.playback.timeline.ID
}

// PlaybackClockMs returns the current playback clock
func (e *Engine) PlaybackClockMs() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.playback == nil {
		return 0
	}
	return e.playback.clockMs
}

// TestAllVisemes sweeps every defined viseme at full intensity, holding each
// for the given duration while the tick source keeps blending. It reports
// per-viseme results so rig coverage problems surface immediately.
func (e *Engine) TestAllVisemes(ctx context.Context, hold time.Duration) ([]ApplyResult, error) {
	if hold <= 0 {
		hold = 500 * time.Millisecond
	}

	ids := viseme.All()
	results := make([]ApplyResult, 0, len(ids))

	for _, id := range ids {
		results = append(results, e.ApplyViseme(id.String(), 1.0, false))

		select {
		case <-ctx.Done():
			e.ApplyViseme(viseme.Sil.String(), 1.0, false)
			return results, ctx.Err()
		case <-time.After(hold):
		}
	}

	e.ApplyViseme(viseme.Sil.String(), 1.0, false)
	return results, nil
}
