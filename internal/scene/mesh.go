// Package scene holds the runtime model state the engine deforms: meshes,
// morph targets, per-mesh weight vectors and lazily recomputed geometry.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// MinVisibleWeight is the threshold below which a morph contributes nothing
// to the deformed geometry.
const MinVisibleWeight = 0.001

// MorphTarget is a named set of vertex displacements
type MorphTarget struct {
	Name           string
	PositionDeltas []mgl32.Vec3
	NormalDeltas   []mgl32.Vec3
}

// Bounds is an axis-aligned bounding box
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// Mesh is a deformable mesh. Weights are written through SetWeight only;
// deformed geometry and bounds are recomputed lazily on first read after a
// weight change.
type Mesh struct {
	Name    string
	Targets []MorphTarget
	Weights []float32

	BasePositions []mgl32.Vec3
	BaseNormals   []mgl32.Vec3

	DoubleSided     bool
	CullingDisabled bool

	deformedPositions []mgl32.Vec3
	deformedNormals   []mgl32.Vec3

	nameIndex    map[string]int
	namedTargets bool

	deformStale bool
	boundsStale bool
	bounds      Bounds
}

// NewMesh builds a mesh and its target dictionary. namedTargets reports
// whether the target names came from the export rather than being
// synthesized, which decides catalog eligibility downstream.
func NewMesh(name string, positions, normals []mgl32.Vec3, targets []MorphTarget, namedTargets bool) *Mesh {
	if normals == nil {
		normals = make([]mgl32.Vec3, len(positions))
	}

	m := &Mesh{
		Name:          name,
		Targets:       targets,
		Weights:       make([]float32, len(targets)),
		BasePositions: positions,
		BaseNormals:   normals,

		deformedPositions: make([]mgl32.Vec3, len(positions)),
		deformedNormals:   make([]mgl32.Vec3, len(positions)),

		nameIndex:    make(map[string]int, len(targets)),
		namedTargets: namedTargets,

		deformStale: true,
		boundsStale: true,
	}

	for i, t := range targets {
		if t.Name == "" {
			continue
		}
		if _, exists := m.nameIndex[t.Name]; !exists {
			m.nameIndex[t.Name] = i
		}
	}

	return m
}

// VertexCount returns the number of base vertices
func (m *Mesh) VertexCount() int {
	return len(m.BasePositions)
}

// TargetCount returns the number of morph targets
func (m *Mesh) TargetCount() int {
	return len(m.Targets)
}

// HasNamedTargets reports whether the export surfaced real target names
func (m *Mesh) HasNamedTargets() bool {
	return m.namedTargets && len(m.nameIndex) > 0
}

// TargetIndex looks up a morph target by exact name
func (m *Mesh) TargetIndex(name string) (int, bool) {
	idx, ok := m.nameIndex[name]
	return idx, ok
}

// TargetNames returns target names in index order
func (m *Mesh) TargetNames() []string {
	names := make([]string, len(m.Targets))
	for i, t := range m.Targets {
		names[i] = t.Name
	}
	return names
}

// SetWeight writes a clamped weight and marks derived state stale
func (m *Mesh) SetWeight(index int, weight float32) {
	if index < 0 || index >= len(m.Weights) {
		return
	}
	weight = clamp(weight, 0, 1)
	if m.Weights[index] == weight {
		return
	}
	m.Weights[index] = weight
	m.MarkDeformed()
}

// Weight reads the current weight for a target index
func (m *Mesh) Weight(index int) float32 {
	if index < 0 || index >= len(m.Weights) {
		return 0
	}
	return m.Weights[index]
}

// ResetWeights zeroes every target weight
func (m *Mesh) ResetWeights() {
	changed := false
	for i := range m.Weights {
		if m.Weights[i] != 0 {
			m.Weights[i] = 0
			changed = true
		}
	}
	if changed {
		m.MarkDeformed()
	}
}

// MarkDeformed flags deformed geometry and bounds for recomputation
func (m *Mesh) MarkDeformed() {
	m.deformStale = true
	m.boundsStale = true
}

// EnsureDeformed recomputes deformed positions and normals if stale.
// Normals are renormalized after delta accumulation.
func (m *Mesh) EnsureDeformed() {
	if !m.deformStale {
		return
	}

	copy(m.deformedPositions, m.BasePositions)
	copy(m.deformedNormals, m.BaseNormals)

	for ti := range m.Targets {
		weight := m.Weights[ti]
		if weight < MinVisibleWeight {
			continue
		}

		target := &m.Targets[ti]
		for vi, delta := range target.PositionDeltas {
			if vi < len(m.deformedPositions) {
				m.deformedPositions[vi] = m.deformedPositions[vi].Add(delta.Mul(weight))
			}
		}
		for vi, delta := range target.NormalDeltas {
			if vi < len(m.deformedNormals) {
				m.deformedNormals[vi] = m.deformedNormals[vi].Add(delta.Mul(weight))
			}
		}
	}

	for i, n := range m.deformedNormals {
		if l := n.Len(); l > 1e-6 {
			m.deformedNormals[i] = n.Mul(1 / l)
		}
	}

	m.deformStale = false
}

// DeformedPositions returns current positions, recomputing if stale
func (m *Mesh) DeformedPositions() []mgl32.Vec3 {
	m.EnsureDeformed()
	return m.deformedPositions
}

// DeformedNormals returns current normals, recomputing if stale
func (m *Mesh) DeformedNormals() []mgl32.Vec3 {
	m.EnsureDeformed()
	return m.deformedNormals
}

// Bounds returns the axis-aligned box around the deformed mesh
func (m *Mesh) Bounds() Bounds {
	m.EnsureDeformed()
	if !m.boundsStale {
		return m.bounds
	}

	if len(m.deformedPositions) == 0 {
		m.bounds = Bounds{}
		m.boundsStale = false
		return m.bounds
	}

	min := m.deformedPositions[0]
	max := m.deformedPositions[0]
	for _, p := range m.deformedPositions[1:] {
		for a := 0; a < 3; a++ {
			if p[a] < min[a] {
				min[a] = p[a]
			}
			if p[a] > max[a] {
				max[a] = p[a]
			}
		}
	}

	m.bounds = Bounds{Min: min, Max: max}
	m.boundsStale = false
	return m.bounds
}

func clamp(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
