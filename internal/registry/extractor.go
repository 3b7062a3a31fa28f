package registry

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/normanking/lipsync/internal/scene"
)

// Method identifies which recovery pass produced a channel
type Method string

const (
	MethodNone       Method = "none"
	MethodNodeName   Method = "node_name"
	MethodDictionary Method = "dictionary_scan"
	MethodBoneSkin   Method = "bone_skin"
)

// Candidate is a recovered target the extractor could not classify onto a
// canonical tongue channel. Candidates stay drivable under their raw names
// and show up in diagnostics for manual mapping.
type Candidate struct {
	MeshName    string
	TargetIndex int
	TargetName  string
	Method      Method
}

// Extraction is the result of hidden-target recovery. It implements Prober
// so the registry can fold recovered channels into the catalog.
type Extraction struct {
	Methods    []Method
	Channels   map[string][]Handle
	Candidates []Candidate
}

func (e *Extraction) Name() string { return "heuristic" }

// Probe returns the recovered channels. Recovery already ran against the
// same model at construction.
func (e *Extraction) Probe(model *scene.Model) map[string][]Handle {
	return e.Channels
}

// Recovered reports whether any drivable channel was found
func (e *Extraction) Recovered() bool {
	return len(e.Channels) > 0
}

// ExtractHidden recovers tongue morphs that standard exports hide: names
// live on interior meshes, surface only through fuzzy dictionary matches, or
// exist as anonymous targets on meshes skinned to tongue bones. An empty
// result is normal for many exports; tongue visemes then run on proxies.
func ExtractHidden(model *scene.Model, log zerolog.Logger) *Extraction {
	ext := &Extraction{Channels: make(map[string][]Handle)}
	methods := make(map[Method]bool)

	// Pass 1: meshes attached to tongue-named nodes. On a dedicated
	// articulation mesh even terse target names classify by suffix.
	for _, idx := range model.FindNodes(isTongueName) {
		mesh := model.NodeMesh(idx)
		if mesh == nil {
			continue
		}
		for i := range mesh.Targets {
			target := &mesh.Targets[i]
			alias := classifyTongueTarget(target.Name)
			if alias != "" {
				ext.add(alias, Handle{Mesh: mesh, Index: i})
				if target.Name != alias {
					ext.add(target.Name, Handle{Mesh: mesh, Index: i})
				}
				methods[MethodNodeName] = true
			} else {
				ext.add(target.Name, Handle{Mesh: mesh, Index: i})
				ext.Candidates = append(ext.Candidates, Candidate{
					MeshName:    mesh.Name,
					TargetIndex: i,
					TargetName:  target.Name,
					Method:      MethodNodeName,
				})
				methods[MethodNodeName] = true
			}
		}
	}

	// Pass 2: fuzzy scan of every dictionary for tongue-flavored names
	for _, mesh := range model.Meshes {
		if !mesh.HasNamedTargets() {
			continue
		}
		for i := range mesh.Targets {
			target := &mesh.Targets[i]
			if !isTongueName(target.Name) {
				continue
			}
			handle := Handle{Mesh: mesh, Index: i}
			if alias := classifyTongueTarget(target.Name); alias != "" && alias != target.Name {
				ext.add(alias, handle)
			}
			ext.add(target.Name, handle)
			methods[MethodDictionary] = true
		}
	}

	// Pass 3: bone naming convention. Meshes skinned to a tongue joint may
	// carry the morphs anonymously; surface them as candidates.
	if len(ext.Channels) == 0 {
		for _, jointIdx := range model.FindNodes(isTongueName) {
			if model.NodeMesh(jointIdx) != nil {
				continue
			}
			for _, mesh := range model.MeshesSkinnedBy(jointIdx) {
				if mesh.HasNamedTargets() {
					continue
				}
				for i := range mesh.Targets {
					ext.add(mesh.Targets[i].Name, Handle{Mesh: mesh, Index: i})
					ext.Candidates = append(ext.Candidates, Candidate{
						MeshName:    mesh.Name,
						TargetIndex: i,
						TargetName:  mesh.Targets[i].Name,
						Method:      MethodBoneSkin,
					})
					methods[MethodBoneSkin] = true
				}
			}
		}
	}

	for _, m := range []Method{MethodNodeName, MethodDictionary, MethodBoneSkin} {
		if methods[m] {
			ext.Methods = append(ext.Methods, m)
		}
	}

	if ext.Recovered() {
		log.Info().
			Int("channels", len(ext.Channels)).
			Int("candidates", len(ext.Candidates)).
			Interface("methods", ext.Methods).
			Msg("hidden morph targets recovered")
	} else {
		log.Info().Str("model", model.Name).Msg("no hidden tongue targets found, tongue visemes will use proxies")
	}

	return ext
}

func (e *Extraction) add(name string, h Handle) {
	if name == "" {
		return
	}
	for _, existing := range e.Channels[name] {
		if existing.Mesh == h.Mesh && existing.Index == h.Index {
			return
		}
	}
	e.Channels[name] = append(e.Channels[name], h)
}

// isTongueName matches node, bone and morph names that indicate tongue
// articulation (Tongue_Out, CC_Base_Tongue01, tongueOut, ...).
func isTongueName(name string) bool {
	return strings.Contains(strings.ToLower(name), "tongue")
}

// classifyTongueTarget maps a recovered target name onto the canonical
// channel the mapping tables address. Empty when unclassifiable.
func classifyTongueTarget(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "out"):
		return "Tongue_Out"
	case strings.Contains(lower, "tip") && strings.Contains(lower, "up"):
		return "Tongue_Tip_Up"
	case strings.Contains(lower, "roll") || strings.Contains(lower, "curl"):
		return "Tongue_Roll"
	case strings.Contains(lower, "up") || strings.Contains(lower, "raise"):
		return "Tongue_Up"
	case strings.Contains(lower, "narrow"):
		return "Tongue_Narrow"
	case strings.Contains(lower, "wide"):
		return "Tongue_Wide"
	default:
		return ""
	}
}
