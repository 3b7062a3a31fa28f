// Package registry builds the drivable morph catalog for an attached model.
// Channels are named write routes: one morph name fanning out to every mesh
// slot that carries it.
package registry

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/normanking/lipsync/internal/scene"
)

// Handle addresses one morph target slot on one mesh
type Handle struct {
	Mesh  *scene.Mesh
	Index int
}

// Channel routes a named weight to every mesh slot sharing that morph name.
// Writes go through the mesh weight vector, never at geometry directly.
type Channel struct {
	Name    string
	handles []Handle
}

// Set writes the weight to every bound slot
func (c *Channel) Set(weight float32) {
	for _, h := range c.handles {
		h.Mesh.SetWeight(h.Index, weight)
	}
}

// Current reads the weight from the first bound slot
func (c *Channel) Current() float32 {
	if len(c.handles) == 0 {
		return 0
	}
	return c.handles[0].Mesh.Weight(c.handles[0].Index)
}

// Handles returns the bound slots
func (c *Channel) Handles() []Handle {
	return c.handles
}

// MeshCount returns how many distinct meshes the channel drives
func (c *Channel) MeshCount() int {
	seen := make(map[*scene.Mesh]bool, len(c.handles))
	for _, h := range c.handles {
		seen[h.Mesh] = true
	}
	return len(seen)
}

// Prober discovers drivable channels on a model. DictionaryProber reads the
// names the export surfaced; the heuristic extractor recovers hidden ones.
type Prober interface {
	Name() string
	Probe(model *scene.Model) map[string][]Handle
}

// DictionaryProber exposes the native morph dictionaries of meshes whose
// exports carry real target names.
type DictionaryProber struct{}

func (DictionaryProber) Name() string { return "dictionary" }

func (DictionaryProber) Probe(model *scene.Model) map[string][]Handle {
	found := make(map[string][]Handle)
	for _, mesh := range model.Meshes {
		if !mesh.HasNamedTargets() {
			continue
		}
		for i := range mesh.Targets {
			name := mesh.Targets[i].Name
			if name == "" {
				continue
			}
			found[name] = append(found[name], Handle{Mesh: mesh, Index: i})
		}
	}
	return found
}

// AttachReport summarizes one catalog build
type AttachReport struct {
	Meshes      int
	MorphMeshes int
	Channels    int
}

// MeshRegistry is the morph catalog for the currently attached model.
// Attach is idempotent: re-attaching rebuilds the same catalog.
type MeshRegistry struct {
	log      zerolog.Logger
	model    *scene.Model
	channels map[string]*Channel
	meshes   []*scene.Mesh
}

// New creates an empty registry
func New(log zerolog.Logger) *MeshRegistry {
	return &MeshRegistry{
		log:      log,
		channels: make(map[string]*Channel),
	}
}

// Attach rebuilds the catalog from the model. Morph-capable meshes get their
// weights zeroed and are marked double-sided with culling disabled, since
// extreme mouth shapes otherwise pop at silhouette edges. A model without
// morph-capable meshes yields a valid, inert registry.
func (r *MeshRegistry) Attach(model *scene.Model, probers ...Prober) AttachReport {
	r.model = model
	r.channels = make(map[string]*Channel)
	r.meshes = nil

	for _, mesh := range model.Meshes {
		if mesh.TargetCount() == 0 {
			continue
		}
		mesh.ResetWeights()
		mesh.DoubleSided = true
		mesh.CullingDisabled = true
		r.meshes = append(r.meshes, mesh)
	}

	if len(probers) == 0 {
		probers = []Prober{DictionaryProber{}}
	}

	for _, p := range probers {
		found := p.Probe(model)
		added := 0
		for name, handles := range found {
			added += r.addHandles(name, handles)
		}
		r.log.Debug().
			Str("prober", p.Name()).
			Int("channels", len(found)).
			Int("newBindings", added).
			Msg("probe complete")
	}

	report := AttachReport{
		Meshes:      len(model.Meshes),
		MorphMeshes: len(r.meshes),
		Channels:    len(r.channels),
	}

	if report.MorphMeshes == 0 {
		r.log.Warn().Str("model", model.Name).Msg("model has no morph-capable meshes, engine will be inert")
	} else {
		r.log.Info().
			Str("model", model.Name).
			Int("meshes", report.Meshes).
			Int("morphMeshes", report.MorphMeshes).
			Int("channels", report.Channels).
			Msg("morph catalog built")
	}

	return report
}

// addHandles merges handles into a channel, deduplicating slots
func (r *MeshRegistry) addHandles(name string, handles []Handle) int {
	ch, ok := r.channels[name]
	if !ok {
		ch = &Channel{Name: name}
		r.channels[name] = ch
	}
	added := 0
	for _, h := range handles {
		dup := false
		for _, existing := range ch.handles {
			if existing.Mesh == h.Mesh && existing.Index == h.Index {
				dup = true
				break
			}
		}
		if !dup {
			ch.handles = append(ch.handles, h)
			added++
		}
	}
	return added
}

// Channel looks up a named channel
func (r *MeshRegistry) Channel(name string) (*Channel, bool) {
	ch, ok := r.channels[name]
	return ch, ok
}

// Has reports whether a morph name is drivable on the attached model
func (r *MeshRegistry) Has(name string) bool {
	_, ok := r.channels[name]
	return ok
}

// Names returns all channel names, sorted
func (r *MeshRegistry) Names() []string {
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Channels returns all channels sorted by name
func (r *MeshRegistry) Channels() []*Channel {
	out := make([]*Channel, 0, len(r.channels))
	for _, name := range r.Names() {
		out = append(out, r.channels[name])
	}
	return out
}

// MeshCount returns the number of morph-capable meshes
func (r *MeshRegistry) MeshCount() int {
	return len(r.meshes)
}

// MorphCapable reports whether anything on the model can be animated
func (r *MeshRegistry) MorphCapable() bool {
	return len(r.meshes) > 0
}

// Meshes returns the morph-capable meshes
func (r *MeshRegistry) Meshes() []*scene.Mesh {
	return r.meshes
}

// Model returns the attached model, nil before the first Attach
func (r *MeshRegistry) Model() *scene.Model {
	return r.model
}

// ZeroAll resets every weight on every capable mesh
func (r *MeshRegistry) ZeroAll() {
	for _, mesh := range r.meshes {
		mesh.ResetWeights()
	}
}

// Dispose zeroes weights and drops the catalog
func (r *MeshRegistry) Dispose() {
	r.ZeroAll()
	r.model = nil
	r.channels = make(map[string]*Channel)
	r.meshes = nil
}
