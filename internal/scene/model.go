package scene

// Node is an element of the model hierarchy. Mesh and Skin index into the
// model-level slices when set.
type Node struct {
	Name     string
	Mesh     *int
	Skin     *int
	Children []int
}

// Skin binds a skinned mesh to the joint nodes that drive it
type Skin struct {
	Name   string
	Joints []int
}

// Model is the loaded avatar: flat node/mesh/skin tables plus root indices,
// mirroring how exports lay the hierarchy out.
type Model struct {
	Name   string
	Nodes  []Node
	Meshes []*Mesh
	Skins  []Skin
	Roots  []int
}

// Walk visits every node reachable from the roots, depth first. Orphan nodes
// (present in some exports) are visited afterwards.
func (m *Model) Walk(visit func(index int, node *Node)) {
	seen := make([]bool, len(m.Nodes))

	var walk func(idx int)
	walk = func(idx int) {
		if idx < 0 || idx >= len(m.Nodes) || seen[idx] {
			return
		}
		seen[idx] = true
		visit(idx, &m.Nodes[idx])
		for _, child := range m.Nodes[idx].Children {
			walk(child)
		}
	}

	for _, root := range m.Roots {
		walk(root)
	}
	for i := range m.Nodes {
		if !seen[i] {
			walk(i)
		}
	}
}

// NodeMesh returns the mesh attached to a node, or nil
func (m *Model) NodeMesh(index int) *Mesh {
	if index < 0 || index >= len(m.Nodes) {
		return nil
	}
	node := &m.Nodes[index]
	if node.Mesh == nil || *node.Mesh < 0 || *node.Mesh >= len(m.Meshes) {
		return nil
	}
	return m.Meshes[*node.Mesh]
}

// MeshesSkinnedBy returns every mesh whose skin references the given joint
// node. Ordering follows the node table.
func (m *Model) MeshesSkinnedBy(jointIndex int) []*Mesh {
	var meshes []*Mesh
	seen := make(map[*Mesh]bool)

	for i := range m.Nodes {
		node := &m.Nodes[i]
		if node.Mesh == nil || node.Skin == nil {
			continue
		}
		if *node.Skin < 0 || *node.Skin >= len(m.Skins) {
			continue
		}
		skin := &m.Skins[*node.Skin]
		for _, joint := range skin.Joints {
			if joint != jointIndex {
				continue
			}
			mesh := m.NodeMesh(i)
			if mesh != nil && !seen[mesh] {
				seen[mesh] = true
				meshes = append(meshes, mesh)
			}
			break
		}
	}

	return meshes
}

// FindNodes returns indices of nodes whose name satisfies the predicate
func (m *Model) FindNodes(match func(name string) bool) []int {
	var indices []int
	for i := range m.Nodes {
		if match(m.Nodes[i].Name) {
			indices = append(indices, i)
		}
	}
	return indices
}

// MorphMeshCount returns how many meshes carry at least one morph target
func (m *Model) MorphMeshCount() int {
	count := 0
	for _, mesh := range m.Meshes {
		if mesh.TargetCount() > 0 {
			count++
		}
	}
	return count
}
