// Package gltfbridge adapts glTF documents into scene models. It is the only
// package that touches the export format; everything downstream works on
// scene types.
package gltfbridge

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/normanking/lipsync/internal/scene"
)

var (
	ErrNoMeshes = errors.New("document contains no meshes")
)

// Load opens a .gltf or .glb file and builds the scene model
func Load(path string) (*scene.Model, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}

	model, err := FromDocument(doc, filepath.Dir(path))
	if err != nil {
		return nil, err
	}

	model.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return model, nil
}

// FromDocument converts a parsed document. baseDir resolves external buffer
// URIs for .gltf files with sidecar .bin data.
func FromDocument(doc *gltf.Document, baseDir string) (*scene.Model, error) {
	if len(doc.Meshes) == 0 {
		return nil, ErrNoMeshes
	}

	model := &scene.Model{
		Meshes: make([]*scene.Mesh, 0, len(doc.Meshes)),
		Nodes:  make([]scene.Node, 0, len(doc.Nodes)),
		Skins:  make([]scene.Skin, 0, len(doc.Skins)),
	}

	for mi, gltfMesh := range doc.Meshes {
		mesh, err := convertMesh(doc, gltfMesh, baseDir)
		if err != nil {
			return nil, fmt.Errorf("mesh %d (%s): %w", mi, gltfMesh.Name, err)
		}
		model.Meshes = append(model.Meshes, mesh)
	}

	for _, gltfNode := range doc.Nodes {
		node := scene.Node{Name: gltfNode.Name}
		if gltfNode.Mesh != nil {
			idx := int(*gltfNode.Mesh)
			node.Mesh = &idx
		}
		if gltfNode.Skin != nil {
			idx := int(*gltfNode.Skin)
			node.Skin = &idx
		}
		for _, child := range gltfNode.Children {
			node.Children = append(node.Children, int(child))
		}
		model.Nodes = append(model.Nodes, node)
	}

	for _, gltfSkin := range doc.Skins {
		skin := scene.Skin{Name: gltfSkin.Name}
		for _, joint := range gltfSkin.Joints {
			skin.Joints = append(skin.Joints, int(joint))
		}
		model.Skins = append(model.Skins, skin)
	}

	sceneIdx := 0
	if doc.Scene != nil {
		sceneIdx = int(*doc.Scene)
	}
	if sceneIdx >= 0 && sceneIdx < len(doc.Scenes) {
		for _, root := range doc.Scenes[sceneIdx].Nodes {
			model.Roots = append(model.Roots, int(root))
		}
	}

	return model, nil
}

// convertMesh concatenates all primitives so per-target deltas line up with
// the combined vertex range. The glTF spec requires every primitive of a
// mesh to carry the same target count.
func convertMesh(doc *gltf.Document, gltfMesh *gltf.Mesh, baseDir string) (*scene.Mesh, error) {
	if len(gltfMesh.Primitives) == 0 {
		return scene.NewMesh(gltfMesh.Name, nil, nil, nil, false), nil
	}

	targetCount := len(gltfMesh.Primitives[0].Targets)

	var allPositions, allNormals []mgl32.Vec3
	targets := make([]scene.MorphTarget, targetCount)
	for i := range targets {
		targets[i].Name = fmt.Sprintf("target_%d", i)
	}

	for _, prim := range gltfMesh.Primitives {
		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		primPositions, err := readAccessorVec3(doc, uint32(posIdx), baseDir)
		if err != nil {
			return nil, fmt.Errorf("read positions: %w", err)
		}

		var primNormals []mgl32.Vec3
		if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
			primNormals, err = readAccessorVec3(doc, uint32(normIdx), baseDir)
			if err != nil {
				primNormals = make([]mgl32.Vec3, len(primPositions))
			}
		} else {
			primNormals = make([]mgl32.Vec3, len(primPositions))
		}

		for ti := 0; ti < targetCount && ti < len(prim.Targets); ti++ {
			target := prim.Targets[ti]

			primDeltas := make([]mgl32.Vec3, len(primPositions))
			if dIdx, ok := target[gltf.POSITION]; ok {
				if deltas, err := readAccessorVec3(doc, uint32(dIdx), baseDir); err == nil {
					copy(primDeltas, deltas)
				}
			}
			targets[ti].PositionDeltas = append(targets[ti].PositionDeltas, primDeltas...)

			primNormalDeltas := make([]mgl32.Vec3, len(primPositions))
			if nIdx, ok := target[gltf.NORMAL]; ok {
				if deltas, err := readAccessorVec3(doc, uint32(nIdx), baseDir); err == nil {
					copy(primNormalDeltas, deltas)
				}
			}
			targets[ti].NormalDeltas = append(targets[ti].NormalDeltas, primNormalDeltas...)
		}

		allPositions = append(allPositions, primPositions...)
		allNormals = append(allNormals, primNormals...)
	}

	named := applyTargetNames(gltfMesh, targets)

	return scene.NewMesh(gltfMesh.Name, allPositions, allNormals, targets, named), nil
}

// applyTargetNames reads the mesh-level extras.targetNames convention most
// exporters emit. Returns whether any real name was found.
func applyTargetNames(gltfMesh *gltf.Mesh, targets []scene.MorphTarget) bool {
	named := false
	if extras, ok := gltfMesh.Extras.(map[string]interface{}); ok {
		if targetNames, ok := extras["targetNames"].([]interface{}); ok {
			for i, name := range targetNames {
				if i >= len(targets) {
					break
				}
				if strName, ok := name.(string); ok && strName != "" {
					targets[i].Name = strName
					named = true
				}
			}
		}
	}
	return named
}
