// Package voxmesh turns extracted voxel quads into render-ready meshes.
package voxmesh

import "github.com/Faultbox/midgard-vox/pkg/vox"

// Material is the display description of one voxel value.
type Material struct {
	Colour       [4]float32
	TextureIndex float32
}

// DefaultColour marks voxel values with no assigned material.
var DefaultColour = [4]float32{1, 0, 1, 1}

// MaterialSet maps every voxel value (material and damage bits) to a Material.
type MaterialSet struct {
	entries [256]Material
}

// NewMaterialSet creates a set where every value uses DefaultColour.
func NewMaterialSet() *MaterialSet {
	s := &MaterialSet{}
	for i := range s.entries {
		s.entries[i] = Material{Colour: DefaultColour}
	}
	return s
}

// Set assigns mat to a material id at every damage level.
func (s *MaterialSet) Set(material uint8, mat Material) {
	for damage := range uint8(4) {
		s.entries[vox.Pack(material, damage)] = mat
	}
}

// SetVoxel assigns mat to one exact voxel value.
func (s *MaterialSet) SetVoxel(v vox.Voxel, mat Material) {
	s.entries[v] = mat
}

// Lookup returns the material for a voxel value.
func (s *MaterialSet) Lookup(v vox.Voxel) Material {
	return s.entries[v]
}

// DefaultMaterials returns the palette used by the demo floor.
func DefaultMaterials() *MaterialSet {
	s := NewMaterialSet()
	s.Set(vox.MaterialFloor, Material{Colour: [4]float32{0.165, 0.498, 0.251, 1}})
	s.Set(vox.MaterialWalls, Material{Colour: [4]float32{0.667, 0.518, 0.224, 1}})
	s.Set(vox.MaterialCarpet, Material{Colour: [4]float32{0.18, 0.263, 0.447, 1}})
	s.Set(vox.MaterialPillars, Material{Colour: [4]float32{0.667, 0.275, 0.224, 1}})
	s.Set(vox.MaterialOuterWall, Material{Colour: [4]float32{0.4, 0.4, 0.5, 1}})
	return s
}
