// Package vox implements a sparse, paged voxel volume with area iteration,
// greedy surface extraction and content hashing.
//
// Storage is split into fixed-size cubic Blocks allocated on demand and
// addressed by an integer block coordinate. A Model wraps the paged storage
// with a world-space voxel size and origin and exposes area iteration over
// world-space boxes.
package vox

import "fmt"

// Voxel is one material+damage byte.
// The low 6 bits hold the material id, the high 2 bits a damage level (0-3).
// Value 0 is air and is never meshed.
type Voxel uint8

// Air is the empty voxel.
const Air Voxel = 0

const (
	materialMask = 0x3f
	damageShift  = 6
)

// Base material ids used by the demo content and the default palette.
const (
	MaterialAir uint8 = iota
	MaterialWalls
	MaterialFloor
	MaterialCarpet
	MaterialPillars
	MaterialOuterWall
)

// Pack combines a material id and damage level into a voxel.
func Pack(material uint8, damage uint8) Voxel {
	if material > materialMask {
		panic(fmt.Sprintf("vox: material id %d out of range", material))
	}
	if damage > 3 {
		panic(fmt.Sprintf("vox: damage level %d out of range", damage))
	}
	return Voxel(material | damage<<damageShift)
}

// Material returns the material id (low 6 bits).
func (v Voxel) Material() uint8 {
	return uint8(v) & materialMask
}

// Damage returns the damage level (high 2 bits).
func (v Voxel) Damage() uint8 {
	return uint8(v) >> damageShift
}

// IsAir reports whether the voxel is empty.
func (v Voxel) IsAir() bool {
	return v == Air
}
