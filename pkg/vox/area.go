package vox

import (
	"fmt"

	"github.com/Faultbox/midgard-vox/pkg/math"
)

// AreaFunc receives one voxel range per call and resolves voxels through AreaParams.
type AreaFunc func(p *AreaParams)

// AreaParams is the per-call view of a voxel range handed to an AreaFunc.
// Coordinates are global voxel indices. Writes are limited to [StartVoxel, EndVoxel).
type AreaParams struct {
	model    *Model
	start    math.IVec3
	end      math.IVec3
	writable bool

	cached      bool
	cachedCoord math.IVec3
	cachedBlock *Block
}

// StartVoxel returns the inclusive minimum voxel index of the range.
func (p *AreaParams) StartVoxel() math.IVec3 { return p.start }

// EndVoxel returns the exclusive maximum voxel index of the range.
func (p *AreaParams) EndVoxel() math.IVec3 { return p.end }

// VoxelSize returns the model's voxel size.
func (p *AreaParams) VoxelSize() math.Vec3 { return p.model.voxelSize }

// Writable reports whether WriteVoxel is permitted.
func (p *AreaParams) Writable() bool { return p.writable }

// VoxelPosition returns the world-space center of voxel (x, y, z).
func (p *AreaParams) VoxelPosition(x, y, z int32) math.Vec3 {
	return p.model.VoxelCenter(math.IVec3{X: x, Y: y, Z: z})
}

// block resolves a block coordinate. Only writes allocate; reads of missing
// blocks return nil even on writable params.
func (p *AreaParams) block(coord math.IVec3, create bool) *Block {
	if p.cached && p.cachedCoord == coord && (p.cachedBlock != nil || !create) {
		return p.cachedBlock
	}
	var b *Block
	if create {
		b = p.model.volume.GetOrCreate(coord)
	} else {
		b = p.model.volume.BlockAt(coord)
	}
	p.cached, p.cachedCoord, p.cachedBlock = true, coord, b
	return b
}

// VoxelAt returns the voxel at (x, y, z); unallocated voxels read as air.
func (p *AreaParams) VoxelAt(x, y, z int32) Voxel {
	v := math.IVec3{X: x, Y: y, Z: z}
	b := p.block(v.FloorDiv(BlockSize), false)
	if b == nil {
		return Air
	}
	return *b.localVoxel(v.Mod(BlockSize))
}

// WriteVoxel stores value at (x, y, z). Writing outside the range or through
// read-only params is a contract violation.
func (p *AreaParams) WriteVoxel(x, y, z int32, value Voxel) {
	if !p.writable {
		panic("vox: WriteVoxel through read-only area params")
	}
	v := math.IVec3{X: x, Y: y, Z: z}
	if v.X < p.start.X || v.Y < p.start.Y || v.Z < p.start.Z ||
		v.X >= p.end.X || v.Y >= p.end.Y || v.Z >= p.end.Z {
		panic(fmt.Sprintf("vox: WriteVoxel %v outside area [%v, %v)", v, p.start, p.end))
	}
	b := p.block(v.FloorDiv(BlockSize), true)
	*b.localVoxel(v.Mod(BlockSize)) = value
}

// ForEach calls fn for every voxel index in the range, z-major.
func (p *AreaParams) ForEach(fn func(x, y, z int32)) {
	for z := p.start.Z; z < p.end.Z; z++ {
		for y := p.start.Y; y < p.end.Y; y++ {
			for x := p.start.X; x < p.end.X; x++ {
				fn(x, y, z)
			}
		}
	}
}

// WriteArea hands fn mutable access to the voxels covered by box.
// In a frozen model the range is clamped to the preallocated region.
func (m *Model) WriteArea(box math.Box3, fn AreaFunc) {
	start, end := m.VoxelRange(box)
	m.WriteVoxelRange(start, end, fn)
}

// WriteVoxelRange is WriteArea over an explicit half-open voxel range.
func (m *Model) WriteVoxelRange(start, end math.IVec3, fn AreaFunc) {
	start, end, ok := m.clampRange(start, end, ReadWrite)
	if !ok {
		return
	}
	fn(&AreaParams{model: m, start: start, end: end, writable: true})
}

// ReadArea hands fn read-only access to the allocated voxels covered by box.
func (m *Model) ReadArea(box math.Box3, fn AreaFunc) {
	start, end := m.VoxelRange(box)
	start, end, ok := m.clampRange(start, end, ReadOnly)
	if !ok {
		return
	}
	fn(&AreaParams{model: m, start: start, end: end})
}
