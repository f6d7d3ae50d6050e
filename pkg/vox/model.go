package vox

import (
	"fmt"

	"github.com/Faultbox/midgard-vox/pkg/math"
)

// Access selects what an area iteration callback may do with the voxels it is handed.
type Access int

const (
	// ReadOnly permits concurrent readers over any region.
	ReadOnly Access = iota
	// ReadWrite hands out mutable access. There is no built-in exclusion:
	// callers must not run overlapping ReadWrite iterations concurrently.
	ReadWrite
)

// String returns the access mode name.
func (a Access) String() string {
	switch a {
	case ReadOnly:
		return "ReadOnly"
	case ReadWrite:
		return "ReadWrite"
	default:
		return fmt.Sprintf("Access(%d)", int(a))
	}
}

// ClumpAccessor exposes one clump to a ClumpFunc.
type ClumpAccessor struct {
	clump    *Clump
	writable bool
}

// VoxelAt returns the voxel at clump-local (x, y, z) in [0, 2).
func (a ClumpAccessor) VoxelAt(x, y, z int) Voxel {
	return a.clump.VoxelAt(x, y, z)
}

// SetVoxel writes the voxel at clump-local (x, y, z). Panics for read-only access.
func (a ClumpAccessor) SetVoxel(x, y, z int, v Voxel) {
	if !a.writable {
		panic("vox: SetVoxel through a read-only clump accessor")
	}
	a.clump.SetVoxel(x, y, z, v)
}

// Fill sets every voxel of the clump. Panics for read-only access.
func (a ClumpAccessor) Fill(v Voxel) {
	if !a.writable {
		panic("vox: Fill through a read-only clump accessor")
	}
	a.clump.Fill(v)
}

// Writable reports whether the accessor permits mutation.
func (a ClumpAccessor) Writable() bool {
	return a.writable
}

// ClumpFunc is invoked once per touched clump. clumpOrigin is the world position
// of the clump's minimum corner, voxelCenter the offset from a voxel's corner to its center.
type ClumpFunc func(acc ClumpAccessor, clumpOrigin, voxelSize, voxelCenter math.Vec3)

// Model wraps a PagedVolume with a fixed voxel size and a world origin.
type Model struct {
	volume    *PagedVolume
	voxelSize math.Vec3
	origin    math.Vec3
}

// NewModel creates an empty model with its origin at world zero.
func NewModel(voxelSize math.Vec3) *Model {
	return NewModelAt(voxelSize, math.Vec3{})
}

// NewModelAt creates an empty model with the given voxel size and world origin.
func NewModelAt(voxelSize, origin math.Vec3) *Model {
	if voxelSize.X <= 0 || voxelSize.Y <= 0 || voxelSize.Z <= 0 {
		panic(fmt.Sprintf("vox: voxel size must be positive, got %v", voxelSize))
	}
	return &Model{
		volume:    NewPagedVolume(),
		voxelSize: voxelSize,
		origin:    origin,
	}
}

// VoxelSize returns the world-space size of one voxel.
func (m *Model) VoxelSize() math.Vec3 { return m.voxelSize }

// Origin returns the world position of voxel (0,0,0)'s minimum corner.
func (m *Model) Origin() math.Vec3 { return m.origin }

// Volume returns the underlying paged storage.
func (m *Model) Volume() *PagedVolume { return m.volume }

// VoxelRange converts a world box into the half-open voxel index range [start, end).
// The minimum is floored and the maximum ceiled.
func (m *Model) VoxelRange(box math.Box3) (start, end math.IVec3) {
	start = box.Min.Sub(m.origin).Div(m.voxelSize).Floor()
	end = box.Max.Sub(m.origin).Div(m.voxelSize).Ceil()
	return start, end
}

// WorldToVoxel returns the voxel index containing world point p.
func (m *Model) WorldToVoxel(p math.Vec3) math.IVec3 {
	return p.Sub(m.origin).Div(m.voxelSize).Floor()
}

// VoxelCorner returns the world position of a voxel's minimum corner.
func (m *Model) VoxelCorner(v math.IVec3) math.Vec3 {
	return m.origin.Add(v.Vec3().Mul(m.voxelSize))
}

// VoxelCenter returns the world position of a voxel's center.
func (m *Model) VoxelCenter(v math.IVec3) math.Vec3 {
	return m.VoxelCorner(v).Add(m.voxelSize.Scale(0.5))
}

// allocatedVoxelRange returns the voxel range covered by allocated blocks.
func (m *Model) allocatedVoxelRange() (start, end math.IVec3, ok bool) {
	lo, hi, ok := m.volume.AllocatedRange()
	if !ok {
		return start, end, false
	}
	return lo.MulScalar(BlockSize), hi.Add(math.IVec3{X: 1, Y: 1, Z: 1}).MulScalar(BlockSize), true
}

// AllocatedBounds returns the world box covered by allocated blocks.
func (m *Model) AllocatedBounds() (math.Box3, bool) {
	start, end, ok := m.allocatedVoxelRange()
	if !ok {
		return math.Box3{}, false
	}
	return math.Box3{Min: m.VoxelCorner(start), Max: m.VoxelCorner(end)}, true
}

// Preallocate allocates every block touching bounds and freezes the volume, so
// that later access never inserts.
func (m *Model) Preallocate(bounds math.Box3) {
	start, end := m.VoxelRange(bounds)
	if start.Empty(end) {
		return
	}
	lo := start.FloorDiv(BlockSize)
	hi := end.Sub(math.IVec3{X: 1, Y: 1, Z: 1}).FloorDiv(BlockSize)
	m.volume.Preallocate(lo, hi)
	m.volume.Freeze()
}

// Clear drops all voxel data. Not safe while other goroutines touch the model.
func (m *Model) Clear() {
	m.volume.Clear()
}

// ReplaceBlocks drops every block of m and copies in the allocated blocks of
// src. The voxel sizes of both models are expected to match. Not safe while
// other goroutines touch either model.
func (m *Model) ReplaceBlocks(src *Model) {
	m.volume.Clear()
	src.volume.ForEachBlock(func(coord math.IVec3, b *Block) bool {
		*m.volume.GetOrCreate(coord) = *b
		return true
	})
}

// VoxelAt returns the voxel at index v; unallocated voxels read as air.
func (m *Model) VoxelAt(v math.IVec3) Voxel {
	b := m.volume.BlockAt(v.FloorDiv(BlockSize))
	if b == nil {
		return Air
	}
	return *b.localVoxel(v.Mod(BlockSize))
}

// SetVoxel writes a single voxel, allocating its block when the volume is not frozen.
func (m *Model) SetVoxel(v math.IVec3, value Voxel) {
	b := m.volume.GetOrCreate(v.FloorDiv(BlockSize))
	*b.localVoxel(v.Mod(BlockSize)) = value
}

// clampRange narrows a voxel range for the given access. Read-only access and
// frozen volumes are limited to allocated blocks.
func (m *Model) clampRange(start, end math.IVec3, mode Access) (math.IVec3, math.IVec3, bool) {
	if mode == ReadWrite && !m.volume.Frozen() {
		return start, end, !start.Empty(end)
	}
	lo, hi, ok := m.allocatedVoxelRange()
	if !ok {
		return start, end, false
	}
	start = start.Max(lo)
	end = end.Min(hi)
	return start, end, !start.Empty(end)
}

// lookup returns the block for a coordinate under the given access.
func (m *Model) lookup(coord math.IVec3, mode Access) *Block {
	if mode == ReadWrite {
		return m.volume.GetOrCreate(coord)
	}
	return m.volume.BlockAt(coord)
}

// IterateArea walks every clump touched by box and calls fn once per clump.
// A box that misses the allocated region is a no-op for read-only access.
func (m *Model) IterateArea(box math.Box3, mode Access, fn ClumpFunc) {
	start, end := m.VoxelRange(box)
	start, end, ok := m.clampRange(start, end, mode)
	if !ok {
		return
	}

	blockLo := start.FloorDiv(BlockSize)
	blockHi := end.Sub(math.IVec3{X: 1, Y: 1, Z: 1}).FloorDiv(BlockSize)
	voxelCenter := m.voxelSize.Scale(0.5)
	writable := mode == ReadWrite

	for bz := blockLo.Z; bz <= blockHi.Z; bz++ {
		for by := blockLo.Y; by <= blockHi.Y; by++ {
			for bx := blockLo.X; bx <= blockHi.X; bx++ {
				coord := math.IVec3{X: bx, Y: by, Z: bz}
				block := m.lookup(coord, mode)
				if block == nil {
					continue
				}

				base := coord.MulScalar(BlockSize)
				localLo := start.Max(base).Sub(base)
				localHi := end.Min(base.Add(math.IVec3{X: BlockSize, Y: BlockSize, Z: BlockSize})).Sub(base)
				clumpLo := localLo.FloorDiv(ClumpSize)
				clumpHi := localHi.CeilDiv(ClumpSize)

				for cz := clumpLo.Z; cz < clumpHi.Z; cz++ {
					for cy := clumpLo.Y; cy < clumpHi.Y; cy++ {
						for cx := clumpLo.X; cx < clumpHi.X; cx++ {
							clumpVoxel := base.Add(math.IVec3{X: cx, Y: cy, Z: cz}.MulScalar(ClumpSize))
							acc := ClumpAccessor{
								clump:    block.ClumpAt(int(cx), int(cy), int(cz)),
								writable: writable,
							}
							fn(acc, m.VoxelCorner(clumpVoxel), m.voxelSize, voxelCenter)
						}
					}
				}
			}
		}
	}
}
