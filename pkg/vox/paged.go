package vox

import (
	"fmt"

	"github.com/Faultbox/midgard-vox/pkg/math"
)

// PagedVolume is a sparse map from block grid coordinate to Block.
//
// Blocks live in an arena slice and are addressed through a coordinate index.
// Once Freeze has been called, lookups never insert: the volume can then be
// read and written by concurrent callers touching disjoint voxels. Insertion
// (GetOrCreate, Clear, Preallocate) is single-threaded only.
type PagedVolume struct {
	blocks []*Block
	coords []math.IVec3
	index  map[math.IVec3]int
	frozen bool

	// inclusive coordinate range of allocated blocks
	lo, hi math.IVec3
}

// NewPagedVolume creates an empty volume.
func NewPagedVolume() *PagedVolume {
	return &PagedVolume{
		index: make(map[math.IVec3]int),
	}
}

// BlockAt returns the block at coord, or nil if it was never allocated.
func (p *PagedVolume) BlockAt(coord math.IVec3) *Block {
	if i, ok := p.index[coord]; ok {
		return p.blocks[i]
	}
	return nil
}

// GetOrCreate returns the block at coord, allocating it when missing.
// Allocating in a frozen volume is a contract violation.
func (p *PagedVolume) GetOrCreate(coord math.IVec3) *Block {
	if b := p.BlockAt(coord); b != nil {
		return b
	}
	if p.frozen {
		panic(fmt.Sprintf("vox: block %v is outside the preallocated region", coord))
	}
	b := &Block{}
	if len(p.blocks) == 0 {
		p.lo, p.hi = coord, coord
	} else {
		p.lo = p.lo.Min(coord)
		p.hi = p.hi.Max(coord)
	}
	p.index[coord] = len(p.blocks)
	p.blocks = append(p.blocks, b)
	p.coords = append(p.coords, coord)
	return b
}

// Preallocate allocates every block in the inclusive coordinate range [lo, hi].
func (p *PagedVolume) Preallocate(lo, hi math.IVec3) {
	for z := lo.Z; z <= hi.Z; z++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				p.GetOrCreate(math.IVec3{X: x, Y: y, Z: z})
			}
		}
	}
}

// Freeze forbids further insertion until the next Clear.
func (p *PagedVolume) Freeze() {
	p.frozen = true
}

// Frozen reports whether insertion is forbidden.
func (p *PagedVolume) Frozen() bool {
	return p.frozen
}

// Clear drops every block and unfreezes the volume.
func (p *PagedVolume) Clear() {
	p.blocks = nil
	p.coords = nil
	p.index = make(map[math.IVec3]int)
	p.frozen = false
	p.lo, p.hi = math.IVec3{}, math.IVec3{}
}

// BlockCount returns the number of allocated blocks.
func (p *PagedVolume) BlockCount() int {
	return len(p.blocks)
}

// MemoryBytes returns the voxel payload held by allocated blocks.
func (p *PagedVolume) MemoryBytes() int {
	return len(p.blocks) * BlockVoxels
}

// ForEachBlock visits blocks in allocation order.
// Returning false from fn stops the walk.
func (p *PagedVolume) ForEachBlock(fn func(coord math.IVec3, b *Block) bool) {
	for i, b := range p.blocks {
		if !fn(p.coords[i], b) {
			return
		}
	}
}

// AllocatedRange returns the inclusive block coordinate range covering every
// allocated block. ok is false for an empty volume.
func (p *PagedVolume) AllocatedRange() (lo, hi math.IVec3, ok bool) {
	if len(p.blocks) == 0 {
		return math.IVec3{}, math.IVec3{}, false
	}
	return p.lo, p.hi, true
}
