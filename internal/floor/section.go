package floor

import (
	"fmt"
	"sync/atomic"

	"github.com/Faultbox/midgard-vox/internal/engine/voxmesh"
	"github.com/Faultbox/midgard-vox/pkg/math"
	"github.com/Faultbox/midgard-vox/pkg/vox"
)

// Section is one full-height column of the floor. It owns the write gate
// serialising jobs that touch its voxels and the geometry built from them.
type Section struct {
	index  int
	x, z   int
	start  math.IVec3 // voxel range [start, end)
	end    math.IVec3
	bounds math.Box3

	// gate is 1 while a job owns the section's voxels.
	gate atomic.Int32
	// pendingWriters counts jobs submitted for this section and not yet finished.
	pendingWriters atomic.Int32
	remeshes       atomic.Uint64

	// used only by the gate holder
	extractor *vox.GreedyQuadExtractor

	// owning thread only
	mesh *voxmesh.Mesh

	writeLabel string
}

func newSection(index, x, z int, start, end math.IVec3, model *vox.Model) *Section {
	e := vox.NewGreedyQuadExtractor(model)
	// neighbours may be mid-write on other workers; never sample past the range
	e.SealBounds = true
	return &Section{
		index:      index,
		x:          x,
		z:          z,
		start:      start,
		end:        end,
		bounds:     math.Box3{Min: model.VoxelCorner(start), Max: model.VoxelCorner(end)},
		extractor:  e,
		writeLabel: fmt.Sprintf("floor/write/%d,%d", x, z),
	}
}

// Index returns the section's position in Floor.Sections.
func (s *Section) Index() int { return s.index }

// Coord returns the section's grid column on X and Z.
func (s *Section) Coord() (x, z int) { return s.x, s.z }

// Bounds returns the world box covered by the section.
func (s *Section) Bounds() math.Box3 { return s.bounds }

// VoxelRange returns the half-open voxel range covered by the section.
func (s *Section) VoxelRange() (start, end math.IVec3) { return s.start, s.end }

// PendingWriters returns the number of unfinished write jobs for the section.
func (s *Section) PendingWriters() int { return int(s.pendingWriters.Load()) }

// Remeshes returns how many times the section's geometry has been rebuilt.
func (s *Section) Remeshes() uint64 { return s.remeshes.Load() }

// Mesh returns the last geometry handed to the uploader. Owning thread only.
func (s *Section) Mesh() *voxmesh.Mesh { return s.mesh }

func (s *Section) tryAcquire() bool {
	return s.gate.CompareAndSwap(0, 1)
}

func (s *Section) release() {
	if !s.gate.CompareAndSwap(1, 0) {
		panic(fmt.Sprintf("floor: section %d released without holding its gate", s.index))
	}
}

// clip intersects a voxel range with the section's range.
func (s *Section) clip(start, end math.IVec3) (math.IVec3, math.IVec3, bool) {
	start = start.Max(s.start)
	end = end.Min(s.end)
	return start, end, !start.Empty(end)
}
