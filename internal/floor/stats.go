package floor

import (
	"fmt"

	"github.com/Faultbox/midgard-vox/pkg/math"
)

// Stats is a snapshot of floor bookkeeping.
type Stats struct {
	TotalBounds   math.Box3
	SectionSize   math.Vec3
	Sections      int
	WritesPending int
	VertexBytes   int // uploaded geometry
	VoxelBytes    int // allocated block payload
	Blocks        int
	Saving        bool
	Loading       bool
}

// String formats the stats for debug overlays and CLI output.
func (s Stats) String() string {
	return fmt.Sprintf("sections=%d size=%.2fx%.2fx%.2f pending=%d vertex=%dKB voxel=%dKB blocks=%d",
		s.Sections, s.SectionSize.X, s.SectionSize.Y, s.SectionSize.Z,
		s.WritesPending, s.VertexBytes/1024, s.VoxelBytes/1024, s.Blocks)
}

// Stats collects the current stats. Call from the owning thread.
func (f *Floor) Stats() Stats {
	vertexBytes := 0
	for _, s := range f.sections {
		vertexBytes += s.mesh.ByteSize()
	}
	var sectionSize math.Vec3
	if len(f.sections) > 0 {
		sectionSize = f.sections[0].bounds.Size()
	}
	st := Stats{
		TotalBounds:   f.totalBounds,
		SectionSize:   sectionSize,
		Sections:      len(f.sections),
		WritesPending: f.WritesPending(),
		VertexBytes:   vertexBytes,
		Saving:        f.saving.Load(),
		Loading:       f.loading.Load(),
	}
	// the load job rebuilds the block table
	if !st.Loading {
		vol := f.model.Volume()
		st.VoxelBytes = vol.MemoryBytes()
		st.Blocks = vol.BlockCount()
	}
	return st
}
