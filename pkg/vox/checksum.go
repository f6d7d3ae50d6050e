package vox

import (
	"cmp"
	"encoding/binary"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/Faultbox/midgard-vox/pkg/math"
)

// Checksum hashes every allocated block (coordinate and voxels) in coordinate order.
// Two models with identical allocated blocks and contents hash equally regardless
// of allocation order.
func (m *Model) Checksum() uint64 {
	type entry struct {
		coord math.IVec3
		block *Block
	}
	entries := make([]entry, 0, m.volume.BlockCount())
	m.volume.ForEachBlock(func(coord math.IVec3, b *Block) bool {
		entries = append(entries, entry{coord, b})
		return true
	})
	slices.SortFunc(entries, func(a, b entry) int {
		return compareCoords(a.coord, b.coord)
	})

	h := xxhash.New()
	buf := make([]byte, 0, BlockVoxels)
	var hdr [12]byte
	for _, e := range entries {
		binary.LittleEndian.PutUint32(hdr[0:], uint32(e.coord.X))
		binary.LittleEndian.PutUint32(hdr[4:], uint32(e.coord.Y))
		binary.LittleEndian.PutUint32(hdr[8:], uint32(e.coord.Z))
		_, _ = h.Write(hdr[:])
		buf = e.block.AppendBytes(buf[:0])
		_, _ = h.Write(buf)
	}
	return h.Sum64()
}

func compareCoords(a, b math.IVec3) int {
	if c := cmp.Compare(a.Z, b.Z); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Y, b.Y); c != 0 {
		return c
	}
	return cmp.Compare(a.X, b.X)
}
