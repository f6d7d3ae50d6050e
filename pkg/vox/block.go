package vox

import (
	"fmt"

	"github.com/Faultbox/midgard-vox/pkg/math"
)

const (
	// ClumpSize is the edge length of a clump in voxels.
	ClumpSize = 2
	// BlockSize is the edge length of a block in voxels.
	BlockSize = 32
	// ClumpsPerSide is the number of clumps along one block edge.
	ClumpsPerSide = BlockSize / ClumpSize

	clumpVoxels = ClumpSize * ClumpSize * ClumpSize
	blockClumps = ClumpsPerSide * ClumpsPerSide * ClumpsPerSide

	// BlockVoxels is the number of voxels stored in one block.
	BlockVoxels = BlockSize * BlockSize * BlockSize
)

// Clump is a 2x2x2 group of voxels, the unit handed to clump callbacks.
type Clump struct {
	Voxels [clumpVoxels]Voxel
}

func clumpIndex(x, y, z int) int {
	if x < 0 || y < 0 || z < 0 || x >= ClumpSize || y >= ClumpSize || z >= ClumpSize {
		panic(fmt.Sprintf("vox: clump index (%d,%d,%d) out of range", x, y, z))
	}
	return x + y*ClumpSize + z*ClumpSize*ClumpSize
}

// VoxelAt returns the voxel at local (x, y, z) in [0, 2).
func (c *Clump) VoxelAt(x, y, z int) Voxel {
	return c.Voxels[clumpIndex(x, y, z)]
}

// SetVoxel writes the voxel at local (x, y, z) in [0, 2).
func (c *Clump) SetVoxel(x, y, z int, v Voxel) {
	c.Voxels[clumpIndex(x, y, z)] = v
}

// Fill sets every voxel in the clump to v.
func (c *Clump) Fill(v Voxel) {
	for i := range c.Voxels {
		c.Voxels[i] = v
	}
}

// Block is a dense cube of BlockSize^3 voxels stored as one allocation,
// organised as clumps.
type Block struct {
	Clumps [blockClumps]Clump
}

func blockClumpIndex(x, y, z int) int {
	if x < 0 || y < 0 || z < 0 || x >= ClumpsPerSide || y >= ClumpsPerSide || z >= ClumpsPerSide {
		panic(fmt.Sprintf("vox: block clump index (%d,%d,%d) out of range", x, y, z))
	}
	return x + y*ClumpsPerSide + z*ClumpsPerSide*ClumpsPerSide
}

// ClumpAt returns the clump at clump coordinate (x, y, z) in [0, ClumpsPerSide).
func (b *Block) ClumpAt(x, y, z int) *Clump {
	return &b.Clumps[blockClumpIndex(x, y, z)]
}

// VoxelAt returns the voxel at block-local voxel coordinate (x, y, z).
func (b *Block) VoxelAt(x, y, z int) Voxel {
	return b.ClumpAt(x/ClumpSize, y/ClumpSize, z/ClumpSize).VoxelAt(x%ClumpSize, y%ClumpSize, z%ClumpSize)
}

// SetVoxel writes the voxel at block-local voxel coordinate (x, y, z).
func (b *Block) SetVoxel(x, y, z int, v Voxel) {
	b.ClumpAt(x/ClumpSize, y/ClumpSize, z/ClumpSize).SetVoxel(x%ClumpSize, y%ClumpSize, z%ClumpSize, v)
}

// localVoxel resolves a block-local coordinate without bounds panics;
// callers guarantee the range.
func (b *Block) localVoxel(l math.IVec3) *Voxel {
	c := &b.Clumps[int(l.X>>1)+int(l.Y>>1)*ClumpsPerSide+int(l.Z>>1)*ClumpsPerSide*ClumpsPerSide]
	return &c.Voxels[int(l.X&1)+int(l.Y&1)*ClumpSize+int(l.Z&1)*ClumpSize*ClumpSize]
}

// AppendBytes appends the block's voxels in storage order (clump-major) to dst.
func (b *Block) AppendBytes(dst []byte) []byte {
	for i := range b.Clumps {
		for _, v := range b.Clumps[i].Voxels {
			dst = append(dst, byte(v))
		}
	}
	return dst
}

// SetBytes overwrites the block's voxels from storage-order bytes.
func (b *Block) SetBytes(src []byte) error {
	if len(src) != BlockVoxels {
		return fmt.Errorf("vox: block payload is %d bytes, want %d", len(src), BlockVoxels)
	}
	for i := range b.Clumps {
		for j := range b.Clumps[i].Voxels {
			b.Clumps[i].Voxels[j] = Voxel(src[i*clumpVoxels+j])
		}
	}
	return nil
}

// IsEmpty reports whether every voxel in the block is air.
func (b *Block) IsEmpty() bool {
	for i := range b.Clumps {
		for _, v := range b.Clumps[i].Voxels {
			if v != Air {
				return false
			}
		}
	}
	return true
}

// SolidCount returns the number of non-air voxels in the block.
func (b *Block) SolidCount() int {
	n := 0
	for i := range b.Clumps {
		for _, v := range b.Clumps[i].Voxels {
			if v != Air {
				n++
			}
		}
	}
	return n
}
