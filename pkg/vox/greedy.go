package vox

import (
	"fmt"

	"github.com/Faultbox/midgard-vox/pkg/math"
)

// NormalDirection is the outward normal of an extracted quad.
// Values 0-1 are the X axis, 2-3 Y, 4-5 Z; even values point negative.
type NormalDirection uint8

// Normal directions.
const (
	XAxisNegative NormalDirection = iota
	XAxisPositive
	YAxisNegative
	YAxisPositive
	ZAxisNegative
	ZAxisPositive
)

// Axis returns the axis index (0=X, 1=Y, 2=Z).
func (n NormalDirection) Axis() int {
	return int(n) / 2
}

// Positive reports whether the normal points along the positive axis.
func (n NormalDirection) Positive() bool {
	return n%2 == 1
}

// Vector returns the unit normal.
func (n NormalDirection) Vector() math.Vec3 {
	s := float32(-1)
	if n.Positive() {
		s = 1
	}
	return math.Vec3{}.WithAxis(n.Axis(), s)
}

// String returns a short name such as "+X".
func (n NormalDirection) String() string {
	if n > ZAxisPositive {
		return fmt.Sprintf("NormalDirection(%d)", uint8(n))
	}
	sign := "-"
	if n.Positive() {
		sign = "+"
	}
	return sign + string("XYZ"[n.Axis()])
}

// QuadDescriptor is one maximal face rectangle. Vertices are world-space
// corners wound counter-clockwise when viewed from outside.
type QuadDescriptor struct {
	Vertices [4]math.Vec3
	Normal   NormalDirection
	Value    Voxel
}

// GreedyQuadExtractor emits the minimal set of maximal quads covering every
// exposed solid-to-air face inside a region of a Model.
//
// Samples outside the model's allocated blocks read as air. When SealBounds is
// set, samples outside the extraction range also read as air, so the extractor
// never reads voxels beyond the region it was asked to mesh.
type GreedyQuadExtractor struct {
	model *Model

	// SealBounds treats everything outside the extraction range as air.
	SealBounds bool

	quads     []QuadDescriptor
	extracted bool

	samples []Voxel
	mask    []Voxel
}

// NewGreedyQuadExtractor creates an extractor over m.
func NewGreedyQuadExtractor(m *Model) *GreedyQuadExtractor {
	return &GreedyQuadExtractor{model: m}
}

// Extracted reports whether ExtractQuads has run. An extracted, empty result
// is a valid "nothing to draw" outcome.
func (e *GreedyQuadExtractor) Extracted() bool {
	return e.extracted
}

// Quads returns the quads from the last extraction. The slice is reused by the
// next call.
func (e *GreedyQuadExtractor) Quads() []QuadDescriptor {
	return e.quads
}

// ExtractQuads extracts the surface of the voxels covered by bounds.
func (e *GreedyQuadExtractor) ExtractQuads(bounds math.Box3) {
	start, end := e.model.VoxelRange(bounds)
	e.ExtractVoxelRange(start, end)
}

// ExtractVoxelRange extracts the surface of the voxels in [start, end).
func (e *GreedyQuadExtractor) ExtractVoxelRange(start, end math.IVec3) {
	e.quads = e.quads[:0]
	if e.quads == nil {
		e.quads = make([]QuadDescriptor, 0, 64)
	}
	e.extracted = true
	if start.Empty(end) {
		return
	}

	size := end.Sub(start)
	e.gatherSamples(start, size)

	for axis := range 3 {
		u := (axis + 1) % 3
		v := (axis + 2) % 3
		for _, positive := range [2]bool{false, true} {
			normal := NormalDirection(axis*2) + boolToDir(positive)
			for slice := int32(0); slice < size.Axis(axis); slice++ {
				if e.buildMask(size, axis, u, v, slice, positive) {
					e.mergeMask(start, size, axis, u, v, slice, normal)
				}
			}
		}
	}
}

func boolToDir(positive bool) NormalDirection {
	if positive {
		return 1
	}
	return 0
}

// gatherSamples copies the range plus a one voxel border into a dense buffer.
func (e *GreedyQuadExtractor) gatherSamples(start, size math.IVec3) {
	padded := size.Add(math.IVec3{X: 2, Y: 2, Z: 2})
	n := int(padded.X) * int(padded.Y) * int(padded.Z)
	if cap(e.samples) < n {
		e.samples = make([]Voxel, n)
	}
	e.samples = e.samples[:n]

	end := start.Add(size)
	var (
		lastCoord math.IVec3
		lastBlock *Block
		haveLast  bool
	)
	i := 0
	for z := int32(-1); z <= size.Z; z++ {
		for y := int32(-1); y <= size.Y; y++ {
			for x := int32(-1); x <= size.X; x++ {
				g := math.IVec3{X: start.X + x, Y: start.Y + y, Z: start.Z + z}
				inside := g.X >= start.X && g.Y >= start.Y && g.Z >= start.Z &&
					g.X < end.X && g.Y < end.Y && g.Z < end.Z
				if !inside && e.SealBounds {
					e.samples[i] = Air
					i++
					continue
				}
				coord := g.FloorDiv(BlockSize)
				if !haveLast || coord != lastCoord {
					lastCoord, lastBlock, haveLast = coord, e.model.volume.BlockAt(coord), true
				}
				if lastBlock == nil {
					e.samples[i] = Air
				} else {
					e.samples[i] = *lastBlock.localVoxel(g.Mod(BlockSize))
				}
				i++
			}
		}
	}
}

// sample reads the padded buffer at range-local p, where -1 and size are border cells.
func (e *GreedyQuadExtractor) sample(size, p math.IVec3) Voxel {
	px := int(size.X) + 2
	py := int(size.Y) + 2
	return e.samples[int(p.X+1)+int(p.Y+1)*px+int(p.Z+1)*px*py]
}

// buildMask fills the 2D face mask for one slice. Reports whether any face was found.
func (e *GreedyQuadExtractor) buildMask(size math.IVec3, axis, u, v int, slice int32, positive bool) bool {
	su, sv := size.Axis(u), size.Axis(v)
	n := int(su) * int(sv)
	if cap(e.mask) < n {
		e.mask = make([]Voxel, n)
	}
	e.mask = e.mask[:n]

	step := int32(-1)
	if positive {
		step = 1
	}
	found := false
	for j := int32(0); j < sv; j++ {
		for i := int32(0); i < su; i++ {
			p := math.IVec3{}.WithAxis(axis, slice).WithAxis(u, i).WithAxis(v, j)
			solid := e.sample(size, p)
			var face Voxel
			if solid != Air && e.sample(size, p.WithAxis(axis, slice+step)) == Air {
				face = solid
				found = true
			}
			e.mask[int(i)+int(j)*int(su)] = face
		}
	}
	return found
}

// mergeMask greedily merges equal mask cells into maximal rectangles.
func (e *GreedyQuadExtractor) mergeMask(start, size math.IVec3, axis, u, v int, slice int32, normal NormalDirection) {
	su, sv := int(size.Axis(u)), int(size.Axis(v))
	for j := 0; j < sv; j++ {
		for i := 0; i < su; {
			value := e.mask[i+j*su]
			if value == Air {
				i++
				continue
			}

			w := 1
			for i+w < su && e.mask[i+w+j*su] == value {
				w++
			}

			h := 1
		grow:
			for j+h < sv {
				for k := range w {
					if e.mask[i+k+(j+h)*su] != value {
						break grow
					}
				}
				h++
			}

			for l := range h {
				for k := range w {
					e.mask[i+k+(j+l)*su] = Air
				}
			}

			e.emitQuad(start, axis, u, v, slice, int32(i), int32(j), int32(w), int32(h), normal, value)
			i += w
		}
	}
}

func (e *GreedyQuadExtractor) emitQuad(start math.IVec3, axis, u, v int, slice, i, j, w, h int32, normal NormalDirection, value Voxel) {
	plane := slice
	if normal.Positive() {
		plane++
	}
	corner := func(du, dv int32) math.Vec3 {
		local := math.IVec3{}.WithAxis(axis, plane).WithAxis(u, i+du).WithAxis(v, j+dv)
		return e.model.VoxelCorner(start.Add(local))
	}

	q := QuadDescriptor{Normal: normal, Value: value}
	if normal.Positive() {
		q.Vertices = [4]math.Vec3{corner(0, 0), corner(w, 0), corner(w, h), corner(0, h)}
	} else {
		q.Vertices = [4]math.Vec3{corner(0, 0), corner(0, h), corner(w, h), corner(w, 0)}
	}
	e.quads = append(e.quads, q)
}
