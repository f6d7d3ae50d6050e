package picking

import (
	gomath "math"

	"github.com/Faultbox/midgard-vox/pkg/math"
)

// CellFunc is called for every grid cell a ray visits.
// Returning false stops the march.
type CellFunc func(cell math.IVec3) bool

// Raymarch walks the grid of cells of size voxelSize along the segment from
// start to end (3D DDA). Every cell the segment passes through is visited exactly
// once in order along the ray, starting with the cell that contains start.
// Cell (i,j,k) covers [i*size, (i+1)*size) on each axis.
func Raymarch(start, end, voxelSize math.Vec3, fn CellFunc) {
	cell := start.Div(voxelSize).Floor()
	if !fn(cell) {
		return
	}

	delta := end.Sub(start)
	length := delta.Length()
	if length == 0 {
		return
	}
	dir := delta.Scale(1 / length)

	var (
		step   [3]int32
		tMax   [3]float32
		tDelta [3]float32
	)
	inf := float32(gomath.Inf(1))
	for axis := range 3 {
		d := dir.Axis(axis)
		size := voxelSize.Axis(axis)
		c := float32(cell.Axis(axis))
		o := start.Axis(axis)
		switch {
		case d > 0:
			step[axis] = 1
			tDelta[axis] = size / d
			tMax[axis] = ((c+1)*size - o) / d
		case d < 0:
			step[axis] = -1
			tDelta[axis] = -size / d
			tMax[axis] = (c*size - o) / d
		default:
			tDelta[axis] = inf
			tMax[axis] = inf
		}
	}

	// One step per boundary crossed, plus slack for float error at the end.
	endCell := end.Div(voxelSize).Floor()
	span := endCell.Sub(cell)
	maxSteps := abs32(span.X) + abs32(span.Y) + abs32(span.Z) + 3

	for range maxSteps {
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		if tMax[axis] > length {
			return
		}
		cell = cell.WithAxis(axis, cell.Axis(axis)+step[axis])
		tMax[axis] += tDelta[axis]
		if !fn(cell) {
			return
		}
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
