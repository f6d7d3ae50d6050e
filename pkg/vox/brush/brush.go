// Package brush provides reusable voxel writers for Model area iteration.
//
// A Shape decides the voxel for a world position. It can be applied per voxel
// range (Area) or per clump (Clumps), and is safe to run from several
// goroutines at once as long as they write disjoint ranges.
package brush

import (
	"github.com/Faultbox/midgard-vox/pkg/math"
	"github.com/Faultbox/midgard-vox/pkg/vox"
)

// Shape returns the voxel to store at world position pos. ok=false leaves the
// existing voxel unchanged.
type Shape func(pos math.Vec3) (v vox.Voxel, ok bool)

// Area adapts the shape to a range writer evaluated at voxel centers.
func (s Shape) Area() vox.AreaFunc {
	return func(p *vox.AreaParams) {
		p.ForEach(func(x, y, z int32) {
			if v, ok := s(p.VoxelPosition(x, y, z)); ok {
				p.WriteVoxel(x, y, z, v)
			}
		})
	}
}

// Clumps adapts the shape to a clump callback for Model.IterateArea.
func (s Shape) Clumps() vox.ClumpFunc {
	return func(acc vox.ClumpAccessor, clumpOrigin, voxelSize, voxelCenter math.Vec3) {
		for z := range vox.ClumpSize {
			for y := range vox.ClumpSize {
				for x := range vox.ClumpSize {
					offset := math.Vec3{X: float32(x), Y: float32(y), Z: float32(z)}.Mul(voxelSize)
					if v, ok := s(clumpOrigin.Add(offset).Add(voxelCenter)); ok {
						acc.SetVoxel(x, y, z, v)
					}
				}
			}
		}
	}
}

// Fill writes v everywhere.
func Fill(v vox.Voxel) Shape {
	return func(math.Vec3) (vox.Voxel, bool) { return v, true }
}

// Box writes v where the voxel center lies inside b.
func Box(b math.Box3, v vox.Voxel) Shape {
	return func(pos math.Vec3) (vox.Voxel, bool) {
		return v, b.Contains(pos)
	}
}

// Sphere writes v where the voxel center lies within radius of center.
// Use vox.Air to carve.
func Sphere(center math.Vec3, radius float32, v vox.Voxel) Shape {
	r2 := radius * radius
	return func(pos math.Vec3) (vox.Voxel, bool) {
		d := pos.Sub(center)
		return v, d.Dot(d) <= r2
	}
}

// Union tries each shape in order and uses the first that writes.
func Union(shapes ...Shape) Shape {
	return func(pos math.Vec3) (vox.Voxel, bool) {
		for _, s := range shapes {
			if v, ok := s(pos); ok {
				return v, true
			}
		}
		return vox.Air, false
	}
}

// SphereBounds returns the box covering a sphere, for use as ModifyData bounds.
func SphereBounds(center math.Vec3, radius float32) math.Box3 {
	r := math.Splat(radius)
	return math.Box3{Min: center.Sub(r), Max: center.Add(r)}
}
