package math

// IVec3 is an integer 3D coordinate, used for voxel and block grid indices.
type IVec3 struct {
	X, Y, Z int32
}

// Add returns v + other.
func (v IVec3) Add(other IVec3) IVec3 {
	return IVec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Sub returns v - other.
func (v IVec3) Sub(other IVec3) IVec3 {
	return IVec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// MulScalar returns v * s.
func (v IVec3) MulScalar(s int32) IVec3 {
	return IVec3{v.X * s, v.Y * s, v.Z * s}
}

// Min returns the component-wise minimum.
func (v IVec3) Min(other IVec3) IVec3 {
	return IVec3{min(v.X, other.X), min(v.Y, other.Y), min(v.Z, other.Z)}
}

// Max returns the component-wise maximum.
func (v IVec3) Max(other IVec3) IVec3 {
	return IVec3{max(v.X, other.X), max(v.Y, other.Y), max(v.Z, other.Z)}
}

// FloorDiv divides each component by d, rounding toward negative infinity.
func (v IVec3) FloorDiv(d int32) IVec3 {
	return IVec3{floorDiv(v.X, d), floorDiv(v.Y, d), floorDiv(v.Z, d)}
}

// CeilDiv divides each component by d, rounding toward positive infinity.
func (v IVec3) CeilDiv(d int32) IVec3 {
	return IVec3{-floorDiv(-v.X, d), -floorDiv(-v.Y, d), -floorDiv(-v.Z, d)}
}

// Mod returns each component modulo d, always in [0, d).
func (v IVec3) Mod(d int32) IVec3 {
	return IVec3{floorMod(v.X, d), floorMod(v.Y, d), floorMod(v.Z, d)}
}

// Vec3 converts to float.
func (v IVec3) Vec3() Vec3 {
	return Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}

// Axis returns component i (0=X, 1=Y, 2=Z).
func (v IVec3) Axis(i int) int32 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// WithAxis returns a copy of v with component i set to s.
func (v IVec3) WithAxis(i int, s int32) IVec3 {
	switch i {
	case 0:
		v.X = s
	case 1:
		v.Y = s
	default:
		v.Z = s
	}
	return v
}

// Empty reports whether the half-open range [v, end) contains no cells.
func (v IVec3) Empty(end IVec3) bool {
	return end.X <= v.X || end.Y <= v.Y || end.Z <= v.Z
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int32) int32 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
