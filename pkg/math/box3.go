package math

// Box3 is an axis-aligned box in world space.
type Box3 struct {
	Min Vec3
	Max Vec3
}

// NewBox3 creates a box from two corners, ordering each axis.
func NewBox3(a, b Vec3) Box3 {
	return Box3{Min: a.Min(b), Max: a.Max(b)}
}

// Size returns the box extent on each axis.
func (b Box3) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Center returns the box midpoint.
func (b Box3) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Empty reports whether the box has no volume.
func (b Box3) Empty() bool {
	return b.Max.X <= b.Min.X || b.Max.Y <= b.Min.Y || b.Max.Z <= b.Min.Z
}

// Intersects reports whether the two boxes overlap with positive volume.
// Boxes that only share a face do not intersect.
func (b Box3) Intersects(other Box3) bool {
	return b.Min.X < other.Max.X && b.Max.X > other.Min.X &&
		b.Min.Y < other.Max.Y && b.Max.Y > other.Min.Y &&
		b.Min.Z < other.Max.Z && b.Max.Z > other.Min.Z
}

// Contains reports whether p lies in the half-open box [Min, Max).
func (b Box3) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X < b.Max.X &&
		p.Y >= b.Min.Y && p.Y < b.Max.Y &&
		p.Z >= b.Min.Z && p.Z < b.Max.Z
}

// Clamp returns b clamped into limit. The result may be empty.
func (b Box3) Clamp(limit Box3) Box3 {
	return Box3{
		Min: b.Min.Clamp(limit.Min, limit.Max),
		Max: b.Max.Clamp(limit.Min, limit.Max),
	}
}

// Expand returns b grown by d on every side.
func (b Box3) Expand(d Vec3) Box3 {
	return Box3{Min: b.Min.Sub(d), Max: b.Max.Add(d)}
}
