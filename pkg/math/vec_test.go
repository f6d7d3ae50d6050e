package math

import (
	"testing"
)

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3FloorCeil(t *testing.T) {
	v := Vec3{-0.5, 1.25, 3}
	if got, want := v.Floor(), (IVec3{-1, 1, 3}); got != want {
		t.Errorf("Floor() = %v, want %v", got, want)
	}
	if got, want := v.Ceil(), (IVec3{0, 2, 3}); got != want {
		t.Errorf("Ceil() = %v, want %v", got, want)
	}
}

func TestIVec3FloorDivMod(t *testing.T) {
	tests := []struct {
		in      IVec3
		div     IVec3
		mod     IVec3
		ceilDiv IVec3
	}{
		{IVec3{0, 31, 32}, IVec3{0, 0, 1}, IVec3{0, 31, 0}, IVec3{0, 1, 1}},
		{IVec3{-1, -32, -33}, IVec3{-1, -1, -2}, IVec3{31, 0, 31}, IVec3{0, -1, -1}},
		{IVec3{65, 64, 63}, IVec3{2, 2, 1}, IVec3{1, 0, 31}, IVec3{3, 2, 2}},
	}

	for _, tt := range tests {
		if got := tt.in.FloorDiv(32); got != tt.div {
			t.Errorf("%v.FloorDiv(32) = %v, want %v", tt.in, got, tt.div)
		}
		if got := tt.in.Mod(32); got != tt.mod {
			t.Errorf("%v.Mod(32) = %v, want %v", tt.in, got, tt.mod)
		}
		if got := tt.in.CeilDiv(32); got != tt.ceilDiv {
			t.Errorf("%v.CeilDiv(32) = %v, want %v", tt.in, got, tt.ceilDiv)
		}
	}
}

func TestBox3Intersects(t *testing.T) {
	a := NewBox3(Vec3{0, 0, 0}, Vec3{4, 4, 4})

	tests := []struct {
		name string
		b    Box3
		want bool
	}{
		{"overlap", NewBox3(Vec3{2, 2, 2}, Vec3{6, 6, 6}), true},
		{"inside", NewBox3(Vec3{1, 1, 1}, Vec3{2, 2, 2}), true},
		{"touching face", NewBox3(Vec3{4, 0, 0}, Vec3{8, 4, 4}), false},
		{"disjoint", NewBox3(Vec3{10, 10, 10}, Vec3{11, 11, 11}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Intersects(tt.b); got != tt.want {
				t.Errorf("Intersects() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBox3Clamp(t *testing.T) {
	limit := NewBox3(Vec3{0, 0, 0}, Vec3{128, 8, 128})
	b := NewBox3(Vec3{-5, 2, 100}, Vec3{10, 20, 200})
	got := b.Clamp(limit)
	want := Box3{Min: Vec3{0, 2, 100}, Max: Vec3{10, 8, 128}}
	if got != want {
		t.Errorf("Clamp() = %v, want %v", got, want)
	}
}

func TestNewBox3OrdersCorners(t *testing.T) {
	b := NewBox3(Vec3{4, 0, 2}, Vec3{1, 3, 1})
	if b.Min != (Vec3{1, 0, 1}) || b.Max != (Vec3{4, 3, 2}) {
		t.Errorf("NewBox3 did not order corners: %v", b)
	}
}
