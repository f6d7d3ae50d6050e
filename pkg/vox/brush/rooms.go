package brush

import (
	gomath "math"

	"github.com/Faultbox/midgard-vox/pkg/math"
	"github.com/Faultbox/midgard-vox/pkg/vox"
)

// RoomGridConfig lays out a grid of walled rooms with doors, carpets and
// pillars inside bounds.
type RoomGridConfig struct {
	Bounds    math.Box3
	RoomSize  float32 // room pitch on X and Z
	Wall      float32 // wall thickness
	Ground    float32 // ground slab thickness
	DoorWidth float32
	DoorTop   float32
	Carpet    float32 // carpet thickness, inset by RoomSize/8
}

// DefaultRoomGridConfig returns 16 unit rooms sized for a 0.125 voxel grid.
func DefaultRoomGridConfig(bounds math.Box3) RoomGridConfig {
	return RoomGridConfig{
		Bounds:    bounds,
		RoomSize:  16,
		Wall:      0.5,
		Ground:    0.125,
		DoorWidth: 4,
		DoorTop:   6,
		Carpet:    0.125,
	}
}

func mod(a, b float32) float32 {
	m := float32(gomath.Mod(float64(a), float64(b)))
	if m < 0 {
		m += b
	}
	return m
}

// RoomGrid builds demo content: outer walls, an inner wall grid with doors,
// carpeted floors and a pillar at every second room corner.
func RoomGrid(cfg RoomGridConfig) Shape {
	b := cfg.Bounds
	size := b.Size()
	outerWall := vox.Pack(vox.MaterialOuterWall, 0)
	outer := []math.Box3{
		{Min: b.Min, Max: math.Vec3{X: b.Min.X + cfg.Wall, Y: b.Max.Y, Z: b.Max.Z}},
		{Min: math.Vec3{X: b.Max.X - cfg.Wall, Y: b.Min.Y, Z: b.Min.Z}, Max: b.Max},
		{Min: b.Min, Max: math.Vec3{X: b.Max.X, Y: b.Max.Y, Z: b.Min.Z + cfg.Wall}},
		{Min: math.Vec3{X: b.Min.X, Y: b.Min.Y, Z: b.Max.Z - cfg.Wall}, Max: b.Max},
		{Min: b.Min, Max: math.Vec3{X: b.Max.X, Y: b.Min.Y + cfg.Ground, Z: b.Max.Z}},
	}
	shapes := make([]Shape, 0, len(outer)+1)
	for _, o := range outer {
		shapes = append(shapes, Box(o, outerWall))
	}

	room := cfg.RoomSize
	doorLo := (room - cfg.DoorWidth) / 2
	doorHi := doorLo + cfg.DoorWidth
	inset := room / 8
	pillarAt := room * 1.5

	wall := vox.Pack(vox.MaterialWalls, 0)
	carpet := vox.Pack(vox.MaterialCarpet, 0)
	floor := vox.Pack(vox.MaterialFloor, 0)
	pillar := vox.Pack(vox.MaterialPillars, 0)

	interior := func(pos math.Vec3) (vox.Voxel, bool) {
		local := pos.Sub(b.Min)
		rx, rz := mod(local.X, room), mod(local.Z, room)
		y := local.Y

		if rx < cfg.Wall || rz < cfg.Wall {
			doorX := rz < cfg.Wall && rx >= doorLo && rx < doorHi
			doorZ := rx < cfg.Wall && rz >= doorLo && rz < doorHi
			inDoor := (doorX || doorZ) && y >= cfg.Ground && y < cfg.DoorTop
			if !inDoor {
				return wall, true
			}
		}

		if y >= cfg.Ground && y < cfg.Ground+cfg.Carpet {
			if rx >= inset && rx < room-inset && rz >= inset && rz < room-inset {
				return carpet, true
			}
			return floor, true
		}

		px, pz := mod(local.X, room*2), mod(local.Z, room*2)
		half := cfg.Wall
		if gomath.Abs(float64(px-pillarAt)) < float64(half) &&
			gomath.Abs(float64(pz-pillarAt)) < float64(half) && y < size.Y {
			return pillar, true
		}
		return vox.Air, false
	}
	return Union(append(shapes, interior)...)
}
