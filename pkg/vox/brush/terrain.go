package brush

import (
	"github.com/aquilax/go-perlin"

	"github.com/Faultbox/midgard-vox/pkg/math"
	"github.com/Faultbox/midgard-vox/pkg/vox"
)

// HeightfieldConfig controls Heightfield terrain generation.
type HeightfieldConfig struct {
	Seed       int64
	Octaves    int32
	BaseHeight float32 // world height where noise is zero
	Amplitude  float32 // world height of noise extremes
	Scale      float32 // noise frequency per world unit
	Material   uint8   // body material
	Top        uint8   // material of the top voxel layer
	TopDepth   float32 // thickness of the top layer
}

// DefaultHeightfieldConfig returns gentle hills of floor material over walls.
func DefaultHeightfieldConfig() HeightfieldConfig {
	return HeightfieldConfig{
		Seed:       1,
		Octaves:    3,
		BaseHeight: 2,
		Amplitude:  1.5,
		Scale:      0.05,
		Material:   vox.MaterialWalls,
		Top:        vox.MaterialFloor,
		TopDepth:   0.25,
	}
}

// Heightfield fills columns up to a Perlin noise surface and clears
// everything above it.
func Heightfield(cfg HeightfieldConfig) Shape {
	octaves := cfg.Octaves
	if octaves <= 0 {
		octaves = 3
	}
	noise := perlin.NewPerlin(2, 2, octaves, cfg.Seed)
	body := vox.Pack(cfg.Material, 0)
	top := vox.Pack(cfg.Top, 0)

	return func(pos math.Vec3) (vox.Voxel, bool) {
		n := noise.Noise2D(float64(pos.X*cfg.Scale), float64(pos.Z*cfg.Scale))
		height := cfg.BaseHeight + float32(n)*cfg.Amplitude
		switch {
		case pos.Y > height:
			return vox.Air, true
		case pos.Y > height-cfg.TopDepth:
			return top, true
		default:
			return body, true
		}
	}
}
