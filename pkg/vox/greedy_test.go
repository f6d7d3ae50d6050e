package vox

import (
	"testing"

	"github.com/Faultbox/midgard-vox/pkg/math"
)

func fillRange(m *Model, start, end math.IVec3, v Voxel) {
	m.WriteVoxelRange(start, end, func(p *AreaParams) {
		p.ForEach(func(x, y, z int32) {
			p.WriteVoxel(x, y, z, v)
		})
	})
}

func countByNormal(quads []QuadDescriptor) map[NormalDirection]int {
	counts := make(map[NormalDirection]int)
	for _, q := range quads {
		counts[q.Normal]++
	}
	return counts
}

func TestGreedy_FilledBoxOneQuadPerFace(t *testing.T) {
	m := unitModel()
	fillRange(m, math.IVec3{}, math.IVec3{X: 4, Y: 4, Z: 4}, Pack(1, 0))

	e := NewGreedyQuadExtractor(m)
	e.ExtractQuads(box(0, 0, 0, 4, 4, 4))

	if !e.Extracted() {
		t.Fatal("expected Extracted after ExtractQuads")
	}
	quads := e.Quads()
	if len(quads) != 6 {
		t.Fatalf("expected 6 quads, got %d", len(quads))
	}
	for n, c := range countByNormal(quads) {
		if c != 1 {
			t.Errorf("normal %s: expected 1 quad, got %d", n, c)
		}
	}
	for _, q := range quads {
		size := q.Vertices[2].Sub(q.Vertices[0])
		if size.Axis(q.Normal.Axis()) != 0 {
			t.Errorf("quad %s is not planar", q.Normal)
		}
		if q.Value != Pack(1, 0) {
			t.Errorf("quad %s: expected value 1, got %d", q.Normal, q.Value)
		}
	}
}

func TestGreedy_WindingFacesOutward(t *testing.T) {
	m := unitModel()
	fillRange(m, math.IVec3{X: 2, Y: 2, Z: 2}, math.IVec3{X: 5, Y: 3, Z: 4}, Pack(1, 0))

	e := NewGreedyQuadExtractor(m)
	e.ExtractVoxelRange(math.IVec3{}, math.IVec3{X: 8, Y: 8, Z: 8})
	for _, q := range e.Quads() {
		a := q.Vertices[1].Sub(q.Vertices[0])
		b := q.Vertices[2].Sub(q.Vertices[0])
		if a.Cross(b).Dot(q.Normal.Vector()) <= 0 {
			t.Errorf("quad %s is wound inward: %v", q.Normal, q.Vertices)
		}
	}
}

func TestGreedy_DifferentValuesDoNotMerge(t *testing.T) {
	m := unitModel()
	m.SetVoxel(math.IVec3{X: 0}, Pack(1, 0))
	m.SetVoxel(math.IVec3{X: 1}, Pack(2, 0))

	e := NewGreedyQuadExtractor(m)
	e.ExtractVoxelRange(math.IVec3{}, math.IVec3{X: 2, Y: 1, Z: 1})
	counts := countByNormal(e.Quads())

	// +Y, -Y, +Z, -Z each see two materials; the shared X face is hidden
	for _, n := range []NormalDirection{YAxisNegative, YAxisPositive, ZAxisNegative, ZAxisPositive} {
		if counts[n] != 2 {
			t.Errorf("normal %s: expected 2 quads, got %d", n, counts[n])
		}
	}
	if counts[XAxisNegative] != 1 || counts[XAxisPositive] != 1 {
		t.Errorf("expected one quad per X face, got %v", counts)
	}
}

func TestGreedy_EmptyRegionIsExtracted(t *testing.T) {
	m := unitModel()
	e := NewGreedyQuadExtractor(m)
	if e.Extracted() {
		t.Fatal("new extractor should not report Extracted")
	}
	e.ExtractQuads(box(0, 0, 0, 16, 16, 16))
	if !e.Extracted() {
		t.Error("expected Extracted on empty region")
	}
	if len(e.Quads()) != 0 {
		t.Errorf("expected no quads, got %d", len(e.Quads()))
	}
}

func TestGreedy_SealBounds(t *testing.T) {
	m := unitModel()
	fillRange(m, math.IVec3{}, math.IVec3{X: 8, Y: 8, Z: 8}, Pack(1, 0))

	e := NewGreedyQuadExtractor(m)
	e.ExtractVoxelRange(math.IVec3{}, math.IVec3{X: 4, Y: 4, Z: 4})
	if got := len(e.Quads()); got != 3 {
		t.Errorf("open bounds: expected 3 quads, got %d", got)
	}

	e.SealBounds = true
	e.ExtractVoxelRange(math.IVec3{}, math.IVec3{X: 4, Y: 4, Z: 4})
	if got := len(e.Quads()); got != 6 {
		t.Errorf("sealed bounds: expected 6 quads, got %d", got)
	}
}

func TestGreedy_QuadCornersUseVoxelSize(t *testing.T) {
	m := NewModel(math.Splat(0.5))
	m.SetVoxel(math.IVec3{X: 1, Y: 1, Z: 1}, Pack(1, 0))

	e := NewGreedyQuadExtractor(m)
	e.ExtractQuads(box(0, 0, 0, 2, 2, 2))
	for _, q := range e.Quads() {
		if q.Normal != XAxisPositive {
			continue
		}
		for _, v := range q.Vertices {
			if v.X != 1.0 {
				t.Errorf("+X face should lie on x=1.0, got %v", v)
			}
		}
		return
	}
	t.Error("no +X quad found")
}

func TestNormalDirection_String(t *testing.T) {
	if XAxisNegative.String() != "-X" || ZAxisPositive.String() != "+Z" {
		t.Errorf("unexpected names %s %s", XAxisNegative, ZAxisPositive)
	}
}
