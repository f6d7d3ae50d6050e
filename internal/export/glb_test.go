package export

import (
	"bytes"
	"slices"
	"testing"

	"github.com/qmuntal/gltf"

	"github.com/Faultbox/midgard-vox/internal/engine/voxmesh"
	"github.com/Faultbox/midgard-vox/pkg/math"
	"github.com/Faultbox/midgard-vox/pkg/vox"
)

func cubeMesh(at math.IVec3) *voxmesh.Mesh {
	m := vox.NewModel(math.Splat(1))
	m.SetVoxel(at, vox.Pack(vox.MaterialWalls, 0))
	e := vox.NewGreedyQuadExtractor(m)
	e.ExtractVoxelRange(at, at.Add(math.IVec3{X: 1, Y: 1, Z: 1}))
	return voxmesh.BuildMesh(e.Quads(), voxmesh.DefaultMaterials())
}

func TestCollector_DocumentHasNodePerSection(t *testing.T) {
	c := NewCollector()
	c.UploadSection(3, cubeMesh(math.IVec3{X: 3}))
	c.UploadSection(1, cubeMesh(math.IVec3{X: 1}))
	c.UploadSection(2, &voxmesh.Mesh{})

	if c.Len() != 2 {
		t.Fatalf("expected 2 sections, got %d", c.Len())
	}
	doc := c.Document()
	if len(doc.Meshes) != 2 || len(doc.Nodes) != 2 {
		t.Fatalf("expected 2 meshes and nodes, got %d and %d", len(doc.Meshes), len(doc.Nodes))
	}
	if doc.Nodes[0].Name != "section_1" || doc.Nodes[1].Name != "section_3" {
		t.Errorf("expected sections in order, got %s, %s", doc.Nodes[0].Name, doc.Nodes[1].Name)
	}
	if !slices.Equal(doc.Scenes[0].Nodes, []int{0, 1}) {
		t.Errorf("expected scene nodes [0 1], got %v", doc.Scenes[0].Nodes)
	}
	if m := doc.Nodes[1].Mesh; m == nil || *m != 1 {
		t.Errorf("expected second node to use mesh 1, got %v", m)
	}
	prim := doc.Meshes[1].Primitives[0]
	if prim.Material == nil || *prim.Material != 0 || prim.Indices == nil {
		t.Fatal("expected material 0 and an index accessor")
	}
	for _, attr := range []string{gltf.POSITION, gltf.NORMAL, gltf.COLOR_0} {
		if _, ok := prim.Attributes[attr]; !ok {
			t.Errorf("missing %s attribute", attr)
		}
	}
	if f := doc.Materials[0].PBRMetallicRoughness.BaseColorFactor; f == nil || *f != [4]float64{1, 1, 1, 1} {
		t.Errorf("expected white base colour, got %v", f)
	}
}

func TestCollector_WriteGLBDecodes(t *testing.T) {
	c := NewCollector()
	c.UploadSection(0, cubeMesh(math.IVec3{}))

	var buf bytes.Buffer
	if err := c.WriteGLB(&buf); err != nil {
		t.Fatalf("WriteGLB failed: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("glTF")) {
		t.Fatal("expected binary glTF magic")
	}

	var doc gltf.Document
	if err := gltf.NewDecoder(bytes.NewReader(buf.Bytes())).Decode(&doc); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(doc.Meshes) != 1 {
		t.Errorf("expected 1 mesh, got %d", len(doc.Meshes))
	}
	prim := doc.Meshes[0].Primitives[0]
	pos := doc.Accessors[prim.Attributes[gltf.POSITION]]
	if pos.Count != 24 {
		t.Errorf("expected 24 positions, got %d", pos.Count)
	}
}
