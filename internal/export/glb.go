// Package export writes section geometry to glTF binary files.
package export

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/midgard-vox/internal/engine/voxmesh"
	"github.com/Faultbox/midgard-vox/pkg/vox"
)

// Collector gathers uploaded section meshes. It satisfies floor.MeshUploader
// so a headless floor can be drained into it.
type Collector struct {
	meshes map[int]*voxmesh.Mesh
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{meshes: make(map[int]*voxmesh.Mesh)}
}

// UploadSection records the latest mesh of a section. Empty meshes drop it.
func (c *Collector) UploadSection(index int, mesh *voxmesh.Mesh) {
	if mesh.Empty() {
		delete(c.meshes, index)
		return
	}
	c.meshes[index] = mesh
}

// Len returns the number of non-empty sections collected.
func (c *Collector) Len() int {
	return len(c.meshes)
}

// Document builds a glTF document with one mesh node per collected section,
// in section order.
func (c *Collector) Document() *gltf.Document {
	doc := gltf.NewDocument()
	doc.Asset.Generator = "midgard-vox"

	// Colours come from the per-vertex COLOR_0 attribute.
	pbr := &gltf.PBRMetallicRoughness{BaseColorFactor: &[4]float64{1, 1, 1, 1}, MetallicFactor: gltf.Float(0), RoughnessFactor: gltf.Float(1)}
	doc.Materials = []*gltf.Material{{PBRMetallicRoughness: pbr, AlphaMode: gltf.AlphaOpaque}}

	indices := make([]int, 0, len(c.meshes))
	for i := range c.meshes {
		indices = append(indices, i)
	}
	slices.Sort(indices)

	for _, i := range indices {
		mesh := c.meshes[i]
		positions := make([][3]float32, len(mesh.Vertices))
		normals := make([][3]float32, len(mesh.Vertices))
		colours := make([][4]float32, len(mesh.Vertices))
		for vi, v := range mesh.Vertices {
			positions[vi] = v.Position
			normals[vi] = vox.NormalDirection(v.Normal).Vector().Array()
			colours[vi] = v.Colour
		}

		posAccessor := modeler.WritePosition(doc, positions)
		normalAccessor := modeler.WriteNormal(doc, normals)
		colourAccessor := modeler.WriteColor(doc, colours)
		indicesAccessor := modeler.WriteIndices(doc, mesh.Indices)

		prim := &gltf.Primitive{
			Attributes: gltf.PrimitiveAttributes{
				gltf.POSITION: posAccessor,
				gltf.NORMAL:   normalAccessor,
				gltf.COLOR_0:  colourAccessor,
			},
			Indices:  gltf.Index(indicesAccessor),
			Material: gltf.Index(0),
		}
		name := fmt.Sprintf("section_%d", i)
		doc.Meshes = append(doc.Meshes, &gltf.Mesh{Name: name, Primitives: []*gltf.Primitive{prim}})
		doc.Nodes = append(doc.Nodes, &gltf.Node{Name: name, Mesh: gltf.Index(len(doc.Meshes) - 1)})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, len(doc.Nodes)-1)
	}
	return doc
}

// WriteGLB encodes the collected sections as a binary glTF to w.
func (c *Collector) WriteGLB(w io.Writer) error {
	enc := gltf.NewEncoder(w)
	enc.AsBinary = true
	if err := enc.Encode(c.Document()); err != nil {
		return fmt.Errorf("encoding glb: %w", err)
	}
	return nil
}

// SaveGLB writes the collected sections to path.
func (c *Collector) SaveGLB(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := c.WriteGLB(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
