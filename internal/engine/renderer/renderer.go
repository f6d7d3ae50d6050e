// Package renderer uploads and draws voxel section meshes with OpenGL.
package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vox/internal/engine/shader"
	"github.com/Faultbox/midgard-vox/internal/engine/voxmesh"
	"github.com/Faultbox/midgard-vox/internal/logger"
	"github.com/Faultbox/midgard-vox/pkg/math"
)

// Config holds renderer configuration.
type Config struct {
	Width       int
	Height      int
	Ambient     float32
	FogDistance float32
	Wireframe   bool
}

// Frame carries the per-frame camera state.
type Frame struct {
	View       math.Mat4
	Projection math.Mat4
	CameraPos  math.Vec3
	LightDir   math.Vec3
}

// sectionBuffers is the GPU copy of one section mesh.
type sectionBuffers struct {
	vao, vbo, ebo uint32
	indexCount    int32
	bytes         int
}

// Renderer handles all OpenGL rendering.
type Renderer struct {
	config  Config
	program *shader.Program

	sections map[int]*sectionBuffers
	gpuBytes int
}

// New creates a new renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)
	gl.FrontFace(gl.CCW)
	gl.ClearColor(0.1, 0.1, 0.15, 1.0)

	program, err := shader.NewProgram(voxelVertexShader, voxelFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("failed to create voxel shader: %w", err)
	}

	if cfg.Ambient <= 0 {
		cfg.Ambient = 0.35
	}
	if cfg.FogDistance <= 0 {
		cfg.FogDistance = 400
	}

	r := &Renderer{
		config:   cfg,
		program:  program,
		sections: make(map[int]*sectionBuffers),
	}
	r.Resize(cfg.Width, cfg.Height)
	return r, nil
}

// Close cleans up renderer resources.
func (r *Renderer) Close() {
	logger.Info("closing renderer", zap.Int("sections", len(r.sections)))
	for index := range r.sections {
		r.release(index)
	}
	r.program.Delete()
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	logger.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// Aspect returns the viewport aspect ratio.
func (r *Renderer) Aspect() float32 {
	if r.config.Height == 0 {
		return 1
	}
	return float32(r.config.Width) / float32(r.config.Height)
}

// ToggleWireframe flips polygon fill mode.
func (r *Renderer) ToggleWireframe() {
	r.config.Wireframe = !r.config.Wireframe
}

// GPUBytes returns the bytes held in section buffers.
func (r *Renderer) GPUBytes() int {
	return r.gpuBytes
}

// Begin clears the frame and binds the voxel program.
func (r *Renderer) Begin(f Frame) {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	if r.config.Wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	} else {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}

	r.program.Use()
	r.program.SetMat4("uView", f.View)
	r.program.SetMat4("uProjection", f.Projection)
	r.program.SetVec3("uLightDir", f.LightDir)
	r.program.SetVec3("uCameraPos", f.CameraPos)
	r.program.SetFloat("uAmbient", r.config.Ambient)
	r.program.SetFloat("uFogDistance", r.config.FogDistance)
}

// End finishes the current frame.
func (r *Renderer) End() {
	gl.BindVertexArray(0)
}

// ReadPixels returns the current back buffer as bottom-up RGBA rows.
func (r *Renderer) ReadPixels() ([]byte, int, int) {
	w, h := r.config.Width, r.config.Height
	pixels := make([]byte, w*h*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&pixels[0]))
	return pixels, w, h
}

// UploadSection replaces the GPU buffers of a section. An empty mesh frees them.
func (r *Renderer) UploadSection(index int, mesh *voxmesh.Mesh) {
	if mesh.Empty() {
		r.release(index)
		return
	}

	buf, ok := r.sections[index]
	if !ok {
		buf = &sectionBuffers{}
		gl.GenVertexArrays(1, &buf.vao)
		gl.GenBuffers(1, &buf.vbo)
		gl.GenBuffers(1, &buf.ebo)
		r.sections[index] = buf

		gl.BindVertexArray(buf.vao)
		gl.BindBuffer(gl.ARRAY_BUFFER, buf.vbo)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, buf.ebo)
		setupVertexLayout()
	} else {
		gl.BindVertexArray(buf.vao)
		gl.BindBuffer(gl.ARRAY_BUFFER, buf.vbo)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, buf.ebo)
	}

	gl.BufferData(gl.ARRAY_BUFFER, len(mesh.Vertices)*voxmesh.VertexSize, unsafe.Pointer(&mesh.Vertices[0]), gl.DYNAMIC_DRAW)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(mesh.Indices)*4, unsafe.Pointer(&mesh.Indices[0]), gl.DYNAMIC_DRAW)
	gl.BindVertexArray(0)

	r.gpuBytes += mesh.ByteSize() - buf.bytes
	buf.bytes = mesh.ByteSize()
	buf.indexCount = int32(len(mesh.Indices))

	logger.Debug("section uploaded",
		zap.Int("section", index),
		zap.Int("vertices", len(mesh.Vertices)),
		zap.Int("bytes", buf.bytes),
	)
}

// DrawSection draws the uploaded buffers of a section.
func (r *Renderer) DrawSection(index int) {
	buf, ok := r.sections[index]
	if !ok {
		return
	}
	gl.BindVertexArray(buf.vao)
	gl.DrawElements(gl.TRIANGLES, buf.indexCount, gl.UNSIGNED_INT, nil)
}

func (r *Renderer) release(index int) {
	buf, ok := r.sections[index]
	if !ok {
		return
	}
	gl.DeleteVertexArrays(1, &buf.vao)
	gl.DeleteBuffers(1, &buf.vbo)
	gl.DeleteBuffers(1, &buf.ebo)
	r.gpuBytes -= buf.bytes
	delete(r.sections, index)
}

// setupVertexLayout describes voxmesh.Vertex to the bound VAO.
func setupVertexLayout() {
	var v voxmesh.Vertex
	stride := int32(voxmesh.VertexSize)

	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, unsafe.Offsetof(v.Position))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 4, gl.FLOAT, false, stride, unsafe.Offsetof(v.Colour))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(2, 3, gl.FLOAT, false, stride, unsafe.Offsetof(v.UV))
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointerWithOffset(3, 1, gl.FLOAT, false, stride, unsafe.Offsetof(v.Normal))
	gl.EnableVertexAttribArray(3)
}
