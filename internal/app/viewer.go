package app

import (
	"context"
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vox/internal/config"
	"github.com/Faultbox/midgard-vox/internal/engine/camera"
	"github.com/Faultbox/midgard-vox/internal/engine/debug"
	"github.com/Faultbox/midgard-vox/internal/engine/input"
	"github.com/Faultbox/midgard-vox/internal/engine/lighting"
	"github.com/Faultbox/midgard-vox/internal/engine/renderer"
	"github.com/Faultbox/midgard-vox/internal/engine/window"
	"github.com/Faultbox/midgard-vox/internal/logger"
	"github.com/Faultbox/midgard-vox/pkg/math"
)

const title = "Midgard Vox"

// Viewer is the interactive frame loop around a Session. Every floor call it
// makes happens on the main thread.
type Viewer struct {
	cfg      *config.Config
	session  *Session
	running  bool
	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	camera   *camera.OrbitCamera
	shots    *debug.ScreenshotCapture
	lightDir math.Vec3

	width, height int
	dragging      bool
	captureNext   bool
}

// NewViewer opens the window and renderer for session.
func NewViewer(cfg *config.Config, session *Session) (*Viewer, error) {
	logger.Info("initializing viewer",
		zap.Int("width", cfg.Graphics.Width),
		zap.Int("height", cfg.Graphics.Height),
	)

	v := &Viewer{
		cfg:      cfg,
		session:  session,
		shots:    debug.NewScreenshotCapture(cfg.Graphics.ScreenshotDir, "voxview"),
		lightDir: lighting.SunDirection(cfg.Graphics.SunLongitude, cfg.Graphics.SunLatitude),
	}

	// Create window (this also creates OpenGL context)
	var err error
	v.window, err = window.New(window.Config{
		Title:      title,
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	v.width, v.height = v.window.GetSize()

	// Create renderer (AFTER window, since OpenGL context must exist)
	v.renderer, err = renderer.New(renderer.Config{
		Width:       v.width,
		Height:      v.height,
		FogDistance: cfg.Graphics.FogDistance,
		Wireframe:   cfg.Graphics.Wireframe,
	})
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	v.input = input.New()
	v.camera = camera.NewOrbitCamera()
	v.camera.FitToBounds(session.Floor.Bounds())

	logger.Info("viewer initialized")
	return v, nil
}

// Run starts the main loop. It returns when the window closes or ctx ends.
func (v *Viewer) Run(ctx context.Context) error {
	v.running = true

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	logger.Info("starting frame loop")

	for v.running {
		if ctx.Err() != nil {
			break
		}

		now := time.Now()
		dt := float32(now.Sub(lastTime).Seconds())
		lastTime = now

		if v.input.Update() {
			v.running = false
			break
		}
		v.handleEvents()
		v.handleMovement(dt)

		f := v.session.Floor
		f.Update()
		f.RebuildDirtyMeshes(v.renderer)

		v.renderer.Begin(renderer.Frame{
			View:       v.camera.ViewMatrix(),
			Projection: v.camera.ProjectionMatrix(v.renderer.Aspect()),
			CameraPos:  v.camera.Position(),
			LightDir:   v.lightDir,
		})
		f.Render(v.renderer)
		v.renderer.End()

		if v.captureNext {
			v.captureNext = false
			v.capture()
		}

		v.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			v.window.SetTitle(fmt.Sprintf("%s - %d fps - %s", title, frameCount, v.status()))
			logger.Debug("fps", zap.Int("count", frameCount), zap.Int("gpu_bytes", v.renderer.GPUBytes()))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

func (v *Viewer) status() string {
	f := v.session.Floor
	switch {
	case f.Saving():
		return "saving"
	case f.Loading():
		return "loading"
	case f.WritesPending() > 0:
		return fmt.Sprintf("%d writes pending", f.WritesPending())
	}
	if err := f.LastPersistError(); err != nil {
		return "last save/load failed"
	}
	return "ready"
}

func (v *Viewer) handleEvents() {
	for _, event := range v.input.Events() {
		switch event.Type {
		case input.EventWindowResize:
			v.width, v.height = v.window.GetSize()
			v.renderer.Resize(v.width, v.height)

		case input.EventKeyDown:
			v.handleKey(event.Key)

		case input.EventMouseDown:
			switch event.Button {
			case sdl.BUTTON_LEFT:
				v.carveAt(event.MouseX, event.MouseY)
			case sdl.BUTTON_RIGHT:
				v.dragging = true
			}

		case input.EventMouseUp:
			if event.Button == sdl.BUTTON_RIGHT {
				v.dragging = false
			}

		case input.EventMouseMove:
			if v.dragging {
				v.camera.HandleDrag(float32(event.DeltaX), float32(event.DeltaY))
			}

		case input.EventMouseWheel:
			v.camera.HandleZoom(event.Wheel)
		}
	}
}

func (v *Viewer) handleKey(key sdl.Scancode) {
	f := v.session.Floor
	path := v.cfg.Persistence.SavePath

	switch key {
	case sdl.SCANCODE_ESCAPE:
		v.running = false
	case sdl.SCANCODE_S:
		if f.Saving() || f.Loading() {
			logger.Warn("save ignored, persistence in progress")
			return
		}
		logger.Info("save requested", zap.String("path", path))
		f.SaveNow(path)
	case sdl.SCANCODE_L:
		if err := f.LoadFile(path); err != nil {
			logger.Warn("load ignored", zap.Error(err))
			return
		}
		logger.Info("load requested", zap.String("path", path))
	case sdl.SCANCODE_F:
		v.renderer.ToggleWireframe()
	case sdl.SCANCODE_HOME:
		v.camera.FitToBounds(f.Bounds())
	case sdl.SCANCODE_F12:
		v.captureNext = true
	}
}

// capture saves the frame just rendered, before the buffer swap.
func (v *Viewer) capture() {
	pixels, w, h := v.renderer.ReadPixels()
	path, err := v.shots.CaptureFromPixels(pixels, w, h)
	if err != nil {
		logger.Warn("screenshot failed", zap.Error(err))
		return
	}
	logger.Info("screenshot saved", zap.String("path", path))
}

// handleMovement pans with the arrow keys and Page Up/Down.
func (v *Viewer) handleMovement(dt float32) {
	var forward, right, up float32
	if v.input.IsKeyDown(sdl.SCANCODE_UP) {
		forward++
	}
	if v.input.IsKeyDown(sdl.SCANCODE_DOWN) {
		forward--
	}
	if v.input.IsKeyDown(sdl.SCANCODE_RIGHT) {
		right++
	}
	if v.input.IsKeyDown(sdl.SCANCODE_LEFT) {
		right--
	}
	if v.input.IsKeyDown(sdl.SCANCODE_PAGEUP) {
		up++
	}
	if v.input.IsKeyDown(sdl.SCANCODE_PAGEDOWN) {
		up--
	}
	if forward != 0 || right != 0 || up != 0 {
		scale := dt * 60
		v.camera.HandleMovement(forward*scale, right*scale, up*scale)
	}
}

func (v *Viewer) carveAt(x, y int) {
	ray := v.camera.ScreenRay(float32(x), float32(y), float32(v.width), float32(v.height))
	end := ray.At(v.camera.Far)
	if _, ok := v.session.Carve(ray.Origin, end, v.cfg.Graphics.BrushRadius); !ok {
		logger.Debug("carve missed", zap.Int("x", x), zap.Int("y", y))
	}
}

// Close releases the renderer and window. The session is left open.
func (v *Viewer) Close() {
	logger.Info("closing viewer")

	if v.renderer != nil {
		v.renderer.Close()
	}
	if v.window != nil {
		v.window.Close()
	}
}
