// Package app wires the floor, job system and viewer into a running program.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vox/internal/config"
	"github.com/Faultbox/midgard-vox/internal/engine/voxmesh"
	"github.com/Faultbox/midgard-vox/internal/floor"
	"github.com/Faultbox/midgard-vox/internal/jobs"
	"github.com/Faultbox/midgard-vox/internal/logger"
	"github.com/Faultbox/midgard-vox/pkg/math"
	"github.com/Faultbox/midgard-vox/pkg/vox"
	"github.com/Faultbox/midgard-vox/pkg/vox/brush"
)

// Session owns a floor and the workers that edit it. It has no window and
// is shared by the viewer and the command line tool.
type Session struct {
	cfg     *config.Config
	Jobs    *jobs.System
	Floor   *floor.Floor
	Metrics *floor.Metrics
}

// NewSession builds the job system and floor described by cfg. reg may be nil.
func NewSession(cfg *config.Config, reg prometheus.Registerer) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	js := jobs.New(cfg.Jobs.Workers)
	metrics := floor.NewMetrics(reg)
	f := floor.New(cfg.FloorSettings(), js, voxmesh.DefaultMaterials(), metrics)

	logger.Info("session created",
		zap.Stringer("stats", f.Stats()),
		zap.Int("workers", js.Workers()),
	)
	return &Session{cfg: cfg, Jobs: js, Floor: f, Metrics: metrics}, nil
}

// Close stops the workers. Pending jobs still run.
func (s *Session) Close() {
	s.Jobs.Close()
}

// ContentShape returns the writer for the configured initial content, or
// false for an empty floor.
func (s *Session) ContentShape() (brush.Shape, bool) {
	switch s.cfg.Floor.Content {
	case "rooms", "":
		return brush.RoomGrid(brush.DefaultRoomGridConfig(s.Floor.Bounds())), true
	case "terrain":
		t := s.cfg.Terrain
		hc := brush.DefaultHeightfieldConfig()
		hc.Seed = t.Seed
		hc.Octaves = t.Octaves
		hc.BaseHeight = t.BaseHeight
		hc.Amplitude = t.Amplitude
		hc.Scale = t.Scale
		return brush.Heightfield(hc), true
	default:
		return nil, false
	}
}

// Populate writes the configured initial content over the whole floor and
// returns the number of section jobs submitted.
func (s *Session) Populate() int {
	shape, ok := s.ContentShape()
	if !ok {
		return 0
	}
	n := s.Floor.ModifyData(s.Floor.Bounds(), shape.Area())
	logger.Info("populating floor", zap.String("content", s.cfg.Floor.Content), zap.Int("jobs", n))
	return n
}

// Carve casts the segment and clears a sphere of radius around the first
// solid voxel hit. Returns the hit.
func (s *Session) Carve(start, end math.Vec3, radius float32) (floor.Hit, bool) {
	hit, ok := s.Floor.Raycast(start, end)
	if !ok {
		return hit, false
	}
	bounds := brush.SphereBounds(hit.Position, radius)
	n := s.Floor.ModifyData(bounds, brush.Sphere(hit.Position, radius, vox.Air).Area())
	logger.Debug("carve",
		zap.Any("voxel", hit.Voxel),
		zap.Uint8("material", hit.Value.Material()),
		zap.Int("jobs", n),
	)
	return hit, true
}

// Idle reports whether no writes, saves or loads are outstanding.
func (s *Session) Idle() bool {
	f := s.Floor
	return f.WritesPending() == 0 && !f.Saving() && !f.Loading()
}

// Settle drives Update until every write, save and load has finished,
// handing rebuilt meshes to uploader (which may be nil).
func (s *Session) Settle(ctx context.Context, uploader floor.MeshUploader) error {
	for {
		s.Floor.Update()
		if err := s.Jobs.WaitIdle(ctx); err != nil {
			return fmt.Errorf("waiting for jobs: %w", err)
		}
		s.Floor.RebuildDirtyMeshes(uploader)
		if s.Idle() {
			return nil
		}
	}
}

// SaveAndWait saves the floor to path and blocks until the save completes.
func (s *Session) SaveAndWait(ctx context.Context, path string) error {
	if err := s.Settle(ctx, nil); err != nil {
		return err
	}
	s.Floor.SaveNow(path)
	if err := s.Settle(ctx, nil); err != nil {
		return err
	}
	return s.Floor.LastPersistError()
}

// LoadAndWait loads path into the floor and blocks until every section has
// been remeshed.
func (s *Session) LoadAndWait(ctx context.Context, path string, uploader floor.MeshUploader) error {
	if err := s.Settle(ctx, uploader); err != nil {
		return err
	}
	if err := s.Floor.LoadFile(path); err != nil {
		return err
	}
	if err := s.Settle(ctx, uploader); err != nil {
		return err
	}
	return s.Floor.LastPersistError()
}
