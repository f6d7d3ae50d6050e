// Package floor coordinates concurrent edits, remeshing and persistence of a
// sectioned voxel volume.
//
// A Floor splits its volume into full-height Sections on an X/Z grid. Every
// mutation is fanned out as one job per touched Section. A job owns its
// Section's voxels while it holds the Section's write gate; a job that finds
// the gate taken resubmits itself instead of blocking. The job that finishes
// the last pending write of a Section rebuilds that Section's geometry and
// posts it to an inbox drained by the owning thread once per frame.
package floor

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vox/internal/engine/picking"
	"github.com/Faultbox/midgard-vox/internal/engine/voxmesh"
	"github.com/Faultbox/midgard-vox/internal/jobs"
	"github.com/Faultbox/midgard-vox/internal/logger"
	"github.com/Faultbox/midgard-vox/pkg/formats"
	"github.com/Faultbox/midgard-vox/pkg/math"
	"github.com/Faultbox/midgard-vox/pkg/vox"
)

// ErrPersistInProgress is returned by LoadFile while a save or load is running.
var ErrPersistInProgress = errors.New("floor: save or load already in progress")

// Submitter runs closures on worker goroutines. *jobs.System implements it.
type Submitter interface {
	Submit(label string, fn jobs.Func) error
}

// MeshUploader receives rebuilt section geometry on the owning thread.
type MeshUploader interface {
	UploadSection(index int, mesh *voxmesh.Mesh)
}

// Drawer draws previously uploaded section geometry.
type Drawer interface {
	DrawSection(index int)
}

// Config describes the floor volume. The volume spans [0, Size) in world units.
type Config struct {
	Size            math.Vec3
	SectionsPerSide int
	VoxelSize       float32
	// Compress wraps saved files in a zstd stream.
	Compress bool
}

// Floor owns the voxel model, its sections and the persistence state.
type Floor struct {
	cfg       Config
	jobs      Submitter
	materials *voxmesh.MaterialSet
	metrics   *Metrics

	model       *vox.Model
	totalBounds math.Box3
	voxelEnd    math.IVec3
	sections    []*Section
	perSide     int
	// split points of the voxel range, len perSide+1
	splitX, splitZ []int32

	totalWritesPending atomic.Int32
	saving             atomic.Bool
	loading            atomic.Bool
	saveRequested      atomic.Bool
	loadRequested      atomic.Bool

	// owning thread only
	savePath string
	loadPath string

	inboxMu sync.Mutex
	inbox   map[int]*voxmesh.Mesh

	errMu      sync.Mutex
	persistErr error
}

// New creates a floor and preallocates its whole volume. materials and metrics
// may be nil.
func New(cfg Config, submitter Submitter, materials *voxmesh.MaterialSet, metrics *Metrics) *Floor {
	if cfg.SectionsPerSide <= 0 {
		panic(fmt.Sprintf("floor: sections per side must be positive, got %d", cfg.SectionsPerSide))
	}
	if cfg.VoxelSize <= 0 {
		panic(fmt.Sprintf("floor: voxel size must be positive, got %v", cfg.VoxelSize))
	}
	if submitter == nil {
		panic("floor: nil job submitter")
	}
	if materials == nil {
		materials = voxmesh.DefaultMaterials()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	model := vox.NewModel(math.Splat(cfg.VoxelSize))
	total := math.Box3{Max: cfg.Size}
	_, voxelEnd := model.VoxelRange(total)

	f := &Floor{
		cfg:         cfg,
		jobs:        submitter,
		materials:   materials,
		metrics:     metrics,
		model:       model,
		totalBounds: total,
		voxelEnd:    voxelEnd,
		perSide:     cfg.SectionsPerSide,
		splitX:      splitRange(voxelEnd.X, cfg.SectionsPerSide),
		splitZ:      splitRange(voxelEnd.Z, cfg.SectionsPerSide),
		inbox:       make(map[int]*voxmesh.Mesh),
	}

	model.Preallocate(total)

	f.sections = make([]*Section, 0, f.perSide*f.perSide)
	for z := range f.perSide {
		for x := range f.perSide {
			start := math.IVec3{X: f.splitX[x], Y: 0, Z: f.splitZ[z]}
			end := math.IVec3{X: f.splitX[x+1], Y: voxelEnd.Y, Z: f.splitZ[z+1]}
			f.sections = append(f.sections, newSection(len(f.sections), x, z, start, end, model))
		}
	}

	logger.Named("floor").Info("floor created",
		zap.Any("size", cfg.Size),
		zap.Int("sections", len(f.sections)),
		zap.Float32("voxel_size", cfg.VoxelSize),
		zap.Int("blocks", model.Volume().BlockCount()),
	)
	return f
}

// splitRange divides [0, n) into parts nearly equal integer pieces.
func splitRange(n int32, parts int) []int32 {
	splits := make([]int32, parts+1)
	for i := range splits {
		splits[i] = int32(int64(n) * int64(i) / int64(parts))
	}
	return splits
}

// Model returns the underlying voxel model. Reading it while jobs are running
// may observe partial writes.
func (f *Floor) Model() *vox.Model { return f.model }

// Bounds returns the world box covered by the floor.
func (f *Floor) Bounds() math.Box3 { return f.totalBounds }

// Sections returns every section in row-major order (X fastest).
func (f *Floor) Sections() []*Section { return f.sections }

// WritesPending returns the number of write jobs submitted and not finished.
func (f *Floor) WritesPending() int { return int(f.totalWritesPending.Load()) }

// Saving reports whether a save has been requested and not yet completed.
func (f *Floor) Saving() bool { return f.saving.Load() }

// Loading reports whether a load has been requested and not yet completed.
func (f *Floor) Loading() bool { return f.loading.Load() }

// SectionContaining returns the section whose box contains p.
func (f *Floor) SectionContaining(p math.Vec3) (*Section, bool) {
	if !f.totalBounds.Contains(p) {
		return nil, false
	}
	v := f.model.WorldToVoxel(p)
	x := findSplit(f.splitX, v.X)
	z := findSplit(f.splitZ, v.Z)
	if x < 0 || z < 0 {
		return nil, false
	}
	return f.sections[z*f.perSide+x], true
}

// findSplit returns i such that splits[i] <= v < splits[i+1], or -1.
func findSplit(splits []int32, v int32) int {
	lo, hi := 0, len(splits)-1
	if v < splits[0] || v >= splits[hi] {
		return -1
	}
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if splits[mid] <= v {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// sectionSpan returns the inclusive section index range overlapping [start, end).
func sectionSpan(splits []int32, start, end int32) (int, int) {
	return findSplit(splits, start), findSplit(splits, end-1)
}

// ModifyData applies writer to every voxel range of bounds, one job per
// touched section. Requests outside the floor, or made while a save or load
// is in progress, are ignored. Returns the number of jobs submitted.
// Call from the owning thread only, like SaveNow and LoadFile: the save/load
// check and the pending-write count are not updated as one step.
//
// writer runs on worker goroutines, possibly several at once for different
// sections. It must only read and write voxels inside the range it is given.
func (f *Floor) ModifyData(bounds math.Box3, writer vox.AreaFunc) int {
	if f.saving.Load() || f.loading.Load() {
		f.metrics.droppedMutations.Inc()
		logger.Named("floor").Debug("mutation dropped during save/load", zap.Any("bounds", bounds))
		return 0
	}
	if !bounds.Intersects(f.totalBounds) {
		return 0
	}

	start, end := f.model.VoxelRange(bounds.Clamp(f.totalBounds))
	start = start.Max(math.IVec3{})
	end = end.Min(f.voxelEnd)
	if start.Empty(end) {
		return 0
	}

	x0, x1 := sectionSpan(f.splitX, start.X, end.X)
	z0, z1 := sectionSpan(f.splitZ, start.Z, end.Z)

	submitted := 0
	for z := z0; z <= z1; z++ {
		for x := x0; x <= x1; x++ {
			s := f.sections[z*f.perSide+x]
			lo, hi, ok := s.clip(start, end)
			if !ok {
				continue
			}
			if f.submitWrite(s, lo, hi, writer) {
				submitted++
			}
		}
	}
	return submitted
}

// ModifyDataAndSave issues a mutation and then requests a save that runs
// once it, and every other in-flight write, has settled.
func (f *Floor) ModifyDataAndSave(bounds math.Box3, writer vox.AreaFunc, path string) {
	f.ModifyData(bounds, writer)
	f.SaveNow(path)
}

// submitWrite registers and submits one section write. A nil writer only
// remeshes the section.
func (f *Floor) submitWrite(s *Section, start, end math.IVec3, writer vox.AreaFunc) bool {
	s.pendingWriters.Add(1)
	f.totalWritesPending.Add(1)
	f.metrics.writesSubmitted.Inc()

	err := f.jobs.Submit(s.writeLabel, func() {
		f.runWrite(s, start, end, writer)
	})
	if err != nil {
		f.abandonWrite(s, err)
		return false
	}
	return true
}

// abandonWrite rolls back the counters of a write that could not be queued.
func (f *Floor) abandonWrite(s *Section, err error) {
	logger.Named("floor").Warn("section write abandoned", zap.Int("section", s.index), zap.Error(err))
	s.pendingWriters.Add(-1)
	f.totalWritesPending.Add(-1)
}

// runWrite is the body of a section write job.
func (f *Floor) runWrite(s *Section, start, end math.IVec3, writer vox.AreaFunc) {
	if !s.tryAcquire() {
		f.metrics.writeRetries.Inc()
		err := f.jobs.Submit(s.writeLabel, func() {
			f.runWrite(s, start, end, writer)
		})
		if err != nil {
			f.abandonWrite(s, err)
		}
		return
	}

	if writer != nil {
		f.applyWriter(s, start, end, writer)
	}

	// The gate is still held, so no other write to this section can start
	// between reaching zero and the remesh below.
	if s.pendingWriters.Add(-1) == 0 {
		f.remesh(s)
	}

	s.release()
	f.totalWritesPending.Add(-1)
}

func (f *Floor) applyWriter(s *Section, start, end math.IVec3, writer vox.AreaFunc) {
	defer func() {
		if r := recover(); r != nil {
			f.metrics.writerPanics.Inc()
			logger.Named("floor").Error("section writer panicked",
				zap.Int("section", s.index),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
	}()
	f.model.WriteVoxelRange(start, end, writer)
}

// remesh rebuilds a section's geometry and posts it to the inbox.
// Callers hold the section gate.
func (f *Floor) remesh(s *Section) {
	began := time.Now()
	s.extractor.ExtractVoxelRange(s.start, s.end)
	mesh := voxmesh.BuildMesh(s.extractor.Quads(), f.materials)

	f.inboxMu.Lock()
	f.inbox[s.index] = mesh
	f.inboxMu.Unlock()

	s.remeshes.Add(1)
	f.metrics.remeshes.Inc()
	f.metrics.remeshSeconds.Observe(time.Since(began).Seconds())
}

// RebuildDirtyMeshes hands every section rebuilt since the last call to
// uploader. Call from the owning thread. uploader may be nil for headless use.
// Returns the number of sections uploaded.
func (f *Floor) RebuildDirtyMeshes(uploader MeshUploader) int {
	f.inboxMu.Lock()
	pending := f.inbox
	f.inbox = make(map[int]*voxmesh.Mesh, len(pending))
	f.inboxMu.Unlock()

	for index, mesh := range pending {
		s := f.sections[index]
		s.mesh = mesh
		if uploader != nil {
			uploader.UploadSection(index, mesh)
		}
	}
	return len(pending)
}

// Render draws every section that has geometry.
func (f *Floor) Render(drawer Drawer) {
	for _, s := range f.sections {
		if !s.mesh.Empty() {
			drawer.DrawSection(s.index)
		}
	}
}

// SaveNow requests that the whole model be written to path once all pending
// writes have settled. Mutations are ignored until the save completes.
// Requesting a save while one is in progress is a contract violation.
func (f *Floor) SaveNow(path string) {
	if !f.saving.CompareAndSwap(false, true) {
		panic("floor: SaveNow called while a save is already in progress")
	}
	f.savePath = path
	f.saveRequested.Store(true)
}

// LoadFile requests that the model be replaced by the contents of path once
// all pending writes have settled. Every section is remeshed afterwards.
func (f *Floor) LoadFile(path string) error {
	if f.saving.Load() || !f.loading.CompareAndSwap(false, true) {
		return ErrPersistInProgress
	}
	f.loadPath = path
	f.loadRequested.Store(true)
	return nil
}

// Update starts a requested save or load once no writes are outstanding.
// Call once per frame from the owning thread.
func (f *Floor) Update() {
	f.metrics.observeStats(f.Stats())

	if f.totalWritesPending.Load() != 0 {
		return
	}
	if f.saveRequested.Load() && !f.loading.Load() {
		f.saveRequested.Store(false)
		path := f.savePath
		if err := f.jobs.Submit("floor/save", func() { f.runSave(path) }); err != nil {
			f.finishPersist("save", path, err)
			f.saving.Store(false)
		}
		return
	}
	if f.loadRequested.Load() {
		f.loadRequested.Store(false)
		path := f.loadPath
		if err := f.jobs.Submit("floor/load", func() { f.runLoad(path) }); err != nil {
			f.finishPersist("load", path, err)
			f.loading.Store(false)
		}
	}
}

func (f *Floor) runSave(path string) {
	began := time.Now()
	err := formats.WriteModelFile(path, f.model, f.totalBounds, f.cfg.Compress)
	f.finishPersist("save", path, err,
		zap.Int("blocks", f.model.Volume().BlockCount()),
		zap.Duration("took", time.Since(began)),
	)
	f.saving.Store(false)
}

// runLoad decodes into a scratch model so a failed load leaves the current
// voxels untouched.
func (f *Floor) runLoad(path string) {
	began := time.Now()
	scratch := vox.NewModelAt(f.model.VoxelSize(), f.model.Origin())
	blocks := 0
	_, err := formats.LoadModelFile(path, scratch, func(math.IVec3) { blocks++ })
	if err == nil {
		f.model.ReplaceBlocks(scratch)
		f.model.Preallocate(f.totalBounds)
	}
	f.finishPersist("load", path, err,
		zap.Int("blocks", blocks),
		zap.Duration("took", time.Since(began)),
	)

	if err == nil {
		for _, s := range f.sections {
			f.submitWrite(s, s.start, s.end, nil)
		}
	}
	f.loading.Store(false)
}

func (f *Floor) finishPersist(op, path string, err error, fields ...zap.Field) {
	f.metrics.observePersist(op, err)
	f.errMu.Lock()
	f.persistErr = err
	f.errMu.Unlock()

	fields = append(fields, zap.String("path", path))
	if err != nil {
		logger.Named("floor").Error(op+" failed", append(fields, zap.Error(err))...)
		return
	}
	logger.Named("floor").Info(op+" complete",
		append(fields, zap.String("checksum", fmt.Sprintf("%016x", f.model.Checksum())))...)
}

// LastPersistError returns the result of the most recent save or load.
func (f *Floor) LastPersistError() error {
	f.errMu.Lock()
	defer f.errMu.Unlock()
	return f.persistErr
}

// RayIntersectsVolume reports whether the segment touches the floor bounds.
func (f *Floor) RayIntersectsVolume(start, end math.Vec3) bool {
	return picking.SegmentIntersectsBox(start, end, f.totalBounds)
}

// Hit is the first solid voxel found by Raycast.
type Hit struct {
	Voxel    math.IVec3
	Value    vox.Voxel
	Position math.Vec3 // voxel center
}

// Raycast marches the segment through the voxel grid and returns the first
// solid voxel. It reports no hit while a load is replacing the model.
func (f *Floor) Raycast(start, end math.Vec3) (Hit, bool) {
	if f.loading.Load() || !f.RayIntersectsVolume(start, end) {
		return Hit{}, false
	}

	var hit Hit
	found := false
	picking.Raymarch(start, end, f.model.VoxelSize(), func(cell math.IVec3) bool {
		if cell.X < 0 || cell.Y < 0 || cell.Z < 0 ||
			cell.X >= f.voxelEnd.X || cell.Y >= f.voxelEnd.Y || cell.Z >= f.voxelEnd.Z {
			return true
		}
		v := f.model.VoxelAt(cell)
		if v.IsAir() {
			return true
		}
		hit = Hit{Voxel: cell, Value: v, Position: f.model.VoxelCenter(cell)}
		found = true
		return false
	})
	return hit, found
}
