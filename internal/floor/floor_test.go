package floor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-vox/internal/engine/voxmesh"
	"github.com/Faultbox/midgard-vox/internal/jobs"
	"github.com/Faultbox/midgard-vox/pkg/math"
	"github.com/Faultbox/midgard-vox/pkg/vox"
	"github.com/Faultbox/midgard-vox/pkg/vox/brush"
)

// smallConfig is a 16x4x16 floor of 4x4 sections with 0.25 voxels.
func smallConfig() Config {
	return Config{
		Size:            math.Vec3{X: 16, Y: 4, Z: 16},
		SectionsPerSide: 4,
		VoxelSize:       0.25,
	}
}

func newTestFloor(t *testing.T, cfg Config) (*Floor, *jobs.System) {
	t.Helper()
	js := jobs.New(4)
	t.Cleanup(js.Close)
	return New(cfg, js, voxmesh.DefaultMaterials(), NewMetrics(prometheus.NewRegistry())), js
}

// settle drives Update until no write, save or load is outstanding.
func settle(t *testing.T, f *Floor, js *jobs.System) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for {
		f.Update()
		require.NoError(t, js.WaitIdle(ctx))
		if f.WritesPending() == 0 && !f.Saving() && !f.Loading() &&
			!f.saveRequested.Load() && !f.loadRequested.Load() {
			return
		}
	}
}

type recordingUploader struct {
	meshes map[int]*voxmesh.Mesh
}

func (r *recordingUploader) UploadSection(index int, mesh *voxmesh.Mesh) {
	if r.meshes == nil {
		r.meshes = make(map[int]*voxmesh.Mesh)
	}
	r.meshes[index] = mesh
}

type recordingDrawer struct {
	drawn []int
}

func (r *recordingDrawer) DrawSection(index int) {
	r.drawn = append(r.drawn, index)
}

// manualSubmitter queues jobs until the test runs them.
type manualSubmitter struct {
	queue []jobs.Func
}

func (m *manualSubmitter) Submit(label string, fn jobs.Func) error {
	m.queue = append(m.queue, fn)
	return nil
}

func (m *manualSubmitter) runOne() {
	fn := m.queue[0]
	m.queue = m.queue[1:]
	fn()
}

func TestNew_PartitionCoversVolume(t *testing.T) {
	f, _ := newTestFloor(t, smallConfig())
	require.Len(t, f.Sections(), 16)

	for x := float32(0.05); x < 16; x += 0.5 {
		for z := float32(0.05); z < 16; z += 0.5 {
			for _, y := range []float32{0, 1.9, 3.99} {
				p := math.Vec3{X: x, Y: y, Z: z}
				containing := 0
				for _, s := range f.Sections() {
					if s.Bounds().Contains(p) {
						containing++
					}
				}
				require.Equal(t, 1, containing, "point %v", p)

				s, ok := f.SectionContaining(p)
				require.True(t, ok)
				require.True(t, s.Bounds().Contains(p))
			}
		}
	}

	_, ok := f.SectionContaining(math.Vec3{X: 16, Y: 1, Z: 1})
	require.False(t, ok)
}

func TestNew_UnevenSplit(t *testing.T) {
	cfg := smallConfig()
	cfg.SectionsPerSide = 3
	f, _ := newTestFloor(t, cfg)

	covered := int32(0)
	for x := range 3 {
		start, end := f.Sections()[x].VoxelRange()
		require.Equal(t, covered, start.X)
		covered = end.X
	}
	require.Equal(t, int32(64), covered)
}

func TestModifyData_OutsideVolumeIsNoop(t *testing.T) {
	f, js := newTestFloor(t, smallConfig())
	before := f.Model().Checksum()

	outside := []math.Box3{
		{Min: math.Vec3{X: 20, Y: 0, Z: 0}, Max: math.Vec3{X: 30, Y: 4, Z: 4}},
		{Min: math.Vec3{X: -5, Y: -5, Z: -5}, Max: math.Vec3{X: 0, Y: 0, Z: 0}},
		{Min: math.Vec3{X: 0, Y: 4, Z: 0}, Max: math.Vec3{X: 16, Y: 10, Z: 16}},
	}
	for _, b := range outside {
		require.Zero(t, f.ModifyData(b, brush.Fill(vox.Pack(1, 0)).Area()))
	}
	settle(t, f, js)

	require.Equal(t, before, f.Model().Checksum())
	require.Zero(t, f.RebuildDirtyMeshes(nil))
}

func TestModifyData_ClampsAndSplits(t *testing.T) {
	f, js := newTestFloor(t, smallConfig())

	// straddles four sections and sticks out of the floor
	b := math.Box3{Min: math.Vec3{X: 3, Y: -2, Z: 3}, Max: math.Vec3{X: 5, Y: 9, Z: 5}}
	require.Equal(t, 4, f.ModifyData(b, brush.Fill(vox.Pack(3, 0)).Area()))
	settle(t, f, js)

	require.Equal(t, vox.Pack(3, 0), f.Model().VoxelAt(math.IVec3{X: 12, Y: 15, Z: 12}))
	require.True(t, f.Model().VoxelAt(math.IVec3{X: 11, Y: 0, Z: 12}).IsAir())
	require.Equal(t, 4, f.RebuildDirtyMeshes(nil))
}

func TestModifyData_MutualExclusionPerSection(t *testing.T) {
	f, js := newTestFloor(t, smallConfig())

	active := make([]atomic.Int32, len(f.Sections()))
	var overlaps atomic.Int32
	var calls atomic.Int32

	writer := func(p *vox.AreaParams) {
		calls.Add(1)
		s, _ := f.SectionContaining(p.VoxelPosition(p.StartVoxel().X, p.StartVoxel().Y, p.StartVoxel().Z))
		if active[s.Index()].Add(1) != 1 {
			overlaps.Add(1)
		}
		p.ForEach(func(x, y, z int32) {
			p.WriteVoxel(x, y, z, p.VoxelAt(x, y, z)+1)
		})
		time.Sleep(100 * time.Microsecond)
		active[s.Index()].Add(-1)
	}

	whole := f.Bounds()
	submitted := 0
	for range 20 {
		submitted += f.ModifyData(whole, writer)
	}
	settle(t, f, js)

	require.Zero(t, overlaps.Load())
	require.Equal(t, int32(submitted), calls.Load())
	// every voxel was incremented once per call
	require.Equal(t, vox.Voxel(20), f.Model().VoxelAt(math.IVec3{X: 33, Y: 7, Z: 50}))
}

func TestModifyData_SettleThenMesh(t *testing.T) {
	f, js := newTestFloor(t, smallConfig())

	center := math.Vec3{X: 2, Y: 1.5, Z: 2}
	f.ModifyData(brush.SphereBounds(center, 1), brush.Sphere(center, 1, vox.Pack(vox.MaterialCarpet, 0)).Area())
	f.ModifyData(brush.SphereBounds(center, 0.5), brush.Sphere(center, 0.5, vox.Pack(vox.MaterialPillars, 0)).Area())
	settle(t, f, js)

	up := &recordingUploader{}
	require.Equal(t, 1, f.RebuildDirtyMeshes(up))

	s, _ := f.SectionContaining(center)
	mesh := up.meshes[s.Index()]
	require.NotNil(t, mesh)
	require.Same(t, mesh, s.Mesh())

	// rebuild independently from the settled voxels
	start, end := s.VoxelRange()
	e := vox.NewGreedyQuadExtractor(f.Model())
	e.SealBounds = true
	e.ExtractVoxelRange(start, end)
	want := voxmesh.BuildMesh(e.Quads(), voxmesh.DefaultMaterials())
	require.Equal(t, want.Vertices, mesh.Vertices)
	require.Equal(t, want.Indices, mesh.Indices)

	// nothing left to drain
	require.Zero(t, f.RebuildDirtyMeshes(up))

	d := &recordingDrawer{}
	f.Render(d)
	require.Equal(t, []int{s.Index()}, d.drawn)
}

func TestModifyData_RetriesWhenGateHeld(t *testing.T) {
	m := &manualSubmitter{}
	metrics := NewMetrics(nil)
	f := New(smallConfig(), m, nil, metrics)

	s := f.Sections()[0]
	require.Equal(t, 1, f.ModifyData(s.Bounds(), brush.Fill(vox.Pack(2, 0)).Area()))
	require.Equal(t, 1, s.PendingWriters())

	require.True(t, s.tryAcquire())
	m.runOne()
	require.Len(t, m.queue, 1, "job should resubmit itself")
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.writeRetries))
	require.True(t, f.Model().VoxelAt(math.IVec3{}).IsAir())

	s.release()
	m.runOne()
	require.Empty(t, m.queue)
	require.Equal(t, vox.Pack(2, 0), f.Model().VoxelAt(math.IVec3{}))
	require.Zero(t, s.PendingWriters())
	require.Zero(t, f.WritesPending())
	require.Equal(t, uint64(1), s.Remeshes())
}

func TestModifyData_OnlyLastWriterRemeshes(t *testing.T) {
	m := &manualSubmitter{}
	f := New(smallConfig(), m, nil, nil)
	s := f.Sections()[5]

	for range 3 {
		f.ModifyData(s.Bounds(), brush.Fill(vox.Pack(1, 0)).Area())
	}
	require.Equal(t, 3, s.PendingWriters())

	m.runOne()
	m.runOne()
	require.Zero(t, s.Remeshes())
	m.runOne()
	require.Equal(t, uint64(1), s.Remeshes())
}

func TestModifyData_WriterPanicReleasesGate(t *testing.T) {
	m := &manualSubmitter{}
	metrics := NewMetrics(nil)
	f := New(smallConfig(), m, nil, metrics)
	s := f.Sections()[0]

	f.ModifyData(s.Bounds(), func(p *vox.AreaParams) { panic("bad writer") })
	m.runOne()

	require.Zero(t, f.WritesPending())
	require.True(t, s.tryAcquire(), "gate should be free after a panicking writer")
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.writerPanics))
}

func TestFloor_EndToEnd(t *testing.T) {
	cfg := Config{
		Size:            math.Vec3{X: 128, Y: 8, Z: 128},
		SectionsPerSide: 16,
		VoxelSize:       0.125,
	}
	mats := voxmesh.NewMaterialSet()
	marker := voxmesh.Material{Colour: [4]float32{0.1, 0.2, 0.3, 1}}
	mats.Set(5, marker)

	js := jobs.New(0)
	t.Cleanup(js.Close)
	f := New(cfg, js, mats, nil)
	require.Len(t, f.Sections(), 256)

	b := math.Box3{Max: math.Vec3{X: 16, Y: 8, Z: 16}}
	require.Equal(t, 4, f.ModifyData(b, brush.Fill(vox.Pack(5, 0)).Area()))
	settle(t, f, js)

	up := &recordingUploader{}
	require.Equal(t, 4, f.RebuildDirtyMeshes(up))
	for index, mesh := range up.meshes {
		x, z := f.Sections()[index].Coord()
		require.LessOrEqual(t, x, 1)
		require.LessOrEqual(t, z, 1)
		// a completely filled section is six maximal quads
		require.Len(t, mesh.Vertices, 24)
		for _, v := range mesh.Vertices {
			require.Equal(t, marker.Colour, v.Colour)
		}
	}
	for _, s := range f.Sections() {
		if _, ok := up.meshes[s.Index()]; !ok {
			require.Nil(t, s.Mesh())
		}
	}

	st := f.Stats()
	require.Equal(t, 256, st.Sections)
	require.Equal(t, math.Vec3{X: 8, Y: 8, Z: 8}, st.SectionSize)
	require.Equal(t, 4*(24*voxmesh.VertexSize+36*4), st.VertexBytes)
	require.Zero(t, st.WritesPending)
}

func TestFloor_SaveLoadRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		cfg := smallConfig()
		cfg.Compress = compress
		f, js := newTestFloor(t, cfg)
		path := filepath.Join(t.TempDir(), "floor.vxm")

		rooms := brush.RoomGrid(brush.DefaultRoomGridConfig(f.Bounds()))
		f.ModifyDataAndSave(f.Bounds(), rooms.Area(), path)
		require.True(t, f.Saving())
		settle(t, f, js)
		require.NoError(t, f.LastPersistError())
		saved := f.Model().Checksum()
		f.RebuildDirtyMeshes(nil)

		f.ModifyData(f.Bounds(), brush.Fill(vox.Pack(1, 0)).Area())
		settle(t, f, js)
		require.NotEqual(t, saved, f.Model().Checksum())
		f.RebuildDirtyMeshes(nil)

		require.NoError(t, f.LoadFile(path))
		settle(t, f, js)
		require.NoError(t, f.LastPersistError())
		require.Equal(t, saved, f.Model().Checksum())
		require.True(t, f.Model().Volume().Frozen())

		// every section is rebuilt after a load
		require.Equal(t, len(f.Sections()), f.RebuildDirtyMeshes(nil))
	}
}

func TestFloor_SaveNowTwicePanics(t *testing.T) {
	f := New(smallConfig(), &manualSubmitter{}, nil, nil)
	f.SaveNow(filepath.Join(t.TempDir(), "a.vxm"))
	require.Panics(t, func() { f.SaveNow("b.vxm") })
}

func TestFloor_MutationsDroppedWhilePersisting(t *testing.T) {
	m := &manualSubmitter{}
	metrics := NewMetrics(nil)
	f := New(smallConfig(), m, nil, metrics)
	path := filepath.Join(t.TempDir(), "floor.vxm")

	f.SaveNow(path)
	require.Zero(t, f.ModifyData(f.Bounds(), brush.Fill(vox.Pack(1, 0)).Area()))
	require.ErrorIs(t, f.LoadFile(path), ErrPersistInProgress)

	f.Update()
	require.Len(t, m.queue, 1)
	m.runOne()
	require.False(t, f.Saving())
	require.NoError(t, f.LastPersistError())

	require.NoError(t, f.LoadFile(path))
	require.ErrorIs(t, f.LoadFile(path), ErrPersistInProgress)
	require.Zero(t, f.ModifyData(f.Bounds(), brush.Fill(vox.Pack(1, 0)).Area()))

	require.Equal(t, 2.0, testutil.ToFloat64(metrics.droppedMutations))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.persist.WithLabelValues("save", "ok")))
}

func TestFloor_SaveWaitsForPendingWrites(t *testing.T) {
	m := &manualSubmitter{}
	f := New(smallConfig(), m, nil, nil)

	f.ModifyDataAndSave(f.Sections()[0].Bounds(), brush.Fill(vox.Pack(4, 0)).Area(), filepath.Join(t.TempDir(), "f.vxm"))
	f.Update()
	require.Len(t, m.queue, 1, "save must wait for the write")

	m.runOne()
	f.Update()
	require.Len(t, m.queue, 1)
	m.runOne()
	require.False(t, f.Saving())
}

func TestFloor_FailedLoadKeepsVoxels(t *testing.T) {
	junk := filepath.Join(t.TempDir(), "junk.vxm")
	require.NoError(t, os.WriteFile(junk, []byte("not a voxel file"), 0o644))

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(t.TempDir(), "missing.vxm")},
		{"truncated", junk},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, js := newTestFloor(t, smallConfig())
			f.ModifyData(f.Bounds(), brush.Fill(vox.Pack(1, 0)).Area())
			settle(t, f, js)
			before := f.Model().Checksum()

			require.NoError(t, f.LoadFile(tt.path))
			settle(t, f, js)

			require.Error(t, f.LastPersistError())
			require.Equal(t, vox.Pack(1, 0), f.Model().VoxelAt(math.IVec3{X: 3, Y: 3, Z: 3}))
			require.Equal(t, before, f.Model().Checksum())
			require.True(t, f.Model().Volume().Frozen())

			// the floor still accepts edits afterwards
			require.Equal(t, 1, f.ModifyData(f.Sections()[0].Bounds(), brush.Fill(vox.Pack(2, 0)).Area()))
			settle(t, f, js)
			require.Equal(t, vox.Pack(2, 0), f.Model().VoxelAt(math.IVec3{}))
		})
	}
}

func TestFloor_SectionMeshesAreSealed(t *testing.T) {
	f, js := newTestFloor(t, smallConfig())
	f.ModifyData(f.Bounds(), brush.Fill(vox.Pack(1, 0)).Area())
	settle(t, f, js)

	up := &recordingUploader{}
	require.Equal(t, 16, f.RebuildDirtyMeshes(up))
	for i, mesh := range up.meshes {
		// one quad per face: seams between full sections are emitted too
		require.Len(t, mesh.Indices, 6*6, "section %d", i)
		require.Len(t, mesh.Vertices, 6*4, "section %d", i)
	}
}

func TestFloor_Raycast(t *testing.T) {
	f, js := newTestFloor(t, smallConfig())
	column := math.Box3{Min: math.Vec3{X: 5, Y: 0, Z: 5}, Max: math.Vec3{X: 5.25, Y: 2, Z: 5.25}}
	f.ModifyData(column, brush.Fill(vox.Pack(vox.MaterialPillars, 0)).Area())
	settle(t, f, js)

	hit, ok := f.Raycast(math.Vec3{X: 5.1, Y: 10, Z: 5.1}, math.Vec3{X: 5.1, Y: -1, Z: 5.1})
	require.True(t, ok)
	require.Equal(t, math.IVec3{X: 20, Y: 7, Z: 20}, hit.Voxel)
	require.Equal(t, vox.Pack(vox.MaterialPillars, 0), hit.Value)

	_, ok = f.Raycast(math.Vec3{X: 1, Y: 10, Z: 1}, math.Vec3{X: 1, Y: 3, Z: 1})
	require.False(t, ok)

	require.True(t, f.RayIntersectsVolume(math.Vec3{X: -1, Y: 1, Z: 1}, math.Vec3{X: 1, Y: 1, Z: 1}))
	require.False(t, f.RayIntersectsVolume(math.Vec3{X: -1, Y: 10, Z: 1}, math.Vec3{X: 1, Y: 10, Z: 1}))
}

func TestFloor_UpdatePublishesGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	f := New(smallConfig(), &manualSubmitter{}, nil, metrics)

	f.ModifyData(f.Bounds(), brush.Fill(vox.Pack(1, 0)).Area())
	f.Update()

	require.Equal(t, 16.0, testutil.ToFloat64(metrics.writesPending))
	require.Equal(t, float64(f.Model().Volume().MemoryBytes()), testutil.ToFloat64(metrics.voxelBytes))
	n, err := testutil.GatherAndCount(reg, "floor_writes_submitted_total")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestFloor_ConcurrentSectionsAreIndependent(t *testing.T) {
	f, js := newTestFloor(t, smallConfig())

	var wg sync.WaitGroup
	var seen sync.Map
	writer := func(p *vox.AreaParams) {
		seen.Store(p.StartVoxel(), true)
		wg.Done()
		// hold until every section's writer has started
		wg.Wait()
	}
	wg.Add(4)
	b := math.Box3{Min: math.Vec3{X: 3, Y: 0, Z: 3}, Max: math.Vec3{X: 5, Y: 4, Z: 5}}
	require.Equal(t, 4, f.ModifyData(b, writer))
	settle(t, f, js)

	count := 0
	seen.Range(func(any, any) bool { count++; return true })
	require.Equal(t, 4, count)
}
