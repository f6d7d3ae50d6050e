// voxtool is a CLI utility for generating, inspecting and exporting .vxm voxel models.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vox/internal/app"
	"github.com/Faultbox/midgard-vox/internal/config"
	"github.com/Faultbox/midgard-vox/internal/export"
	"github.com/Faultbox/midgard-vox/internal/logger"
	"github.com/Faultbox/midgard-vox/pkg/formats"
	"github.com/Faultbox/midgard-vox/pkg/math"
	"github.com/Faultbox/midgard-vox/pkg/vox"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "info":
		err = cmdInfo(args)
	case "generate", "gen":
		err = cmdGenerate(args)
	case "export-glb", "glb":
		err = cmdExportGLB(args)
	case "init-config":
		err = cmdInitConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`voxtool - voxel model utility

Usage:
  voxtool <command> [options]

Commands:
  info <file.vxm>                       Show header, block count and checksum
  generate [options] <out.vxm>          Fill a floor with demo content and save it
  export-glb [options] <file.vxm> <out.glb>
                                        Mesh a model per section and write a GLB
  init-config [path]                    Write the default viewer config

Examples:
  voxtool generate -content rooms -zstd floor.vxm
  voxtool generate -content terrain -seed 7 -size 64,8,64 hills.vxm
  voxtool info floor.vxm
  voxtool export-glb -sections 8 floor.vxm floor.glb`)
}

// commonFlags registers the flags shared by the floor-building commands.
func commonFlags(fs *flag.FlagSet) (workers *int, debug *bool) {
	workers = fs.Int("workers", 0, "Job worker count (0 = NumCPU-1)")
	debug = fs.Bool("debug", false, "Enable debug logging")
	return workers, debug
}

func initLogger(debug bool) error {
	level := "warn"
	if debug {
		level = "debug"
	}
	return logger.Init(level, "")
}

func cmdInfo(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: voxtool info <file.vxm>")
	}
	path := args[0]

	hdr, err := formats.ReadHeaderFile(path)
	if err != nil {
		return err
	}

	m := vox.NewModel(hdr.VoxelSizeVec())
	solid := 0
	if _, err := formats.LoadModelFile(path, m, nil); err != nil {
		return err
	}
	m.Volume().ForEachBlock(func(_ math.IVec3, b *vox.Block) bool {
		solid += b.SolidCount()
		return true
	})

	bounds := hdr.Bounds()
	fmt.Printf("File:       %s\n", path)
	fmt.Printf("Version:    %d\n", hdr.Version)
	fmt.Printf("Block dims: %d\n", hdr.BlockDims)
	fmt.Printf("Blocks:     %d\n", hdr.BlockCount)
	fmt.Printf("Voxel size: %v\n", hdr.VoxelSize)
	fmt.Printf("Bounds:     %v - %v\n", bounds.Min, bounds.Max)
	fmt.Printf("Solid:      %d voxels\n", solid)
	fmt.Printf("Memory:     %.2f MB\n", float64(m.Volume().MemoryBytes())/(1024*1024))
	fmt.Printf("Checksum:   %016x\n", m.Checksum())
	return nil
}

func cmdGenerate(args []string) error {
	cfg := config.Default()

	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	content := fs.String("content", cfg.Floor.Content, "Content: rooms, terrain or empty")
	size := fs.String("size", "", "Floor size as x,y,z (default 128,8,128)")
	sections := fs.Int("sections", cfg.Floor.SectionsPerSide, "Sections per side")
	voxel := fs.Float64("voxel", float64(cfg.Floor.VoxelSize), "Voxel edge length")
	seed := fs.Int64("seed", cfg.Terrain.Seed, "Terrain seed")
	compress := fs.Bool("zstd", false, "Compress the output with zstd")
	workers, debug := commonFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: voxtool generate [options] <out.vxm>")
	}
	if err := initLogger(*debug); err != nil {
		return err
	}

	cfg.Floor.Content = *content
	cfg.Floor.SectionsPerSide = *sections
	cfg.Floor.VoxelSize = float32(*voxel)
	cfg.Terrain.Seed = *seed
	cfg.Persistence.Compress = *compress
	cfg.Jobs.Workers = *workers
	if *size != "" {
		if _, err := fmt.Sscanf(*size, "%f,%f,%f", &cfg.Floor.Size[0], &cfg.Floor.Size[1], &cfg.Floor.Size[2]); err != nil {
			return fmt.Errorf("parsing -size %q: %w", *size, err)
		}
	}

	session, err := app.NewSession(cfg, nil)
	if err != nil {
		return err
	}
	defer session.Close()

	began := time.Now()
	session.Populate()
	if err := session.SaveAndWait(context.Background(), fs.Arg(0)); err != nil {
		return err
	}

	stats := session.Floor.Stats()
	logger.Info("generated", zap.Stringer("stats", stats), zap.Duration("took", time.Since(began)))
	fmt.Printf("Wrote %s (%d blocks, checksum %016x)\n", fs.Arg(0), stats.Blocks, session.Floor.Model().Checksum())
	return nil
}

func cmdExportGLB(args []string) error {
	fs := flag.NewFlagSet("export-glb", flag.ExitOnError)
	sections := fs.Int("sections", 16, "Sections per side used for meshing")
	workers, debug := commonFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 2 {
		return fmt.Errorf("usage: voxtool export-glb [options] <file.vxm> <out.glb>")
	}
	if err := initLogger(*debug); err != nil {
		return err
	}
	in, out := fs.Arg(0), fs.Arg(1)

	hdr, err := formats.ReadHeaderFile(in)
	if err != nil {
		return err
	}

	cfg := config.Default()
	bounds := hdr.Bounds()
	cfg.Floor.Size = bounds.Max.Array()
	cfg.Floor.VoxelSize = hdr.VoxelSize[0]
	cfg.Floor.SectionsPerSide = *sections
	cfg.Floor.Content = "empty"
	cfg.Jobs.Workers = *workers

	session, err := app.NewSession(cfg, nil)
	if err != nil {
		return err
	}
	defer session.Close()

	collector := export.NewCollector()
	if err := session.LoadAndWait(context.Background(), in, collector); err != nil {
		return err
	}
	if err := collector.SaveGLB(out); err != nil {
		return err
	}

	fmt.Printf("Wrote %s (%d sections)\n", out, collector.Len())
	return nil
}

func cmdInitConfig(args []string) error {
	cfg := config.Default()
	if len(args) > 0 {
		if err := cfg.SaveTo(args[0]); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", args[0])
		return nil
	}
	if err := cfg.Save(); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	return nil
}
