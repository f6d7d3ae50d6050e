// Package config handles viewer and tool configuration loading.
package config

// Config holds all settings.
type Config struct {
	Floor       FloorConfig       `yaml:"floor"`
	Jobs        JobsConfig        `yaml:"jobs"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Terrain     TerrainConfig     `yaml:"terrain"`
	Graphics    GraphicsConfig    `yaml:"graphics"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// FloorConfig describes the edited volume.
type FloorConfig struct {
	Size            [3]float32 `yaml:"size"`
	SectionsPerSide int        `yaml:"sections_per_side"`
	VoxelSize       float32    `yaml:"voxel_size"`

	// Content is the initial fill: "rooms", "terrain" or "empty".
	Content string `yaml:"content"`
}

// JobsConfig holds worker pool settings.
type JobsConfig struct {
	Workers int `yaml:"workers"` // <= 0 picks NumCPU-1
}

// PersistenceConfig holds save/load settings.
type PersistenceConfig struct {
	SavePath string `yaml:"save_path"`
	LoadPath string `yaml:"load_path"` // loaded at startup when set
	Compress bool   `yaml:"compress"`
}

// TerrainConfig holds heightfield generation settings.
type TerrainConfig struct {
	Seed       int64   `yaml:"seed"`
	Octaves    int32   `yaml:"octaves"`
	BaseHeight float32 `yaml:"base_height"`
	Amplitude  float32 `yaml:"amplitude"`
	Scale      float32 `yaml:"scale"`
}

// GraphicsConfig holds display and rendering settings.
type GraphicsConfig struct {
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	Fullscreen  bool    `yaml:"fullscreen"`
	VSync       bool    `yaml:"vsync"`
	Wireframe   bool    `yaml:"wireframe"`
	FogDistance float32 `yaml:"fog_distance"`
	BrushRadius float32 `yaml:"brush_radius"`

	// sun position in degrees
	SunLongitude  float32 `yaml:"sun_longitude"`
	SunLatitude   float32 `yaml:"sun_latitude"`
	ScreenshotDir string  `yaml:"screenshot_dir"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Floor: FloorConfig{
			Size:            [3]float32{128, 8, 128},
			SectionsPerSide: 16,
			VoxelSize:       0.125,
			Content:         "rooms",
		},
		Persistence: PersistenceConfig{
			SavePath: "floor.vxm",
		},
		Terrain: TerrainConfig{
			Seed:       1,
			Octaves:    3,
			BaseHeight: 2,
			Amplitude:  3,
			Scale:      0.05,
		},
		Graphics: GraphicsConfig{
			Width:         1280,
			Height:        720,
			VSync:         true,
			FogDistance:   400,
			BrushRadius:   1,
			SunLongitude:  45,
			SunLatitude:   60,
			ScreenshotDir: "screenshots",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
