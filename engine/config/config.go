// Package config handles engine configuration loading and management.
package config

import (
	"runtime"
	"time"
)

// Config holds all engine settings.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Loader    LoaderConfig    `yaml:"loader" toml:"loader"`
	Culling   CullingConfig   `yaml:"culling" toml:"culling"`
	Animation AnimationConfig `yaml:"animation" toml:"animation"`
	Buffers   BuffersConfig   `yaml:"buffers" toml:"buffers"`
	Scene     SceneConfig     `yaml:"scene" toml:"scene"`
	Renderer  RendererConfig  `yaml:"renderer" toml:"renderer"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// LoaderConfig holds asset loading settings.
type LoaderConfig struct {
	Workers     int      `yaml:"workers" toml:"workers"`         // Max concurrent decode tasks
	QueueSize   int      `yaml:"queue_size" toml:"queue_size"`   // Pending task queue length
	IdleTimeout Duration `yaml:"idle_timeout" toml:"idle_timeout"` // Idle worker shutdown delay
	HTTPTimeout Duration `yaml:"http_timeout" toml:"http_timeout"`
	AssetRoot   string   `yaml:"asset_root" toml:"asset_root"` // Base for relative asset URLs
	Watch       bool     `yaml:"watch" toml:"watch"`           // Reload file assets on change
}

// CullingConfig holds instance culling and LOD settings.
type CullingConfig struct {
	Enabled        bool    `yaml:"enabled" toml:"enabled"`
	FovYDegrees    float32 `yaml:"fov_y_degrees" toml:"fov_y_degrees"`
	FallbackWidth  uint32  `yaml:"fallback_width" toml:"fallback_width"`
	FallbackHeight uint32  `yaml:"fallback_height" toml:"fallback_height"`
	Near           float32 `yaml:"near" toml:"near"`
	Far            float32 `yaml:"far" toml:"far"`
}

// AnimationConfig holds skeletal animation settings.
type AnimationConfig struct {
	TickRate float32 `yaml:"tick_rate" toml:"tick_rate"` // Animation time advance per frame is 1/TickRate seconds
}

// BuffersConfig holds initial GPU buffer capacities, in elements.
type BuffersConfig struct {
	Vertices  int `yaml:"vertices" toml:"vertices"`
	Indices   int `yaml:"indices" toml:"indices"`
	Instances int `yaml:"instances" toml:"instances"`
	Joints    int `yaml:"joints" toml:"joints"`
}

// SceneConfig holds per-frame system settings.
type SceneConfig struct {
	Workers          int      `yaml:"workers" toml:"workers"`
	ErrorSampleTick  Duration `yaml:"error_sample_tick" toml:"error_sample_tick"`
	ErrorSampleFirst int      `yaml:"error_sample_first" toml:"error_sample_first"`
}

// RendererConfig selects the buffer backend.
type RendererConfig struct {
	GPU                  bool `yaml:"gpu" toml:"gpu"`
	ForceFallbackAdapter bool `yaml:"force_fallback_adapter" toml:"force_fallback_adapter"`
}

// Duration is a time.Duration that reads and writes as a string such as "250ms" in both YAML and TOML.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Loader: LoaderConfig{
			Workers:     max(runtime.NumCPU()-1, 1),
			QueueSize:   64,
			IdleTimeout: Duration(5 * time.Second),
			HTTPTimeout: Duration(30 * time.Second),
			AssetRoot:   ".",
			Watch:       false,
		},
		Culling: CullingConfig{
			Enabled:        true,
			FovYDegrees:    59,
			FallbackWidth:  1024,
			FallbackHeight: 1024,
			Near:           0.001,
			Far:            1000,
		},
		Animation: AnimationConfig{
			TickRate: 60,
		},
		Buffers: BuffersConfig{
			Vertices:  1 << 16,
			Indices:   1 << 18,
			Instances: 1 << 12,
			Joints:    65536 / 32,
		},
		Scene: SceneConfig{
			Workers:          max(runtime.NumCPU()-1, 1),
			ErrorSampleTick:  Duration(time.Second),
			ErrorSampleFirst: 5,
		},
		Renderer: RendererConfig{
			GPU: false,
		},
	}
}
