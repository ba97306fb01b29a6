package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file (.yaml or .toml)")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile   = flag.String("log-file", "", "Write logs to this file as well")
	flagAssetRoot = flag.String("asset-root", "", "Base directory or URL for relative asset paths")
	flagWatch     = flag.Bool("watch", false, "Reload file-backed assets when they change")
	flagWorkers   = flag.Int("loader-workers", 0, "Max concurrent asset decode tasks")
	flagGPU       = flag.Bool("gpu", false, "Upload buffers through a headless wgpu device")
	flagNoCull    = flag.Bool("no-cull", false, "Disable instance culling")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagAssetRoot != "" {
		cfg.Loader.AssetRoot = *flagAssetRoot
	}
	if *flagWatch {
		cfg.Loader.Watch = true
	}
	if *flagWorkers > 0 {
		cfg.Loader.Workers = *flagWorkers
	}
	if *flagGPU {
		cfg.Renderer.GPU = true
	}
	if *flagNoCull {
		cfg.Culling.Enabled = false
	}
}
