package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file (.yaml or .toml)")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagBoundary = flag.String("boundary", "", "Boundary mode: none, edge_only, edge_and_corner")
	flagRate     = flag.Float64("rate", 0, "Tessellation rate for meshes without levels")
	flagWorkers  = flag.Int("workers", 0, "Worker goroutines for mesh builds")
	flagMetrics  = flag.String("metrics", "", "Address for the /metrics endpoint")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag arguments.
func Args() []string {
	return flag.Args()
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
	if *flagBoundary != "" {
		cfg.Subdiv.BoundaryMode = *flagBoundary
	}
	if *flagRate > 0 {
		cfg.Subdiv.TessellationRate = float32(*flagRate)
	}
	if *flagWorkers > 0 {
		cfg.Subdiv.Workers = *flagWorkers
	}
	if *flagMetrics != "" {
		cfg.Cache.MetricsAddr = *flagMetrics
	}
}

// BoundaryFlag returns the -boundary value, empty when not given. Unlike
// the config file setting it takes priority over a mesh file's own mode.
func BoundaryFlag() string {
	return *flagBoundary
}
