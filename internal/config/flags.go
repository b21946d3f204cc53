package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagModel     = flag.String("model", "", "Model URL or file path (.glb or .gltf)")
	flagWatch     = flag.Bool("watch", false, "Reload the model when the file changes")
	flagSnapshot  = flag.Bool("snapshot", false, "Export a preview image after loading")
	flagWireframe = flag.Bool("wireframe", false, "Render meshes as wireframes")
	flagClip      = flag.String("clip", "", "Animation clip to select")
	flagPlay      = flag.Bool("play", false, "Start the selected clip")

	flagWriteConfig = flag.String("write-config", "", "Write the effective config to this path (.yaml or .toml) and exit")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// WriteConfigPath returns the path given via --write-config, if any.
func WriteConfigPath() string {
	return *flagWriteConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagModel != "" {
		cfg.Viewer.Model = *flagModel
	}
	if *flagWatch {
		cfg.Watch.Enabled = true
	}
	if *flagSnapshot {
		cfg.Snapshot.Enabled = true
	}
	if *flagWireframe {
		cfg.Viewer.Wireframe = true
	}
	if *flagClip != "" {
		cfg.Viewer.Clip = *flagClip
	}
	if *flagPlay {
		cfg.Viewer.Play = true
	}
}
