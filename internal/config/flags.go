package config

import "flag"

// Flags are command-line overrides bound to a flag set.
type Flags struct {
	ConfigPath string
	Debug      bool
	Store      string
	Brushes    string
	Metrics    string
	Seed       uint64
}

// BindFlags registers the shared overrides on fs.
func BindFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.ConfigPath, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.Store, "store", "", "Terrain database directory")
	fs.StringVar(&f.Brushes, "brushes", "", "Extra brush stamp directory")
	fs.StringVar(&f.Metrics, "metrics", "", "Serve Prometheus metrics on this address")
	fs.Uint64Var(&f.Seed, "seed", 0, "Fixed jitter seed")
	return f
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Store != "" {
		cfg.Storage.Path = f.Store
	}
	if f.Brushes != "" {
		cfg.Brushes.Dirs = append(cfg.Brushes.Dirs, f.Brushes)
	}
	if f.Metrics != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = f.Metrics
	}
	if f.Seed != 0 {
		cfg.Editor.JitterSeed = f.Seed
	}
}
