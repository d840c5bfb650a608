package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Flags holds command-line overrides. Only flags the user set are applied.
type Flags struct {
	sets []*pflag.FlagSet

	ConfigPath  string
	logLevel    string
	logFile     string
	metricsFile string
	grfPaths    []string
	dataDirs    []string

	unit      string
	instances bool
	submeshes bool
	uuids     bool
	metadata  map[string]string
	eps       float64
	workers   int
	debounce  time.Duration
}

// AddGlobalFlags registers flags shared by every command.
func (f *Flags) AddGlobalFlags(fs *pflag.FlagSet) {
	f.sets = append(f.sets, fs)
	fs.StringVar(&f.ConfigPath, "config", "", "Path to config file (.yaml or .toml)")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&f.logFile, "log-file", "", "Also log to this file, rotated")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile on exit")
	fs.StringSliceVar(&f.grfPaths, "grf", nil, "GRF archive to read assets from (repeatable)")
	fs.StringSliceVar(&f.dataDirs, "data", nil, "Directory to read assets from (repeatable)")
}

// AddExportFlags registers flags of commands that write packages.
func (f *Flags) AddExportFlags(fs *pflag.FlagSet) {
	f.sets = append(f.sets, fs)
	fs.StringVar(&f.unit, "unit", "", "Model unit: micron, millimeter, centimeter, inch, foot, meter")
	fs.BoolVar(&f.instances, "instances", true, "Write placed models as component instances")
	fs.BoolVar(&f.submeshes, "submeshes", false, "Write one object per texture with a display colour")
	fs.BoolVar(&f.uuids, "uuids", false, "Add production extension UUIDs")
	fs.StringToStringVar(&f.metadata, "meta", nil, "Model metadata as key=value (repeatable)")
	fs.Float64Var(&f.eps, "eps", 0, "Number quantization step")
	fs.IntVar(&f.workers, "workers", 0, "Parallel model loads, 0 for one per CPU")
}

// AddWatchFlags registers flags of the watch command.
func (f *Flags) AddWatchFlags(fs *pflag.FlagSet) {
	f.sets = append(f.sets, fs)
	fs.DurationVar(&f.debounce, "debounce", 0, "Quiet period before re-exporting")
}

func (f *Flags) changed(name string) bool {
	for _, fs := range f.sets {
		if fs.Changed(name) {
			return true
		}
	}
	return false
}

// applyFlags applies CLI flag overrides to the config.
func (f *Flags) applyFlags(cfg *Config) {
	if f.changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if f.changed("log-file") {
		cfg.Logging.LogFile = f.logFile
	}
	if f.changed("metrics-file") {
		cfg.Metrics.Textfile = f.metricsFile
	}
	if f.changed("grf") {
		cfg.Data.GRFPaths = f.grfPaths
	}
	if f.changed("data") {
		cfg.Data.Dirs = f.dataDirs
	}
	if f.changed("unit") {
		cfg.Export.Unit = f.unit
	}
	if f.changed("instances") {
		cfg.Export.Instances = f.instances
	}
	if f.changed("submeshes") {
		cfg.Export.Submeshes = f.submeshes
	}
	if f.changed("uuids") {
		cfg.Export.UUIDs = f.uuids
	}
	if f.changed("meta") {
		if cfg.Export.Metadata == nil {
			cfg.Export.Metadata = make(map[string]string)
		}
		for k, v := range f.metadata {
			cfg.Export.Metadata[k] = v
		}
	}
	if f.changed("eps") {
		cfg.Format.Eps = f.eps
	}
	if f.changed("workers") {
		cfg.Export.Workers = f.workers
	}
	if f.changed("debounce") {
		cfg.Watch.Debounce = Duration(f.debounce)
	}
}
