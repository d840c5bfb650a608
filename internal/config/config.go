// Package config handles mr3mf configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/Faultbox/midgard-3mf/pkg/export"
	"github.com/Faultbox/midgard-3mf/pkg/threemf"
	"github.com/Faultbox/midgard-3mf/pkg/xmlser"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all mr3mf settings.
type Config struct {
	Export    ExportConfig         `yaml:"export" toml:"export"`
	Data      DataConfig           `yaml:"data" toml:"data"`
	Format    xmlser.FormatOptions `yaml:"format" toml:"format"`
	Writer    WriterConfig         `yaml:"writer" toml:"writer"`
	Logging   LoggingConfig        `yaml:"logging" toml:"logging"`
	Metrics   MetricsConfig        `yaml:"metrics" toml:"metrics"`
	Telemetry TelemetryConfig      `yaml:"telemetry" toml:"telemetry"`
	Watch     WatchConfig          `yaml:"watch" toml:"watch"`
}

// ExportConfig holds document and object settings.
type ExportConfig struct {
	Unit      string            `yaml:"unit" toml:"unit"`
	Instances bool              `yaml:"instances" toml:"instances"`
	Submeshes bool              `yaml:"submeshes" toml:"submeshes"`
	UUIDs     bool              `yaml:"uuids" toml:"uuids"`
	Metadata  map[string]string `yaml:"metadata,omitempty" toml:"metadata,omitempty"`
	// Materials override the per-texture palette when set.
	Materials []MaterialConfig `yaml:"materials,omitempty" toml:"materials,omitempty"`
	// WeldEpsilon merges STL vertices closer than this.
	WeldEpsilon float32 `yaml:"weld_epsilon" toml:"weld_epsilon"`
	// Workers bounds parallel model loads; 0 means one per CPU.
	Workers int `yaml:"workers" toml:"workers"`
}

// MaterialConfig is a named display colour in #rrggbb form.
type MaterialConfig struct {
	Name  string `yaml:"name" toml:"name"`
	Color string `yaml:"color" toml:"color"`
}

// DataConfig holds game data locations. Later entries win.
type DataConfig struct {
	GRFPaths []string `yaml:"grf_paths" toml:"grf_paths"`
	Dirs     []string `yaml:"dirs" toml:"dirs"`
}

// WriterConfig holds streaming writer settings.
type WriterConfig struct {
	FlushChars int `yaml:"flush_chars" toml:"flush_chars"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level" toml:"level"`
	LogFile    string `yaml:"log_file" toml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days"`
	Compress   bool   `yaml:"compress" toml:"compress"`
}

// MetricsConfig holds the Prometheus textfile output.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" toml:"textfile"`
}

// TelemetryConfig holds OTLP trace export settings.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled" toml:"enabled"`
	Endpoint    string  `yaml:"endpoint" toml:"endpoint"`
	Insecure    bool    `yaml:"insecure" toml:"insecure"`
	ServiceName string  `yaml:"service_name" toml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate" toml:"sample_rate"`
}

// WatchConfig holds re-export settings.
type WatchConfig struct {
	Debounce Duration `yaml:"debounce" toml:"debounce"`
}

// Duration is a time.Duration written as "250ms" in config files.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			Unit:        string(threemf.UnitMillimeter),
			Instances:   true,
			WeldEpsilon: 1e-5,
		},
		Data: DataConfig{
			GRFPaths: []string{"data.grf"},
			Dirs:     []string{},
		},
		Format: xmlser.DefaultFormatOptions(),
		Writer: WriterConfig{
			FlushChars: xmlser.DefaultFlushChars,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
		Telemetry: TelemetryConfig{
			Endpoint:    "localhost:4317",
			Insecure:    true,
			ServiceName: "mr3mf",
			SampleRate:  1,
		},
		Watch: WatchConfig{
			Debounce: Duration(250 * time.Millisecond),
		},
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if _, err := threemf.ParseUnit(c.Export.Unit); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Format.Eps <= 0 {
		return fmt.Errorf("%w: format.eps must be positive, got %g", ErrInvalid, c.Format.Eps)
	}
	if c.Format.MaxDecimalsCap < 0 {
		return fmt.Errorf("%w: format.max_decimals must not be negative", ErrInvalid)
	}
	if c.Writer.FlushChars < 0 {
		return fmt.Errorf("%w: writer.flush_chars must not be negative", ErrInvalid)
	}
	if c.Export.Workers < 0 {
		return fmt.Errorf("%w: export.workers must not be negative", ErrInvalid)
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("%w: telemetry.sample_rate must be in [0, 1]", ErrInvalid)
	}
	if _, err := c.Materials(); err != nil {
		return err
	}
	return nil
}

// Materials parses the configured material colours. The colours are given
// in sRGB and returned linear.
func (c *Config) Materials() ([]export.NamedColor, error) {
	out := make([]export.NamedColor, 0, len(c.Export.Materials))
	for i, m := range c.Export.Materials {
		col, err := colorful.Hex(m.Color)
		if err != nil {
			return nil, fmt.Errorf("%w: material %d (%s): %v", ErrInvalid, i, m.Name, err)
		}
		r, g, b := col.LinearRgb()
		out = append(out, export.NamedColor{Name: m.Name, Color: colorful.Color{R: r, G: g, B: b}})
	}
	return out, nil
}

// ExportOptions maps the config onto exporter options. Logger, metrics and
// tracer are left for the caller.
func (c *Config) ExportOptions() (export.Options, error) {
	unit, err := threemf.ParseUnit(c.Export.Unit)
	if err != nil {
		return export.Options{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	materials, err := c.Materials()
	if err != nil {
		return export.Options{}, err
	}
	opts := export.DefaultOptions()
	opts.Unit = unit
	opts.ExportInstances = c.Export.Instances
	opts.ExportSubmeshes = c.Export.Submeshes
	opts.UUIDs = c.Export.UUIDs
	opts.Metadata = c.Export.Metadata
	opts.Materials = materials
	opts.Format = c.Format
	opts.FlushChars = c.Writer.FlushChars
	return opts, nil
}
