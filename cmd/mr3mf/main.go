// mr3mf converts Ragnarok Online models, grounds and maps into 3MF packages.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-3mf/internal/config"
	"github.com/Faultbox/midgard-3mf/internal/logger"
	"github.com/Faultbox/midgard-3mf/internal/metrics"
	"github.com/Faultbox/midgard-3mf/internal/telemetry"
)

// app carries what every command needs once flags and config are parsed.
type app struct {
	flags     config.Flags
	cfg       *config.Config
	log       *zap.Logger
	metrics   *metrics.Collector
	telemetry *telemetry.Providers
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	err = errors.Join(err, a.close())
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "mr3mf",
		Short: "Convert Ragnarok Online models and maps to 3MF",
		Long: `mr3mf converts RSM models, GND grounds, RSW maps and STL meshes into
3MF packages for slicers and CAD tools. Assets are read from GRF archives
and data directories.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	a.flags.AddGlobalFlags(root.PersistentFlags())

	root.AddCommand(
		newExportCmd(a),
		newInspectCmd(a),
		newWatchCmd(a),
		newGRFCmd(),
		newConfigCmd(a),
	)
	return root
}

// setup loads the config and starts logging, metrics and tracing.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(&a.flags)
	if err != nil {
		return err
	}
	a.cfg = cfg

	fileCfg := logger.FileConfig{}
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.FileConfig{
			Path:       cfg.Logging.LogFile,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		}
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, cmd.ErrOrStderr()); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	a.log = logger.Log

	a.metrics = metrics.NewCollector(a.log)
	a.telemetry, err = telemetry.Init(cfg.Telemetry, a.log)
	if err != nil {
		return err
	}
	a.log.Debug("command started", zap.String("command", cmd.CommandPath()))
	return nil
}

// close flushes metrics, traces and logs. It is safe to call when setup
// did not run.
func (a *app) close() error {
	var errs []error
	if a.metrics != nil && a.cfg != nil && a.cfg.Metrics.Textfile != "" {
		if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			errs = append(errs, err)
		}
	}
	if a.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.log.Warn("telemetry shutdown failed", zap.Error(err))
		}
		cancel()
	}
	logger.Sync()
	return errors.Join(errs...)
}
