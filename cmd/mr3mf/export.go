package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Faultbox/midgard-3mf/internal/assets"
	"github.com/Faultbox/midgard-3mf/internal/scene"
	"github.com/Faultbox/midgard-3mf/pkg/export"
)

// errNothingToExport is returned when the input holds no triangles.
var errNothingToExport = errors.New("nothing to export")

func newExportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <input>",
		Short: "Write a model, ground or map as a 3MF package",
		Long: `Export loads an RSM model, GND ground, RSW map or STL mesh and writes it
as a 3MF package. The input is a file on disk or a path inside one of the
configured GRF archives and data directories.`,
		Example: `  mr3mf export data/prontera.rsw -o prontera.3mf
  mr3mf export --grf data.grf data/model/prontera/tree.rsm --submeshes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager(a.cfg.Data, a.log)
			if err != nil {
				return err
			}
			defer m.Close()

			in, err := resolveInput(m, args[0])
			if err != nil {
				return err
			}
			out := output
			if out == "" {
				out = defaultOutput(in.Name)
			}
			if err := a.export(cmd.Context(), m, in, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: input name with .3mf)")
	a.flags.AddExportFlags(cmd.Flags())
	return cmd
}

// export loads in and writes it to out.
func (a *app) export(ctx context.Context, m *assets.Manager, in input, out string) error {
	s, err := scene.LoadFile(ctx, m, in.Name, loadOptions(a.cfg, a.log)...)
	if err != nil {
		return err
	}
	hits, misses := m.CacheStats()
	a.metrics.SetCacheStats(hits, misses)

	opts, err := a.cfg.ExportOptions()
	if err != nil {
		return err
	}
	if opts.ExportSubmeshes && len(opts.Materials) == 0 {
		opts.Materials, err = s.TexturePalette(ctx, m, loadOptions(a.cfg, a.log)...)
		if err != nil {
			return err
		}
	}
	opts.Logger = a.log
	opts.Metrics = a.metrics

	written, err := writePackage(ctx, export.New(opts), s.Scene, out)
	if err != nil {
		return err
	}
	if !written {
		return fmt.Errorf("%s: %w", in.Name, errNothingToExport)
	}
	return nil
}

// writePackage streams the package into a temporary file next to out and
// renames it into place once complete. Nothing is left behind on failure
// or when the scene is empty.
func writePackage(ctx context.Context, exp *export.Exporter, s export.Scene, out string) (written bool, err error) {
	dir := filepath.Dir(out)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.CreateTemp(dir, ".mr3mf-*.tmp")
	if err != nil {
		return false, fmt.Errorf("creating output: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if !written {
			f.Close()
			os.Remove(tmp)
		}
	}()

	// A failed write cancels ctx so the exporter stops compressing.
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	w := bufio.NewWriterSize(f, 256*1024)
	var (
		sinkErr error
		n       int64
	)
	fail := func(err error) {
		sinkErr = err
		cancel(err)
	}
	sink := func(err error, chunk []byte, _ bool) {
		if sinkErr != nil {
			return
		}
		if err != nil {
			fail(err)
			return
		}
		k, err := w.Write(chunk)
		n += int64(k)
		if err != nil {
			fail(fmt.Errorf("writing %s: %w", out, err))
		}
	}

	err = exp.Write(ctx, sink, s)
	if sinkErr != nil {
		return false, sinkErr
	}
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if err := w.Flush(); err != nil {
		return false, fmt.Errorf("writing %s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("closing %s: %w", out, err)
	}
	if err := os.Rename(tmp, out); err != nil {
		return false, fmt.Errorf("renaming output: %w", err)
	}
	return true, nil
}

// defaultOutput names the package after the input file, in the working
// directory.
func defaultOutput(name string) string {
	base := filepath.Base(filepath.FromSlash(strings.ReplaceAll(name, "\\", "/")))
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".3mf"
}
