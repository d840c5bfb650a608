package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-3mf/internal/assets"
	"github.com/Faultbox/midgard-3mf/internal/config"
	"github.com/Faultbox/midgard-3mf/internal/scene"
)

// newManager opens the configured archives and data directories. Missing
// archives are skipped so the default data.grf is optional.
func newManager(cfg config.DataConfig, log *zap.Logger) (*assets.Manager, error) {
	m := assets.NewManager(log)
	for _, path := range cfg.GRFPaths {
		if err := m.AddArchive(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Warn("archive not found, skipping", zap.String("path", path))
				continue
			}
			m.Close()
			return nil, err
		}
	}
	for _, dir := range cfg.Dirs {
		if err := m.AddDir(dir); err != nil {
			m.Close()
			return nil, err
		}
	}
	return m, nil
}

// input is an export source resolved against the asset manager.
type input struct {
	// Name is the asset path passed to the scene loader.
	Name string
	// Disk is the file on disk, empty when the input lives in an archive.
	Disk string
}

// resolveInput maps a command line argument to an asset path. A file on
// disk adds the data root it sits under as a source: the directory above
// its "data" path element, or its own directory when there is none.
// Anything else is looked up in the configured sources.
func resolveInput(m *assets.Manager, arg string) (input, error) {
	info, err := os.Stat(arg)
	if err != nil || info.IsDir() {
		if m.Exists(arg) {
			return input{Name: arg}, nil
		}
		return input{}, fmt.Errorf("input %s: not found on disk or in any source", arg)
	}

	abs, err := filepath.Abs(arg)
	if err != nil {
		return input{}, fmt.Errorf("input %s: %w", arg, err)
	}
	root, name := splitDataRoot(abs)
	if err := m.AddDir(root); err != nil {
		return input{}, err
	}
	return input{Name: name, Disk: abs}, nil
}

// splitDataRoot splits an absolute path at its last "data" element.
func splitDataRoot(abs string) (root, name string) {
	parts := strings.Split(filepath.ToSlash(abs), "/")
	for i := len(parts) - 2; i >= 0; i-- {
		if strings.EqualFold(parts[i], "data") {
			root = filepath.FromSlash(strings.Join(parts[:i], "/"))
			if root == "" {
				root = string(filepath.Separator)
			}
			return root, strings.Join(parts[i:], "/")
		}
	}
	return filepath.Dir(abs), filepath.Base(abs)
}

// watchedFiles lists the files on disk a re-export depends on. For maps
// the ground next to the world file is included when it exists.
func watchedFiles(in input) []string {
	if in.Disk == "" {
		return nil
	}
	files := []string{in.Disk}
	if strings.EqualFold(filepath.Ext(in.Disk), ".rsw") {
		gnd := strings.TrimSuffix(in.Disk, filepath.Ext(in.Disk)) + ".gnd"
		if _, err := os.Stat(gnd); err == nil {
			files = append(files, gnd)
		}
	}
	return files
}

func loadOptions(cfg *config.Config, log *zap.Logger) []scene.Option {
	return []scene.Option{
		scene.WithLogger(log),
		scene.WithWorkers(cfg.Export.Workers),
		scene.WithWeldEpsilon(cfg.Export.WeldEpsilon),
	}
}
