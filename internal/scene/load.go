package scene

import (
	"context"
	"errors"
	"fmt"
	"path"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/midgard-3mf/pkg/formats"
	"github.com/Faultbox/midgard-3mf/pkg/math"
)

// ErrUnsupportedFormat is returned by LoadFile for unknown extensions.
var ErrUnsupportedFormat = errors.New("unsupported input format")

// Source loads asset bytes by path.
type Source interface {
	Load(ctx context.Context, name string) ([]byte, error)
}

type loadConfig struct {
	log     *zap.Logger
	workers int
	weldEps float32
}

// Option configures LoadFile and LoadMap.
type Option func(*loadConfig)

// WithLogger sets the logger used for skipped assets.
func WithLogger(log *zap.Logger) Option {
	return func(c *loadConfig) { c.log = log }
}

// WithWorkers bounds the number of models loaded at once.
func WithWorkers(n int) Option {
	return func(c *loadConfig) { c.workers = n }
}

// WithWeldEpsilon sets the STL vertex merge distance.
func WithWeldEpsilon(eps float32) Option {
	return func(c *loadConfig) { c.weldEps = eps }
}

func newLoadConfig(opts []Option) loadConfig {
	c := loadConfig{workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(&c)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.workers < 1 {
		c.workers = 1
	}
	c.log = c.log.With(zap.String("component", "scene"))
	return c
}

// LoadFile loads one model, ground or map and returns it as a scene named
// after the file.
func LoadFile(ctx context.Context, src Source, name string, opts ...Option) (*Scene, error) {
	kind := formats.KindOf(name)
	if kind == formats.KindRSW {
		return LoadMap(ctx, src, name, opts...)
	}
	if kind == formats.KindUnknown {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}

	cfg := newLoadConfig(opts)
	data, err := src.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}

	base := baseName(name)
	s := NewScene(base)
	var mesh *Mesh
	switch kind {
	case formats.KindRSM:
		rsm, err := formats.ParseRSM(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		mesh = RSMMesh(rsm, base)
	case formats.KindGND:
		gnd, err := formats.ParseGND(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		mesh = GroundMesh(gnd, base)
	case formats.KindSTL:
		model, err := formats.ParseSTL(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		mesh = STLMesh(model, base, cfg.weldEps)
	}
	s.AddMesh(mesh)

	cfg.log.Debug("file loaded",
		zap.String("path", name),
		zap.Stringer("kind", kind),
		zap.Int("vertices", len(mesh.Positions)/3),
		zap.Int("triangles", len(mesh.Index)/3))
	return s, nil
}

// LoadMap loads a world file, its ground and every placed model. Each model
// file becomes one mesh shared by all its placements. Models that are
// missing or fail to parse are skipped with a warning.
func LoadMap(ctx context.Context, src Source, rswPath string, opts ...Option) (*Scene, error) {
	cfg := newLoadConfig(opts)

	data, err := src.Load(ctx, rswPath)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", rswPath, err)
	}
	rsw, err := formats.ParseRSW(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", rswPath, err)
	}

	s := NewScene(baseName(rswPath))

	gndPath := groundPath(rswPath, rsw.GndFile)
	data, err = src.Load(ctx, gndPath)
	if err != nil {
		return nil, fmt.Errorf("loading ground %s: %w", gndPath, err)
	}
	gnd, err := formats.ParseGND(data)
	if err != nil {
		return nil, fmt.Errorf("parsing ground %s: %w", gndPath, err)
	}
	s.AddMesh(GroundMesh(gnd, baseName(gndPath)))

	refs := rsw.Models()
	var files []string
	seen := make(map[string]int)
	for _, ref := range refs {
		key := strings.ToLower(ref.ModelName)
		if _, ok := seen[key]; !ok {
			seen[key] = len(files)
			files = append(files, ref.ModelName)
		}
	}

	meshes := make([]*Mesh, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers)
	for i, file := range files {
		g.Go(func() error {
			mesh, err := loadModel(gctx, src, file)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				cfg.log.Warn("model skipped", zap.String("model", file), zap.Error(err))
				return nil
			}
			meshes[i] = mesh
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	placed := 0
	for i, ref := range refs {
		mesh := meshes[seen[strings.ToLower(ref.ModelName)]]
		if mesh == nil || len(mesh.Index) == 0 {
			continue
		}
		name := ref.Name
		if name == "" {
			name = fmt.Sprintf("%s#%d", mesh.Name(), i)
		}
		s.AddInstance(name, mesh, Placement(ref))
		placed++
	}

	cfg.log.Info("map loaded",
		zap.String("map", rswPath),
		zap.Int("models", len(files)),
		zap.Int("placements", placed),
		zap.Int("skipped", len(refs)-placed))
	return s, nil
}

func loadModel(ctx context.Context, src Source, file string) (*Mesh, error) {
	name := "data/model/" + strings.ReplaceAll(file, "\\", "/")
	data, err := src.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	rsm, err := formats.ParseRSM(data)
	if err != nil {
		return nil, err
	}
	return RSMMesh(rsm, baseName(file)), nil
}

// Placement is Translate * RotY * RotX * RotZ * Scale for a placed model,
// with the world Y axis flipped to point up. Rotations are in degrees.
func Placement(ref *formats.RSWModel) math.Mat4 {
	m := math.Translate(ref.Position[0], -ref.Position[1], ref.Position[2])
	m = m.Mul(math.RotateY(math.Radians(ref.Rotation[1])))
	m = m.Mul(math.RotateX(math.Radians(ref.Rotation[0])))
	m = m.Mul(math.RotateZ(math.Radians(ref.Rotation[2])))
	return m.Mul(math.Scale(ref.Scale[0], ref.Scale[1], ref.Scale[2]))
}

// groundPath resolves the ground file named by a world file. Worlds that
// name none use their own path with a .gnd extension.
func groundPath(rswPath, gndFile string) string {
	if gndFile == "" {
		return strings.TrimSuffix(rswPath, path.Ext(rswPath)) + ".gnd"
	}
	gndFile = strings.ReplaceAll(gndFile, "\\", "/")
	if dir := path.Dir(strings.ReplaceAll(rswPath, "\\", "/")); dir != "." {
		return path.Join(dir, gndFile)
	}
	return gndFile
}

func baseName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}
