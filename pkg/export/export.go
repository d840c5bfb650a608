// Package export turns scenes of meshes and instances into 3MF packages.
package export

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/lucasb-eyer/go-colorful"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-3mf/pkg/geometry"
	"github.com/Faultbox/midgard-3mf/pkg/opc"
	"github.com/Faultbox/midgard-3mf/pkg/threemf"
	"github.com/Faultbox/midgard-3mf/pkg/xmlser"
)

const tracerName = "github.com/Faultbox/midgard-3mf/pkg/export"

// uuidSpace roots the name-based UUIDs of exported resources.
var uuidSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/Faultbox/midgard-3mf"))

// NamedColor is one palette entry. Color holds linear RGB.
type NamedColor struct {
	Name  string
	Color colorful.Color
}

// Stats describes one export.
type Stats struct {
	Objects   int
	Vertices  int
	Triangles int
	Instances int
	Bytes     int64
	Duration  time.Duration
}

// Export outcomes passed to a Recorder.
const (
	StatusOK    = "ok"
	StatusEmpty = "empty"
	StatusError = "error"
)

// Recorder receives the outcome of every Write.
type Recorder interface {
	RecordExport(status string, stats Stats)
}

type nopRecorder struct{}

func (nopRecorder) RecordExport(string, Stats) {}

// Options configures an Exporter.
type Options struct {
	// ExportInstances adds one components object per instanced mesh.
	ExportInstances bool
	// ExportSubmeshes writes one object per submesh instead of per mesh.
	ExportSubmeshes bool
	// UUIDs adds production extension UUIDs to objects, components and items.
	UUIDs bool

	Unit      threemf.Unit
	Metadata  map[string]string
	Materials []NamedColor

	Format     xmlser.FormatOptions
	FlushChars int
	Resolver   *opc.Resolver

	Logger  *zap.Logger
	Metrics Recorder
	Tracer  trace.Tracer
}

// DefaultOptions exports whole meshes in millimeters with instances.
func DefaultOptions() Options {
	return Options{
		ExportInstances: true,
		Unit:            threemf.UnitMillimeter,
		Format:          xmlser.DefaultFormatOptions(),
		FlushChars:      xmlser.DefaultFlushChars,
	}
}

// Scene is the geometry handed to an export.
type Scene struct {
	Name      string
	Meshes    []geometry.Mesh
	Instances []geometry.Instance
}

// Exporter builds documents from scenes and packages them. It is safe for
// concurrent use.
type Exporter struct {
	opts     Options
	packager *opc.Packager
	log      *zap.Logger
	metrics  Recorder
	tracer   trace.Tracer
}

// New creates an Exporter. Zero fields of opts fall back to DefaultOptions
// where that matters.
func New(opts Options) *Exporter {
	if opts.Unit == "" {
		opts.Unit = threemf.UnitMillimeter
	}
	if opts.Format.Eps == 0 {
		opts.Format = xmlser.DefaultFormatOptions()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = nopRecorder{}
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	return &Exporter{
		opts: opts,
		packager: opc.NewPackager(opts.Resolver,
			opc.WithFormatOptions(opts.Format),
			opc.WithFlushChars(opts.FlushChars),
			opc.WithLogger(log),
		),
		log:     log.With(zap.String("component", "export")),
		metrics: metrics,
		tracer:  tracer,
	}
}

// ToDocument builds the 3MF document for scene. It returns nil and no error
// when the scene has no exportable geometry.
func (e *Exporter) ToDocument(scene Scene) (*threemf.Document, error) {
	doc, _, err := e.build(scene)
	return doc, err
}

// docBuild carries the state of one ToDocument call.
type docBuild struct {
	e       *Exporter
	scene   Scene
	ids     *threemf.IncrementalIDFactory
	mb      *threemf.ModelBuilder
	matID   int
	palette int
	objects map[geometry.Mesh][]int
	stats   Stats
}

func (e *Exporter) build(scene Scene) (*threemf.Document, Stats, error) {
	b := &docBuild{
		e:       e,
		scene:   scene,
		ids:     threemf.DefaultIDFactory(),
		mb:      threemf.NewModelBuilder().WithUnit(e.opts.Unit),
		objects: make(map[geometry.Mesh][]int),
	}

	if e.opts.UUIDs {
		b.mb.WithRecommendedExtension(threemf.ProductionPrefix, threemf.ProductionNamespace)
		b.mb.WithBuildUUID(b.uuid("build"))
	}

	keys := make([]string, 0, len(e.opts.Metadata))
	for k := range e.opts.Metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		b.mb.WithMetaData(k, e.opts.Metadata[k])
	}

	if err := b.addMaterials(); err != nil {
		return nil, b.stats, err
	}

	for _, mesh := range scene.Meshes {
		if mesh == nil {
			continue
		}
		ids, err := b.meshObjects(mesh)
		if err != nil {
			return nil, b.stats, err
		}
		world := transformOf(mesh.WorldMatrix())
		for _, id := range ids {
			b.addItem(id, world)
		}
	}

	if e.opts.ExportInstances {
		if err := b.addInstances(); err != nil {
			return nil, b.stats, err
		}
	} else if len(scene.Instances) > 0 {
		e.log.Debug("instances skipped", zap.Int("instances", len(scene.Instances)))
	}

	if b.stats.Objects == 0 {
		e.log.Info("nothing to export", zap.String("scene", scene.Name))
		return nil, b.stats, nil
	}

	doc, err := threemf.NewDocumentBuilder().WithModelBuilder(b.mb).Build()
	if err != nil {
		return nil, b.stats, fmt.Errorf("build document: %w", err)
	}
	return doc, b.stats, nil
}

func (b *docBuild) addMaterials() error {
	if len(b.e.opts.Materials) == 0 {
		return nil
	}
	id, err := b.ids.Next()
	if err != nil {
		return err
	}
	mat := threemf.NewMaterialBuilder(id)
	for _, c := range b.e.opts.Materials {
		mat.WithColor(c.Name, c.Color)
	}
	b.mb.WithMaterial(mat.Build())
	b.matID = id
	b.palette = mat.Len()
	return nil
}

type meshPart struct {
	name     string
	data     *geometry.VertexData
	material int
}

// meshObjects adds the objects for mesh once and returns their IDs.
func (b *docBuild) meshObjects(mesh geometry.Mesh) ([]int, error) {
	if ids, ok := b.objects[mesh]; ok {
		return ids, nil
	}

	var parts []meshPart
	if subs := mesh.SubMeshes(); b.e.opts.ExportSubmeshes && len(subs) > 0 {
		for i, sm := range subs {
			data := geometry.ExtractSubMesh(mesh, sm)
			if data == nil {
				b.e.log.Debug("empty submesh skipped",
					zap.String("mesh", mesh.Name()), zap.Int("submesh", i))
				continue
			}
			parts = append(parts, meshPart{
				name:     fmt.Sprintf("%s_%d", mesh.Name(), i),
				data:     data,
				material: sm.MaterialIndex,
			})
		}
	} else if data := geometry.FullData(mesh); data != nil {
		parts = append(parts, meshPart{name: mesh.Name(), data: data})
	} else {
		b.e.log.Debug("empty mesh skipped", zap.String("mesh", mesh.Name()))
	}

	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		id, err := b.ids.Next()
		if err != nil {
			return nil, err
		}
		ob := threemf.NewMeshObjectBuilder(id, threemf.ObjectModel).
			WithPostProcessHandlers(YUpToZUp, nil).
			WithData(p.data).
			WithName(p.name)
		if b.palette > 0 {
			ob.WithMaterial(b.matID, wrapIndex(p.material, b.palette))
		}
		if b.e.opts.UUIDs {
			ob.WithUUID(b.uuid("object", id, p.name))
		}
		b.mb.WithMesh(ob.Build())

		b.stats.Objects++
		b.stats.Vertices += p.data.VertexCount()
		b.stats.Triangles += p.data.TriangleCount()
		b.e.log.Debug("object added",
			zap.Int("object_id", id),
			zap.String("name", p.name),
			zap.Int("vertex_count", p.data.VertexCount()),
			zap.Int("triangle_count", p.data.TriangleCount()),
		)
		ids = append(ids, id)
	}
	b.objects[mesh] = ids
	return ids, nil
}

// addInstances groups instances by source mesh, in first-seen order, into
// one components object each. Source geometry is written once.
func (b *docBuild) addInstances() error {
	var order []geometry.Mesh
	groups := make(map[geometry.Mesh][]geometry.Instance)
	for _, inst := range b.scene.Instances {
		if inst == nil || inst.SourceMesh() == nil {
			continue
		}
		src := inst.SourceMesh()
		if _, ok := groups[src]; !ok {
			order = append(order, src)
		}
		groups[src] = append(groups[src], inst)
	}

	for _, src := range order {
		ids, err := b.meshObjects(src)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			b.e.log.Debug("instances of empty mesh skipped", zap.String("mesh", src.Name()))
			continue
		}

		id, err := b.ids.Next()
		if err != nil {
			return err
		}
		cb := threemf.NewComponentsBuilder(id, threemf.ObjectModel).WithName(src.Name())
		for n, inst := range groups[src] {
			transform := transformOf(inst.WorldMatrix())
			for _, objID := range ids {
				if b.e.opts.UUIDs {
					cb.WithComponentUUID(objID, transform, b.uuid("component", id, n, objID))
				} else {
					cb.WithComponent(objID, transform)
				}
			}
			b.stats.Instances++
		}
		if b.e.opts.UUIDs {
			cb.WithUUID(b.uuid("object", id, src.Name()))
		}
		b.mb.WithComponents(cb.Build())
		b.stats.Objects++
		b.addItem(id, nil)
	}
	return nil
}

func (b *docBuild) addItem(objectID int, transform *threemf.Matrix3d) {
	item := &threemf.Item{ObjectID: objectID, Transform: transform}
	if b.e.opts.UUIDs {
		item.UUID = b.uuid("item", objectID)
	}
	b.mb.WithBuildItem(item)
}

// uuid derives a stable v5 UUID from the scene name and parts.
func (b *docBuild) uuid(parts ...any) string {
	name := b.scene.Name
	for _, p := range parts {
		name += fmt.Sprintf("/%v", p)
	}
	return uuid.NewSHA1(uuidSpace, []byte(name)).String()
}

func wrapIndex(i, n int) int {
	return ((i % n) + n) % n
}
