package threemf

import (
	"errors"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/Faultbox/midgard-3mf/pkg/geometry"
)

// Validation errors returned by Build.
var (
	ErrNoResources  = errors.New("invalid model: resources must not be empty")
	ErrNoBuildItems = errors.New("invalid model: build must not be empty")
	ErrNoModel      = errors.New("invalid document: a model is required")
)

// VertexHandler rewrites a vertex while a mesh is built.
type VertexHandler func(Vertex) Vertex

// TriangleHandler rewrites a triangle while a mesh is built.
type TriangleHandler func(Triangle) Triangle

// objectBuilder holds the attributes shared by mesh and components objects.
type objectBuilder struct {
	obj *Object
}

func newObjectBuilder(id int, typ ObjectType) objectBuilder {
	if typ == "" {
		typ = ObjectModel
	}
	return objectBuilder{obj: &Object{ID: id, Type: typ}}
}

// MeshObjectBuilder builds an object with mesh content.
type MeshObjectBuilder struct {
	objectBuilder
	vh VertexHandler
	th TriangleHandler
}

// NewMeshObjectBuilder starts a mesh object.
func NewMeshObjectBuilder(id int, typ ObjectType) *MeshObjectBuilder {
	return &MeshObjectBuilder{objectBuilder: newObjectBuilder(id, typ)}
}

// WithPostProcessHandlers sets handlers applied by later WithData calls.
// Either may be nil.
func (b *MeshObjectBuilder) WithPostProcessHandlers(vh VertexHandler, th TriangleHandler) *MeshObjectBuilder {
	b.vh = vh
	b.th = th
	return b
}

// WithData groups positions into vertices and indices into triangles, in
// array order. Trailing values that do not fill a triple are ignored.
func (b *MeshObjectBuilder) WithData(data *geometry.VertexData) *MeshObjectBuilder {
	mesh := &Mesh{}
	if data != nil {
		p := data.Positions
		mesh.Vertices.Items = make([]Vertex, 0, len(p)/3)
		for i := 0; i+2 < len(p); i += 3 {
			v := Vertex{X: p[i], Y: p[i+1], Z: p[i+2]}
			if b.vh != nil {
				v = b.vh(v)
			}
			mesh.Vertices.Items = append(mesh.Vertices.Items, v)
		}

		idx := data.Indices
		mesh.Triangles.Items = make([]Triangle, 0, len(idx)/3)
		for i := 0; i+2 < len(idx); i += 3 {
			t := Triangle{V1: int(idx[i]), V2: int(idx[i+1]), V3: int(idx[i+2])}
			if b.th != nil {
				t = b.th(t)
			}
			mesh.Triangles.Items = append(mesh.Triangles.Items, t)
		}
	}
	b.obj.Content = mesh
	return b
}

// WithName sets the object name.
func (b *MeshObjectBuilder) WithName(name string) *MeshObjectBuilder {
	b.obj.Name = name
	return b
}

// WithThumbnail sets the thumbnail part path.
func (b *MeshObjectBuilder) WithThumbnail(path string) *MeshObjectBuilder {
	b.obj.Thumbnail = path
	return b
}

// WithPartNumber sets the part number.
func (b *MeshObjectBuilder) WithPartNumber(pn string) *MeshObjectBuilder {
	b.obj.PartNumber = pn
	return b
}

// WithMaterial references entry index of property group pid.
func (b *MeshObjectBuilder) WithMaterial(pid, index int) *MeshObjectBuilder {
	b.obj.PID = &pid
	b.obj.PIndex = &index
	return b
}

// WithUUID sets the production extension UUID.
func (b *MeshObjectBuilder) WithUUID(id string) *MeshObjectBuilder {
	b.obj.UUID = id
	return b
}

// WithMetadata adds object-level metadata.
func (b *MeshObjectBuilder) WithMetadata(name, value string) *MeshObjectBuilder {
	if b.obj.MetadataGroup == nil {
		b.obj.MetadataGroup = &MetadataGroup{}
	}
	b.obj.MetadataGroup.Metadata = append(b.obj.MetadataGroup.Metadata, &Metadata{Name: name, Value: value})
	return b
}

// Build returns the object. Without WithData the mesh is empty.
func (b *MeshObjectBuilder) Build() *Object {
	if b.obj.Content == nil {
		b.obj.Content = &Mesh{}
	}
	return b.obj
}

// ComponentsBuilder builds an object that references other objects.
type ComponentsBuilder struct {
	objectBuilder
}

// NewComponentsBuilder starts a components object.
func NewComponentsBuilder(id int, typ ObjectType) *ComponentsBuilder {
	b := &ComponentsBuilder{objectBuilder: newObjectBuilder(id, typ)}
	b.obj.Content = &Components{}
	return b
}

// WithComponent appends a reference to objectID. transform may be nil.
func (b *ComponentsBuilder) WithComponent(objectID int, transform *Matrix3d) *ComponentsBuilder {
	return b.WithComponentUUID(objectID, transform, "")
}

// WithComponentUUID is WithComponent with a production extension UUID.
func (b *ComponentsBuilder) WithComponentUUID(objectID int, transform *Matrix3d, id string) *ComponentsBuilder {
	c := b.obj.Content.(*Components)
	c.Items = append(c.Items, &Component{ObjectID: objectID, Transform: transform, UUID: id})
	return b
}

// WithName sets the object name.
func (b *ComponentsBuilder) WithName(name string) *ComponentsBuilder {
	b.obj.Name = name
	return b
}

// WithUUID sets the production extension UUID.
func (b *ComponentsBuilder) WithUUID(id string) *ComponentsBuilder {
	b.obj.UUID = id
	return b
}

// Len returns the number of components added so far.
func (b *ComponentsBuilder) Len() int {
	return len(b.obj.Content.(*Components).Items)
}

// Build returns the object.
func (b *ComponentsBuilder) Build() *Object {
	return b.obj
}

// MaterialBuilder builds a base materials group.
type MaterialBuilder struct {
	m *BaseMaterials
}

// NewMaterialBuilder starts a group with resource id.
func NewMaterialBuilder(id int) *MaterialBuilder {
	return &MaterialBuilder{m: &BaseMaterials{ID: id}}
}

// WithColor adds an opaque material. c holds linear channel values. A name
// already present, ignoring case, has its color replaced.
func (b *MaterialBuilder) WithColor(name string, c colorful.Color) *MaterialBuilder {
	return b.set(name, ColorHex(c))
}

// WithColorAlpha adds a material with a linear alpha in [0, 1].
func (b *MaterialBuilder) WithColorAlpha(name string, c colorful.Color, alpha float64) *MaterialBuilder {
	return b.set(name, ColorHexAlpha(c, alpha))
}

func (b *MaterialBuilder) set(name, hex string) *MaterialBuilder {
	if i := b.IndexOf(name); i >= 0 {
		b.m.Bases[i].DisplayColor = hex
		return b
	}
	b.m.Bases = append(b.m.Bases, &Base{Name: name, DisplayColor: hex})
	return b
}

// IndexOf returns the position of name, ignoring case, or -1.
func (b *MaterialBuilder) IndexOf(name string) int {
	for i, base := range b.m.Bases {
		if strings.EqualFold(base.Name, name) {
			return i
		}
	}
	return -1
}

// Len returns the number of materials.
func (b *MaterialBuilder) Len() int {
	return len(b.m.Bases)
}

// Build returns the group.
func (b *MaterialBuilder) Build() *BaseMaterials {
	return b.m
}

// ModelBuilder assembles a Model.
type ModelBuilder struct {
	model *Model
}

// NewModelBuilder starts an empty model in millimeters.
func NewModelBuilder() *ModelBuilder {
	return &ModelBuilder{model: newModel()}
}

func newModel() *Model {
	return &Model{
		Unit:      UnitMillimeter,
		Resources: &Resources{},
		Build:     &Build{},
	}
}

// WithUnit sets the model unit.
func (b *ModelBuilder) WithUnit(u Unit) *ModelBuilder {
	b.model.Unit = u
	return b
}

// WithMetaData appends a model-level metadata entry.
func (b *ModelBuilder) WithMetaData(name, value string) *ModelBuilder {
	return b.WithMetaDataEntry(&Metadata{Name: name, Value: value})
}

// WithMetaDataEntry appends a fully specified metadata entry.
func (b *ModelBuilder) WithMetaDataEntry(m *Metadata) *ModelBuilder {
	b.model.Metadata = append(b.model.Metadata, m)
	return b
}

// WithMaterial appends a base materials group.
func (b *ModelBuilder) WithMaterial(m *BaseMaterials) *ModelBuilder {
	if m != nil {
		b.model.Resources.BaseMaterials = append(b.model.Resources.BaseMaterials, m)
	}
	return b
}

// WithMesh appends a mesh object.
func (b *ModelBuilder) WithMesh(obj *Object) *ModelBuilder {
	return b.withObject(obj)
}

// WithComponents appends a components object.
func (b *ModelBuilder) WithComponents(obj *Object) *ModelBuilder {
	return b.withObject(obj)
}

func (b *ModelBuilder) withObject(obj *Object) *ModelBuilder {
	if obj != nil {
		b.model.Resources.Objects = append(b.model.Resources.Objects, obj)
	}
	return b
}

// WithBuild appends a build item. transform may be nil.
func (b *ModelBuilder) WithBuild(objectID int, transform *Matrix3d, partNumber string) *ModelBuilder {
	return b.WithBuildItem(&Item{ObjectID: objectID, Transform: transform, PartNumber: partNumber})
}

// WithBuildItem appends a fully specified build item.
func (b *ModelBuilder) WithBuildItem(item *Item) *ModelBuilder {
	b.model.Build.Items = append(b.model.Build.Items, item)
	return b
}

// WithBuildUUID sets the production extension UUID of the build.
func (b *ModelBuilder) WithBuildUUID(id string) *ModelBuilder {
	b.model.Build.UUID = id
	return b
}

// WithRecommendedExtension lists an extension consumers may ignore and binds
// its prefix.
func (b *ModelBuilder) WithRecommendedExtension(prefix, namespace string) *ModelBuilder {
	if b.bindExtension(prefix, namespace) {
		b.model.RecommendedExtensions = appendToken(b.model.RecommendedExtensions, prefix)
	}
	return b
}

// WithRequiredExtension lists an extension consumers must support.
func (b *ModelBuilder) WithRequiredExtension(prefix, namespace string) *ModelBuilder {
	if b.bindExtension(prefix, namespace) {
		b.model.RequiredExtensions = appendToken(b.model.RequiredExtensions, prefix)
	}
	return b
}

func (b *ModelBuilder) bindExtension(prefix, namespace string) bool {
	for _, e := range b.model.Extensions {
		if e.Prefix == prefix || strings.EqualFold(e.Namespace, namespace) {
			return false
		}
	}
	b.model.Extensions = append(b.model.Extensions, Extension{Prefix: prefix, Namespace: namespace})
	return true
}

func appendToken(list, token string) string {
	if list == "" {
		return token
	}
	return list + " " + token
}

// ObjectCount returns the number of objects added so far.
func (b *ModelBuilder) ObjectCount() int {
	return len(b.model.Resources.Objects)
}

// Reset discards everything added so far.
func (b *ModelBuilder) Reset() *ModelBuilder {
	b.model = newModel()
	return b
}

// Build validates and returns the model. A model needs at least one object
// and one build item.
func (b *ModelBuilder) Build() (*Model, error) {
	if len(b.model.Resources.Objects) == 0 {
		return nil, ErrNoResources
	}
	if len(b.model.Build.Items) == 0 {
		return nil, ErrNoBuildItems
	}
	return b.model, nil
}

// DocumentBuilder wraps a model with its package parts.
type DocumentBuilder struct {
	cts   *ContentTypes
	rels  *Relationships
	model *Model
	err   error
}

// NewDocumentBuilder starts an empty document.
func NewDocumentBuilder() *DocumentBuilder {
	return &DocumentBuilder{}
}

// WithContentType declares a content type unless the same extension and
// type are already present.
func (b *DocumentBuilder) WithContentType(ext, contentType string) *DocumentBuilder {
	if b.cts == nil {
		b.cts = &ContentTypes{}
	}
	for _, ct := range b.cts.Items {
		if ct.Extension == ext && ct.ContentType == contentType {
			return b
		}
	}
	b.cts.Items = append(b.cts.Items, &ContentType{Extension: ext, ContentType: contentType})
	return b
}

// WithRelationship adds a relationship unless its ID is taken, and declares
// the relationships content type.
func (b *DocumentBuilder) WithRelationship(rel *Relationship) *DocumentBuilder {
	if b.rels == nil {
		b.rels = &Relationships{}
	}
	taken := false
	for _, r := range b.rels.Items {
		if r.ID == rel.ID {
			taken = true
			break
		}
	}
	if !taken {
		b.rels.Items = append(b.rels.Items, rel)
	}
	return b.WithContentType("rels", RelationshipsContentType)
}

// WithModel sets the model and declares the model content type.
func (b *DocumentBuilder) WithModel(m *Model) *DocumentBuilder {
	b.model = m
	return b.WithContentType("model", ModelContentType)
}

// WithModelBuilder builds mb and sets the result. A build error is reported
// by Build.
func (b *DocumentBuilder) WithModelBuilder(mb *ModelBuilder) *DocumentBuilder {
	m, err := mb.Build()
	if err != nil {
		b.err = err
		return b
	}
	return b.WithModel(m)
}

// Build returns the document. Without explicit relationships, one pointing
// at /3D/3dmodel.model is added.
func (b *DocumentBuilder) Build() (*Document, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.model == nil {
		return nil, ErrNoModel
	}
	if b.rels == nil {
		b.WithRelationship(&Relationship{
			ID:     "rel0",
			Type:   ModelRelationshipType,
			Target: "/" + Object3dDirName + ModelFileName,
		})
	}
	return &Document{ContentTypes: b.cts, Relationships: b.rels, Model: b.model}, nil
}
