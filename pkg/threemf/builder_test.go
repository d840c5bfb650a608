package threemf

import (
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-3mf/pkg/geometry"
)

func triangleData() *geometry.VertexData {
	return &geometry.VertexData{
		Positions: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Indices:   []uint32{0, 1, 2},
	}
}

func TestMeshObjectBuilder(t *testing.T) {
	obj := NewMeshObjectBuilder(3, "").
		WithPostProcessHandlers(
			func(v Vertex) Vertex { return Vertex{X: v.X, Y: -v.Z, Z: v.Y} },
			func(tr Triangle) Triangle { tr.V2, tr.V3 = tr.V3, tr.V2; return tr },
		).
		WithData(triangleData()).
		WithName("tri").
		WithMaterial(1, 2).
		Build()

	assert.Equal(t, 3, obj.ID)
	assert.Equal(t, ObjectModel, obj.Type)
	assert.Equal(t, "tri", obj.Name)
	require.NotNil(t, obj.PID)
	assert.Equal(t, 1, *obj.PID)
	assert.Equal(t, 2, *obj.PIndex)
	assert.Nil(t, obj.Components())

	mesh := obj.Mesh()
	require.NotNil(t, mesh)
	assert.Equal(t, []Vertex{{0, 0, 0}, {1, 0, 0}, {0, 0, 1}}, mesh.Vertices.Items)
	assert.Equal(t, []Triangle{{V1: 0, V2: 2, V3: 1}}, mesh.Triangles.Items)
}

func TestMeshObjectBuilder_PartialTriples(t *testing.T) {
	obj := NewMeshObjectBuilder(1, ObjectSupport).
		WithData(&geometry.VertexData{Positions: []float32{1, 2, 3, 4}, Indices: []uint32{0, 0}}).
		Build()

	assert.Len(t, obj.Mesh().Vertices.Items, 1)
	assert.Empty(t, obj.Mesh().Triangles.Items)
	assert.Equal(t, ObjectSupport, obj.Type)
}

func TestMeshObjectBuilder_EmptyBuild(t *testing.T) {
	obj := NewMeshObjectBuilder(1, ObjectModel).Build()
	require.NotNil(t, obj.Mesh())
	assert.Empty(t, obj.Mesh().Vertices.Items)
}

func TestComponentsBuilder(t *testing.T) {
	tr := TranslateMatrix3d(1, 2, 3)
	b := NewComponentsBuilder(9, ObjectModel).
		WithComponent(1, nil).
		WithComponent(1, &tr).
		WithName("group")

	assert.Equal(t, 2, b.Len())
	obj := b.Build()
	assert.Nil(t, obj.Mesh())
	comps := obj.Components()
	require.NotNil(t, comps)
	assert.Equal(t, 1, comps.Items[0].ObjectID)
	assert.Nil(t, comps.Items[0].Transform)
	assert.Equal(t, &tr, comps.Items[1].Transform)
}

func TestMaterialBuilder(t *testing.T) {
	b := NewMaterialBuilder(5).
		WithColor("Red", colorful.Color{R: 1}).
		WithColorAlpha("glass", colorful.Color{R: 1, G: 1, B: 1}, 0.5).
		WithColor("RED", colorful.Color{G: 1})

	assert.Equal(t, 2, b.Len())
	assert.Equal(t, 0, b.IndexOf("red"))
	assert.Equal(t, 1, b.IndexOf("Glass"))
	assert.Equal(t, -1, b.IndexOf("blue"))

	m := b.Build()
	assert.Equal(t, 5, m.ID)
	assert.Equal(t, "Red", m.Bases[0].Name, "first spelling wins")
	assert.Equal(t, "#00FF00", m.Bases[0].DisplayColor, "color is replaced")
	assert.Equal(t, "#FFFFFF80", m.Bases[1].DisplayColor)
}

func TestModelBuilder_ValidityGate(t *testing.T) {
	_, err := NewModelBuilder().Build()
	assert.ErrorIs(t, err, ErrNoResources)

	b := NewModelBuilder().WithMesh(NewMeshObjectBuilder(1, ObjectModel).WithData(triangleData()).Build())
	_, err = b.Build()
	assert.ErrorIs(t, err, ErrNoBuildItems)

	_, err = NewModelBuilder().WithBuild(1, nil, "").Build()
	assert.ErrorIs(t, err, ErrNoResources)

	m, err := b.WithBuild(1, nil, "").Build()
	require.NoError(t, err)
	assert.Equal(t, UnitMillimeter, m.Unit)
	assert.Len(t, m.Build.Items, 1)

	b.Reset()
	assert.Zero(t, b.ObjectCount())
}

func TestModelBuilder_Extensions(t *testing.T) {
	b := NewModelBuilder().
		WithRecommendedExtension(ProductionPrefix, ProductionNamespace).
		WithRecommendedExtension(ProductionPrefix, ProductionNamespace).
		WithRequiredExtension("s", "urn:slice")

	m := b.WithMesh(NewMeshObjectBuilder(1, "").Build()).WithBuild(1, nil, "").model
	assert.Equal(t, "p", m.RecommendedExtensions)
	assert.Equal(t, "s", m.RequiredExtensions)
	assert.Len(t, m.Extensions, 2)
}

func TestModelBuilder_MaterialsAndMetadata(t *testing.T) {
	m, err := NewModelBuilder().
		WithUnit(UnitInch).
		WithMetaData("Title", "box").
		WithMaterial(NewMaterialBuilder(2).WithColor("a", colorful.Color{}).Build()).
		WithMaterial(nil).
		WithComponents(NewComponentsBuilder(1, "").WithComponent(3, nil).Build()).
		WithBuild(1, nil, "PN-1").
		Build()
	require.NoError(t, err)

	assert.Equal(t, UnitInch, m.Unit)
	assert.Len(t, m.Resources.BaseMaterials, 1)
	assert.Equal(t, "Title", m.Metadata[0].Name)
	assert.Equal(t, "PN-1", m.Build.Items[0].PartNumber)
}

func validModelBuilder() *ModelBuilder {
	return NewModelBuilder().
		WithMesh(NewMeshObjectBuilder(1, ObjectModel).WithData(triangleData()).Build()).
		WithBuild(1, nil, "")
}

func TestDocumentBuilder(t *testing.T) {
	doc, err := NewDocumentBuilder().
		WithContentType("png", "image/png").
		WithContentType("png", "image/png").
		WithModelBuilder(validModelBuilder()).
		Build()
	require.NoError(t, err)

	require.Len(t, doc.Relationships.Items, 1)
	rel := doc.Relationships.Items[0]
	assert.Equal(t, "rel0", rel.ID)
	assert.Equal(t, "/3D/3dmodel.model", rel.Target)
	assert.Equal(t, ModelRelationshipType, rel.Type)

	var exts []string
	for _, ct := range doc.ContentTypes.Items {
		exts = append(exts, ct.Extension)
	}
	assert.Equal(t, []string{"png", "model", "rels"}, exts)
}

func TestDocumentBuilder_ExplicitRelationships(t *testing.T) {
	m, err := validModelBuilder().Build()
	require.NoError(t, err)

	doc, err := NewDocumentBuilder().
		WithRelationship(&Relationship{ID: "r1", Type: ModelRelationshipType, Target: "/3D/other.model"}).
		WithRelationship(&Relationship{ID: "r1", Type: "ignored", Target: "/x"}).
		WithModel(m).
		Build()
	require.NoError(t, err)

	require.Len(t, doc.Relationships.Items, 1)
	assert.Equal(t, "/3D/other.model", doc.Relationships.Items[0].Target)
	assert.Len(t, doc.ContentTypes.Items, 2)
}

func TestDocumentBuilder_Errors(t *testing.T) {
	_, err := NewDocumentBuilder().Build()
	assert.ErrorIs(t, err, ErrNoModel)

	_, err = NewDocumentBuilder().WithModelBuilder(NewModelBuilder()).Build()
	assert.ErrorIs(t, err, ErrNoResources)
}

func TestParseUnitAndType(t *testing.T) {
	u, err := ParseUnit("Inch")
	require.NoError(t, err)
	assert.Equal(t, UnitInch, u)

	u, err = ParseUnit("")
	require.NoError(t, err)
	assert.Equal(t, UnitMillimeter, u)

	_, err = ParseUnit("parsec")
	assert.Error(t, err)

	typ, err := ParseObjectType("SolidSupport")
	require.NoError(t, err)
	assert.Equal(t, ObjectSolidSupport, typ)

	_, err = ParseObjectType("widget")
	assert.Error(t, err)
}

func TestIsKnownMetadata(t *testing.T) {
	assert.True(t, IsKnownMetadata("title"))
	assert.True(t, IsKnownMetadata("LicenseTerms"))
	assert.False(t, IsKnownMetadata("Author"))
}
