// Package geometry turns indexed mesh buffers into compact per-object vertex
// data ready for 3MF export.
package geometry

import (
	"github.com/Faultbox/midgard-3mf/pkg/math"
)

// VertexKind names a per-vertex attribute buffer.
type VertexKind string

// PositionKind selects xyz position triples.
const PositionKind VertexKind = "position"

// VertexData holds xyz triples and triangle indices into them.
type VertexData struct {
	Positions []float32
	Indices   []uint32
}

// VertexCount returns the number of xyz triples.
func (d *VertexData) VertexCount() int {
	if d == nil {
		return 0
	}
	return len(d.Positions) / 3
}

// TriangleCount returns the number of index triples.
func (d *VertexData) TriangleCount() int {
	if d == nil {
		return 0
	}
	return len(d.Indices) / 3
}

// SubMesh is a contiguous range of a mesh index buffer drawn with one
// material.
type SubMesh struct {
	IndexStart    int
	IndexCount    int
	MaterialIndex int
}

// Mesh is a source of indexed geometry placed in the world.
type Mesh interface {
	Name() string
	Indices() []uint32
	VerticesData(kind VertexKind) []float32
	SubMeshes() []SubMesh
	WorldMatrix() math.Mat4
}

// Instance places an existing mesh a second time without copying it.
type Instance interface {
	Name() string
	SourceMesh() Mesh
	WorldMatrix() math.Mat4
}

// StaticMesh is an in-memory Mesh.
type StaticMesh struct {
	MeshName  string
	Positions []float32
	Index     []uint32
	Parts     []SubMesh
	World     math.Mat4
}

// NewStaticMesh creates a mesh with an identity world matrix and no
// submeshes.
func NewStaticMesh(name string, positions []float32, indices []uint32) *StaticMesh {
	return &StaticMesh{
		MeshName:  name,
		Positions: positions,
		Index:     indices,
		World:     math.Identity(),
	}
}

// Name implements Mesh.
func (m *StaticMesh) Name() string { return m.MeshName }

// Indices implements Mesh.
func (m *StaticMesh) Indices() []uint32 { return m.Index }

// VerticesData implements Mesh. Only positions are stored.
func (m *StaticMesh) VerticesData(kind VertexKind) []float32 {
	if kind != PositionKind {
		return nil
	}
	return m.Positions
}

// SubMeshes implements Mesh.
func (m *StaticMesh) SubMeshes() []SubMesh { return m.Parts }

// WorldMatrix implements Mesh.
func (m *StaticMesh) WorldMatrix() math.Mat4 { return m.World }

// StaticInstance is an in-memory Instance.
type StaticInstance struct {
	InstanceName string
	Source       Mesh
	World        math.Mat4
}

// Name implements Instance.
func (i *StaticInstance) Name() string { return i.InstanceName }

// SourceMesh implements Instance.
func (i *StaticInstance) SourceMesh() Mesh { return i.Source }

// WorldMatrix implements Instance.
func (i *StaticInstance) WorldMatrix() math.Mat4 { return i.World }
