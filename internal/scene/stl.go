package scene

import (
	"github.com/Faultbox/midgard-3mf/pkg/formats"
	"github.com/Faultbox/midgard-3mf/pkg/geometry"
)

// STLMesh welds the triangle soup of model into indexed geometry. The
// mesh has no submeshes.
func STLMesh(model *formats.STL, name string, eps float32) *Mesh {
	m := newMesh(name)
	data := geometry.Weld(model.Positions(), eps)
	m.Positions = data.Positions
	m.Index = data.Indices
	return m
}
