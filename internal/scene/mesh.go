// Package scene builds exportable meshes and map scenes from parsed assets.
package scene

import (
	"hash/fnv"
	"path"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/Faultbox/midgard-3mf/pkg/export"
	"github.com/Faultbox/midgard-3mf/pkg/geometry"
	"github.com/Faultbox/midgard-3mf/pkg/math"
)

// Mesh is a static mesh whose submeshes are grouped by texture.
// Textures[i] names the texture drawn by submesh i.
type Mesh struct {
	geometry.StaticMesh
	Textures []string
}

func newMesh(name string) *Mesh {
	return &Mesh{StaticMesh: geometry.StaticMesh{MeshName: name, World: math.Identity()}}
}

// groups collects triangles per texture in first-seen order.
type groups struct {
	order []string
	index map[string]int
	tris  [][]uint32
}

func (g *groups) add(texture string, a, b, c uint32) {
	if g.index == nil {
		g.index = make(map[string]int)
	}
	i, ok := g.index[texture]
	if !ok {
		i = len(g.order)
		g.index[texture] = i
		g.order = append(g.order, texture)
		g.tris = append(g.tris, nil)
	}
	g.tris[i] = append(g.tris[i], a, b, c)
}

// finish writes the grouped index buffer and one submesh per texture.
func (g *groups) finish(m *Mesh) {
	m.Index = m.Index[:0]
	m.Parts = m.Parts[:0]
	for i, tris := range g.tris {
		m.Parts = append(m.Parts, geometry.SubMesh{
			IndexStart:    len(m.Index),
			IndexCount:    len(tris),
			MaterialIndex: i,
		})
		m.Index = append(m.Index, tris...)
	}
	m.Textures = append(m.Textures[:0], g.order...)
}

// Scene is an export scene with a shared texture table. Submesh material
// indices of registered meshes point into Textures.
type Scene struct {
	export.Scene
	Textures []string

	textureIndex map[string]int
	registered   map[*Mesh]bool
}

// NewScene creates an empty scene.
func NewScene(name string) *Scene {
	return &Scene{
		Scene:        export.Scene{Name: name},
		textureIndex: make(map[string]int),
		registered:   make(map[*Mesh]bool),
	}
}

// AddMesh places m with its own world matrix.
func (s *Scene) AddMesh(m *Mesh) {
	s.register(m)
	s.Meshes = append(s.Meshes, m)
}

// AddInstance places src again at world without copying its geometry.
func (s *Scene) AddInstance(name string, src *Mesh, world math.Mat4) {
	s.register(src)
	s.Instances = append(s.Instances, &geometry.StaticInstance{
		InstanceName: name,
		Source:       src,
		World:        world,
	})
}

func (s *Scene) register(m *Mesh) {
	if s.registered[m] {
		return
	}
	s.registered[m] = true
	for i := range m.Parts {
		if i < len(m.Textures) {
			m.Parts[i].MaterialIndex = s.texture(m.Textures[i])
		}
	}
}

func (s *Scene) texture(name string) int {
	key := strings.ToLower(name)
	if i, ok := s.textureIndex[key]; ok {
		return i
	}
	i := len(s.Textures)
	s.textureIndex[key] = i
	s.Textures = append(s.Textures, name)
	return i
}

// Palette returns one display colour per texture, stable across runs.
func (s *Scene) Palette() []export.NamedColor {
	out := make([]export.NamedColor, len(s.Textures))
	for i, tex := range s.Textures {
		out[i] = export.NamedColor{Name: textureLabel(tex), Color: textureColor(tex)}
	}
	return out
}

// Counts returns vertex and triangle totals over meshes and instance
// sources, counting each source once.
func (s *Scene) Counts() (vertices, triangles int) {
	for m := range s.registered {
		vertices += len(m.Positions) / 3
		triangles += len(m.Index) / 3
	}
	return vertices, triangles
}

func textureLabel(tex string) string {
	name := path.Base(strings.ReplaceAll(tex, "\\", "/"))
	if name == "." || name == "/" {
		return "untextured"
	}
	return name
}

// textureColor hashes the texture name onto the hue circle.
func textureColor(tex string) colorful.Color {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(tex)))
	hue := float64(h.Sum32()%360)
	c := colorful.Hsv(hue, 0.45, 0.85)
	r, g, b := c.LinearRgb()
	return colorful.Color{R: r, G: g, B: b}
}
