package scene

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-3mf/pkg/formats"
)

const wallEps = 0.001

// GroundMesh builds the tile surfaces of a ground file, centred on the map
// with Y up. Each tile top is a quad split along the bottom-left to
// top-right diagonal. Walls close the gap to the next tile towards +Z and
// +X when the edge heights differ; they use the tile's front or right
// surface and fall back to the top texture. Surfaces whose texture is out
// of range are skipped.
func GroundMesh(gnd *formats.GND, name string) *Mesh {
	m := newMesh(name)
	var g groups

	zoom := gnd.Zoom
	offX := float32(gnd.Width) * zoom / 2
	offZ := float32(gnd.Height) * zoom / 2

	quad := func(tex string, corners [4][3]float32, tris [6]uint32) {
		base := uint32(len(m.Positions) / 3)
		for _, c := range corners {
			m.Positions = append(m.Positions, c[0], c[1], c[2])
		}
		g.add(tex, base+tris[0], base+tris[1], base+tris[2])
		g.add(tex, base+tris[3], base+tris[4], base+tris[5])
	}
	texture := func(surface int32) (string, bool) {
		s := gnd.Surface(surface)
		if s == nil || s.TextureID < 0 || int(s.TextureID) >= len(gnd.Textures) {
			return "", false
		}
		return gnd.Textures[s.TextureID], true
	}

	for y := 0; y < int(gnd.Height); y++ {
		for x := 0; x < int(gnd.Width); x++ {
			tile := gnd.Tile(x, y)
			x0 := float32(x)*zoom - offX
			z0 := float32(y)*zoom - offZ
			x1, z1 := x0+zoom, z0+zoom

			// bottom-left, bottom-right, top-left, top-right
			corners := [4][3]float32{
				{x0, -tile.Altitude[0], z1},
				{x1, -tile.Altitude[1], z1},
				{x0, -tile.Altitude[2], z0},
				{x1, -tile.Altitude[3], z0},
			}

			top, hasTop := texture(tile.TopSurface)
			if hasTop {
				quad(top, corners, [6]uint32{0, 1, 2, 2, 1, 3})
			}

			if next := gnd.Tile(x, y+1); next != nil &&
				(differs(tile.Altitude[0], next.Altitude[2]) || differs(tile.Altitude[1], next.Altitude[3])) {
				tex, ok := texture(tile.FrontSurface)
				if !ok {
					tex, ok = top, hasTop
				}
				if ok {
					quad(tex, [4][3]float32{
						corners[0],
						corners[1],
						{x0, -next.Altitude[2], z1},
						{x1, -next.Altitude[3], z1},
					}, [6]uint32{0, 2, 1, 1, 2, 3})
				}
			}

			if next := gnd.Tile(x+1, y); next != nil &&
				(differs(tile.Altitude[1], next.Altitude[0]) || differs(tile.Altitude[3], next.Altitude[2])) {
				tex, ok := texture(tile.RightSurface)
				if !ok {
					tex, ok = top, hasTop
				}
				if ok {
					quad(tex, [4][3]float32{
						corners[3],
						corners[1],
						{x1, -next.Altitude[2], z0},
						{x1, -next.Altitude[0], z1},
					}, [6]uint32{0, 2, 1, 1, 2, 3})
				}
			}
		}
	}

	g.finish(m)
	return m
}

func differs(a, b float32) bool {
	return math32.Abs(a-b) > wallEps
}
