package geometry

import "github.com/chewxy/math32"

type weldKey struct {
	x, y, z int64
}

// Weld merges coincident vertices of a triangle soup (nine floats per
// triangle) into indexed geometry. Positions that round to the same cell of
// an eps grid share one vertex. eps <= 0 merges exact duplicates only.
// Triangles that collapse after merging are dropped.
func Weld(soup []float32, eps float32) VertexData {
	var out VertexData
	seen := make(map[weldKey]uint32)
	exact := make(map[[3]float32]uint32)

	lookup := func(x, y, z float32) uint32 {
		if eps <= 0 {
			k := [3]float32{x, y, z}
			if idx, ok := exact[k]; ok {
				return idx
			}
			idx := uint32(len(exact))
			exact[k] = idx
			out.Positions = append(out.Positions, x, y, z)
			return idx
		}
		k := weldKey{
			x: int64(math32.Round(x / eps)),
			y: int64(math32.Round(y / eps)),
			z: int64(math32.Round(z / eps)),
		}
		if idx, ok := seen[k]; ok {
			return idx
		}
		idx := uint32(len(seen))
		seen[k] = idx
		out.Positions = append(out.Positions, x, y, z)
		return idx
	}

	for i := 0; i+8 < len(soup); i += 9 {
		a := lookup(soup[i], soup[i+1], soup[i+2])
		b := lookup(soup[i+3], soup[i+4], soup[i+5])
		c := lookup(soup[i+6], soup[i+7], soup[i+8])
		if a == b || b == c || a == c {
			continue
		}
		out.Indices = append(out.Indices, a, b, c)
	}
	return out
}
