package geometry

import "github.com/Faultbox/midgard-3mf/pkg/math"

// FullData returns the whole mesh buffers, aliased. It returns nil when the
// mesh has no indices or no positions, or when an index points past the
// last vertex.
func FullData(mesh Mesh) *VertexData {
	indices := mesh.Indices()
	positions := mesh.VerticesData(PositionKind)
	if len(indices) == 0 || len(positions) == 0 || !indicesInRange(indices, len(positions)/3) {
		return nil
	}
	return &VertexData{Positions: positions, Indices: indices}
}

func indicesInRange(indices []uint32, vertexCount int) bool {
	for _, i := range indices {
		if int(i) >= vertexCount {
			return false
		}
	}
	return true
}

// ExtractSubMesh returns the geometry referenced by one submesh.
//
// When the submesh spans the whole index buffer the source slices are
// returned as-is and must be treated as read-only. Otherwise only the
// vertices referenced by the range are copied, in first-use order, and the
// indices are rewritten to match. A nil result means there is nothing to
// export: missing buffers, an empty range, a range outside the buffer or an
// index past the last vertex.
func ExtractSubMesh(mesh Mesh, sm SubMesh) *VertexData {
	indices := mesh.Indices()
	positions := mesh.VerticesData(PositionKind)
	if len(indices) == 0 || len(positions) == 0 {
		return nil
	}
	if sm.IndexCount <= 0 || sm.IndexStart < 0 || sm.IndexStart+sm.IndexCount > len(indices) {
		return nil
	}

	if sm.IndexStart == 0 && sm.IndexCount == len(indices) {
		if !indicesInRange(indices, len(positions)/3) {
			return nil
		}
		return &VertexData{Positions: positions, Indices: indices}
	}

	vertexCount := uint32(len(positions) / 3)
	remap := make(map[uint32]uint32)
	out := &VertexData{
		Indices: make([]uint32, 0, sm.IndexCount),
	}

	for _, old := range indices[sm.IndexStart : sm.IndexStart+sm.IndexCount] {
		if old >= vertexCount {
			return nil
		}
		idx, ok := remap[old]
		if !ok {
			idx = uint32(len(remap))
			remap[old] = idx
			p := old * 3
			out.Positions = append(out.Positions, positions[p], positions[p+1], positions[p+2])
		}
		out.Indices = append(out.Indices, idx)
	}
	return out
}

// Bounds returns the component-wise minimum and maximum of xyz triples.
// ok is false for an empty buffer.
func Bounds(positions []float32) (lo, hi math.Vec3, ok bool) {
	if len(positions) < 3 {
		return lo, hi, false
	}
	lo = math.Vec3{X: positions[0], Y: positions[1], Z: positions[2]}
	hi = lo
	for i := 3; i+2 < len(positions); i += 3 {
		p := math.Vec3{X: positions[i], Y: positions[i+1], Z: positions[i+2]}
		lo = lo.Min(p)
		hi = hi.Max(p)
	}
	return lo, hi, true
}

// Transform applies m to every xyz triple and returns a new buffer.
func Transform(positions []float32, m math.Mat4) []float32 {
	out := make([]float32, len(positions))
	for i := 0; i+2 < len(positions); i += 3 {
		p := m.TransformPoint([3]float32{positions[i], positions[i+1], positions[i+2]})
		copy(out[i:i+3], p[:])
	}
	return out
}
