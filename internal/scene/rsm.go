package scene

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-3mf/pkg/formats"
	"github.com/Faultbox/midgard-3mf/pkg/math"
)

const degenerateArea = 1e-5

// RSMMesh builds the static pose of a model: every node is placed by its
// hierarchy matrix with the first rotation and scale keys applied, Y is
// flipped to point up, and the result is centred on X and Z. Vertices are
// shared within a node. Faces with bad vertex IDs or no area are dropped.
func RSMMesh(rsm *formats.RSM, name string) *Mesh {
	m := newMesh(name)
	var g groups

	for i := range rsm.Nodes {
		node := &rsm.Nodes[i]
		matrix := nodeMatrix(rsm, node)

		remap := make(map[uint16]uint32)
		vertex := func(id uint16) uint32 {
			if out, ok := remap[id]; ok {
				return out
			}
			p := matrix.TransformPoint(node.Vertices[id])
			out := uint32(len(m.Positions) / 3)
			m.Positions = append(m.Positions, p[0], -p[1], p[2])
			remap[id] = out
			return out
		}

		for _, face := range node.Faces {
			if !validFace(node, face) {
				continue
			}
			tex, _ := rsm.FaceTexture(node, face)
			g.add(tex,
				vertex(face.VertexIDs[0]),
				vertex(face.VertexIDs[1]),
				vertex(face.VertexIDs[2]))
		}
	}

	g.finish(m)
	centerXZ(m.Positions)
	return m
}

func validFace(node *formats.RSMNode, face formats.RSMFace) bool {
	ids := face.VertexIDs
	for _, id := range ids {
		if int(id) >= len(node.Vertices) {
			return false
		}
	}
	if ids[0] == ids[1] || ids[1] == ids[2] || ids[0] == ids[2] {
		return false
	}
	a := vec(node.Vertices[ids[0]])
	b := vec(node.Vertices[ids[1]])
	c := vec(node.Vertices[ids[2]])
	return b.Sub(a).Cross(c.Sub(a)).Length() >= degenerateArea
}

// nodeMatrix is the hierarchy matrix followed by the node's own offset and
// 3x3 matrix, which children do not inherit.
func nodeMatrix(rsm *formats.RSM, node *formats.RSMNode) math.Mat4 {
	m := hierarchyMatrix(rsm, node, make(map[string]bool))
	m = m.Mul(math.Translate(node.Offset[0], node.Offset[1], node.Offset[2]))
	return m.Mul(math.FromMat3x3(node.Matrix))
}

// hierarchyMatrix is parent * Position * Rotation * Scale. A node that
// names itself or an ancestor as parent ends the chain.
func hierarchyMatrix(rsm *formats.RSM, node *formats.RSMNode, visited map[string]bool) math.Mat4 {
	if visited[node.Name] {
		return math.Identity()
	}
	visited[node.Name] = true

	local := math.Translate(node.Position[0], node.Position[1], node.Position[2])
	switch {
	case len(node.RotKeys) > 0:
		q := node.RotKeys[0].Quaternion
		local = local.Mul(math.Quat{X: q[0], Y: q[1], Z: q[2], W: q[3]}.Normalize().ToMat4())
	case node.RotAngle != 0:
		axis := vec(node.RotAxis).Normalize()
		if axis.Length() > 0 {
			local = local.Mul(math.RotateAxis(axis, node.RotAngle))
		}
	}
	local = local.Mul(math.Scale(node.Scale[0], node.Scale[1], node.Scale[2]))
	if len(node.ScaleKeys) > 0 {
		s := node.ScaleKeys[0].Scale
		local = local.Mul(math.Scale(s[0], s[1], s[2]))
	}

	if node.Parent != "" && node.Parent != node.Name {
		if parent := rsm.Node(node.Parent); parent != nil {
			return hierarchyMatrix(rsm, parent, visited).Mul(local)
		}
	}
	return local
}

func vec(a [3]float32) math.Vec3 {
	return math.Vec3{X: a[0], Y: a[1], Z: a[2]}
}

// centerXZ moves the X and Z centre of the bounds to the origin and keeps Y.
func centerXZ(positions []float32) {
	if len(positions) < 3 {
		return
	}
	minX, maxX := positions[0], positions[0]
	minZ, maxZ := positions[2], positions[2]
	for i := 0; i+2 < len(positions); i += 3 {
		minX, maxX = math32.Min(minX, positions[i]), math32.Max(maxX, positions[i])
		minZ, maxZ = math32.Min(minZ, positions[i+2]), math32.Max(maxZ, positions[i+2])
	}
	cx, cz := (minX+maxX)/2, (minZ+maxZ)/2
	for i := 0; i+2 < len(positions); i += 3 {
		positions[i] -= cx
		positions[i+2] -= cz
	}
}
