package formats

import (
	"errors"
	"fmt"
	"os"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidNodeCount      = errors.New("invalid RSM node count")
)

const (
	rsmMaxNodes    = 10000
	rsmNameSize    = 40
	rsmFaceSize    = 24
	rsmTexAnimSize = 8
)

// RSMVersion represents the RSM file version.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

// RSMShadingType represents the shading mode for rendering.
type RSMShadingType int32

const (
	RSMShadingNone   RSMShadingType = 0
	RSMShadingFlat   RSMShadingType = 1
	RSMShadingSmooth RSMShadingType = 2
)

// String returns a human-readable shading type name.
func (s RSMShadingType) String() string {
	switch s {
	case RSMShadingNone:
		return "None"
	case RSMShadingFlat:
		return "Flat"
	case RSMShadingSmooth:
		return "Smooth"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// RSMTexCoord is a texture coordinate with a vertex color (1.2+).
type RSMTexCoord struct {
	Color [4]uint8
	U, V  float32
}

// RSMFace is a triangle of a node mesh.
type RSMFace struct {
	VertexIDs   [3]uint16
	TexCoordIDs [3]uint16
	TextureID   uint16
	Padding     uint16
	TwoSide     int32
	SmoothGroup int32
}

// RSMPosKeyframe is a position key. Data is only present from 2.2.
type RSMPosKeyframe struct {
	Frame    int32
	Position [3]float32
	Data     float32
}

// RSMRotKeyframe is a rotation key stored as an x, y, z, w quaternion.
type RSMRotKeyframe struct {
	Frame      int32
	Quaternion [4]float32
}

// RSMScaleKeyframe is a scale key (1.6+).
type RSMScaleKeyframe struct {
	Frame int32
	Scale [3]float32
	Data  float32
}

// RSMNode is one mesh in the model hierarchy.
type RSMNode struct {
	Name   string
	Parent string

	// TextureIDs index RSM.Textures (before 2.3). From 2.3 each node names
	// its own Textures and faces index those.
	TextureIDs []int32
	Textures   []string

	Matrix   [9]float32
	Offset   [3]float32
	Position [3]float32
	RotAngle float32
	RotAxis  [3]float32
	Scale    [3]float32

	Vertices  [][3]float32
	TexCoords []RSMTexCoord
	Faces     []RSMFace

	PosKeys   []RSMPosKeyframe
	RotKeys   []RSMRotKeyframe
	ScaleKeys []RSMScaleKeyframe
}

// RSMVolumeBox is a collision volume (before 2.2).
type RSMVolumeBox struct {
	Size     [3]float32
	Position [3]float32
	Rotation [3]float32
	Flag     int32
}

// RSM is a parsed model.
type RSM struct {
	Version     RSMVersion
	AnimLength  int32
	Shading     RSMShadingType
	Alpha       float32
	FPS         float32
	Textures    []string
	RootNodes   []string
	Nodes       []RSMNode
	VolumeBoxes []RSMVolumeBox
}

// ParseRSM parses a model in versions 1.1 to 2.3.
func ParseRSM(data []byte) (*RSM, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedRSMData
	}
	if string(data[:4]) != "GRSM" {
		return nil, ErrInvalidRSMMagic
	}

	rsm := &RSM{Version: RSMVersion{Major: data[4], Minor: data[5]}}
	v := rsm.Version
	if v.Major < 1 || v.Major > 2 || (v.Major == 2 && v.Minor > 3) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, v)
	}

	r := newReader(data, ErrTruncatedRSMData)
	r.skip(6, "header")
	rsm.AnimLength = r.i32("animation length")
	rsm.Shading = RSMShadingType(r.i32("shading"))
	rsm.Alpha = 1
	if v.AtLeast(1, 4) {
		rsm.Alpha = float32(r.u8("alpha")) / 255
	}

	if v.AtLeast(2, 2) {
		rsm.FPS = r.f32("fps")
		if !v.AtLeast(2, 3) {
			n := r.count(4, "texture")
			for i := 0; i < n && r.err == nil; i++ {
				rsm.Textures = append(rsm.Textures, r.lenString("texture name"))
			}
		}
		n := r.count(4, "root node")
		for i := 0; i < n && r.err == nil; i++ {
			rsm.RootNodes = append(rsm.RootNodes, r.lenString("root node name"))
		}
	} else {
		r.skip(16, "reserved")
		n := r.count(rsmNameSize, "texture")
		for i := 0; i < n && r.err == nil; i++ {
			rsm.Textures = append(rsm.Textures, r.fixedString(rsmNameSize, "texture name"))
		}
		rsm.RootNodes = []string{r.fixedString(rsmNameSize, "root node name")}
	}

	nodeCount := r.i32("node count")
	if r.err != nil {
		return nil, r.err
	}
	if nodeCount < 0 || nodeCount > rsmMaxNodes {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNodeCount, nodeCount)
	}

	rsm.Nodes = make([]RSMNode, nodeCount)
	for i := range rsm.Nodes {
		parseRSMNode(r, v, &rsm.Nodes[i])
		if r.err != nil {
			return nil, fmt.Errorf("parsing node %d: %w", i, r.err)
		}
	}

	if !v.AtLeast(2, 2) && r.remaining() >= 4 {
		parseRSMVolumeBoxes(r, rsm)
		if r.err != nil {
			return nil, fmt.Errorf("parsing volume boxes: %w", r.err)
		}
	}
	return rsm, nil
}

func parseRSMNode(r *reader, v RSMVersion, node *RSMNode) {
	if v.AtLeast(2, 2) {
		node.Name = r.lenString("node name")
		node.Parent = r.lenString("parent name")
	} else {
		node.Name = r.fixedString(rsmNameSize, "node name")
		node.Parent = r.fixedString(rsmNameSize, "parent name")
	}

	if v.AtLeast(2, 3) {
		n := r.count(4, "node texture")
		for i := 0; i < n && r.err == nil; i++ {
			node.Textures = append(node.Textures, r.lenString("node texture name"))
		}
	} else {
		n := r.count(4, "texture id")
		node.TextureIDs = make([]int32, n)
		for i := range node.TextureIDs {
			node.TextureIDs[i] = r.i32("texture id")
		}
	}

	for i := range node.Matrix {
		node.Matrix[i] = r.f32("matrix")
	}
	if v.AtLeast(2, 2) {
		node.Position = r.vec3("position")
		node.Scale = [3]float32{1, 1, 1}
	} else {
		node.Offset = r.vec3("offset")
		node.Position = r.vec3("position")
		node.RotAngle = r.f32("rotation angle")
		node.RotAxis = r.vec3("rotation axis")
		node.Scale = r.vec3("scale")
	}

	n := r.count(12, "vertex")
	node.Vertices = make([][3]float32, n)
	for i := range node.Vertices {
		node.Vertices[i] = r.vec3("vertex")
	}

	tcSize := 8
	if v.AtLeast(1, 2) {
		tcSize = 12
	}
	n = r.count(tcSize, "texture coordinate")
	node.TexCoords = make([]RSMTexCoord, n)
	for i := range node.TexCoords {
		tc := &node.TexCoords[i]
		tc.Color = [4]uint8{255, 255, 255, 255}
		if v.AtLeast(1, 2) {
			copy(tc.Color[:], r.take(4, "vertex color"))
		}
		tc.U = r.f32("u")
		tc.V = r.f32("v")
	}

	faceSize := rsmFaceSize - 4
	if v.AtLeast(1, 2) {
		faceSize = rsmFaceSize
	}
	n = r.count(faceSize, "face")
	node.Faces = make([]RSMFace, n)
	for i := range node.Faces {
		size := faceSize
		if v.AtLeast(2, 2) {
			size = int(r.i32("face length"))
		}
		f := &node.Faces[i]
		for j := range f.VertexIDs {
			f.VertexIDs[j] = r.u16("vertex id")
		}
		for j := range f.TexCoordIDs {
			f.TexCoordIDs[j] = r.u16("texcoord id")
		}
		f.TextureID = r.u16("face texture")
		f.Padding = r.u16("padding")
		f.TwoSide = r.i32("two side")
		if v.AtLeast(1, 2) {
			f.SmoothGroup = r.i32("smooth group")
		}
		if size > faceSize {
			r.skip(size-faceSize, "extra smooth groups")
		}
	}

	if !v.AtLeast(1, 5) {
		n = r.count(16, "position key")
		node.PosKeys = make([]RSMPosKeyframe, n)
		for i := range node.PosKeys {
			node.PosKeys[i] = RSMPosKeyframe{Frame: r.i32("frame"), Position: r.vec3("position key")}
		}
	}

	if v.AtLeast(1, 6) {
		n = r.count(20, "scale key")
		node.ScaleKeys = make([]RSMScaleKeyframe, n)
		for i := range node.ScaleKeys {
			node.ScaleKeys[i] = RSMScaleKeyframe{Frame: r.i32("frame"), Scale: r.vec3("scale key"), Data: r.f32("scale data")}
		}
	}

	n = r.count(20, "rotation key")
	node.RotKeys = make([]RSMRotKeyframe, n)
	for i := range node.RotKeys {
		node.RotKeys[i] = RSMRotKeyframe{Frame: r.i32("frame"), Quaternion: r.vec4("rotation key")}
	}

	if v.AtLeast(2, 2) {
		n = r.count(20, "position key")
		node.PosKeys = make([]RSMPosKeyframe, n)
		for i := range node.PosKeys {
			node.PosKeys[i] = RSMPosKeyframe{Frame: r.i32("frame"), Position: r.vec3("position key"), Data: r.f32("position data")}
		}
	}

	if v.AtLeast(2, 3) {
		skipRSMTextureAnimations(r)
	}
}

// skipRSMTextureAnimations steps over UV animation tracks, which a static
// export does not use.
func skipRSMTextureAnimations(r *reader) {
	textures := r.count(rsmTexAnimSize, "animated texture")
	for i := 0; i < textures && r.err == nil; i++ {
		r.skip(4, "texture id")
		tracks := r.count(rsmTexAnimSize, "texture animation")
		for j := 0; j < tracks && r.err == nil; j++ {
			r.skip(4, "animation type")
			frames := r.count(rsmTexAnimSize, "texture frame")
			r.skip(frames*rsmTexAnimSize, "texture frames")
		}
	}
}

func parseRSMVolumeBoxes(r *reader, rsm *RSM) {
	boxSize := 36
	if rsm.Version.AtLeast(1, 3) {
		boxSize = 40
	}
	n := r.count(boxSize, "volume box")
	rsm.VolumeBoxes = make([]RSMVolumeBox, n)
	for i := range rsm.VolumeBoxes {
		box := &rsm.VolumeBoxes[i]
		box.Size = r.vec3("box size")
		box.Position = r.vec3("box position")
		box.Rotation = r.vec3("box rotation")
		if rsm.Version.AtLeast(1, 3) {
			box.Flag = r.i32("box flag")
		}
	}
}

// ParseRSMFile parses an RSM file from disk.
func ParseRSMFile(path string) (*RSM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSM file: %w", err)
	}
	return ParseRSM(data)
}

// TotalVertexCount returns the number of vertices across all nodes.
func (rsm *RSM) TotalVertexCount() int {
	total := 0
	for _, node := range rsm.Nodes {
		total += len(node.Vertices)
	}
	return total
}

// TotalFaceCount returns the number of faces across all nodes.
func (rsm *RSM) TotalFaceCount() int {
	total := 0
	for _, node := range rsm.Nodes {
		total += len(node.Faces)
	}
	return total
}

// Node returns the first node called name, or nil.
func (rsm *RSM) Node(name string) *RSMNode {
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Name == name {
			return &rsm.Nodes[i]
		}
	}
	return nil
}

// Roots returns the root nodes. A model whose root name matches no node
// falls back to its first node.
func (rsm *RSM) Roots() []*RSMNode {
	var roots []*RSMNode
	for _, name := range rsm.RootNodes {
		if n := rsm.Node(name); n != nil {
			roots = append(roots, n)
		}
	}
	if len(roots) == 0 && len(rsm.Nodes) > 0 {
		roots = append(roots, &rsm.Nodes[0])
	}
	return roots
}

// Children returns the nodes whose parent is name. A node never counts as
// its own child.
func (rsm *RSM) Children(name string) []*RSMNode {
	var children []*RSMNode
	for i := range rsm.Nodes {
		n := &rsm.Nodes[i]
		if n.Parent == name && n.Name != name {
			children = append(children, n)
		}
	}
	return children
}

// HasAnimation reports whether any node has keyframes.
func (rsm *RSM) HasAnimation() bool {
	for _, node := range rsm.Nodes {
		if len(node.PosKeys) > 0 || len(node.RotKeys) > 0 || len(node.ScaleKeys) > 0 {
			return true
		}
	}
	return false
}

// FaceTexture resolves the texture path drawn on face f of node.
func (rsm *RSM) FaceTexture(node *RSMNode, f RSMFace) (string, bool) {
	id := int(f.TextureID)
	if rsm.Version.AtLeast(2, 3) {
		if id < len(node.Textures) {
			return node.Textures[id], true
		}
		return "", false
	}
	if id >= len(node.TextureIDs) {
		return "", false
	}
	global := int(node.TextureIDs[id])
	if global < 0 || global >= len(rsm.Textures) {
		return "", false
	}
	return rsm.Textures[global], true
}
