// Package formatstest encodes parsed structures back into file bytes for
// tests of code that consumes the formats package.
package formatstest

import (
	"bytes"
	"encoding/binary"

	"github.com/Faultbox/midgard-3mf/pkg/encoding"
	"github.com/Faultbox/midgard-3mf/pkg/formats"
)

type buffer struct {
	bytes.Buffer
}

func (b *buffer) put(values ...any) *buffer {
	for _, v := range values {
		if err := binary.Write(&b.Buffer, binary.LittleEndian, v); err != nil {
			panic(err)
		}
	}
	return b
}

func (b *buffer) fixed(s string, n int) *buffer {
	field := make([]byte, n)
	copy(field, encoding.UTF8ToEUCKR(s))
	b.Write(field)
	return b
}

func (b *buffer) str(s string) *buffer {
	data := encoding.UTF8ToEUCKR(s)
	b.put(int32(len(data)))
	b.Write(data)
	return b
}

// RSM encodes m in the layout of m.Version. Texture animations are written
// empty for 2.3.
func RSM(m *formats.RSM) []byte {
	v := m.Version
	var b buffer
	b.WriteString("GRSM")
	b.put(v.Major, v.Minor, m.AnimLength, int32(m.Shading))
	if v.AtLeast(1, 4) {
		b.put(uint8(m.Alpha * 255))
	}

	if v.AtLeast(2, 2) {
		b.put(m.FPS)
		if !v.AtLeast(2, 3) {
			b.put(int32(len(m.Textures)))
			for _, t := range m.Textures {
				b.str(t)
			}
		}
		b.put(int32(len(m.RootNodes)))
		for _, r := range m.RootNodes {
			b.str(r)
		}
	} else {
		b.Write(make([]byte, 16))
		b.put(int32(len(m.Textures)))
		for _, t := range m.Textures {
			b.fixed(t, 40)
		}
		root := ""
		if len(m.RootNodes) > 0 {
			root = m.RootNodes[0]
		}
		b.fixed(root, 40)
	}

	b.put(int32(len(m.Nodes)))
	for i := range m.Nodes {
		rsmNode(&b, v, &m.Nodes[i])
	}

	if !v.AtLeast(2, 2) {
		b.put(int32(len(m.VolumeBoxes)))
		for _, box := range m.VolumeBoxes {
			b.put(box.Size, box.Position, box.Rotation)
			if v.AtLeast(1, 3) {
				b.put(box.Flag)
			}
		}
	}
	return b.Bytes()
}

func rsmNode(b *buffer, v formats.RSMVersion, n *formats.RSMNode) {
	if v.AtLeast(2, 2) {
		b.str(n.Name).str(n.Parent)
	} else {
		b.fixed(n.Name, 40).fixed(n.Parent, 40)
	}

	if v.AtLeast(2, 3) {
		b.put(int32(len(n.Textures)))
		for _, t := range n.Textures {
			b.str(t)
		}
	} else {
		b.put(int32(len(n.TextureIDs)), n.TextureIDs)
	}

	b.put(n.Matrix)
	if v.AtLeast(2, 2) {
		b.put(n.Position)
	} else {
		b.put(n.Offset, n.Position, n.RotAngle, n.RotAxis, n.Scale)
	}

	b.put(int32(len(n.Vertices)), n.Vertices)

	b.put(int32(len(n.TexCoords)))
	for _, tc := range n.TexCoords {
		if v.AtLeast(1, 2) {
			b.put(tc.Color)
		}
		b.put(tc.U, tc.V)
	}

	b.put(int32(len(n.Faces)))
	for _, f := range n.Faces {
		if v.AtLeast(2, 2) {
			b.put(int32(24))
		}
		b.put(f.VertexIDs, f.TexCoordIDs, f.TextureID, f.Padding, f.TwoSide)
		if v.AtLeast(1, 2) {
			b.put(f.SmoothGroup)
		}
	}

	if !v.AtLeast(1, 5) {
		b.put(int32(len(n.PosKeys)))
		for _, k := range n.PosKeys {
			b.put(k.Frame, k.Position)
		}
	}
	if v.AtLeast(1, 6) {
		b.put(int32(len(n.ScaleKeys)))
		for _, k := range n.ScaleKeys {
			b.put(k.Frame, k.Scale, k.Data)
		}
	}
	b.put(int32(len(n.RotKeys)))
	for _, k := range n.RotKeys {
		b.put(k.Frame, k.Quaternion)
	}
	if v.AtLeast(2, 2) {
		b.put(int32(len(n.PosKeys)))
		for _, k := range n.PosKeys {
			b.put(k.Frame, k.Position, k.Data)
		}
	}
	if v.AtLeast(2, 3) {
		b.put(int32(0))
	}
}

// GND encodes g with empty lightmaps and 80-byte texture names.
func GND(g *formats.GND) []byte {
	var b buffer
	b.WriteString("GRGN")
	b.put(g.Version.Major, g.Version.Minor, g.Width, g.Height, g.Zoom)

	b.put(uint32(len(g.Textures)), uint32(80))
	for _, t := range g.Textures {
		b.fixed(t, 80)
	}

	b.put(uint32(0), uint32(8), uint32(8), uint32(1))

	b.put(uint32(len(g.Surfaces)))
	for _, s := range g.Surfaces {
		b.put(s.U, s.V, s.TextureID, s.LightmapID, s.Color)
	}
	for _, t := range g.Tiles {
		b.put(t.Altitude, t.TopSurface, t.FrontSurface, t.RightSurface)
	}
	return b.Bytes()
}

// RSW encodes w in the layout of w.Version.
func RSW(w *formats.RSW) []byte {
	v := w.Version
	var b buffer
	b.WriteString("GRSW")
	b.put(v.Major, v.Minor)
	switch {
	case v.AtLeast(2, 5):
		b.put(v.BuildNumber, uint8(0))
	case v.AtLeast(2, 2):
		b.put(uint8(v.BuildNumber))
	}

	b.fixed(w.IniFile, 40).fixed(w.GndFile, 40)
	if v.AtLeast(1, 4) {
		b.fixed(w.GatFile, 40)
	}
	b.fixed(w.SrcFile, 40)

	if v.AtLeast(1, 3) && !v.AtLeast(2, 6) {
		wt := w.Water
		b.put(wt.Level, wt.Type, wt.WaveHeight, wt.WaveSpeed, wt.WavePitch, wt.AnimSpeed)
	}
	if v.AtLeast(1, 5) {
		l := w.Light
		b.put(l.Longitude, l.Latitude, l.Diffuse, l.Ambient)
		if v.AtLeast(1, 7) {
			b.put(l.Opacity)
		}
	}
	if v.AtLeast(1, 6) {
		g := w.Ground
		b.put(g.Top, g.Bottom, g.Left, g.Right)
	}

	b.put(int32(len(w.Objects)))
	for _, obj := range w.Objects {
		b.put(int32(obj.Type))
		switch {
		case obj.Model != nil:
			m := obj.Model
			if v.AtLeast(1, 3) {
				b.fixed(m.Name, 40).put(m.AnimType, m.AnimSpeed, m.BlockType)
			}
			if v.AtLeast(2, 6) && v.BuildNumber >= 162 {
				b.put(uint8(0))
			}
			b.fixed(m.ModelName, 80).fixed(m.NodeName, 80)
			b.put(m.Position, m.Rotation, m.Scale)
		case obj.Light != nil:
			l := obj.Light
			b.fixed(l.Name, 80).put(l.Position, l.Color, l.Range)
		case obj.Sound != nil:
			s := obj.Sound
			b.fixed(s.Name, 80).fixed(s.File, 80)
			b.put(s.Position, s.Volume, s.Width, s.Height, s.Range)
			if v.AtLeast(2, 0) {
				b.put(s.Cycle)
			}
		case obj.Effect != nil:
			e := obj.Effect
			b.fixed(e.Name, 80).put(e.Position, e.EffectID, e.Delay, e.Param)
		}
	}

	if v.AtLeast(2, 1) {
		for _, q := range w.Quadtree {
			b.put(q)
		}
	}
	return b.Bytes()
}
