package formats

import (
	"errors"
	"fmt"
	"os"
)

// GND format errors.
var (
	ErrInvalidGNDMagic       = errors.New("invalid GND magic: expected 'GRGN'")
	ErrUnsupportedGNDVersion = errors.New("unsupported GND version")
	ErrTruncatedGNDData      = errors.New("truncated GND data")
	ErrInvalidGNDSize        = errors.New("invalid GND dimensions")
)

const (
	gndMaxSide     = 1024
	gndSurfaceSize = 40
	gndTileSize    = 28
)

// GNDVersion represents the GND file version.
type GNDVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v GNDVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// GNDSurface is a textured quad. Corners are ordered bottom-left,
// bottom-right, top-left, top-right.
type GNDSurface struct {
	U          [4]float32
	V          [4]float32
	TextureID  int16 // -1 = untextured
	LightmapID int16
	Color      [4]uint8 // BGRA
}

// GNDTile is one cell of the ground grid. Surface IDs are -1 when absent.
type GNDTile struct {
	Altitude     [4]float32
	TopSurface   int32
	FrontSurface int32
	RightSurface int32
}

// GND is a parsed ground mesh. Lightmap pixels are skipped; only their
// layout is kept.
type GND struct {
	Version        GNDVersion
	Width          uint32
	Height         uint32
	Zoom           float32
	Textures       []string
	LightmapCount  uint32
	LightmapWidth  uint32
	LightmapHeight uint32
	Surfaces       []GNDSurface
	Tiles          []GNDTile
}

// ParseGND parses a ground file in versions 1.5 to 1.9.
func ParseGND(data []byte) (*GND, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedGNDData
	}
	if string(data[:4]) != "GRGN" {
		return nil, ErrInvalidGNDMagic
	}

	gnd := &GND{Version: GNDVersion{Major: data[4], Minor: data[5]}}
	if gnd.Version.Major != 1 || gnd.Version.Minor < 5 || gnd.Version.Minor > 9 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGNDVersion, gnd.Version)
	}

	r := newReader(data, ErrTruncatedGNDData)
	r.skip(6, "header")
	gnd.Width = r.u32("width")
	gnd.Height = r.u32("height")
	gnd.Zoom = r.f32("zoom")
	if r.err != nil {
		return nil, r.err
	}
	if gnd.Width == 0 || gnd.Height == 0 || gnd.Width > gndMaxSide || gnd.Height > gndMaxSide {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGNDSize, gnd.Width, gnd.Height)
	}

	textures := r.count(0, "texture")
	nameLen := r.count(0, "texture name length")
	if r.err == nil && textures > 0 && nameLen > r.remaining()/textures {
		return nil, fmt.Errorf("%w: %d texture names of %d bytes", ErrTruncatedGNDData, textures, nameLen)
	}
	gnd.Textures = make([]string, 0, textures)
	for i := 0; i < textures && r.err == nil; i++ {
		gnd.Textures = append(gnd.Textures, r.fixedString(nameLen, "texture name"))
	}

	gnd.LightmapCount = r.u32("lightmap count")
	gnd.LightmapWidth = r.u32("lightmap width")
	gnd.LightmapHeight = r.u32("lightmap height")
	cells := r.u32("lightmap cells")
	pixels := uint64(gnd.LightmapWidth) * uint64(gnd.LightmapHeight) * uint64(cells)
	lightmapBytes := uint64(gnd.LightmapCount) * pixels * 4
	if r.err == nil && lightmapBytes > uint64(r.remaining()) {
		return nil, fmt.Errorf("%w: %d lightmaps", ErrTruncatedGNDData, gnd.LightmapCount)
	}
	r.skip(int(lightmapBytes), "lightmaps")

	n := r.count(gndSurfaceSize, "surface")
	gnd.Surfaces = make([]GNDSurface, n)
	for i := range gnd.Surfaces {
		s := &gnd.Surfaces[i]
		for j := range s.U {
			s.U[j] = r.f32("surface u")
		}
		for j := range s.V {
			s.V[j] = r.f32("surface v")
		}
		s.TextureID = r.i16("surface texture")
		s.LightmapID = r.i16("surface lightmap")
		copy(s.Color[:], r.take(4, "surface color"))
	}

	tiles := int(gnd.Width * gnd.Height)
	if r.err == nil && tiles > r.remaining()/gndTileSize {
		return nil, fmt.Errorf("%w: %d tiles", ErrTruncatedGNDData, tiles)
	}
	gnd.Tiles = make([]GNDTile, tiles)
	for i := range gnd.Tiles {
		t := &gnd.Tiles[i]
		t.Altitude = r.vec4("altitude")
		t.TopSurface = r.i32("top surface")
		t.FrontSurface = r.i32("front surface")
		t.RightSurface = r.i32("right surface")
	}
	if r.err != nil {
		return nil, r.err
	}
	return gnd, nil
}

// ParseGNDFile parses a GND file from disk.
func ParseGNDFile(path string) (*GND, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading GND file: %w", err)
	}
	return ParseGND(data)
}

// Tile returns the tile at x, y or nil when out of bounds.
func (g *GND) Tile(x, y int) *GNDTile {
	if x < 0 || y < 0 || x >= int(g.Width) || y >= int(g.Height) {
		return nil
	}
	return &g.Tiles[y*int(g.Width)+x]
}

// Surface returns surface id or nil for -1 and out-of-range IDs.
func (g *GND) Surface(id int32) *GNDSurface {
	if id < 0 || int(id) >= len(g.Surfaces) {
		return nil
	}
	return &g.Surfaces[id]
}

// AltitudeRange returns the lowest and highest corner altitude.
func (g *GND) AltitudeRange() (lo, hi float32) {
	if len(g.Tiles) == 0 {
		return 0, 0
	}
	lo, hi = g.Tiles[0].Altitude[0], g.Tiles[0].Altitude[0]
	for _, tile := range g.Tiles {
		for _, h := range tile.Altitude {
			lo = min(lo, h)
			hi = max(hi, h)
		}
	}
	return lo, hi
}

// CountSurfacesByTexture returns how many textured surfaces use each texture.
func (g *GND) CountSurfacesByTexture() map[int]int {
	counts := make(map[int]int)
	for _, s := range g.Surfaces {
		if s.TextureID >= 0 {
			counts[int(s.TextureID)]++
		}
	}
	return counts
}
