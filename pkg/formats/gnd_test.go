package formats

import (
	"errors"
	"testing"
)

type gndFixture struct {
	minor    uint8
	width    uint32
	height   uint32
	textures []string
	surfaces []GNDSurface
	tiles    []GNDTile
}

func (g gndFixture) bytes() []byte {
	var f fixture
	f.WriteString("GRGN")
	f.put(uint8(1), g.minor, g.width, g.height, float32(10))

	f.put(uint32(len(g.textures)), uint32(80))
	for _, tex := range g.textures {
		f.fixed(tex, 80)
	}

	// one 8x8 single-cell lightmap
	f.put(uint32(1), uint32(8), uint32(8), uint32(1))
	f.Write(make([]byte, 8*8*4))

	f.put(uint32(len(g.surfaces)))
	for _, s := range g.surfaces {
		f.put(s.U, s.V, s.TextureID, s.LightmapID, s.Color)
	}

	for i := 0; i < int(g.width*g.height); i++ {
		tile := GNDTile{TopSurface: -1, FrontSurface: -1, RightSurface: -1}
		if i < len(g.tiles) {
			tile = g.tiles[i]
		}
		f.put(tile.Altitude, tile.TopSurface, tile.FrontSurface, tile.RightSurface)
	}
	return f.Bytes()
}

func groundFixture() gndFixture {
	return gndFixture{
		minor:    7,
		width:    2,
		height:   2,
		textures: []string{"data\\texture\\grass.bmp", "data\\texture\\돌바닥.bmp"},
		surfaces: []GNDSurface{
			{U: [4]float32{0, 1, 0, 1}, V: [4]float32{0, 0, 1, 1}, TextureID: 0, Color: [4]uint8{255, 255, 255, 255}},
			{U: [4]float32{0, 1, 0, 1}, V: [4]float32{0, 0, 1, 1}, TextureID: 1},
			{TextureID: -1},
		},
		tiles: []GNDTile{
			{Altitude: [4]float32{-5, -5, -5, -5}, TopSurface: 0, FrontSurface: 1, RightSurface: -1},
			{Altitude: [4]float32{0, 0, 0, 0}, TopSurface: 1, FrontSurface: -1, RightSurface: -1},
			{Altitude: [4]float32{10, 10, 10, 10}, TopSurface: 0, FrontSurface: -1, RightSurface: 2},
		},
	}
}

func TestParseGND_ValidFile(t *testing.T) {
	gnd, err := ParseGND(groundFixture().bytes())
	if err != nil {
		t.Fatalf("ParseGND failed: %v", err)
	}

	if gnd.Version.String() != "1.7" {
		t.Errorf("Version = %s, want 1.7", gnd.Version)
	}
	if gnd.Width != 2 || gnd.Height != 2 || gnd.Zoom != 10 {
		t.Errorf("size = %dx%d zoom %v", gnd.Width, gnd.Height, gnd.Zoom)
	}
	if gnd.LightmapCount != 1 || gnd.LightmapWidth != 8 {
		t.Errorf("lightmaps = %d of width %d", gnd.LightmapCount, gnd.LightmapWidth)
	}
	if len(gnd.Surfaces) != 3 || len(gnd.Tiles) != 4 {
		t.Fatalf("got %d surfaces, %d tiles", len(gnd.Surfaces), len(gnd.Tiles))
	}
	if gnd.Surfaces[0].Color != [4]uint8{255, 255, 255, 255} {
		t.Errorf("surface color = %v", gnd.Surfaces[0].Color)
	}
	if gnd.Surfaces[2].TextureID != -1 {
		t.Errorf("untextured surface = %d", gnd.Surfaces[2].TextureID)
	}
	if last := gnd.Tiles[3]; last.TopSurface != -1 {
		t.Errorf("default tile top surface = %d", last.TopSurface)
	}
}

func TestParseGND_TextureNames(t *testing.T) {
	gnd, err := ParseGND(groundFixture().bytes())
	if err != nil {
		t.Fatalf("ParseGND failed: %v", err)
	}

	want := []string{"data\\texture\\grass.bmp", "data\\texture\\돌바닥.bmp"}
	if len(gnd.Textures) != len(want) {
		t.Fatalf("Textures = %v", gnd.Textures)
	}
	for i := range want {
		if gnd.Textures[i] != want[i] {
			t.Errorf("Textures[%d] = %q, want %q", i, gnd.Textures[i], want[i])
		}
	}
}

func TestParseGND_Errors(t *testing.T) {
	valid := groundFixture().bytes()
	badMagic := append([]byte("XXXX"), valid[4:]...)
	badVersion := append([]byte(nil), valid...)
	badVersion[5] = 4
	zeroSize := groundFixture()
	zeroSize.width = 0

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"invalid magic", badMagic, ErrInvalidGNDMagic},
		{"short header", []byte("GRGN"), ErrTruncatedGNDData},
		{"unsupported version", badVersion, ErrUnsupportedGNDVersion},
		{"zero width", zeroSize.bytes(), ErrInvalidGNDSize},
		{"cut in textures", valid[:40], ErrTruncatedGNDData},
		{"cut in tiles", valid[:len(valid)-10], ErrTruncatedGNDData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGND(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseGND_Versions(t *testing.T) {
	for minor := uint8(5); minor <= 9; minor++ {
		g := groundFixture()
		g.minor = minor
		if _, err := ParseGND(g.bytes()); err != nil {
			t.Errorf("version 1.%d: %v", minor, err)
		}
	}
}

func TestGND_Tile(t *testing.T) {
	gnd := &GND{Width: 10, Height: 10, Tiles: make([]GNDTile, 100)}
	gnd.Tiles[55].Altitude[0] = 42

	tests := []struct {
		x, y   int
		wantOK bool
	}{
		{0, 0, true},
		{5, 5, true},
		{9, 9, true},
		{-1, 0, false},
		{0, -1, false},
		{10, 0, false},
		{0, 10, false},
	}

	for _, tt := range tests {
		tile := gnd.Tile(tt.x, tt.y)
		if (tile != nil) != tt.wantOK {
			t.Errorf("Tile(%d, %d) = %v, wantOK %v", tt.x, tt.y, tile, tt.wantOK)
		}
	}
	if gnd.Tile(5, 5).Altitude[0] != 42 {
		t.Error("Tile(5, 5) returned the wrong cell")
	}
}

func TestGND_Surface(t *testing.T) {
	gnd := &GND{Surfaces: []GNDSurface{{TextureID: 3}}}

	if s := gnd.Surface(0); s == nil || s.TextureID != 3 {
		t.Errorf("Surface(0) = %v", s)
	}
	if gnd.Surface(-1) != nil || gnd.Surface(1) != nil {
		t.Error("out-of-range surfaces must be nil")
	}
}

func TestGND_AltitudeRange(t *testing.T) {
	gnd, err := ParseGND(groundFixture().bytes())
	if err != nil {
		t.Fatal(err)
	}
	lo, hi := gnd.AltitudeRange()
	if lo != -5 || hi != 10 {
		t.Errorf("AltitudeRange() = %v, %v, want -5, 10", lo, hi)
	}

	lo, hi = (&GND{}).AltitudeRange()
	if lo != 0 || hi != 0 {
		t.Errorf("empty AltitudeRange() = %v, %v", lo, hi)
	}
}

func TestGND_CountSurfacesByTexture(t *testing.T) {
	gnd := &GND{
		Surfaces: []GNDSurface{
			{TextureID: 0}, {TextureID: 0}, {TextureID: 1}, {TextureID: -1}, {TextureID: 2}, {TextureID: 2}, {TextureID: 2},
		},
	}

	counts := gnd.CountSurfacesByTexture()
	want := map[int]int{0: 2, 1: 1, 2: 3}
	if len(counts) != len(want) {
		t.Fatalf("counts = %v", counts)
	}
	for k, v := range want {
		if counts[k] != v {
			t.Errorf("counts[%d] = %d, want %d", k, counts[k], v)
		}
	}
}
