package formats

import (
	"errors"
	"testing"
)

const asciiCube = `solid corner piece
  facet normal 0 0 -1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 0
    endloop
  endfacet
  facet normal 0 -1 0
    outer loop
      vertex 0 0 0
      vertex 0 0 2.5
      vertex 1 0 0
    endloop
  endfacet
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
    endloop
  endfacet
endsolid corner piece
`

func binarySTL(header string, tris []STLTriangle) []byte {
	var f fixture
	h := make([]byte, 80)
	copy(h, header)
	f.Write(h)
	f.put(uint32(len(tris)))
	for _, t := range tris {
		f.put(t.Normal, t.V1, t.V2, t.V3, uint16(0))
	}
	return f.Bytes()
}

func TestParseSTL_ASCII(t *testing.T) {
	model, err := ParseSTL([]byte(asciiCube))
	if err != nil {
		t.Fatalf("ParseSTL failed: %v", err)
	}

	if model.Name != "corner piece" {
		t.Errorf("Name = %q", model.Name)
	}
	if len(model.Triangles) != 2 {
		t.Fatalf("got %d triangles, want 2 (two-vertex facet dropped)", len(model.Triangles))
	}
	if model.Triangles[1].V2 != [3]float32{0, 0, 2.5} {
		t.Errorf("V2 = %v", model.Triangles[1].V2)
	}
	if model.Triangles[0].Normal != [3]float32{0, 0, -1} {
		t.Errorf("Normal = %v", model.Triangles[0].Normal)
	}
}

func TestParseSTL_Binary(t *testing.T) {
	tris := []STLTriangle{
		{Normal: [3]float32{0, 0, 1}, V1: [3]float32{0, 0, 0}, V2: [3]float32{1, 0, 0}, V3: [3]float32{0, 1, 0}},
		{Normal: [3]float32{0, 0, 1}, V1: [3]float32{1, 0, 0}, V2: [3]float32{1, 1, 0}, V3: [3]float32{0, 1, 0}},
	}

	tests := []struct {
		name   string
		header string
	}{
		{"plain header", "exported part"},
		{"header starting with solid", "solid but binary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, err := ParseSTL(binarySTL(tt.header, tris))
			if err != nil {
				t.Fatalf("ParseSTL failed: %v", err)
			}
			if model.Name != tt.header {
				t.Errorf("Name = %q, want %q", model.Name, tt.header)
			}
			if len(model.Triangles) != 2 || model.Triangles[1] != tris[1] {
				t.Errorf("Triangles = %v", model.Triangles)
			}
		})
	}
}

func TestParseSTL_Errors(t *testing.T) {
	tri := []STLTriangle{{V2: [3]float32{1, 0, 0}, V3: [3]float32{0, 1, 0}}}
	full := binarySTL("part", tri)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", []byte("part")},
		{"missing triangles", full[:len(full)-10]},
		{"bad ascii number", []byte("solid x\nfacet normal 0 0 one\nendfacet\n")},
		{"bad ascii vertex", []byte("solid x\nfacet normal 0 0 1\nvertex 0 0\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSTL(tt.data)
			if !errors.Is(err, ErrInvalidSTL) {
				t.Errorf("got %v, want ErrInvalidSTL", err)
			}
		})
	}
}

func TestSTL_PositionsAndBounds(t *testing.T) {
	model, err := ParseSTL([]byte(asciiCube))
	if err != nil {
		t.Fatal(err)
	}

	pos := model.Positions()
	if len(pos) != 18 {
		t.Fatalf("len(Positions()) = %d, want 18", len(pos))
	}
	if pos[3] != 1 || pos[14] != 2.5 {
		t.Errorf("Positions() = %v", pos)
	}

	lo, hi := model.Bounds()
	if lo != [3]float32{0, 0, 0} || hi != [3]float32{1, 1, 2.5} {
		t.Errorf("Bounds() = %v, %v", lo, hi)
	}

	lo, hi = (&STL{}).Bounds()
	if lo != [3]float32{} || hi != [3]float32{} {
		t.Errorf("empty Bounds() = %v, %v", lo, hi)
	}
}
