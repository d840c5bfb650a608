package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrInvalidSTL reports malformed or truncated STL data.
var ErrInvalidSTL = errors.New("invalid STL data")

const (
	stlHeaderSize   = 80
	stlTriangleSize = 50
)

// STLTriangle is one facet. The stored normal is kept as read.
type STLTriangle struct {
	Normal     [3]float32
	V1, V2, V3 [3]float32
}

// STL is a parsed stereolithography model.
type STL struct {
	Name      string
	Triangles []STLTriangle
}

// ParseSTL parses ASCII or binary STL. Binary files whose header happens
// to start with "solid" are recognised by their exact size.
func ParseSTL(data []byte) (*STL, error) {
	if isBinarySTL(data) {
		return parseBinarySTL(data)
	}
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")) {
		return parseASCIISTL(data)
	}
	return parseBinarySTL(data)
}

// ParseSTLFile parses an STL file from disk.
func ParseSTLFile(path string) (*STL, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading STL file: %w", err)
	}
	return ParseSTL(data)
}

func isBinarySTL(data []byte) bool {
	if len(data) < stlHeaderSize+4 {
		return false
	}
	r := newReader(data[stlHeaderSize:], ErrInvalidSTL)
	n := int(r.u32("triangle count"))
	return len(data) == stlHeaderSize+4+n*stlTriangleSize
}

func parseBinarySTL(data []byte) (*STL, error) {
	r := newReader(data, ErrInvalidSTL)
	model := &STL{Name: strings.TrimSpace(string(bytes.TrimRight(r.take(stlHeaderSize, "header"), "\x00")))}

	n := r.i32("triangle count")
	if r.err == nil && (n < 0 || int(n) > r.remaining()/stlTriangleSize) {
		return nil, fmt.Errorf("%w: %d triangles in %d bytes", ErrInvalidSTL, uint32(n), r.remaining())
	}
	model.Triangles = make([]STLTriangle, n)
	for i := range model.Triangles {
		t := &model.Triangles[i]
		t.Normal = r.vec3("normal")
		t.V1 = r.vec3("vertex")
		t.V2 = r.vec3("vertex")
		t.V3 = r.vec3("vertex")
		r.skip(2, "attribute byte count")
	}
	if r.err != nil {
		return nil, r.err
	}
	return model, nil
}

// parseASCIISTL reads facets line by line. Facets that do not have exactly
// three vertices are dropped.
func parseASCIISTL(data []byte) (*STL, error) {
	model := &STL{}
	scanner := bufio.NewScanner(bytes.NewReader(data))

	var (
		normal   [3]float32
		vertices [][3]float32
		line     int
	)
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "solid":
			model.Name = strings.Join(fields[1:], " ")
		case "facet":
			if len(fields) < 5 || fields[1] != "normal" {
				return nil, fmt.Errorf("%w: line %d: malformed facet", ErrInvalidSTL, line)
			}
			v, err := parseSTLVector(fields[2:5])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidSTL, line, err)
			}
			normal = v
			vertices = vertices[:0]
		case "vertex":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d: malformed vertex", ErrInvalidSTL, line)
			}
			v, err := parseSTLVector(fields[1:4])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidSTL, line, err)
			}
			vertices = append(vertices, v)
		case "endfacet":
			if len(vertices) == 3 {
				model.Triangles = append(model.Triangles, STLTriangle{
					Normal: normal, V1: vertices[0], V2: vertices[1], V3: vertices[2],
				})
			}
			vertices = vertices[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSTL, err)
	}
	return model, nil
}

func parseSTLVector(fields []string) ([3]float32, error) {
	var v [3]float32
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return v, err
		}
		v[i] = float32(x)
	}
	return v, nil
}

// Positions returns the triangle soup as flat x, y, z floats.
func (m *STL) Positions() []float32 {
	out := make([]float32, 0, len(m.Triangles)*9)
	for _, t := range m.Triangles {
		out = append(out, t.V1[:]...)
		out = append(out, t.V2[:]...)
		out = append(out, t.V3[:]...)
	}
	return out
}

// Bounds returns the axis-aligned bounding box of all vertices.
func (m *STL) Bounds() (lo, hi [3]float32) {
	if len(m.Triangles) == 0 {
		return lo, hi
	}
	lo, hi = m.Triangles[0].V1, m.Triangles[0].V1
	for _, t := range m.Triangles {
		for _, v := range [3][3]float32{t.V1, t.V2, t.V3} {
			for i := range v {
				lo[i] = min(lo[i], v[i])
				hi[i] = max(hi[i], v[i])
			}
		}
	}
	return lo, hi
}
