// Package formats parses the geometry sources the exporter reads: RSM
// models, RSW world placements, GND ground meshes and STL solids.
//
// All parsers take the whole file as a byte slice, decode names from
// EUC-KR and return a wrapped sentinel error on truncated input.
package formats

import (
	"path"
	"strings"
)

// Kind identifies a supported source format.
type Kind int

const (
	KindUnknown Kind = iota
	KindRSM
	KindRSW
	KindGND
	KindSTL
)

// String returns the lower-case file extension of the kind.
func (k Kind) String() string {
	switch k {
	case KindRSM:
		return "rsm"
	case KindRSW:
		return "rsw"
	case KindGND:
		return "gnd"
	case KindSTL:
		return "stl"
	default:
		return "unknown"
	}
}

// KindOf classifies a file name by extension. RSM2 files share the RSM
// parser.
func KindOf(name string) Kind {
	switch strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/"))) {
	case ".rsm", ".rsm2":
		return KindRSM
	case ".rsw":
		return KindRSW
	case ".gnd":
		return KindGND
	case ".stl":
		return KindSTL
	default:
		return KindUnknown
	}
}
