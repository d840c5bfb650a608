package threemf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Faultbox/midgard-3mf/pkg/xmlser"
)

// MatrixFormatterID names the formatter registered for Matrix3d fields.
const MatrixFormatterID = "matrix3d"

// Matrix3d is an affine transform in 3MF wire order:
// m00 m01 m02 m10 m11 m12 m20 m21 m22 m30 m31 m32.
// Points are row vectors, so the last three values are the translation.
type Matrix3d [12]float64

// IdentityMatrix3d returns the identity transform.
func IdentityMatrix3d() Matrix3d {
	return Matrix3d{1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0}
}

// TranslateMatrix3d returns a translation.
func TranslateMatrix3d(tx, ty, tz float64) Matrix3d {
	return Matrix3d{1, 0, 0, 0, 1, 0, 0, 0, 1, tx, ty, tz}
}

// IsIdentity reports whether every value is within eps of the identity.
func (m Matrix3d) IsIdentity(eps float64) bool {
	id := IdentityMatrix3d()
	for i := range m {
		d := m[i] - id[i]
		if d > eps || d < -eps {
			return false
		}
	}
	return true
}

// Apply transforms the point (x, y, z).
func (m Matrix3d) Apply(x, y, z float64) (float64, float64, float64) {
	return x*m[0] + y*m[3] + z*m[6] + m[9],
		x*m[1] + y*m[4] + z*m[7] + m[10],
		x*m[2] + y*m[5] + z*m[8] + m[11]
}

// String joins the raw values with spaces.
func (m Matrix3d) String() string {
	parts := make([]string, len(m))
	for i, v := range m {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

// MatrixFormatter writes a Matrix3d as twelve formatted numbers.
type MatrixFormatter struct {
	nf *xmlser.NumberFormatter
}

// NewMatrixFormatter creates a formatter sharing nf.
func NewMatrixFormatter(nf *xmlser.NumberFormatter) *MatrixFormatter {
	return &MatrixFormatter{nf: nf}
}

// Format writes m.
func (f *MatrixFormatter) Format(m Matrix3d) (string, error) {
	var sb strings.Builder
	for i, v := range m {
		s, err := f.nf.Format(v)
		if err != nil {
			return "", fmt.Errorf("matrix value %d: %w", i, err)
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

// FormatValue implements xmlser.ValueFormatter.
func (f *MatrixFormatter) FormatValue(v any) (string, error) {
	switch m := v.(type) {
	case Matrix3d:
		return f.Format(m)
	case *Matrix3d:
		return f.Format(*m)
	default:
		return "", fmt.Errorf("matrix formatter: unsupported type %T", v)
	}
}
