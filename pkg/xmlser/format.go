package xmlser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Formatting errors.
var (
	ErrNonFinite  = errors.New("cannot format non-finite number")
	ErrExponent   = errors.New("scientific notation not allowed in XML output")
	ErrInvalidEps = errors.New("eps must be a finite, positive number")
)

// Defaults for FormatOptions.
const (
	DefaultEps            = 1e-6
	DefaultMaxDecimalsCap = 15
	maxDecimalsLimit      = 20
)

// FormatOptions controls how floating point values are written.
type FormatOptions struct {
	// Eps is the quantization step. Values are rounded to the nearest multiple.
	Eps float64 `yaml:"eps" toml:"eps"`
	// MaxDecimalsCap bounds the number of decimals, clamped to [0, 20].
	MaxDecimalsCap int `yaml:"max_decimals" toml:"max_decimals"`
	// FixedDecimals forces a decimal count and disables trimming when set.
	FixedDecimals *int `yaml:"fixed_decimals,omitempty" toml:"fixed_decimals,omitempty"`
	// TrimTrailingZeros removes trailing zeros and a bare decimal point.
	TrimTrailingZeros bool `yaml:"trim_trailing_zeros" toml:"trim_trailing_zeros"`
	// SnapNearZero writes values at or below ZeroThreshold as 0.
	SnapNearZero bool `yaml:"snap_near_zero" toml:"snap_near_zero"`
	// ZeroThreshold defaults to Eps when zero.
	ZeroThreshold float64 `yaml:"zero_threshold,omitempty" toml:"zero_threshold,omitempty"`
}

// DefaultFormatOptions returns eps 1e-6, cap 15, trimming and snapping on.
func DefaultFormatOptions() FormatOptions {
	return FormatOptions{
		Eps:               DefaultEps,
		MaxDecimalsCap:    DefaultMaxDecimalsCap,
		TrimTrailingZeros: true,
		SnapNearZero:      true,
	}
}

// NumberFormatter writes floats as fixed-point decimal strings on an eps grid.
// The output never uses scientific notation.
type NumberFormatter struct {
	opts     FormatOptions
	inv      float64
	decimals int
	zero     float64
}

// NewNumberFormatter validates opts and precomputes the decimal count.
func NewNumberFormatter(opts FormatOptions) (*NumberFormatter, error) {
	if math.IsNaN(opts.Eps) || math.IsInf(opts.Eps, 0) || opts.Eps <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEps, opts.Eps)
	}

	capDecimals := clampInt(opts.MaxDecimalsCap, 0, maxDecimalsLimit)

	var decimals int
	if opts.FixedDecimals != nil {
		decimals = clampInt(*opts.FixedDecimals, 0, capDecimals)
	} else {
		// The small bias absorbs Log10 noise for exact powers of ten.
		decimals = clampInt(int(math.Ceil(-math.Log10(opts.Eps)-1e-9)), 0, capDecimals)
	}

	zero := opts.ZeroThreshold
	if zero <= 0 {
		zero = opts.Eps
	}

	return &NumberFormatter{
		opts:     opts,
		inv:      1 / opts.Eps,
		decimals: decimals,
		zero:     zero,
	}, nil
}

// Decimals returns the number of decimals written before trimming.
func (f *NumberFormatter) Decimals() int {
	return f.decimals
}

// Format quantizes x and writes it in fixed-point notation.
func (f *NumberFormatter) Format(x float64) (string, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "", fmt.Errorf("%w: %v", ErrNonFinite, x)
	}

	// Round half up on the eps grid.
	q := math.Floor(x*f.inv+0.5) / f.inv
	if math.IsInf(q, 0) || math.IsNaN(q) {
		return "", fmt.Errorf("%w: %v overflows the eps grid", ErrNonFinite, x)
	}

	if q == 0 {
		q = 0 // drops the sign of -0
	}
	if f.opts.SnapNearZero && math.Abs(q) <= f.zero {
		q = 0
	}

	var s string
	if f.decimals == 0 {
		s = strconv.FormatFloat(math.Trunc(q), 'f', 0, 64)
	} else {
		s = strconv.FormatFloat(q, 'f', f.decimals, 64)
		if f.opts.TrimTrailingZeros && f.opts.FixedDecimals == nil {
			s = trimZeros(s)
		}
	}
	if s == "-0" {
		s = "0"
	}

	if strings.ContainsAny(s, "eE") {
		return "", fmt.Errorf("%w: %s", ErrExponent, s)
	}
	return s, nil
}

// FormatValue implements ValueFormatter for float and integer values.
func (f *NumberFormatter) FormatValue(v any) (string, error) {
	switch n := v.(type) {
	case float64:
		return f.Format(n)
	case float32:
		return f.Format(float64(n))
	case int:
		return f.Format(float64(n))
	default:
		return "", fmt.Errorf("number formatter: unsupported type %T", v)
	}
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
