package threemf

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

const displayGamma = 2.2

// ColorHex encodes a linear RGB color as #RRGGBB. Each channel is gamma
// encoded with pow(c, 1/2.2) and quantized to a byte.
func ColorHex(c colorful.Color) string {
	return fmt.Sprintf("#%02X%02X%02X", toSRGB(c.R), toSRGB(c.G), toSRGB(c.B))
}

// ColorHexAlpha is ColorHex with a linear alpha channel appended.
func ColorHexAlpha(c colorful.Color, alpha float64) string {
	return fmt.Sprintf("#%02X%02X%02X%02X", toSRGB(c.R), toSRGB(c.G), toSRGB(c.B), toByte(alpha))
}

// LinearFromHex parses a #RRGGBB sRGB color into linear channels, the
// inverse of ColorHex up to rounding.
func LinearFromHex(s string) (colorful.Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}, err
	}
	return colorful.Color{
		R: math.Pow(c.R, displayGamma),
		G: math.Pow(c.G, displayGamma),
		B: math.Pow(c.B, displayGamma),
	}, nil
}

func toSRGB(c float64) uint8 {
	if c <= 0 || math.IsNaN(c) {
		return 0
	}
	return toByte(math.Pow(c, 1/displayGamma))
}

func toByte(v float64) uint8 {
	return uint8(math.Round(math.Min(255, math.Max(0, v*255))))
}
