// Package texture decodes model and ground textures and reduces them to a
// single display colour.
package texture

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // JPEG decoder registration
	_ "image/png"  // PNG decoder registration
	"path"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/bmp"
)

// ErrInvalidTGA reports malformed or unsupported TGA data.
var ErrInvalidTGA = errors.New("invalid TGA data")

const tgaHeaderSize = 18

// TGA image types.
const (
	TGATypeUncompressed = 2
	TGATypeRLE          = 10
)

// Decode decodes a texture, picking the decoder from the file extension.
// BMP and TGA cover almost every texture; PNG and JPEG are sniffed.
func Decode(name string, data []byte) (image.Image, error) {
	switch strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/"))) {
	case ".bmp":
		img, err := bmp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return img, nil
	case ".tga":
		img, err := DecodeTGA(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return img, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return img, nil
}

// DecodeTGA decodes uncompressed and RLE true-colour TGA images with 24 or
// 32 bits per pixel.
func DecodeTGA(data []byte) (image.Image, error) {
	if len(data) < tgaHeaderSize {
		return nil, fmt.Errorf("%w: header truncated", ErrInvalidTGA)
	}
	idLen := int(data[0])
	if data[1] != 0 {
		return nil, fmt.Errorf("%w: colour-mapped images are not supported", ErrInvalidTGA)
	}
	kind := data[2]
	if kind != TGATypeUncompressed && kind != TGATypeRLE {
		return nil, fmt.Errorf("%w: unsupported image type %d", ErrInvalidTGA, kind)
	}
	w := int(binary.LittleEndian.Uint16(data[12:]))
	h := int(binary.LittleEndian.Uint16(data[14:]))
	bpp := int(data[16])
	if bpp != 24 && bpp != 32 {
		return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidTGA, bpp)
	}
	topDown := data[17]&0x20 != 0
	if tgaHeaderSize+idLen > len(data) {
		return nil, fmt.Errorf("%w: image id truncated", ErrInvalidTGA)
	}
	px := data[tgaHeaderSize+idLen:]

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	n := bpp / 8
	total := w * h
	next := 0
	// put stores one BGR(A) pixel at the next position in file order
	put := func(p []byte) {
		x, y := next%w, next/w
		if !topDown {
			y = h - 1 - y
		}
		a := uint8(255)
		if n == 4 {
			a = p[3]
		}
		img.SetNRGBA(x, y, color.NRGBA{R: p[2], G: p[1], B: p[0], A: a})
		next++
	}

	if kind == TGATypeUncompressed {
		if len(px) < total*n {
			return nil, fmt.Errorf("%w: pixel data truncated", ErrInvalidTGA)
		}
		for i := range total {
			put(px[i*n:])
		}
		return img, nil
	}

	for next < total {
		if len(px) == 0 {
			return nil, fmt.Errorf("%w: RLE data truncated at pixel %d", ErrInvalidTGA, next)
		}
		packet := px[0]
		px = px[1:]
		count := min(int(packet&0x7F)+1, total-next)
		if packet&0x80 != 0 {
			if len(px) < n {
				return nil, fmt.Errorf("%w: RLE data truncated at pixel %d", ErrInvalidTGA, next)
			}
			for range count {
				put(px)
			}
			px = px[n:]
			continue
		}
		if len(px) < count*n {
			return nil, fmt.Errorf("%w: RLE data truncated at pixel %d", ErrInvalidTGA, next)
		}
		for i := range count {
			put(px[i*n:])
		}
		px = px[count*n:]
	}
	return img, nil
}

// IsColorKey reports whether an 8-bit colour is the magenta transparency
// key. BMP encoders drift a little, hence the tolerance.
func IsColorKey(r, g, b uint8) bool {
	return r >= 250 && g <= 10 && b >= 250
}

// Average returns the mean colour of img in linear RGB. Colour-keyed and
// mostly transparent pixels are ignored; ok is false when none are left.
func Average(img image.Image) (c colorful.Color, ok bool) {
	var r, g, b float64
	count := 0
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if px.A < 128 || IsColorKey(px.R, px.G, px.B) {
				continue
			}
			lr, lg, lb := colorful.Color{
				R: float64(px.R) / 255,
				G: float64(px.G) / 255,
				B: float64(px.B) / 255,
			}.LinearRgb()
			r += lr
			g += lg
			b += lb
			count++
		}
	}
	if count == 0 {
		return colorful.Color{}, false
	}
	n := float64(count)
	return colorful.Color{R: r / n, G: g / n, B: b / n}, true
}
