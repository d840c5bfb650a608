package texture

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

var (
	red     = color.NRGBA{R: 255, A: 255}
	blue    = color.NRGBA{B: 255, A: 255}
	magenta = color.NRGBA{R: 255, B: 255, A: 255}
)

func tga(kind byte, w, h int, bpp, desc byte, pixels ...byte) []byte {
	hdr := make([]byte, tgaHeaderSize)
	hdr[2] = kind
	hdr[12], hdr[13] = byte(w), byte(w>>8)
	hdr[14], hdr[15] = byte(h), byte(h>>8)
	hdr[16] = bpp
	hdr[17] = desc
	return append(hdr, pixels...)
}

func nrgbaAt(t *testing.T, img image.Image, x, y int) color.NRGBA {
	t.Helper()
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func TestDecodeTGA_Uncompressed(t *testing.T) {
	// bottom-up rows, BGR
	data := tga(TGATypeUncompressed, 2, 2, 24, 0,
		0, 0, 255, 255, 0, 0, // bottom: red, blue
		255, 0, 255, 0, 0, 255, // top: magenta, red
	)
	img, err := DecodeTGA(data)
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
	assert.Equal(t, magenta, nrgbaAt(t, img, 0, 0))
	assert.Equal(t, red, nrgbaAt(t, img, 1, 0))
	assert.Equal(t, red, nrgbaAt(t, img, 0, 1))
	assert.Equal(t, blue, nrgbaAt(t, img, 1, 1))
}

func TestDecodeTGA_RLE(t *testing.T) {
	data := tga(TGATypeRLE, 3, 1, 32, 0x20,
		0x81, 0, 0, 255, 255, // run of two red
		0x00, 255, 0, 0, 128, // one raw half transparent blue
	)
	img, err := DecodeTGA(data)
	require.NoError(t, err)

	assert.Equal(t, red, nrgbaAt(t, img, 0, 0))
	assert.Equal(t, red, nrgbaAt(t, img, 1, 0))
	assert.Equal(t, color.NRGBA{B: 255, A: 128}, nrgbaAt(t, img, 2, 0))
}

func TestDecodeTGA_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"short header", []byte{0, 0, 2}},
		{"colour mapped", func() []byte { d := tga(1, 1, 1, 24, 0, 0, 0, 0); d[1] = 1; return d }()},
		{"grayscale", tga(3, 1, 1, 8, 0, 0)},
		{"16 bit", tga(TGATypeUncompressed, 1, 1, 16, 0, 0, 0)},
		{"pixels truncated", tga(TGATypeUncompressed, 2, 1, 24, 0, 0, 0, 255)},
		{"rle truncated", tga(TGATypeRLE, 4, 1, 24, 0, 0x81, 0, 0, 255)},
		{"id truncated", func() []byte { d := tga(TGATypeUncompressed, 1, 1, 24, 0); d[0] = 40; return d }()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTGA(tt.data)
			assert.True(t, errors.Is(err, ErrInvalidTGA), "got %v", err)
		})
	}
}

func encodeBMP(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecode_ByExtension(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, red)
	src.SetNRGBA(1, 0, blue)

	img, err := Decode(`texture\wall.BMP`, encodeBMP(t, src))
	require.NoError(t, err)
	assert.Equal(t, red, nrgbaAt(t, img, 0, 0))
	assert.Equal(t, blue, nrgbaAt(t, img, 1, 0))

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))
	img, err = Decode("icon.png", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, blue, nrgbaAt(t, img, 1, 0))

	_, err = Decode("broken.bmp", []byte("BMnope"))
	assert.ErrorContains(t, err, "broken.bmp")
	_, err = Decode("broken.tga", nil)
	assert.ErrorIs(t, err, ErrInvalidTGA)
}

func TestAverage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 1))
	img.SetNRGBA(0, 0, red)
	img.SetNRGBA(1, 0, blue)
	img.SetNRGBA(2, 0, magenta)
	img.SetNRGBA(3, 0, color.NRGBA{G: 255, A: 10})

	c, ok := Average(img)
	require.True(t, ok)
	assert.InDelta(t, 0.5, c.R, 1e-9)
	assert.InDelta(t, 0.0, c.G, 1e-9)
	assert.InDelta(t, 0.5, c.B, 1e-9)
}

func TestAverage_LinearSpace(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{A: 255})

	c, ok := Average(img)
	require.True(t, ok)
	assert.InDelta(t, 0.5, c.R, 1e-9, "white and black average to half intensity in linear light")
}

func TestAverage_NothingOpaque(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := range 2 {
		for x := range 2 {
			img.SetNRGBA(x, y, magenta)
		}
	}
	_, ok := Average(img)
	assert.False(t, ok)

	_, ok = Average(image.NewNRGBA(image.Rect(0, 0, 3, 3)))
	assert.False(t, ok)
}

func TestIsColorKey(t *testing.T) {
	assert.True(t, IsColorKey(255, 0, 255))
	assert.True(t, IsColorKey(252, 8, 250))
	assert.False(t, IsColorKey(255, 20, 255))
	assert.False(t, IsColorKey(200, 0, 255))
}
