package imaging

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/image-normalizer-mcp/internal/media"
)

// panicImage panics on every pixel read.
type panicImage struct{ w, h int }

func (p panicImage) ColorModel() color.Model { return color.NRGBAModel }
func (p panicImage) Bounds() image.Rectangle { return image.Rect(0, 0, p.w, p.h) }
func (p panicImage) At(x, y int) color.Color { panic("pixel read failed") }

func TestDecoder_Decode(t *testing.T) {
	data := encodePNG(t, createTestImage(t, 30, 20, color.White))

	img, err := NewDecoder().Decode(context.Background(), media.NewBlob(data, media.TypePNG))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 30, 20), img.Bounds())

	// Generic binary types are still decoded.
	img, err = NewDecoder().Decode(context.Background(), media.NewBlob(data, "application/octet-stream"))
	require.NoError(t, err)
	assert.Equal(t, 30, img.Bounds().Dx())
}

func TestDecoder_Errors(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		blob *media.Blob
	}{
		{"nil blob", context.Background(), nil},
		{"text blob", context.Background(), media.NewBlob([]byte("hello"), "text/plain")},
		{"corrupt png", context.Background(), media.NewBlob([]byte("not a png"), media.TypePNG)},
		{"cancelled", cancelled, media.NewBlob(encodePNG(t, createTestImage(t, 1, 1, color.White)), media.TypePNG)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDecoder().Decode(tt.ctx, tt.blob)
			require.Error(t, err)
			var decodeErr *DecodeError
			assert.True(t, errors.As(err, &decodeErr))
		})
	}
}

func TestParseResampler(t *testing.T) {
	r, err := ParseResampler("")
	require.NoError(t, err)
	assert.Equal(t, ResampleLanczos, r)

	r, err = ParseResampler("Nearest")
	require.NoError(t, err)
	assert.Equal(t, ResampleNearest, r)

	_, err = ParseResampler("bicubic-ish")
	assert.Error(t, err)
}

func TestRasterizer_Draw(t *testing.T) {
	red := color.NRGBA{255, 0, 0, 255}
	src := createTestImage(t, 40, 20, red)

	for _, r := range []Resampler{ResampleLanczos, ResampleLinear, ResampleCatmullRom, ResampleNearest} {
		t.Run(string(r), func(t *testing.T) {
			dst := NewSurface(10, 5)
			require.NoError(t, NewRasterizer(r).Draw(dst, src))
			assert.Equal(t, image.Rect(0, 0, 10, 5), dst.Bounds())

			got := dst.NRGBAAt(5, 2)
			assert.InDelta(t, 255, int(got.R), 2)
			assert.InDelta(t, 0, int(got.G), 2)
			assert.InDelta(t, 255, int(got.A), 2)
		})
	}
}

func TestRasterizer_SameSizeCopies(t *testing.T) {
	src := createTestImage(t, 4, 4, color.NRGBA{1, 2, 3, 255})
	dst := NewSurface(4, 4)
	require.NoError(t, NewRasterizer(ResampleLanczos).Draw(dst, src))
	assert.Equal(t, src.Pix, dst.Pix)
}

func TestRasterizer_Errors(t *testing.T) {
	var renderErr *RenderError

	err := NewRasterizer(ResampleLanczos).Draw(NewSurface(0, 0), createTestImage(t, 2, 2, color.White))
	require.Error(t, err)
	assert.True(t, errors.As(err, &renderErr))

	err = NewRasterizer("bogus").Draw(NewSurface(1, 1), createTestImage(t, 2, 2, color.White))
	require.Error(t, err)
	assert.True(t, errors.As(err, &renderErr))

	err = NewRasterizer(ResampleLanczos).Draw(NewSurface(3, 3), panicImage{3, 3})
	require.Error(t, err)
	assert.True(t, errors.As(err, &renderErr))
	assert.Contains(t, err.Error(), "pixel read failed")
}

func TestNewBoundedSurface(t *testing.T) {
	s, err := NewBoundedSurface(10, 5, 50)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 5), s.Bounds())

	s, err = NewBoundedSurface(300, 200, 0)
	require.NoError(t, err)
	assert.Equal(t, 300, s.Bounds().Dx())

	tests := []struct {
		name          string
		width, height int
		maxPixels     int
	}{
		{"over limit", 10, 6, 50},
		{"huge", 1 << 40, 1 << 40, 0},
		{"zero width", 0, 5, 50},
		{"negative height", 5, -1, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewBoundedSurface(tt.width, tt.height, tt.maxPixels)
			assert.Nil(t, s)
			var renderErr *RenderError
			assert.True(t, errors.As(err, &renderErr))
		})
	}
}

func TestEncoder_Types(t *testing.T) {
	enc, err := NewEncoder("")
	require.NoError(t, err)
	img := createTestImage(t, 16, 16, color.NRGBA{10, 200, 30, 255})

	for _, mimeType := range []string{media.TypePNG, media.TypeJPEG, media.TypeGIF, media.TypeWebP, media.TypeBMP, media.TypeTIFF} {
		t.Run(mimeType, func(t *testing.T) {
			b, err := enc.Encode(context.Background(), img, mimeType, 0.8)
			require.NoError(t, err)
			assert.Equal(t, mimeType, b.Type)
			assert.Equal(t, mimeType, media.Sniff(b.Data))

			decoded, err := NewDecoder().Decode(context.Background(), b)
			require.NoError(t, err)
			assert.Equal(t, 16, decoded.Bounds().Dx())
		})
	}
}

func TestEncoder_DefaultsToPNG(t *testing.T) {
	enc, err := NewEncoder("")
	require.NoError(t, err)

	b, err := enc.Encode(context.Background(), createTestImage(t, 2, 2, color.White), "", 1)
	require.NoError(t, err)
	assert.Equal(t, media.TypePNG, b.Type)
}

func TestEncoder_Errors(t *testing.T) {
	enc, err := NewEncoder("")
	require.NoError(t, err)
	img := createTestImage(t, 2, 2, color.White)
	var encodeErr *EncodeError

	_, err = enc.Encode(context.Background(), img, "image/x-unknown", 1)
	require.Error(t, err)
	assert.True(t, errors.As(err, &encodeErr))
	assert.Equal(t, "image/x-unknown", encodeErr.Type)

	_, err = enc.Encode(context.Background(), img, media.TypeJPEG, 1.5)
	require.Error(t, err)
	assert.True(t, errors.As(err, &encodeErr))

	_, err = enc.Encode(context.Background(), img, media.TypeJPEG, -0.1)
	assert.Error(t, err)
}

func TestEncoder_FlattensTransparency(t *testing.T) {
	enc, err := NewEncoder("#000000")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, enc.Background())

	transparent := createTestImage(t, 8, 8, color.NRGBA{255, 255, 255, 0})
	b, err := enc.Encode(context.Background(), transparent, media.TypeJPEG, 1)
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(b.Data))
	require.NoError(t, err)
	r, g, bl, _ := decoded.At(4, 4).RGBA()
	assert.Less(t, r>>8, uint32(10))
	assert.Less(t, g>>8, uint32(10))
	assert.Less(t, bl>>8, uint32(10))
}

func TestNewEncoder_InvalidBackground(t *testing.T) {
	_, err := NewEncoder("not-a-colour")
	assert.Error(t, err)
}

func TestReader_Modes(t *testing.T) {
	b := &media.Blob{Data: []byte{'h', 'i', 0xE9}, Type: "application/octet-stream", Name: "x.bin"}
	reader := NewReader()

	res, err := reader.Read(context.Background(), b, ReadArrayBuffer)
	require.NoError(t, err)
	assert.Equal(t, b.Data, res.Bytes)
	res.Bytes[0] = 'X'
	assert.Equal(t, byte('h'), b.Data[0])

	res, err = reader.Read(context.Background(), b, ReadBinaryString)
	require.NoError(t, err)
	assert.Equal(t, "hié", res.Text)

	res, err = reader.Read(context.Background(), b, ReadDataURL)
	require.NoError(t, err)
	assert.Equal(t, "data:application/octet-stream;base64,aGnp", res.Text)

	_, err = reader.Read(context.Background(), b, ReadText)
	var readErr *ReadError
	require.Error(t, err)
	assert.True(t, errors.As(err, &readErr))

	res, err = reader.Read(context.Background(), &media.Blob{Data: []byte("héllo"), Type: "text/plain"}, ReadText)
	require.NoError(t, err)
	assert.Equal(t, "héllo", res.Text)
}

func TestReader_Errors(t *testing.T) {
	reader := NewReader()
	var readErr *ReadError

	_, err := reader.Read(context.Background(), nil, ReadText)
	assert.True(t, errors.As(err, &readErr))

	_, err = reader.Read(context.Background(), &media.Blob{}, ReadMode("sideways"))
	assert.True(t, errors.As(err, &readErr))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = reader.Read(ctx, &media.Blob{}, ReadText)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestParseReadMode(t *testing.T) {
	tests := map[string]ReadMode{
		"arrayBuffer":   ReadArrayBuffer,
		"array_buffer":  ReadArrayBuffer,
		"binaryString":  ReadBinaryString,
		"dataURL":       ReadDataURL,
		"data_url":      ReadDataURL,
		"text":          ReadText,
		"":              ReadText,
	}
	for in, want := range tests {
		got, err := ParseReadMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseReadMode("json")
	assert.Error(t, err)
}

func TestSaveBlob(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	b := &media.Blob{Data: []byte{0xFF, 0xD8, 0xFF}, Type: media.TypeJPEG}

	first, err := SaveBlob(dir, b, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "image.jpg"), first)

	second, err := SaveBlob(dir, b, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "image (1).jpg"), second)

	named, err := SaveBlob(dir, b, "holiday.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "holiday.jpg"), named)

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, b.Data, data)
}

func TestSaveBlob_Nil(t *testing.T) {
	_, err := SaveBlob(t.TempDir(), nil, "")
	assert.Error(t, err)
}
