package imaging

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/ironsheep/image-normalizer-mcp/internal/media"
)

// DefaultBackground is the colour opaque formats are flattened over.
const DefaultBackground = "#ffffff"

// Encoder encodes surfaces into blobs of a requested MIME type.
type Encoder struct {
	background color.NRGBA
}

// NewEncoder returns an Encoder that flattens transparency over the given
// hex colour ("#rrggbb" or "#rgb"). An empty string selects white.
func NewEncoder(background string) (*Encoder, error) {
	if background == "" {
		background = DefaultBackground
	}
	c, err := colorful.Hex(background)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid background colour %q", background)
	}
	r, g, b := c.RGB255()
	return &Encoder{background: color.NRGBA{R: r, G: g, B: b, A: 255}}, nil
}

// DefaultEncoder returns an Encoder flattening over white.
func DefaultEncoder() *Encoder {
	return &Encoder{background: color.NRGBA{R: 255, G: 255, B: 255, A: 255}}
}

// Background returns the flattening colour.
func (e *Encoder) Background() color.NRGBA {
	return e.background
}

// Encode writes img as mimeType. Quality is in [0, 1] and only affects lossy
// types; an empty type encodes PNG. Types without an encoder fail with an
// EncodeError rather than falling back to another format.
func (e *Encoder) Encode(ctx context.Context, img image.Image, mimeType string, quality float64) (*media.Blob, error) {
	if mimeType == "" {
		mimeType = media.TypePNG
	}
	if err := ctx.Err(); err != nil {
		return nil, &EncodeError{Type: mimeType, Err: err}
	}
	if math.IsNaN(quality) || quality < 0 || quality > 1 {
		return nil, &EncodeError{Type: mimeType, Err: errors.Errorf("quality %v outside [0, 1]", quality)}
	}

	var buf bytes.Buffer
	var err error
	switch mimeType {
	case media.TypePNG:
		err = png.Encode(&buf, img)
	case media.TypeJPEG:
		err = jpeg.Encode(&buf, e.flatten(img), &jpeg.Options{Quality: jpegQuality(quality)})
	case media.TypeGIF:
		err = gif.Encode(&buf, img, nil)
	case media.TypeWebP:
		err = webp.Encode(&buf, img, &webp.Options{Quality: float32(quality * 100)})
	case media.TypeBMP:
		err = bmp.Encode(&buf, e.flatten(img))
	case media.TypeTIFF:
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return nil, &EncodeError{Type: mimeType, Err: errors.New("no encoder for type")}
	}
	if err != nil {
		return nil, &EncodeError{Type: mimeType, Err: errors.Wrap(err, "encode")}
	}

	return &media.Blob{Data: buf.Bytes(), Type: mimeType}, nil
}

// flatten composites img over the background colour.
func (e *Encoder) flatten(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), e.background)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

func jpegQuality(q float64) int {
	n := int(math.Floor(q*100 + 0.5))
	if n < 1 {
		n = 1
	}
	return n
}
