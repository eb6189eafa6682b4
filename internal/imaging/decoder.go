package imaging

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder

	"github.com/ironsheep/image-normalizer-mcp/internal/media"
)

// Decoder turns encoded image blobs into decoded images.
type Decoder struct{}

// NewDecoder returns a Decoder using the registered image formats.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes b. Blobs typed as anything other than an image (or as
// generic binary data) are rejected without attempting a decode.
func (d *Decoder) Decode(ctx context.Context, b *media.Blob) (image.Image, error) {
	if b == nil {
		return nil, &DecodeError{Err: errors.New("nil blob")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &DecodeError{Type: b.Type, Err: err}
	}
	if b.Type != "" && b.Type != "application/octet-stream" && !b.Is("image") {
		return nil, &DecodeError{Type: b.Type, Err: errors.Errorf("cannot draw blob of type %s", b.Type)}
	}

	img, _, err := image.Decode(bytes.NewReader(b.Data))
	if err != nil {
		return nil, &DecodeError{Type: b.Type, Err: errors.Wrap(err, "image.Decode")}
	}
	if img.Bounds().Empty() {
		return nil, &DecodeError{Type: b.Type, Err: errors.New("decoded image is empty")}
	}
	return img, nil
}
