package imaging

import (
	"fmt"
	"image"
	"image/draw"
	"strings"

	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	xdraw "golang.org/x/image/draw"
)

// Resampler names a resampling backend.
type Resampler string

const (
	ResampleLanczos    Resampler = "lanczos"
	ResampleLinear     Resampler = "linear"
	ResampleCatmullRom Resampler = "catmullrom"
	ResampleNearest    Resampler = "nearest"
)

// ParseResampler maps a name to a Resampler. The empty string selects Lanczos.
func ParseResampler(name string) (Resampler, error) {
	switch r := Resampler(strings.ToLower(name)); r {
	case "":
		return ResampleLanczos, nil
	case ResampleLanczos, ResampleLinear, ResampleCatmullRom, ResampleNearest:
		return r, nil
	}
	return "", fmt.Errorf("unknown resampler: %s", name)
}

// Rasterizer draws sources onto surfaces, resampling when sizes differ.
type Rasterizer struct {
	Resampler Resampler
}

// NewRasterizer returns a Rasterizer using the given backend.
func NewRasterizer(r Resampler) *Rasterizer {
	return &Rasterizer{Resampler: r}
}

// DefaultMaxPixels bounds the area of surfaces allocated by
// NewBoundedSurface when no other limit is configured.
const DefaultMaxPixels = 100_000_000

// NewSurface allocates a transparent surface of the given size.
func NewSurface(width, height int) *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, width, height))
}

// NewBoundedSurface allocates a surface like NewSurface, but returns a
// RenderError instead of allocating when the size is not positive or the
// area exceeds maxPixels. A maxPixels of zero or less selects
// DefaultMaxPixels.
func NewBoundedSurface(width, height, maxPixels int) (*image.NRGBA, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if width <= 0 || height <= 0 {
		return nil, &RenderError{Err: errors.Errorf("invalid surface size %dx%d", width, height)}
	}
	// Divide rather than multiply so huge sizes cannot overflow.
	if width > maxPixels/height {
		return nil, &RenderError{Err: errors.Errorf("surface %dx%d exceeds the %d pixel limit", width, height, maxPixels)}
	}
	return NewSurface(width, height), nil
}

// Draw scales src to fill dst. Panics raised while reading src pixels are
// reported as a RenderError.
func (r *Rasterizer) Draw(dst draw.Image, src image.Image) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &RenderError{Err: errors.Errorf("%v", rec)}
		}
	}()

	sb := src.Bounds()
	db := dst.Bounds()
	if sb.Empty() {
		return &RenderError{Err: errors.New("source has no pixels")}
	}
	if db.Empty() {
		return &RenderError{Err: errors.New("surface has no pixels")}
	}

	w, h := db.Dx(), db.Dy()
	if w == sb.Dx() && h == sb.Dy() {
		draw.Draw(dst, db, src, sb.Min, draw.Src)
		return nil
	}

	var resized image.Image
	switch r.Resampler {
	case ResampleLanczos, "":
		resized = imaging.Resize(src, w, h, imaging.Lanczos)
	case ResampleLinear:
		resized = transform.Resize(src, w, h, transform.Linear)
	case ResampleNearest:
		resized = resize.Resize(uint(w), uint(h), src, resize.NearestNeighbor)
	case ResampleCatmullRom:
		xdraw.CatmullRom.Scale(dst, db, src, sb, xdraw.Src, nil)
		return nil
	default:
		return &RenderError{Err: errors.Errorf("unknown resampler %q", r.Resampler)}
	}

	draw.Draw(dst, db, resized, resized.Bounds().Min, draw.Src)
	return nil
}
