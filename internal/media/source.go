package media

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"reflect"
	"strings"
)

// Kind tags the variant held by a Source.
type Kind int

const (
	// KindRaster is an already decoded image (an image or canvas).
	KindRaster Kind = iota + 1
	// KindFrame is a live source, such as video, whose pixels must be captured.
	KindFrame
	// KindBlob is encoded binary data with a MIME type.
	KindBlob
	// KindDataURL is encoded data carried inline in a "data:" URL.
	KindDataURL
	// KindLocator is a file path or URL that must be fetched first.
	KindLocator
	// KindList is an ordered sequence of the other kinds.
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindRaster:
		return "raster"
	case KindFrame:
		return "frame"
	case KindBlob:
		return "blob"
	case KindDataURL:
		return "data_url"
	case KindLocator:
		return "locator"
	case KindList:
		return "list"
	}
	return "unknown"
}

// FrameSource is a source that knows its intrinsic size but yields pixels
// only through an asynchronous capture, the way a video element does. A
// zero size means no frame has been decoded yet.
type FrameSource interface {
	FrameSize() (width, height int)
	Frame(ctx context.Context) (image.Image, error)
}

// Element is an image-like element: a decoded image, a src reference, or
// both. When Src is a data URL its encoded bytes are preferred over the
// decoded pixels so no re-encode is needed.
type Element struct {
	Src   string
	Image image.Image
}

// Source is a classified visual source. It is immutable; the accessors
// return the value for the matching Kind and zero values otherwise.
type Source struct {
	kind    Kind
	image   image.Image
	frame   FrameSource
	blob    *Blob
	dataURL DataURL
	locator string
	list    []Source
}

func (s Source) Kind() Kind { return s.kind }
func (s Source) Image() image.Image { return s.image }
func (s Source) Frame() FrameSource { return s.frame }
func (s Source) Blob() *Blob { return s.blob }
func (s Source) DataURL() DataURL { return s.dataURL }
func (s Source) Locator() string { return s.locator }
func (s Source) Len() int { return len(s.list) }
func (s Source) At(i int) Source { return s.list[i] }

// List returns a copy of the elements of a KindList source.
func (s Source) List() []Source {
	return append([]Source(nil), s.list...)
}

// FromImage wraps a decoded image.
func FromImage(img image.Image) Source {
	return Source{kind: KindRaster, image: img}
}

// FromFrame wraps a frame source.
func FromFrame(f FrameSource) Source {
	return Source{kind: KindFrame, frame: f}
}

// BlobSource wraps a blob. The blob data is shared, not copied.
func BlobSource(b *Blob) Source {
	return Source{kind: KindBlob, blob: b}
}

// FromDataURL wraps a parsed data URL.
func FromDataURL(u DataURL) Source {
	return Source{kind: KindDataURL, dataURL: u}
}

// FromLocator wraps a file path or URL.
func FromLocator(loc string) Source {
	return Source{kind: KindLocator, locator: loc}
}

// FromList builds a list source. Nested lists are flattened in order.
func FromList(items ...Source) Source {
	flat := make([]Source, 0, len(items))
	for _, it := range items {
		if it.kind == KindList {
			flat = append(flat, it.list...)
			continue
		}
		flat = append(flat, it)
	}
	return Source{kind: KindList, list: flat}
}

// UnsupportedSourceError carries a value that could not be classified.
type UnsupportedSourceError struct {
	Value any
}

func (e *UnsupportedSourceError) Error() string {
	return fmt.Sprintf("source not supported: %T %.120v", e.Value, e.Value)
}

// Classify converts an arbitrary value into a Source.
//
// Accepted values: Source, image.Image, FrameSource, Element, *Blob,
// DataURL, []byte (type sniffed), strings holding a data URL, URL or image
// file path, and slices of any of these. Everything else yields an
// *UnsupportedSourceError.
func Classify(v any) (Source, error) {
	switch x := v.(type) {
	case nil:
		return Source{}, &UnsupportedSourceError{Value: v}
	case Source:
		if x.kind == 0 {
			return Source{}, &UnsupportedSourceError{Value: v}
		}
		return x, nil
	case *Source:
		if x == nil {
			return Source{}, &UnsupportedSourceError{Value: v}
		}
		return Classify(*x)
	case image.Image:
		return FromImage(x), nil
	case FrameSource:
		return FromFrame(x), nil
	case Element:
		return classifyElement(x)
	case *Element:
		if x == nil {
			return Source{}, &UnsupportedSourceError{Value: v}
		}
		return classifyElement(*x)
	case *Blob:
		if x == nil {
			return Source{}, &UnsupportedSourceError{Value: v}
		}
		return BlobSource(x), nil
	case Blob:
		return BlobSource(&x), nil
	case DataURL:
		u, err := ParseDataURL(string(x))
		if err != nil {
			return Source{}, &UnsupportedSourceError{Value: v}
		}
		return FromDataURL(u), nil
	case []byte:
		return BlobSource(NewBlob(x, "")), nil
	case string:
		return classifyString(x)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		items := make([]Source, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			s, err := Classify(rv.Index(i).Interface())
			if err != nil {
				return Source{}, err
			}
			items = append(items, s)
		}
		return FromList(items...), nil
	}

	return Source{}, &UnsupportedSourceError{Value: v}
}

func classifyElement(el Element) (Source, error) {
	switch {
	case IsDataURL(el.Src):
		return classifyString(el.Src)
	case el.Image != nil:
		return FromImage(el.Image), nil
	case el.Src != "":
		return classifyString(el.Src)
	}
	return Source{}, &UnsupportedSourceError{Value: el}
}

func classifyString(s string) (Source, error) {
	if IsDataURL(s) {
		u, err := ParseDataURL(s)
		if err != nil {
			return Source{}, &UnsupportedSourceError{Value: s}
		}
		return FromDataURL(u), nil
	}
	if IsLocator(s) {
		return FromLocator(s), nil
	}
	return Source{}, &UnsupportedSourceError{Value: s}
}

// IsLocator reports whether s looks like a URL or an image file path.
func IsLocator(s string) bool {
	for _, scheme := range []string{"http://", "https://", "file://"} {
		if strings.HasPrefix(s, scheme) {
			return true
		}
	}
	return strings.HasPrefix(TypeByExtension(filepath.Ext(s)), "image/")
}
