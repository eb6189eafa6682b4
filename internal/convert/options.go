package convert

import (
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/ironsheep/image-normalizer-mcp/internal/imaging"
	"github.com/ironsheep/image-normalizer-mcp/internal/media"
	"github.com/ironsheep/image-normalizer-mcp/internal/sizing"
)

// Output selects the shape of a conversion result.
type Output int

const (
	// OutputBlob yields an encoded blob. It is the default.
	OutputBlob Output = iota
	// OutputDataURL yields a base64 data URL.
	OutputDataURL
	// OutputCanvas yields the raster surface without encoding it.
	OutputCanvas
)

func (o Output) String() string {
	switch o {
	case OutputBlob:
		return "blob"
	case OutputDataURL:
		return "data_url"
	case OutputCanvas:
		return "canvas"
	}
	return fmt.Sprintf("Output(%d)", int(o))
}

// ParseOutput maps "blob", "data_url" (or "dataURL") and "canvas" to an
// Output. The empty string selects OutputBlob.
func ParseOutput(s string) (Output, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "_", "")) {
	case "", "blob":
		return OutputBlob, nil
	case "dataurl":
		return OutputDataURL, nil
	case "canvas", "raster":
		return OutputCanvas, nil
	}
	return 0, fmt.Errorf("unknown output kind: %s", s)
}

// Options control a single conversion call.
type Options struct {
	// Type is the output MIME type. Empty keeps an image source's own type,
	// or PNG for sources that have none.
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	// Quality is the 0-1 encoder quality for lossy types. Zero selects 1.
	Quality float64 `json:"quality,omitempty" yaml:"quality,omitempty"`

	// Resize bounds the output surface.
	Resize sizing.Spec `json:"resize,omitempty" yaml:"resize,omitempty"`

	// Multiple converts every element of a list source and yields an ordered
	// sequence. Without it only the first element of a list is converted.
	Multiple bool `json:"multiple,omitempty" yaml:"multiple,omitempty"`

	// Async returns a pending Future instead of running inline. Sources that
	// need decoding, fetching or frame capture require it.
	Async bool `json:"async,omitempty" yaml:"async,omitempty"`

	// Force re-encodes blobs that already have the requested type.
	Force bool `json:"force,omitempty" yaml:"force,omitempty"`

	// Output selects blob, data URL or raster results.
	Output Output `json:"output,omitempty" yaml:"output,omitempty"`

	// Name is the file name given to output blobs. The extension is fixed
	// up to match the output type.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Timeout bounds the whole asynchronous chain. Zero means no limit
	// beyond the caller's context.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

func (o Options) quality() float64 {
	if o.Quality == 0 {
		return 1
	}
	return o.Quality
}

// Result is the outcome of a conversion. A call made with Multiple set
// fills Items, one entry per input element in input order; otherwise
// exactly one of Blob, DataURL or Image is set according to the Output.
type Result struct {
	Blob    *media.Blob
	DataURL media.DataURL
	Image   image.Image

	// Read holds the reader output for calls made through Dispatcher.Read.
	Read *imaging.ReadResult

	// PassThrough reports that the source bytes were returned unchanged.
	PassThrough bool

	Items []*Result
}

// IsSequence reports whether r holds per-element results.
func (r *Result) IsSequence() bool {
	return r != nil && r.Items != nil
}
