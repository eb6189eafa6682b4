package imaging

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ironsheep/image-normalizer-mcp/internal/media"
)

// DefaultFetchTimeout bounds a single HTTP fetch when the caller's context
// has no deadline of its own.
const DefaultFetchTimeout = 30 * time.Second

// DefaultUserAgent is sent with every HTTP request.
const DefaultUserAgent = "image-normalizer/1.0"

// Loader opens locators: plain file paths, file:// URLs and http(s) URLs.
//
// Loader holds no state besides its HTTP client and is safe for concurrent
// use. Nothing is cached; every Open reads the locator afresh.
//
// # Example Usage
//
//	loader := imaging.NewLoader(nil)
//	blob, err := loader.Load(ctx, "https://example.com/photo.jpg")
//	if err != nil {
//	    return err
//	}
type Loader struct {
	Client    *http.Client
	UserAgent string
}

// NewLoader creates a Loader. A nil client gets a default client with
// DefaultFetchTimeout.
func NewLoader(client *http.Client) *Loader {
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}
	return &Loader{Client: client, UserAgent: DefaultUserAgent}
}

// Open returns a reader over the locator's bytes and the MIME type the
// locator declares, "" when it declares none.
//
// Parameters:
//   - ctx: Cancels an in-flight HTTP request.
//   - locator: A file path, file:// URL, or http(s) URL.
//
// Returns:
//   - io.ReadCloser: The body. The caller must close it on every path.
//   - string: The declared MIME type (Content-Type header or file extension).
//   - error: A *ReadError when the locator cannot be opened.
func (l *Loader) Open(ctx context.Context, locator string) (io.ReadCloser, string, error) {
	switch {
	case strings.HasPrefix(locator, "http://"), strings.HasPrefix(locator, "https://"):
		return l.openHTTP(ctx, locator)
	case strings.HasPrefix(locator, "file://"):
		u, err := url.Parse(locator)
		if err != nil {
			return nil, "", &ReadError{Source: locator, Err: errors.Wrap(err, "parse file URL")}
		}
		return l.openFile(ctx, u.Path)
	}
	return l.openFile(ctx, locator)
}

func (l *Loader) openFile(ctx context.Context, path string) (io.ReadCloser, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", &ReadError{Source: path, Err: err}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", &ReadError{Source: path, Err: errors.Wrap(err, "open")}
	}
	return f, media.TypeByExtension(filepath.Ext(path)), nil
}

func (l *Loader) openHTTP(ctx context.Context, locator string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, "", &ReadError{Source: locator, Err: errors.Wrap(err, "build request")}
	}
	if l.UserAgent != "" {
		req.Header.Set("User-Agent", l.UserAgent)
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, "", &ReadError{Source: locator, Err: errors.Wrap(err, "fetch")}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", &ReadError{Source: locator, Err: errors.Errorf("unexpected status %s", resp.Status)}
	}

	mimeType, _, _ := strings.Cut(resp.Header.Get("Content-Type"), ";")
	return resp.Body, strings.TrimSpace(mimeType), nil
}

// Load reads the whole locator into a blob. When the declared type is
// missing or generic the type is sniffed from the content.
func (l *Loader) Load(ctx context.Context, locator string) (*media.Blob, error) {
	rc, mimeType, err := l.Open(ctx, locator)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &ReadError{Source: locator, Err: errors.Wrap(err, "read body")}
	}

	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = media.Sniff(data)
	}
	b := media.NewBlob(data, mimeType)
	if !strings.HasPrefix(locator, "http://") && !strings.HasPrefix(locator, "https://") {
		b.Name = filepath.Base(locator)
	} else if u, err := url.Parse(locator); err == nil && filepath.Ext(u.Path) != "" {
		b.Name = filepath.Base(u.Path)
	}
	return b, nil
}

// ImageInfo describes a loaded image.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Type is the MIME type sniffed from the content.
	Type string `json:"type"`

	// Format is the decoder name reported by image.DecodeConfig.
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the colour model carries transparency.
	HasAlpha bool `json:"has_alpha"`

	// SizeBytes is the encoded size.
	SizeBytes int `json:"size_bytes"`

	// HumanSize is SizeBytes formatted like "1.50 kB".
	HumanSize string `json:"human_size"`
}

// Describe reports dimensions and format metadata for an encoded blob
// without decoding its pixels.
//
// # Color Depth Detection
//
// Color depth is determined by the colour model:
//   - RGBA64, NRGBA64, Gray16 -> "16-bit"
//   - All other models -> "8-bit"
func Describe(b *media.Blob) (*ImageInfo, error) {
	if b == nil {
		return nil, &DecodeError{Err: errors.New("nil blob")}
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(b.Data))
	if err != nil {
		return nil, &DecodeError{Type: b.Type, Err: errors.Wrap(err, "image.DecodeConfig")}
	}

	hasAlpha := false
	colorDepth := "8-bit"
	switch m := cfg.ColorModel.(type) {
	case color.Palette:
		for _, c := range m {
			if _, _, _, a := c.RGBA(); a < 0xffff {
				hasAlpha = true
				break
			}
		}
	default:
		switch m {
		case color.RGBAModel, color.NRGBAModel:
			hasAlpha = true
		case color.RGBA64Model, color.NRGBA64Model:
			hasAlpha = true
			colorDepth = "16-bit"
		case color.Gray16Model:
			colorDepth = "16-bit"
		}
	}

	return &ImageInfo{
		Width:      cfg.Width,
		Height:     cfg.Height,
		Type:       media.Sniff(b.Data),
		Format:     format,
		ColorDepth: colorDepth,
		HasAlpha:   hasAlpha,
		SizeBytes:  b.Size(),
		HumanSize:  b.HumanSize(),
	}, nil
}
