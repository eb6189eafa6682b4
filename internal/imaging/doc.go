// Package imaging provides the pixel-level collaborators of the conversion
// pipeline: decoding encoded blobs, drawing onto raster surfaces, encoding
// surfaces back into blobs, reading blobs in FileReader-style modes, and
// loading or saving blobs on disk and over HTTP.
//
// # Surfaces
//
// A surface is a freshly allocated *image.NRGBA sized by the caller. Surfaces
// are never pooled or shared; each conversion allocates its own, so
// concurrent conversions cannot observe each other's pixels.
//
// # Resampling
//
// The Rasterizer supports several resampling backends selected by name:
//   - "lanczos": Lanczos filter (github.com/disintegration/imaging), the default
//   - "linear": bilinear filter (github.com/anthonynsimon/bild)
//   - "catmullrom": Catmull-Rom filter (golang.org/x/image/draw)
//   - "nearest": nearest neighbour (github.com/nfnt/resize)
//
// # Formats
//
// Decoding supports PNG, JPEG, GIF, WebP, BMP and TIFF. Encoding supports
// PNG, JPEG, GIF, WebP, BMP and TIFF. Formats without an alpha channel
// (JPEG, BMP) are flattened over the encoder's background colour. Quality
// is a 0-1 value and applies only to JPEG and WebP.
//
// # Error Handling
//
// Each collaborator reports failures with its own error type: DecodeError,
// RenderError, EncodeError and ReadError. The underlying cause is available
// through errors.Unwrap.
package imaging
