package media

import (
	"bytes"
	"mime"
	"strings"
)

// MIME types the pipeline knows how to produce.
const (
	TypePNG  = "image/png"
	TypeJPEG = "image/jpeg"
	TypeGIF  = "image/gif"
	TypeWebP = "image/webp"
	TypeBMP  = "image/bmp"
	TypeTIFF = "image/tiff"
)

var extensions = map[string]string{
	TypePNG:  ".png",
	TypeJPEG: ".jpg",
	TypeGIF:  ".gif",
	TypeWebP: ".webp",
	TypeBMP:  ".bmp",
	TypeTIFF: ".tiff",
}

// Extension returns the file extension for a MIME type, including the dot.
// Unknown types fall back to the system MIME table, then to "".
func Extension(mimeType string) string {
	if ext, ok := extensions[mimeType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// TypeByExtension maps a file extension (with or without the dot) to a MIME
// type, "" when unknown.
func TypeByExtension(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if ext == ".jpeg" {
		return TypeJPEG
	}
	for t, e := range extensions {
		if e == ext {
			return t
		}
	}
	t, _, _ := strings.Cut(mime.TypeByExtension(ext), ";")
	return t
}

// SuggestName picks a file name for saving b: an explicit name, then the
// blob's own name or stamp, then the type with "/" replaced by ".". A name
// whose extension disagrees with the blob type is renamed.
func SuggestName(b *Blob, name string) string {
	if name == "" {
		name = b.Stamp(true)
	}
	if name == "" {
		if ext := Extension(b.Type); ext != "" {
			return "image" + ext
		}
		return strings.ReplaceAll(b.Type, "/", ".")
	}

	want := Extension(b.Type)
	if want == "" {
		return name
	}
	dot := strings.LastIndex(name, ".")
	if dot < 0 {
		return name + want
	}
	if TypeByExtension(name[dot:]) == b.Type {
		return name
	}
	return name[:dot] + want
}

// IsLossy reports whether quality settings apply to the type.
func IsLossy(mimeType string) bool {
	return mimeType == TypeJPEG || mimeType == TypeWebP
}

var (
	pngSignature  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	riffSignature = []byte("RIFF")
	webpSignature = []byte("WEBP")
)

// Sniff identifies an image type from its magic bytes. Unrecognised data is
// reported as "application/octet-stream".
func Sniff(data []byte) string {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return TypeJPEG
	case bytes.HasPrefix(data, pngSignature):
		return TypePNG
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return TypeGIF
	case len(data) >= 12 && bytes.HasPrefix(data, riffSignature) && bytes.Equal(data[8:12], webpSignature):
		return TypeWebP
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return TypeTIFF
	case bytes.HasPrefix(data, []byte("BM")):
		return TypeBMP
	}
	return "application/octet-stream"
}
