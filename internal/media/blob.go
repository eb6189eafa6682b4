package media

import (
	"math"
	"strconv"
	"strings"
)

// Blob is binary data tagged with a MIME type. A Blob that came from a file
// carries the file's base name.
type Blob struct {
	Data []byte
	Type string
	Name string
}

// NewBlob returns a blob over data. When mimeType is empty the type is
// sniffed from the leading bytes.
func NewBlob(data []byte, mimeType string) *Blob {
	if mimeType == "" {
		mimeType = Sniff(data)
	}
	return &Blob{Data: data, Type: mimeType}
}

// Size returns the blob length in bytes.
func (b *Blob) Size() int {
	return len(b.Data)
}

// HumanSize returns the size formatted like "1.50 kB".
func (b *Blob) HumanSize() string {
	return HumanBytes(int64(len(b.Data)))
}

// Is tests the blob type. A pattern without "/" matches the general type
// ("image" matches "image/png"); otherwise the type must match exactly.
// An empty pattern only checks that b is non-nil.
func (b *Blob) Is(pattern string) bool {
	if b == nil {
		return false
	}
	return typeMatches(b.Type, pattern)
}

// Stamp returns the blob name. A nameless blob of a known image type gets a
// default name ("image.jpg", "image.png", ...), which is stored on the blob
// unless readOnly is set.
func (b *Blob) Stamp(readOnly bool) string {
	if b == nil {
		return ""
	}
	if b.Name != "" {
		return b.Name
	}
	name, ok := stampNames[b.Type]
	if !ok {
		return ""
	}
	if !readOnly {
		b.Name = name
	}
	return name
}

var stampNames = map[string]string{
	"image/jpeg": "image.jpg",
	"image/gif":  "image.gif",
	"image/png":  "image.png",
}

func typeMatches(mimeType, pattern string) bool {
	if pattern == "" {
		return true
	}
	if !strings.Contains(pattern, "/") {
		return strings.HasPrefix(mimeType, pattern+"/")
	}
	return mimeType == pattern
}

var byteUnits = []string{"bytes", "kB", "MB", "GB", "TB", "PB"}

// HumanBytes formats n with two decimals in powers of 1024.
func HumanBytes(n int64) string {
	if n <= 0 {
		return "0.00 bytes"
	}
	e := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	if e >= len(byteUnits) {
		e = len(byteUnits) - 1
	}
	return strconv.FormatFloat(float64(n)/math.Pow(1024, float64(e)), 'f', 2, 64) + " " + byteUnits[e]
}
