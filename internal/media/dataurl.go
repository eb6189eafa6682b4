package media

import (
	"encoding/base64"
	"fmt"
	"math"
	"net/url"
	"strings"
)

// DataURL is a "data:" URL embedding a MIME type and payload inline.
type DataURL string

// IsDataURL reports whether s starts with the "data:" scheme.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// ParseDataURL validates s and returns it as a DataURL.
func ParseDataURL(s string) (DataURL, error) {
	if !IsDataURL(s) {
		return "", fmt.Errorf("not a data URL: %.40q", s)
	}
	if !strings.Contains(s, ",") {
		return "", fmt.Errorf("data URL has no payload separator: %.40q", s)
	}
	return DataURL(s), nil
}

func (u DataURL) header() string {
	h, _, _ := strings.Cut(strings.TrimPrefix(string(u), "data:"), ",")
	return h
}

// Type returns the MIME type from the header, "" when absent.
func (u DataURL) Type() string {
	t, _, _ := strings.Cut(u.header(), ";")
	return t
}

// Base64 reports whether the payload is base64 encoded.
func (u DataURL) Base64() bool {
	for _, p := range strings.Split(u.header(), ";")[1:] {
		if p == "base64" {
			return true
		}
	}
	return false
}

// Payload returns the encoded text after the comma.
func (u DataURL) Payload() string {
	_, p, _ := strings.Cut(string(u), ",")
	return p
}

// RawSize is the length of the URL text itself.
func (u DataURL) RawSize() int {
	return len(u)
}

// Size estimates the decoded byte length, accounting for base64 bloat.
func (u DataURL) Size() int {
	return int(math.Round(float64(len(u.Payload())) * 3 / 4))
}

// Is tests the MIME type the same way as Blob.Is.
func (u DataURL) Is(pattern string) bool {
	if !IsDataURL(string(u)) {
		return false
	}
	return typeMatches(u.Type(), pattern)
}

// ToBlob decodes the payload into a blob carrying the URL's MIME type.
func (u DataURL) ToBlob() (*Blob, error) {
	payload := u.Payload()

	var data []byte
	if u.Base64() {
		var err error
		data, err = decodeBase64(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode data URL payload: %w", err)
		}
	} else {
		text, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to unescape data URL payload: %w", err)
		}
		data = []byte(text)
	}

	mimeType := u.Type()
	if mimeType == "" {
		mimeType = "text/plain"
	}
	return &Blob{Data: data, Type: mimeType}, nil
}

// FromBlob encodes b as a base64 data URL.
func FromBlob(b *Blob) DataURL {
	return DataURL("data:" + b.Type + ";base64," + base64.StdEncoding.EncodeToString(b.Data))
}

// decodeBase64 accepts padded and unpadded payloads, as atob does.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimRight(strings.Join(strings.Fields(s), ""), "=")
	return base64.RawStdEncoding.DecodeString(s)
}
