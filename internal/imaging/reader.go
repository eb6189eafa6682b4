package imaging

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/ironsheep/image-normalizer-mcp/internal/media"
)

// ReadMode selects how a blob is read.
type ReadMode string

const (
	ReadArrayBuffer  ReadMode = "array_buffer"
	ReadBinaryString ReadMode = "binary_string"
	ReadDataURL      ReadMode = "data_url"
	ReadText         ReadMode = "text"
)

// ParseReadMode maps a name to a ReadMode. Names are case-insensitive and
// accept the camel-case spellings ("arrayBuffer", "dataURL").
func ParseReadMode(name string) (ReadMode, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "")) {
	case "arraybuffer", "bytes":
		return ReadArrayBuffer, nil
	case "binarystring", "binary":
		return ReadBinaryString, nil
	case "dataurl":
		return ReadDataURL, nil
	case "text", "":
		return ReadText, nil
	}
	return "", errors.Errorf("unknown read mode: %s", name)
}

// ReadResult holds the outcome of a read. Bytes is set for
// ReadArrayBuffer; Text is set for every other mode.
type ReadResult struct {
	Mode  ReadMode
	Type  string
	Bytes []byte
	Text  string
}

// Reader reads blobs in one of the ReadMode formats.
type Reader struct{}

// NewReader returns a Reader.
func NewReader() *Reader {
	return &Reader{}
}

// Read reads b in the requested mode. ReadBinaryString maps every byte to
// the code point of the same value. ReadText requires valid UTF-8.
func (r *Reader) Read(ctx context.Context, b *media.Blob, mode ReadMode) (*ReadResult, error) {
	if b == nil {
		return nil, &ReadError{Err: errors.New("nil blob")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &ReadError{Source: b.Name, Err: err}
	}

	res := &ReadResult{Mode: mode, Type: b.Type}
	switch mode {
	case ReadArrayBuffer:
		res.Bytes = append([]byte(nil), b.Data...)
	case ReadBinaryString:
		runes := make([]rune, len(b.Data))
		for i, c := range b.Data {
			runes[i] = rune(c)
		}
		res.Text = string(runes)
	case ReadDataURL:
		res.Text = string(media.FromBlob(b))
	case ReadText:
		if !utf8.Valid(b.Data) {
			return nil, &ReadError{Source: b.Name, Err: errors.New("blob is not valid UTF-8 text")}
		}
		res.Text = string(b.Data)
	default:
		return nil, &ReadError{Source: b.Name, Err: errors.Errorf("unknown read mode %q", mode)}
	}
	return res, nil
}
