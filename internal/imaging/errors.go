package imaging

import "fmt"

// DecodeError is returned when encoded data cannot be turned into pixels.
type DecodeError struct {
	Type string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("decode failed: %v", e.Err)
	}
	return fmt.Sprintf("decode %s failed: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// RenderError is returned when a source cannot be drawn onto a surface.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// EncodeError is returned when a surface cannot be encoded to the requested type.
type EncodeError struct {
	Type string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s failed: %v", e.Type, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// ReadError is returned when a blob or locator cannot be read.
type ReadError struct {
	Source string
	Err    error
}

func (e *ReadError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("read failed: %v", e.Err)
	}
	return fmt.Sprintf("read %s failed: %v", e.Source, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
