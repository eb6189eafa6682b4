// Package sizing computes output pixel dimensions for a source under resize
// constraints.
//
// The calculation follows "fit within box" semantics: when aspect ratio is
// preserved both dimensions are divided by the same factor, chosen so that
// neither exceeds its bound. Max bounds are applied first, then scaling
// (clamp-then-scale).
package sizing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Spec describes the requested resize. Zero means "not set" for every
// dimension field.
type Spec struct {
	Width     int `json:"width,omitempty" yaml:"width"`
	Height    int `json:"height,omitempty" yaml:"height"`
	MaxWidth  int `json:"max_width,omitempty" yaml:"max_width"`
	MaxHeight int `json:"max_height,omitempty" yaml:"max_height"`

	// Stretch disables aspect ratio preservation. Width and Height are then
	// applied independently and the max bounds are ignored.
	Stretch bool `json:"stretch,omitempty" yaml:"stretch"`
}

// Requested reports whether s asks for any change in size.
func (s Spec) Requested() bool {
	return s.Width > 0 || s.Height > 0 || s.MaxWidth > 0 || s.MaxHeight > 0
}

// Dimensions is a definite pixel size.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// InvalidDimensionsError is returned when a source reports a non-positive
// intrinsic size, e.g. a video that has not decoded a frame yet.
type InvalidDimensionsError struct {
	Width  int
	Height int
}

func (e *InvalidDimensionsError) Error() string {
	return fmt.Sprintf("invalid intrinsic dimensions %dx%d", e.Width, e.Height)
}

// Fit returns the output size for a source of the given intrinsic size.
//
// With Stretch set the result is (Width or width, Height or height).
// Otherwise:
//  1. MaxWidth replaces Width when (Width or width) exceeds it; same for height.
//  2. Without a target the intrinsic size is returned unchanged.
//  3. Each targeted axis yields ratio = intrinsic/target; both dimensions are
//     divided by the larger ratio.
//  4. Results are rounded half-up and never drop below 1.
func Fit(width, height int, spec Spec) (Dimensions, error) {
	if width <= 0 || height <= 0 {
		return Dimensions{}, &InvalidDimensionsError{Width: width, Height: height}
	}

	if spec.Stretch {
		return Dimensions{
			Width:  atLeastOne(orDefault(spec.Width, width)),
			Height: atLeastOne(orDefault(spec.Height, height)),
		}, nil
	}

	tw, th := spec.Width, spec.Height
	if spec.MaxWidth > 0 && orDefault(tw, width) > spec.MaxWidth {
		tw = spec.MaxWidth
	}
	if spec.MaxHeight > 0 && orDefault(th, height) > spec.MaxHeight {
		th = spec.MaxHeight
	}

	if tw <= 0 && th <= 0 {
		return Dimensions{Width: width, Height: height}, nil
	}

	var ratioW, ratioH float64
	if tw > 0 {
		ratioW = float64(width) / float64(tw)
	}
	if th > 0 {
		ratioH = float64(height) / float64(th)
	}
	ratio := math.Max(ratioW, ratioH)

	return Dimensions{
		Width:  atLeastOne(round(float64(width) / ratio)),
		Height: atLeastOne(round(float64(height) / ratio)),
	}, nil
}

// ParseSize parses "WxH", "Wx" or "xH" into a width and height. Missing
// parts are returned as zero. Fractional values are truncated.
func ParseSize(s string) (width, height int, err error) {
	if s == "" || s == "x" {
		return 0, 0, nil
	}

	wh := strings.Split(strings.ToLower(s), "x")
	if len(wh) != 2 {
		return 0, 0, fmt.Errorf("invalid size: %s", s)
	}

	if wh[0] != "" {
		fw, err := strconv.ParseFloat(wh[0], 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid size width %q: %w", wh[0], err)
		}
		width = int(fw)
	}
	if wh[1] != "" {
		fh, err := strconv.ParseFloat(wh[1], 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid size height %q: %w", wh[1], err)
		}
		height = int(fh)
	}
	if width < 0 || height < 0 {
		return 0, 0, fmt.Errorf("invalid size: %s", s)
	}
	return width, height, nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

// round rounds half-up; inputs here are always positive.
func round(in float64) int {
	return int(math.Floor(in + 0.5))
}
