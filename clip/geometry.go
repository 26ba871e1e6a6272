package clip

import (
	"fmt"
	"math"
)

// Size is an integer size in original image pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SizeF is a size in display pixels.
type SizeF struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a pointer position in page coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Viewport is the fixed display area every source image is fitted into.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DefaultViewport matches the 1000x800 working area of the cropping panel.
var DefaultViewport = Viewport{Width: 1000, Height: 800}

// Scale maps original image pixels to display pixels.
type Scale struct {
	Factor  float64 `json:"factor"`
	Natural Size    `json:"natural"`
	Display SizeF   `json:"display"`
}

// Resolve computes the fit-inside scale of an image with the given natural
// size. Images smaller than the viewport are scaled up.
func (v Viewport) Resolve(naturalWidth, naturalHeight int) (Scale, error) {
	if naturalWidth <= 0 || naturalHeight <= 0 {
		return Scale{}, &ConfigurationError{Reason: fmt.Sprintf("image has no pixels (%dx%d)", naturalWidth, naturalHeight)}
	}
	if v.Width <= 0 || v.Height <= 0 {
		return Scale{}, &ConfigurationError{Reason: fmt.Sprintf("viewport must be positive (%gx%g)", v.Width, v.Height)}
	}

	factor := math.Min(v.Width/float64(naturalWidth), v.Height/float64(naturalHeight))
	return Scale{
		Factor:  factor,
		Natural: Size{Width: naturalWidth, Height: naturalHeight},
		Display: SizeF{
			Width:  float64(naturalWidth) * factor,
			Height: float64(naturalHeight) * factor,
		},
	}, nil
}

// ToNatural converts a display length to original pixels.
func (s Scale) ToNatural(v float64) float64 {
	return v / s.Factor
}

// ToDisplay converts an original pixel length to display pixels.
func (s Scale) ToDisplay(v float64) float64 {
	return v * s.Factor
}
