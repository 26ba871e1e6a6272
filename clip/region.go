package clip

import "math"

// Region is the crop selection, stored as insets in display pixels measured
// from the respective edges of the displayed image.
//
// After every mutation through the setters, 0 <= Top, 0 <= Bottom,
// Top+Bottom <= display height, and the same for Left and Right against the
// display width.
type Region struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// CropSize is the selection size in original image pixels.
type CropSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether the selection has no area.
func (c CropSize) Empty() bool {
	return c.Width == 0 || c.Height == 0
}

func (r Region) Width(d SizeF) float64 {
	return d.Width - r.Left - r.Right
}

func (r Region) Height(d SizeF) float64 {
	return d.Height - r.Top - r.Bottom
}

// Valid reports whether r satisfies the inset invariants for display size d.
func (r Region) Valid(d SizeF) bool {
	return r.Top >= 0 && r.Bottom >= 0 && r.Left >= 0 && r.Right >= 0 &&
		r.Top+r.Bottom <= d.Height && r.Left+r.Right <= d.Width
}

// CropSize derives the selection size in original pixels.
func (r Region) CropSize(s Scale) CropSize {
	if s.Factor <= 0 {
		return CropSize{}
	}
	return CropSize{
		Width:  int(math.Round(s.ToNatural(r.Width(s.Display)))),
		Height: int(math.Round(s.ToNatural(r.Height(s.Display)))),
	}
}

// SetTop clamps top into the display and against the current bottom inset.
func (r *Region) SetTop(top float64, d SizeF) {
	switch {
	case top < 0:
		top = 0
	case top >= d.Height && r.Bottom == 0:
		top = d.Height
	case top+r.Bottom >= d.Height:
		top = d.Height - r.Bottom
	}
	r.Top = top
}

func (r *Region) SetBottom(bottom float64, d SizeF) {
	switch {
	case bottom <= 0:
		bottom = 0
	case bottom >= d.Height && r.Top == 0:
		bottom = d.Height
	case bottom+r.Top >= d.Height:
		bottom = d.Height - r.Top
	}
	r.Bottom = bottom
}

func (r *Region) SetLeft(left float64, d SizeF) {
	switch {
	case left < 0:
		left = 0
	case left >= d.Width && r.Right == 0:
		left = d.Width
	case left+r.Right >= d.Width:
		left = d.Width - r.Right
	}
	r.Left = left
}

func (r *Region) SetRight(right float64, d SizeF) {
	switch {
	case right <= 0:
		right = 0
	case right >= d.Width && r.Left == 0:
		right = d.Width
	case right+r.Left >= d.Width:
		right = d.Width - r.Left
	}
	r.Right = right
}

// clamp pins v into [lo, hi], preferring hi when the range is empty.
func clamp(v, lo, hi float64) float64 {
	if v >= hi {
		return hi
	}
	if v <= lo {
		return lo
	}
	return v
}
