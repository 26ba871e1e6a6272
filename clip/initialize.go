package clip

import "math"

// Box is a selection size in original image pixels.
type Box struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (b *Box) valid() bool {
	return b != nil && b.Width > 0 && b.Height > 0
}

// validateMethod checks the props combination a method needs.
func validateMethod(method Method, box *Box) error {
	if method == Fixed && !box.valid() {
		return &ConfigurationError{Reason: "fixed clip method requires a default box size"}
	}
	return nil
}

// Initialize computes the selection for a freshly loaded image. The Fixed
// method starts with its box anchored at the top-left corner, clamped to the
// image; every other method starts with the whole image selected.
func Initialize(s Scale, method Method, box *Box) (Region, error) {
	if err := validateMethod(method, box); err != nil {
		return Region{}, err
	}
	if method != Fixed {
		return Region{}, nil
	}

	d := s.Display
	w := math.Min(s.ToDisplay(box.Width), d.Width)
	h := math.Min(s.ToDisplay(box.Height), d.Height)
	return Region{
		Right:  d.Width - w,
		Bottom: d.Height - h,
	}, nil
}
