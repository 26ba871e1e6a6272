package clip

import (
	"fmt"
	"math"
)

type gestureMode int

const (
	gestureMove gestureMode = iota + 1
	gestureResize
)

func (m gestureMode) String() string {
	switch m {
	case gestureMove:
		return "move"
	case gestureResize:
		return "resize"
	}
	return ""
}

// session lives from pointer-down to pointer-up.
type session struct {
	mode   gestureMode
	handle Handle
	start  Point
	origin Region
}

// Controller owns the selection of one widget and applies pointer gestures to
// it. It is not safe for concurrent use; Widget serializes access.
type Controller struct {
	method Method
	input  InputMode

	loaded bool
	scale  Scale
	region Region
	crop   CropSize

	// origin is the page position of the displayed image's top-left corner.
	origin Point
	active *session
}

func NewController(method Method) *Controller {
	return &Controller{method: method}
}

// Reset installs a newly loaded image and its initial selection.
func (c *Controller) Reset(s Scale, r Region) {
	c.release()
	c.loaded = true
	c.scale = s
	c.region = r
	c.recompute()
}

// Unload drops the image, e.g. when the widget closes.
func (c *Controller) Unload() {
	c.release()
	c.loaded = false
}

func (c *Controller) Method() Method       { return c.method }
func (c *Controller) InputMode() InputMode { return c.input }
func (c *Controller) Loaded() bool         { return c.loaded }
func (c *Controller) Scale() Scale         { return c.scale }
func (c *Controller) Region() Region       { return c.region }
func (c *Controller) CropSize() CropSize   { return c.crop }
func (c *Controller) Origin() Point        { return c.origin }

// Active reports whether a gesture is in progress.
func (c *Controller) Active() bool {
	return c.active != nil
}

// Gesture names the gesture in progress, or "" when idle.
func (c *Controller) Gesture() string {
	if c.active == nil {
		return ""
	}
	return c.active.mode.String()
}

func (c *Controller) SetOrigin(p Point) {
	c.origin = p
}

func (c *Controller) resizeLocked() bool {
	return c.method == Fixed || (c.method == Custom && c.input == InputTyped)
}

// PointerDown starts a gesture on t. It reports false when the gesture is not
// allowed in the current mode, in which case the event is ignored.
func (c *Controller) PointerDown(t Target, p Point) bool {
	if !c.loaded {
		return false
	}
	if !t.IsBody() && c.resizeLocked() {
		return false
	}
	if _, ok := handleEdges[t.Handle]; !ok && !t.IsBody() {
		return false
	}

	c.release()
	s := &session{
		mode:   gestureMove,
		handle: t.Handle,
		start:  p,
		origin: c.region,
	}
	if !t.IsBody() {
		s.mode = gestureResize
	}
	c.active = s
	return true
}

// PointerMove updates the selection while a gesture is active.
func (c *Controller) PointerMove(p Point) bool {
	if c.active == nil {
		return false
	}
	switch c.active.mode {
	case gestureMove:
		c.move(p)
	case gestureResize:
		c.resize(p)
	}
	return true
}

// PointerUp ends the gesture. It is safe to call when idle.
func (c *Controller) PointerUp() {
	if c.active != nil && c.active.mode == gestureMove {
		c.recompute()
	}
	c.release()
}

// PointerCancel ends a gesture that was interrupted, e.g. by the pointer
// leaving the page. The selection keeps its last applied position.
func (c *Controller) PointerCancel() {
	c.PointerUp()
}

// Drag runs a complete gesture on t. The session is released even if fn
// panics.
func (c *Controller) Drag(t Target, start Point, fn func(move func(Point))) bool {
	if !c.PointerDown(t, start) {
		return false
	}
	defer c.PointerUp()
	fn(func(p Point) { c.PointerMove(p) })
	return true
}

func (c *Controller) release() {
	c.active = nil
}

// move translates the selection by the pointer delta, keeping its size.
// The crop size is left alone until the pointer is released.
func (c *Controller) move(p Point) {
	s := c.active
	d := c.scale.Display
	boxW := s.origin.Width(d)
	boxH := s.origin.Height(d)
	delta := p.Sub(s.start)

	top := clamp(s.origin.Top+delta.Y, 0, d.Height-boxH)
	left := clamp(s.origin.Left+delta.X, 0, d.Width-boxW)
	c.region = Region{
		Top:    top,
		Left:   left,
		Bottom: math.Max(0, d.Height-boxH-top),
		Right:  math.Max(0, d.Width-boxW-left),
	}
}

func (c *Controller) resize(p Point) {
	for _, e := range handleEdges[c.active.handle] {
		edgeSetters[e](&c.region, p, c.origin, c.scale.Display)
		c.recompute()
	}
}

// SetInputMode switches the Custom sub-mode. Entering typed mode returns the
// current crop size as the starting typed size.
func (c *Controller) SetInputMode(m InputMode) (CropSize, error) {
	if c.method != Custom {
		return CropSize{}, &ConfigurationError{Reason: fmt.Sprintf("input mode requires the custom clip method, have %s", c.method)}
	}
	c.input = m
	if m == InputTyped && c.active != nil && c.active.mode == gestureResize {
		c.release()
	}
	return c.crop, nil
}

// ConfirmCustom sets a typed size in original pixels, anchored at the
// top-left corner of the image.
func (c *Controller) ConfirmCustom(width, height int) error {
	if c.method != Custom {
		return &ConfigurationError{Reason: fmt.Sprintf("typed size requires the custom clip method, have %s", c.method)}
	}
	if !c.loaded {
		return ErrNotLoaded
	}
	if width < 1 || height < 1 {
		return &ConfigurationError{Reason: fmt.Sprintf("typed size must be at least 1x1, have %dx%d", width, height)}
	}

	c.release()
	d := c.scale.Display
	r := Region{}
	r.SetRight(d.Width-c.scale.ToDisplay(float64(width)), d)
	r.SetBottom(d.Height-c.scale.ToDisplay(float64(height)), d)
	c.region = r
	c.recompute()
	return nil
}

func (c *Controller) recompute() {
	c.crop = c.region.CropSize(c.scale)
}
