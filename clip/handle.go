package clip

import (
	"fmt"
	"strings"
)

// Handle identifies one of the eight resize handles around the selection.
type Handle int

const (
	noHandle Handle = iota
	TopLeft
	TopRight
	BottomLeft
	BottomRight
	TopMiddle
	BottomMiddle
	LeftMiddle
	RightMiddle
)

var handleNames = map[Handle]string{
	TopLeft:      "topleft",
	TopRight:     "topright",
	BottomLeft:   "bottomleft",
	BottomRight:  "bottomright",
	TopMiddle:    "topmiddle",
	BottomMiddle: "bottommiddle",
	LeftMiddle:   "leftmiddle",
	RightMiddle:  "rightmiddle",
}

// Handles lists every handle in a stable order.
func Handles() []Handle {
	return []Handle{TopLeft, TopRight, BottomLeft, BottomRight, TopMiddle, BottomMiddle, LeftMiddle, RightMiddle}
}

func (h Handle) String() string {
	if name, ok := handleNames[h]; ok {
		return name
	}
	return fmt.Sprintf("Handle(%d)", int(h))
}

func ParseHandle(s string) (Handle, error) {
	key := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(s))
	for h, name := range handleNames {
		if key == name {
			return h, nil
		}
	}
	return noHandle, fmt.Errorf("unknown handle %q", s)
}

type edge int

const (
	edgeTop edge = iota
	edgeBottom
	edgeLeft
	edgeRight
)

// handleEdges maps each handle to the insets it drives.
var handleEdges = map[Handle][]edge{
	TopLeft:      {edgeTop, edgeLeft},
	TopRight:     {edgeTop, edgeRight},
	BottomLeft:   {edgeBottom, edgeLeft},
	BottomRight:  {edgeRight, edgeBottom},
	TopMiddle:    {edgeTop},
	BottomMiddle: {edgeBottom},
	LeftMiddle:   {edgeLeft},
	RightMiddle:  {edgeRight},
}

// edgeSetters translate an absolute pointer position through the display
// origin into the inset of one edge.
var edgeSetters = map[edge]func(r *Region, p, origin Point, d SizeF){
	edgeTop: func(r *Region, p, origin Point, d SizeF) {
		r.SetTop(p.Y-origin.Y, d)
	},
	edgeBottom: func(r *Region, p, origin Point, d SizeF) {
		r.SetBottom(origin.Y+d.Height-p.Y, d)
	},
	edgeLeft: func(r *Region, p, origin Point, d SizeF) {
		r.SetLeft(p.X-origin.X, d)
	},
	edgeRight: func(r *Region, p, origin Point, d SizeF) {
		r.SetRight(origin.X+d.Width-p.X, d)
	},
}

// Target is what a pointer-down landed on: the selection body or a handle.
type Target struct {
	Handle Handle
}

// Body targets the selection itself.
var Body = Target{}

func HandleTarget(h Handle) Target {
	return Target{Handle: h}
}

func (t Target) IsBody() bool {
	return t.Handle == noHandle
}

func (t Target) String() string {
	if t.IsBody() {
		return "body"
	}
	return t.Handle.String()
}

// ParseTarget accepts "body" (or the empty string) and handle names.
func ParseTarget(s string) (Target, error) {
	if s == "" || strings.EqualFold(s, "body") {
		return Body, nil
	}
	h, err := ParseHandle(s)
	if err != nil {
		return Body, err
	}
	return HandleTarget(h), nil
}

func (t Target) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Target) UnmarshalText(text []byte) error {
	parsed, err := ParseTarget(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
