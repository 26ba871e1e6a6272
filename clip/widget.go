package clip

import (
	"context"
	"errors"
	"image"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// CloseReason tells OnClose why the widget was dismissed.
type CloseReason string

const (
	CloseReasonClose CloseReason = "close"
	CloseReasonClip  CloseReason = "clip"
)

// ClipInfo is passed to OnClip after a successful crop.
type ClipInfo struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	File   *File  `json:"file"`
}

// Props configures a Widget.
type Props struct {
	Resource   Resource
	Method     Method
	DefaultBox *Box
	// ImgType is the output MIME type, image/png by default.
	ImgType string
	// EncoderOptions is the output quality for lossy types.
	EncoderOptions float64
	// ImgName overrides the derived output file name.
	ImgName  string
	Viewport Viewport
	// OriginDelay debounces origin measurements.
	OriginDelay time.Duration

	OnClip  func(ClipInfo)
	OnClose func(CloseReason)
	// OnError receives failures of the asset round trip after encoding.
	OnError func(error)

	HTTPClient *http.Client
}

func (p Props) withDefaults() Props {
	if p.ImgType == "" {
		p.ImgType = DefaultImgType
	}
	if p.EncoderOptions == 0 {
		p.EncoderOptions = DefaultQuality
	}
	if p.Viewport == (Viewport{}) {
		p.Viewport = DefaultViewport
	}
	return p
}

// Validate reports configuration errors that make the props unusable.
func (p Props) Validate() error {
	if err := validateMethod(p.Method, p.DefaultBox); err != nil {
		return err
	}
	if p.Viewport.Width < 0 || p.Viewport.Height < 0 {
		return &ConfigurationError{Reason: "viewport must be positive"}
	}
	return nil
}

// State is a point-in-time view of a widget.
type State struct {
	Open      bool      `json:"open"`
	Loaded    bool      `json:"loaded"`
	Method    Method    `json:"method"`
	InputMode InputMode `json:"input_mode"`
	Scale     Scale     `json:"scale"`
	Region    Region    `json:"region"`
	CropSize  CropSize  `json:"crop_size"`
	Origin    Point     `json:"origin"`
	Gesture   string    `json:"gesture,omitempty"`
}

// Widget is one cropping panel. All methods are safe for concurrent use.
type Widget struct {
	props Props

	mu     sync.Mutex
	ctrl   *Controller
	origin *debouncer
	open   bool
	// gen increments on every open and close; async results carrying an
	// older generation are dropped.
	gen    uint64
	source string
	img    image.Image
}

// New validates props and returns a closed widget.
func New(props Props) (*Widget, error) {
	props = props.withDefaults()
	if err := props.Validate(); err != nil {
		return nil, err
	}
	return &Widget{
		props:  props,
		ctrl:   NewController(props.Method),
		origin: newDebouncer(props.OriginDelay),
	}, nil
}

// Open shows the widget and loads the resource, then seeds the selection.
// Each call starts a fresh load; a load overtaken by a later Open or Close
// returns ErrSuperseded and leaves the state alone.
func (w *Widget) Open(ctx context.Context) error {
	w.mu.Lock()
	w.gen++
	gen := w.gen
	w.open = true
	w.ctrl.Unload()
	w.mu.Unlock()

	logger := log.Ctx(ctx).With().Str("resource", w.props.Resource.String()).Logger()

	source, err := toDataURI(ctx, w.props.HTTPClient, w.props.Resource, w.props.ImgType)
	if err != nil {
		return err
	}
	img, err := decodeImage(source)
	if err != nil {
		return err
	}
	b := img.Bounds()
	s, err := w.props.Viewport.Resolve(b.Dx(), b.Dy())
	if err != nil {
		return err
	}
	region, err := Initialize(s, w.props.Method, w.props.DefaultBox)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.gen || !w.open {
		logger.Debug().Msg("discarding superseded load")
		return ErrSuperseded
	}
	w.source = source
	w.img = img
	w.ctrl.Reset(s, region)

	logger.Info().
		Int("natural_width", s.Natural.Width).
		Int("natural_height", s.Natural.Height).
		Float64("scale", s.Factor).
		Msg("image loaded")
	return nil
}

// Close dismisses the widget with reason "close".
func (w *Widget) Close() {
	w.mu.Lock()
	if !w.open {
		w.mu.Unlock()
		return
	}
	w.closeLocked()
	w.mu.Unlock()

	if fn := w.props.OnClose; fn != nil {
		fn(CloseReasonClose)
	}
}

func (w *Widget) closeLocked() {
	w.open = false
	w.gen++
	w.ctrl.Unload()
	w.origin.Cancel()
	w.img = nil
	w.source = ""
}

func (w *Widget) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open
}

// Source returns the data URI of the loaded image.
func (w *Widget) Source() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.source
}

func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{
		Open:      w.open,
		Loaded:    w.ctrl.Loaded(),
		Method:    w.ctrl.Method(),
		InputMode: w.ctrl.InputMode(),
		Scale:     w.ctrl.Scale(),
		Region:    w.ctrl.Region(),
		CropSize:  w.ctrl.CropSize(),
		Origin:    w.ctrl.Origin(),
		Gesture:   w.ctrl.Gesture(),
	}
}

func (w *Widget) PointerDown(t Target, p Point) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open && w.ctrl.PointerDown(t, p)
}

func (w *Widget) PointerMove(p Point) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ctrl.PointerMove(p)
}

func (w *Widget) PointerUp() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ctrl.PointerUp()
}

func (w *Widget) PointerCancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ctrl.PointerCancel()
}

// Drag performs a whole gesture from start through each point in path.
func (w *Widget) Drag(t Target, start Point, path ...Point) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return false
	}
	return w.ctrl.Drag(t, start, func(move func(Point)) {
		for _, p := range path {
			move(p)
		}
	})
}

// MeasureOrigin records where the displayed image sits on the page. Rapid
// measurements are coalesced; only the last one within the delay applies.
func (w *Widget) MeasureOrigin(p Point) {
	w.origin.Trigger(func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.ctrl.SetOrigin(p)
	})
}

// SetOrigin applies an origin immediately.
func (w *Widget) SetOrigin(p Point) {
	w.origin.Cancel()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ctrl.SetOrigin(p)
}

func (w *Widget) SetInputMode(m InputMode) (CropSize, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ctrl.SetInputMode(m)
}

func (w *Widget) ConfirmCustom(width, height int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return ErrClosed
	}
	return w.ctrl.ConfirmCustom(width, height)
}

// Clip encodes the current selection. On success OnClip fires, the widget
// closes and OnClose fires with reason "clip". An empty selection or a failed
// asset round trip leaves the widget open.
func (w *Widget) Clip(ctx context.Context) (*ClipInfo, error) {
	w.mu.Lock()
	if !w.open {
		w.mu.Unlock()
		return nil, ErrClosed
	}
	if !w.ctrl.Loaded() {
		w.mu.Unlock()
		return nil, ErrNotLoaded
	}
	gen := w.gen
	img := w.img
	region := w.ctrl.Region()
	s := w.ctrl.Scale()
	w.mu.Unlock()

	logger := log.Ctx(ctx)
	res, err := Rasterize(ctx, img, region, s, RasterOptions{
		EncodeOptions: EncodeOptions{Type: w.props.ImgType, Quality: w.props.EncoderOptions},
		Name:          w.props.ImgName,
		SourceURI:     w.props.Resource.sourceName(),
		Client:        w.props.HTTPClient,
	})
	if err != nil {
		var empty *EmptySelectionError
		var asset *AssetRetrievalError
		switch {
		case errors.As(err, &empty):
			logger.Warn().Err(err).Msg("refusing to clip an empty selection")
		case errors.As(err, &asset):
			logger.Error().Err(err).Msg("failed to materialize clipped file")
			if fn := w.props.OnError; fn != nil {
				fn(err)
			}
		}
		return nil, err
	}

	w.mu.Lock()
	if gen != w.gen || !w.open {
		w.mu.Unlock()
		return nil, ErrSuperseded
	}
	w.closeLocked()
	w.mu.Unlock()

	info := ClipInfo{URL: res.URL, Width: res.Width, Height: res.Height, File: res.File}
	logger.Info().Int("width", info.Width).Int("height", info.Height).Str("name", info.File.Name).Msg("clipped")
	if fn := w.props.OnClip; fn != nil {
		fn(info)
	}
	if fn := w.props.OnClose; fn != nil {
		fn(CloseReasonClip)
	}
	return &info, nil
}
