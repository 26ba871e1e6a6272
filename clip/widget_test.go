package clip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	clips  []ClipInfo
	closes []CloseReason
	errs   []error
}

func (r *recorder) props(p Props) Props {
	p.OnClip = func(info ClipInfo) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.clips = append(r.clips, info)
	}
	p.OnClose = func(reason CloseReason) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.closes = append(r.closes, reason)
	}
	p.OnError = func(err error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.errs = append(r.errs, err)
	}
	return p
}

func TestNew_FixedWithoutBox(t *testing.T) {
	_, err := New(Props{Method: Fixed, Resource: URLResource(pngDataURI(t, 4, 4))})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "fixed clip method requires a default box size", cfgErr.Reason)
}

func TestWidget_OpenAndClip(t *testing.T) {
	var rec recorder
	w, err := New(rec.props(Props{
		Resource: URLResource(pngDataURI(t, 2000, 800)),
		ImgName:  "crop.png",
	}))
	require.NoError(t, err)
	require.NoError(t, w.Open(context.Background()))

	st := w.State()
	assert.True(t, st.Open)
	assert.True(t, st.Loaded)
	assert.Equal(t, 0.5, st.Scale.Factor)
	assert.Equal(t, CropSize{Width: 2000, Height: 800}, st.CropSize)

	require.True(t, w.Drag(HandleTarget(BottomRight), Point{}, Point{X: 500, Y: 200}))
	assert.Equal(t, CropSize{Width: 1000, Height: 400}, w.State().CropSize)

	info, err := w.Clip(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1000, info.Width)
	assert.Equal(t, 400, info.Height)
	assert.Equal(t, "crop.png", info.File.Name)

	assert.False(t, w.IsOpen())
	require.Len(t, rec.clips, 1)
	assert.Equal(t, *info, rec.clips[0])
	assert.Equal(t, []CloseReason{CloseReasonClip}, rec.closes)
}

func TestWidget_ClipEmptySelectionStaysOpen(t *testing.T) {
	var rec recorder
	w, err := New(rec.props(Props{Resource: URLResource(pngDataURI(t, 200, 100))}))
	require.NoError(t, err)
	require.NoError(t, w.Open(context.Background()))

	require.True(t, w.Drag(HandleTarget(TopMiddle), Point{}, Point{Y: 5000}))
	_, err = w.Clip(context.Background())
	var empty *EmptySelectionError
	require.ErrorAs(t, err, &empty)

	assert.True(t, w.IsOpen())
	assert.Empty(t, rec.clips)
	assert.Empty(t, rec.closes)
	assert.Empty(t, rec.errs)
}

func TestWidget_Close(t *testing.T) {
	var rec recorder
	w, err := New(rec.props(Props{Resource: URLResource(pngDataURI(t, 10, 10))}))
	require.NoError(t, err)
	require.NoError(t, w.Open(context.Background()))

	w.Close()
	w.Close()
	assert.Equal(t, []CloseReason{CloseReasonClose}, rec.closes)
	assert.False(t, w.State().Loaded)

	_, err = w.Clip(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, w.PointerDown(Body, Point{}))
}

func TestWidget_FixedStartsWithBox(t *testing.T) {
	w, err := New(Props{
		Resource:   URLResource(pngDataURI(t, 2000, 800)),
		Method:     Fixed,
		DefaultBox: &Box{Width: 100, Height: 100},
	})
	require.NoError(t, err)
	require.NoError(t, w.Open(context.Background()))

	st := w.State()
	assert.Equal(t, Region{Right: 950, Bottom: 350}, st.Region)
	assert.False(t, w.PointerDown(HandleTarget(TopLeft), Point{}))
}

func TestWidget_CustomConfirm(t *testing.T) {
	w, err := New(Props{Resource: URLResource(pngDataURI(t, 2000, 800)), Method: Custom})
	require.NoError(t, err)
	require.NoError(t, w.Open(context.Background()))

	size, err := w.SetInputMode(InputTyped)
	require.NoError(t, err)
	assert.Equal(t, CropSize{Width: 2000, Height: 800}, size)

	require.NoError(t, w.ConfirmCustom(300, 200))
	assert.Equal(t, CropSize{Width: 300, Height: 200}, w.State().CropSize)

	info, err := w.Clip(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 300, info.Width)
	assert.Equal(t, 200, info.Height)
}

func TestWidget_SupersededLoad(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	data := pngBytes(t, patternImage(10, 10))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	w, err := New(Props{Resource: URLResource(srv.URL + "/slow.png"), HTTPClient: srv.Client()})
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- w.Open(context.Background()) }()

	<-arrived
	w.Close()
	close(release)

	assert.ErrorIs(t, <-errCh, ErrSuperseded)
	assert.False(t, w.State().Loaded)
	assert.Empty(t, w.Source())
}

func TestWidget_MeasureOriginDebounced(t *testing.T) {
	w, err := New(Props{
		Resource:    URLResource(pngDataURI(t, 2000, 800)),
		OriginDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, w.Open(context.Background()))

	w.MeasureOrigin(Point{X: 1, Y: 1})
	w.MeasureOrigin(Point{X: 40, Y: 60})
	require.Eventually(t, func() bool {
		return w.State().Origin == Point{X: 40, Y: 60}
	}, time.Second, 5*time.Millisecond)

	require.True(t, w.Drag(HandleTarget(BottomRight), Point{}, Point{X: 540, Y: 260}))
	assert.Equal(t, Region{Right: 500, Bottom: 200}, w.State().Region)
}
