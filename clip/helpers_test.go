package clip

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vincent-petithory/dataurl"
)

// patternImage encodes each pixel's position in its color.
func patternImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pngDataURI(t *testing.T, w, h int) string {
	t.Helper()
	return dataurl.New(pngBytes(t, patternImage(w, h)), "image/png").String()
}

// loadedController returns a controller for a 2000x800 image in the default
// viewport: factor 0.5, display 1000x400.
func loadedController(t *testing.T, method Method, box *Box) *Controller {
	t.Helper()
	s, err := DefaultViewport.Resolve(2000, 800)
	require.NoError(t, err)
	r, err := Initialize(s, method, box)
	require.NoError(t, err)
	c := NewController(method)
	c.Reset(s, r)
	return c
}
