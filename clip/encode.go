package clip

import (
	"fmt"
	"image"
	"io"
	"math"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

const (
	DefaultImgType = "image/png"
	DefaultQuality = 0.92
)

// EncodeOptions selects the output encoding. Quality in (0, 1] applies to
// lossy formats; anything else falls back to DefaultQuality.
type EncodeOptions struct {
	Type    string  `json:"type"`
	Quality float64 `json:"quality"`
}

type encoderFunc func(w io.Writer, img image.Image, quality float64) error

var encoders = map[string]encoderFunc{
	"image/png": func(w io.Writer, img image.Image, _ float64) error {
		return imaging.Encode(w, img, imaging.PNG)
	},
	"image/jpeg": func(w io.Writer, img image.Image, q float64) error {
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(int(math.Round(q*100))))
	},
	"image/webp": func(w io.Writer, img image.Image, q float64) error {
		return webp.Encode(w, img, &webp.Options{Quality: float32(q * 100)})
	},
	"image/gif": func(w io.Writer, img image.Image, _ float64) error {
		return imaging.Encode(w, img, imaging.GIF)
	},
	"image/bmp": func(w io.Writer, img image.Image, _ float64) error {
		return imaging.Encode(w, img, imaging.BMP)
	},
	"image/tiff": func(w io.Writer, img image.Image, _ float64) error {
		return imaging.Encode(w, img, imaging.TIFF)
	},
}

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"image/bmp":  ".bmp",
	"image/tiff": ".tiff",
}

// SupportedType reports whether the rasterizer can encode the MIME type.
func SupportedType(mime string) bool {
	_, ok := encoders[mime]
	return ok
}

// normalized applies the fallbacks: unknown types encode as PNG.
func (o EncodeOptions) normalized() EncodeOptions {
	if o.Type == "image/jpg" {
		o.Type = "image/jpeg"
	}
	if !SupportedType(o.Type) {
		o.Type = DefaultImgType
	}
	if o.Quality <= 0 || o.Quality > 1 {
		o.Quality = DefaultQuality
	}
	return o
}

func (o EncodeOptions) Extension() string {
	return extensions[o.normalized().Type]
}

func encode(w io.Writer, img image.Image, o EncodeOptions) error {
	o = o.normalized()
	if err := encoders[o.Type](w, img, o.Quality); err != nil {
		return fmt.Errorf("failed to encode %s: %w", o.Type, err)
	}
	return nil
}
