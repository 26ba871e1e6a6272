package clip

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"math"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/vincent-petithory/dataurl"
)

// RasterOptions controls how a selection is encoded and named.
type RasterOptions struct {
	EncodeOptions
	// Name overrides the output file name.
	Name string
	// SourceURI is used to derive a name when Name is empty.
	SourceURI string
	Client    *http.Client
}

// Result is an encoded crop.
type Result struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	File   *File  `json:"file"`
}

// Rasterize cuts the selection out of src, which must be the image at its
// natural size, and encodes it. Pixels the selection covers outside of src
// are transparent.
func Rasterize(ctx context.Context, src image.Image, region Region, s Scale, opts RasterOptions) (*Result, error) {
	size := region.CropSize(s)
	if size.Empty() {
		return nil, &EmptySelectionError{Width: size.Width, Height: size.Height}
	}

	x := int(math.Floor(s.ToNatural(region.Left)))
	y := int(math.Floor(s.ToNatural(region.Top)))
	canvas := imaging.New(size.Width, size.Height, color.Transparent)
	canvas = imaging.Paste(canvas, src, image.Pt(-x, -y))

	opts.EncodeOptions = opts.EncodeOptions.normalized()
	var buf bytes.Buffer
	if err := encode(&buf, canvas, opts.EncodeOptions); err != nil {
		return nil, err
	}
	uri := dataurl.New(buf.Bytes(), opts.Type).String()

	f, err := fetchAsset(ctx, opts.Client, uri, outputName(opts), opts.Type)
	if err != nil {
		return nil, err
	}
	return &Result{
		URL:    uri,
		Width:  size.Width,
		Height: size.Height,
		File:   f,
	}, nil
}

func outputName(opts RasterOptions) string {
	if opts.Name != "" {
		return opts.Name
	}
	ext := opts.Extension()
	name := nameFromURI(opts.SourceURI)
	if name == "" {
		return "clip" + ext
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}
