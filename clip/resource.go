package clip

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"github.com/vincent-petithory/dataurl"
	_ "golang.org/x/image/webp"
)

// File is an in-memory file, the result of a crop or an uploaded source.
type File struct {
	Name    string    `json:"name"`
	Type    string    `json:"type"`
	Data    []byte    `json:"-"`
	ModTime time.Time `json:"mod_time"`
}

func (f *File) Size() int64 {
	return int64(len(f.Data))
}

// Resource is the image to crop: a remote URL, a data URI, a local path or
// an in-memory file.
type Resource struct {
	URI  string
	File *File
}

func URLResource(uri string) Resource {
	return Resource{URI: uri}
}

func FileResource(f *File) Resource {
	return Resource{File: f}
}

func (r Resource) IsZero() bool {
	return r.URI == "" && r.File == nil
}

func (r Resource) String() string {
	if r.File != nil {
		return "file:" + r.File.Name
	}
	return shortURI(r.URI)
}

// sourceName is the URI or file name an output name can be derived from.
func (r Resource) sourceName() string {
	if r.File != nil {
		return r.File.Name
	}
	return r.URI
}

func isDataURI(uri string) bool {
	return strings.HasPrefix(uri, "data:")
}

func isRemoteURI(uri string) bool {
	return strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://")
}

// toDataURI turns any resource into an embeddable data URI, the same form the
// rasterizer reads pixels from.
func toDataURI(ctx context.Context, client *http.Client, r Resource, accept string) (string, error) {
	switch {
	case r.File != nil:
		return encodeFile(r.File), nil
	case isDataURI(r.URI):
		return r.URI, nil
	case isRemoteURI(r.URI):
		f, err := fetchAsset(ctx, client, r.URI, "", accept)
		if err != nil {
			return "", err
		}
		return encodeFile(f), nil
	case r.URI != "":
		f, err := readFile(r.URI)
		if err != nil {
			return "", &AssetRetrievalError{URI: r.URI, Err: err}
		}
		return encodeFile(f), nil
	}
	return "", &ConfigurationError{Reason: "resource is empty"}
}

func readFile(p string) (*File, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read resource %s: %w", p, err)
	}
	f := &File{
		Name: filepath.Base(p),
		Type: sniffType(data, ""),
		Data: data,
	}
	if info, err := os.Stat(p); err == nil {
		f.ModTime = info.ModTime()
	}
	return f, nil
}

func encodeFile(f *File) string {
	return dataurl.New(f.Data, sniffType(f.Data, f.Type)).String()
}

// sniffType detects the MIME type from content, falling back to the declared type.
func sniffType(data []byte, declared string) string {
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	if declared != "" {
		return declared
	}
	return "application/octet-stream"
}

// fetchAsset materializes a File from a data URI or a remote URL. Failures are
// reported as AssetRetrievalError and are not retried.
func fetchAsset(ctx context.Context, client *http.Client, uri, name, accept string) (*File, error) {
	if name == "" {
		name = nameFromURI(uri)
	}

	var (
		data     []byte
		declared string
		err      error
	)
	if isDataURI(uri) {
		data, declared, err = decodeDataURI(uri)
	} else {
		data, declared, err = download(ctx, client, uri, accept)
	}
	if err != nil {
		return nil, &AssetRetrievalError{URI: uri, Err: err}
	}

	typ := declared
	if accept != "" && !strings.HasPrefix(accept, "*") {
		typ = accept
	}
	return &File{
		Name:    name,
		Type:    sniffType(data, typ),
		Data:    data,
		ModTime: time.Now(),
	}, nil
}

func decodeDataURI(uri string) ([]byte, string, error) {
	du, err := dataurl.DecodeString(uri)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode data uri: %w", err)
	}
	return du.Data, du.MediaType.ContentType(), nil
}

func download(ctx context.Context, client *http.Client, uri, accept string) ([]byte, string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to download: HTTP %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read body: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// nameFromURI takes the last path segment of a URL or local path. Data URIs
// carry no name.
func nameFromURI(uri string) string {
	if uri == "" || isDataURI(uri) {
		return ""
	}
	if isRemoteURI(uri) {
		u, err := url.Parse(uri)
		if err != nil {
			return ""
		}
		base := path.Base(u.Path)
		if base == "/" || base == "." {
			return ""
		}
		return base
	}
	return filepath.Base(uri)
}

// decodeImage decodes the pixels behind a data URI, applying EXIF orientation.
func decodeImage(uri string) (image.Image, error) {
	data, _, err := decodeDataURI(uri)
	if err != nil {
		return nil, err
	}
	if !filetype.IsImage(data) {
		return nil, errors.New("resource is not an image")
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
