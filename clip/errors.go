package clip

import (
	"errors"
	"fmt"
)

var (
	// ErrSuperseded is returned when an asynchronous load or clip finished
	// after the widget was closed or reopened; its result is discarded.
	ErrSuperseded = errors.New("clip: result superseded by a newer load")
	// ErrNotLoaded is returned when an operation needs a loaded image.
	ErrNotLoaded = errors.New("clip: no image loaded")
	// ErrClosed is returned by operations on a closed widget.
	ErrClosed = errors.New("clip: widget is closed")
)

// ConfigurationError reports invalid or missing setup. The caller has to fix
// the props; retrying with the same configuration fails the same way.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "clip: invalid configuration: " + e.Reason
}

// EmptySelectionError is returned when a crop is confirmed while the selection
// has no area. The widget stays open.
type EmptySelectionError struct {
	Width  int
	Height int
}

func (e *EmptySelectionError) Error() string {
	return fmt.Sprintf("clip: empty selection (%dx%d)", e.Width, e.Height)
}

// AssetRetrievalError wraps a failure to materialize a file from a URI, either
// while loading a remote resource or while turning an encoded crop into a File.
type AssetRetrievalError struct {
	URI string
	Err error
}

func (e *AssetRetrievalError) Error() string {
	return fmt.Sprintf("clip: retrieve %s: %v", shortURI(e.URI), e.Err)
}

func (e *AssetRetrievalError) Unwrap() error {
	return e.Err
}

// shortURI keeps data URIs readable in error messages.
func shortURI(uri string) string {
	const max = 48
	if len(uri) <= max {
		return uri
	}
	return uri[:max] + "..."
}
