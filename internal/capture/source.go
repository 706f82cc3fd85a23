// Package capture acquires images for analysis. Every page that scans
// something drives the same Session against a pluggable Source, so the
// capture-then-analyze flow behaves identically for label scanning and
// spoilage detection.
package capture

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrSourceUnavailable marks a source that cannot deliver images at all,
// as opposed to a capture attempt that merely failed.
var ErrSourceUnavailable = errors.New("capture source unavailable")

// Image is one captured frame together with where it came from.
type Image struct {
	Data       []byte
	MIME       string
	Source     string
	CapturedAt time.Time
}

// Source delivers images on demand.
type Source interface {
	// Name identifies the source in results and history ("file", "camera", ...).
	Name() string
	// Capture acquires one image. Implementations must return the exact
	// bytes to analyze; callers never re-fetch.
	Capture(ctx context.Context) (*Image, error)
}

// MemorySource serves an image that is already in memory, such as an upload
// received over the wire.
type MemorySource struct {
	data []byte
	mime string
}

// NewMemorySource wraps raw image bytes. The MIME type is sniffed when not
// given.
func NewMemorySource(data []byte, mime string) (*MemorySource, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("unsupported content type %s", mime)
	}
	return &MemorySource{data: data, mime: mime}, nil
}

func (m *MemorySource) Name() string { return "upload" }

func (m *MemorySource) Capture(ctx context.Context) (*Image, error) {
	return &Image{Data: m.data, MIME: m.mime, Source: m.Name(), CapturedAt: time.Now()}, nil
}
