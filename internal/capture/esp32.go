package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/fresheye/fresheye/internal/api"
)

// FrameFetcher fetches the newest frame relayed from the remote camera.
// *api.Client satisfies it.
type FrameFetcher interface {
	LatestFrame(ctx context.Context) (*api.Frame, error)
}

// ESP32Source captures from the remote ESP32 camera via the backend relay.
//
// Capture always fetches one fresh frame and hands back exactly those bytes,
// so the frame that is analyzed is the frame that was captured. The preview
// poller runs independently and its frames are never reused for analysis.
type ESP32Source struct {
	fetcher FrameFetcher
}

func NewESP32Source(fetcher FrameFetcher) *ESP32Source {
	return &ESP32Source{fetcher: fetcher}
}

func (e *ESP32Source) Name() string { return "esp32" }

func (e *ESP32Source) Capture(ctx context.Context) (*Image, error) {
	frame, err := e.fetcher.LatestFrame(ctx)
	if err != nil {
		return nil, fmt.Errorf("remote camera: %w", err)
	}
	return &Image{
		Data:       frame.Data,
		MIME:       frame.ContentType,
		Source:     e.Name(),
		CapturedAt: frame.FetchedAt,
	}, nil
}

// Poll fetches preview frames every interval and reports each outcome to fn
// until ctx ends. The first fetch happens immediately. A failed fetch is
// reported and polling continues; the preview loop never gives up on its own.
func (e *ESP32Source) Poll(ctx context.Context, interval time.Duration, fn func(*Image, error)) {
	if interval <= 0 {
		interval = 1500 * time.Millisecond
	}

	fetch := func() {
		img, err := e.Capture(ctx)
		if ctx.Err() != nil {
			return
		}
		fn(img, err)
	}

	fetch()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fetch()
		}
	}
}
