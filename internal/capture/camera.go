package capture

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const defaultGrabber = "fswebcam"

// CameraSource captures from a local webcam through an external grabber
// binary. Access failures latch: once the camera has been found unusable it
// stays unavailable until Reset, the way a denied camera permission does.
// Other sources are not affected by the latch.
type CameraSource struct {
	device  string
	grabber string

	mu      sync.Mutex
	latched bool
	reason  string
}

// NewCameraSource builds a camera source for the given video device.
// An empty device selects /dev/video0; an empty grabber selects fswebcam.
func NewCameraSource(device, grabber string) *CameraSource {
	if device == "" {
		device = "/dev/video0"
	}
	if grabber == "" {
		grabber = defaultGrabber
	}
	return &CameraSource{device: device, grabber: grabber}
}

func (c *CameraSource) Name() string { return "camera" }

// Reset clears a latched failure so the next capture probes the camera again.
func (c *CameraSource) Reset() {
	c.mu.Lock()
	c.latched = false
	c.reason = ""
	c.mu.Unlock()
}

func (c *CameraSource) Capture(ctx context.Context) (*Image, error) {
	c.mu.Lock()
	if c.latched {
		reason := c.reason
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, reason)
	}
	c.mu.Unlock()

	bin, err := exec.LookPath(c.grabber)
	if err != nil {
		c.latch(fmt.Sprintf("%s not installed", c.grabber))
		return nil, fmt.Errorf("%w: %s not installed", ErrSourceUnavailable, c.grabber)
	}

	tmp, err := os.CreateTemp("", "fresheye-capture-*.jpg")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	cmd := exec.CommandContext(ctx, bin,
		"-d", c.device,
		"--no-banner",
		"-r", "1280x720",
		"--jpeg", "90",
		path,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("camera capture: %w", ctx.Err())
		}
		c.latch(fmt.Sprintf("cannot access %s", c.device))
		return nil, fmt.Errorf("%w: %s: %s", ErrSourceUnavailable, c.device, firstLine(out))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read captured frame: %w", err)
	}
	if len(data) == 0 || !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return nil, fmt.Errorf("camera produced no usable frame")
	}

	return &Image{Data: data, MIME: "image/jpeg", Source: c.Name(), CapturedAt: time.Now()}, nil
}

func (c *CameraSource) latch(reason string) {
	c.mu.Lock()
	c.latched = true
	c.reason = reason
	c.mu.Unlock()
}

func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		s = "capture failed"
	}
	return s
}
