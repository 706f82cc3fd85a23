package capture

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type stubSource struct {
	name string
	img  *Image
	err  error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Capture(ctx context.Context) (*Image, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.img, nil
}

// gatedSource blocks Capture until released, to hold a session in flight.
type gatedSource struct {
	release chan struct{}
	img     *Image
}

func (g *gatedSource) Name() string { return "gated" }

func (g *gatedSource) Capture(ctx context.Context) (*Image, error) {
	select {
	case <-g.release:
		return g.img, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func passThrough(ctx context.Context, img *Image) (any, error) {
	return fmt.Sprintf("analyzed %s", img.Source), nil
}

func waitForState(t *testing.T, s *Session, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("session never reached state %v (stuck at %v)", want, s.State())
}

func TestSessionLifecycle(t *testing.T) {
	src := &stubSource{name: "file", img: &Image{Data: []byte("x"), Source: "file"}}
	s := NewSession(src, passThrough)

	if s.State() != StateIdle {
		t.Fatalf("new session state = %v, want idle", s.State())
	}

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != "analyzed file" {
		t.Errorf("result = %v", result)
	}
	if s.State() != StateDone {
		t.Errorf("state = %v, want done", s.State())
	}
	if s.Result() != "analyzed file" {
		t.Errorf("stored result = %v", s.Result())
	}
}

func TestSessionCaptureFailure(t *testing.T) {
	src := &stubSource{name: "camera", err: errors.New("device busy")}
	s := NewSession(src, passThrough)

	if _, err := s.Run(context.Background()); err == nil {
		t.Fatal("expected capture error")
	}
	if s.State() != StateError {
		t.Errorf("state = %v, want error", s.State())
	}
	if s.Err() != "device busy" {
		t.Errorf("error message = %q", s.Err())
	}
	if s.Result() != nil {
		t.Errorf("result should be nil after failure, got %v", s.Result())
	}

	// An error state does not block the next attempt.
	src.err = nil
	src.img = &Image{Data: []byte("x"), Source: "camera"}
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run after error: %v", err)
	}
	if s.State() != StateDone {
		t.Errorf("state = %v, want done", s.State())
	}
}

func TestSessionAnalyzeFailure(t *testing.T) {
	src := &stubSource{name: "file", img: &Image{Data: []byte("x"), Source: "file"}}
	s := NewSession(src, func(ctx context.Context, img *Image) (any, error) {
		return nil, errors.New("backend returned 500")
	})

	if _, err := s.Run(context.Background()); err == nil {
		t.Fatal("expected analyze error")
	}
	if s.State() != StateError || s.Err() != "backend returned 500" {
		t.Errorf("state = %v, err = %q", s.State(), s.Err())
	}
}

func TestSessionRejectsConcurrentRun(t *testing.T) {
	gate := &gatedSource{release: make(chan struct{}), img: &Image{Data: []byte("x"), Source: "gated"}}
	s := NewSession(gate, passThrough)

	done := make(chan error, 1)
	go func() {
		_, err := s.Run(context.Background())
		done <- err
	}()
	waitForState(t, s, StateCapturing)

	// A second capture while one is in flight is refused outright.
	if _, err := s.Run(context.Background()); !errors.Is(err, ErrScanInProgress) {
		t.Fatalf("concurrent Run error = %v, want ErrScanInProgress", err)
	}
	// And so is swapping the source mid-flight.
	if err := s.SetSource(&stubSource{name: "file"}); !errors.Is(err, ErrScanInProgress) {
		t.Fatalf("SetSource error = %v, want ErrScanInProgress", err)
	}

	close(gate.release)
	if err := <-done; err != nil {
		t.Fatalf("first Run: %v", err)
	}

	// The in-flight cycle finished untouched by the rejected attempts.
	if s.Result() != "analyzed gated" {
		t.Errorf("result = %v, want the first cycle's result", s.Result())
	}
	if s.State() != StateDone {
		t.Errorf("state = %v, want done", s.State())
	}
}

func TestSessionNewRunClearsPreviousResult(t *testing.T) {
	gate := &gatedSource{release: make(chan struct{}), img: &Image{Data: []byte("x"), Source: "gated"}}
	src := &stubSource{name: "file", img: &Image{Data: []byte("x"), Source: "file"}}
	s := NewSession(src, passThrough)

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if s.Result() == nil {
		t.Fatal("first result missing")
	}

	if err := s.SetSource(gate); err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	go s.Run(context.Background())
	waitForState(t, s, StateCapturing)

	// Starting a fresh cycle blanks the old result while the spinner runs.
	if s.Result() != nil {
		t.Errorf("result = %v, want nil during new cycle", s.Result())
	}
	close(gate.release)
	waitForState(t, s, StateDone)
	if s.Result() != "analyzed gated" {
		t.Errorf("result = %v", s.Result())
	}
}

func TestStateString(t *testing.T) {
	for _, tt := range []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateCapturing, "capturing"},
		{StateAnalyzing, "analyzing"},
		{StateDone, "done"},
		{StateError, "error"},
	} {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
