package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// State is the lifecycle position of a scan session.
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateAnalyzing
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateAnalyzing:
		return "analyzing"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrScanInProgress is returned when a new capture is requested while a
// previous one has not finished.
var ErrScanInProgress = errors.New("a scan is already in progress")

// AnalyzeFunc turns a captured image into a domain result.
type AnalyzeFunc func(ctx context.Context, img *Image) (any, error)

// Session drives one page's capture-then-analyze flow as an explicit state
// machine. A new capture may start only from idle, done or error; while one
// is in flight further requests are refused and the displayed result is left
// untouched.
type Session struct {
	analyze AnalyzeFunc

	mu     sync.Mutex
	state  State
	source Source
	result any
	errMsg string
	img    *Image
}

func NewSession(source Source, analyze AnalyzeFunc) *Session {
	return &Session{source: source, analyze: analyze, state: StateIdle}
}

// Run performs one capture-and-analyze cycle and returns the analysis result.
// It returns ErrScanInProgress when a cycle is already running.
func (s *Session) Run(ctx context.Context) (any, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	source := s.source
	s.mu.Unlock()
	if source == nil {
		err := errors.New("no capture source selected")
		s.fail(err)
		return nil, err
	}

	img, err := source.Capture(ctx)
	if err != nil {
		s.fail(err)
		return nil, err
	}
	s.captured(img)

	result, err := s.analyze(ctx, img)
	if err != nil {
		s.fail(err)
		return nil, err
	}
	s.complete(result)
	return result, nil
}

// begin moves the session into capturing. Only the resting states may start
// a new cycle; an in-flight cycle keeps its state and result.
func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateCapturing, StateAnalyzing:
		return ErrScanInProgress
	}
	s.state = StateCapturing
	s.result = nil
	s.errMsg = ""
	s.img = nil
	return nil
}

func (s *Session) captured(img *Image) {
	s.mu.Lock()
	s.state = StateAnalyzing
	s.img = img
	s.mu.Unlock()
}

func (s *Session) complete(result any) {
	s.mu.Lock()
	s.state = StateDone
	s.result = result
	s.mu.Unlock()
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	s.state = StateError
	s.errMsg = err.Error()
	s.mu.Unlock()
}

// SetSource swaps the capture source. Refused while a cycle is in flight.
func (s *Session) SetSource(source Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateCapturing, StateAnalyzing:
		return ErrScanInProgress
	}
	s.source = source
	return nil
}

// State reports the current lifecycle position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the last completed analysis result, or nil.
func (s *Session) Result() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Err returns the last failure message, or "".
func (s *Session) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// LastImage returns the image of the current or last cycle, or nil.
func (s *Session) LastImage() *Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img
}

// SourceName names the active capture source.
func (s *Session) SourceName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		return ""
	}
	return s.source.Name()
}
