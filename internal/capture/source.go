package capture

import (
	"errors"
	"io"
	"sync"
)

// Sentinel errors a Source may return from Open. Callers branch on these to
// tell the user what went wrong before any audio flows.
var (
	ErrPermissionDenied  = errors.New("capture: permission denied")
	ErrDeviceUnavailable = errors.New("capture: device unavailable")
)

// Source is a stream of float32 PCM samples. Read blocks until samples are
// available and returns io.EOF when the stream ends. Close releases the
// underlying device or buffer and must be safe to call more than once.
type Source interface {
	Open() error
	Read(buf []float32) (int, error)
	SampleRate() int
	Close() error
}

// PushSource is a Source fed by an external producer, typically a websocket
// handler decoding client audio frames. Push and Read may race freely.
type PushSource struct {
	rate int

	mu      sync.Mutex
	pending []float32
	closed  bool
	avail   chan struct{}
}

// NewPushSource returns a PushSource producing samples at the given rate.
func NewPushSource(sampleRate int) *PushSource {
	return &PushSource{rate: sampleRate, avail: make(chan struct{}, 1)}
}

func (p *PushSource) Open() error     { return nil }
func (p *PushSource) SampleRate() int { return p.rate }

// Push appends samples for the reader. Pushes after Close are dropped.
func (p *PushSource) Push(samples []float32) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.pending = append(p.pending, samples...)
	p.mu.Unlock()
	select {
	case p.avail <- struct{}{}:
	default:
	}
}

// Read copies buffered samples into buf, blocking until samples arrive or the
// source closes. A closed, drained source returns io.EOF.
func (p *PushSource) Read(buf []float32) (int, error) {
	for {
		p.mu.Lock()
		if len(p.pending) > 0 {
			n := copy(buf, p.pending)
			p.pending = p.pending[n:]
			p.mu.Unlock()
			return n, nil
		}
		closed := p.closed
		p.mu.Unlock()
		if closed {
			return 0, io.EOF
		}
		<-p.avail
	}
}

// Close ends the stream and wakes any blocked reader. Idempotent.
func (p *PushSource) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	select {
	case p.avail <- struct{}{}:
	default:
	}
	return nil
}

// StreamSource replays a fixed sample buffer, used by tests and the
// simulator. openErr, when set, is returned from Open to exercise the
// permission and device failure paths.
type StreamSource struct {
	rate    int
	samples []float32
	pos     int
	openErr error
	mu      sync.Mutex
	closed  bool
}

// NewStreamSource returns a source that replays samples at sampleRate.
func NewStreamSource(samples []float32, sampleRate int) *StreamSource {
	return &StreamSource{rate: sampleRate, samples: samples}
}

// NewFailingSource returns a source whose Open fails with err.
func NewFailingSource(err error) *StreamSource {
	return &StreamSource{openErr: err}
}

func (s *StreamSource) Open() error     { return s.openErr }
func (s *StreamSource) SampleRate() int { return s.rate }

func (s *StreamSource) Read(buf []float32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.pos >= len(s.samples) {
		return 0, io.EOF
	}
	n := copy(buf, s.samples[s.pos:])
	s.pos += n
	return n, nil
}

func (s *StreamSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
