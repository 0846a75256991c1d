package capture

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/polymeet/gateway/internal/metrics"
)

// defaultChunkInterval matches the cadence the rest of the pipeline is tuned
// for: roughly one chunk per second regardless of how full it is.
const defaultChunkInterval = 1000 * time.Millisecond

// Chunk is one capture window of PCM samples.
type Chunk struct {
	Samples    []float32
	SampleRate int
}

// ChunkFunc receives emitted chunks. It is called from the recorder's
// goroutine; slow callbacks delay subsequent chunks, they are never dropped
// here (dropping is the orchestrator's call).
type ChunkFunc func(Chunk)

// Recorder pulls samples from a Source and emits them as timed chunks.
//
// Lifecycle: Initialize opens the source and registers the chunk callback;
// StartRecording / StopRecording toggle emission and are idempotent;
// StopRecording flushes whatever partial chunk is pending; Cleanup stops
// recording and releases the source, and is safe to call repeatedly.
type Recorder struct {
	src           Source
	chunkInterval time.Duration

	mu          sync.Mutex
	onChunk     ChunkFunc
	initialized bool
	cleaned     bool
	stop        chan struct{}
	done        chan struct{}
}

// NewRecorder wraps src. The zero chunk interval selects the default.
func NewRecorder(src Source, chunkInterval time.Duration) *Recorder {
	if chunkInterval <= 0 {
		chunkInterval = defaultChunkInterval
	}
	return &Recorder{src: src, chunkInterval: chunkInterval}
}

// Initialize opens the source and registers onChunk. Open failures pass
// through so callers can match ErrPermissionDenied / ErrDeviceUnavailable.
func (r *Recorder) Initialize(onChunk ChunkFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cleaned {
		return fmt.Errorf("capture: recorder already cleaned up")
	}
	if r.initialized {
		r.onChunk = onChunk
		return nil
	}
	if err := r.src.Open(); err != nil {
		return fmt.Errorf("capture: open source: %w", err)
	}
	r.onChunk = onChunk
	r.initialized = true
	return nil
}

// StartRecording begins chunk emission. Calling it while already recording
// is a no-op.
func (r *Recorder) StartRecording() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized || r.cleaned {
		return fmt.Errorf("capture: recorder not initialized")
	}
	if r.stop != nil {
		return nil
	}
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.loop(r.onChunk, r.stop, r.done)
	return nil
}

// StopRecording halts emission, flushing the pending partial chunk first.
// Calling it while stopped is a no-op.
func (r *Recorder) StopRecording() {
	r.mu.Lock()
	stop, done := r.stop, r.done
	r.stop, r.done = nil, nil
	r.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Recording reports whether a capture loop is running.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stop != nil
}

// Cleanup stops recording and releases the source. Idempotent; the source is
// closed exactly once.
func (r *Recorder) Cleanup() {
	r.StopRecording()
	r.mu.Lock()
	already := r.cleaned
	r.cleaned = true
	r.initialized = false
	r.mu.Unlock()
	if already {
		return
	}
	if err := r.src.Close(); err != nil {
		slog.Warn("capture source close failed", "error", err)
	}
}

func (r *Recorder) loop(onChunk ChunkFunc, stop, done chan struct{}) {
	defer close(done)

	readCh := make(chan []float32)
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		buf := make([]float32, 2048)
		for {
			n, err := r.src.Read(buf)
			if n > 0 {
				out := make([]float32, n)
				copy(out, buf[:n])
				select {
				case readCh <- out:
				case <-stop:
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	var pending []float32
	flush := func() {
		if len(pending) == 0 {
			return
		}
		chunk := Chunk{Samples: pending, SampleRate: r.src.SampleRate()}
		pending = nil
		metrics.AudioChunks.Inc()
		onChunk(chunk)
	}

	tick := time.NewTicker(r.chunkInterval)
	defer tick.Stop()
	for {
		select {
		case samples := <-readCh:
			pending = append(pending, samples...)
		case <-tick.C:
			flush()
		case <-readDone:
			flush()
			return
		case <-stop:
			flush()
			return
		}
	}
}
