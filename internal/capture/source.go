package capture

import (
	"fmt"
	"image"
	"sync"
	"time"
)

// Stats is a snapshot of source counters.
type Stats struct {
	Produced uint64
	Failures uint64
	FPS      float64
}

// Source produces frames from an opened backend at a target rate. Next
// blocks to hold the pace; a recalibration request takes effect on the
// next frame.
type Source struct {
	backend  Backend
	interval time.Duration

	mu       sync.Mutex
	region   image.Rectangle
	pending  *image.Rectangle
	seq      uint64
	lastRead time.Time

	produced uint64
	failures uint64

	windowStart time.Time
	windowCount int
	fps         float64

	sleep func(time.Duration)
	now   func() time.Time
}

// NewSource wraps an already-opened backend. fps is clamped into [15,30].
func NewSource(backend Backend, region image.Rectangle, fps int) *Source {
	if fps < 15 {
		fps = 15
	}
	if fps > 30 {
		fps = 30
	}
	return &Source{
		backend:  backend,
		interval: time.Second / time.Duration(fps),
		region:   region,
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// SetRegion requests recalibration. The new region is applied before the
// next frame is read.
func (s *Source) SetRegion(r image.Rectangle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := r
	s.pending = &pending
}

// Region returns the region frames are currently read from.
func (s *Source) Region() image.Rectangle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.region
}

// Next blocks until a new frame is available at the target rate. A read
// failure is returned wrapped in ErrTransient; the caller skips the cycle
// and calls again.
func (s *Source) Next() (*Frame, error) {
	s.pace()

	if err := s.applyPending(); err != nil {
		return nil, err
	}

	px, err := s.backend.Read()
	if err != nil {
		s.mu.Lock()
		s.failures++
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	s.mu.Lock()
	s.seq++
	s.produced++
	s.tickFPS()
	f := &Frame{
		Pixels:     px,
		Origin:     s.region.Min,
		CapturedAt: s.now(),
		Seq:        s.seq,
	}
	s.mu.Unlock()

	return f, nil
}

// Stats returns a snapshot of the source counters.
func (s *Source) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Produced: s.produced, Failures: s.failures, FPS: s.fps}
}

// Close releases the backend.
func (s *Source) Close() error {
	return s.backend.Close()
}

func (s *Source) pace() {
	s.mu.Lock()
	last := s.lastRead
	s.mu.Unlock()

	if !last.IsZero() {
		if since := s.now().Sub(last); since < s.interval {
			s.sleep(s.interval - since)
		}
	}

	s.mu.Lock()
	s.lastRead = s.now()
	s.mu.Unlock()
}

// applyPending swaps to a requested region by reopening the backend. If
// the new region is rejected the old one is restored and the frame is
// reported lost.
func (s *Source) applyPending() error {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	old := s.region
	s.mu.Unlock()

	if pending == nil {
		return nil
	}

	_ = s.backend.Close()
	if err := s.backend.Open(*pending); err != nil {
		if reopenErr := s.backend.Open(old); reopenErr != nil {
			return fmt.Errorf("%w: region rollback failed: %v", ErrUnavailable, reopenErr)
		}
		return fmt.Errorf("%w: recalibration rejected: %v", ErrTransient, err)
	}

	s.mu.Lock()
	s.region = *pending
	s.mu.Unlock()
	return nil
}

// tickFPS measures the produced rate over one-second windows. Caller
// holds the mutex.
func (s *Source) tickFPS() {
	now := s.now()
	if s.windowStart.IsZero() {
		s.windowStart = now
	}
	s.windowCount++
	if elapsed := now.Sub(s.windowStart); elapsed >= time.Second {
		s.fps = float64(s.windowCount) / elapsed.Seconds()
		s.windowStart = now
		s.windowCount = 0
	}
}
