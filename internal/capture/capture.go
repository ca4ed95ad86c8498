package capture

import (
	"errors"
	"fmt"
	"image"
	"time"
)

var (
	// ErrUnavailable means no capture backend could be opened. The bot
	// cannot run without frames, so this is fatal at startup.
	ErrUnavailable = errors.New("no capture backend available")

	// ErrTransient marks a single lost frame. The decision cycle skips
	// and retries on the next cadence.
	ErrTransient = errors.New("transient capture failure")
)

// Frame is one immutable screen snapshot. The pixel buffer is an
// independent copy owned by whoever holds the frame; it is never reused
// by the source.
type Frame struct {
	Pixels     *image.RGBA
	Origin     image.Point
	CapturedAt time.Time
	Seq        uint64
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int {
	return f.Pixels.Rect.Dx()
}

// Height returns the frame height in pixels.
func (f *Frame) Height() int {
	return f.Pixels.Rect.Dy()
}

// Bounds returns the frame rectangle in frame-local coordinates.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width(), f.Height())
}

// ToScreen translates a frame-local point into screen coordinates.
func (f *Frame) ToScreen(p image.Point) image.Point {
	return p.Add(f.Origin)
}

// ScreenBounds returns the frame rectangle in screen coordinates.
func (f *Frame) ScreenBounds() image.Rectangle {
	return image.Rectangle{Min: f.Origin, Max: f.Origin.Add(image.Pt(f.Width(), f.Height()))}
}

// Backend is one way of reading pixels from a screen region. Open binds
// the backend to a region and must fail if the region cannot be served.
type Backend interface {
	Name() string
	Open(region image.Rectangle) error
	Read() (*image.RGBA, error)
	Close() error
}

// Select opens the first backend that accepts the region, in order.
// Selection happens once at startup; if every backend fails the result
// is ErrUnavailable with the per-backend reasons attached.
func Select(region image.Rectangle, backends ...Backend) (Backend, error) {
	if len(backends) == 0 {
		return nil, ErrUnavailable
	}

	var reasons []error
	for _, b := range backends {
		if err := b.Open(region); err != nil {
			reasons = append(reasons, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(reasons...))
}
