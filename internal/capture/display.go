package capture

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// DisplayBackend captures through the OS display APIs. This is the
// primary backend.
type DisplayBackend struct {
	region image.Rectangle
}

func NewDisplayBackend() *DisplayBackend {
	return &DisplayBackend{}
}

func (b *DisplayBackend) Name() string {
	return "display"
}

// Open binds the region and performs one probe capture to verify the
// backend actually works here before the bot relies on it.
func (b *DisplayBackend) Open(region image.Rectangle) error {
	if screenshot.NumActiveDisplays() == 0 {
		return fmt.Errorf("no active displays")
	}
	if region.Empty() {
		return fmt.Errorf("empty capture region")
	}

	if _, err := screenshot.CaptureRect(region); err != nil {
		return fmt.Errorf("probe capture failed: %w", err)
	}

	b.region = region
	return nil
}

func (b *DisplayBackend) Read() (*image.RGBA, error) {
	return screenshot.CaptureRect(b.region)
}

func (b *DisplayBackend) Close() error {
	return nil
}

// DisplayBounds returns the bounds of the given display in virtual
// screen coordinates.
func DisplayBounds(index int) image.Rectangle {
	return screenshot.GetDisplayBounds(index)
}

// NumDisplays reports how many displays are active.
func NumDisplays() int {
	return screenshot.NumActiveDisplays()
}
