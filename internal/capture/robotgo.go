package capture

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/go-vgo/robotgo"
)

// RobotgoBackend captures through robotgo. It is slower than the display
// backend but works in a few environments where that one does not, so it
// serves as the fallback.
type RobotgoBackend struct {
	region image.Rectangle
}

func NewRobotgoBackend() *RobotgoBackend {
	return &RobotgoBackend{}
}

func (b *RobotgoBackend) Name() string {
	return "robotgo"
}

func (b *RobotgoBackend) Open(region image.Rectangle) error {
	if region.Empty() {
		return fmt.Errorf("empty capture region")
	}

	if _, err := robotgo.CaptureImg(region.Min.X, region.Min.Y, region.Dx(), region.Dy()); err != nil {
		return fmt.Errorf("probe capture failed: %w", err)
	}

	b.region = region
	return nil
}

func (b *RobotgoBackend) Read() (*image.RGBA, error) {
	img, err := robotgo.CaptureImg(b.region.Min.X, b.region.Min.Y, b.region.Dx(), b.region.Dy())
	if err != nil {
		return nil, err
	}
	return toRGBA(img), nil
}

func (b *RobotgoBackend) Close() error {
	return nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}
