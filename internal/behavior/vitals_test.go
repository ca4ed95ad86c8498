package behavior

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ConserveLee/huntbot/internal/capture"
	"github.com/ConserveLee/huntbot/internal/config"
)

func vitalsFrame(w, h int) *capture.Frame {
	px := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(px.Pix); i += 4 {
		px.Pix[i] = 255
	}
	return &capture.Frame{Pixels: px, CapturedAt: time.Unix(1, 0), Seq: 1}
}

// paintBar fills the leftmost filled pixels of every bar row with the
// bar color.
func paintBar(f *capture.Frame, bar config.Region, c config.RGB, filled int) {
	r := bar.Rect()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Min.X+filled; x++ {
			f.Pixels.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
		}
	}
}

func TestStaticVitals(t *testing.T) {
	t.Parallel()

	v := StaticVitals{V: Vitals{Health: 0.4, Resource: 0.7, UnderThreat: true}}
	assert.Equal(t, Vitals{Health: 0.4, Resource: 0.7, UnderThreat: true}, v.Read(nil))

	full := FullVitals()
	assert.Equal(t, Vitals{Health: 1, Resource: 1}, full.Read(nil))
}

func TestBarReaderMeasuresFillFraction(t *testing.T) {
	t.Parallel()

	healthBar := config.Region{X: 10, Y: 5, W: 50, H: 4}
	resourceBar := config.Region{X: 10, Y: 12, W: 50, H: 4}
	red := config.RGB{R: 200, G: 30, B: 40}
	blue := config.RGB{R: 40, G: 60, B: 220}

	r := NewBarReader(config.VitalsConfig{
		Mode:           "bars",
		HealthBar:      healthBar,
		ResourceBar:    resourceBar,
		HealthColor:    red,
		ResourceColor:  blue,
		ColorTolerance: 30,
	})

	f := vitalsFrame(100, 40)
	paintBar(f, healthBar, red, 45)
	paintBar(f, resourceBar, blue, 25)

	v := r.Read(f)
	assert.InDelta(t, 0.9, v.Health, 1e-9)
	assert.InDelta(t, 0.5, v.Resource, 1e-9)
	assert.False(t, v.UnderThreat, "no previous read to compare against")
}

func TestBarReaderFlagsThreatOnHealthDrop(t *testing.T) {
	t.Parallel()

	healthBar := config.Region{X: 10, Y: 5, W: 50, H: 4}
	red := config.RGB{R: 200, G: 30, B: 40}
	r := NewBarReader(config.VitalsConfig{
		Mode:           "bars",
		HealthBar:      healthBar,
		HealthColor:    red,
		ColorTolerance: 30,
	})

	full := vitalsFrame(100, 40)
	paintBar(full, healthBar, red, 50)
	v := r.Read(full)
	assert.InDelta(t, 1.0, v.Health, 1e-9)
	assert.InDelta(t, 1.0, v.Resource, 1e-9, "missing resource bar reads full")
	assert.False(t, v.UnderThreat)

	hurt := vitalsFrame(100, 40)
	paintBar(hurt, healthBar, red, 45)
	v = r.Read(hurt)
	assert.InDelta(t, 0.9, v.Health, 1e-9)
	assert.True(t, v.UnderThreat, "ten percent drop between reads")

	v = r.Read(hurt)
	assert.False(t, v.UnderThreat, "steady health clears the flag")

	grazed := vitalsFrame(100, 40)
	paintBar(grazed, healthBar, red, 44)
	v = r.Read(grazed)
	assert.InDelta(t, 0.88, v.Health, 1e-9)
	assert.False(t, v.UnderThreat, "two percent drop is below the trigger")
}

func TestBarReaderToleratesColorNoise(t *testing.T) {
	t.Parallel()

	healthBar := config.Region{X: 10, Y: 5, W: 50, H: 4}
	r := NewBarReader(config.VitalsConfig{
		Mode:           "bars",
		HealthBar:      healthBar,
		HealthColor:    config.RGB{R: 200, G: 30, B: 40},
		ColorTolerance: 30,
	})

	f := vitalsFrame(100, 40)
	// Slightly off the configured color, within tolerance.
	paintBar(f, healthBar, config.RGB{R: 210, G: 35, B: 50}, 50)

	v := r.Read(f)
	assert.InDelta(t, 1.0, v.Health, 1e-9)
}

func TestBarReaderOffFrameBarReadsFull(t *testing.T) {
	t.Parallel()

	r := NewBarReader(config.VitalsConfig{
		Mode:           "bars",
		HealthBar:      config.Region{X: 500, Y: 500, W: 50, H: 4},
		HealthColor:    config.RGB{R: 200, G: 30, B: 40},
		ColorTolerance: 30,
	})

	v := r.Read(vitalsFrame(100, 40))
	assert.InDelta(t, 1.0, v.Health, 1e-9)
}
