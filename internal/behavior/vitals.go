package behavior

import (
	"image"
	"math"

	"github.com/ConserveLee/huntbot/internal/capture"
	"github.com/ConserveLee/huntbot/internal/config"
)

// Vitals are the externally supplied health/resource proxies consumed by
// the state machine. Fractions are in [0,1].
type Vitals struct {
	Health      float64
	Resource    float64
	UnderThreat bool
}

// Provider supplies vitals for a cycle. The state machine never computes
// these itself.
type Provider interface {
	Read(f *capture.Frame) Vitals
}

// StaticVitals always reports the same values. The default provider
// reports full health and resources.
type StaticVitals struct {
	V Vitals
}

func (s StaticVitals) Read(*capture.Frame) Vitals {
	return s.V
}

// FullVitals returns a provider reporting a healthy, unthreatened agent.
func FullVitals() StaticVitals {
	return StaticVitals{V: Vitals{Health: 1, Resource: 1}}
}

// BarReader estimates vitals from on-screen status bars: the fill
// fraction of a bar is the share of pixels along its middle row matching
// the bar color. A health drop since the previous read flags the agent
// as under threat.
type BarReader struct {
	healthBar     image.Rectangle
	resourceBar   image.Rectangle
	healthColor   config.RGB
	resourceColor config.RGB
	tolerance     float64

	lastHealth float64
	hasLast    bool
}

// Health lost between consecutive reads before the agent counts as
// under attack.
const threatDropFraction = 0.05

func NewBarReader(cfg config.VitalsConfig) *BarReader {
	return &BarReader{
		healthBar:     cfg.HealthBar.Rect(),
		resourceBar:   cfg.ResourceBar.Rect(),
		healthColor:   cfg.HealthColor,
		resourceColor: cfg.ResourceColor,
		tolerance:     cfg.ColorTolerance,
	}
}

func (r *BarReader) Read(f *capture.Frame) Vitals {
	health := barFill(f.Pixels, r.healthBar, r.healthColor, r.tolerance)
	resource := 1.0
	if !r.resourceBar.Empty() {
		resource = barFill(f.Pixels, r.resourceBar, r.resourceColor, r.tolerance)
	}

	threat := r.hasLast && health < r.lastHealth-threatDropFraction
	r.lastHealth = health
	r.hasLast = true

	return Vitals{Health: health, Resource: resource, UnderThreat: threat}
}

// barFill scans the middle row of the bar rectangle and returns the
// fraction of pixels matching the bar color.
func barFill(img *image.RGBA, bar image.Rectangle, c config.RGB, tolerance float64) float64 {
	bar = bar.Intersect(img.Bounds())
	if bar.Empty() {
		return 1.0
	}

	y := bar.Min.Y + bar.Dy()/2
	matched := 0
	for x := bar.Min.X; x < bar.Max.X; x++ {
		i := img.PixOffset(x, y)
		if colorSimilar(img.Pix[i], img.Pix[i+1], img.Pix[i+2], c, tolerance) {
			matched++
		}
	}
	return float64(matched) / float64(bar.Dx())
}

// colorSimilar compares by Euclidean distance in RGB space.
func colorSimilar(r, g, b uint8, c config.RGB, tolerance float64) bool {
	dr := float64(r) - float64(c.R)
	dg := float64(g) - float64(c.G)
	db := float64(b) - float64(c.B)
	return math.Sqrt(dr*dr+dg*dg+db*db) <= tolerance
}
