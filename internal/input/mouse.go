package input

import (
	"image"
	"math"
	"math/rand"
	"time"

	"github.com/ConserveLee/huntbot/internal/config"
)

const (
	// Landing jitter around the requested target, in pixels.
	offsetMin = 3.0
	offsetMax = 7.0

	// Settle pause after arrival, before control returns.
	pauseMin = 100 * time.Millisecond
	pauseMax = 700 * time.Millisecond
)

// Mouse moves the cursor along randomized curved paths and clicks.
// All coordinates are screen coordinates; callers translate from frame
// space first. Owned by the decision task.
type Mouse struct {
	inj    Injector
	region image.Rectangle
	delays map[string]config.Range
	rng    *rand.Rand
	sleep  func(time.Duration)
	now    func() time.Time

	// ClampFunc observes targets pulled back inside the region.
	ClampFunc func(requested, clamped image.Point)
}

// NewMouse builds a mouse actuator confined to region.
func NewMouse(inj Injector, region image.Rectangle, delays map[string]config.Range, rng *rand.Rand) *Mouse {
	return &Mouse{
		inj:    inj,
		region: region,
		delays: delays,
		rng:    rng,
		sleep:  time.Sleep,
		now:    time.Now,
	}
}

// SetRegion replaces the clamping region, tracking recalibration. Not
// safe concurrently with Move or Click; the owning task calls it
// between actions.
func (m *Mouse) SetRegion(r image.Rectangle) {
	m.region = r
}

// Move walks the cursor to target with a context pre-delay, a curved
// path and a settle pause on arrival. The cursor lands a few pixels off
// the exact target. Returns the landing point and the wall-clock time
// the gesture took, so the caller can fold it into its pacing.
func (m *Mouse) Move(target image.Point, urgency float64, context string) (image.Point, time.Duration) {
	start := m.now()
	urgency = clamp01(urgency)
	if d := sampleDelay(m.delays, context, m.rng); d > 0 {
		m.sleep(d)
	}
	want := target
	target = m.clamp(target)
	if target != want && m.ClampFunc != nil {
		m.ClampFunc(want, target)
	}
	end := m.clamp(m.land(target))
	cx, cy := m.inj.CursorPosition()
	m.trace(image.Pt(cx, cy), end, urgency)
	m.sleep(m.hoverPause(urgency))
	return end, m.now().Sub(start)
}

// Click moves to target and presses the button on arrival.
func (m *Mouse) Click(target image.Point, urgency float64, button, context string) (image.Point, time.Duration) {
	end, took := m.Move(target, urgency, context)
	if button == "" {
		button = "left"
	}
	m.inj.Click(button)
	return end, took
}

// trace emits intermediate positions along a cubic curve from start to
// end. Higher urgency flattens the bow and shortens the walk.
func (m *Mouse) trace(start, end image.Point, urgency float64) {
	dx := float64(end.X - start.X)
	dy := float64(end.Y - start.Y)
	dist := math.Hypot(dx, dy)
	if dist < 1 {
		m.inj.MoveMouse(end.X, end.Y)
		return
	}

	steps := int(dist / 14)
	if steps < 6 {
		steps = 6
	}
	if steps > 60 {
		steps = 60
	}
	pause := m.moveDuration(dist, urgency) / time.Duration(steps)

	bow := dist * 0.22 * (1 - 0.7*urgency)
	px, py := -dy/dist, dx/dist
	b1 := bow * (m.rng.Float64()*2 - 1)
	b2 := bow * (m.rng.Float64()*2 - 1)
	c1x := float64(start.X) + dx/3 + px*b1
	c1y := float64(start.Y) + dy/3 + py*b1
	c2x := float64(start.X) + 2*dx/3 + px*b2
	c2y := float64(start.Y) + 2*dy/3 + py*b2

	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := cubic(float64(start.X), c1x, c2x, float64(end.X), t)
		y := cubic(float64(start.Y), c1y, c2y, float64(end.Y), t)
		m.inj.MoveMouse(int(math.Round(x)), int(math.Round(y)))
		if i < steps {
			m.sleep(pause)
		}
	}
}

// moveDuration grows with distance and shrinks as urgency rises.
func (m *Mouse) moveDuration(dist, urgency float64) time.Duration {
	ms := (140 + 0.8*dist) * (1 - 0.65*urgency)
	d := time.Duration(ms * float64(time.Millisecond))
	if d < 25*time.Millisecond {
		d = 25 * time.Millisecond
	}
	return d
}

// hoverPause samples the settle pause on arrival, pulled toward the
// short end by urgency.
func (m *Mouse) hoverPause(urgency float64) time.Duration {
	base := pauseMin + time.Duration(m.rng.Int63n(int64(pauseMax-pauseMin)))
	return base - time.Duration(float64(base-pauseMin)*urgency)
}

// land offsets the target by a small random radius so repeated clicks
// never hit the same pixel. Resamples when rounding pushes the offset
// out of the [offsetMin, offsetMax] band.
func (m *Mouse) land(target image.Point) image.Point {
	for {
		ang := m.rng.Float64() * 2 * math.Pi
		r := offsetMin + m.rng.Float64()*(offsetMax-offsetMin)
		dx := int(math.Round(r * math.Cos(ang)))
		dy := int(math.Round(r * math.Sin(ang)))
		if d := math.Hypot(float64(dx), float64(dy)); d < offsetMin || d > offsetMax {
			continue
		}
		return image.Point{X: target.X + dx, Y: target.Y + dy}
	}
}

func (m *Mouse) clamp(p image.Point) image.Point {
	if p.X < m.region.Min.X {
		p.X = m.region.Min.X
	}
	if p.X >= m.region.Max.X {
		p.X = m.region.Max.X - 1
	}
	if p.Y < m.region.Min.Y {
		p.Y = m.region.Min.Y
	}
	if p.Y >= m.region.Max.Y {
		p.Y = m.region.Max.Y - 1
	}
	return p
}

func cubic(p0, p1, p2, p3, t float64) float64 {
	u := 1 - t
	return u*u*u*p0 + 3*u*u*t*p1 + 3*u*t*t*p2 + t*t*t*p3
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func sampleDelay(delays map[string]config.Range, context string, rng *rand.Rand) time.Duration {
	r, ok := delays[context]
	if !ok {
		return 0
	}
	return r.Sample(rng)
}
