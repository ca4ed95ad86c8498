package input

import (
	"image"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ConserveLee/huntbot/internal/config"
)

// fakeInjector records every device call in order.
type fakeInjector struct {
	moves   []image.Point
	clicks  []string
	downs   []string
	ups     []string
	events  []string
	cursor  image.Point
	downErr map[string]error
	upErr   map[string]error
}

func (f *fakeInjector) MoveMouse(x, y int) {
	f.cursor = image.Pt(x, y)
	f.moves = append(f.moves, f.cursor)
	f.events = append(f.events, "move")
}

func (f *fakeInjector) Click(button string) {
	f.clicks = append(f.clicks, button)
	f.events = append(f.events, "click:"+button)
}

func (f *fakeInjector) KeyDown(key string) error {
	if err := f.downErr[key]; err != nil {
		return err
	}
	f.downs = append(f.downs, key)
	f.events = append(f.events, "down:"+key)
	return nil
}

func (f *fakeInjector) KeyUp(key string) error {
	if err := f.upErr[key]; err != nil {
		return err
	}
	f.ups = append(f.ups, key)
	f.events = append(f.events, "up:"+key)
	return nil
}

func (f *fakeInjector) CursorPosition() (int, int) {
	return f.cursor.X, f.cursor.Y
}

func newTestMouse(region image.Rectangle) (*Mouse, *fakeInjector, *[]time.Duration) {
	inj := &fakeInjector{cursor: region.Min.Add(image.Pt(5, 5))}
	delays := map[string]config.Range{
		config.ContextCombat: {Min: 10 * time.Millisecond, Max: 30 * time.Millisecond},
	}
	m := NewMouse(inj, region, delays, rand.New(rand.NewSource(1)))
	sleeps := &[]time.Duration{}
	clock := time.Unix(3000, 0)
	m.now = func() time.Time { return clock }
	m.sleep = func(d time.Duration) {
		*sleeps = append(*sleeps, d)
		clock = clock.Add(d)
	}
	return m, inj, sleeps
}

func TestMoveLandsNearTargetAlongAPath(t *testing.T) {
	t.Parallel()

	m, inj, _ := newTestMouse(image.Rect(0, 0, 800, 600))
	target := image.Pt(400, 300)

	end, _ := m.Move(target, 0.5, config.ContextCombat)

	off := math.Hypot(float64(end.X-target.X), float64(end.Y-target.Y))
	assert.GreaterOrEqual(t, off, 3.0, "never lands on the exact pixel")
	assert.LessOrEqual(t, off, 7.0, "stays close to the target")

	require.NotEmpty(t, inj.moves)
	assert.Equal(t, end, inj.moves[len(inj.moves)-1], "reported landing is the last emitted position")
	assert.GreaterOrEqual(t, len(inj.moves), 6, "a long move is walked, not teleported")
	assert.LessOrEqual(t, len(inj.moves), 60)

	assert.True(t, end.In(m.region))
}

func TestMoveAppliesContextDelay(t *testing.T) {
	t.Parallel()

	m, _, sleeps := newTestMouse(image.Rect(0, 0, 800, 600))

	m.Move(image.Pt(400, 300), 0.5, config.ContextCombat)

	require.NotEmpty(t, *sleeps)
	first := (*sleeps)[0]
	assert.GreaterOrEqual(t, first, 10*time.Millisecond)
	assert.LessOrEqual(t, first, 30*time.Millisecond)
}

func TestSampleDelayUnknownContext(t *testing.T) {
	t.Parallel()

	delays := map[string]config.Range{
		config.ContextCombat: {Min: 10 * time.Millisecond, Max: 30 * time.Millisecond},
	}
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, time.Duration(0), sampleDelay(delays, "teleport", rng))
}

func TestMoveClampsOffRegionTargets(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestMouse(image.Rect(0, 0, 800, 600))

	type clampCall struct{ requested, clamped image.Point }
	var calls []clampCall
	m.ClampFunc = func(requested, clamped image.Point) {
		calls = append(calls, clampCall{requested, clamped})
	}

	end, _ := m.Move(image.Pt(2000, -50), 0.5, config.ContextCombat)

	require.Len(t, calls, 1)
	assert.Equal(t, image.Pt(2000, -50), calls[0].requested)
	assert.Equal(t, image.Pt(799, 0), calls[0].clamped)
	assert.True(t, end.In(m.region))

	// In-region targets never trigger the callback.
	m.Move(image.Pt(400, 300), 0.5, config.ContextCombat)
	assert.Len(t, calls, 1)
}

func TestSetRegionTightensClamp(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestMouse(image.Rect(0, 0, 800, 600))
	m.SetRegion(image.Rect(100, 100, 200, 200))

	var clamped image.Point
	m.ClampFunc = func(_, c image.Point) { clamped = c }

	end, _ := m.Move(image.Pt(400, 300), 0.5, config.ContextCombat)
	assert.Equal(t, image.Pt(199, 199), clamped)
	assert.True(t, end.In(image.Rect(100, 100, 200, 200)))
}

func TestMoveDurationShrinksWithUrgency(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestMouse(image.Rect(0, 0, 800, 600))

	slow := m.moveDuration(400, 0)
	mid := m.moveDuration(400, 0.5)
	fast := m.moveDuration(400, 1)

	assert.Greater(t, slow, mid)
	assert.Greater(t, mid, fast)
	assert.GreaterOrEqual(t, fast, 25*time.Millisecond)
}

func TestTraceSingleStepForTinyMoves(t *testing.T) {
	t.Parallel()

	m, inj, _ := newTestMouse(image.Rect(0, 0, 800, 600))

	m.trace(image.Pt(50, 50), image.Pt(50, 50), 0.5)
	assert.Equal(t, []image.Point{image.Pt(50, 50)}, inj.moves)
}

func TestClickPressesAfterArrival(t *testing.T) {
	t.Parallel()

	m, inj, sleeps := newTestMouse(image.Rect(0, 0, 800, 600))

	m.Click(image.Pt(400, 300), 0.8, "", config.ContextCombat)

	require.Equal(t, []string{"left"}, inj.clicks, "empty button defaults to left")
	assert.Equal(t, "click:left", inj.events[len(inj.events)-1], "press happens after the walk")
	assert.NotEmpty(t, inj.moves)

	// The hover pause is the final sleep before the press, pulled short
	// by urgency.
	require.NotEmpty(t, *sleeps)
	hover := (*sleeps)[len(*sleeps)-1]
	assert.GreaterOrEqual(t, hover, 100*time.Millisecond)
	assert.LessOrEqual(t, hover, 220*time.Millisecond)
}

func TestClickWithExplicitButton(t *testing.T) {
	t.Parallel()

	m, inj, _ := newTestMouse(image.Rect(0, 0, 800, 600))

	m.Click(image.Pt(400, 300), 0.5, "right", config.ContextCombat)
	assert.Equal(t, []string{"right"}, inj.clicks)
}

func TestHoverPauseAtFullUrgencyIsMinimal(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestMouse(image.Rect(0, 0, 800, 600))

	for i := 0; i < 50; i++ {
		assert.Equal(t, 100*time.Millisecond, m.hoverPause(1))
	}

	p := m.hoverPause(0)
	assert.GreaterOrEqual(t, p, 100*time.Millisecond)
	assert.Less(t, p, 700*time.Millisecond)
}

func TestMoveReportsElapsedTime(t *testing.T) {
	t.Parallel()

	// Fresh mice share a seed, so the random draws line up and only
	// urgency changes the gesture length.
	took := func(urgency float64) time.Duration {
		m, _, sleeps := newTestMouse(image.Rect(0, 0, 800, 600))
		_, d := m.Move(image.Pt(600, 400), urgency, config.ContextCombat)

		var total time.Duration
		for _, s := range *sleeps {
			total += s
		}
		require.Equal(t, total, d, "elapsed covers every pause in the gesture")
		return d
	}

	slow := took(0)
	mid := took(0.5)
	fast := took(1)
	assert.Greater(t, slow, mid)
	assert.Greater(t, mid, fast)
}

func TestLandOffsetStaysInBand(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestMouse(image.Rect(0, 0, 800, 600))
	target := image.Pt(400, 300)
	for seed := int64(0); seed < 200; seed++ {
		m.rng = rand.New(rand.NewSource(seed))
		p := m.land(target)
		off := math.Hypot(float64(p.X-target.X), float64(p.Y-target.Y))
		assert.GreaterOrEqual(t, off, 3.0)
		assert.LessOrEqual(t, off, 7.0)
	}
}
