package capture

import (
	"errors"
	"fmt"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	name       string
	region     image.Rectangle
	openErrFor func(image.Rectangle) error
	readErr    error // one-shot
	opens      []image.Rectangle
	closes     int
	reads      int
}

func (f *fakeBackend) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeBackend) Open(r image.Rectangle) error {
	f.opens = append(f.opens, r)
	if f.openErrFor != nil {
		if err := f.openErrFor(r); err != nil {
			return err
		}
	}
	f.region = r
	return nil
}

func (f *fakeBackend) Read() (*image.RGBA, error) {
	f.reads++
	if f.readErr != nil {
		err := f.readErr
		f.readErr = nil
		return nil, err
	}
	return image.NewRGBA(image.Rect(0, 0, f.region.Dx(), f.region.Dy())), nil
}

func (f *fakeBackend) Close() error {
	f.closes++
	return nil
}

// newTestSource wires a deterministic clock: sleeping advances it.
func newTestSource(b Backend, region image.Rectangle, fps int) (*Source, *[]time.Duration) {
	s := NewSource(b, region, fps)
	sleeps := &[]time.Duration{}
	cur := time.Unix(1000, 0)
	s.now = func() time.Time { return cur }
	s.sleep = func(d time.Duration) {
		*sleeps = append(*sleeps, d)
		cur = cur.Add(d)
	}
	return s, sleeps
}

func TestSelectPicksFirstWorkingBackend(t *testing.T) {
	t.Parallel()

	region := image.Rect(0, 0, 100, 100)
	broken := &fakeBackend{name: "broken", openErrFor: func(image.Rectangle) error {
		return fmt.Errorf("no permission")
	}}
	working := &fakeBackend{name: "working"}

	b, err := Select(region, broken, working)
	require.NoError(t, err)
	assert.Equal(t, "working", b.Name())
	assert.Equal(t, region, working.region)
}

func TestSelectFailsWhenNoBackendOpens(t *testing.T) {
	t.Parallel()

	fail := func(image.Rectangle) error { return fmt.Errorf("nope") }
	a := &fakeBackend{name: "a", openErrFor: fail}
	b := &fakeBackend{name: "b", openErrFor: fail}

	_, err := Select(image.Rect(0, 0, 10, 10), a, b)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorContains(t, err, "a:")
	assert.ErrorContains(t, err, "b:")
}

func TestSourceProducesSequencedFrames(t *testing.T) {
	t.Parallel()

	region := image.Rect(100, 50, 180, 110)
	backend := &fakeBackend{}
	require.NoError(t, backend.Open(region))
	s, _ := newTestSource(backend, region, 20)

	f1, err := s.Next()
	require.NoError(t, err)
	f2, err := s.Next()
	require.NoError(t, err)

	assert.Equal(t, uint64(1), f1.Seq)
	assert.Equal(t, uint64(2), f2.Seq)
	assert.Equal(t, image.Pt(100, 50), f1.Origin)
	assert.Equal(t, 80, f1.Width())
	assert.Equal(t, 60, f1.Height())
	assert.Equal(t, image.Pt(140, 80), f1.ToScreen(image.Pt(40, 30)))
	assert.Equal(t, region, f1.ScreenBounds())

	stats := s.Stats()
	assert.Equal(t, uint64(2), stats.Produced)
	assert.Equal(t, uint64(0), stats.Failures)
}

func TestSourceHoldsThePace(t *testing.T) {
	t.Parallel()

	region := image.Rect(0, 0, 10, 10)
	backend := &fakeBackend{}
	require.NoError(t, backend.Open(region))
	s, sleeps := newTestSource(backend, region, 20)

	_, err := s.Next()
	require.NoError(t, err)
	// First read never sleeps.
	assert.Empty(t, *sleeps)

	_, err = s.Next()
	require.NoError(t, err)
	require.Len(t, *sleeps, 1)
	assert.Equal(t, 50*time.Millisecond, (*sleeps)[0])
}

func TestSourceClampsFPS(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	low := NewSource(backend, image.Rect(0, 0, 1, 1), 5)
	assert.Equal(t, time.Second/15, low.interval)

	high := NewSource(backend, image.Rect(0, 0, 1, 1), 90)
	assert.Equal(t, time.Second/30, high.interval)
}

func TestSourceReportsLostFrameAndRecovers(t *testing.T) {
	t.Parallel()

	region := image.Rect(0, 0, 10, 10)
	backend := &fakeBackend{}
	require.NoError(t, backend.Open(region))
	s, _ := newTestSource(backend, region, 20)

	backend.readErr = fmt.Errorf("device busy")
	_, err := s.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransient)

	f, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), f.Seq, "failed reads do not consume sequence numbers")

	stats := s.Stats()
	assert.Equal(t, uint64(1), stats.Failures)
	assert.Equal(t, uint64(1), stats.Produced)
}

func TestSourceAppliesRecalibrationBeforeNextFrame(t *testing.T) {
	t.Parallel()

	oldRegion := image.Rect(0, 0, 10, 10)
	newRegion := image.Rect(200, 300, 240, 340)
	backend := &fakeBackend{}
	require.NoError(t, backend.Open(oldRegion))
	s, _ := newTestSource(backend, oldRegion, 20)

	_, err := s.Next()
	require.NoError(t, err)

	s.SetRegion(newRegion)
	f, err := s.Next()
	require.NoError(t, err)

	assert.Equal(t, image.Pt(200, 300), f.Origin)
	assert.Equal(t, newRegion, s.Region())
	assert.Equal(t, 1, backend.closes)
	assert.Equal(t, newRegion, backend.opens[len(backend.opens)-1])
}

func TestSourceRejectedRecalibrationRollsBack(t *testing.T) {
	t.Parallel()

	oldRegion := image.Rect(0, 0, 10, 10)
	badRegion := image.Rect(-5000, -5000, -4990, -4990)
	backend := &fakeBackend{openErrFor: func(r image.Rectangle) error {
		if r == badRegion {
			return fmt.Errorf("region off screen")
		}
		return nil
	}}
	require.NoError(t, backend.Open(oldRegion))
	s, _ := newTestSource(backend, oldRegion, 20)

	s.SetRegion(badRegion)
	_, err := s.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransient)
	assert.Equal(t, oldRegion, s.Region())

	f, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, image.Pt(0, 0), f.Origin)
}

func TestSourceRollbackFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	oldRegion := image.Rect(0, 0, 10, 10)
	backend := &fakeBackend{}
	require.NoError(t, backend.Open(oldRegion))
	s, _ := newTestSource(backend, oldRegion, 20)

	// Every open from now on fails, including the rollback.
	backend.openErrFor = func(image.Rectangle) error { return errors.New("display gone") }

	s.SetRegion(image.Rect(1, 1, 11, 11))
	_, err := s.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}
