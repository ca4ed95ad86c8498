package config

import (
	"fmt"
	"image"
	"math/rand"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so profiles can write "500ms" or "2s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Range is a closed duration interval [Min, Max] sampled uniformly.
type Range struct {
	Min time.Duration
	Max time.Duration
}

func (r *Range) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Min string `yaml:"min"`
		Max string `yaml:"max"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	min, err := time.ParseDuration(raw.Min)
	if err != nil {
		return fmt.Errorf("invalid range min %q: %w", raw.Min, err)
	}
	max, err := time.ParseDuration(raw.Max)
	if err != nil {
		return fmt.Errorf("invalid range max %q: %w", raw.Max, err)
	}
	r.Min, r.Max = min, max
	return nil
}

// Sample draws a uniform value from the range.
func (r Range) Sample(rng *rand.Rand) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + time.Duration(rng.Int63n(int64(r.Max-r.Min)+1))
}

func (r Range) valid() bool {
	return r.Min >= 0 && r.Min <= r.Max
}

// Region is a screen rectangle given as origin plus size.
type Region struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

func (r Region) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Point is a screen coordinate.
type Point struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

func (p Point) Pt() image.Point {
	return image.Point{X: p.X, Y: p.Y}
}

// RGB is a color triple used for bar reading.
type RGB struct {
	R uint8 `yaml:"r"`
	G uint8 `yaml:"g"`
	B uint8 `yaml:"b"`
}
