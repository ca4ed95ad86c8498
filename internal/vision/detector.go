package vision

import (
	"image"
	"sort"
	"time"

	"github.com/ConserveLee/huntbot/internal/capture"
	"github.com/ConserveLee/huntbot/internal/config"
)

// Two boxes of the same entity overlapping beyond this ratio describe
// the same occurrence; suppression keeps the better one.
const overlapRatio = 0.3

// Match is one detected entity occurrence in frame coordinates.
type Match struct {
	Entity     string
	X, Y, W, H int
	Confidence float64
	FrameTime  time.Time
}

// Center returns the middle of the bounding box, the point actuation
// aims at.
func (m Match) Center() image.Point {
	return image.Point{X: m.X + m.W/2, Y: m.Y + m.H/2}
}

func (m Match) rect() image.Rectangle {
	return image.Rect(m.X, m.Y, m.X+m.W, m.Y+m.H)
}

// Detector matches the library against frames, holding the per-entity
// adaptive thresholds between cycles. It belongs to the decision task
// and is not safe for concurrent use.
type Detector struct {
	lib     *Library
	cfg     config.AdaptiveConfig
	current map[string]float64
	misses  map[string]int
}

// NewDetector starts every entity at its base threshold.
func NewDetector(lib *Library, cfg config.AdaptiveConfig) *Detector {
	d := &Detector{
		lib:     lib,
		cfg:     cfg,
		current: make(map[string]float64, lib.Len()),
		misses:  make(map[string]int, lib.Len()),
	}
	for _, name := range lib.Names() {
		entry, _ := lib.Get(name)
		d.current[name] = entry.Threshold
	}
	return d
}

// Detect returns every match above the current thresholds, suppressed
// per entity and ordered by descending confidence with ties broken by
// entity name then x. Identical frame, templates and threshold state
// always produce the identical result.
func (d *Detector) Detect(f *capture.Frame) []Match {
	gray := toGray(f.Pixels)

	var out []Match
	for _, name := range d.lib.Names() {
		entry, _ := d.lib.Get(name)
		threshold := d.current[name]

		var cands []candidate
		for _, v := range entry.Variants {
			cands = append(cands, matchVariantAll(gray, v, threshold)...)
		}

		kept := suppress(cands)
		if len(kept) > 0 {
			d.recordHit(name, entry.Threshold)
		} else {
			d.recordMiss(name, entry.Threshold)
		}

		for _, c := range kept {
			out = append(out, Match{
				Entity:     name,
				X:          c.X,
				Y:          c.Y,
				W:          c.W,
				H:          c.H,
				Confidence: c.Confidence,
				FrameTime:  f.CapturedAt,
			})
		}
	}

	sortMatches(out)
	return out
}

// Threshold exposes the current adaptive threshold for an entity.
func (d *Detector) Threshold(name string) float64 {
	return d.current[name]
}

// ResetThresholds puts every entity back at its base threshold.
func (d *Detector) ResetThresholds() {
	for _, name := range d.lib.Names() {
		entry, _ := d.lib.Get(name)
		d.current[name] = entry.Threshold
		d.misses[name] = 0
	}
}

// recordHit raises the threshold back toward base, one recovery step per
// hit cycle, and clears the miss streak.
func (d *Detector) recordHit(name string, base float64) {
	d.misses[name] = 0
	next := d.current[name] + d.cfg.RecoverStep
	if next > base {
		next = base
	}
	d.current[name] = next
}

// recordMiss lowers the threshold by one decay step after every full
// window of consecutive misses, bounded by the configured drop and the
// absolute floor.
func (d *Detector) recordMiss(name string, base float64) {
	d.misses[name]++
	if d.misses[name] < d.cfg.MissWindow {
		return
	}
	d.misses[name] = 0

	floor := base - d.cfg.MaxDrop
	if floor < d.cfg.MinThreshold {
		floor = d.cfg.MinThreshold
	}
	next := d.current[name] - d.cfg.DecayStep
	if next < floor {
		next = floor
	}
	d.current[name] = next
}

// suppress collapses overlapping candidates of one entity, keeping the
// highest-confidence box of each cluster. Candidates are considered in a
// deterministic order so equal inputs give equal outputs.
func suppress(cands []candidate) []candidate {
	if len(cands) <= 1 {
		return cands
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Confidence != cands[j].Confidence {
			return cands[i].Confidence > cands[j].Confidence
		}
		if cands[i].X != cands[j].X {
			return cands[i].X < cands[j].X
		}
		return cands[i].Y < cands[j].Y
	})

	var kept []candidate
	for _, c := range cands {
		overlapped := false
		for _, k := range kept {
			if overlaps(c, k) {
				overlapped = true
				break
			}
		}
		if !overlapped {
			kept = append(kept, c)
		}
	}
	return kept
}

// overlaps reports whether two boxes intersect beyond overlapRatio of
// the smaller box.
func overlaps(a, b candidate) bool {
	ra := image.Rect(a.X, a.Y, a.X+a.W, a.Y+a.H)
	rb := image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
	inter := ra.Intersect(rb)
	if inter.Empty() {
		return false
	}

	interArea := float64(inter.Dx() * inter.Dy())
	areaA := float64(a.W * a.H)
	areaB := float64(b.W * b.H)
	smaller := areaA
	if areaB < smaller {
		smaller = areaB
	}
	if smaller <= 0 {
		return false
	}
	return interArea/smaller > overlapRatio
}

func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		if matches[i].Entity != matches[j].Entity {
			return matches[i].Entity < matches[j].Entity
		}
		return matches[i].X < matches[j].X
	})
}
