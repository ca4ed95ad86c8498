package behavior

import (
	"image"
	"math"
	"sort"

	"github.com/ConserveLee/huntbot/internal/vision"
)

// Weight of one priority-list step. Proximity can contribute at most
// proximityBase+proximitySpan, so at full aggressiveness a very close
// target can outweigh exactly one rank step.
const (
	rankUnit       = 2.0
	proximityBase  = 0.5
	proximitySpan  = 1.5
	proximityScale = 200.0
)

// Candidate wraps a detection match with its computed priority score.
type Candidate struct {
	Match    vision.Match
	Rank     int // position in the priority list, -1 when absent
	Distance float64
	Score    float64
}

// Prioritize ranks matches best-first. Entities absent from the priority
// list score lowest but stay in the result so the state machine can still
// see them. An empty match set returns an empty candidate set.
func Prioritize(matches []vision.Match, priorities []string, ref image.Point, aggressiveness float64) []Candidate {
	if len(matches) == 0 {
		return nil
	}

	proximityWeight := proximityBase + proximitySpan*aggressiveness

	cands := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		rank := rankOf(m.Entity, priorities)
		dist := distance(m.Center(), ref)

		rankWeight := 0.0
		if rank >= 0 {
			rankWeight = float64(len(priorities) - rank)
		}
		proximity := 1.0 / (1.0 + dist/proximityScale)

		cands = append(cands, Candidate{
			Match:    m,
			Rank:     rank,
			Distance: dist,
			Score:    rankUnit*rankWeight + proximityWeight*proximity,
		})
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		if cands[i].Match.Confidence != cands[j].Match.Confidence {
			return cands[i].Match.Confidence > cands[j].Match.Confidence
		}
		if cands[i].Match.Entity != cands[j].Match.Entity {
			return cands[i].Match.Entity < cands[j].Match.Entity
		}
		return cands[i].Match.X < cands[j].Match.X
	})

	return cands
}

func rankOf(name string, priorities []string) int {
	for i, p := range priorities {
		if p == name {
			return i
		}
	}
	return -1
}

func distance(a, b image.Point) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}
