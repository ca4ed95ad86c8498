package behavior

import (
	"image"
	"strconv"
	"time"

	"github.com/ConserveLee/huntbot/internal/config"
)

type spot struct {
	engagements int
	lastSeen    time.Time
}

// Memory remembers recently engaged target spots so the bot stops
// hammering a position that never dies or never reacts. Positions are
// quantized to a grid so a slightly moved sprite still counts as the
// same spot. A spot engaged too many times is blacklisted for a while.
//
// Memory is owned by the decision task and needs no locking.
type Memory struct {
	quantum        int
	maxEngagements int
	ttl            time.Duration
	blacklistTTL   time.Duration

	spots     map[string]*spot
	blacklist map[string]time.Time
	last      string

	now func() time.Time
}

func NewMemory(cfg config.MemoryConfig) *Memory {
	return &Memory{
		quantum:        cfg.Quantum,
		maxEngagements: cfg.MaxEngagements,
		ttl:            cfg.TTL.Std(),
		blacklistTTL:   cfg.BlacklistTTL.Std(),
		spots:          make(map[string]*spot),
		blacklist:      make(map[string]time.Time),
		now:            time.Now,
	}
}

// Engage records that the bot acted on the given spot. repeat is true
// when it is the same spot as the previous engagement; blacklisted is
// true when this engagement pushed the spot over the limit.
func (m *Memory) Engage(p image.Point) (repeat bool, blacklisted bool) {
	m.sweep()

	key := m.key(p)
	repeat = key == m.last
	m.last = key

	s, ok := m.spots[key]
	if !ok {
		s = &spot{}
		m.spots[key] = s
	}
	s.engagements++
	s.lastSeen = m.now()

	if s.engagements >= m.maxEngagements {
		m.blacklist[key] = m.now()
		delete(m.spots, key)
		return repeat, true
	}
	return repeat, false
}

// Blacklisted reports whether a spot is currently on the blacklist.
func (m *Memory) Blacklisted(p image.Point) bool {
	m.sweep()
	_, ok := m.blacklist[m.key(p)]
	return ok
}

// Reset clears everything, for a fresh hunting cycle.
func (m *Memory) Reset() {
	m.spots = make(map[string]*spot)
	m.blacklist = make(map[string]time.Time)
	m.last = ""
}

// key quantizes a position so small sprite movement maps to the same
// spot.
func (m *Memory) key(p image.Point) string {
	qx := (p.X / m.quantum) * m.quantum
	qy := (p.Y / m.quantum) * m.quantum
	return strconv.Itoa(qx) + "_" + strconv.Itoa(qy)
}

// sweep drops spots not seen within the TTL and expired blacklist
// entries.
func (m *Memory) sweep() {
	now := m.now()
	for key, s := range m.spots {
		if now.Sub(s.lastSeen) > m.ttl {
			delete(m.spots, key)
		}
	}
	for key, at := range m.blacklist {
		if now.Sub(at) > m.blacklistTTL {
			delete(m.blacklist, key)
		}
	}
}
