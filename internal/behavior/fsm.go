package behavior

import (
	"image"
	"math/rand"
	"time"

	"github.com/ConserveLee/huntbot/internal/config"
)

// State is the agent's current mode. Exactly one is active; only the
// machine's Decide mutates it.
type State int

const (
	StatePatrol State = iota
	StateCombat
	StateFlee
	StateRest
)

func (s State) String() string {
	switch s {
	case StatePatrol:
		return "Patrol"
	case StateCombat:
		return "Combat"
	case StateFlee:
		return "Flee"
	case StateRest:
		return "Rest"
	default:
		return "Invalid"
	}
}

func (s State) valid() bool {
	return s >= StatePatrol && s <= StateRest
}

// IntentKind tags the action variant carried by an Intent.
type IntentKind int

const (
	IntentNone IntentKind = iota
	IntentMove
	IntentClick
	IntentKey
	IntentCombo
)

func (k IntentKind) String() string {
	switch k {
	case IntentNone:
		return "none"
	case IntentMove:
		return "move"
	case IntentClick:
		return "click"
	case IntentKey:
		return "key"
	case IntentCombo:
		return "combo"
	default:
		return "unknown"
	}
}

// Intent is the single action the machine wants executed this cycle.
// Point is in frame coordinates; the loop translates to screen space.
type Intent struct {
	Kind    IntentKind
	Point   image.Point
	Urgency float64
	Button  string
	Key     string
	Keys    []string
	Context string
}

func noIntent() Intent {
	return Intent{Kind: IntentNone}
}

func moveIntent(p image.Point, urgency float64) Intent {
	return Intent{Kind: IntentMove, Point: p, Urgency: urgency, Context: config.ContextNavigation}
}

func clickIntent(p image.Point, urgency float64) Intent {
	return Intent{Kind: IntentClick, Point: p, Urgency: urgency, Button: "left", Context: config.ContextCombat}
}

func keyIntent(key, context string) Intent {
	return Intent{Kind: IntentKey, Key: key, Context: context}
}

func comboIntent(keys []string, context string) Intent {
	return Intent{Kind: IntentCombo, Keys: keys, Context: context}
}

// MachineConfig is the slice of the profile the state machine needs.
type MachineConfig struct {
	Width          int
	Height         int
	Aggressiveness float64
	Combat         config.CombatConfig
	Flee           config.FleeConfig
	Rest           config.RestConfig
}

// Machine holds the behavior state and decides one action per cycle.
// It is owned by the decision task; nothing here is safe for concurrent
// use and nothing needs to be.
type Machine struct {
	state      State
	cfg        MachineConfig
	mem        *Memory
	rng        *rand.Rand
	now        func() time.Time
	stateSince time.Time

	lostCycles  int
	openerFired bool
	faults      uint64

	// FaultFunc is called when an invalid state forces recovery.
	FaultFunc func(State)
}

// NewMachine starts in Patrol.
func NewMachine(cfg MachineConfig, mem *Memory, rng *rand.Rand) *Machine {
	m := &Machine{
		state: StatePatrol,
		cfg:   cfg,
		mem:   mem,
		rng:   rng,
		now:   time.Now,
	}
	m.stateSince = m.now()
	return m
}

// State returns the active behavior state.
func (m *Machine) State() State {
	return m.state
}

// Faults reports how many invalid-state recoveries have happened.
func (m *Machine) Faults() uint64 {
	return m.faults
}

// ForceState overrides the current state. Exists for recovery paths and
// for exercising the fail-safe.
func (m *Machine) ForceState(s State) {
	m.state = s
	m.stateSince = m.now()
}

// Decide maps (state, candidates, vitals) to the next state and one
// intent. Candidates must already be sorted best-first. An invalid
// current state is a fault: the machine recovers to Patrol instead of
// propagating.
func (m *Machine) Decide(cands []Candidate, v Vitals) (State, Intent) {
	if !m.state.valid() {
		m.faults++
		if m.FaultFunc != nil {
			m.FaultFunc(m.state)
		}
		m.transition(StatePatrol)
	}

	switch m.state {
	case StatePatrol:
		return m.patrol(cands, v)
	case StateCombat:
		return m.combat(cands, v)
	case StateFlee:
		return m.flee(v)
	default:
		return m.rest(v)
	}
}

func (m *Machine) patrol(cands []Candidate, v Vitals) (State, Intent) {
	if _, ok := m.eligible(cands); ok && !m.danger(v) {
		m.transition(StateCombat)
		m.lostCycles = 0
		return m.combat(cands, v)
	}
	return StatePatrol, moveIntent(m.wanderPoint(), m.patrolUrgency())
}

func (m *Machine) combat(cands []Candidate, v Vitals) (State, Intent) {
	if m.danger(v) {
		m.transition(StateFlee)
		return StateFlee, m.fleeIntent()
	}

	best, ok := m.eligible(cands)
	if !ok {
		m.lostCycles++
		if m.lostCycles < m.cfg.Combat.LostTargetCycles {
			return StateCombat, noIntent()
		}
		if v.UnderThreat {
			m.transition(StateFlee)
			return StateFlee, m.fleeIntent()
		}
		if v.Resource < m.cfg.Rest.ResourceFraction {
			m.transition(StateRest)
			return StateRest, m.restIntent()
		}
		m.transition(StatePatrol)
		return StatePatrol, moveIntent(m.wanderPoint(), m.patrolUrgency())
	}

	m.lostCycles = 0
	target := best.Match.Center()
	repeat, blacklisted := m.mem.Engage(target)
	if blacklisted {
		// Spot just got written off; re-pick next cycle.
		return StateCombat, noIntent()
	}

	if !repeat {
		m.openerFired = false
		return StateCombat, clickIntent(target, m.combatUrgency())
	}
	if !m.openerFired && len(m.cfg.Combat.Opener) > 0 {
		m.openerFired = true
		return StateCombat, comboIntent(m.cfg.Combat.Opener, config.ContextCombat)
	}
	if m.cfg.Combat.AttackKey != "" {
		return StateCombat, keyIntent(m.cfg.Combat.AttackKey, config.ContextCombat)
	}
	return StateCombat, clickIntent(target, m.combatUrgency())
}

func (m *Machine) flee(v Vitals) (State, Intent) {
	recovered := v.Health >= m.cfg.Flee.RecoverFraction && !v.UnderThreat
	if recovered || m.elapsed(m.cfg.Flee.Timeout.Std()) {
		m.transition(StatePatrol)
		return StatePatrol, moveIntent(m.wanderPoint(), m.patrolUrgency())
	}
	if v.UnderThreat {
		return StateFlee, m.fleeIntent()
	}
	return StateFlee, noIntent()
}

func (m *Machine) rest(v Vitals) (State, Intent) {
	recovered := v.Resource >= m.cfg.Rest.RecoverFraction
	if recovered || m.elapsed(m.cfg.Rest.Timeout.Std()) {
		m.transition(StatePatrol)
		return StatePatrol, moveIntent(m.wanderPoint(), m.patrolUrgency())
	}
	return StateRest, noIntent()
}

// eligible returns the best candidate whose spot is not blacklisted.
func (m *Machine) eligible(cands []Candidate) (Candidate, bool) {
	for _, c := range cands {
		if !m.mem.Blacklisted(c.Match.Center()) {
			return c, true
		}
	}
	return Candidate{}, false
}

// danger is the health-proxy flee condition. Threat alone does not force
// an escape while a valid target remains.
func (m *Machine) danger(v Vitals) bool {
	return v.Health < m.cfg.Flee.HealthFraction
}

func (m *Machine) transition(s State) {
	m.state = s
	m.stateSince = m.now()
	m.openerFired = false
}

func (m *Machine) elapsed(d time.Duration) bool {
	return d > 0 && m.now().Sub(m.stateSince) >= d
}

func (m *Machine) fleeIntent() Intent {
	if m.cfg.Flee.Key != "" {
		return keyIntent(m.cfg.Flee.Key, config.ContextFlee)
	}
	return moveIntent(m.wanderPoint(), 1.0)
}

func (m *Machine) restIntent() Intent {
	if m.cfg.Rest.Key != "" {
		return keyIntent(m.cfg.Rest.Key, config.ContextRecovery)
	}
	return noIntent()
}

// wanderPoint picks a patrol destination inside the central part of the
// frame, away from edges where UI chrome tends to live.
func (m *Machine) wanderPoint() image.Point {
	mx := m.cfg.Width / 10
	my := m.cfg.Height / 10
	return image.Point{
		X: mx + m.rng.Intn(m.cfg.Width-2*mx),
		Y: my + m.rng.Intn(m.cfg.Height-2*my),
	}
}

func (m *Machine) patrolUrgency() float64 {
	return 0.15 + 0.2*m.rng.Float64()
}

func (m *Machine) combatUrgency() float64 {
	return 0.5 + 0.5*m.cfg.Aggressiveness
}
