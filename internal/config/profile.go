package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Delay contexts understood by the actuation layer.
const (
	ContextCombat     = "combat"
	ContextNavigation = "navigation"
	ContextRecovery   = "recovery"
	ContextFlee       = "flee"
)

// AdaptiveConfig tunes the per-entity detection threshold schedule.
// After every MissWindow consecutive cycles without a hit the threshold
// drops by DecayStep, never more than MaxDrop below the base and never
// below MinThreshold. Each hit raises it by RecoverStep back toward base.
type AdaptiveConfig struct {
	MissWindow   int     `yaml:"miss_window"`
	DecayStep    float64 `yaml:"decay_step"`
	MaxDrop      float64 `yaml:"max_drop"`
	RecoverStep  float64 `yaml:"recover_step"`
	MinThreshold float64 `yaml:"min_threshold"`
}

// CombatConfig describes how targets are engaged.
type CombatConfig struct {
	AttackKey        string   `yaml:"attack_key"`
	Opener           []string `yaml:"opener"`
	LostTargetCycles int      `yaml:"lost_target_cycles"`
}

// FleeConfig describes the escape behavior.
type FleeConfig struct {
	Key             string   `yaml:"key"`
	HealthFraction  float64  `yaml:"health_fraction"`
	RecoverFraction float64  `yaml:"recover_fraction"`
	Timeout         Duration `yaml:"timeout"`
}

// RestConfig describes the recovery behavior.
type RestConfig struct {
	Key              string   `yaml:"key"`
	ResourceFraction float64  `yaml:"resource_fraction"`
	RecoverFraction  float64  `yaml:"recover_fraction"`
	Timeout          Duration `yaml:"timeout"`
}

// MemoryConfig tunes the engagement memory (spot tracking/blacklist).
type MemoryConfig struct {
	Quantum        int      `yaml:"quantum"`
	MaxEngagements int      `yaml:"max_engagements"`
	TTL            Duration `yaml:"ttl"`
	BlacklistTTL   Duration `yaml:"blacklist_ttl"`
}

// VitalsConfig selects how health/resource signals are obtained.
// Mode "static" reports full vitals; mode "bars" samples the configured
// bar rectangles (frame coordinates) for their fill fraction.
type VitalsConfig struct {
	Mode           string  `yaml:"mode"`
	HealthBar      Region  `yaml:"health_bar"`
	ResourceBar    Region  `yaml:"resource_bar"`
	HealthColor    RGB     `yaml:"health_color"`
	ResourceColor  RGB     `yaml:"resource_color"`
	ColorTolerance float64 `yaml:"color_tolerance"`
}

// Profile is the validated behavior configuration handed to the core.
// The core trusts it after Validate; it never re-validates.
type Profile struct {
	Region           Region              `yaml:"region"`
	CaptureFPS       int                 `yaml:"capture_fps"`
	CheckInterval    Duration            `yaml:"check_interval"`
	Priorities       []string            `yaml:"priorities"`
	Aggressiveness   float64             `yaml:"aggressiveness"`
	Reference        *Point              `yaml:"reference"`
	DefaultThreshold float64             `yaml:"default_threshold"`
	Thresholds       map[string]float64  `yaml:"thresholds"`
	Adaptive         AdaptiveConfig      `yaml:"adaptive"`
	Delays           map[string]Range    `yaml:"delays"`
	Cooldowns        map[string]Duration `yaml:"cooldowns"`
	Combat           CombatConfig        `yaml:"combat"`
	Flee             FleeConfig          `yaml:"flee"`
	Rest             RestConfig          `yaml:"rest"`
	Memory           MemoryConfig        `yaml:"memory"`
	Vitals           VitalsConfig        `yaml:"vitals"`
}

// Default returns a profile with workable defaults for everything except
// the capture region and priority list, which callers must supply.
func Default() *Profile {
	return &Profile{
		CaptureFPS:       20,
		CheckInterval:    Duration(500 * time.Millisecond),
		Aggressiveness:   0.5,
		DefaultThreshold: 0.80,
		Adaptive: AdaptiveConfig{
			MissWindow:   12,
			DecayStep:    0.02,
			MaxDrop:      0.10,
			RecoverStep:  0.05,
			MinThreshold: 0.50,
		},
		Delays: map[string]Range{
			ContextCombat:     {Min: 80 * time.Millisecond, Max: 220 * time.Millisecond},
			ContextNavigation: {Min: 150 * time.Millisecond, Max: 400 * time.Millisecond},
			ContextRecovery:   {Min: 300 * time.Millisecond, Max: 800 * time.Millisecond},
			ContextFlee:       {Min: 40 * time.Millisecond, Max: 120 * time.Millisecond},
		},
		Combat: CombatConfig{
			LostTargetCycles: 5,
		},
		Flee: FleeConfig{
			HealthFraction:  0.25,
			RecoverFraction: 0.60,
			Timeout:         Duration(8 * time.Second),
		},
		Rest: RestConfig{
			ResourceFraction: 0.30,
			RecoverFraction:  0.85,
			Timeout:          Duration(45 * time.Second),
		},
		Memory: MemoryConfig{
			Quantum:        20,
			MaxEngagements: 6,
			TTL:            Duration(2 * time.Second),
			BlacklistTTL:   Duration(30 * time.Second),
		},
		Vitals: VitalsConfig{
			Mode:           "static",
			ColorTolerance: 60,
		},
	}
}

// LoadProfile reads a YAML profile over the defaults and validates it.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

// ReferencePoint returns the proximity reference in frame coordinates,
// defaulting to the center of the capture region. The character usually
// sits there.
func (p *Profile) ReferencePoint() (x, y int) {
	if p.Reference != nil {
		return p.Reference.X, p.Reference.Y
	}
	return p.Region.W / 2, p.Region.H / 2
}

// Validate checks every invariant once at the boundary.
func (p *Profile) Validate() error {
	if p.Region.Empty() {
		return fmt.Errorf("region must have positive width and height, got %dx%d", p.Region.W, p.Region.H)
	}
	if p.CaptureFPS < 15 || p.CaptureFPS > 30 {
		return fmt.Errorf("capture_fps must be within [15,30], got %d", p.CaptureFPS)
	}
	if p.CheckInterval.Std() <= 0 {
		return fmt.Errorf("check_interval must be positive, got %s", p.CheckInterval.Std())
	}
	if p.Aggressiveness < 0 || p.Aggressiveness > 1 {
		return fmt.Errorf("aggressiveness must be within [0,1], got %g", p.Aggressiveness)
	}
	if p.DefaultThreshold <= 0 || p.DefaultThreshold > 1 {
		return fmt.Errorf("default_threshold must be within (0,1], got %g", p.DefaultThreshold)
	}
	for name, thr := range p.Thresholds {
		if thr <= 0 || thr > 1 {
			return fmt.Errorf("threshold for %q must be within (0,1], got %g", name, thr)
		}
	}
	a := p.Adaptive
	if a.MissWindow < 1 {
		return fmt.Errorf("adaptive.miss_window must be at least 1, got %d", a.MissWindow)
	}
	if a.DecayStep < 0 || a.RecoverStep < 0 || a.MaxDrop < 0 {
		return fmt.Errorf("adaptive steps must be non-negative")
	}
	if a.MinThreshold <= 0 || a.MinThreshold > 1 {
		return fmt.Errorf("adaptive.min_threshold must be within (0,1], got %g", a.MinThreshold)
	}
	for ctx, r := range p.Delays {
		if !r.valid() {
			return fmt.Errorf("delay range for context %q must satisfy 0 <= min <= max, got [%s,%s]", ctx, r.Min, r.Max)
		}
	}
	for key, cd := range p.Cooldowns {
		if cd.Std() < 0 {
			return fmt.Errorf("cooldown for key %q must be non-negative, got %s", key, cd.Std())
		}
	}
	if p.Combat.LostTargetCycles < 1 {
		return fmt.Errorf("combat.lost_target_cycles must be at least 1, got %d", p.Combat.LostTargetCycles)
	}
	if err := validateFraction("flee.health_fraction", p.Flee.HealthFraction); err != nil {
		return err
	}
	if err := validateFraction("flee.recover_fraction", p.Flee.RecoverFraction); err != nil {
		return err
	}
	if err := validateFraction("rest.resource_fraction", p.Rest.ResourceFraction); err != nil {
		return err
	}
	if err := validateFraction("rest.recover_fraction", p.Rest.RecoverFraction); err != nil {
		return err
	}
	if p.Memory.Quantum < 1 {
		return fmt.Errorf("memory.quantum must be at least 1, got %d", p.Memory.Quantum)
	}
	if p.Memory.MaxEngagements < 1 {
		return fmt.Errorf("memory.max_engagements must be at least 1, got %d", p.Memory.MaxEngagements)
	}
	switch p.Vitals.Mode {
	case "static", "bars":
	default:
		return fmt.Errorf("vitals.mode must be \"static\" or \"bars\", got %q", p.Vitals.Mode)
	}
	if p.Vitals.Mode == "bars" {
		if p.Vitals.HealthBar.Empty() {
			return fmt.Errorf("vitals.health_bar must be set in bars mode")
		}
	}
	return nil
}

func validateFraction(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s must be within [0,1], got %g", name, v)
	}
	return nil
}
