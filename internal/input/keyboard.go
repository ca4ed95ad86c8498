package input

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/ConserveLee/huntbot/internal/config"
)

// ErrCooldownBlocked reports a press skipped because the key's cooldown
// has not elapsed. Skipped presses are never queued.
var ErrCooldownBlocked = errors.New("key on cooldown")

const (
	holdMin = 25 * time.Millisecond
	holdMax = 90 * time.Millisecond
)

// CooldownTable tracks the earliest allowed next press per key.
type CooldownTable struct {
	next map[string]time.Time
}

func NewCooldownTable() *CooldownTable {
	return &CooldownTable{next: make(map[string]time.Time)}
}

// Ready reports whether key may fire at the given time. Keys without an
// armed cooldown are always ready.
func (t *CooldownTable) Ready(key string, now time.Time) bool {
	return !now.Before(t.next[key])
}

// Remaining returns the time until key is ready again, zero when ready.
func (t *CooldownTable) Remaining(key string, now time.Time) time.Duration {
	if r := t.next[key].Sub(now); r > 0 {
		return r
	}
	return 0
}

// Record arms the cooldown after a successful press.
func (t *CooldownTable) Record(key string, cooldown time.Duration, now time.Time) {
	if cooldown > 0 {
		t.next[key] = now.Add(cooldown)
	}
}

// Reset clears every armed cooldown.
func (t *CooldownTable) Reset() {
	t.next = make(map[string]time.Time)
}

// Keyboard fires single presses and ordered combos with humanized hold
// times, per-context delays and per-key cooldowns. Owned by the
// decision task.
type Keyboard struct {
	inj       Injector
	cooldowns map[string]time.Duration
	delays    map[string]config.Range
	table     *CooldownTable
	rng       *rand.Rand
	sleep     func(time.Duration)
	now       func() time.Time

	// BlockFunc observes presses skipped by an armed cooldown.
	BlockFunc func(key string, remaining time.Duration)
}

func NewKeyboard(inj Injector, cooldowns map[string]time.Duration, delays map[string]config.Range, rng *rand.Rand) *Keyboard {
	return &Keyboard{
		inj:       inj,
		cooldowns: cooldowns,
		delays:    delays,
		table:     NewCooldownTable(),
		rng:       rng,
		sleep:     time.Sleep,
		now:       time.Now,
	}
}

// Press taps key once. A press inside the key's cooldown window returns
// ErrCooldownBlocked without touching the device.
func (k *Keyboard) Press(key, context string) error {
	now := k.now()
	if !k.table.Ready(key, now) {
		remaining := k.table.Remaining(key, now)
		if k.BlockFunc != nil {
			k.BlockFunc(key, remaining)
		}
		return fmt.Errorf("%w: %q ready in %s", ErrCooldownBlocked, key, remaining.Round(time.Millisecond))
	}

	if d := sampleDelay(k.delays, context, k.rng); d > 0 {
		k.sleep(d)
	}
	if err := k.inj.KeyDown(key); err != nil {
		return fmt.Errorf("key down %q: %w", key, err)
	}
	k.sleep(k.holdTime())
	if err := k.inj.KeyUp(key); err != nil {
		return fmt.Errorf("key up %q: %w", key, err)
	}
	k.table.Record(key, k.cooldowns[key], k.now())
	return nil
}

// PressCombo fires keys strictly in order. A blocked or failed key
// aborts the remainder of the sequence.
func (k *Keyboard) PressCombo(keys []string, context string) error {
	for i, key := range keys {
		if err := k.Press(key, context); err != nil {
			return fmt.Errorf("combo %d/%d: %w", i+1, len(keys), err)
		}
	}
	return nil
}

// Cooldowns exposes the table for status reporting.
func (k *Keyboard) Cooldowns() *CooldownTable {
	return k.table
}

func (k *Keyboard) holdTime() time.Duration {
	return holdMin + time.Duration(k.rng.Int63n(int64(holdMax-holdMin)))
}
