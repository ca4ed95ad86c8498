package engine

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ConserveLee/huntbot/internal/behavior"
	"github.com/ConserveLee/huntbot/internal/capture"
	"github.com/ConserveLee/huntbot/internal/config"
	"github.com/ConserveLee/huntbot/internal/events"
	"github.com/ConserveLee/huntbot/internal/input"
	"github.com/ConserveLee/huntbot/internal/logger"
	"github.com/ConserveLee/huntbot/internal/vision"
)

// Status represents the lifecycle state of the bot.
type Status int

const (
	StatusStopped Status = iota
	StatusRunning
)

const (
	// Wait before retrying after the backend reports itself unusable.
	captureRetryWait = 500 * time.Millisecond

	// Decision retry cadence while no frame has arrived yet.
	noFrameWait = 100 * time.Millisecond
)

// Options wires the bot. Profile, Source, Library and Injector are
// required; everything else defaults to a workable implementation.
type Options struct {
	Profile  *config.Profile
	Source   *capture.Source
	Library  *vision.Library
	Injector input.Injector
	Vitals   behavior.Provider
	Events   events.Sink
	Log      *slog.Logger
	Rand     *rand.Rand
}

// Stats is a snapshot of loop counters.
type Stats struct {
	Cycles  uint64
	Actions uint64
	Faults  uint64
	State   behavior.State
	Capture capture.Stats
	Mailbox MailboxStats
}

// Bot runs two tasks over a single-slot frame handoff: the capture task
// paces the source and publishes frames, the decision task detects,
// decides and actuates on its own cadence.
type Bot struct {
	status Status

	profile  *config.Profile
	source   *capture.Source
	library  *vision.Library
	detector *vision.Detector
	machine  *behavior.Machine
	memory   *behavior.Memory
	vitals   behavior.Provider
	mouse    *input.Mouse
	keyboard *input.Keyboard
	events   events.Sink
	log      *slog.Logger

	mailbox  *Mailbox
	interval time.Duration
	ref      image.Point

	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex

	cycles  atomic.Uint64
	actions atomic.Uint64
	faults  atomic.Uint64
	state   atomic.Int64
}

// New assembles a bot from a validated profile and an opened source.
func New(opts Options) (*Bot, error) {
	if opts.Profile == nil {
		return nil, fmt.Errorf("engine: profile is required")
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("engine: capture source is required")
	}
	if opts.Library == nil {
		return nil, fmt.Errorf("engine: template library is required")
	}
	if opts.Injector == nil {
		return nil, fmt.Errorf("engine: input injector is required")
	}
	if opts.Events == nil {
		opts.Events = events.Discard
	}
	if opts.Log == nil {
		opts.Log = logger.For("engine")
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Vitals == nil {
		opts.Vitals = behavior.FullVitals()
	}

	p := opts.Profile
	mem := behavior.NewMemory(p.Memory)
	machine := behavior.NewMachine(behavior.MachineConfig{
		Width:          p.Region.W,
		Height:         p.Region.H,
		Aggressiveness: p.Aggressiveness,
		Combat:         p.Combat,
		Flee:           p.Flee,
		Rest:           p.Rest,
	}, mem, opts.Rand)

	rx, ry := p.ReferencePoint()

	b := &Bot{
		profile:  p,
		source:   opts.Source,
		library:  opts.Library,
		detector: vision.NewDetector(opts.Library, p.Adaptive),
		machine:  machine,
		memory:   mem,
		vitals:   opts.Vitals,
		mouse:    input.NewMouse(opts.Injector, p.Region.Rect(), p.Delays, opts.Rand),
		keyboard: input.NewKeyboard(opts.Injector, cooldownDurations(p.Cooldowns), p.Delays, opts.Rand),
		events:   opts.Events,
		log:      opts.Log,
		mailbox:  NewMailbox(),
		interval: p.CheckInterval.Std(),
		ref:      image.Pt(rx, ry),
		stopChan: make(chan struct{}),
	}
	b.state.Store(int64(behavior.StatePatrol))

	machine.FaultFunc = func(s behavior.State) {
		b.faults.Add(1)
		b.log.Warn("invalid behavior state, recovering to patrol", "state", int(s))
		b.events.Emit(events.New(events.TypeStateFault, "engine", map[string]interface{}{
			"state": int(s),
		}))
	}
	b.mouse.ClampFunc = func(requested, clamped image.Point) {
		b.events.Emit(events.New(events.TypeActuationClamped, "input", map[string]interface{}{
			"requested": requested.String(),
			"clamped":   clamped.String(),
		}))
	}
	b.keyboard.BlockFunc = func(key string, remaining time.Duration) {
		b.events.Emit(events.New(events.TypeCooldownBlocked, "input", map[string]interface{}{
			"key":       key,
			"remaining": remaining.String(),
		}))
	}

	return b, nil
}

// Start launches the capture and decision tasks. Idempotent while
// running.
func (b *Bot) Start() {
	b.mu.Lock()
	if b.status == StatusRunning {
		b.mu.Unlock()
		return
	}
	b.status = StatusRunning
	b.stopChan = make(chan struct{}) // re-make for restart ability
	b.mu.Unlock()

	b.log.Info("bot started",
		"templates", b.library.Len(),
		"region", b.source.Region().String(),
		"interval", b.interval.String())
	b.events.Emit(events.New(events.TypeBotStarted, "engine", map[string]interface{}{
		"templates": b.library.Len(),
		"region":    b.source.Region().String(),
	}))

	b.wg.Add(2)
	go b.captureLoop()
	go b.decisionLoop()
}

// Stop signals both tasks and waits for them to finish.
func (b *Bot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status == StatusStopped {
		return
	}

	close(b.stopChan)
	b.wg.Wait()
	b.status = StatusStopped

	b.log.Info("bot stopped", "cycles", b.cycles.Load(), "actions", b.actions.Load())
	b.events.Emit(events.New(events.TypeBotStopped, "engine", map[string]interface{}{
		"cycles":  b.cycles.Load(),
		"actions": b.actions.Load(),
	}))
}

// Status returns the lifecycle state.
func (b *Bot) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Recalibrate requests a new capture region, applied before the next
// frame. Actuation clamping follows once frames carry the new origin.
func (b *Bot) Recalibrate(r image.Rectangle) {
	b.source.SetRegion(r)
	b.log.Info("recalibration requested", "region", r.String())
}

// Stats returns a snapshot of the bot counters.
func (b *Bot) Stats() Stats {
	return Stats{
		Cycles:  b.cycles.Load(),
		Actions: b.actions.Load(),
		Faults:  b.faults.Load(),
		State:   behavior.State(b.state.Load()),
		Capture: b.source.Stats(),
		Mailbox: b.mailbox.Stats(),
	}
}

// captureLoop publishes frames until stopped. Lost frames are skipped;
// an unusable backend is retried with a longer wait.
func (b *Bot) captureLoop() {
	defer b.wg.Done()

	for {
		select {
		case <-b.stopChan:
			return
		default:
		}

		f, err := b.source.Next()
		if err != nil {
			b.events.Emit(events.New(events.TypeCaptureError, "capture", map[string]interface{}{
				"err": err.Error(),
			}))
			if errors.Is(err, capture.ErrUnavailable) {
				b.log.Error("capture backend unusable, retrying", "err", err)
				select {
				case <-b.stopChan:
					return
				case <-time.After(captureRetryWait):
				}
				continue
			}
			b.log.Warn("frame lost", "err", err)
			continue
		}
		b.mailbox.Publish(f)
	}
}

// decisionLoop runs one cycle per tick; cycle returns the wait until
// the next one.
func (b *Bot) decisionLoop() {
	defer b.wg.Done()
	timer := time.NewTimer(0)

	for {
		select {
		case <-b.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			timer.Reset(b.cycle())
		}
	}
}

// cycle consumes the freshest frame, runs detection, prioritization and
// the state machine, then performs the chosen action.
func (b *Bot) cycle() time.Duration {
	frame, fresh := b.mailbox.Latest()
	if frame == nil {
		if b.interval < noFrameWait {
			return b.interval
		}
		return noFrameWait
	}

	start := time.Now()
	matches := b.detector.Detect(frame)
	cands := behavior.Prioritize(matches, b.profile.Priorities, b.ref, b.profile.Aggressiveness)
	vit := b.vitals.Read(frame)

	prev := b.machine.State()
	state, intent := b.machine.Decide(cands, vit)
	if state != prev {
		b.log.Info("state changed", "from", prev.String(), "to", state.String())
		b.events.Emit(events.New(events.TypeStateChanged, "engine", map[string]interface{}{
			"from": prev.String(),
			"to":   state.String(),
		}))
	}
	b.state.Store(int64(state))

	outcome, actTook := b.act(frame, intent)

	b.cycles.Add(1)
	b.events.Emit(events.New(events.TypeCycle, "engine", map[string]interface{}{
		"seq":     frame.Seq,
		"fresh":   fresh,
		"found":   len(matches),
		"matches": matchSummaries(matches),
		"state":   state.String(),
		"intent":  intent.Kind.String(),
		"outcome": outcome,
		"took":    time.Since(start).String(),
	}))

	// Long gestures eat into the interval so cycle starts keep cadence.
	wait := b.interval - actTook
	if wait < 0 {
		wait = 0
	}
	return wait
}

// act executes one intent, translating frame coordinates to screen
// coordinates. Returns the outcome label and the time the actuation
// spent. Cooldown blocks are expected and only logged.
func (b *Bot) act(f *capture.Frame, intent behavior.Intent) (string, time.Duration) {
	b.mouse.SetRegion(f.ScreenBounds())

	switch intent.Kind {
	case behavior.IntentMove:
		_, took := b.mouse.Move(f.ToScreen(intent.Point), intent.Urgency, intent.Context)
		b.actions.Add(1)
		return "moved", took
	case behavior.IntentClick:
		_, took := b.mouse.Click(f.ToScreen(intent.Point), intent.Urgency, intent.Button, intent.Context)
		b.actions.Add(1)
		return "clicked", took
	case behavior.IntentKey:
		start := time.Now()
		if err := b.keyboard.Press(intent.Key, intent.Context); err != nil {
			b.logActionSkip("key press", err)
			return skipOutcome(err), time.Since(start)
		}
		b.actions.Add(1)
		return "pressed", time.Since(start)
	case behavior.IntentCombo:
		start := time.Now()
		if err := b.keyboard.PressCombo(intent.Keys, intent.Context); err != nil {
			b.logActionSkip("combo", err)
			return skipOutcome(err), time.Since(start)
		}
		b.actions.Add(1)
		return "combo", time.Since(start)
	}
	return "idle", 0
}

func (b *Bot) logActionSkip(what string, err error) {
	if errors.Is(err, input.ErrCooldownBlocked) {
		b.log.Debug(what+" skipped", "err", err)
		return
	}
	b.log.Warn(what+" failed", "err", err)
}

func skipOutcome(err error) string {
	if errors.Is(err, input.ErrCooldownBlocked) {
		return "cooldown_blocked"
	}
	return "failed"
}

func matchSummaries(matches []vision.Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = fmt.Sprintf("%s@%d,%d %.2f", m.Entity, m.X, m.Y, m.Confidence)
	}
	return out
}

func cooldownDurations(src map[string]config.Duration) map[string]time.Duration {
	out := make(map[string]time.Duration, len(src))
	for k, v := range src {
		out[k] = v.Std()
	}
	return out
}
