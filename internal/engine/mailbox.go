package engine

import (
	"sync"

	"github.com/ConserveLee/huntbot/internal/capture"
)

// MailboxStats is a snapshot of handoff counters.
type MailboxStats struct {
	Published uint64
	Dropped   uint64
	Reused    uint64
}

// Mailbox is the single-slot frame handoff between the capture task and
// the decision task. Publishing overwrites any unconsumed frame, so the
// decision side always observes the freshest capture and the capture
// side never blocks.
type Mailbox struct {
	mu        sync.Mutex
	frame     *capture.Frame
	consumed  bool
	published uint64
	dropped   uint64
	reused    uint64
}

func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Publish stores f, replacing any frame still waiting. The replaced
// frame counts as dropped.
func (m *Mailbox) Publish(f *capture.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frame != nil && !m.consumed {
		m.dropped++
	}
	m.frame = f
	m.consumed = false
	m.published++
}

// Latest returns the newest frame, or nil when nothing has been
// published yet. fresh is false when the same frame was already handed
// out; the caller may still use it as the best available observation.
func (m *Mailbox) Latest() (f *capture.Frame, fresh bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frame == nil {
		return nil, false
	}
	fresh = !m.consumed
	if !fresh {
		m.reused++
	}
	m.consumed = true
	return m.frame, fresh
}

// Stats returns a snapshot of the handoff counters.
func (m *Mailbox) Stats() MailboxStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MailboxStats{Published: m.published, Dropped: m.dropped, Reused: m.reused}
}
