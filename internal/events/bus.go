package events

import (
	"sync"
	"sync/atomic"
)

// Handler processes a single event.
type Handler func(Event)

// Bus fans events out to subscribed handlers from a dedicated dispatch
// goroutine. Emit never blocks the caller: when the queue is full the
// event is dropped and counted.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
	all      []Handler

	queue    chan Event
	stopChan chan struct{}
	wg       sync.WaitGroup
	dropped  atomic.Uint64
	started  bool
}

// NewBus creates a bus with the given queue size and starts dispatching.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	b := &Bus{
		handlers: make(map[Type][]Handler),
		queue:    make(chan Event, bufferSize),
		stopChan: make(chan struct{}),
		started:  true,
	}
	b.wg.Add(1)
	go b.dispatch()
	return b
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Emit queues an event for dispatch. Implements Sink.
func (b *Bus) Emit(e Event) {
	select {
	case b.queue <- e:
	default:
		b.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded due to a full queue.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close stops dispatching after draining queued events.
func (b *Bus) Close() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.started = false
	b.mu.Unlock()

	close(b.stopChan)
	b.wg.Wait()
}

func (b *Bus) dispatch() {
	defer b.wg.Done()
	for {
		select {
		case e := <-b.queue:
			b.deliver(e)
		case <-b.stopChan:
			// Drain whatever is still queued before exiting.
			for {
				select {
				case e := <-b.queue:
					b.deliver(e)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) deliver(e Event) {
	b.mu.RLock()
	typed := make([]Handler, len(b.handlers[e.Type]))
	copy(typed, b.handlers[e.Type])
	all := make([]Handler, len(b.all))
	copy(all, b.all)
	b.mu.RUnlock()

	for _, h := range typed {
		b.safeCall(h, e)
	}
	for _, h := range all {
		b.safeCall(h, e)
	}
}

// safeCall shields the dispatch loop from panicking handlers.
func (b *Bus) safeCall(h Handler, e Event) {
	defer func() {
		_ = recover()
	}()
	h(e)
}
