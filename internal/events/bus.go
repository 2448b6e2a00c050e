package events

import (
	"sync"
	"time"
)

const (
	TypeRunStarted    = "run_started"
	TypeRunFinished   = "run_finished"
	TypeStepStarted   = "step_started"
	TypeStepFinished  = "step_finished"
	TypeStepFailed    = "step_failed"
	TypeStepSkipped   = "step_skipped"
	TypeIterationDone = "iteration_finished"
)

// Event is one progress notification from a workflow run.
type Event struct {
	RunID     string    `json:"run_id"`
	Type      string    `json:"type"`
	Agent     string    `json:"agent,omitempty"`
	Step      int       `json:"step,omitempty"`
	Iteration int       `json:"iteration,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Publisher interface {
	Publish(runID string, evt Event)
}

// Bus is an in-memory pub/sub of run events. Publishing never blocks; a slow
// subscriber loses events rather than stalling the engine.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	wildcard    map[chan Event]struct{}
}

func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string]map[chan Event]struct{}),
		wildcard:    make(map[chan Event]struct{}),
	}
}

// Subscribe registers a buffered channel for one run. The caller must drain
// it and call Unsubscribe when done.
func (b *Bus) Subscribe(runID string, buffer int) chan Event {
	ch := make(chan Event, buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[runID]
	if subs == nil {
		subs = make(map[chan Event]struct{})
		b.subscribers[runID] = subs
	}
	subs[ch] = struct{}{}
	return ch
}

// SubscribeAny registers a channel that receives events from every run.
// Useful for console progress output where the run id is chosen later.
func (b *Bus) SubscribeAny(buffer int) chan Event {
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.wildcard[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Bus) UnsubscribeAny(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.wildcard[ch]; ok {
		delete(b.wildcard, ch)
		close(ch)
	}
}

// Unsubscribe removes and closes the channel.
func (b *Bus) Unsubscribe(runID string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs, ok := b.subscribers[runID]; ok {
		if _, member := subs[ch]; member {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(b.subscribers, runID)
		}
	}
}

func (b *Bus) Publish(runID string, evt Event) {
	evt.RunID = runID
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	subs := b.subscribers[runID]
	chans := make([]chan Event, 0, len(subs)+len(b.wildcard))
	for ch := range subs {
		chans = append(chans, ch)
	}
	for ch := range b.wildcard {
		chans = append(chans, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chans {
		select {
		case ch <- evt:
		default:
			// drop for slow subscribers
		}
	}
}
