package events

import "loanft/core/types"

// Event represents a structured state change emitted by the node.
type Event interface {
	EventType() string
}

// Payload is implemented by events that can be flattened for the event log,
// subscribers and the indexer.
type Payload interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Buffer holds events until the surrounding transaction decides whether to
// publish or drop them. It is not safe for concurrent use.
type Buffer struct {
	events []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(e Event) {
	if b == nil || e == nil {
		return
	}
	b.events = append(b.events, e)
}

// Events returns the buffered events in emission order.
func (b *Buffer) Events() []Event {
	if b == nil {
		return nil
	}
	return append([]Event(nil), b.events...)
}

// Len reports the number of buffered events.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.events)
}

// Reset drops every buffered event.
func (b *Buffer) Reset() {
	if b != nil {
		b.events = nil
	}
}

// Flatten converts every payload-capable event into its flattened form,
// skipping events that cannot be flattened.
func Flatten(evts []Event) []*types.Event {
	out := make([]*types.Event, 0, len(evts))
	for _, evt := range evts {
		payload, ok := evt.(Payload)
		if !ok {
			continue
		}
		if flat := payload.Event(); flat != nil {
			out = append(out, flat)
		}
	}
	return out
}
