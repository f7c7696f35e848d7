package engine

import (
	"context"
	"sync"
	"time"

	"github.com/germanamz/colorking/pkg/drawing"
	"github.com/germanamz/colorking/pkg/imagegen"
	"github.com/germanamz/colorking/pkg/wizard"
)

// EventKind identifies the type of engine event.
type EventKind string

const (
	EventGenerateStart EventKind = "generate_start"
	EventGenerateEnd   EventKind = "generate_end"
	EventGenerateError EventKind = "generate_error"
	EventPrinted       EventKind = "printed"
)

// Target names what a generation produces.
type Target string

const (
	TargetDrawings Target = "drawings"
	TargetOutlines Target = "outlines"
)

// Event is an immutable notification of engine activity.
type Event struct {
	Kind      EventKind
	Target    Target
	Timestamp time.Time
	Data      any
}

// GenerateEnd is the Data of an EventGenerateEnd.
type GenerateEnd struct {
	Count    int
	Duration time.Duration
}

// GenerateError is the Data of an EventGenerateError.
type GenerateError struct {
	Kind imagegen.Kind
	Err  error
}

// Printed is the Data of an EventPrinted.
type Printed struct {
	Path  string
	Pages int
}

// Subscription receives events from an EventBus.
type Subscription struct {
	C  <-chan Event
	ch chan Event
}

// EventBus fans out events to all active subscribers. It is safe for
// concurrent use.
type EventBus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewEventBus creates an EventBus ready for use.
func NewEventBus() *EventBus {
	return &EventBus{
		subs: make(map[*Subscription]struct{}),
	}
}

// Subscribe creates a new subscription with the given channel buffer size.
// The caller should read from sub.C and eventually call Unsubscribe.
func (b *EventBus) Subscribe(bufSize int) *Subscription {
	ch := make(chan Event, bufSize)
	sub := &Subscription{C: ch, ch: ch}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes the subscription and closes its channel.
func (b *EventBus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.ch)
	}
}

// Publish stamps e and sends it to all subscribers. The generate command's
// progress reporter drains its subscription only between steps; a
// subscriber whose buffer is full misses the event rather than blocking the
// generation that published it.
func (b *EventBus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
		}
	}
}

// observedGenerator publishes an event around every generation.
type observedGenerator struct {
	inner wizard.Generator
	bus   *EventBus
	now   func() time.Time
}

func (o observedGenerator) GenerateDrawings(ctx context.Context, description string, enabled bool, credential string) ([]drawing.ImageOption, error) {
	return o.observe(TargetDrawings, func() ([]drawing.ImageOption, error) {
		return o.inner.GenerateDrawings(ctx, description, enabled, credential)
	})
}

func (o observedGenerator) GenerateOutlines(ctx context.Context, source drawing.ImageOption, enabled bool, credential string) ([]drawing.ImageOption, error) {
	return o.observe(TargetOutlines, func() ([]drawing.ImageOption, error) {
		return o.inner.GenerateOutlines(ctx, source, enabled, credential)
	})
}

func (o observedGenerator) observe(target Target, fn func() ([]drawing.ImageOption, error)) ([]drawing.ImageOption, error) {
	start := o.now()
	o.bus.Publish(Event{Kind: EventGenerateStart, Target: target, Timestamp: start})

	opts, err := fn()
	if err != nil {
		o.bus.Publish(Event{
			Kind:      EventGenerateError,
			Target:    target,
			Timestamp: o.now(),
			Data:      GenerateError{Kind: imagegen.KindOf(err), Err: err},
		})

		return nil, err
	}

	end := o.now()
	o.bus.Publish(Event{
		Kind:      EventGenerateEnd,
		Target:    target,
		Timestamp: end,
		Data:      GenerateEnd{Count: len(opts), Duration: end.Sub(start)},
	})

	return opts, nil
}
