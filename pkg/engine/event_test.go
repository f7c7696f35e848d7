package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/colorking/pkg/drawing"
	"github.com/germanamz/colorking/pkg/imagegen"
)

func TestEventBus_SubscribePublish(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(8)
	defer bus.Unsubscribe(sub)

	e := Event{
		Kind:      EventGenerateStart,
		Target:    TargetDrawings,
		Timestamp: time.Now(),
	}

	bus.Publish(e)

	select {
	case got := <-sub.C:
		assert.Equal(t, EventGenerateStart, got.Kind)
		assert.Equal(t, TargetDrawings, got.Target)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestEventBus_FanOut(t *testing.T) {
	bus := NewEventBus()
	sub1 := bus.Subscribe(4)
	sub2 := bus.Subscribe(4)
	defer bus.Unsubscribe(sub1)
	defer bus.Unsubscribe(sub2)

	bus.Publish(Event{Kind: EventPrinted})

	select {
	case <-sub1.C:
	case <-time.After(time.Second):
		t.Fatal("sub1 did not receive event")
	}

	select {
	case <-sub2.C:
	case <-time.After(time.Second):
		t.Fatal("sub2 did not receive event")
	}
}

func TestEventBus_NonBlockingDrop(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(1) // buffer of 1
	defer bus.Unsubscribe(sub)

	// Fill the buffer.
	bus.Publish(Event{Kind: EventGenerateStart})
	// Dropped, not blocked.
	bus.Publish(Event{Kind: EventGenerateEnd})

	got := <-sub.C
	assert.Equal(t, EventGenerateStart, got.Kind)
	assert.False(t, got.Timestamp.IsZero(), "publish stamps events")

	select {
	case <-sub.C:
		t.Fatal("expected channel to be empty after drop")
	default:
	}
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(4)

	bus.Unsubscribe(sub)

	// Channel should be closed.
	_, ok := <-sub.C
	assert.False(t, ok, "channel should be closed after unsubscribe")

	// Double unsubscribe should not panic.
	bus.Unsubscribe(sub)
}

func TestEventBus_PublishNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	// Should not panic.
	bus.Publish(Event{Kind: EventGenerateError})
}

type stubGenerator struct {
	opts []drawing.ImageOption
	err  error
}

func (g stubGenerator) GenerateDrawings(context.Context, string, bool, string) ([]drawing.ImageOption, error) {
	return g.opts, g.err
}

func (g stubGenerator) GenerateOutlines(context.Context, drawing.ImageOption, bool, string) ([]drawing.ImageOption, error) {
	return g.opts, g.err
}

func steppingClock() func() time.Time {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0

	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

func drain(sub *Subscription) []Event {
	var out []Event
	for {
		select {
		case e := <-sub.C:
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestObservedGenerator_Success(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(8)
	defer bus.Unsubscribe(sub)

	g := observedGenerator{inner: stubGenerator{opts: drawing.MockOutlines()}, bus: bus, now: steppingClock()}

	opts, err := g.GenerateOutlines(context.Background(), drawing.ImageOption{ID: "1"}, false, "")
	require.NoError(t, err)
	assert.Len(t, opts, 3)

	events := drain(sub)
	require.Len(t, events, 2)
	assert.Equal(t, EventGenerateStart, events[0].Kind)
	assert.Equal(t, TargetOutlines, events[0].Target)
	assert.Equal(t, EventGenerateEnd, events[1].Kind)
	assert.Equal(t, GenerateEnd{Count: 3, Duration: time.Second}, events[1].Data)
}

func TestObservedGenerator_Failure(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(8)
	defer bus.Unsubscribe(sub)

	boom := imagegen.Errorf(imagegen.KindTimeout, "took too long")
	g := observedGenerator{inner: stubGenerator{err: boom}, bus: bus, now: steppingClock()}

	_, err := g.GenerateDrawings(context.Background(), "x", true, "k")
	require.ErrorIs(t, err, imagegen.ErrTimeout)

	events := drain(sub)
	require.Len(t, events, 2)
	assert.Equal(t, EventGenerateError, events[1].Kind)
	assert.Equal(t, TargetDrawings, events[1].Target)
	data, ok := events[1].Data.(GenerateError)
	require.True(t, ok)
	assert.Equal(t, imagegen.KindTimeout, data.Kind)
}
