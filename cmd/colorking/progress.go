package main

import (
	"fmt"
	"io"
	"time"

	"github.com/germanamz/colorking/pkg/engine"
)

// progress reports engine events for the headless commands. Events are
// drained between steps so output stays ordered with the command's own lines.
type progress struct {
	bus *engine.EventBus
	sub *engine.Subscription
	w   io.Writer
}

func newProgress(bus *engine.EventBus, w io.Writer) *progress {
	return &progress{bus: bus, sub: bus.Subscribe(16), w: w}
}

// flush writes every event received since the last call.
func (p *progress) flush() {
	for {
		select {
		case e, ok := <-p.sub.C:
			if !ok {
				return
			}
			p.report(e)
		default:
			return
		}
	}
}

func (p *progress) report(e engine.Event) {
	switch e.Kind {
	case engine.EventGenerateStart:
		fmt.Fprintf(p.w, "Generating %s...\n", e.Target)
	case engine.EventGenerateEnd:
		if d, ok := e.Data.(engine.GenerateEnd); ok {
			fmt.Fprintf(p.w, "Generated %d %s in %s\n", d.Count, e.Target, d.Duration.Round(time.Millisecond))
		}
	case engine.EventGenerateError:
		if d, ok := e.Data.(engine.GenerateError); ok {
			fmt.Fprintf(p.w, "Generating %s failed (%s)\n", e.Target, d.Kind)
		}
	case engine.EventPrinted:
		if d, ok := e.Data.(engine.Printed); ok {
			fmt.Fprintf(p.w, "Rendered %d %s\n", d.Pages, plural(d.Pages, "page", "pages"))
		}
	}
}

// close reports what is left and unsubscribes.
func (p *progress) close() {
	p.flush()
	p.bus.Unsubscribe(p.sub)
}
