// Package engine is the composition root that assembles the Color King
// components from configuration: the image provider, the drawing service, the
// wizard store, the persisted settings, and the PDF renderer. Frontends (the
// TUI, the headless generate command, the proxy server) build an Engine and
// interact with it, observing generation activity through an EventBus.
package engine
