package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/germanamz/colorking/pkg/colorkingdir"
	"github.com/germanamz/colorking/pkg/drawings"
	"github.com/germanamz/colorking/pkg/imagegen"
	"github.com/germanamz/colorking/pkg/printout"
	"github.com/germanamz/colorking/pkg/proxyserver"
	"github.com/germanamz/colorking/pkg/settings"
	"github.com/germanamz/colorking/pkg/wizard"
)

// ErrNothingToPrint is returned by Print when no outline is selected.
var ErrNothingToPrint = errors.New("engine: select an outline before printing")

// Engine is the composition root that assembles all components from
// configuration and exposes them through a frontend-agnostic API.
type Engine struct {
	cfg      Config
	dir      colorkingdir.Dir
	log      *zap.Logger
	events   *EventBus
	provider imagegen.Provider
	settings settings.Store
	service  *drawings.Service
	store    *wizard.Store
	renderer *printout.Renderer
}

// Option customizes New.
type Option func(*options)

type options struct {
	log      *zap.Logger
	settings settings.Store
	provider imagegen.Provider
	fetcher  printout.Fetcher
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithSettings replaces the SQLite settings database with st. The engine
// closes it on Close.
func WithSettings(st settings.Store) Option {
	return func(o *options) { o.settings = st }
}

// WithProvider bypasses the provider registry.
func WithProvider(p imagegen.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithFetcher sets how the renderer downloads outline images.
func WithFetcher(f printout.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// New creates an Engine from the given configuration. It validates the config,
// builds the provider, opens the settings database under cfg.Dir, and
// rehydrates the wizard session from it.
func New(ctx context.Context, cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}

	e := &Engine{
		cfg:    cfg,
		dir:    colorkingdir.New(cfg.Dir),
		log:    o.log,
		events: NewEventBus(),
	}

	e.provider = o.provider
	if e.provider == nil {
		p, err := buildProvider(cfg.Provider, o.log)
		if err != nil {
			return nil, err
		}
		e.provider = p
	}

	e.settings = o.settings
	if e.settings == nil {
		if err := colorkingdir.EnsureStructure(e.dir); err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}

		db, err := settings.OpenSQLite(e.dir.SettingsPath())
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		e.settings = db
	}

	if err := e.assemble(ctx, o); err != nil {
		_ = e.Close()
		return nil, err
	}

	e.log.Info("engine ready",
		zap.String("provider", cfg.Provider.Kind),
		zap.String("dir", e.dir.Root()),
	)

	return e, nil
}

func (e *Engine) assemble(ctx context.Context, o options) error {
	style, err := imagegen.ParseOutlineStyle(e.cfg.Drawings.OutlineStyle)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	delay, err := parseDuration(e.cfg.Drawings.MockDelay)
	if err != nil {
		return fmt.Errorf("engine: mock_delay: %w", err)
	}

	e.service = drawings.NewService(e.provider, e.log, drawings.Options{
		ForbidMock:    e.cfg.Drawings.ForbidMock,
		OutlineStyle:  style,
		NumOutputs:    e.cfg.Drawings.NumOutputs,
		GuidanceScale: e.cfg.Drawings.GuidanceScale,
		MockDelay:     delay,
	})

	gen := observedGenerator{inner: e.service, bus: e.events, now: time.Now}

	e.store, err = wizard.New(ctx, gen, e.settings, e.log)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	ps, err := e.cfg.PrintSettings()
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := e.store.SetDefaultPrintSettings(ps); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	fetcher := o.fetcher
	if fetcher == nil {
		fetcher = &imagegen.Adapter{}
	}
	e.renderer = printout.NewRenderer(fetcher, e.log)

	return nil
}

// Store returns the wizard store.
func (e *Engine) Store() *wizard.Store { return e.store }

// Events returns the engine's event bus.
func (e *Engine) Events() *EventBus { return e.events }

// Dir returns the working directory layout.
func (e *Engine) Dir() colorkingdir.Dir { return e.dir }

// Config returns the configuration the engine was built from.
func (e *Engine) Config() Config { return e.cfg }

// Print renders the selected outline with the session's print settings.
func (e *Engine) Print(ctx context.Context, w io.Writer) error {
	s := e.store.Snapshot()
	if s.SelectedOutline == nil {
		return ErrNothingToPrint
	}

	if err := e.renderer.Render(ctx, *s.SelectedOutline, s.PrintSettings, s.Description, w); err != nil {
		return fmt.Errorf("engine: print: %w", err)
	}

	e.events.Publish(Event{Kind: EventPrinted, Data: Printed{Pages: s.PrintSettings.Copies}})

	return nil
}

// PrintToFile renders the selected outline into the prints directory and
// returns the file's path.
func (e *Engine) PrintToFile(ctx context.Context) (string, error) {
	s := e.store.Snapshot()
	if s.SelectedOutline == nil {
		return "", ErrNothingToPrint
	}

	if err := os.MkdirAll(e.dir.PrintsDir(), 0o750); err != nil {
		return "", fmt.Errorf("engine: print: %w", err)
	}

	path := filepath.Join(e.dir.PrintsDir(), printout.FileName(s.Description))

	f, err := os.Create(path) //nolint:gosec // path is built from a slug
	if err != nil {
		return "", fmt.Errorf("engine: print: %w", err)
	}

	if err := e.renderer.Render(ctx, *s.SelectedOutline, s.PrintSettings, s.Description, f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("engine: print: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("engine: print: %w", err)
	}

	e.log.Info("printed", zap.String("path", path), zap.Int("copies", s.PrintSettings.Copies))
	e.events.Publish(Event{Kind: EventPrinted, Data: Printed{Path: path, Pages: s.PrintSettings.Copies}})

	return path, nil
}

// Close releases the settings database.
func (e *Engine) Close() error {
	if e.settings == nil {
		return nil
	}

	return e.settings.Close()
}

// NewProxyServer builds the proxy server from the serve section. It talks to
// the upstream image API with the vendor key.
func NewProxyServer(cfg Config, log *zap.Logger) (*proxyserver.Server, error) {
	if log == nil {
		log = zap.NewNop()
	}

	pc := ProviderConfig{BaseURL: cfg.Serve.UpstreamURL, Timeout: cfg.Provider.Timeout}
	if cfg.Provider.Kind == "openai" {
		pc.Model = cfg.Provider.Model
	}

	upstream, err := newOpenAI(pc, log)
	if err != nil {
		return nil, err
	}

	return proxyserver.New(upstream, proxyserver.Config{
		VendorKey: cfg.Serve.VendorKey,
		AccessKey: cfg.Serve.AccessKey,
	}, log), nil
}
