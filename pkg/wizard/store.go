// Package wizard holds the coloring-page wizard's session state and the rules
// for moving between its steps. A Store is built once per process and handed
// to every view; views read snapshots and call its methods, never mutating
// session fields directly.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/germanamz/colorking/pkg/drawing"
	"github.com/germanamz/colorking/pkg/imagegen"
	"github.com/germanamz/colorking/pkg/settings"
)

// ErrSessionReset is returned by a generation whose session was reset while
// it was in flight. Its results are discarded.
var ErrSessionReset = errors.New("wizard: session was reset during generation")

// Generator produces drawing and outline options.
type Generator interface {
	GenerateDrawings(ctx context.Context, description string, enabled bool, credential string) ([]drawing.ImageOption, error)
	GenerateOutlines(ctx context.Context, source drawing.ImageOption, enabled bool, credential string) ([]drawing.ImageOption, error)
}

// Store owns the Session. It is safe for concurrent use, but it does not
// coalesce overlapping generations: callers must not start one while
// Snapshot().IsGenerating is true.
type Store struct {
	gen      Generator
	settings settings.Store
	log      *zap.Logger

	mu       sync.RWMutex
	session  Session
	defaults drawing.PrintSettings
	epoch    uint64
	signal   chan struct{}
}

// New creates a Store and rehydrates the provider credential and enabled flag
// from st.
func New(ctx context.Context, gen Generator, st settings.Store, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	p, err := settings.LoadProvider(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("wizard: %w", err)
	}

	s := &Store{
		gen:      gen,
		settings: st,
		log:      log.Named("wizard"),
		session:  newSession(uuid.NewString()),
		defaults: drawing.DefaultPrintSettings(),
		signal:   make(chan struct{}),
	}
	s.session.ProviderCredential = p.Credential
	s.session.ProviderEnabled = p.Enabled

	return s, nil
}

// Snapshot returns a deep copy of the session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.session.clone()
}

// Changed returns a channel that is closed on the next mutation. Callers
// re-subscribe after each wake-up.
func (s *Store) Changed() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.signal
}

// notifyLocked wakes Changed subscribers. Callers hold s.mu.
func (s *Store) notifyLocked() {
	close(s.signal)
	s.signal = make(chan struct{})
}

func (s *Store) update(fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.session)
	s.notifyLocked()
}

// GenerateDrawingOptions asks the generator for drawings matching description.
// Prior options and every downstream selection are cleared first. On failure
// the options stay empty and the error is returned unchanged.
func (s *Store) GenerateDrawingOptions(ctx context.Context, description string) error {
	if strings.TrimSpace(description) == "" {
		return imagegen.Errorf(imagegen.KindValidation, "please enter a description")
	}

	epoch, p := s.begin(func(ss *Session) {
		ss.Description = description
		ss.clearFromDrawings()
	})
	defer s.end(epoch)

	opts, err := s.gen.GenerateDrawings(ctx, description, p.Enabled, p.Credential)
	if err != nil {
		s.log.Warn("drawing generation failed", zap.String("kind", imagegen.KindOf(err).String()), zap.Error(err))
		return err
	}

	return s.commit(epoch, func(ss *Session) {
		ss.DrawingOptions = drawing.Clone(opts)
	})
}

// GenerateOutlineOptions selects drawingID and asks the generator for its
// outline variants. An id that is not among the current drawing options is a
// validation error and leaves the session untouched.
func (s *Store) GenerateOutlineOptions(ctx context.Context, drawingID string) error {
	s.mu.RLock()
	source, ok := drawing.Find(s.session.DrawingOptions, drawingID)
	s.mu.RUnlock()

	if !ok {
		return imagegen.Errorf(imagegen.KindValidation, "selected drawing not found")
	}

	epoch, p := s.begin(func(ss *Session) {
		ss.SelectedDrawing = &source
		ss.clearFromOutlines()
	})
	defer s.end(epoch)

	opts, err := s.gen.GenerateOutlines(ctx, source, p.Enabled, p.Credential)
	if err != nil {
		s.log.Warn("outline generation failed", zap.String("drawing", drawingID), zap.Error(err))
		return err
	}

	return s.commit(epoch, func(ss *Session) {
		ss.OutlineOptions = drawing.Clone(opts)
	})
}

// begin raises the generating flag after applying prepare and returns the
// current epoch with the provider settings to use.
func (s *Store) begin(prepare func(*Session)) (uint64, settings.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepare(&s.session)
	s.session.IsGenerating = true
	s.notifyLocked()

	return s.epoch, settings.Provider{
		Credential: s.session.ProviderCredential,
		Enabled:    s.session.ProviderEnabled,
	}
}

// end releases the generating flag unless the session was reset meanwhile.
func (s *Store) end(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		return
	}

	s.session.IsGenerating = false
	s.notifyLocked()
}

func (s *Store) commit(epoch uint64, apply func(*Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		return ErrSessionReset
	}

	apply(&s.session)

	return nil
}

// SelectDrawing marks one of the current drawing options as chosen. Choosing
// a different drawing drops the outlines derived from the previous one.
func (s *Store) SelectDrawing(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	opt, ok := drawing.Find(s.session.DrawingOptions, id)
	if !ok {
		return imagegen.Errorf(imagegen.KindValidation, "selected drawing not found")
	}

	if cur := s.session.SelectedDrawing; cur == nil || *cur != opt {
		s.session.clearFromOutlines()
	}

	s.session.SelectedDrawing = &opt
	s.notifyLocked()

	return nil
}

// SelectOutline marks one of the current outline options as chosen.
func (s *Store) SelectOutline(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	opt, ok := drawing.Find(s.session.OutlineOptions, id)
	if !ok {
		return imagegen.Errorf(imagegen.KindValidation, "selected outline not found")
	}

	s.session.SelectedOutline = &opt
	s.notifyLocked()

	return nil
}

// SetDescription records the prompt without generating.
func (s *Store) SetDescription(description string) {
	s.update(func(ss *Session) { ss.Description = description })
}

// SetPrintSettings replaces the print settings after validating them.
func (s *Store) SetPrintSettings(ps drawing.PrintSettings) error {
	if err := ps.Validate(); err != nil {
		return imagegen.Wrap(imagegen.KindValidation, err, "print settings")
	}

	s.update(func(ss *Session) { ss.PrintSettings = ps })

	return nil
}

// AdjustCopies changes the copy count by delta, clamped to the allowed range,
// and returns the new count.
func (s *Store) AdjustCopies(delta int) int {
	var n int

	s.update(func(ss *Session) {
		ss.PrintSettings = ss.PrintSettings.WithCopiesDelta(delta)
		n = ss.PrintSettings.Copies
	})

	return n
}

// SetProviderCredential persists the credential and applies it immediately.
func (s *Store) SetProviderCredential(ctx context.Context, credential string) error {
	credential = strings.TrimSpace(credential)

	if err := settings.SaveCredential(ctx, s.settings, credential); err != nil {
		return fmt.Errorf("wizard: %w", err)
	}

	s.update(func(ss *Session) { ss.ProviderCredential = credential })
	s.log.Info("provider credential updated", zap.Bool("set", credential != ""))

	return nil
}

// SetProviderEnabled persists the enabled flag and applies it immediately.
func (s *Store) SetProviderEnabled(ctx context.Context, enabled bool) error {
	if err := settings.SaveEnabled(ctx, s.settings, enabled); err != nil {
		return fmt.Errorf("wizard: %w", err)
	}

	s.update(func(ss *Session) { ss.ProviderEnabled = enabled })
	s.log.Info("provider toggled", zap.Bool("enabled", enabled))

	return nil
}

// SetDefaultPrintSettings replaces the print settings new sessions start
// with, and applies them to the current session.
func (s *Store) SetDefaultPrintSettings(ps drawing.PrintSettings) error {
	if err := ps.Validate(); err != nil {
		return imagegen.Wrap(imagegen.KindValidation, err, "default print settings")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.defaults = ps
	s.session.PrintSettings = ps
	s.notifyLocked()

	return nil
}

// ResetState starts a new session, keeping only the provider credential and
// enabled flag. Generations still in flight are discarded when they finish.
func (s *Store) ResetState() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, enabled := s.session.ProviderCredential, s.session.ProviderEnabled

	s.session = newSession(uuid.NewString())
	s.session.PrintSettings = s.defaults
	s.session.ProviderCredential = cred
	s.session.ProviderEnabled = enabled
	s.epoch++
	s.notifyLocked()
}

// Guard returns the step to render when step is requested: step itself when
// its prerequisites hold, StepDescribe otherwise.
func (s *Store) Guard(step Step) Step {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session.allows(step) {
		return step
	}

	return StepDescribe
}

func (s Session) allows(step Step) bool {
	switch step {
	case StepChooseDrawing:
		return len(s.DrawingOptions) > 0
	case StepChooseOutline:
		return s.SelectedDrawing != nil && len(s.OutlineOptions) > 0
	case StepPrintSettings, StepPreview:
		return s.SelectedOutline != nil
	default:
		return true
	}
}
