// Package drawings turns a description into drawing and outline options,
// choosing between the configured image provider and the demo sets.
package drawings

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/germanamz/colorking/pkg/drawing"
	"github.com/germanamz/colorking/pkg/imagegen"
)

const (
	DefaultNumOutputs    = 4
	DefaultGuidanceScale = 7
)

// Options tunes a Service. The zero value is usable.
type Options struct {
	// ForbidMock turns every mock fallback into a ProviderMisconfigured error.
	ForbidMock    bool
	OutlineStyle  imagegen.OutlineStyle
	NumOutputs    int
	GuidanceScale float64
	// MockDelay simulates latency before demo results are returned.
	MockDelay time.Duration
}

// Service generates drawing and outline options.
type Service struct {
	provider imagegen.Provider
	log      *zap.Logger
	opts     Options
}

// NewService creates a Service. provider may be nil, in which case enabled
// requests fail with ProviderMisconfigured.
func NewService(provider imagegen.Provider, log *zap.Logger, opts Options) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.NumOutputs <= 0 {
		opts.NumOutputs = DefaultNumOutputs
	}
	if opts.GuidanceScale <= 0 {
		opts.GuidanceScale = DefaultGuidanceScale
	}
	if opts.OutlineStyle == "" {
		opts.OutlineStyle = imagegen.StyleSimple
	}

	return &Service{provider: provider, log: log.Named("drawings"), opts: opts}
}

// GenerateDrawings returns candidate drawings for description.
//
// With the provider enabled and a credential present the provider is called;
// a BrowserRestricted failure degrades to the demo drawings and any other
// failure is returned unchanged. Enabled without a credential is a
// ProviderMisconfigured error unless the provider holds its own key.
// Disabled returns the demo drawings.
func (s *Service) GenerateDrawings(ctx context.Context, description string, enabled bool, credential string) ([]drawing.ImageOption, error) {
	if !enabled {
		s.log.Info("provider disabled, using demo drawings")
		return s.mock(ctx, drawing.MockDrawings, "provider is not enabled; enable it in settings")
	}

	if s.provider == nil {
		return nil, imagegen.Errorf(imagegen.KindProviderMisconfigured, "no image provider is configured")
	}

	if !s.hasCredential(credential) {
		return nil, imagegen.Errorf(imagegen.KindProviderMisconfigured, "provider is enabled but no API key is set")
	}

	urls, err := s.provider.SubmitAndAwait(ctx, imagegen.Params{
		Prompt:        description,
		NumOutputs:    s.opts.NumOutputs,
		GuidanceScale: s.opts.GuidanceScale,
	}, credential)
	if err != nil {
		if errors.Is(err, imagegen.ErrBrowserRestricted) {
			s.log.Warn("provider unreachable from this deployment, using demo drawings", zap.Error(err))
			return s.mock(ctx, drawing.MockDrawings, "provider is restricted in this deployment")
		}

		return nil, err
	}

	if len(urls) == 0 {
		return nil, imagegen.Errorf(imagegen.KindEmptyResult,
			"no images were generated; try again with a different description")
	}

	s.log.Info("drawings generated", zap.Int("count", len(urls)))

	return drawing.NumberOptions(urls, func(int) string {
		return "AI generated drawing of " + description
	}), nil
}

// GenerateOutlines returns outline variants of source. When the provider can
// convert outlines and is usable it is asked to; otherwise the demo outlines
// are returned.
func (s *Service) GenerateOutlines(ctx context.Context, source drawing.ImageOption, enabled bool, credential string) ([]drawing.ImageOption, error) {
	conv, canConvert := s.converter()
	if !enabled || !canConvert || !s.hasCredential(credential) {
		return s.mock(ctx, drawing.MockOutlines, "no outline converter is available")
	}

	style := s.opts.OutlineStyle

	urls, err := conv.ConvertToOutline(ctx, source.URL, style, credential)
	if err != nil {
		if errors.Is(err, imagegen.ErrBrowserRestricted) {
			s.log.Warn("outline conversion restricted, using demo outlines", zap.Error(err))
			return s.mock(ctx, drawing.MockOutlines, "provider is restricted in this deployment")
		}

		s.log.Warn("outline conversion failed", zap.String("drawing", source.ID), zap.Error(err))
		return nil, err
	}

	if len(urls) == 0 {
		return nil, imagegen.Errorf(imagegen.KindEmptyResult, "no outlines were generated")
	}

	return drawing.NumberOptions(urls, func(i int) string {
		return style.String() + " outline " + strconv.Itoa(i+1)
	}), nil
}

// hasCredential reports whether a call can go out with credential. Providers
// that keep the vendor key server-side need none.
func (s *Service) hasCredential(credential string) bool {
	return strings.TrimSpace(credential) != "" || !imagegen.NeedsCredential(s.provider)
}

func (s *Service) converter() (imagegen.OutlineConverter, bool) {
	if s.provider == nil {
		return nil, false
	}

	return imagegen.SupportsOutlines(s.provider)
}

func (s *Service) mock(ctx context.Context, set func() []drawing.ImageOption, reason string) ([]drawing.ImageOption, error) {
	if s.opts.ForbidMock {
		return nil, imagegen.Errorf(imagegen.KindProviderMisconfigured, "%s", reason)
	}

	if s.opts.MockDelay > 0 {
		if err := imagegen.Sleep(ctx, s.opts.MockDelay); err != nil {
			return nil, err
		}
	}

	return set(), nil
}
