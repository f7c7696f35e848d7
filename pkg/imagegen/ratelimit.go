package imagegen

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

var (
	_ Provider         = (*RateLimitedProvider)(nil)
	_ OutlineConverter = (*RateLimitedProvider)(nil)
)

// RateLimitedProvider wraps a Provider with a proactive requests-per-minute
// throttle and reactive 429 retry with exponential backoff and jitter.
type RateLimitedProvider struct {
	inner      Provider
	limiter    *rate.Limiter // nil = no proactive limit
	maxRetries int           // max retries on 429
	baseDelay  time.Duration // initial backoff delay

	// sleepFunc is used for testing; defaults to Sleep.
	sleepFunc func(ctx context.Context, d time.Duration) error
	// randFunc returns a random float64 in [0,1); used for jitter. Defaults to rand.Float64.
	randFunc func() float64
}

// RateLimitOpts configures the RateLimitedProvider.
type RateLimitOpts struct {
	RPM        int           // Requests per minute (0 = no limit).
	Burst      int           // Requests allowed at once before throttling (default 1).
	MaxRetries int           // Max retries on 429 (default 3).
	BaseDelay  time.Duration // Initial backoff delay (default 1s).
}

// NewRateLimitedProvider wraps a Provider with rate limiting.
func NewRateLimitedProvider(inner Provider, opts RateLimitOpts) *RateLimitedProvider {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	r := &RateLimitedProvider{
		inner:      inner,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
		sleepFunc:  Sleep,
		randFunc:   rand.Float64,
	}

	if opts.RPM > 0 {
		r.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RPM)), opts.Burst)
	}

	return r
}

// SetSleepFunc overrides the sleep function (for testing).
func (r *RateLimitedProvider) SetSleepFunc(fn func(ctx context.Context, d time.Duration) error) {
	r.sleepFunc = fn
}

// SetRandFunc overrides the random number generator (for testing).
func (r *RateLimitedProvider) SetRandFunc(fn func() float64) { r.randFunc = fn }

// Sleep sleeps for d or until ctx is cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SubmitAndAwait implements Provider with throttling and 429 retry.
func (r *RateLimitedProvider) SubmitAndAwait(ctx context.Context, p Params, credential string) ([]string, error) {
	return r.call(ctx, func(ctx context.Context) ([]string, error) {
		return r.inner.SubmitAndAwait(ctx, p, credential)
	})
}

// ConvertToOutline forwards to the inner provider with the same throttling.
// It fails with KindProviderMisconfigured when the inner provider cannot convert.
func (r *RateLimitedProvider) ConvertToOutline(ctx context.Context, imageURL string, style OutlineStyle, credential string) ([]string, error) {
	conv, ok := r.inner.(OutlineConverter)
	if !ok {
		return nil, Errorf(KindProviderMisconfigured, "the configured provider cannot convert outlines")
	}

	return r.call(ctx, func(ctx context.Context) ([]string, error) {
		return conv.ConvertToOutline(ctx, imageURL, style, credential)
	})
}

// CanConvertOutlines reports whether the wrapped provider implements OutlineConverter.
func (r *RateLimitedProvider) CanConvertOutlines() bool {
	_, ok := r.inner.(OutlineConverter)
	return ok
}

// NeedsCredential forwards to the wrapped provider.
func (r *RateLimitedProvider) NeedsCredential() bool { return NeedsCredential(r.inner) }

// jitter applies ±25% random jitter to a duration.
func (r *RateLimitedProvider) jitter(d time.Duration) time.Duration {
	factor := 0.75 + r.randFunc()*0.5 //nolint:mnd // jitter range: ±25%
	return time.Duration(float64(d) * factor)
}

func (r *RateLimitedProvider) call(ctx context.Context, fn func(context.Context) ([]string, error)) ([]string, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var lastErr error
	for attempt := range r.maxRetries + 1 {
		urls, err := fn(ctx)
		if err == nil {
			return urls, nil
		}

		var rle *RateLimitError
		if !errors.As(err, &rle) {
			return nil, err
		}

		lastErr = err

		if attempt >= r.maxRetries {
			break
		}

		// baseDelay * 2^attempt, or RetryAfter if larger.
		backoff := r.jitter(max(
			r.baseDelay*time.Duration(math.Pow(2, float64(attempt))), //nolint:mnd // exponential backoff formula
			rle.RetryAfter,
		))

		if err := r.sleepFunc(ctx, backoff); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// SupportsOutlines returns p as an OutlineConverter when it can actually
// convert, looking through wrappers that report CanConvertOutlines.
func SupportsOutlines(p Provider) (OutlineConverter, bool) {
	if c, ok := p.(interface{ CanConvertOutlines() bool }); ok && !c.CanConvertOutlines() {
		return nil, false
	}

	conv, ok := p.(OutlineConverter)
	return conv, ok
}
