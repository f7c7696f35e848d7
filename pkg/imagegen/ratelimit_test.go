package imagegen_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/germanamz/colorking/pkg/imagegen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedProvider struct {
	errs  []error
	calls int
}

func (s *scriptedProvider) SubmitAndAwait(context.Context, imagegen.Params, string) ([]string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return []string{"https://img/1"}, nil
}

type converterProvider struct {
	scriptedProvider
	style imagegen.OutlineStyle
}

func (c *converterProvider) ConvertToOutline(_ context.Context, _ string, style imagegen.OutlineStyle, _ string) ([]string, error) {
	c.style = style
	return []string{"https://outline/1"}, nil
}

func rateLimited(retryAfter time.Duration) error {
	return imagegen.Wrap(imagegen.KindProvider, &imagegen.RateLimitError{RetryAfter: retryAfter}, "rate limited")
}

func newTestLimited(inner imagegen.Provider, sleeps *[]time.Duration) *imagegen.RateLimitedProvider {
	r := imagegen.NewRateLimitedProvider(inner, imagegen.RateLimitOpts{MaxRetries: 2, BaseDelay: time.Second})
	r.SetRandFunc(func() float64 { return 0.5 }) // factor 1.0
	r.SetSleepFunc(func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	})
	return r
}

func TestRateLimited_RetriesThenSucceeds(t *testing.T) {
	inner := &scriptedProvider{errs: []error{rateLimited(0), rateLimited(0)}}
	var sleeps []time.Duration
	r := newTestLimited(inner, &sleeps)

	urls, err := r.SubmitAndAwait(context.Background(), imagegen.Params{Prompt: "p"}, "k")

	require.NoError(t, err)
	assert.Equal(t, []string{"https://img/1"}, urls)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeps)
}

func TestRateLimited_HonorsRetryAfter(t *testing.T) {
	inner := &scriptedProvider{errs: []error{rateLimited(10 * time.Second)}}
	var sleeps []time.Duration
	r := newTestLimited(inner, &sleeps)

	_, err := r.SubmitAndAwait(context.Background(), imagegen.Params{}, "k")

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{10 * time.Second}, sleeps)
}

func TestRateLimited_ExhaustsRetries(t *testing.T) {
	inner := &scriptedProvider{errs: []error{rateLimited(0), rateLimited(0), rateLimited(0), rateLimited(0)}}
	var sleeps []time.Duration
	r := newTestLimited(inner, &sleeps)

	_, err := r.SubmitAndAwait(context.Background(), imagegen.Params{}, "k")

	var rle *imagegen.RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, 3, inner.calls)
}

func TestRateLimited_OtherErrorsNotRetried(t *testing.T) {
	inner := &scriptedProvider{errs: []error{imagegen.Errorf(imagegen.KindInvalidCredential, "bad key")}}
	var sleeps []time.Duration
	r := newTestLimited(inner, &sleeps)

	_, err := r.SubmitAndAwait(context.Background(), imagegen.Params{}, "k")

	require.ErrorIs(t, err, imagegen.ErrInvalidCredential)
	assert.Equal(t, 1, inner.calls)
	assert.Empty(t, sleeps)
}

func TestRateLimited_SleepCancelled(t *testing.T) {
	inner := &scriptedProvider{errs: []error{rateLimited(0)}}
	r := imagegen.NewRateLimitedProvider(inner, imagegen.RateLimitOpts{})
	r.SetSleepFunc(func(context.Context, time.Duration) error { return context.Canceled })

	_, err := r.SubmitAndAwait(context.Background(), imagegen.Params{}, "k")

	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRateLimited_ConvertForwards(t *testing.T) {
	inner := &converterProvider{}
	r := imagegen.NewRateLimitedProvider(inner, imagegen.RateLimitOpts{})

	conv, ok := imagegen.SupportsOutlines(r)
	require.True(t, ok)

	urls, err := conv.ConvertToOutline(context.Background(), "https://src", imagegen.StyleDetailed, "k")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://outline/1"}, urls)
	assert.Equal(t, imagegen.StyleDetailed, inner.style)
}

type keylessProvider struct{ scriptedProvider }

func (keylessProvider) NeedsCredential() bool { return false }

func TestRateLimited_NeedsCredentialForwards(t *testing.T) {
	assert.True(t, imagegen.NeedsCredential(&scriptedProvider{}))
	assert.True(t, imagegen.NeedsCredential(imagegen.NewRateLimitedProvider(&scriptedProvider{}, imagegen.RateLimitOpts{})))

	assert.False(t, imagegen.NeedsCredential(&keylessProvider{}))
	assert.False(t, imagegen.NeedsCredential(imagegen.NewRateLimitedProvider(&keylessProvider{}, imagegen.RateLimitOpts{})))
}

func TestRateLimited_ConvertUnsupported(t *testing.T) {
	r := imagegen.NewRateLimitedProvider(&scriptedProvider{}, imagegen.RateLimitOpts{})

	_, ok := imagegen.SupportsOutlines(r)
	assert.False(t, ok)

	_, err := r.ConvertToOutline(context.Background(), "https://src", imagegen.StyleSimple, "k")
	assert.ErrorIs(t, err, imagegen.ErrProviderMisconfigured)
}

func TestRateLimited_ThrottleRespectsContext(t *testing.T) {
	r := imagegen.NewRateLimitedProvider(&scriptedProvider{}, imagegen.RateLimitOpts{RPM: 1})

	_, err := r.SubmitAndAwait(context.Background(), imagegen.Params{}, "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = r.SubmitAndAwait(ctx, imagegen.Params{}, "k")
	assert.Error(t, err)
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, imagegen.Sleep(ctx, time.Hour), context.Canceled)
}
