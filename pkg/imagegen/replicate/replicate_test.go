package replicate_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/germanamz/colorking/pkg/imagegen"
	"github.com/germanamz/colorking/pkg/imagegen/replicate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var params = imagegen.Params{Prompt: "a cat in a crown", NumOutputs: 4, GuidanceScale: 7}

// fakeAPI answers create with the given status and serves polls from states.
type fakeAPI struct {
	createStatus string
	createOutput any
	states       []string // status per poll; the last one repeats
	final        any      // output returned with a succeeded status
	failMsg      string
	polls        atomic.Int32
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token r8_test", r.Header.Get("Authorization"))

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/predictions":
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, replicate.DefaultVersion, body["version"])

			in := body["input"].(map[string]any)
			assert.Equal(t, "Line art drawing for coloring page of: a cat in a crown", in["prompt"])
			assert.Equal(t, "color, shading, realistic, detailed, complex", in["negative_prompt"])
			assert.InDelta(t, 4, in["num_outputs"], 0)
			assert.InDelta(t, 7, in["guidance_scale"], 0)

			writeJSON(w, map[string]any{"id": "p1", "status": f.createStatus, "output": f.createOutput})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/predictions/p1":
			n := int(f.polls.Add(1))
			status := f.states[min(n, len(f.states))-1]

			resp := map[string]any{"id": "p1", "status": status}
			switch status {
			case replicate.StatusSucceeded:
				resp["output"] = f.final
			case replicate.StatusFailed:
				resp["error"] = f.failMsg
			}
			writeJSON(w, resp)
		default:
			http.NotFound(w, r)
		}
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newClient(t *testing.T, url string) (*replicate.Client, *[]time.Duration) {
	t.Helper()

	c := replicate.New(url, zap.NewNop())
	sleeps := &[]time.Duration{}
	c.SetSleepFunc(func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	})

	return c, sleeps
}

func pending(n int, last string) []string {
	states := make([]string, 0, n+1)
	for range n {
		states = append(states, replicate.StatusProcessing)
	}
	return append(states, last)
}

func TestSubmitAndAwait_MissingCredential(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits.Add(1) }))
	defer srv.Close()

	c, _ := newClient(t, srv.URL)
	_, err := c.SubmitAndAwait(context.Background(), params, "  ")

	require.ErrorIs(t, err, imagegen.ErrInvalidCredential)
	assert.Zero(t, hits.Load())
}

func TestSubmitAndAwait_Restricted(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits.Add(1) }))
	defer srv.Close()

	c, _ := newClient(t, srv.URL)
	c.Restricted = true
	_, err := c.SubmitAndAwait(context.Background(), params, "r8_test")

	require.ErrorIs(t, err, imagegen.ErrBrowserRestricted)
	assert.Zero(t, hits.Load())
}

func TestSubmitAndAwait_ImmediateSuccess(t *testing.T) {
	api := &fakeAPI{createStatus: replicate.StatusSucceeded, createOutput: []string{"https://out/0.png", "https://out/1.png"}}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c, sleeps := newClient(t, srv.URL)
	urls, err := c.SubmitAndAwait(context.Background(), params, "r8_test")

	require.NoError(t, err)
	assert.Equal(t, []string{"https://out/0.png", "https://out/1.png"}, urls)
	assert.Zero(t, api.polls.Load())
	assert.Empty(t, *sleeps)
}

func TestSubmitAndAwait_SucceedsOnLastAllowedPoll(t *testing.T) {
	api := &fakeAPI{
		createStatus: replicate.StatusStarting,
		states:       pending(29, replicate.StatusSucceeded),
		final:        []string{"https://out/0.png"},
	}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c, sleeps := newClient(t, srv.URL)
	urls, err := c.SubmitAndAwait(context.Background(), params, "r8_test")

	require.NoError(t, err)
	assert.Equal(t, []string{"https://out/0.png"}, urls)
	assert.EqualValues(t, 30, api.polls.Load())
	assert.Len(t, *sleeps, 29)
	assert.Equal(t, replicate.DefaultPollInterval, (*sleeps)[0])
}

func TestSubmitAndAwait_TimesOutAfterMaxAttempts(t *testing.T) {
	api := &fakeAPI{createStatus: replicate.StatusStarting, states: []string{replicate.StatusProcessing}}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c, sleeps := newClient(t, srv.URL)
	_, err := c.SubmitAndAwait(context.Background(), params, "r8_test")

	require.ErrorIs(t, err, imagegen.ErrTimeout)
	assert.EqualValues(t, 30, api.polls.Load())
	assert.Len(t, *sleeps, 29)
}

func TestSubmitAndAwait_Failed(t *testing.T) {
	api := &fakeAPI{
		createStatus: replicate.StatusStarting,
		states:       pending(2, replicate.StatusFailed),
		failMsg:      "NSFW content detected",
	}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c, _ := newClient(t, srv.URL)
	_, err := c.SubmitAndAwait(context.Background(), params, "r8_test")

	require.ErrorIs(t, err, imagegen.ErrProvider)
	assert.Contains(t, err.Error(), "NSFW content detected")
	assert.EqualValues(t, 3, api.polls.Load())
}

func TestSubmitAndAwait_Canceled(t *testing.T) {
	api := &fakeAPI{createStatus: replicate.StatusStarting, states: []string{replicate.StatusCanceled}}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c, _ := newClient(t, srv.URL)
	_, err := c.SubmitAndAwait(context.Background(), params, "r8_test")

	require.ErrorIs(t, err, imagegen.ErrProvider)
	assert.Contains(t, err.Error(), "generation failed or was canceled")
}

func TestSubmitAndAwait_SucceededWithoutOutput(t *testing.T) {
	api := &fakeAPI{createStatus: replicate.StatusStarting, states: []string{replicate.StatusSucceeded}, final: []string{}}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c, _ := newClient(t, srv.URL)
	_, err := c.SubmitAndAwait(context.Background(), params, "r8_test")

	require.ErrorIs(t, err, imagegen.ErrEmptyResult)
}

func TestSubmitAndAwait_StringOutput(t *testing.T) {
	api := &fakeAPI{createStatus: replicate.StatusStarting, states: []string{replicate.StatusSucceeded}, final: "https://out/single.png"}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c, _ := newClient(t, srv.URL)
	urls, err := c.SubmitAndAwait(context.Background(), params, "r8_test")

	require.NoError(t, err)
	assert.Equal(t, []string{"https://out/single.png"}, urls)
}

func TestSubmitAndAwait_InvalidTokenDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Invalid token."}`))
	}))
	defer srv.Close()

	c, _ := newClient(t, srv.URL)
	_, err := c.SubmitAndAwait(context.Background(), params, "r8_test")

	require.ErrorIs(t, err, imagegen.ErrInvalidCredential)
}

func TestSubmitAndAwait_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Authentication credentials were not provided."}`))
	}))
	defer srv.Close()

	c, _ := newClient(t, srv.URL)
	_, err := c.SubmitAndAwait(context.Background(), params, "r8_test")

	require.ErrorIs(t, err, imagegen.ErrInvalidCredential)
}

// flakyTransport fails the first n GET requests with a transport error.
type flakyTransport struct {
	n    int32
	seen atomic.Int32
}

func (f *flakyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Method == http.MethodGet && f.seen.Add(1) <= f.n {
		return nil, errors.New("connection reset by peer")
	}
	return http.DefaultTransport.RoundTrip(r)
}

func TestSubmitAndAwait_NetworkRetriesDoNotConsumeAttempts(t *testing.T) {
	api := &fakeAPI{
		createStatus: replicate.StatusStarting,
		states:       pending(29, replicate.StatusSucceeded),
		final:        []string{"https://out/0.png"},
	}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	transport := &flakyTransport{n: 3}
	c, sleeps := newClient(t, srv.URL)
	c.Client = &http.Client{Transport: transport}

	urls, err := c.SubmitAndAwait(context.Background(), params, "r8_test")

	require.NoError(t, err)
	assert.Equal(t, []string{"https://out/0.png"}, urls)
	assert.EqualValues(t, 30, api.polls.Load())
	assert.Len(t, *sleeps, 32)
}

func TestSubmitAndAwait_NetworkRetriesExhausted(t *testing.T) {
	api := &fakeAPI{createStatus: replicate.StatusStarting, states: []string{replicate.StatusProcessing}}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c, _ := newClient(t, srv.URL)
	c.Client = &http.Client{Transport: &flakyTransport{n: 4}}

	_, err := c.SubmitAndAwait(context.Background(), params, "r8_test")

	require.ErrorIs(t, err, imagegen.ErrNetwork)
	assert.Zero(t, api.polls.Load())
}

func TestSubmitAndAwait_ContextCancelledWhileWaiting(t *testing.T) {
	api := &fakeAPI{createStatus: replicate.StatusStarting, states: []string{replicate.StatusProcessing}}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := replicate.New(srv.URL, nil)
	c.PollInterval = time.Hour
	c.SetSleepFunc(func(ctx context.Context, d time.Duration) error {
		cancel()
		return imagegen.Sleep(ctx, d)
	})

	_, err := c.SubmitAndAwait(ctx, params, "r8_test")

	require.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 1, api.polls.Load())
}

func TestSubmitAndAwait_PollServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeJSON(w, map[string]any{"id": "p1", "status": "starting"})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"prediction lookup failed"}`))
	}))
	defer srv.Close()

	c, _ := newClient(t, srv.URL)
	_, err := c.SubmitAndAwait(context.Background(), params, "r8_test")

	require.ErrorIs(t, err, imagegen.ErrProvider)
	assert.True(t, strings.Contains(err.Error(), "prediction lookup failed"))
}

func TestSubmitAndAwait_RateLimitedPollKeepsPrediction(t *testing.T) {
	var creates, polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			creates.Add(1)
			writeJSON(w, map[string]any{"id": "p1", "status": "starting"})
			return
		}

		if polls.Add(1) == 1 {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"detail":"slow down"}`))
			return
		}
		writeJSON(w, map[string]any{"id": "p1", "status": "succeeded", "output": []string{"https://img/1.png"}})
	}))
	defer srv.Close()

	c, sleeps := newClient(t, srv.URL)
	rl := imagegen.NewRateLimitedProvider(c, imagegen.RateLimitOpts{MaxRetries: 3})
	var retries atomic.Int32
	rl.SetSleepFunc(func(context.Context, time.Duration) error {
		retries.Add(1)
		return nil
	})

	urls, err := rl.SubmitAndAwait(context.Background(), params, "r8_test")

	require.NoError(t, err)
	assert.Equal(t, []string{"https://img/1.png"}, urls)
	assert.EqualValues(t, 1, creates.Load())
	assert.EqualValues(t, 2, polls.Load())
	assert.Zero(t, retries.Load())
	assert.Equal(t, []time.Duration{30 * time.Second}, *sleeps)
}

func TestSubmitAndAwait_RateLimitedPollsExhaustAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeJSON(w, map[string]any{"id": "p1", "status": "starting"})
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, _ := newClient(t, srv.URL)
	c.MaxAttempts = 3

	_, err := c.SubmitAndAwait(context.Background(), params, "r8_test")

	require.ErrorIs(t, err, imagegen.ErrTimeout)

	var rle *imagegen.RateLimitError
	assert.False(t, errors.As(err, &rle))
}
