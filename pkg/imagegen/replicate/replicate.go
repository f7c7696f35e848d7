// Package replicate provides an asynchronous imagegen.Provider for the
// Replicate predictions API: a job is created and then polled until it
// settles or the attempt ceiling is reached.
package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/germanamz/colorking/pkg/imagegen"
)

const (
	// DefaultBaseURL is the public Replicate API.
	DefaultBaseURL = "https://api.replicate.com"
	// DefaultVersion is the line-art ControlNet model used for coloring pages.
	DefaultVersion = "435061a1b5a4c1e26740464bf786efdfa9cb3a3ac488595a2de23e143fdb0117"

	DefaultPollInterval      = 10 * time.Second
	DefaultMaxAttempts       = 30
	DefaultMaxNetworkRetries = 3

	predictionsPath       = "/v1/predictions"
	defaultNegativePrompt = "color, shading, realistic, detailed, complex"
)

// Job states reported by the API.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

var _ imagegen.Provider = (*Client)(nil)

// Client implements imagegen.Provider for Replicate.
type Client struct {
	imagegen.Adapter

	Version           string
	NegativePrompt    string
	PollInterval      time.Duration
	MaxAttempts       int // polls before giving up with a Timeout
	MaxNetworkRetries int // network failures tolerated while polling, in total

	// Restricted marks deployments where direct calls to the API are blocked
	// by the host (cross-origin policy). Calls fail with KindBrowserRestricted
	// before anything is sent.
	Restricted bool

	log       *zap.Logger
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// New creates a Client for baseURL ("https://api.replicate.com", no trailing slash).
func New(baseURL string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}

	c := &Client{
		Version:           DefaultVersion,
		NegativePrompt:    defaultNegativePrompt,
		PollInterval:      DefaultPollInterval,
		MaxAttempts:       DefaultMaxAttempts,
		MaxNetworkRetries: DefaultMaxNetworkRetries,
		log:               log.Named("replicate"),
		sleepFunc:         imagegen.Sleep,
	}
	c.BaseURL = baseURL
	c.Auth = imagegen.Auth{Scheme: "Token"}

	return c
}

// SetSleepFunc overrides the wait between polls (for testing).
func (c *Client) SetSleepFunc(fn func(ctx context.Context, d time.Duration) error) {
	c.sleepFunc = fn
}

// SubmitAndAwait creates a prediction and waits for its output URLs.
func (c *Client) SubmitAndAwait(ctx context.Context, p imagegen.Params, credential string) ([]string, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, imagegen.Errorf(imagegen.KindInvalidCredential, "replicate: API key is missing")
	}

	if c.Restricted {
		return nil, imagegen.Errorf(imagegen.KindBrowserRestricted,
			"replicate: direct API calls are blocked in this deployment; route requests through a proxy")
	}

	pred, err := c.create(ctx, p, credential)
	if err != nil {
		return nil, err
	}

	c.log.Debug("prediction created", zap.String("id", pred.ID), zap.String("status", pred.Status))

	if pred.Status == StatusSucceeded && len(pred.Output) > 0 {
		return pred.Output, nil
	}

	return c.await(ctx, pred.ID, credential)
}

func (c *Client) create(ctx context.Context, p imagegen.Params, credential string) (prediction, error) {
	numOutputs := p.NumOutputs
	if numOutputs <= 0 {
		numOutputs = 4
	}

	guidance := p.GuidanceScale
	if guidance <= 0 {
		guidance = 7
	}

	req := createRequest{
		Version: c.Version,
		Input: input{
			Prompt:         "Line art drawing for coloring page of: " + p.Prompt,
			NegativePrompt: c.NegativePrompt,
			NumOutputs:     numOutputs,
			GuidanceScale:  guidance,
		},
	}

	var pred prediction
	if err := c.PostJSON(ctx, credential, predictionsPath, req, &pred); err != nil {
		return prediction{}, fmt.Errorf("replicate: create prediction: %w", reclassify(err))
	}

	return pred, nil
}

// await polls immediately, then once per PollInterval. Network failures are
// retried without consuming an attempt, up to MaxNetworkRetries in total. A
// rate-limited poll consumes an attempt and waits at least Retry-After. It
// must not surface as a *imagegen.RateLimitError: a retry of the whole call
// creates a new prediction.
func (c *Client) await(ctx context.Context, id, credential string) ([]string, error) {
	path := predictionsPath + "/" + url.PathEscape(id)
	attempts, netRetries := 0, 0

	for attempts < c.MaxAttempts {
		var pred prediction
		err := c.GetJSON(ctx, credential, path, &pred)
		wait := c.PollInterval

		var rle *imagegen.RateLimitError

		switch {
		case err == nil:
			attempts++

			switch pred.Status {
			case StatusSucceeded:
				if len(pred.Output) == 0 {
					return nil, imagegen.Errorf(imagegen.KindEmptyResult, "replicate: prediction %s succeeded without output", id)
				}
				return pred.Output, nil
			case StatusFailed, StatusCanceled:
				msg := pred.Error
				if msg == "" {
					msg = "generation failed or was canceled"
				}
				return nil, imagegen.Errorf(imagegen.KindProvider, "replicate: %s", msg)
			}

			c.log.Debug("prediction pending",
				zap.String("id", id), zap.String("status", pred.Status), zap.Int("attempt", attempts))
		case errors.As(err, &rle):
			attempts++
			wait = max(wait, rle.RetryAfter)
			c.log.Warn("poll rate limited",
				zap.String("id", id), zap.Int("attempt", attempts), zap.Duration("wait", wait))
		case imagegen.KindOf(err) == imagegen.KindNetwork && netRetries < c.MaxNetworkRetries:
			netRetries++
			c.log.Warn("poll failed, retrying",
				zap.String("id", id), zap.Int("retry", netRetries), zap.Error(err))
		default:
			return nil, fmt.Errorf("replicate: poll prediction: %w", reclassify(err))
		}

		if attempts >= c.MaxAttempts {
			break
		}

		if err := c.sleepFunc(ctx, wait); err != nil {
			return nil, err
		}
	}

	return nil, imagegen.Errorf(imagegen.KindTimeout,
		"replicate: prediction %s did not finish after %d polls", id, c.MaxAttempts)
}

// reclassify turns provider errors whose detail is about the token into
// credential errors; the API reports some of those with non-auth statuses.
func reclassify(err error) error {
	var e *imagegen.Error
	if !errors.As(err, &e) || e.Kind != imagegen.KindProvider {
		return err
	}

	if strings.Contains(e.Message, "Authentication credentials were not provided") ||
		strings.Contains(e.Message, "Invalid token") {
		return imagegen.Wrap(imagegen.KindInvalidCredential, err, "replicate rejected the API key")
	}

	return err
}

// --- wire types ---

type createRequest struct {
	Version string `json:"version"`
	Input   input  `json:"input"`
}

type input struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	NumOutputs     int     `json:"num_outputs"`
	GuidanceScale  float64 `json:"guidance_scale"`
}

type prediction struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Output output `json:"output"`
	Error  string `json:"error"`
}

// output accepts either a single URL or a list of URLs.
type output []string

func (o *output) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*o = nil
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*o = nil
		} else {
			*o = output{s}
		}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*o = list

	return nil
}
