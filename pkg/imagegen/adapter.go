package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// maxErrorBody caps how much of an error response is read for its message.
const maxErrorBody = 1 << 20

// RateLimitError is carried inside a KindProvider error when the API responds
// with HTTP 429. RetryAfter is parsed from the Retry-After header.
type RateLimitError struct {
	RetryAfter time.Duration
	Body       string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %s", e.RetryAfter, e.Body)
	}
	return fmt.Sprintf("rate limited: %s", e.Body)
}

// ParseRetryAfter parses the Retry-After header value as either seconds (integer)
// or an HTTP-date (RFC 7231). Returns zero if unparseable or if the date is in the past.
func ParseRetryAfter(val string) time.Duration {
	if val == "" {
		return 0
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(val); err == nil {
		d := time.Until(t)
		if d > 0 {
			return d
		}
		return 0
	}
	return 0
}

// Auth describes how the per-call credential is attached to requests.
type Auth struct {
	Header string // Header name (default: "Authorization").
	Scheme string // Scheme prefix (default: "Bearer" when Header is "Authorization").
}

// MessageDecoder extracts a human-readable message from an error response body.
// It returns "" when the body carries nothing useful.
type MessageDecoder func(body []byte) string

// Adapter holds shared state for provider implementations. Embed it in concrete
// provider structs to get HTTP helpers, auth, custom headers, and status
// classification into the error taxonomy.
type Adapter struct {
	Auth          Auth              // How the credential is sent.
	BaseURL       string            // API base URL (no trailing slash).
	Client        *http.Client      // HTTP client; falls back to a cached default.
	Headers       map[string]string // Extra headers applied to every request.
	DecodeMessage MessageDecoder    // Optional; DefaultMessage when nil.

	clientOnce    sync.Once
	defaultClient *http.Client
}

// httpClient returns the configured client or a cached default client with a 2-minute timeout.
func (a *Adapter) httpClient() *http.Client {
	if a.Client != nil {
		return a.Client
	}

	a.clientOnce.Do(func() {
		a.defaultClient = &http.Client{Timeout: 2 * time.Minute}
	})

	return a.defaultClient
}

// NewRequest builds an *http.Request with the base URL, auth, and custom
// headers already applied. An empty credential sends no auth header.
func (a *Adapter) NewRequest(ctx context.Context, method, path, credential string, body io.Reader) (*http.Request, error) {
	url := a.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	if credential != "" {
		header := a.Auth.Header
		if header == "" {
			header = "Authorization"
		}

		value := credential
		if header == "Authorization" {
			scheme := a.Auth.Scheme
			if scheme == "" {
				scheme = "Bearer"
			}

			value = scheme + " " + value
		} else if a.Auth.Scheme != "" {
			value = a.Auth.Scheme + " " + value
		}

		req.Header.Set(header, value)
	}

	for k, v := range a.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// Do sends the request. A failure with no HTTP response is classified as
// KindNetwork unless the request context ended, in which case the context
// error is returned as is.
func (a *Adapter) Do(req *http.Request) (*http.Response, error) {
	resp, err := a.httpClient().Do(req) //nolint:gosec // URL is built from trusted BaseURL config, not user input.
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}

		return nil, Wrap(KindNetwork, err, "unable to reach the image provider")
	}

	return resp, nil
}

// PostJSON marshals payload as JSON, sends a POST to path, and decodes a 2xx
// response into dest. If dest is nil the response body is discarded.
func (a *Adapter) PostJSON(ctx context.Context, credential, path string, payload, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	return a.Post(ctx, credential, path, "application/json", bytes.NewReader(body), dest)
}

// Post sends body with the given content type and decodes a 2xx JSON response into dest.
func (a *Adapter) Post(ctx context.Context, credential, path, contentType string, body io.Reader, dest any) error {
	req, err := a.NewRequest(ctx, http.MethodPost, path, credential, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)

	return a.roundTrip(req, dest)
}

// GetJSON sends a GET to path and decodes a 2xx JSON response into dest.
func (a *Adapter) GetJSON(ctx context.Context, credential, path string, dest any) error {
	req, err := a.NewRequest(ctx, http.MethodGet, path, credential, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	return a.roundTrip(req, dest)
}

// Fetch downloads an absolute URL (such as a generated image) without auth and
// returns its body and content type.
func (a *Adapter) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", Wrap(KindValidation, err, "invalid image URL")
	}

	resp, err := a.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", a.statusError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", Wrap(KindNetwork, err, "read image")
	}

	return data, resp.Header.Get("Content-Type"), nil
}

func (a *Adapter) roundTrip(req *http.Request, dest any) error {
	resp, err := a.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return a.statusError(resp)
	}

	if dest == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return Wrap(KindProvider, err, "decode provider response")
	}

	return nil
}

// statusError classifies a non-2xx response.
func (a *Adapter) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	decode := a.DecodeMessage
	if decode == nil {
		decode = DefaultMessage
	}

	msg := decode(body)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		if msg == "" {
			msg = "the provider rejected the API key"
		}
		return Errorf(KindInvalidCredential, "%s", msg)
	case http.StatusTooManyRequests:
		return Wrap(KindProvider, &RateLimitError{
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
			Body:       msg,
		}, "provider rate limit reached")
	}

	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	return Errorf(KindProvider, "unexpected status %d: %s", resp.StatusCode, msg)
}

// DefaultMessage understands the three error body shapes the supported
// backends use: {"error":{"message":...}}, {"error":"..."}, and {"detail":...}.
// A non-string detail is returned as its JSON text.
func DefaultMessage(body []byte) string {
	var shape struct {
		Error  json.RawMessage `json:"error"`
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &shape); err != nil {
		return ""
	}

	if len(shape.Error) > 0 {
		var s string
		if json.Unmarshal(shape.Error, &s) == nil && s != "" {
			return s
		}

		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(shape.Error, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
	}

	if len(shape.Detail) > 0 {
		var s string
		if json.Unmarshal(shape.Detail, &s) == nil {
			return s
		}
		if string(shape.Detail) != "null" {
			return string(shape.Detail)
		}
	}

	return ""
}
