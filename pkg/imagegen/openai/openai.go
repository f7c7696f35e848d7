// Package openai provides a synchronous imagegen.Provider for the OpenAI
// Images API. Each request answers with URLs inline; there is no job to poll.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"path"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/germanamz/colorking/pkg/imagegen"
)

// DefaultBaseURL is the public OpenAI API.
const DefaultBaseURL = "https://api.openai.com"

const (
	generationsPath = "/v1/images/generations"
	editsPath       = "/v1/images/edits"

	// MaxVariations caps how many single-image requests one call makes.
	MaxVariations = 4
	// OutlineVariants is how many line-art edits are requested per conversion.
	OutlineVariants = 3
)

var (
	_ imagegen.Provider         = (*Client)(nil)
	_ imagegen.OutlineConverter = (*Client)(nil)
)

// Client implements imagegen.Provider and imagegen.OutlineConverter.
type Client struct {
	imagegen.Adapter

	Model     string // generation model (dall-e-3 answers one image per request)
	EditModel string // model used for outline edits
	Size      string
	Quality   string
	Style     string

	// Concurrency bounds the variation requests in flight after the first.
	Concurrency int

	log *zap.Logger
}

// New creates a Client for baseURL ("https://api.openai.com", no trailing slash).
func New(baseURL string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}

	c := &Client{
		Model:       "dall-e-3",
		EditModel:   "dall-e-2",
		Size:        "1024x1024",
		Quality:     "standard",
		Style:       "natural",
		Concurrency: 2,
		log:         log.Named("openai"),
	}
	c.BaseURL = baseURL

	return c
}

// SubmitAndAwait requests up to MaxVariations images, one per request. The
// first request's failure is returned; later variations that fail are logged
// and left out.
func (c *Client) SubmitAndAwait(ctx context.Context, p imagegen.Params, credential string) ([]string, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, imagegen.Errorf(imagegen.KindInvalidCredential, "openai: API key is missing")
	}

	n := p.NumOutputs
	if n <= 0 || n > MaxVariations {
		n = MaxVariations
	}

	first, err := c.generate(ctx, credential, variationPrompt(p.Prompt, 0))
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	results := make([]string, n)
	results[0] = first

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.Concurrency, 1))

	for i := 1; i < n; i++ {
		g.Go(func() error {
			u, err := c.generate(gctx, credential, variationPrompt(p.Prompt, i))
			if err != nil {
				c.log.Warn("variation failed", zap.Int("variation", i+1), zap.Error(err))
				return nil
			}
			results[i] = u
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	urls := results[:0]
	for _, u := range results {
		if u != "" {
			urls = append(urls, u)
		}
	}

	return urls, nil
}

func (c *Client) generate(ctx context.Context, credential, prompt string) (string, error) {
	req := generationRequest{
		Prompt:  prompt,
		Model:   c.Model,
		N:       1,
		Size:    c.Size,
		Quality: c.Quality,
		Style:   c.Style,
	}

	var resp imagesResponse
	if err := c.PostJSON(ctx, credential, generationsPath, req, &resp); err != nil {
		return "", err
	}

	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", imagegen.Errorf(imagegen.KindEmptyResult, "no image in response")
	}

	return resp.Data[0].URL, nil
}

// ConvertToOutline downloads imageURL and asks the edits endpoint for
// OutlineVariants line-art versions of it.
func (c *Client) ConvertToOutline(ctx context.Context, imageURL string, style imagegen.OutlineStyle, credential string) ([]string, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, imagegen.Errorf(imagegen.KindInvalidCredential, "openai: API key is missing")
	}

	img, contentType, err := c.Fetch(ctx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("openai: fetch source image: %w", err)
	}

	body, formType, err := c.editForm(imageURL, img, contentType, style)
	if err != nil {
		return nil, fmt.Errorf("openai: build edit form: %w", err)
	}

	var resp imagesResponse
	if err := c.Post(ctx, credential, editsPath, formType, body, &resp); err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	urls := make([]string, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.URL != "" {
			urls = append(urls, d.URL)
		}
	}

	return urls, nil
}

func (c *Client) editForm(imageURL string, img []byte, contentType string, style imagegen.OutlineStyle) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if contentType == "" {
		contentType = "image/png"
	}

	name := path.Base(imageURL)
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	if name == "" || name == "." || name == "/" {
		name = "image.png"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, name))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img); err != nil {
		return nil, "", err
	}

	fields := [][2]string{
		{"prompt", style.Prompt()},
		{"model", c.EditModel},
		{"n", strconv.Itoa(OutlineVariants)},
		{"size", c.Size},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, w.FormDataContentType(), nil
}

func variationPrompt(description string, i int) string {
	p := "Create a detailed, child-friendly coloring page design: " + description +
		". Make it suitable for coloring with clear, bold outlines and interesting details."
	if i > 0 {
		p += fmt.Sprintf(" Style variation %d.", i+1)
	}

	return p
}

// --- wire types ---

type generationRequest struct {
	Prompt  string `json:"prompt"`
	Model   string `json:"model"`
	N       int    `json:"n"`
	Size    string `json:"size"`
	Quality string `json:"quality,omitempty"`
	Style   string `json:"style,omitempty"`
}

type imagesResponse struct {
	Data []imageData `json:"data"`
}

type imageData struct {
	URL           string `json:"url"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}
