// Package proxy provides an imagegen.Provider that calls same-origin
// functions holding the vendor key server-side. The wire types are shared
// with the server in pkg/proxyserver.
package proxy

import (
	"context"
	"fmt"

	"github.com/germanamz/colorking/pkg/imagegen"
)

const (
	GeneratePath = "/functions/v1/generate-images"
	ConvertPath  = "/functions/v1/convert-to-outline"
)

var (
	_ imagegen.Provider         = (*Client)(nil)
	_ imagegen.OutlineConverter = (*Client)(nil)
)

// Image is one generated or converted image as the functions return it.
type Image struct {
	ID  string `json:"id"`
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// GenerateRequest is the generate-images body.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
	Count  int    `json:"count,omitempty"`
}

// GenerateResponse is the generate-images reply.
type GenerateResponse struct {
	Images []Image `json:"images"`
}

// ConvertRequest is the convert-to-outline body.
type ConvertRequest struct {
	ImageURL string `json:"imageUrl"`
	Style    string `json:"style,omitempty"`
}

// ConvertResponse is the convert-to-outline reply.
type ConvertResponse struct {
	Outlines []Image `json:"outlines"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Client implements imagegen.Provider over the proxy functions. The
// credential passed to each call is the proxy access key, sent as a bearer
// token; an empty credential sends none.
type Client struct {
	imagegen.Adapter
}

// New creates a Client for the functions host at baseURL. A non-empty anonKey
// is sent in the apikey header, which hosted function gateways require.
func New(baseURL, anonKey string) *Client {
	c := &Client{}
	c.BaseURL = baseURL
	if anonKey != "" {
		c.Headers = map[string]string{"apikey": anonKey}
	}

	return c
}

// NeedsCredential reports false: the vendor key lives on the server and the
// access key is optional.
func (c *Client) NeedsCredential() bool { return false }

// SubmitAndAwait asks generate-images for p.NumOutputs images.
func (c *Client) SubmitAndAwait(ctx context.Context, p imagegen.Params, credential string) ([]string, error) {
	var resp GenerateResponse
	if err := c.PostJSON(ctx, credential, GeneratePath, GenerateRequest{Prompt: p.Prompt, Count: p.NumOutputs}, &resp); err != nil {
		return nil, fmt.Errorf("proxy: generate images: %w", err)
	}

	if resp.Images == nil {
		return nil, imagegen.Errorf(imagegen.KindEmptyResult, "proxy: no images returned from generation service")
	}

	return urls(resp.Images), nil
}

// ConvertToOutline asks convert-to-outline for line-art versions of imageURL.
func (c *Client) ConvertToOutline(ctx context.Context, imageURL string, style imagegen.OutlineStyle, credential string) ([]string, error) {
	var resp ConvertResponse
	if err := c.PostJSON(ctx, credential, ConvertPath, ConvertRequest{ImageURL: imageURL, Style: style.String()}, &resp); err != nil {
		return nil, fmt.Errorf("proxy: convert to outline: %w", err)
	}

	if resp.Outlines == nil {
		return nil, imagegen.Errorf(imagegen.KindEmptyResult, "proxy: no outlines returned from conversion service")
	}

	return urls(resp.Outlines), nil
}

func urls(images []Image) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		if img.URL != "" {
			out = append(out, img.URL)
		}
	}

	return out
}
