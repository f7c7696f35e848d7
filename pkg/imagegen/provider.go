package imagegen

import "context"

// Params describes one generation request.
type Params struct {
	Prompt        string
	NumOutputs    int
	GuidanceScale float64
}

// Provider turns a prompt into image URLs. Synchronous backends answer inline;
// asynchronous ones submit a job and wait for it, but both block until the URLs
// are known or the call fails with a classified *Error.
type Provider interface {
	SubmitAndAwait(ctx context.Context, p Params, credential string) ([]string, error)
}

// OutlineConverter is implemented by providers that can turn an image into
// line-art variants.
type OutlineConverter interface {
	ConvertToOutline(ctx context.Context, imageURL string, style OutlineStyle, credential string) ([]string, error)
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func(ctx context.Context, p Params, credential string) ([]string, error)

// SubmitAndAwait calls the underlying function.
func (f ProviderFunc) SubmitAndAwait(ctx context.Context, p Params, credential string) ([]string, error) {
	return f(ctx, p, credential)
}

// NeedsCredential reports whether calls to p require a client-side
// credential. Providers that hold the vendor key elsewhere answer false
// through a NeedsCredential method; every other provider needs one.
func NeedsCredential(p Provider) bool {
	if c, ok := p.(interface{ NeedsCredential() bool }); ok {
		return c.NeedsCredential()
	}

	return true
}
