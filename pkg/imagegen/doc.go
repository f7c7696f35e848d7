// Package imagegen defines the contract every image-generation backend satisfies
// and the pieces they share.
//
// It contains:
//   - [Provider] and the optional [OutlineConverter] capability
//   - [Adapter], an embeddable HTTP base with auth, custom headers, and status classification
//   - the error taxonomy ([Kind], [Error], and the Err* sentinels) callers branch on
//   - [RateLimitedProvider], a throttling and 429-retry wrapper
//
// Concrete backends live in sub-packages:
//   - [github.com/germanamz/colorking/pkg/imagegen/openai]: synchronous, one request returns URLs
//   - [github.com/germanamz/colorking/pkg/imagegen/replicate]: asynchronous job plus polling
//   - [github.com/germanamz/colorking/pkg/imagegen/proxy]: same-origin functions holding the key server-side
package imagegen
