// Package postmeta enriches short posts with model-derived metadata and
// canonicalizes their tags across a batch.
//
// The subpackages hold the pieces: sanitize cleans post text, metadata runs
// per-post extraction, tags unifies the tag vocabulary, and pipeline drives
// them over a corpus. Everything that talks to a language model goes through
// the Invoker defined here.
package postmeta

import "context"

// Response is the raw reply of a model invocation.
type Response struct {
	Content string
}

// Invoker sends a single prompt to a language model.
// Implementations own transport concerns (timeouts, retries, auth); callers
// treat Content as untrusted text.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (Response, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, prompt string) (Response, error)

// Invoke implements Invoker.
func (f InvokerFunc) Invoke(ctx context.Context, prompt string) (Response, error) {
	return f(ctx, prompt)
}
