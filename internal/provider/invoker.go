// Package provider talks to the language-model provider that writes the forecast narration.
package provider

import "context"

// Invoker sends a prompt to a text-generation model and returns the raw text it produced.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, prompt string) (string, error)

func (f InvokerFunc) Invoke(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
