package invoker

import "context"

// Invoker calls a remote function with a JSON payload and returns its raw JSON response.
//
// Implementations unwrap transport framing but leave the application payload untouched.
type Invoker interface {
	InvokeJSON(ctx context.Context, function string, payload any) ([]byte, error)
}
