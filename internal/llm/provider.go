package llm

import (
	"context"
	"errors"
)

// ErrEmptyCompletion is returned by providers when the service answered
// without any text to parse.
var ErrEmptyCompletion = errors.New("empty completion")

// Completer sends one system instruction and one user prompt to a generative
// text service and returns the raw completion text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Name() string
}
