package application

import (
	"bytes"
	"context"

	"chaos-car/internal/domain"
)

// CommandSource feeds the headless loop. Each payload is either recorded
// audio or text built with TextCommand.
type CommandSource interface {
	Start(ctx context.Context) error
	Stop() error
	NextCommand(ctx context.Context) ([]byte, error)
	Name() string
}

// TextCommand wraps a transcript so Run skips speech-to-text for it.
func TextCommand(text string) []byte {
	return []byte(domain.TextCommandPrefix + text)
}

// IsTextCommand reports whether payload carries text rather than audio.
func IsTextCommand(payload []byte) (string, bool) {
	prefix := []byte(domain.TextCommandPrefix)
	if len(payload) <= len(prefix) || !bytes.HasPrefix(payload, prefix) {
		return "", false
	}
	return string(payload[len(prefix):]), true
}
