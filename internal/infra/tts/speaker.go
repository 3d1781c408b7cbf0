// Package tts provides local speakers for the headless speech queue.
package tts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// LogSpeaker writes utterances to the log instead of a sound card.
type LogSpeaker struct {
	Logger *slog.Logger
}

func (s LogSpeaker) Speak(_ context.Context, text string) error {
	s.Logger.Info("speaking", "text", text)
	return nil
}

// EspeakSpeaker runs espeak-ng (or espeak) once per utterance and blocks until
// playback finishes. Cancelling ctx kills the process.
type EspeakSpeaker struct {
	binary string
	voice  string
	speed  int
}

func NewEspeakSpeaker(voice string, speed int) (*EspeakSpeaker, error) {
	bin, err := findEspeak()
	if err != nil {
		return nil, err
	}
	return &EspeakSpeaker{binary: bin, voice: voice, speed: speed}, nil
}

func findEspeak() (string, error) {
	for _, name := range []string{"espeak-ng", "espeak"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("espeak-ng not found in PATH")
}

func (s *EspeakSpeaker) args(text string) []string {
	var args []string
	if s.voice != "" {
		args = append(args, "-v", s.voice)
	}
	if s.speed > 0 {
		args = append(args, "-s", strconv.Itoa(s.speed))
	}
	// "--" keeps text starting with a dash from being read as a flag
	return append(args, "--", text)
}

func (s *EspeakSpeaker) Speak(ctx context.Context, text string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.binary, s.args(text)...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("running %s: %w: %s", s.binary, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
