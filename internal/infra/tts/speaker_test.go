package tts

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLogSpeaker(t *testing.T) {
	var buf bytes.Buffer
	s := LogSpeaker{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	if err := s.Speak(context.Background(), "Turning left"); err != nil {
		t.Fatalf("Speak error: %v", err)
	}
	if !strings.Contains(buf.String(), `text="Turning left"`) {
		t.Errorf("log: got %s", buf.String())
	}
}

func TestEspeakSpeaker_Args(t *testing.T) {
	s := &EspeakSpeaker{binary: "espeak-ng", voice: "en-us", speed: 160}

	got := strings.Join(s.args("-1 points"), " ")
	if got != "-v en-us -s 160 -- -1 points" {
		t.Errorf("args: got %q", got)
	}

	bare := &EspeakSpeaker{binary: "espeak-ng"}
	if got := strings.Join(bare.args("hi"), " "); got != "-- hi" {
		t.Errorf("args: got %q", got)
	}
}

func TestEspeakSpeaker_ReportsFailure(t *testing.T) {
	s := &EspeakSpeaker{binary: "/nonexistent/espeak-ng"}
	if err := s.Speak(context.Background(), "hello"); err == nil {
		t.Error("expected error for missing binary")
	}
}
