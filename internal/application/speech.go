package application

import (
	"context"
	"errors"
)

// ErrSTTUnavailable is returned when audio arrives but no transcription
// service is configured.
var ErrSTTUnavailable = errors.New("speech-to-text not configured: set stt.api_key to enable audio transcription")

type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// NoopSTT is used when only text arrives (browser speech engine, typed
// commands). It rejects audio.
type NoopSTT struct{}

func (n *NoopSTT) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return "", ErrSTTUnavailable
}

// Announcer queues a response to be spoken.
type Announcer interface {
	Enqueue(text string) error
	Silence() int
}

// NoopAnnouncer drops everything; used when no local voice is configured.
type NoopAnnouncer struct{}

func (NoopAnnouncer) Enqueue(string) error { return nil }
func (NoopAnnouncer) Silence() int         { return 0 }
