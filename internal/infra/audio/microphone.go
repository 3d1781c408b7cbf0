//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"
)

const framesPerBuffer = 1024

// MicrophoneSource records one utterance per command from the default input
// device, starting at the first loud frame and ending after a second of quiet.
type MicrophoneSource struct {
	stream     *portaudio.Stream
	frame      []int16
	sampleRate int
	logger     *slog.Logger
}

func NewMicrophoneSource(sampleRate int, logger *slog.Logger) *MicrophoneSource {
	return &MicrophoneSource{
		sampleRate: sampleRate,
		logger:     logger,
		frame:      make([]int16, framesPerBuffer),
	}
}

func (m *MicrophoneSource) Name() string {
	return "microphone"
}

func (m *MicrophoneSource) Start(_ context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), len(m.frame), m.frame)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening stream: %w", err)
	}
	m.stream = stream

	if err := m.stream.Start(); err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}

	m.logger.Info("microphone started", "sampleRate", m.sampleRate)
	return nil
}

func (m *MicrophoneSource) Stop() error {
	if m.stream != nil {
		m.stream.Stop()
		m.stream.Close()
	}
	portaudio.Terminate()
	return nil
}

func (m *MicrophoneSource) NextCommand(ctx context.Context) ([]byte, error) {
	m.logger.Debug("listening")

	u := newUtterance(m.sampleRate)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := m.stream.Read(); err != nil {
			return nil, fmt.Errorf("reading from stream: %w", err)
		}
		if u.add(m.frame) {
			break
		}
	}

	m.logger.Info("recorded utterance", "samples", len(u.samples))
	return EncodeWAV(u.samples, m.sampleRate), nil
}
