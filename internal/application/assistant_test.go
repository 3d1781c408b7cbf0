package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"chaos-car/internal/application"
	"chaos-car/internal/chaos"
	"chaos-car/internal/domain"
	"chaos-car/internal/infra"
	"chaos-car/internal/llm"
	"chaos-car/internal/vehicle"
)

type mockSource struct {
	commands [][]byte
	index    int
}

func (m *mockSource) Start(_ context.Context) error { return nil }
func (m *mockSource) Stop() error                   { return nil }
func (m *mockSource) Name() string                  { return "mock" }

func (m *mockSource) NextCommand(ctx context.Context) ([]byte, error) {
	if m.index >= len(m.commands) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	payload := m.commands[m.index]
	m.index++
	return payload, nil
}

type mockSTT struct {
	transcriptions map[string]string
}

func (m *mockSTT) Transcribe(_ context.Context, audio []byte) (string, error) {
	if text, ok := m.transcriptions[string(audio)]; ok {
		return text, nil
	}
	return "", errors.New("inaudible")
}

type mockExtractor struct {
	intents map[string]domain.Intent
}

func (m *mockExtractor) Provider() string { return "mock" }

func (m *mockExtractor) GetIntent(_ context.Context, text string) llm.Extraction {
	if in, ok := m.intents[text]; ok {
		return llm.Extraction{Intent: in, Source: llm.SourceModel, Attempts: 1}
	}
	return llm.Extraction{Intent: llm.FallbackIntent(text), Source: llm.SourceFallback}
}

// noChaos leaves everything but unknown intents alone.
type noChaos struct{}

func (noChaos) Apply(in domain.Intent, _ float64) domain.Intent { return in }

type panicVehicle struct{}

func (panicVehicle) PerformAction(domain.Intent) string { panic("steering column fell off") }
func (panicVehicle) Snapshot() domain.VehicleState      { return domain.VehicleState{} }
func (panicVehicle) Reset()                             {}

type recordingAnnouncer struct {
	mu    sync.Mutex
	said  []string
	spoke chan struct{}
}

func (r *recordingAnnouncer) Enqueue(text string) error {
	r.mu.Lock()
	r.said = append(r.said, text)
	r.mu.Unlock()
	if r.spoke != nil {
		r.spoke <- struct{}{}
	}
	return nil
}

func (r *recordingAnnouncer) Silence() int { return 0 }

func (r *recordingAnnouncer) lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.said...)
}

type recordingNotifier struct {
	messages []string
}

func (r *recordingNotifier) Notify(_ context.Context, message string) error {
	r.messages = append(r.messages, message)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAssistant(deps application.Deps) *application.Assistant {
	if deps.Logger == nil {
		deps.Logger = discardLogger()
	}
	if deps.Extractor == nil {
		deps.Extractor = llm.NewExtractor(nil, infra.DefaultRetryConfig(), deps.Logger)
	}
	if deps.Chaos == nil {
		deps.Chaos = noChaos{}
	}
	if deps.Vehicle == nil {
		deps.Vehicle = vehicle.NewDispatcher(deps.Logger)
	}
	return application.NewAssistant(deps)
}

func TestAssistant_Process(t *testing.T) {
	notifier := &recordingNotifier{}
	a := newAssistant(application.Deps{
		Extractor: &mockExtractor{intents: map[string]domain.Intent{
			"Play some muisc": domain.NewIntent(domain.ActionMusic, "play", ""),
		}},
		Notifier: notifier,
	})

	res, err := a.Process(context.Background(), "Play some muisc")
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}

	if res.NormalizedText != "play some muisc" {
		t.Errorf("NormalizedText: got %q", res.NormalizedText)
	}
	if res.Source != llm.SourceModel {
		t.Errorf("Source: got %s, want model", res.Source)
	}
	if res.Response != "Music started" {
		t.Errorf("Response: got %q, want Music started", res.Response)
	}
	if !res.Vehicle.MusicPlaying {
		t.Error("music should be playing")
	}
	if res.Chaos {
		t.Error("chaos should not be reported")
	}
	if !res.Speak {
		t.Error("responses are spoken by default")
	}
	if len(notifier.messages) != 1 || notifier.messages[0] != "Music started" {
		t.Errorf("notifications: got %v", notifier.messages)
	}
}

func TestAssistant_ProcessWithChaos(t *testing.T) {
	a := newAssistant(application.Deps{
		Extractor: &mockExtractor{intents: map[string]domain.Intent{
			"turn left": domain.NewIntent(domain.ActionNavigate, "left", ""),
		}},
		Chaos: chaos.NewSeeded(1),
	})

	res, err := a.ProcessWithChaos(context.Background(), "turn left", 100)
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}

	if !res.Chaos {
		t.Error("chaos should be reported")
	}
	if res.Response != "Turning right (Chaos inverted: left → right)" {
		t.Errorf("Response: got %q", res.Response)
	}
	if res.Vehicle.Direction != domain.DirectionRight {
		t.Errorf("Direction: got %s, want right", res.Vehicle.Direction)
	}
	if got := a.Settings().Get().ChaosPct; got != 70 {
		t.Errorf("override leaked into settings: %v", got)
	}
}

func TestAssistant_ProcessEmpty(t *testing.T) {
	a := newAssistant(application.Deps{})

	if _, err := a.Process(context.Background(), "   "); !errors.Is(err, application.ErrEmptyCommand) {
		t.Errorf("error: got %v, want ErrEmptyCommand", err)
	}
}

func TestAssistant_ProcessRecoversFromPanic(t *testing.T) {
	a := newAssistant(application.Deps{Vehicle: panicVehicle{}})

	res, err := a.Process(context.Background(), "stop")
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if res.Response != application.FailureResponse {
		t.Errorf("Response: got %q", res.Response)
	}
	if res.Error == "" {
		t.Error("Error should describe the panic")
	}
}

func TestAssistant_ProcessAudioWithoutSTT(t *testing.T) {
	a := newAssistant(application.Deps{})

	_, err := a.ProcessAudio(context.Background(), []byte("RIFF"))
	if !errors.Is(err, application.ErrSTTUnavailable) {
		t.Errorf("error: got %v, want ErrSTTUnavailable", err)
	}
}

func TestAssistant_Run(t *testing.T) {
	announcer := &recordingAnnouncer{spoke: make(chan struct{}, 4)}
	source := &mockSource{
		commands: [][]byte{
			[]byte("prende musica"),
			[]byte(domain.TextCommandPrefix + "ac off"),
		},
	}

	a := newAssistant(application.Deps{
		Source:    source,
		STT:       &mockSTT{transcriptions: map[string]string{"prende musica": "play music"}},
		Announcer: announcer,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-announcer.spoke:
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for commands to be processed")
		}
	}

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Run error: got %v, want context.Canceled", err)
	}

	got := announcer.lines()
	if len(got) != 2 || got[0] != "Music started" || got[1] != "AC turned off" {
		t.Errorf("spoken: got %v", got)
	}
}

func TestAssistant_RunSilentWhenSpeakDisabled(t *testing.T) {
	announcer := &recordingAnnouncer{}
	source := &mockSource{commands: [][]byte{[]byte(domain.TextCommandPrefix + "stop")}}
	settings := application.NewSettings(application.SettingsValues{ChaosPct: 0})
	dispatcher := vehicle.NewDispatcher(discardLogger())

	a := newAssistant(application.Deps{
		Source:    source,
		Announcer: announcer,
		Settings:  settings,
		Vehicle:   dispatcher,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_ = a.Run(ctx)

	if len(announcer.lines()) != 0 {
		t.Errorf("nothing should be spoken, got %v", announcer.lines())
	}
	if source.index != 1 {
		t.Errorf("command should have been consumed")
	}
}

func TestAssistant_RunWithoutSource(t *testing.T) {
	a := newAssistant(application.Deps{})

	if err := a.Run(context.Background()); err == nil {
		t.Error("expected error without a command source")
	}
}

// gateExtractor blocks in GetIntent until release is closed.
type gateExtractor struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gateExtractor) Provider() string { return "gate" }

func (g *gateExtractor) GetIntent(_ context.Context, text string) llm.Extraction {
	g.entered <- struct{}{}
	<-g.release
	return llm.Extraction{Intent: llm.FallbackIntent(text), Source: llm.SourceFallback}
}

func TestAssistant_ProcessGivesUpWaitingForPreviousCommand(t *testing.T) {
	gate := &gateExtractor{entered: make(chan struct{}, 1), release: make(chan struct{})}
	a := newAssistant(application.Deps{Extractor: gate})

	first := make(chan error, 1)
	go func() {
		_, err := a.Process(context.Background(), "turn left")
		first <- err
	}()
	select {
	case <-gate.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first command never reached the extractor")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := a.Process(ctx, "stop"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error: got %v, want context.DeadlineExceeded", err)
	}

	close(gate.release)
	if err := <-first; err != nil {
		t.Errorf("first command: %v", err)
	}
	if got := a.Vehicle().Snapshot().Direction; got != domain.DirectionLeft {
		t.Errorf("only the first command should have reached the vehicle, direction %s", got)
	}
}
