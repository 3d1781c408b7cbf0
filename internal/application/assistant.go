package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/semaphore"

	"chaos-car/internal/domain"
	"chaos-car/internal/llm"
)

// ErrEmptyCommand is returned by Process for blank transcripts.
var ErrEmptyCommand = errors.New("empty command")

// FailureResponse is spoken when the pipeline breaks unexpectedly.
const FailureResponse = "Sorry, something went wrong"

// Result describes every stage of one utterance, for display and debugging.
type Result struct {
	RawText        string              `json:"raw_text"`
	NormalizedText string              `json:"normalized_text"`
	ModelIntent    domain.Intent       `json:"model_intent"`
	Source         llm.Source          `json:"source"`
	Attempts       int                 `json:"attempts"`
	FinalIntent    domain.Intent       `json:"final_intent"`
	Chaos          bool                `json:"chaos"`
	ChaosPct       float64             `json:"chaos_pct"`
	Response       string              `json:"response"`
	Speak          bool                `json:"speak"`
	Error          string              `json:"error,omitempty"`
	Vehicle        domain.VehicleState `json:"vehicle"`
}

type Assistant struct {
	source    CommandSource
	stt       SpeechToText
	extractor IntentExtractor
	chaos     IntentTransformer
	vehicle   Vehicle
	announcer Announcer
	notifier  Notifier
	settings  *Settings
	logger    *slog.Logger

	// one utterance at a time, whichever transport it came from
	turn *semaphore.Weighted
}

type Deps struct {
	Source    CommandSource
	STT       SpeechToText
	Extractor IntentExtractor
	Chaos     IntentTransformer
	Vehicle   Vehicle
	Announcer Announcer
	Notifier  Notifier
	Settings  *Settings
	Logger    *slog.Logger
}

func NewAssistant(d Deps) *Assistant {
	a := &Assistant{
		source:    d.Source,
		stt:       d.STT,
		extractor: d.Extractor,
		chaos:     d.Chaos,
		vehicle:   d.Vehicle,
		announcer: d.Announcer,
		notifier:  d.Notifier,
		settings:  d.Settings,
		logger:    d.Logger,
		turn:      semaphore.NewWeighted(1),
	}
	if a.stt == nil {
		a.stt = &NoopSTT{}
	}
	if a.announcer == nil {
		a.announcer = NoopAnnouncer{}
	}
	if a.notifier == nil {
		a.notifier = NoopNotifier{}
	}
	if a.settings == nil {
		a.settings = NewSettings(DefaultSettings())
	}
	return a
}

func (a *Assistant) Settings() *Settings {
	return a.settings
}

func (a *Assistant) Vehicle() Vehicle {
	return a.vehicle
}

func (a *Assistant) Announcer() Announcer {
	return a.announcer
}

func (a *Assistant) Provider() string {
	return a.extractor.Provider()
}

// Process runs text through extraction, chaos and the vehicle using the
// current settings.
func (a *Assistant) Process(ctx context.Context, text string) (Result, error) {
	return a.process(ctx, text, a.settings.Get())
}

// ProcessWithChaos is Process with the chaos level overridden for this
// utterance only.
func (a *Assistant) ProcessWithChaos(ctx context.Context, text string, pct float64) (Result, error) {
	s := a.settings.Get()
	s.ChaosPct = ClampChaos(pct)
	return a.process(ctx, text, s)
}

func (a *Assistant) process(ctx context.Context, text string, s SettingsValues) (res Result, err error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyCommand
	}

	if err := a.turn.Acquire(ctx, 1); err != nil {
		return Result{}, fmt.Errorf("waiting for the previous command: %w", err)
	}
	defer a.turn.Release(1)

	stage := slog.LevelDebug
	if s.DebugLogs {
		stage = slog.LevelInfo
	}

	res = Result{
		RawText:        text,
		NormalizedText: strings.ToLower(strings.TrimSpace(text)),
		ChaosPct:       s.ChaosPct,
		Speak:          s.SpeakResponses,
	}
	a.logger.Log(ctx, stage, "raw transcript", "text", res.RawText, "normalized", res.NormalizedText)

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("pipeline panicked", "panic", r, "text", text)
			res.Response = FailureResponse
			res.Error = fmt.Sprint(r)
			err = nil
		}
	}()

	extraction := a.extractor.GetIntent(ctx, text)
	res.ModelIntent = extraction.Intent
	res.Source = extraction.Source
	res.Attempts = extraction.Attempts
	if extraction.Err != nil {
		res.Error = extraction.Err.Error()
	}
	a.logger.Log(ctx, stage, "extracted intent",
		"action", extraction.Intent.Action,
		"target", extraction.Intent.TargetOr(""),
		"source", extraction.Source,
	)

	res.FinalIntent = a.chaos.Apply(extraction.Intent, s.ChaosPct)
	res.Chaos = !res.FinalIntent.Equal(extraction.Intent)
	a.logger.Log(ctx, stage, "final intent",
		"action", res.FinalIntent.Action,
		"target", res.FinalIntent.TargetOr(""),
		"chaos", res.Chaos,
	)

	res.Response = a.vehicle.PerformAction(res.FinalIntent)
	res.Vehicle = a.vehicle.Snapshot()

	if err := a.notifier.Notify(ctx, res.Response); err != nil {
		a.logger.Error("notifying result", "error", err)
	}

	return res, nil
}

// ProcessAudio transcribes audio and processes the transcript.
func (a *Assistant) ProcessAudio(ctx context.Context, audio []byte) (Result, error) {
	text, err := a.stt.Transcribe(ctx, audio)
	if err != nil {
		return Result{}, fmt.Errorf("transcribing: %w", err)
	}
	a.logger.Info("transcribed", "text", text)
	return a.Process(ctx, text)
}

// Run reads commands from the configured source until ctx is done, speaking
// each response through the announcer.
func (a *Assistant) Run(ctx context.Context) error {
	if a.source == nil {
		return errors.New("no command source configured")
	}

	a.logger.Info("starting command source", "source", a.source.Name())
	if err := a.source.Start(ctx); err != nil {
		return fmt.Errorf("starting source: %w", err)
	}
	defer a.source.Stop()

	a.logger.Info("assistant ready, listening for commands")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := a.processOneCommand(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				a.logger.Error("processing command", "error", err)
			}
		}
	}
}

func (a *Assistant) processOneCommand(ctx context.Context) error {
	payload, err := a.source.NextCommand(ctx)
	if err != nil {
		return fmt.Errorf("getting command: %w", err)
	}

	if len(payload) == 0 {
		return nil
	}

	var res Result
	if text, isText := IsTextCommand(payload); isText {
		a.logger.Info("received text command", "text", text)
		res, err = a.Process(ctx, text)
	} else {
		a.logger.Info("received audio", "bytes", len(payload))
		res, err = a.ProcessAudio(ctx, payload)
	}
	if err != nil {
		if !errors.Is(err, ErrEmptyCommand) {
			a.speak(FailureResponse)
		}
		return err
	}

	if res.Speak {
		a.speak(res.Response)
	}
	return nil
}

func (a *Assistant) speak(text string) {
	if err := a.announcer.Enqueue(text); err != nil {
		a.logger.Warn("queueing speech", "error", err)
	}
}
