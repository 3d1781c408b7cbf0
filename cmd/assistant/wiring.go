package main

import (
	"context"
	"fmt"
	"log/slog"

	"chaos-car/config"
	"chaos-car/internal/application"
	"chaos-car/internal/chaos"
	"chaos-car/internal/infra"
	"chaos-car/internal/infra/anthropic"
	"chaos-car/internal/infra/audio"
	"chaos-car/internal/infra/gemini"
	"chaos-car/internal/infra/openai"
	"chaos-car/internal/infra/pushover"
	"chaos-car/internal/infra/tts"
	"chaos-car/internal/llm"
	"chaos-car/internal/speech"
	"chaos-car/internal/vehicle"
)

// components holds everything built from the config that needs closing.
type components struct {
	assistant  *application.Assistant
	extractor  *llm.Extractor
	chaos      *chaos.Transformer
	dispatcher *vehicle.Dispatcher
	queue      *speech.Queue
	source     application.CommandSource
}

func (c *components) Close() {
	if c.queue != nil {
		c.queue.Close()
	}
	c.dispatcher.Close()
}

type buildOptions struct {
	// headless wires the configured command source and local speaker.
	headless bool
}

func build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts buildOptions) (*components, error) {
	completer, err := newCompleter(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}

	retry := infra.DefaultRetryConfig()
	retry.MaxAttempts = cfg.LLM.MaxAttempts
	retry.InitialDelay = cfg.LLM.BaseDelay
	extractor := llm.NewExtractor(completer, retry, logger, llm.WithAttemptTimeout(cfg.LLM.Timeout))

	transformer := chaos.New(nil)
	if cfg.Chaos.Seed != 0 {
		transformer = chaos.NewSeeded(cfg.Chaos.Seed)
	}

	c := &components{
		extractor:  extractor,
		chaos:      transformer,
		dispatcher: vehicle.NewDispatcher(logger),
	}

	var stt application.SpeechToText
	if cfg.STT.APIKey != "" {
		stt = openai.NewWhisperClientWithURL(cfg.STT.APIKey, cfg.STT.Language, cfg.STT.BaseURL)
	}

	var notifier application.Notifier
	if cfg.Pushover.Enabled {
		notifier = pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey)
	}

	var announcer application.Announcer
	if speaker := newSpeaker(cfg.Speech, logger); speaker != nil {
		c.queue = speech.NewQueue(speaker, logger)
		announcer = c.queue
	}

	if opts.headless {
		c.source = newCommandSource(cfg.Source, logger)
	}

	c.assistant = application.NewAssistant(application.Deps{
		Source:    c.source,
		STT:       stt,
		Extractor: extractor,
		Chaos:     transformer,
		Vehicle:   c.dispatcher,
		Announcer: announcer,
		Notifier:  notifier,
		Settings: application.NewSettings(application.SettingsValues{
			ChaosPct:       cfg.Chaos.Percent,
			SpeakResponses: cfg.Speech.SpeakResponses,
			StreamInterim:  cfg.Speech.StreamInterim,
			DebugLogs:      cfg.Speech.DebugLogs,
		}),
		Logger: logger,
	})
	return c, nil
}

// newCompleter returns nil when no key is configured; the extractor then
// answers from keywords alone.
func newCompleter(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (llm.Completer, error) {
	if cfg.APIKey == "" {
		logger.Warn("no API key for intent service, using keyword matching only", "provider", cfg.Provider)
		return nil, nil
	}

	switch cfg.Provider {
	case "gemini":
		client, err := gemini.NewClientWithURL(ctx, cfg.APIKey, cfg.Model, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "openai":
		return openai.NewChatClientWithURL(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case "anthropic":
		if cfg.BaseURL != "" {
			return anthropic.NewClaudeClientWithURL(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
		}
		return anthropic.NewClaudeClient(cfg.APIKey, cfg.Model), nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}

func newSpeaker(cfg config.SpeechConfig, logger *slog.Logger) speech.Speaker {
	switch cfg.TTS {
	case "espeak":
		speaker, err := tts.NewEspeakSpeaker(cfg.Voice, cfg.Rate)
		if err != nil {
			logger.Warn("espeak unavailable, logging responses instead", "error", err)
			return tts.LogSpeaker{Logger: logger}
		}
		return speaker
	case "log":
		return tts.LogSpeaker{Logger: logger}
	}
	return nil
}

func newCommandSource(cfg config.SourceConfig, logger *slog.Logger) application.CommandSource {
	switch cfg.Kind {
	case "file":
		return audio.NewFileSource(cfg.FileDir, logger)
	case "microphone":
		return audio.NewMicrophoneSource(cfg.SampleRate, logger)
	}
	return nil
}
