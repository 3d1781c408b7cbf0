// Package web serves the HTTP API and the WebSocket speech sessions that the
// browser front end talks to.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"chaos-car/internal/application"
)

const (
	maxAudioBytes   = 10 * 1024 * 1024
	maxCommandBytes = 4096

	// writeMargin is how much longer than RequestTimeout a handler may take
	// to encode and send its reply.
	writeMargin = 10 * time.Second
)

// Pipeline is the part of the assistant the transport needs.
type Pipeline interface {
	Process(ctx context.Context, text string) (application.Result, error)
	ProcessWithChaos(ctx context.Context, text string, pct float64) (application.Result, error)
	ProcessAudio(ctx context.Context, audio []byte) (application.Result, error)
	Settings() *application.Settings
	Vehicle() application.Vehicle
	Announcer() application.Announcer
	Provider() string
}

type Options struct {
	Addr       string
	AuthToken  string
	RateLimit  int
	RateWindow time.Duration
	// Debounce is the quiet period before a final transcript is processed.
	Debounce time.Duration
	// RequestTimeout bounds the pipeline for one command or audio upload.
	// When it expires the extractor falls back to keywords, so the reply
	// still carries a Result.
	RequestTimeout time.Duration
	// SpeakTimeout bounds how long a session waits for the browser to report
	// that an utterance finished.
	SpeakTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		Addr:           ":8080",
		RateLimit:      30,
		RateWindow:     time.Minute,
		Debounce:       500 * time.Millisecond,
		SpeakTimeout:   15 * time.Second,
		RequestTimeout: 45 * time.Second,
	}
}

type Server struct {
	pipeline    Pipeline
	opts        Options
	logger      *slog.Logger
	mux         *http.ServeMux
	rateLimiter *RateLimiter

	mu       sync.Mutex
	sessions map[*session]struct{}
	wg       sync.WaitGroup
}

func NewServer(pipeline Pipeline, opts Options, logger *slog.Logger) *Server {
	def := DefaultOptions()
	if opts.Addr == "" {
		opts.Addr = def.Addr
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = def.RateLimit
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = def.RateWindow
	}
	if opts.Debounce <= 0 {
		opts.Debounce = def.Debounce
	}
	if opts.SpeakTimeout <= 0 {
		opts.SpeakTimeout = def.SpeakTimeout
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = def.RequestTimeout
	}

	s := &Server{
		pipeline:    pipeline,
		opts:        opts,
		logger:      logger,
		mux:         http.NewServeMux(),
		rateLimiter: NewRateLimiter(opts.RateLimit, opts.RateWindow),
		sessions:    make(map[*session]struct{}),
	}

	api := func(h http.HandlerFunc) http.HandlerFunc {
		return s.rateLimiter.Middleware(requireToken(opts.AuthToken, logger, h))
	}

	s.mux.HandleFunc("POST /api/command", api(s.handleCommand))
	s.mux.HandleFunc("POST /api/audio", api(s.handleAudio))
	s.mux.HandleFunc("GET /api/state", api(s.handleState))
	s.mux.HandleFunc("POST /api/state/reset", api(s.handleReset))
	s.mux.HandleFunc("GET /api/settings", api(s.handleGetSettings))
	s.mux.HandleFunc("PUT /api/settings", api(s.handlePutSettings))
	s.mux.HandleFunc("POST /api/speech/silence", api(s.handleSilence))
	s.mux.HandleFunc("GET /ws", requireToken(opts.AuthToken, logger, s.handleWebSocket))
	// No rate limiting or auth on health check
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until ctx is done, then shuts down and closes open sessions.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.opts.RequestTimeout + writeMargin,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server starting", "addr", s.opts.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}
	s.CloseSessions()
	<-errCh
	return nil
}

// CloseSessions ends every open WebSocket session and waits for them.
func (s *Server) CloseSessions() {
	s.mu.Lock()
	for sess := range s.sessions {
		sess.close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

type commandRequest struct {
	Text     string   `json:"text"`
	ChaosPct *float64 `json:"chaos_pct,omitempty"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req commandRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxCommandBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()

	var (
		res application.Result
		err error
	)
	if req.ChaosPct != nil {
		res, err = s.pipeline.ProcessWithChaos(ctx, req.Text, *req.ChaosPct)
	} else {
		res, err = s.pipeline.Process(ctx, req.Text)
	}
	switch {
	case err == nil:
	case errors.Is(err, application.ErrEmptyCommand):
		writeError(w, http.StatusBadRequest, "empty text")
		return
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "assistant busy, try again")
		return
	default:
		s.logger.Error("processing command", "error", err)
		writeError(w, http.StatusInternalServerError, application.FailureResponse)
		return
	}

	s.logger.Info("processed command via HTTP", "text", req.Text, "response", res.Response)
	s.announce(res)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	data, err := io.ReadAll(io.LimitReader(r.Body, maxAudioBytes))
	if err != nil {
		s.logger.Error("reading audio body", "error", err)
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty audio")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()

	res, err := s.pipeline.ProcessAudio(ctx, data)
	switch {
	case err == nil:
	case errors.Is(err, application.ErrSTTUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case errors.Is(err, application.ErrEmptyCommand):
		writeError(w, http.StatusUnprocessableEntity, "no speech recognized")
		return
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "assistant busy, try again")
		return
	default:
		s.logger.Warn("transcription failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.logger.Info("processed audio via HTTP", "bytes", len(data), "response", res.Response)
	s.announce(res)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Vehicle().Snapshot())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.pipeline.Vehicle().Reset()
	s.pipeline.Announcer().Silence()
	s.logger.Info("vehicle state reset")
	writeJSON(w, http.StatusOK, s.pipeline.Vehicle().Snapshot())
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Settings().Get())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var patch application.SettingsPatch
	if err := json.NewDecoder(io.LimitReader(r.Body, maxCommandBytes)).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	values := s.pipeline.Settings().Apply(patch)
	s.logger.Info("settings updated", "chaos_pct", values.ChaosPct, "speak", values.SpeakResponses)
	writeJSON(w, http.StatusOK, values)
}

func (s *Server) handleSilence(w http.ResponseWriter, r *http.Request) {
	dropped := s.pipeline.Announcer().Silence()
	writeJSON(w, http.StatusOK, map[string]int{"dropped": dropped})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sessions := len(s.sessions)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"provider": s.pipeline.Provider(),
		"sessions": sessions,
	})
}

func (s *Server) announce(res application.Result) {
	if !res.Speak {
		return
	}
	if err := s.pipeline.Announcer().Enqueue(res.Response); err != nil {
		s.logger.Warn("queueing speech", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
