package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chaos-car/internal/application"
	"chaos-car/internal/speech"
)

const (
	writeWait    = 10 * time.Second
	maxFrameSize = 64 * 1024
)

// Message types exchanged over /ws.
const (
	MsgTranscript = "transcript"
	MsgError      = "error"
	MsgSilence    = "silence"
	MsgSettings   = "settings"
	MsgSpoken     = "spoken"
	MsgInterim    = "interim"
	MsgResult     = "result"
	MsgSpeak      = "speak"
)

// ClientMessage is a frame sent by the browser: transcripts from its speech
// recognizer, capture errors, speech control and settings changes.
type ClientMessage struct {
	Type     string                     `json:"type"`
	Text     string                     `json:"text,omitempty"`
	Final    bool                       `json:"final,omitempty"`
	Message  string                     `json:"message,omitempty"`
	Settings *application.SettingsPatch `json:"settings,omitempty"`
}

// ServerMessage is a frame sent to the browser.
type ServerMessage struct {
	Type     string                      `json:"type"`
	Text     string                      `json:"text,omitempty"`
	Message  string                      `json:"message,omitempty"`
	Result   *application.Result         `json:"result,omitempty"`
	Settings *application.SettingsValues `json:"settings,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The page is usually served from a different origin during development
	// (file:// or a dev server); access is controlled by the auth token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type session struct {
	server *Server
	conn   *websocket.Conn
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	writeMu   sync.Mutex
	queue     *speech.Queue
	debouncer *speech.FinalDebouncer
	spoken    chan struct{}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxFrameSize)

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		server: s,
		conn:   conn,
		logger: s.logger.With("remote_addr", r.RemoteAddr),
		ctx:    ctx,
		cancel: cancel,
		spoken: make(chan struct{}, 1),
	}
	sess.queue = speech.NewQueue(&clientSpeaker{sess: sess, timeout: s.opts.SpeakTimeout}, sess.logger)
	sess.debouncer = speech.NewFinalDebouncer(s.opts.Debounce, sess.processFinal)

	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	sess.logger.Info("speech session opened")
	go func() {
		defer s.wg.Done()
		sess.readLoop()
		sess.shutdown()

		s.mu.Lock()
		delete(s.sessions, sess)
		s.mu.Unlock()
		sess.logger.Info("speech session closed")
	}()
}

// close interrupts the read loop; cleanup happens on the session goroutine.
func (sess *session) close() {
	sess.cancel()
	sess.conn.Close()
}

func (sess *session) shutdown() {
	sess.cancel()
	sess.debouncer.Stop()
	sess.queue.Close()
	sess.conn.Close()
}

func (sess *session) readLoop() {
	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && sess.ctx.Err() == nil {
				sess.logger.Warn("reading websocket", "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sess.send(ServerMessage{Type: MsgError, Message: "invalid message"})
			continue
		}
		sess.handle(msg)
	}
}

func (sess *session) handle(msg ClientMessage) {
	settings := sess.server.pipeline.Settings()

	switch msg.Type {
	case MsgTranscript:
		text := strings.TrimSpace(msg.Text)
		if !msg.Final {
			if text != "" && settings.Get().StreamInterim {
				sess.send(ServerMessage{Type: MsgInterim, Text: text})
			}
			return
		}
		sess.debouncer.Final(text)

	case MsgError:
		sess.logger.Warn("speech capture error", "message", msg.Message)
		sess.send(ServerMessage{Type: MsgError, Message: fmt.Sprintf("Speech recognition error: %s", msg.Message)})

	case MsgSilence:
		dropped := sess.queue.Silence()
		sess.debouncer.Reset()
		sess.logger.Debug("speech silenced", "dropped", dropped)

	case MsgSpoken:
		select {
		case sess.spoken <- struct{}{}:
		default:
		}

	case MsgSettings:
		if msg.Settings == nil {
			sess.send(ServerMessage{Type: MsgError, Message: "settings message without settings"})
			return
		}
		values := settings.Apply(*msg.Settings)
		sess.send(ServerMessage{Type: MsgSettings, Settings: &values})

	default:
		sess.send(ServerMessage{Type: MsgError, Message: fmt.Sprintf("unknown message type %q", msg.Type)})
	}
}

// processFinal runs on the debouncer's timer once a final transcript settles.
func (sess *session) processFinal(text string) {
	res, err := sess.server.pipeline.Process(sess.ctx, text)
	if err != nil {
		if !errors.Is(err, application.ErrEmptyCommand) {
			sess.logger.Error("processing transcript", "error", err)
			sess.send(ServerMessage{Type: MsgError, Message: application.FailureResponse})
		}
		return
	}

	sess.send(ServerMessage{Type: MsgResult, Result: &res})
	if res.Speak {
		if err := sess.queue.Enqueue(res.Response); err != nil && !errors.Is(err, speech.ErrQueueClosed) {
			sess.logger.Warn("queueing speech", "error", err)
		}
	}
}

func (sess *session) send(msg ServerMessage) error {
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()

	sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := sess.conn.WriteJSON(msg); err != nil {
		if sess.ctx.Err() == nil {
			sess.logger.Warn("writing websocket", "type", msg.Type, "error", err)
		}
		return err
	}
	return nil
}

// clientSpeaker hands an utterance to the browser's speech synthesis and
// waits until the browser reports it finished, so the queue never talks over
// itself.
type clientSpeaker struct {
	sess    *session
	timeout time.Duration
}

func (c *clientSpeaker) Speak(ctx context.Context, text string) error {
	// stale acknowledgement from an utterance that was silenced
	select {
	case <-c.sess.spoken:
	default:
	}

	if err := c.sess.send(ServerMessage{Type: MsgSpeak, Text: text}); err != nil {
		return fmt.Errorf("sending speak frame: %w", err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case <-c.sess.spoken:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("no playback acknowledgement after %s", c.timeout)
	}
}
