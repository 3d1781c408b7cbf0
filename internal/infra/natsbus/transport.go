// Package natsbus exposes the assistant as a NATS request/reply service so
// other processes in the car can send it commands.
package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"chaos-car/internal/application"
)

const DefaultSubject = "car.command"

// Processor is the part of the assistant this transport drives.
type Processor interface {
	Process(ctx context.Context, text string) (application.Result, error)
	ProcessWithChaos(ctx context.Context, text string, pct float64) (application.Result, error)
}

type Request struct {
	Text     string   `json:"text"`
	ChaosPct *float64 `json:"chaos_pct,omitempty"`
}

type ErrorReply struct {
	Error string `json:"error"`
}

type Options struct {
	URL     string
	Subject string
	Name    string
	// Timeout bounds one request, including model retries.
	Timeout time.Duration
}

type Transport struct {
	conn      *nats.Conn
	sub       *nats.Subscription
	processor Processor
	opts      Options
	logger    *slog.Logger
}

func Connect(opts Options, processor Processor, logger *slog.Logger) (*Transport, error) {
	if opts.URL == "" {
		opts.URL = nats.DefaultURL
	}
	if opts.Subject == "" {
		opts.Subject = DefaultSubject
	}
	if opts.Name == "" {
		opts.Name = "chaos-car"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	conn, err := nats.Connect(opts.URL,
		nats.Name(opts.Name),
		nats.Timeout(5*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	logger.Info("connected to NATS", "url", opts.URL)
	return &Transport{conn: conn, processor: processor, opts: opts, logger: logger}, nil
}

func (t *Transport) Start() error {
	sub, err := t.conn.Subscribe(t.opts.Subject, t.handleMsg)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", t.opts.Subject, err)
	}
	t.sub = sub
	t.logger.Info("subscribed", "subject", t.opts.Subject)
	return nil
}

// Run subscribes and blocks until ctx is done.
func (t *Transport) Run(ctx context.Context) error {
	if err := t.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return t.Close()
}

func (t *Transport) Close() error {
	if t.sub != nil {
		if err := t.sub.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			t.logger.Warn("draining subscription", "error", err)
		}
	}
	if t.conn != nil {
		t.conn.Close()
		t.logger.Info("NATS connection closed")
	}
	return nil
}

func (t *Transport) handleMsg(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), t.opts.Timeout)
	defer cancel()

	reply := HandleRequest(ctx, t.processor, msg.Data, t.logger)
	if msg.Reply == "" {
		return
	}
	if err := msg.Respond(reply); err != nil {
		t.logger.Error("sending reply", "error", err)
	}
}

// HandleRequest decodes one request, runs it and returns the encoded reply:
// a Result on success, an ErrorReply otherwise.
func HandleRequest(ctx context.Context, p Processor, data []byte, logger *slog.Logger) []byte {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		logger.Warn("invalid NATS request", "error", err)
		return encodeError("invalid request format")
	}

	var (
		res application.Result
		err error
	)
	if req.ChaosPct != nil {
		res, err = p.ProcessWithChaos(ctx, req.Text, *req.ChaosPct)
	} else {
		res, err = p.Process(ctx, req.Text)
	}
	if err != nil {
		if errors.Is(err, application.ErrEmptyCommand) {
			return encodeError("empty text")
		}
		logger.Error("processing NATS request", "error", err)
		return encodeError(application.FailureResponse)
	}

	out, err := json.Marshal(res)
	if err != nil {
		logger.Error("encoding result", "error", err)
		return encodeError(application.FailureResponse)
	}
	logger.Info("processed command via NATS", "text", req.Text, "response", res.Response)
	return out
}

func encodeError(message string) []byte {
	out, _ := json.Marshal(ErrorReply{Error: message})
	return out
}
