// Package speech holds the transport-neutral halves of the speech adapters:
// the one-at-a-time output queue and the final-transcript debouncer.
package speech

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrQueueClosed is returned by Enqueue after Close.
var ErrQueueClosed = errors.New("speech queue closed")

// Speaker plays one utterance and returns when playback ends.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Queue plays utterances in FIFO order, one at a time. Enqueueing never
// interrupts the utterance being played and a failing utterance does not stop
// the ones behind it.
type Queue struct {
	speaker Speaker
	logger  *slog.Logger

	mu      sync.Mutex
	pending []string
	playing bool
	closed  bool
	wake    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewQueue(speaker Speaker, logger *slog.Logger) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		speaker: speaker,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) Enqueue(text string) error {
	if text == "" {
		return nil
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.pending = append(q.pending, text)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Silence drops every utterance that has not started yet.
func (q *Queue) Silence() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.pending)
	q.pending = nil
	return n
}

// Pending is the number of utterances waiting behind the current one.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close drops pending utterances, interrupts the current one through its
// context and waits for the worker to exit.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return nil
	}
	q.closed = true
	q.pending = nil
	q.mu.Unlock()

	q.cancel()
	<-q.done
	return nil
}

func (q *Queue) run() {
	defer close(q.done)

	for {
		text, ok := q.next()
		if !ok {
			select {
			case <-q.ctx.Done():
				return
			case <-q.wake:
				continue
			}
		}

		err := q.speaker.Speak(q.ctx, text)
		q.mu.Lock()
		q.playing = false
		q.mu.Unlock()

		if err != nil {
			if q.ctx.Err() != nil {
				return
			}
			q.logger.Warn("speaking failed, continuing with queue", "error", err, "text", text)
		}
	}
}

func (q *Queue) next() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return "", false
	}
	text := q.pending[0]
	q.pending = q.pending[1:]
	q.playing = true
	return text, true
}

// Flush waits until every queued utterance has been played.
func (q *Queue) Flush(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		q.mu.Lock()
		idle := len(q.pending) == 0 && !q.playing
		q.mu.Unlock()
		if idle {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.done:
			return ErrQueueClosed
		case <-ticker.C:
		}
	}
}
