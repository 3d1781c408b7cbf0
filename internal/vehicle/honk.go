package vehicle

import (
	"log/slog"
	"sync"
	"time"
)

const (
	honkDelay    = 500 * time.Millisecond
	honkInterval = 200 * time.Millisecond
	honkCount    = 5
)

// Horn receives each honk of a sequence.
type Horn interface {
	Honk()
}

// LogHorn honks into the log.
type LogHorn struct {
	Logger *slog.Logger
}

func (h LogHorn) Honk() {
	h.Logger.Info("HONK!")
}

// HonkSequence is five honks, 200ms apart, starting 500ms after scheduling.
type HonkSequence struct {
	mu        sync.Mutex
	timers    []Timer
	remaining int
	cancelled bool
	done      chan struct{}
	onDone    func()
}

func scheduleHonks(clock Clock, horn Horn, onDone func()) *HonkSequence {
	s := &HonkSequence{
		remaining: honkCount,
		done:      make(chan struct{}),
		onDone:    onDone,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < honkCount; i++ {
		s.timers = append(s.timers, clock.AfterFunc(honkDelay+time.Duration(i)*honkInterval, func() {
			s.fire(horn)
		}))
	}
	return s
}

func (s *HonkSequence) fire(horn Horn) {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.remaining--
	last := s.remaining == 0
	s.mu.Unlock()

	horn.Honk()

	if last {
		s.finish()
	}
}

// Cancel stops honks that have not fired yet.
func (s *HonkSequence) Cancel() {
	s.mu.Lock()
	if s.cancelled || s.remaining == 0 {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	for _, t := range s.timers {
		t.Stop()
	}
	s.mu.Unlock()

	s.finish()
}

func (s *HonkSequence) finish() {
	close(s.done)
	if s.onDone != nil {
		s.onDone()
	}
}

// Done is closed once the sequence has honked its last or was cancelled.
func (s *HonkSequence) Done() <-chan struct{} {
	return s.done
}
