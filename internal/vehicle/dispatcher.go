// Package vehicle simulates the car that intents are performed on.
package vehicle

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"chaos-car/internal/domain"
)

// Dispatcher owns one simulated vehicle and turns intents into the sentence
// the assistant speaks back.
type Dispatcher struct {
	logger *slog.Logger
	clock  Clock
	horn   Horn

	mu      sync.Mutex
	state   domain.VehicleState
	pending map[*HonkSequence]struct{}
}

type Option func(*Dispatcher)

func WithClock(c Clock) Option {
	return func(d *Dispatcher) { d.clock = c }
}

func WithHorn(h Horn) Option {
	return func(d *Dispatcher) { d.horn = h }
}

func NewDispatcher(logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		logger:  logger,
		clock:   RealClock(),
		state:   domain.InitialVehicleState(),
		pending: make(map[*HonkSequence]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.horn == nil {
		d.horn = LogHorn{Logger: logger}
	}
	return d
}

// PerformAction applies in to the vehicle and returns the response text.
func (d *Dispatcher) PerformAction(in domain.Intent) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	target := in.TargetOr("")
	var msg string

	switch in.Action {
	case domain.ActionNavigate:
		if target != string(domain.DirectionLeft) && target != string(domain.DirectionRight) {
			msg = "Navigation command unclear"
			break
		}
		d.state.Direction = domain.Direction(target)
		msg = "Turning " + target
		if in.HasExtra() {
			msg += fmt.Sprintf(" (%s)", *in.Extra)
		}

	case domain.ActionMusic:
		switch target {
		case "play", "on":
			d.state.MusicPlaying = true
			msg = in.ExtraOr("Music started")
		case "stop", "off":
			d.state.MusicPlaying = false
			msg = "Music stopped"
		default:
			msg = "Music command unclear"
		}

	case domain.ActionAC:
		switch target {
		case "on":
			d.state.ACOn = true
			msg = in.ExtraOr("AC turned on")
		case "off":
			d.state.ACOn = false
			msg = in.ExtraOr("AC turned off")
		default:
			msg = "AC command unclear"
		}

	case domain.ActionStop:
		d.state.Speed = 0
		msg = in.ExtraOr("Vehicle stopped")
		if strings.Contains(in.ExtraOr(""), "honk") {
			d.scheduleHonksLocked()
		}

	case domain.ActionUnknown:
		msg = in.ExtraOr("Unknown command - doing something random")
		d.logger.Info("car spins wildly")

	default:
		msg = "Action not recognized"
	}

	d.logger.Info("performed action",
		"action", in.Action,
		"target", target,
		"response", msg,
	)
	return msg
}

func (d *Dispatcher) scheduleHonksLocked() {
	var seq *HonkSequence
	seq = scheduleHonks(d.clock, d.horn, func() {
		d.mu.Lock()
		delete(d.pending, seq)
		d.mu.Unlock()
	})
	d.pending[seq] = struct{}{}
}

// Snapshot returns a copy of the current vehicle state.
func (d *Dispatcher) Snapshot() domain.VehicleState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Reset returns the vehicle to its initial state and cancels pending honks.
func (d *Dispatcher) Reset() {
	d.CancelHonks()
	d.mu.Lock()
	d.state = domain.InitialVehicleState()
	d.mu.Unlock()
}

// PendingHonks reports how many honk sequences have not finished.
func (d *Dispatcher) PendingHonks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// CancelHonks cancels every honk sequence that is still scheduled.
func (d *Dispatcher) CancelHonks() {
	d.mu.Lock()
	seqs := make([]*HonkSequence, 0, len(d.pending))
	for s := range d.pending {
		seqs = append(seqs, s)
	}
	d.mu.Unlock()

	for _, s := range seqs {
		s.Cancel()
	}
}

func (d *Dispatcher) Close() error {
	d.CancelHonks()
	return nil
}
