package speech

import (
	"sync"
	"time"
)

// DefaultDebounce is how long a final transcript must stay unchanged before
// it is handed to the pipeline.
const DefaultDebounce = 500 * time.Millisecond

// FinalDebouncer delivers at most one final transcript per utterance.
// Speech engines tend to report the same final result more than once, or
// revise it quickly; only the last revision within the window is delivered
// and a repeat of the previous final is dropped.
type FinalDebouncer struct {
	window  time.Duration
	deliver func(text string)

	mu        sync.Mutex
	timer     *time.Timer
	lastFinal string
	stopped   bool
	inflight  sync.WaitGroup
}

func NewFinalDebouncer(window time.Duration, deliver func(text string)) *FinalDebouncer {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &FinalDebouncer{window: window, deliver: deliver}
}

// Final reports a final transcript. It returns false when the transcript was
// dropped as a repeat, empty, or because the debouncer is stopped.
func (d *FinalDebouncer) Final(text string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || text == "" || text == d.lastFinal {
		return false
	}
	d.lastFinal = text

	if d.timer != nil && d.timer.Stop() {
		d.inflight.Done()
	}
	d.inflight.Add(1)
	d.timer = time.AfterFunc(d.window, func() {
		defer d.inflight.Done()
		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			d.deliver(text)
		}
	})
	return true
}

// Reset forgets the last final so an identical utterance is accepted again.
func (d *FinalDebouncer) Reset() {
	d.mu.Lock()
	d.lastFinal = ""
	d.mu.Unlock()
}

// Stop cancels a pending delivery and waits for a running one to return.
func (d *FinalDebouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil && d.timer.Stop() {
		d.inflight.Done()
	}
	d.mu.Unlock()

	d.inflight.Wait()
}
