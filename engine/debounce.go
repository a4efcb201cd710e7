package engine

import (
	"sync"
	"time"
)

// DefaultDebounceWindow is how long the zoom level must hold still before
// a recompute fires.
const DefaultDebounceWindow = 100 * time.Millisecond

type debounceState uint8

const (
	debounceIdle debounceState = iota
	debouncePending
	debounceSettled
)

// zoomDebouncer coalesces a burst of zoom changes into one settle event
// carrying the final value. Each Observe cancels the pending timer and
// rearms it; a stale timer that already fired is recognized by generation
// and ignored.
type zoomDebouncer struct {
	window time.Duration
	fire   func(zoom float64)

	mu     sync.Mutex
	state  debounceState
	gen    uint64
	zoom   float64
	timer  *time.Timer
	closed bool
}

func newZoomDebouncer(window time.Duration, fire func(zoom float64)) *zoomDebouncer {
	return &zoomDebouncer{window: window, fire: fire}
}

// Observe records a zoom change and (re)starts the settle window.
func (d *zoomDebouncer) Observe(zoom float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	d.gen++
	gen := d.gen
	d.zoom = zoom
	d.state = debouncePending

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() { d.settle(gen) })
}

func (d *zoomDebouncer) settle(gen uint64) {
	d.mu.Lock()
	if d.closed || gen != d.gen || d.state != debouncePending {
		d.mu.Unlock()
		return
	}
	d.state = debounceSettled
	zoom := d.zoom
	d.mu.Unlock()

	d.fire(zoom)
}

func (d *zoomDebouncer) State() debounceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Close cancels any pending settle; the final zoom is discarded.
func (d *zoomDebouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	d.state = debounceIdle
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
