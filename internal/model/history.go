package model

import (
	"sync"
	"time"
)

const defaultHistoryCap = 60

// Observation is a single timestamped sample taken by the poller.
type Observation struct {
	Timestamp time.Time
	Role      Role
	Latency   time.Duration
	Err       string
}

// ObservationHistory is a fixed-size ring buffer of Observations.
// When the buffer is full, new pushes overwrite the oldest entry.
type ObservationHistory struct {
	mu   sync.RWMutex
	buf  []Observation
	head int // index of the next write position
	size int // number of valid entries
}

// NewObservationHistory creates an ObservationHistory with the given capacity.
// If capacity <= 0, defaultHistoryCap (60) is used.
func NewObservationHistory(capacity int) *ObservationHistory {
	if capacity <= 0 {
		capacity = defaultHistoryCap
	}
	return &ObservationHistory{
		buf: make([]Observation, capacity),
	}
}

// Push appends a new observation, overwriting the oldest if full.
func (h *ObservationHistory) Push(o Observation) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf[h.head] = o
	h.head = (h.head + 1) % len(h.buf)
	if h.size < len(h.buf) {
		h.size++
	}
}

// Len returns the number of valid entries in the history.
func (h *ObservationHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// Cap returns the fixed capacity of the buffer.
func (h *ObservationHistory) Cap() int {
	return len(h.buf)
}

// Clear resets the history to empty.
func (h *ObservationHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.head = 0
	h.size = 0
}

// Values returns the observations in chronological order (oldest first).
func (h *ObservationHistory) Values() []Observation {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Observation, h.size)
	// oldest entry sits at (head - size + cap) % cap
	start := (h.head - h.size + len(h.buf)) % len(h.buf)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(start+i)%len(h.buf)]
	}
	return out
}

// Latest returns the most recent observation, if any.
func (h *ObservationHistory) Latest() (Observation, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.size == 0 {
		return Observation{}, false
	}
	return h.buf[(h.head-1+len(h.buf))%len(h.buf)], true
}

// Latencies returns round-trip times in milliseconds, oldest first.
// Failed samples contribute 0.
func (h *ObservationHistory) Latencies() []float64 {
	vals := h.Values()
	out := make([]float64, len(vals))
	for i, o := range vals {
		if o.Err != "" {
			continue
		}
		out[i] = float64(o.Latency) / float64(time.Millisecond)
	}
	return out
}
