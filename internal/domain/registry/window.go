package registry

// RollingWindow is a fixed-capacity FIFO of float samples. It is not safe
// for concurrent use on its own; Registry guards it.
type RollingWindow struct {
	buf   []float64
	start int
	n     int
}

// NewRollingWindow creates a window holding at most capacity samples.
// Non-positive capacities fall back to 1.
func NewRollingWindow(capacity int) *RollingWindow {
	if capacity < 1 {
		capacity = 1
	}
	return &RollingWindow{buf: make([]float64, capacity)}
}

// Push appends v, evicting the oldest sample when full.
func (w *RollingWindow) Push(v float64) {
	if w.n == len(w.buf) {
		w.buf[w.start] = v
		w.start = (w.start + 1) % len(w.buf)
	} else {
		w.buf[(w.start+w.n)%len(w.buf)] = v
		w.n++
	}
}

// Len returns the number of samples held.
func (w *RollingWindow) Len() int { return w.n }

// Cap returns the window capacity.
func (w *RollingWindow) Cap() int { return len(w.buf) }

// Full reports whether the window holds Cap samples.
func (w *RollingWindow) Full() bool { return w.n == len(w.buf) }

// Average returns the mean of the held samples, 0 when empty.
func (w *RollingWindow) Average() float64 {
	if w.n == 0 {
		return 0
	}
	total := 0.0
	for i := 0; i < w.n; i++ {
		total += w.buf[(w.start+i)%len(w.buf)]
	}
	return total / float64(w.n)
}

// Clear drops every sample.
func (w *RollingWindow) Clear() {
	w.start, w.n = 0, 0
}
