// ABOUTME: Ring-buffer analysis tap
// ABOUTME: Captures rendered samples for pull-based visualization readers
package graph

import "sync"

// Tap is a read-only analysis point in the signal graph. The render loop
// pushes post-gain samples into a ring buffer; external visualization code
// pulls windows on its own cadence. A tap never affects playback.
type Tap struct {
	mu   sync.Mutex
	buf  []float64
	pos  int
	size int
}

func newTap(size int) *Tap {
	return &Tap{
		buf:  make([]float64, size),
		size: size,
	}
}

func (t *Tap) push(v float64) {
	t.mu.Lock()
	t.buf[t.pos] = v
	t.pos = (t.pos + 1) % t.size
	t.mu.Unlock()
}

// Samples returns the last n captured samples in chronological order.
func (t *Tap) Samples(n int) []float64 {
	if n > t.size {
		n = t.size
	}
	out := make([]float64, n)
	t.mu.Lock()
	start := (t.pos - n + t.size) % t.size
	for i := 0; i < n; i++ {
		out[i] = t.buf[(start+i)%t.size]
	}
	t.mu.Unlock()
	return out
}
