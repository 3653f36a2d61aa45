// ABOUTME: Fixed-topology signal graph and device clock
// ABOUTME: Mixes playback nodes through gain into taps and int16 output
// Package graph implements the engine's fixed signal topology: up to two
// playback nodes feed a shared gain stage, which feeds the master analysis
// tap, an 8-way channel-split tap bank, and the interleaved int16 device
// output.
//
// The graph is the device clock: every frame rendered through Read advances
// it, and all playback positions and swap instants are expressed on this
// timeline. Wall-clock time never appears on the audio path.
package graph

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/Segue-Audio/segue-go/pkg/audio"
)

// NumSplitTaps is the width of the channel splitter bank.
const NumSplitTaps = 8

// tapWindow is the ring size of each analysis tap.
const tapWindow = 4096

// Graph owns the fixed node topology and the device clock.
type Graph struct {
	mu     sync.Mutex
	format audio.Format
	frame  int64 // device clock, frames rendered since creation
	nodes  []*PlayerNode
	volume float64
	muted  bool

	master *Tap
	split  []*Tap
}

// New creates a graph rendering in the given device format.
func New(format audio.Format) *Graph {
	g := &Graph{
		format: format,
		volume: 1.0,
		master: newTap(tapWindow),
		split:  make([]*Tap, NumSplitTaps),
	}
	for i := range g.split {
		g.split[i] = newTap(tapWindow)
	}
	return g
}

// Format returns the device render format.
func (g *Graph) Format() audio.Format {
	return g.format
}

// NowFrame returns the device clock in frames.
func (g *Graph) NowFrame() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.frame
}

// Now returns the device clock as a duration.
func (g *Graph) Now() time.Duration {
	return audio.FramesToDuration(g.NowFrame(), g.format.SampleRate)
}

// SetVolume sets the shared gain, clamped to [0, 1]. The change applies on
// the next rendered frame, instantly and symmetrically to whichever nodes
// are sounding.
func (g *Graph) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	g.mu.Lock()
	g.volume = v
	g.mu.Unlock()
}

// Volume returns the shared gain.
func (g *Graph) Volume() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.volume
}

// SetMuted toggles mute without disturbing the stored volume.
func (g *Graph) SetMuted(muted bool) {
	g.mu.Lock()
	g.muted = muted
	g.mu.Unlock()
}

// Muted returns the mute state.
func (g *Graph) Muted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.muted
}

// MasterTap returns the post-gain mixed analysis tap.
func (g *Graph) MasterTap() *Tap {
	return g.master
}

// ChannelTaps returns the 8 per-channel analysis taps. Sources with fewer
// channels duplicate cyclically into the higher taps.
func (g *Graph) ChannelTaps() []*Tap {
	return g.split
}

// Attach connects a playback node to the gain stage.
func (g *Graph) Attach(n *PlayerNode) {
	g.mu.Lock()
	g.nodes = append(g.nodes, n)
	g.mu.Unlock()
}

// Detach disconnects a node and stops it producing. Detaching a node the
// graph has already dropped is a no-op.
func (g *Graph) Detach(n *PlayerNode) {
	g.mu.Lock()
	for i, cand := range g.nodes {
		if cand == n {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			break
		}
	}
	n.done = true
	g.mu.Unlock()
}

// ActiveNodes returns the number of connected playback nodes.
func (g *Graph) ActiveNodes() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// Read renders interleaved little-endian int16 PCM and advances the device
// clock. It renders silence when no node is sounding, so the device keeps
// pulling and the clock keeps running. Natural-end callbacks of nodes that
// exhausted during this block fire after the render lock is released.
func (g *Graph) Read(p []byte) (int, error) {
	fb := g.format.FrameBytes()
	nFrames := len(p) / fb
	if nFrames == 0 {
		return 0, nil
	}

	g.mu.Lock()
	ch := g.format.Channels
	gain := g.volume
	if g.muted {
		gain = 0
	}

	var ended []*PlayerNode
	mix := make([]int32, ch)
	out := make([]int16, ch)

	for i := 0; i < nFrames; i++ {
		f := g.frame + int64(i)
		for c := range mix {
			mix[c] = 0
		}

		for _, n := range g.nodes {
			if n.done || f < n.startFrame {
				continue
			}
			idx := n.offset + (f - n.startFrame)
			if idx >= n.buf.Frames() {
				n.done = true
				ended = append(ended, n)
				continue
			}
			base := int(idx) * ch
			for c := 0; c < ch; c++ {
				mix[c] += int32(n.buf.Samples[base+c])
			}
		}

		// gain stage and output edge
		var sum float64
		for c := 0; c < ch; c++ {
			s := audio.ClampSample(int32(float64(mix[c]) * gain))
			out[c] = s
			binary.LittleEndian.PutUint16(p[i*fb+c*2:], uint16(s))
			sum += audio.SampleToFloat(s)
		}

		g.master.push(sum / float64(ch))
		for ti := 0; ti < NumSplitTaps; ti++ {
			g.split[ti].push(audio.SampleToFloat(out[ti%ch]))
		}
	}
	g.frame += int64(nFrames)

	if len(ended) > 0 {
		kept := g.nodes[:0]
		for _, n := range g.nodes {
			if !n.done {
				kept = append(kept, n)
			}
		}
		g.nodes = kept
	}
	g.mu.Unlock()

	for _, n := range ended {
		if fn := n.takeEndCallback(); fn != nil {
			fn()
		}
	}

	return nFrames * fb, nil
}
