// ABOUTME: One-shot playback node
// ABOUTME: Plays one buffer from a scheduled device frame until exhaustion
package graph

import (
	"sync"

	"github.com/Segue-Audio/segue-go/pkg/audio"
)

// PlayerNode plays one buffer starting at an exact device frame. Nodes are
// one-shot: created fresh for every start, never restarted after they stop
// or exhaust. The buffer itself outlives the node, so a slot can replay the
// same track with a new node.
type PlayerNode struct {
	buf        *audio.Buffer
	startFrame int64 // device frame at which output begins
	offset     int64 // frame within buf at startFrame

	// done is owned by the graph render loop (guarded by Graph.mu)
	done bool

	mu         sync.Mutex
	onEnd      func()
	endEnabled bool
	endFired   bool
}

// NewPlayerNode creates a node that begins producing the buffer's samples
// (from offsetFrames into the buffer) exactly at device frame startFrame.
func NewPlayerNode(buf *audio.Buffer, startFrame, offsetFrames int64) *PlayerNode {
	if offsetFrames < 0 {
		offsetFrames = 0
	}
	if offsetFrames > buf.Frames() {
		offsetFrames = buf.Frames()
	}
	return &PlayerNode{
		buf:        buf,
		startFrame: startFrame,
		offset:     offsetFrames,
		endEnabled: true,
	}
}

// StartFrame returns the device frame at which the node begins output.
func (n *PlayerNode) StartFrame() int64 {
	return n.startFrame
}

// EndFrame returns the device frame at which the node exhausts its buffer.
func (n *PlayerNode) EndFrame() int64 {
	return n.startFrame + (n.buf.Frames() - n.offset)
}

// SetEndCallback registers the natural-end notification for this node.
// The callback fires at most once, off the render lock.
func (n *PlayerNode) SetEndCallback(fn func()) {
	n.mu.Lock()
	n.onEnd = fn
	n.mu.Unlock()
}

// SetEndEnabled toggles the natural-end notification. The gapless scheduler
// disables it while a swap is armed so the boundary is announced exactly
// once, and re-enables it if the swap is cancelled.
func (n *PlayerNode) SetEndEnabled(enabled bool) {
	n.mu.Lock()
	n.endEnabled = enabled
	n.mu.Unlock()
}

// takeEndCallback returns the callback to fire on exhaustion, or nil if the
// notification is disabled, unset, or already taken.
func (n *PlayerNode) takeEndCallback() func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.endEnabled || n.endFired || n.onEnd == nil {
		return nil
	}
	n.endFired = true
	return n.onEnd
}
