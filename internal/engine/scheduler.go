// ABOUTME: Gapless swap scheduling between the current and next slots
// ABOUTME: Arms a one-shot node at the exact end frame of the current buffer
package engine

import (
	"log"
	"time"

	"github.com/Segue-Audio/segue-go/internal/graph"
	"github.com/Segue-Audio/segue-go/pkg/audio"
)

// swapState tracks the gapless handoff lifecycle.
type swapState int

const (
	// swapIdle: no handoff scheduled.
	swapIdle swapState = iota
	// swapArmed: next node created and scheduled at the current buffer's
	// end frame; bookkeeping timer pending.
	swapArmed
)

// swapSlack pads the bookkeeping timer past the audible boundary so the
// device clock has definitely crossed the target frame when it fires. The
// audible transition itself is frame-scheduled and does not depend on it.
const swapSlack = 5 * time.Millisecond

// armLocked schedules the next slot's buffer to start at the exact device
// frame where the current buffer runs out. No-ops unless playback is live,
// a next buffer is bound, and no swap is already armed. Caller holds e.mu.
func (e *Engine) armLocked() {
	if e.state != swapIdle || !e.playing {
		return
	}
	cur := e.slots[e.cur]
	nxt := e.slots[1-e.cur]
	if cur.node == nil || nxt.buf == nil || nxt.node != nil {
		return
	}

	// The boundary is the frame the live node exhausts its buffer, fixed
	// when the node was created. Deriving it from a fresh clock read would
	// tear against the render goroutine advancing the clock in between.
	rate := e.cfg.SampleRate
	targetF := cur.node.EndFrame()
	remainingF := targetF - e.g.NowFrame()
	if remainingF <= 0 {
		// already at or past the end; let natural end handle it
		return
	}

	node := graph.NewPlayerNode(nxt.buf, targetF, 0)
	nxt.node = node
	e.g.Attach(node)

	// the scheduled successor supplants the natural-end path
	cur.node.SetEndEnabled(false)

	e.state = swapArmed
	e.swapGen++
	gen := e.swapGen
	e.swapTarget = audio.FramesToDuration(targetF, rate)

	remaining := audio.FramesToDuration(remainingF, rate)
	e.swapTimer = time.AfterFunc(remaining+swapSlack, func() {
		e.completeSwap(gen)
	})

	log.Printf("Armed gapless swap: %s -> %s in %v", cur.path, nxt.path, remaining)
}

// cancelSwapLocked tears down an armed swap: the pending timer is
// invalidated by generation, the scheduled node is detached before it
// sounds, and the current node's natural-end path is restored. Safe to
// call in any state. Caller holds e.mu.
func (e *Engine) cancelSwapLocked() {
	e.swapGen++
	if e.swapTimer != nil {
		e.swapTimer.Stop()
		e.swapTimer = nil
	}
	if e.state != swapArmed {
		e.state = swapIdle
		return
	}

	nxt := e.slots[1-e.cur]
	e.destroyNodeLocked(nxt)
	if cur := e.slots[e.cur]; cur.node != nil {
		cur.node.SetEndEnabled(true)
	}
	e.state = swapIdle
}

// completeSwap is the bookkeeping side of an armed handoff, fired shortly
// after the scheduled node has started sounding. It flips the current slot
// index, rebases the position clock on the boundary instant, and clears the
// finished slot. A stale generation means the swap was cancelled or
// replaced; the timer is then a no-op.
func (e *Engine) completeSwap(gen uint64) {
	e.mu.Lock()
	if gen != e.swapGen {
		e.mu.Unlock()
		return
	}

	nxt := e.slots[1-e.cur]
	if e.state != swapArmed || !e.playing || nxt.buf == nil || nxt.node == nil {
		// Engine state diverged from the armed plan without cancelling the
		// timer. Abandon the swap and settle in a consistent stopped state.
		log.Printf("Invalid state at swap completion; abandoning handoff")
		e.cancelSwapLocked()
		e.destroyNodeLocked(e.slots[e.cur])
		e.playing = false
		e.pauseOffset = 0
		e.mu.Unlock()
		return
	}

	// The old node has run out on its own at the boundary frame; drop the
	// reference without detaching so its final samples are never clipped.
	old := e.slots[e.cur]
	old.node = nil
	old.buf = nil
	old.path = ""

	e.cur = 1 - e.cur
	e.startOffset = e.swapTarget
	e.pauseOffset = 0
	e.state = swapIdle
	e.swapTimer = nil

	cur := e.slots[e.cur]
	node := cur.node
	node.SetEndCallback(func() { e.handleNaturalEnd(node) })
	node.SetEndEnabled(true)

	path := cur.path
	cb := e.cfg.OnTrackBoundary
	e.mu.Unlock()

	log.Printf("Gapless swap complete, now playing: %s", path)
	if cb != nil {
		cb()
	}
}
