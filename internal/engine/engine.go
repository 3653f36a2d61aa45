// ABOUTME: Gapless playback engine core
// ABOUTME: Owns the playback slots, transport state and control surface
// Package engine implements the gapless playback core: two playback slots
// (current/next), a clock-derived transport, an asynchronous buffer loader
// and the scheduler that swaps slots at the exact sample boundary between
// tracks.
package engine

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Segue-Audio/segue-go/internal/graph"
	"github.com/Segue-Audio/segue-go/pkg/audio"
	"github.com/Segue-Audio/segue-go/pkg/audio/decode"
)

// Config holds engine configuration.
type Config struct {
	// SampleRate is the device render rate (default: 44100). All loaded
	// buffers are normalized to it, so the device never re-opens.
	SampleRate int

	// Channels is the device channel count (default: 2, max: 8).
	Channels int

	// Volume is the initial gain in [0, 1] (default: 1.0).
	Volume float64

	// MaxSourceBytes rejects sources larger than this before decoding
	// (default: 3 GiB).
	MaxSourceBytes int64

	// OnTrackBoundary is called exactly once per track boundary: on a
	// completed gapless swap and on an unscheduled natural end.
	OnTrackBoundary func()

	// OnError is called with failures from fire-and-forget operations
	// (preload decode errors). Superseded loads are not errors.
	OnError func(error)
}

const (
	defaultSampleRate     = 44100
	defaultChannels       = 2
	defaultMaxSourceBytes = 3 << 30
)

// slot is a playback slot. Two exist; which one is "current" is tracked by
// an index on the engine, so graph connections stay stable across swaps.
type slot struct {
	path string
	buf  *audio.Buffer
	node *graph.PlayerNode
}

// Engine is the gapless playback core.
type Engine struct {
	mu  sync.Mutex
	cfg Config
	g   *graph.Graph

	slots [2]*slot
	cur   int // index of the current slot; next is 1-cur

	playing     bool
	startOffset time.Duration // device-clock instant position 0 began
	pauseOffset time.Duration // resume point while not playing

	// gapless scheduler state (scheduler.go)
	state      swapState
	swapGen    uint64
	swapTimer  *time.Timer
	swapTarget time.Duration

	// loader state (loader.go)
	loadToken       uuid.UUID
	preloadToken    uuid.UUID
	preloadPath     string
	preloadInFlight int

	// decode is the whole-file decode capability; replaced in tests
	decode func(path string) (*audio.Buffer, error)
}

// New creates an engine and its signal graph.
func New(cfg Config) *Engine {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = defaultChannels
	}
	if cfg.Channels > graph.NumSplitTaps {
		cfg.Channels = graph.NumSplitTaps
	}
	if cfg.Volume <= 0 {
		cfg.Volume = 1.0
	}
	if cfg.MaxSourceBytes <= 0 {
		cfg.MaxSourceBytes = defaultMaxSourceBytes
	}

	e := &Engine{
		cfg:    cfg,
		g:      graph.New(audio.Format{SampleRate: cfg.SampleRate, Channels: cfg.Channels}),
		slots:  [2]*slot{{}, {}},
		decode: decode.DecodeFile,
	}
	e.g.SetVolume(cfg.Volume)
	return e
}

// Graph returns the signal graph. The device output pulls rendered PCM
// from it; analysis consumers reach the taps through it.
func (e *Engine) Graph() *graph.Graph {
	return e.g
}

// Play starts playback of the current slot from the paused position. It is
// a no-op when already playing or when no buffer is bound.
func (e *Engine) Play() {
	e.mu.Lock()
	cur := e.slots[e.cur]
	if e.playing || cur.buf == nil {
		e.mu.Unlock()
		return
	}

	nowF := e.g.NowFrame()
	e.startNodeLocked(cur, nowF, e.pauseOffset)
	e.playing = true
	e.startOffset = audio.FramesToDuration(nowF, e.cfg.SampleRate) - e.pauseOffset
	e.armLocked()
	e.mu.Unlock()
}

// Pause freezes the playback position and destroys the live node. Any
// scheduled swap is cancelled.
func (e *Engine) Pause() {
	e.mu.Lock()
	if !e.playing {
		e.mu.Unlock()
		return
	}
	e.pauseOffset = e.positionLocked()
	e.cancelSwapLocked()
	e.destroyNodeLocked(e.slots[e.cur])
	e.playing = false
	e.mu.Unlock()
}

// Stop halts playback and rewinds to position 0.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.cancelSwapLocked()
	e.destroyNodeLocked(e.slots[e.cur])
	e.playing = false
	e.pauseOffset = 0
	e.mu.Unlock()
}

// Seek moves the playback position to t, clamped to [0, duration]. While
// playing, the node is torn down and restarted at the new position under
// one lock hold, so no intermediate state is audible. Seeking to the
// position already playing is a no-op.
func (e *Engine) Seek(t time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.slots[e.cur]
	if cur.buf == nil {
		return
	}

	d := cur.buf.Duration()
	if t < 0 {
		t = 0
	}
	if t > d {
		t = d
	}

	rate := e.cfg.SampleRate
	if e.playing &&
		audio.DurationToFrames(t, rate) == audio.DurationToFrames(e.positionLocked(), rate) {
		return
	}

	e.cancelSwapLocked()
	e.pauseOffset = t
	if e.playing {
		e.destroyNodeLocked(cur)
		nowF := e.g.NowFrame()
		e.startNodeLocked(cur, nowF, t)
		e.startOffset = audio.FramesToDuration(nowF, rate) - t
		e.armLocked()
	}
}

// Reset clears both slots, cancels all in-flight loads and schedules, and
// returns the engine to its initial stopped state.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.loadToken = uuid.New()
	e.preloadToken = uuid.New()
	e.preloadPath = ""
	e.cancelSwapLocked()
	for _, s := range e.slots {
		e.destroyNodeLocked(s)
		s.buf = nil
		s.path = ""
	}
	e.playing = false
	e.pauseOffset = 0
	e.startOffset = 0
	e.mu.Unlock()
}

// SetVolume sets the shared gain, clamped to [0, 1].
func (e *Engine) SetVolume(v float64) {
	e.g.SetVolume(v)
}

// Volume returns the shared gain.
func (e *Engine) Volume() float64 {
	return e.g.Volume()
}

// SetMute toggles mute. Unmuting restores the exact pre-mute volume.
func (e *Engine) SetMute(muted bool) {
	e.g.SetMuted(muted)
}

// Muted returns the mute state.
func (e *Engine) Muted() bool {
	return e.g.Muted()
}

// IsPlaying reports whether a live node is sounding.
func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// Duration returns the current track's length, or 0 when nothing is loaded.
func (e *Engine) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if buf := e.slots[e.cur].buf; buf != nil {
		return buf.Duration()
	}
	return 0
}

// CurrentTime returns the playback position: device clock minus the start
// offset while playing, the frozen pause offset otherwise. It is never
// derived by polling decoded sample positions.
func (e *Engine) CurrentTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.playing {
		return e.pauseOffset
	}
	return e.positionLocked()
}

// TimeUntilEnd returns the remaining time in the current buffer. External
// polling loops use this as a defensive secondary gapless trigger.
func (e *Engine) TimeUntilEnd() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	buf := e.slots[e.cur].buf
	if buf == nil {
		return 0
	}
	pos := e.pauseOffset
	if e.playing {
		pos = e.positionLocked()
	}
	if rem := buf.Duration() - pos; rem > 0 {
		return rem
	}
	return 0
}

// ActiveTrackPath returns the current slot's track path.
func (e *Engine) ActiveTrackPath() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.slots[e.cur].path
}

// NextTrackPath returns the preloaded next track's path, if any.
func (e *Engine) NextTrackPath() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.slots[1-e.cur].path
}

// ForcePlayIfMatches promotes the preloaded next buffer to current when its
// path matches expectedPath, for manual advances that should reuse the warm
// buffer instead of reloading. Reports whether the promotion occurred so
// callers can fall back to a full load on mismatch.
func (e *Engine) ForcePlayIfMatches(expectedPath string) bool {
	e.mu.Lock()
	nxt := e.slots[1-e.cur]
	if nxt.buf == nil || nxt.path != expectedPath {
		e.mu.Unlock()
		return false
	}

	e.cancelSwapLocked()
	old := e.slots[e.cur]
	e.destroyNodeLocked(old)
	old.buf = nil
	old.path = ""

	e.cur = 1 - e.cur
	e.pauseOffset = 0
	if e.playing {
		cur := e.slots[e.cur]
		nowF := e.g.NowFrame()
		e.startNodeLocked(cur, nowF, 0)
		e.startOffset = audio.FramesToDuration(nowF, e.cfg.SampleRate)
	}
	e.mu.Unlock()
	return true
}

// positionLocked computes the clock-derived position, clamped to the
// current buffer's duration.
func (e *Engine) positionLocked() time.Duration {
	pos := e.g.Now() - e.startOffset
	if pos < 0 {
		pos = 0
	}
	if buf := e.slots[e.cur].buf; buf != nil && pos > buf.Duration() {
		pos = buf.Duration()
	}
	return pos
}

// startNodeLocked creates a fresh one-shot node for the slot's buffer,
// starting at device frame nowF at the given position within the track.
// The caller passes its own clock snapshot so startOffset and the node
// anchor cannot tear against the render goroutine.
func (e *Engine) startNodeLocked(s *slot, nowF int64, at time.Duration) {
	offset := audio.DurationToFrames(at, e.cfg.SampleRate)
	node := graph.NewPlayerNode(s.buf, nowF, offset)
	node.SetEndCallback(func() { e.handleNaturalEnd(node) })
	s.node = node
	e.g.Attach(node)
}

// destroyNodeLocked detaches and discards a slot's node. Nodes are
// one-shot; there is no path that reuses one.
func (e *Engine) destroyNodeLocked(s *slot) {
	if s.node != nil {
		e.g.Detach(s.node)
		s.node = nil
	}
}

// handleNaturalEnd is the unscheduled end-of-track path: no next buffer was
// armed, so the buffer ran dry. Position resets and the engine stops; the
// external queue decides what to load next. Fired from the render
// goroutine, off the graph lock.
func (e *Engine) handleNaturalEnd(node *graph.PlayerNode) {
	e.mu.Lock()
	cur := e.slots[e.cur]
	if !e.playing || cur.node != node {
		// stale notification from a node already replaced
		e.mu.Unlock()
		return
	}
	cur.node = nil
	e.playing = false
	e.pauseOffset = 0
	e.cancelSwapLocked() // armed swaps disable this path; purely defensive
	path := cur.path
	cb := e.cfg.OnTrackBoundary
	e.mu.Unlock()

	log.Printf("Track ended without scheduled successor: %s", path)
	if cb != nil {
		cb()
	}
}

// reportError forwards fire-and-forget failures to the configured sink.
func (e *Engine) reportError(err error) {
	if e.cfg.OnError != nil {
		e.cfg.OnError(err)
		return
	}
	log.Printf("Engine error: %v", err)
}
