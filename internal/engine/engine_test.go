// ABOUTME: Tests for the engine transport: play/pause/seek/stop and queries
// ABOUTME: Uses a stubbed decoder and manual graph rendering as the clock
package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Segue-Audio/segue-go/pkg/audio"
)

// testRate makes frame math trivial: one frame per millisecond.
const testRate = 1000

func testBuffer(frames int) *audio.Buffer {
	samples := make([]int16, frames*2)
	for f := 0; f < frames; f++ {
		samples[f*2] = int16(f + 1)
		samples[f*2+1] = int16(f + 1)
	}
	return &audio.Buffer{
		Format:  audio.Format{SampleRate: testRate, Channels: 2},
		Samples: samples,
	}
}

// harness wires an engine to an in-memory decoder and drives the device
// clock by rendering frames from the graph directly.
type harness struct {
	t *testing.T
	e *Engine

	dir        string
	mu         sync.Mutex
	tracks     map[string]*audio.Buffer
	decodes    atomic.Int64
	boundaries atomic.Int64
	errs       chan error
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		dir:    t.TempDir(),
		tracks: make(map[string]*audio.Buffer),
		errs:   make(chan error, 8),
	}
	cfg.SampleRate = testRate
	cfg.Channels = 2
	cfg.OnTrackBoundary = func() { h.boundaries.Add(1) }
	cfg.OnError = func(err error) { h.errs <- err }

	h.e = New(cfg)
	h.e.decode = func(path string) (*audio.Buffer, error) {
		h.decodes.Add(1)
		h.mu.Lock()
		buf, ok := h.tracks[path]
		h.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("no track registered for %s", path)
		}
		return buf, nil
	}
	return h
}

// addTrack registers a synthetic buffer under a real (tiny) file so size
// checks pass, and returns its path.
func (h *harness) addTrack(name string, frames int) string {
	h.t.Helper()
	path := filepath.Join(h.dir, name)
	if err := os.WriteFile(path, []byte("pcm"), 0o644); err != nil {
		h.t.Fatalf("writing track file: %v", err)
	}
	h.mu.Lock()
	h.tracks[path] = testBuffer(frames)
	h.mu.Unlock()
	return path
}

// render advances the device clock by n frames.
func (h *harness) render(n int) {
	h.t.Helper()
	p := make([]byte, n*h.e.g.Format().FrameBytes())
	if _, err := h.e.Graph().Read(p); err != nil {
		h.t.Fatalf("rendering: %v", err)
	}
}

func (h *harness) load(path string) {
	h.t.Helper()
	if err := h.e.LoadTrack(path); err != nil {
		h.t.Fatalf("LoadTrack(%s): %v", path, err)
	}
}

func TestPlayWithoutBufferIsNoop(t *testing.T) {
	h := newHarness(t, Config{})
	h.e.Play()
	if h.e.IsPlaying() {
		t.Fatal("expected not playing with no buffer loaded")
	}
}

func TestLoadTrackBindsAndStops(t *testing.T) {
	h := newHarness(t, Config{})
	a := h.addTrack("a.pcm", 500)

	h.load(a)
	h.e.Play()
	if !h.e.IsPlaying() {
		t.Fatal("expected playing after Play")
	}

	b := h.addTrack("b.pcm", 250)
	h.load(b)
	if h.e.IsPlaying() {
		t.Fatal("expected load to stop playback")
	}
	if got := h.e.ActiveTrackPath(); got != b {
		t.Fatalf("active path = %q, want %q", got, b)
	}
	if got, want := h.e.Duration(), 250*time.Millisecond; got != want {
		t.Fatalf("duration = %v, want %v", got, want)
	}
	if got := h.e.CurrentTime(); got != 0 {
		t.Fatalf("position after load = %v, want 0", got)
	}
}

func TestPlayPauseResume(t *testing.T) {
	h := newHarness(t, Config{})
	h.load(h.addTrack("a.pcm", 500))

	h.e.Play()
	h.render(100)
	if got, want := h.e.CurrentTime(), 100*time.Millisecond; got != want {
		t.Fatalf("position = %v, want %v", got, want)
	}

	h.e.Pause()
	if h.e.IsPlaying() {
		t.Fatal("expected paused")
	}
	// the clock keeps running; the frozen position must not
	h.render(50)
	if got, want := h.e.CurrentTime(), 100*time.Millisecond; got != want {
		t.Fatalf("paused position = %v, want %v", got, want)
	}

	h.e.Play()
	h.render(50)
	if got, want := h.e.CurrentTime(), 150*time.Millisecond; got != want {
		t.Fatalf("resumed position = %v, want %v", got, want)
	}
}

func TestPauseWhenStoppedIsNoop(t *testing.T) {
	h := newHarness(t, Config{})
	h.load(h.addTrack("a.pcm", 100))
	h.e.Pause()
	if h.e.IsPlaying() || h.e.CurrentTime() != 0 {
		t.Fatal("pause while stopped changed state")
	}
}

func TestStopRewinds(t *testing.T) {
	h := newHarness(t, Config{})
	h.load(h.addTrack("a.pcm", 500))

	h.e.Play()
	h.render(120)
	h.e.Stop()
	if h.e.IsPlaying() {
		t.Fatal("expected stopped")
	}
	if got := h.e.CurrentTime(); got != 0 {
		t.Fatalf("position after stop = %v, want 0", got)
	}

	h.e.Play()
	h.render(10)
	if got, want := h.e.CurrentTime(), 10*time.Millisecond; got != want {
		t.Fatalf("position after restart = %v, want %v", got, want)
	}
}

func TestSeekClampsToTrackBounds(t *testing.T) {
	h := newHarness(t, Config{})
	h.load(h.addTrack("a.pcm", 200))

	h.e.Seek(-time.Second)
	if got := h.e.CurrentTime(); got != 0 {
		t.Fatalf("seek below zero: position = %v, want 0", got)
	}

	h.e.Seek(time.Hour)
	if got, want := h.e.CurrentTime(), 200*time.Millisecond; got != want {
		t.Fatalf("seek past end: position = %v, want %v", got, want)
	}
}

func TestSeekWhilePlayingRestartsAtPosition(t *testing.T) {
	h := newHarness(t, Config{})
	h.load(h.addTrack("a.pcm", 500))

	h.e.Play()
	h.render(50)
	h.e.Seek(300 * time.Millisecond)
	if !h.e.IsPlaying() {
		t.Fatal("seek must not stop playback")
	}
	if got, want := h.e.CurrentTime(), 300*time.Millisecond; got != want {
		t.Fatalf("position = %v, want %v", got, want)
	}
	h.render(20)
	if got, want := h.e.CurrentTime(), 320*time.Millisecond; got != want {
		t.Fatalf("position after render = %v, want %v", got, want)
	}
}

func TestSeekToCurrentPositionDoesNotRestartNode(t *testing.T) {
	h := newHarness(t, Config{})
	h.load(h.addTrack("a.pcm", 500))

	h.e.Play()
	h.render(100)
	h.e.mu.Lock()
	before := h.e.slots[h.e.cur].node
	h.e.mu.Unlock()

	h.e.Seek(100 * time.Millisecond)

	h.e.mu.Lock()
	after := h.e.slots[h.e.cur].node
	h.e.mu.Unlock()
	if before != after {
		t.Fatal("seek to the current position must leave the live node untouched")
	}
}

func TestSeekWhilePausedStaysPaused(t *testing.T) {
	h := newHarness(t, Config{})
	h.load(h.addTrack("a.pcm", 500))

	h.e.Play()
	h.render(50)
	h.e.Pause()
	h.e.Seek(200 * time.Millisecond)
	if h.e.IsPlaying() {
		t.Fatal("seek while paused must not start playback")
	}
	if got, want := h.e.CurrentTime(), 200*time.Millisecond; got != want {
		t.Fatalf("position = %v, want %v", got, want)
	}
}

func TestTimeUntilEnd(t *testing.T) {
	h := newHarness(t, Config{})
	if got := h.e.TimeUntilEnd(); got != 0 {
		t.Fatalf("empty engine: remaining = %v, want 0", got)
	}

	h.load(h.addTrack("a.pcm", 300))
	if got, want := h.e.TimeUntilEnd(), 300*time.Millisecond; got != want {
		t.Fatalf("stopped: remaining = %v, want %v", got, want)
	}

	h.e.Play()
	h.render(100)
	if got, want := h.e.TimeUntilEnd(), 200*time.Millisecond; got != want {
		t.Fatalf("playing: remaining = %v, want %v", got, want)
	}
}

func TestVolumeAndMute(t *testing.T) {
	h := newHarness(t, Config{Volume: 0.5})
	if got := h.e.Volume(); got != 0.5 {
		t.Fatalf("initial volume = %v, want 0.5", got)
	}

	h.e.SetVolume(1.7)
	if got := h.e.Volume(); got != 1.0 {
		t.Fatalf("volume after over-set = %v, want 1.0", got)
	}

	h.e.SetVolume(0.25)
	h.e.SetMute(true)
	if !h.e.Muted() {
		t.Fatal("expected muted")
	}
	h.e.SetMute(false)
	if got := h.e.Volume(); got != 0.25 {
		t.Fatalf("volume after unmute = %v, want 0.25", got)
	}
}

func TestNaturalEndStopsAndNotifies(t *testing.T) {
	h := newHarness(t, Config{})
	h.load(h.addTrack("a.pcm", 50))

	h.e.Play()
	h.render(60)
	if h.e.IsPlaying() {
		t.Fatal("expected stopped after buffer ran out")
	}
	if got := h.e.CurrentTime(); got != 0 {
		t.Fatalf("position after natural end = %v, want 0", got)
	}
	if got := h.boundaries.Load(); got != 1 {
		t.Fatalf("boundary callbacks = %d, want 1", got)
	}

	// nothing further happens on more rendering
	h.render(60)
	if got := h.boundaries.Load(); got != 1 {
		t.Fatalf("boundary callbacks after extra render = %d, want 1", got)
	}
}

func TestResetClearsEverything(t *testing.T) {
	h := newHarness(t, Config{})
	h.load(h.addTrack("a.pcm", 500))
	h.e.PreloadNextTrack(h.addTrack("b.pcm", 500))
	if !h.e.waitForPreload(time.Second) {
		t.Fatal("preload did not settle")
	}

	h.e.Play()
	h.render(50)
	h.e.Reset()

	if h.e.IsPlaying() {
		t.Fatal("expected stopped after reset")
	}
	if h.e.ActiveTrackPath() != "" || h.e.NextTrackPath() != "" {
		t.Fatal("expected both slots cleared")
	}
	if h.e.Duration() != 0 || h.e.CurrentTime() != 0 {
		t.Fatal("expected zeroed queries after reset")
	}
	if n := h.e.Graph().ActiveNodes(); n != 0 {
		t.Fatalf("active nodes after reset = %d, want 0", n)
	}
}

func TestForcePlayIfMatches(t *testing.T) {
	h := newHarness(t, Config{})
	a := h.addTrack("a.pcm", 500)
	b := h.addTrack("b.pcm", 400)
	h.load(a)
	h.e.PreloadNextTrack(b)
	if !h.e.waitForPreload(time.Second) {
		t.Fatal("preload did not settle")
	}

	if h.e.ForcePlayIfMatches(a) {
		t.Fatal("promotion must fail when the path does not match the next slot")
	}

	h.e.Play()
	h.render(100)
	if !h.e.ForcePlayIfMatches(b) {
		t.Fatal("promotion failed for matching preloaded path")
	}
	if got := h.e.ActiveTrackPath(); got != b {
		t.Fatalf("active path = %q, want %q", got, b)
	}
	if !h.e.IsPlaying() {
		t.Fatal("promotion while playing must keep playing")
	}
	if got := h.e.CurrentTime(); got != 0 {
		t.Fatalf("position after promotion = %v, want 0", got)
	}
	if got, want := h.e.Duration(), 400*time.Millisecond; got != want {
		t.Fatalf("duration = %v, want %v", got, want)
	}
	if got := h.e.NextTrackPath(); got != "" {
		t.Fatalf("next path after promotion = %q, want empty", got)
	}
}

func TestConfigDefaults(t *testing.T) {
	e := New(Config{})
	f := e.Graph().Format()
	if f.SampleRate != defaultSampleRate || f.Channels != defaultChannels {
		t.Fatalf("device format = %+v, want defaults", f)
	}
	if got := e.Volume(); got != 1.0 {
		t.Fatalf("default volume = %v, want 1.0", got)
	}
	if e.cfg.MaxSourceBytes != defaultMaxSourceBytes {
		t.Fatalf("default size limit = %d, want %d", e.cfg.MaxSourceBytes, defaultMaxSourceBytes)
	}
}
