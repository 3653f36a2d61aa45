// ABOUTME: High-level Player API for gapless local playback
// ABOUTME: Wires the engine, signal graph and audio device behind one type
package segue

import (
	"fmt"
	"time"

	"github.com/Segue-Audio/segue-go/internal/engine"
	"github.com/Segue-Audio/segue-go/internal/graph"
	"github.com/Segue-Audio/segue-go/internal/output"
)

// Config holds player configuration
type Config struct {
	// SampleRate is the device render rate (default: 44100)
	SampleRate int

	// Channels is the device channel count (default: 2, max: 8)
	Channels int

	// Volume is the initial volume in [0, 1] (default: 1.0)
	Volume float64

	// MaxSourceBytes rejects sources above this size before decoding
	// (default: 3 GiB)
	MaxSourceBytes int64

	// OnTrackBoundary is called exactly once each time one track gives way
	// to the next: after a completed gapless handoff, and when a track
	// runs out with nothing scheduled behind it
	OnTrackBoundary func()

	// OnError is called with failures from background operations
	OnError func(error)

	// Headless skips opening the OS audio device. The caller drives the
	// clock by reading rendered PCM from Graph() itself.
	Headless bool
}

// Player provides gapless playback of local audio files.
type Player struct {
	engine *engine.Engine
	device *output.Device
}

// NewPlayer creates a player and, unless configured headless, opens the
// audio device. The device pulls rendered PCM continuously from then on;
// silence renders while nothing plays.
func NewPlayer(config Config) (*Player, error) {
	eng := engine.New(engine.Config{
		SampleRate:      config.SampleRate,
		Channels:        config.Channels,
		Volume:          config.Volume,
		MaxSourceBytes:  config.MaxSourceBytes,
		OnTrackBoundary: config.OnTrackBoundary,
		OnError:         config.OnError,
	})

	p := &Player{engine: eng}
	if !config.Headless {
		p.device = output.NewDevice(eng.Graph())
		if err := p.device.Open(); err != nil {
			return nil, fmt.Errorf("opening audio device: %w", err)
		}
	}
	return p, nil
}

// LoadTrack decodes the file at path and makes it the current track,
// stopped at position 0. A concurrent LoadTrack supersedes this one.
func (p *Player) LoadTrack(path string) error {
	return p.engine.LoadTrack(path)
}

// PreloadNextTrack decodes the file at path in the background and
// schedules it to start at the exact sample where the current track ends.
// Preloading the same path twice is a no-op; a different path replaces the
// pending next track.
func (p *Player) PreloadNextTrack(path string) {
	p.engine.PreloadNextTrack(path)
}

// Play starts or resumes playback of the current track.
func (p *Player) Play() {
	p.engine.Play()
}

// Pause freezes playback at the current position.
func (p *Player) Pause() {
	p.engine.Pause()
}

// Stop halts playback and rewinds to position 0.
func (p *Player) Stop() {
	p.engine.Stop()
}

// Seek moves the playback position to t, clamped to the track bounds.
func (p *Player) Seek(t time.Duration) {
	p.engine.Seek(t)
}

// Reset clears both the current and the preloaded track and stops.
func (p *Player) Reset() {
	p.engine.Reset()
}

// ForcePlayIfMatches promotes the preloaded next track to current when its
// path matches, reusing the warm buffer for a manual advance. Reports
// whether the promotion happened; on false the caller should LoadTrack.
func (p *Player) ForcePlayIfMatches(path string) bool {
	return p.engine.ForcePlayIfMatches(path)
}

// IsPlaying reports whether audio is sounding.
func (p *Player) IsPlaying() bool {
	return p.engine.IsPlaying()
}

// Duration returns the current track's length, 0 when nothing is loaded.
func (p *Player) Duration() time.Duration {
	return p.engine.Duration()
}

// CurrentTime returns the playback position, derived from the device
// clock while playing and frozen while paused.
func (p *Player) CurrentTime() time.Duration {
	return p.engine.CurrentTime()
}

// TimeUntilEnd returns the remaining time in the current track.
func (p *Player) TimeUntilEnd() time.Duration {
	return p.engine.TimeUntilEnd()
}

// ActiveTrackPath returns the current track's path, empty when unloaded.
func (p *Player) ActiveTrackPath() string {
	return p.engine.ActiveTrackPath()
}

// NextTrackPath returns the preloaded next track's path, if any.
func (p *Player) NextTrackPath() string {
	return p.engine.NextTrackPath()
}

// SetVolume sets the gain, clamped to [0, 1]. Takes effect on the next
// rendered frame, including mid-track.
func (p *Player) SetVolume(v float64) {
	p.engine.SetVolume(v)
}

// Volume returns the gain.
func (p *Player) Volume() float64 {
	return p.engine.Volume()
}

// SetMute silences or restores output without touching the volume.
func (p *Player) SetMute(muted bool) {
	p.engine.SetMute(muted)
}

// Muted reports the mute state.
func (p *Player) Muted() bool {
	return p.engine.Muted()
}

// Graph returns the signal graph, for analysis taps and headless rendering.
func (p *Player) Graph() *graph.Graph {
	return p.engine.Graph()
}

// MasterSamples returns the most recent n mono mix samples in [-1, 1],
// oldest first, for visualization.
func (p *Player) MasterSamples(n int) []float64 {
	return p.engine.Graph().MasterTap().Samples(n)
}

// ChannelSamples returns the most recent n samples of one output channel
// in [-1, 1], oldest first. Channels beyond the source's count repeat the
// source channels cyclically.
func (p *Player) ChannelSamples(channel, n int) ([]float64, error) {
	taps := p.engine.Graph().ChannelTaps()
	if channel < 0 || channel >= len(taps) {
		return nil, fmt.Errorf("channel %d out of range [0, %d)", channel, len(taps))
	}
	return taps[channel].Samples(n), nil
}

// Close stops playback and shuts the audio device.
func (p *Player) Close() error {
	p.engine.Reset()
	if p.device != nil {
		return p.device.Close()
	}
	return nil
}
