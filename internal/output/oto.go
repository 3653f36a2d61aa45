// ABOUTME: Oto-based audio device output
// ABOUTME: Pulls rendered PCM from the signal graph into the OS audio device
// Package output binds the signal graph to the operating system's audio
// device through oto. The device pulls: it reads interleaved s16le PCM
// straight from the graph, which renders on demand and advances the device
// clock in the process. Oto allows only one context per process, so Open
// succeeds once per Device and the format is fixed at open time.
package output

import (
	"fmt"
	"log"

	"github.com/ebitengine/oto/v3"

	"github.com/Segue-Audio/segue-go/internal/graph"
)

// Device is an oto-backed audio output that renders a signal graph.
type Device struct {
	otoCtx *oto.Context
	player *oto.Player
	g      *graph.Graph
}

// NewDevice creates an unopened device for the graph.
func NewDevice(g *graph.Graph) *Device {
	return &Device{g: g}
}

// Open initializes the audio device at the graph's format and starts the
// device pulling rendered PCM. The graph clock begins advancing here.
func (d *Device) Open() error {
	if d.otoCtx != nil {
		return fmt.Errorf("audio device already open")
	}

	f := d.g.Format()
	op := &oto.NewContextOptions{
		SampleRate:   f.SampleRate,
		ChannelCount: f.Channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("creating oto context: %w", err)
	}
	<-ready

	d.otoCtx = ctx
	d.player = ctx.NewPlayer(d.g)
	d.player.Play()

	log.Printf("Audio device open: %dHz, %d channels", f.SampleRate, f.Channels)
	return nil
}

// Close stops the device. The oto context itself cannot be torn down, so a
// closed Device cannot be reopened.
func (d *Device) Close() error {
	if d.player == nil {
		return nil
	}
	if err := d.player.Close(); err != nil {
		return fmt.Errorf("closing oto player: %w", err)
	}
	d.player = nil
	return nil
}
