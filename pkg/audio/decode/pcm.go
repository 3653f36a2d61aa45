// ABOUTME: Raw PCM decoder
// ABOUTME: Wraps headerless s16le sample data as a buffer
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Segue-Audio/segue-go/pkg/audio"
)

// DefaultPCMFormat is assumed for headerless sources selected by extension.
var DefaultPCMFormat = audio.Format{SampleRate: 44100, Channels: 2}

// PCMDecoder reads headerless signed 16-bit little-endian PCM. Raw sources
// carry no format metadata, so the caller supplies it.
type PCMDecoder struct {
	format audio.Format
}

// NewPCM creates a raw PCM decoder for the given format.
func NewPCM(format audio.Format) *PCMDecoder {
	return &PCMDecoder{format: format}
}

// Decode wraps raw s16le bytes as a PCM buffer.
func (d *PCMDecoder) Decode(r io.Reader) (*audio.Buffer, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("pcm read error: %w", err)
	}
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("pcm data truncated: %d bytes", len(raw))
	}

	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}

	return &audio.Buffer{Format: d.format, Samples: samples}, nil
}
