// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes whole MP3 sources to int16 PCM buffers
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Segue-Audio/segue-go/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3Decoder decodes MP3 audio. go-mp3 always emits 16-bit stereo.
type MP3Decoder struct{}

// Decode converts an MP3 stream to a PCM buffer.
func (d *MP3Decoder) Decode(r io.Reader) (*audio.Buffer, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("mp3 decode error: %w", err)
	}

	// go-mp3 output is interleaved stereo int16 little-endian
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}

	return &audio.Buffer{
		Format: audio.Format{
			SampleRate: dec.SampleRate(),
			Channels:   2,
		},
		Samples: samples,
	}, nil
}
