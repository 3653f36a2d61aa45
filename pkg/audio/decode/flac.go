// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes whole FLAC sources to int16 PCM buffers
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/Segue-Audio/segue-go/pkg/audio"
	"github.com/mewkiz/flac"
)

// FLACDecoder decodes FLAC audio using mewkiz/flac frame parsing.
type FLACDecoder struct{}

// Decode converts a FLAC stream to a PCM buffer.
func (d *FLACDecoder) Decode(r io.Reader) (*audio.Buffer, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse flac stream: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	bps := uint(info.BitsPerSample)

	samples := make([]int16, 0, int(info.NSamples)*channels)

	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("flac frame parse error: %w", err)
		}

		n := int(frame.BlockSize)
		for i := 0; i < n; i++ {
			for ch := 0; ch < channels; ch++ {
				samples = append(samples, narrowSample(frame.Subframes[ch].Samples[i], bps))
			}
		}
	}

	return &audio.Buffer{
		Format: audio.Format{
			SampleRate: int(info.SampleRate),
			Channels:   channels,
		},
		Samples: samples,
	}, nil
}

// narrowSample scales a FLAC sample of the given bit depth to 16 bits.
func narrowSample(s int32, bps uint) int16 {
	switch {
	case bps > 16:
		return int16(s >> (bps - 16))
	case bps < 16:
		return int16(s << (16 - bps))
	default:
		return int16(s)
	}
}
