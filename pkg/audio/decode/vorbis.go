// ABOUTME: Ogg Vorbis audio decoder
// ABOUTME: Decodes whole Vorbis sources to int16 PCM buffers
package decode

import (
	"fmt"
	"io"

	"github.com/Segue-Audio/segue-go/pkg/audio"
	"github.com/jfreymuth/oggvorbis"
)

// VorbisDecoder decodes Ogg Vorbis audio.
type VorbisDecoder struct{}

// Decode converts an Ogg Vorbis stream to a PCM buffer.
func (d *VorbisDecoder) Decode(r io.Reader) (*audio.Buffer, error) {
	data, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("vorbis decode error: %w", err)
	}

	samples := make([]int16, len(data))
	for i, f := range data {
		v := int32(f * 32768)
		samples[i] = audio.ClampSample(v)
	}

	return &audio.Buffer{
		Format: audio.Format{
			SampleRate: format.SampleRate,
			Channels:   format.Channels,
		},
		Samples: samples,
	}, nil
}
