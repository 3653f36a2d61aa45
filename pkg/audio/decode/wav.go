// ABOUTME: WAV audio decoder
// ABOUTME: Decodes whole PCM WAV sources to int16 buffers
package decode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Segue-Audio/segue-go/pkg/audio"
	"github.com/youpy/go-wav"
)

// WAVDecoder decodes PCM WAV audio of 8, 16, 24 or 32-bit depth.
type WAVDecoder struct{}

// Decode converts a WAV stream to a PCM buffer.
func (d *WAVDecoder) Decode(r io.Reader) (*audio.Buffer, error) {
	// go-wav needs random access for the RIFF chunk walk
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read wav source: %w", err)
	}
	reader := wav.NewReader(bytes.NewReader(data))

	format, err := reader.Format()
	if err != nil {
		return nil, fmt.Errorf("failed to read wav format: %w", err)
	}
	if format.AudioFormat != wav.AudioFormatPCM {
		return nil, fmt.Errorf("unsupported wav encoding %d (PCM only)", format.AudioFormat)
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("wav read error: %w", err)
	}

	channels := int(format.NumChannels)
	bytesPer := int(format.BitsPerSample) / 8
	if bytesPer < 1 || bytesPer > 4 {
		return nil, fmt.Errorf("unsupported wav bit depth %d", format.BitsPerSample)
	}

	n := len(raw) / bytesPer
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = wavSample(raw[i*bytesPer:], bytesPer)
	}

	return &audio.Buffer{
		Format: audio.Format{
			SampleRate: int(format.SampleRate),
			Channels:   channels,
		},
		Samples: samples,
	}, nil
}

// wavSample converts one little-endian PCM sample of the given width to int16.
func wavSample(b []byte, width int) int16 {
	switch width {
	case 1:
		// 8-bit WAV is unsigned
		return int16(int(b[0])-128) << 8
	case 2:
		return int16(binary.LittleEndian.Uint16(b))
	case 3:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if v&0x800000 != 0 {
			v |= ^int32(0xFFFFFF)
		}
		return int16(v >> 8)
	default:
		return int16(int32(binary.LittleEndian.Uint32(b)) >> 16)
	}
}
