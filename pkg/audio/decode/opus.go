// ABOUTME: Ogg Opus audio decoder
// ABOUTME: Decodes whole Opus sources to int16 PCM buffers
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/Segue-Audio/segue-go/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// opusSampleRate is fixed by the codec; all Opus streams decode at 48 kHz.
const opusSampleRate = 48000

// opusMaxFrame is the largest possible Opus frame (120 ms at 48 kHz),
// per channel.
const opusMaxFrame = 5760

// OpusDecoder decodes Ogg Opus audio at the stream's own channel count.
type OpusDecoder struct{}

// Decode converts an Ogg Opus stream to a PCM buffer.
func (d *OpusDecoder) Decode(r io.Reader) (*audio.Buffer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read opus source: %w", err)
	}

	// Stream.Read reports samples per channel and interleaves at the
	// stream's channel count, so the geometry must be known up front.
	channels, err := opusHeadChannels(data)
	if err != nil {
		return nil, err
	}

	stream, err := opus.NewStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open opus stream: %w", err)
	}
	defer stream.Close()

	var samples []int16
	pcm := make([]int16, opusMaxFrame*channels)

	for {
		n, err := stream.Read(pcm)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("opus decode error: %w", err)
		}
		samples = append(samples, pcm[:n*channels]...)
	}

	return &audio.Buffer{
		Format: audio.Format{
			SampleRate: opusSampleRate,
			Channels:   channels,
		},
		Samples: samples,
	}, nil
}

var opusHeadMagic = []byte("OpusHead")

// opusHeadChannels extracts the output channel count from the OpusHead
// identification header, which RFC 7845 requires to be the first packet of
// the first Ogg page. The count sits at byte 9 of the packet, right after
// the 8-byte magic and the version byte.
func opusHeadChannels(data []byte) (int, error) {
	window := data
	if len(window) > 512 {
		window = window[:512]
	}
	idx := bytes.Index(window, opusHeadMagic)
	if idx < 0 || idx+10 > len(data) {
		return 0, fmt.Errorf("opus identification header not found")
	}
	channels := int(data[idx+9])
	if channels < 1 {
		return 0, fmt.Errorf("opus header reports %d channels", channels)
	}
	return channels, nil
}
