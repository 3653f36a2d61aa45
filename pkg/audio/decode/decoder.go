// ABOUTME: Decoder interface definition and extension-based registry
// ABOUTME: Common interface for all audio decoders
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Segue-Audio/segue-go/pkg/audio"
)

// ErrUnsupportedFormat is returned when no decoder is registered for a
// source's file extension.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Decoder decodes one complete encoded source to a PCM buffer.
type Decoder interface {
	// Decode reads the entire source and returns the decoded samples.
	Decode(r io.Reader) (*audio.Buffer, error)
}

// ForPath selects a decoder by file extension.
func ForPath(path string) (Decoder, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".mp3":
		return &MP3Decoder{}, nil
	case ".flac", ".fla":
		return &FLACDecoder{}, nil
	case ".wav", ".wave":
		return &WAVDecoder{}, nil
	case ".ogg", ".oga":
		return &VorbisDecoder{}, nil
	case ".opus":
		return &OpusDecoder{}, nil
	case ".pcm", ".raw":
		return NewPCM(DefaultPCMFormat), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// DecodeFile opens path, selects a decoder by extension and decodes the
// whole file to a buffer.
func DecodeFile(path string) (*audio.Buffer, error) {
	dec, err := ForPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	buf, err := dec.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return buf, nil
}
