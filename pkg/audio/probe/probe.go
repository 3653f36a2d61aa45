// ABOUTME: Stream property probe for audio files
// ABOUTME: Reports duration, sample rate and channel layout without tag reading
// Package probe reports the stream properties of an audio file.
//
// Probe decodes through the registry in pkg/audio/decode, so it reports the
// properties the playback engine will actually see. It reads no metadata
// tags; track titles and artwork are a caller concern.
package probe

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Segue-Audio/segue-go/pkg/audio/decode"
)

// TrackInfo describes an audio file's stream properties.
type TrackInfo struct {
	Path       string
	Filename   string
	SizeBytes  int64
	Format     string // upper-cased extension, e.g. "FLAC"
	Duration   time.Duration
	SampleRate int
	Channels   int
}

// Probe decodes the file at path and reports its stream properties.
func Probe(path string) (TrackInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return TrackInfo{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	buf, err := decode.DecodeFile(path)
	if err != nil {
		return TrackInfo{}, err
	}

	ext := strings.TrimPrefix(strings.ToUpper(filepath.Ext(path)), ".")

	return TrackInfo{
		Path:       path,
		Filename:   filepath.Base(path),
		SizeBytes:  stat.Size(),
		Format:     ext,
		Duration:   buf.Duration(),
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.Channels,
	}, nil
}

// Exists reports whether a track path resolves to a regular file.
func Exists(path string) bool {
	stat, err := os.Stat(path)
	return err == nil && stat.Mode().IsRegular()
}
