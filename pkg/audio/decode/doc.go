// ABOUTME: Audio decoder package for multiple codec support
// ABOUTME: Provides whole-file decoders for MP3, FLAC, WAV, Vorbis, Opus and raw PCM
// Package decode provides audio decoders for various codecs.
//
// Supports: MP3, FLAC, WAV, Ogg Vorbis, Ogg Opus, raw PCM
//
// All decoders implement the Decoder interface and decode an entire source
// to an audio.Buffer of interleaved int16 samples. Decoders are selected by
// file extension via ForPath, or a whole file can be decoded in one call
// with DecodeFile.
//
// Example:
//
//	buf, err := decode.DecodeFile("/music/track.flac")
package decode
