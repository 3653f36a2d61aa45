// ABOUTME: Core PCM audio types
// ABOUTME: Defines stream formats and whole-track decoded sample buffers
package audio

import "time"

// Format describes a PCM stream layout. Samples are always signed 16-bit
// little-endian, interleaved by channel.
type Format struct {
	SampleRate int
	Channels   int
}

// FrameBytes returns the byte size of one interleaved frame.
func (f Format) FrameBytes() int {
	return 2 * f.Channels
}

// Buffer holds one fully decoded track. Samples are interleaved int16 PCM.
// A buffer is immutable after decoding; ownership belongs to whichever
// playback slot it is bound to.
type Buffer struct {
	Format  Format
	Samples []int16
}

// Frames returns the number of sample frames in the buffer.
func (b *Buffer) Frames() int64 {
	if b.Format.Channels == 0 {
		return 0
	}
	return int64(len(b.Samples) / b.Format.Channels)
}

// Duration returns the buffer's playback length.
func (b *Buffer) Duration() time.Duration {
	return FramesToDuration(b.Frames(), b.Format.SampleRate)
}

// DurationToFrames converts a duration to a frame count at the given rate,
// rounding to the nearest frame. Rounding (rather than truncation) keeps
// FramesToDuration/DurationToFrames a lossless round trip, which the
// scheduler relies on to hit exact sample boundaries.
func DurationToFrames(d time.Duration, sampleRate int) int64 {
	if d < 0 {
		return 0
	}
	return (int64(d)*int64(sampleRate) + int64(time.Second)/2) / int64(time.Second)
}

// FramesToDuration converts a frame count to a duration at the given rate.
func FramesToDuration(frames int64, sampleRate int) time.Duration {
	if sampleRate == 0 {
		return 0
	}
	return time.Duration(frames * int64(time.Second) / int64(sampleRate))
}

// SampleToFloat converts an int16 sample to the [-1, 1) float range used by
// the analysis taps.
func SampleToFloat(s int16) float64 {
	return float64(s) / 32768.0
}

// ClampSample narrows a mixed int32 accumulator to the int16 output range.
func ClampSample(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
