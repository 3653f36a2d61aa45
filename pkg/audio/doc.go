// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Buffer types and frame/time conversion helpers
// Package audio provides fundamental audio types for the playback engine.
//
// This package defines the core types used throughout the segue library:
//   - Format: Describes a PCM stream layout (sample rate, channels)
//   - Buffer: A fully decoded track of interleaved int16 samples
//
// It also provides frame/duration arithmetic used for device-clock
// scheduling, and sample range conversions used by the signal graph.
//
// Example:
//
//	format := audio.Format{SampleRate: 44100, Channels: 2}
//	frames := audio.DurationToFrames(time.Second, format.SampleRate) // 44100
package audio
