// ABOUTME: Asynchronous track loading and preloading for the engine
// ABOUTME: Whole-file decode, normalization to device format, token supersession
package engine

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/zaf/resample"

	"github.com/Segue-Audio/segue-go/pkg/audio"
)

var (
	// ErrCancelled marks a load superseded by a newer request for the same
	// slot. It is reported to callers but never to the error sink.
	ErrCancelled = errors.New("load cancelled by newer request")

	// ErrSourceTooLarge marks a source rejected by the size guard before
	// decoding.
	ErrSourceTooLarge = errors.New("source file too large")
)

// LoadTrack decodes path into the current slot, replacing whatever is
// there. It blocks until the buffer is committed or the load fails; a
// LoadTrack or Reset issued concurrently supersedes this one, which then
// returns ErrCancelled. Loading always stops playback; callers restart it.
func (e *Engine) LoadTrack(path string) error {
	e.mu.Lock()
	token := uuid.New()
	e.loadToken = token
	// a new current track invalidates any preloaded successor
	e.preloadToken = uuid.New()
	e.preloadPath = ""
	e.mu.Unlock()

	buf, err := e.decodeTrack(path)

	e.mu.Lock()
	if e.loadToken != token {
		e.mu.Unlock()
		return ErrCancelled
	}
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("loading %s: %w", path, err)
	}

	e.cancelSwapLocked()
	cur := e.slots[e.cur]
	e.destroyNodeLocked(cur)
	cur.buf = buf
	cur.path = path

	nxt := e.slots[1-e.cur]
	e.destroyNodeLocked(nxt)
	nxt.buf = nil
	nxt.path = ""

	e.playing = false
	e.pauseOffset = 0
	e.mu.Unlock()
	return nil
}

// PreloadNextTrack decodes path into the next slot in the background and,
// once committed, arms the gapless swap if playback is live. Preloading the
// path already bound or in flight for the next slot is a no-op.
func (e *Engine) PreloadNextTrack(path string) {
	token, ok := e.beginPreload(path)
	if !ok {
		return
	}
	go e.preloadWorker(token, path)
}

// beginPreload records preload intent under the lock. It reports false
// when the request is redundant: the path is already the bound next track
// or an identical preload is in flight.
func (e *Engine) beginPreload(path string) (uuid.UUID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.slots[1-e.cur].path == path && e.slots[1-e.cur].buf != nil {
		return uuid.UUID{}, false
	}
	if e.preloadPath == path && e.preloadToken != (uuid.UUID{}) {
		return uuid.UUID{}, false
	}

	token := uuid.New()
	e.preloadToken = token
	e.preloadPath = path
	e.preloadInFlight++
	return token, true
}

// preloadWorker decodes off the lock and commits the buffer if the token
// still stands. Commit cancels a swap armed for the previous next buffer
// and re-arms for this one.
func (e *Engine) preloadWorker(token uuid.UUID, path string) {
	buf, err := e.decodeTrack(path)

	e.mu.Lock()
	e.preloadInFlight--
	if e.preloadToken != token {
		e.mu.Unlock()
		return
	}
	e.preloadToken = uuid.UUID{}
	e.preloadPath = ""
	if err != nil {
		e.mu.Unlock()
		e.reportError(fmt.Errorf("preloading %s: %w", path, err))
		return
	}

	if e.state == swapArmed {
		e.cancelSwapLocked()
	}
	nxt := e.slots[1-e.cur]
	e.destroyNodeLocked(nxt)
	nxt.buf = buf
	nxt.path = path

	if e.playing {
		e.armLocked()
	}
	e.mu.Unlock()
}

// decodeTrack decodes a whole file and normalizes it to the device format.
func (e *Engine) decodeTrack(path string) (*audio.Buffer, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stating source: %w", err)
	}
	if fi.Size() > e.cfg.MaxSourceBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrSourceTooLarge, fi.Size(), e.cfg.MaxSourceBytes)
	}

	buf, err := e.decode(path)
	if err != nil {
		return nil, err
	}
	return e.normalize(buf)
}

// normalize converts a decoded buffer to the device sample rate and channel
// count. Rate conversion runs through SoXR at high quality; channel
// conversion duplicates cyclically upward and averages downward.
func (e *Engine) normalize(buf *audio.Buffer) (*audio.Buffer, error) {
	device := e.g.Format()

	if buf.Format.Channels != device.Channels {
		buf = remapChannels(buf, device.Channels)
	}
	if buf.Format.SampleRate == device.SampleRate {
		return buf, nil
	}

	raw := make([]byte, len(buf.Samples)*2)
	for i, s := range buf.Samples {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(s))
	}

	var out bytes.Buffer
	r, err := resample.New(&out,
		float64(buf.Format.SampleRate), float64(device.SampleRate),
		buf.Format.Channels, resample.I16, resample.HighQ)
	if err != nil {
		return nil, fmt.Errorf("creating resampler: %w", err)
	}
	if _, err := r.Write(raw); err != nil {
		r.Close()
		return nil, fmt.Errorf("resampling: %w", err)
	}
	if err := r.Close(); err != nil {
		return nil, fmt.Errorf("flushing resampler: %w", err)
	}

	converted := out.Bytes()
	samples := make([]int16, len(converted)/2)
	if err := binary.Read(bytes.NewReader(converted[:len(samples)*2]), binary.LittleEndian, samples); err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading resampled data: %w", err)
	}
	return &audio.Buffer{
		Format:  audio.Format{SampleRate: device.SampleRate, Channels: buf.Format.Channels},
		Samples: samples,
	}, nil
}

// remapChannels converts between channel counts frame by frame. Upmixing
// duplicates source channels cyclically; downmixing averages the source
// frame into each output channel.
func remapChannels(buf *audio.Buffer, channels int) *audio.Buffer {
	src := buf.Format.Channels
	frames := buf.Frames()
	out := make([]int16, int(frames)*channels)

	for f := int64(0); f < frames; f++ {
		in := buf.Samples[f*int64(src) : (f+1)*int64(src)]
		if channels >= src {
			for c := 0; c < channels; c++ {
				out[f*int64(channels)+int64(c)] = in[c%src]
			}
		} else {
			var sum int64
			for _, s := range in {
				sum += int64(s)
			}
			avg := int16(sum / int64(src))
			for c := 0; c < channels; c++ {
				out[f*int64(channels)+int64(c)] = avg
			}
		}
	}
	return &audio.Buffer{
		Format:  audio.Format{SampleRate: buf.Format.SampleRate, Channels: channels},
		Samples: out,
	}
}

// waitForPreload blocks until no preload worker is in flight, for tests
// that need the background decode to settle without exporting internals.
func (e *Engine) waitForPreload(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		e.mu.Lock()
		idle := e.preloadInFlight == 0
		e.mu.Unlock()
		if idle {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}
