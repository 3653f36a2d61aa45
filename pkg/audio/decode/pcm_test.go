// ABOUTME: Tests for raw PCM decoding
// ABOUTME: Tests byte-to-sample conversion and truncation handling
package decode

import (
	"bytes"
	"testing"

	"github.com/Segue-Audio/segue-go/pkg/audio"
)

func TestPCMDecode(t *testing.T) {
	// Two stereo frames: (1000, -1000), (0, 32767)
	raw := []byte{
		0xE8, 0x03, 0x18, 0xFC,
		0x00, 0x00, 0xFF, 0x7F,
	}

	dec := NewPCM(audio.Format{SampleRate: 8000, Channels: 2})
	buf, err := dec.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []int16{1000, -1000, 0, 32767}
	if len(buf.Samples) != len(expected) {
		t.Fatalf("expected %d samples, got %d", len(expected), len(buf.Samples))
	}
	for i, want := range expected {
		if buf.Samples[i] != want {
			t.Errorf("sample %d: expected %d, got %d", i, want, buf.Samples[i])
		}
	}
	if buf.Frames() != 2 {
		t.Errorf("expected 2 frames, got %d", buf.Frames())
	}
}

func TestPCMDecodeTruncated(t *testing.T) {
	dec := NewPCM(DefaultPCMFormat)
	if _, err := dec.Decode(bytes.NewReader([]byte{0x01, 0x02, 0x03})); err == nil {
		t.Error("expected error for odd byte count")
	}
}

func TestPCMDecodeEmpty(t *testing.T) {
	dec := NewPCM(DefaultPCMFormat)
	buf, err := dec.Decode(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Frames() != 0 {
		t.Errorf("expected empty buffer, got %d frames", buf.Frames())
	}
}
