package audioconv

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeWAV(t *testing.T, rate, channels int, data []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDecodeWAVByMIME(t *testing.T) {
	data := []int{0, 16384, -16384, 32767}
	path := writeWAV(t, 16000, 1, data)

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	got, err := Decode(context.Background(), f, "audio/wav", Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{0, 0.5, -0.5, float32(32767.0 / 32768.0)}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecodeSniffsAndResamples(t *testing.T) {
	data := make([]int, 1600) // 100ms at 16k
	path := writeWAV(t, 16000, 1, data)

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	got, err := Decode(context.Background(), f, "", Options{SampleRate: 8000})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 800 {
		t.Fatalf("got %d samples at 8k, want 800", len(got))
	}
}

func TestDecodeFileDownmixesAndTruncates(t *testing.T) {
	// stereo frames (L, R)
	data := []int{16384, -16384, 16384, 16384, 0, 0}
	path := writeWAV(t, 16000, 2, data)

	got, err := DecodeFile(context.Background(), path, Options{MaxSamples: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != 0 || got[1] != 0.5 {
		t.Fatalf("got %v, want [0 0.5]", got)
	}
}

func TestDecodeUnsupported(t *testing.T) {
	_, err := Decode(context.Background(), bytes.NewReader([]byte("%PDF-1.7 ...")), "application/pdf", Options{})
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestDecodeHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Decode(ctx, bytes.NewReader(nil), "audio/wav", Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestTypeByPath(t *testing.T) {
	tests := map[string]string{
		"a.WAV":     "audio/wav",
		"b.mp3":     "audio/mpeg",
		"c.opus":    "audio/ogg",
		"d.unknown": "application/octet-stream",
	}
	for in, want := range tests {
		if got := TypeByPath(in); got != want {
			t.Errorf("TypeByPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResampleLinear(t *testing.T) {
	in := []float32{0, 1, 0, -1}
	if got := resampleLinear(in, 8000, 8000); &got[0] != &in[0] {
		t.Error("same-rate resample copied the input")
	}
	up := resampleLinear(in, 8000, 16000)
	if len(up) != 8 || up[1] != 0.5 {
		t.Fatalf("upsampled = %v", up)
	}
}
