package audio

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"voxchat/internal/chat"
)

func sine(freq, rate float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/rate)
	}
	return out
}

func TestAnalyserPeak(t *testing.T) {
	a := NewAnalyser(256)
	if a.FrequencyBinCount() != 128 {
		t.Fatalf("bins = %d", a.FrequencyBinCount())
	}

	// bin k is k*rate/256; put the tone on bin 32
	const rate = 44100.0
	tone := sine(32*rate/256, rate, 256)

	data := make([]byte, 128)
	for i := 0; i < 30; i++ {
		a.Write(tone)
		a.ByteFrequencyData(data)
	}

	peak := 0
	for i, v := range data {
		if v > data[peak] {
			peak = i
		}
	}
	if peak < 31 || peak > 33 {
		t.Fatalf("peak at bin %d, want ~32", peak)
	}
	if data[peak] == 0 || data[100] >= data[peak] {
		t.Fatalf("peak %d, bin 100 %d", data[peak], data[100])
	}
}

func TestAnalyserSilence(t *testing.T) {
	a := NewAnalyser(256)
	data := make([]byte, 128)
	a.Write(make([]float64, 256))
	a.ByteFrequencyData(data)
	for i, v := range data {
		if v != 0 {
			t.Fatalf("bin %d = %d for silence", i, v)
		}
	}
}

func TestAnalyserClosed(t *testing.T) {
	a := NewAnalyser(256)
	a.Write(sine(1000, 44100, 256))
	a.Close()

	data := []byte{1, 2, 3}
	a.ByteFrequencyData(data)
	if data[0] != 0 || data[2] != 0 {
		t.Fatalf("closed analyser produced %v", data)
	}
}

func TestTrackStreamsAndTaps(t *testing.T) {
	tr := newTrack([]float32{0.25, -0.25, 0.5})
	an, err := tr.Analyser(4)
	if err != nil {
		t.Fatal(err)
	}

	buf := make([][2]float64, 2)
	n, ok := tr.stream(buf)
	if n != 2 || !ok || buf[0] != [2]float64{0.25, 0.25} || buf[1][1] != -0.25 {
		t.Fatalf("first read = %d %v %v", n, ok, buf)
	}
	n, ok = tr.stream(buf)
	if n != 1 || !ok || buf[0][0] != 0.5 {
		t.Fatalf("second read = %d %v %v", n, ok, buf)
	}
	if _, ok := tr.stream(buf); ok {
		t.Fatal("stream did not end")
	}

	a := an.(*Analyser)
	if a.ring[0] != 0.25 || a.ring[2] != 0.5 {
		t.Fatalf("tap ring = %v", a.ring)
	}
}

func TestTrackCloseEndsPlayback(t *testing.T) {
	tr := newTrack(make([]float32, 10))
	tr.Pause()
	if !tr.ctrl.Paused {
		t.Fatal("Pause did not pause")
	}
	tr.Close()
	tr.Close()

	select {
	case <-tr.Done():
	default:
		t.Fatal("Done not closed after Close")
	}
	if tr.ctrl.Streamer != nil {
		t.Fatal("track still attached to the mixer")
	}
}

func TestPlayerDecode(t *testing.T) {
	store, err := chat.NewHandleStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	h, f, err := store.Create("audio/wav")
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, 22050, 16, 1, 1)
	if err := enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 22050},
		Data:           make([]int, 2205),
		SourceBitDepth: 16,
	}); err != nil {
		t.Fatal(err)
	}
	enc.Close()
	f.Close()

	src, err := NewPlayer(store).Decode(context.Background(), h)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	// 100ms resampled to the speaker rate
	if got := len(src.(*track).pcm); got != 4410 {
		t.Fatalf("decoded %d samples, want 4410", got)
	}
}

func TestPlayerDecodeUnknownHandle(t *testing.T) {
	store, err := chat.NewHandleStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := NewPlayer(store).Decode(context.Background(), "blob:missing"); !errors.Is(err, chat.ErrUnknownHandle) {
		t.Fatalf("err = %v, want ErrUnknownHandle", err)
	}
}
