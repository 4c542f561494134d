package visual

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"voxchat/internal/chat"
)

type fakeDecoder struct {
	err error

	mu      sync.Mutex
	sources []*fakeSource
}

func (d *fakeDecoder) Decode(ctx context.Context, ref chat.Handle) (Source, error) {
	if d.err != nil {
		return nil, d.err
	}
	s := &fakeSource{done: make(chan struct{})}
	d.mu.Lock()
	d.sources = append(d.sources, s)
	d.mu.Unlock()
	return s, nil
}

func (d *fakeDecoder) last() *fakeSource {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sources[len(d.sources)-1]
}

type fakeSource struct {
	mu     sync.Mutex
	events []string
	an     *fakeAnalyser
	done   chan struct{}
	end    sync.Once
}

func (s *fakeSource) record(e string) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *fakeSource) log() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func (s *fakeSource) Analyser(fftSize int) (Analyser, error) {
	s.an = &fakeAnalyser{bins: fftSize / 2, src: s}
	return s.an, nil
}

func (s *fakeSource) Play() error           { s.record("play"); return nil }
func (s *fakeSource) Pause()                { s.record("pause") }
func (s *fakeSource) Done() <-chan struct{} { return s.done }
func (s *fakeSource) Close() error          { s.record("close source"); return nil }
func (s *fakeSource) finish()               { s.end.Do(func() { close(s.done) }) }

type fakeAnalyser struct {
	bins    int
	src     *fakeSource
	samples atomic.Int32
}

func (a *fakeAnalyser) FrequencyBinCount() int { return a.bins }

func (a *fakeAnalyser) ByteFrequencyData(dst []byte) {
	a.samples.Add(1)
	for i := range dst {
		dst[i] = byte(i * 2)
	}
}

func (a *fakeAnalyser) Close() error { a.src.record("close analyser"); return nil }

type rect struct {
	x, y, w, h float64
	c          Color
}

type fakeSurface struct {
	mu     sync.Mutex
	clears []Color
	rects  []rect
}

func (s *fakeSurface) Width() float64  { return 200 }
func (s *fakeSurface) Height() float64 { return 60 }

func (s *fakeSurface) Clear(c Color) {
	s.mu.Lock()
	s.clears = append(s.clears, c)
	s.rects = s.rects[:0]
	s.mu.Unlock()
}

func (s *fakeSurface) FillRect(x, y, w, h float64, c Color) {
	s.mu.Lock()
	s.rects = append(s.rects, rect{x, y, w, h, c})
	s.mu.Unlock()
}

func startTest(t *testing.T, dec *fakeDecoder, surf Surface, opts Options) *Session {
	t.Helper()
	if opts.FrameInterval == 0 {
		opts.FrameInterval = time.Millisecond
	}
	s, err := Start(context.Background(), dec, "blob:test", surf, opts)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func waitFrames(t *testing.T, s *Session, n int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Frames() < n {
		if time.Now().After(deadline) {
			t.Fatalf("only %d frames drawn", s.Frames())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDrawGeometry(t *testing.T) {
	surf := &fakeSurface{}
	data := make([]byte, 128)
	data[0] = 255
	data[1] = 51
	data[127] = 0

	Draw(surf, data, Dark)

	if len(surf.clears) != 1 || surf.clears[0] != "#1F2937" {
		t.Fatalf("clears = %v", surf.clears)
	}
	if len(surf.rects) != 128 {
		t.Fatalf("drew %d bars", len(surf.rects))
	}

	barWidth := 200.0 / 128
	h1 := float64(51) / 255 * 60
	want := []rect{
		{0, 0, barWidth - 1, 60, "#6366F1"},
		{barWidth, 60 - h1, barWidth - 1, h1, "#6366F1"},
	}
	for i, w := range want {
		if surf.rects[i] != w {
			t.Errorf("bar %d = %+v, want %+v", i, surf.rects[i], w)
		}
	}
	last := surf.rects[127]
	if last.h != 0 || last.y != 60 || last.x != 127*barWidth {
		t.Errorf("last bar = %+v", last)
	}
}

func TestDrawLightPalette(t *testing.T) {
	surf := &fakeSurface{}
	Draw(surf, []byte{10}, PaletteFor(false))
	if surf.clears[0] != "#F3F4F6" || surf.rects[0].c != "#4F46E5" {
		t.Fatalf("light palette = %v / %v", surf.clears[0], surf.rects[0].c)
	}
}

func TestSessionRendersUntilClosed(t *testing.T) {
	dec := &fakeDecoder{}
	surf := &fakeSurface{}
	s := startTest(t, dec, surf, Options{DarkMode: true})

	if !s.Active() {
		t.Fatal("session not active after Start")
	}
	waitFrames(t, s, 3)

	src := dec.last()
	if src.an.bins != 128 {
		t.Fatalf("analyser bins = %d, want 128", src.an.bins)
	}

	s.Close()
	if s.Active() {
		t.Fatal("session still active after Close")
	}

	got := src.log()
	want := []string{"play", "pause", "close analyser", "close source"}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestDoubleCloseIsSafe(t *testing.T) {
	dec := &fakeDecoder{}
	var closes atomic.Int32
	s := startTest(t, dec, &fakeSurface{}, Options{
		OnClose: func(*Session) { closes.Add(1) },
	})
	waitFrames(t, s, 1)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Close()
		}()
	}
	wg.Wait()
	s.Close()

	if closes.Load() != 1 {
		t.Fatalf("teardown ran %d times", closes.Load())
	}
	if n := len(dec.last().log()); n != 4 {
		t.Fatalf("events = %v", dec.last().log())
	}

	frames := s.Frames()
	samples := dec.last().an.samples.Load()
	time.Sleep(20 * time.Millisecond)
	if s.Frames() != frames || dec.last().an.samples.Load() != samples {
		t.Fatal("render loop kept running after teardown")
	}
}

func TestPlaybackEndTearsDown(t *testing.T) {
	dec := &fakeDecoder{}
	s := startTest(t, dec, &fakeSurface{}, Options{})
	waitFrames(t, s, 1)

	dec.last().finish()

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not close at end of playback")
	}
	if s.Active() {
		t.Fatal("session active after playback ended")
	}
}

func TestContextCancelTearsDown(t *testing.T) {
	dec := &fakeDecoder{}
	ctx, cancel := context.WithCancel(context.Background())
	s, err := Start(ctx, dec, "blob:x", &fakeSurface{}, Options{FrameInterval: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	cancel()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not close on context cancel")
	}
	if got := dec.last().log(); got[len(got)-1] != "close source" {
		t.Fatalf("events = %v", got)
	}
}

func TestStartDecodeError(t *testing.T) {
	dec := &fakeDecoder{err: errors.New("bad data")}
	_, err := Start(context.Background(), dec, "blob:x", &fakeSurface{}, Options{})
	if err == nil || err.Error() != "decode blob:x: bad data" {
		t.Fatalf("err = %v", err)
	}
}

func TestSessionClearsWithPalette(t *testing.T) {
	surf := &fakeSurface{}
	s := startTest(t, &fakeDecoder{}, surf, Options{DarkMode: false})
	waitFrames(t, s, 2)
	s.Close()

	surf.mu.Lock()
	defer surf.mu.Unlock()
	for _, c := range surf.clears {
		if c != Light.Background {
			t.Fatalf("clear colour = %s", c)
		}
	}
	if len(surf.rects) != 128 || surf.rects[5].h != float64(10)/255*60 {
		t.Fatalf("last frame = %d bars, bar 5 = %+v", len(surf.rects), surf.rects[5])
	}
}
