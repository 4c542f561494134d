package visual

import (
	"context"
	"fmt"
	"io"
	log "log/slog"
	"sync"
	"sync/atomic"
	"time"

	"voxchat/internal/chat"
)

// Session is one playback with its spectrum render loop. It owns the
// decoded source, the analyser and the surface and releases them on Close.
type Session struct {
	ref     chat.Handle
	src     Source
	an      Analyser
	surface Surface
	palette Palette
	opts    Options

	buf    []byte
	frames atomic.Int64

	cancel   context.CancelFunc
	loopDone chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
	active    atomic.Bool
}

// Start decodes ref, begins playback and runs the render loop on surface.
// Cancelling ctx ends the session the same way Close does.
func Start(ctx context.Context, dec Decoder, ref chat.Handle, surface Surface, opts Options) (*Session, error) {
	src, err := dec.Decode(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref, err)
	}

	an, err := src.Analyser(FFTSize)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("analyser: %w", err)
	}

	s := &Session{
		ref:      ref,
		src:      src,
		an:       an,
		surface:  surface,
		palette:  PaletteFor(opts.DarkMode),
		opts:     opts,
		buf:      make([]byte, an.FrequencyBinCount()),
		loopDone: make(chan struct{}),
		closed:   make(chan struct{}),
	}

	if err := src.Play(); err != nil {
		an.Close()
		src.Close()
		return nil, fmt.Errorf("play %s: %w", ref, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.active.Store(true)

	go s.loop(loopCtx)
	go s.watch(loopCtx)

	log.Debug("visualization started", "ref", ref, "bins", len(s.buf))
	return s, nil
}

// releaseSurface closes surfaces that hold on to something, such as a
// terminal region.
func releaseSurface(sf Surface) {
	c, ok := sf.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		log.Debug("surface close", "err", err)
	}
}

func (s *Session) Ref() chat.Handle { return s.ref }

// Active reports whether the render loop is still running.
func (s *Session) Active() bool { return s.active.Load() }

// Frames is the number of frames drawn so far.
func (s *Session) Frames() int64 { return s.frames.Load() }

// Done is closed once teardown has finished.
func (s *Session) Done() <-chan struct{} { return s.closed }

// Close stops the loop and waits for it, pauses playback, then releases
// the analyser, the decoded source and the surface. It is safe to call any number of
// times from any goroutine.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.active.Store(false)
		s.cancel()
		<-s.loopDone

		s.src.Pause()
		if err := s.an.Close(); err != nil {
			log.Debug("analyser close", "err", err)
		}
		if err := s.src.Close(); err != nil {
			log.Debug("source close", "err", err)
		}
		releaseSurface(s.surface)

		close(s.closed)
		log.Debug("visualization closed", "ref", s.ref, "frames", s.frames.Load())

		if s.opts.OnClose != nil {
			s.opts.OnClose(s)
		}
	})
	return nil
}

func (s *Session) loop(ctx context.Context) {
	defer close(s.loopDone)

	t := time.NewTicker(s.opts.interval())
	defer t.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		s.frame()

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// watch tears the session down when playback ends or ctx is cancelled.
func (s *Session) watch(ctx context.Context) {
	select {
	case <-s.src.Done():
		log.Debug("playback finished", "ref", s.ref)
	case <-ctx.Done():
	}
	s.Close()
}

func (s *Session) frame() {
	s.an.ByteFrequencyData(s.buf)
	Draw(s.surface, s.buf, s.palette)

	if p, ok := s.surface.(Presenter); ok {
		if err := p.Present(); err != nil {
			log.Debug("present frame", "err", err)
		}
	}
	s.frames.Add(1)
}
