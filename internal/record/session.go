package record

import (
	"context"
	"fmt"
	log "log/slog"
	"sync"
	"sync/atomic"
	"time"

	"voxchat/pkg/lang"
	"voxchat/pkg/stt"
)

// Session is one voice capture. It moves idle → recording → stopped →
// transcribing → complete and never goes back; a new capture needs a new
// Session. Discard moves it to discarded from any state but complete.
type Session struct {
	dev  Device
	opts Options

	// transitions serializes state changes with their OnState calls so
	// listeners see them in order.
	transitions sync.Mutex

	mu         sync.Mutex
	state      State
	discarded  bool
	sampleRate int
	chunks     [][]float32

	elapsed atomic.Int64

	ctx      context.Context
	cancel   context.CancelFunc
	stop     chan struct{}
	stopOnce sync.Once
	released chan struct{}
	done     chan struct{}
	result   Result
}

func NewSession(dev Device, opts Options) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		dev:      dev,
		opts:     opts,
		state:    StateIdle,
		ctx:      ctx,
		cancel:   cancel,
		stop:     make(chan struct{}),
		released: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Elapsed is the recording time counted by the session ticker. It is for
// display only.
func (s *Session) Elapsed() time.Duration {
	return time.Duration(s.elapsed.Load())
}

func (s *Session) Status() Status {
	return Status{State: s.State(), Elapsed: s.Elapsed()}
}

// Start acquires the capture device and begins recording. If the device
// cannot be acquired the session stays idle and the error matches
// ErrDeviceUnavailable.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.discarded {
		s.mu.Unlock()
		return ErrDiscarded
	}
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrStarted
	}
	s.mu.Unlock()

	c, err := s.dev.Open(ctx)
	if err != nil {
		log.Warn("capture device unavailable", "err", err)
		return &DeviceError{Err: err}
	}

	s.transitions.Lock()
	s.mu.Lock()
	if s.discarded || s.state != StateIdle {
		s.mu.Unlock()
		s.transitions.Unlock()
		c.Close()
		return ErrDiscarded
	}
	s.sampleRate = c.SampleRate()
	s.state = StateRecording
	s.mu.Unlock()
	s.notify(StateRecording)
	s.transitions.Unlock()

	log.Info("recording started", "sample_rate", s.sampleRate)

	go s.run(c)
	go s.tick()
	return nil
}

// Stop ends the capture. The rest of the pipeline runs in the background;
// use Wait or Options.OnComplete for the outcome. Stop outside the
// recording state does nothing.
func (s *Session) Stop() {
	if s.State() != StateRecording {
		return
	}
	s.stopOnce.Do(func() { close(s.stop) })
}

// Discard abandons the session. The capture device, if held, is released
// before Discard returns and no result is handed off.
func (s *Session) Discard() {
	s.mu.Lock()
	if s.discarded || s.state == StateComplete {
		s.mu.Unlock()
		return
	}
	s.discarded = true
	started := s.state != StateIdle
	s.mu.Unlock()

	s.setState(StateDiscarded)
	s.cancel()
	s.stopOnce.Do(func() { close(s.stop) })
	if started {
		<-s.released
		return
	}
	close(s.done)
}

// Wait blocks until the session completes or is discarded.
func (s *Session) Wait(ctx context.Context) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-s.done:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.discarded {
		return Result{}, ErrDiscarded
	}
	return s.result, nil
}

// Done is closed once the session is complete or discarded.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) run(c Capture) {
	defer close(s.done)
	defer s.cancel()

	s.capture(c)

	if s.isDiscarded() {
		log.Info("recording discarded")
		return
	}

	s.setState(StateStopped)
	res, pcm := s.assemble()

	s.setState(StateTranscribing)
	if res.Err == nil {
		s.transcribe(&res, pcm)
	}

	s.mu.Lock()
	s.result = res
	s.mu.Unlock()

	if !s.setState(StateComplete) {
		if res.Err == nil {
			s.opts.Store.Release(res.Recording.Handle)
		}
		log.Info("recording discarded")
		return
	}
	log.Info("recording complete",
		"duration", res.Recording.Duration,
		"locale", res.Locale,
		"transcript", res.Recording.Transcript,
	)

	if s.opts.OnComplete != nil {
		s.opts.OnComplete(res)
	}
}

// capture reads chunks until stopped, the length limit is hit or the device
// fails. The device is released on the way out no matter which.
func (s *Session) capture(c Capture) {
	defer close(s.released)
	defer func() {
		if err := c.Close(); err != nil {
			log.Debug("capture close", "err", err)
		}
	}()

	var deadline time.Time
	if s.opts.MaxDuration > 0 {
		deadline = time.Now().Add(s.opts.MaxDuration)
	}

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			log.Info("recording length limit reached", "max", s.opts.MaxDuration)
			return
		}

		chunk, err := c.Read()
		if err != nil {
			log.Warn("capture read failed", "err", err)
			return
		}

		s.mu.Lock()
		s.chunks = append(s.chunks, append([]float32(nil), chunk...))
		s.mu.Unlock()
	}
}

func (s *Session) tick() {
	t := time.NewTicker(s.opts.tick())
	defer t.Stop()

	for {
		select {
		case <-s.released:
			return
		case <-t.C:
			select {
			case <-s.released:
				return
			default:
			}
			n := s.elapsed.Add(int64(s.opts.tick()))
			if s.opts.OnTick != nil {
				s.opts.OnTick(time.Duration(n))
			}
		}
	}
}

// assemble concatenates the chunks in arrival order and stores them.
func (s *Session) assemble() (Result, []float32) {
	s.mu.Lock()
	chunks := s.chunks
	s.chunks = nil
	rate := s.sampleRate
	s.mu.Unlock()

	n := 0
	for _, c := range chunks {
		n += len(c)
	}
	pcm := make([]float32, 0, n)
	for _, c := range chunks {
		pcm = append(pcm, c...)
	}

	res := Result{Locale: lang.Default}
	if s.opts.Store == nil {
		res.Err = fmt.Errorf("assemble recording: no blob store")
		return res, nil
	}

	rec, err := storeWAV(s.opts.Store, pcm, rate)
	if err != nil {
		res.Err = fmt.Errorf("assemble recording: %w", err)
		log.Error("failed to store recording", "err", err)
		return res, nil
	}
	res.Recording = rec
	return res, pcm
}

// transcribe fills in the transcript and locale. Failures fall back to the
// default locale.
func (s *Session) transcribe(res *Result, pcm []float32) {
	if s.opts.Transcriber == nil {
		res.TranscriptionFailed = true
		return
	}

	ctx := s.ctx
	if s.opts.TranscribeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.TranscribeTimeout)
		defer cancel()
	}

	out, err := s.opts.Transcriber.TranscribePCM(ctx, pcm, stt.Options{Language: "auto"})
	if err != nil {
		log.Warn("transcription failed, using default locale", "err", err, "locale", lang.Default)
		res.TranscriptionFailed = true
		res.Locale = lang.Default
		return
	}

	res.Recording.Transcript = out.Text
	res.Locale = lang.DetectTranscript(out.Text)
}

// setState moves to st and tells the listener, which must not call back
// into the session. Once discarded, only the discarded state is accepted.
// It reports whether the move happened.
func (s *Session) setState(st State) bool {
	s.transitions.Lock()
	defer s.transitions.Unlock()

	s.mu.Lock()
	if s.discarded && st != StateDiscarded {
		s.mu.Unlock()
		return false
	}
	s.state = st
	s.mu.Unlock()

	s.notify(st)
	return true
}

func (s *Session) notify(st State) {
	if s.opts.OnState != nil {
		s.opts.OnState(st)
	}
}

func (s *Session) isDiscarded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discarded
}
