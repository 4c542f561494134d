package record

import (
	"context"
	"sync"
)

// Recorder enforces one capture at a time for a conversation view. A
// session that has stopped recording no longer counts as active, so a new
// capture can start while the previous one is still being transcribed.
type Recorder struct {
	dev  Device
	opts Options

	mu       sync.Mutex
	active   *Session
	starting bool
	closed   bool
}

func NewRecorder(dev Device, opts Options) *Recorder {
	return &Recorder{dev: dev, opts: opts}
}

// Begin starts a new capture. When the device cannot be acquired no session
// is returned and the error matches ErrDeviceUnavailable. The device is
// acquired without holding the recorder lock.
func (r *Recorder) Begin(ctx context.Context) (*Session, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrDiscarded
	}
	if r.starting || (r.active != nil && r.active.State() == StateRecording) {
		r.mu.Unlock()
		return nil, ErrBusy
	}
	r.starting = true
	r.mu.Unlock()

	s := NewSession(r.dev, r.opts)
	err := s.Start(ctx)

	r.mu.Lock()
	r.starting = false
	closed := r.closed
	if err == nil && !closed {
		r.active = s
	}
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if closed {
		s.Discard()
		return nil, ErrDiscarded
	}
	return s, nil
}

// Stop ends the active capture, if any, and returns it.
func (r *Recorder) Stop() *Session {
	r.mu.Lock()
	s := r.active
	r.mu.Unlock()

	if s == nil || s.State() != StateRecording {
		return nil
	}
	s.Stop()
	return s
}

// Toggle behaves like a record button: it stops the active capture or
// starts a new one. started reports which happened.
func (r *Recorder) Toggle(ctx context.Context) (s *Session, started bool, err error) {
	if s := r.Stop(); s != nil {
		return s, false, nil
	}
	s, err = r.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// Status reports the most recent session, or idle when there is none.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	s := r.active
	r.mu.Unlock()

	if s == nil {
		return Status{State: StateIdle}
	}
	return s.Status()
}

// Close discards the most recent session, releasing the device if it is
// still recording. Later calls to Begin fail.
func (r *Recorder) Close() {
	r.mu.Lock()
	r.closed = true
	s := r.active
	r.active = nil
	r.mu.Unlock()

	if s != nil {
		s.Discard()
	}
}
