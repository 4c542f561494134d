package visual

import (
	"context"
	"sync"

	"voxchat/internal/chat"
)

// Registry keeps at most one visualization per message.
type Registry struct {
	dec        Decoder
	newSurface func() Surface
	opts       Options

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
	onChange func(id string, active bool)
}

func NewRegistry(dec Decoder, newSurface func() Surface, opts Options) *Registry {
	return &Registry{
		dec:        dec,
		newSurface: newSurface,
		opts:       opts,
		sessions:   make(map[string]*Session),
	}
}

// OnChange registers fn to be told when a message's visualization starts
// or stops.
func (r *Registry) OnChange(fn func(id string, active bool)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// Play starts the visualization of message id, replacing any running one.
// It fails with ErrClosed once the registry is closed.
func (r *Registry) Play(ctx context.Context, id string, ref chat.Handle) error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrClosed
	}
	r.Stop(id)

	opts := r.opts
	opts.OnClose = func(s *Session) { r.remove(id, s) }

	surface := r.newSurface()
	s, err := Start(ctx, r.dec, ref, surface, opts)
	if err != nil {
		releaseSurface(surface)
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		s.Close()
		return ErrClosed
	}
	if !s.Active() {
		r.mu.Unlock()
		return nil
	}
	old := r.sessions[id]
	r.sessions[id] = s
	fn := r.onChange
	r.mu.Unlock()

	if old != nil {
		old.Close()
	}
	if fn != nil {
		fn(id, true)
	}
	return nil
}

// Stop ends the visualization of message id. It reports whether one was
// running.
func (r *Registry) Stop(id string) bool {
	r.mu.Lock()
	s := r.sessions[id]
	r.mu.Unlock()

	if s == nil {
		return false
	}
	s.Close()
	return true
}

func (r *Registry) Active(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[id]
	return s != nil && s.Active()
}

// Close ends every visualization. Later calls to Play fail.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.StopAll()
}

// StopAll ends every running visualization.
func (r *Registry) StopAll() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}

func (r *Registry) remove(id string, s *Session) {
	r.mu.Lock()
	if r.sessions[id] != s {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, id)
	fn := r.onChange
	r.mu.Unlock()

	if fn != nil {
		fn(id, false)
	}
}
