package chat

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrUnknownHandle = errors.New("chat: unknown handle")
	ErrStoreClosed   = errors.New("chat: handle store closed")
)

const handlePrefix = "blob:"

type blob struct {
	path string
	mime string
}

// HandleStore keeps the binary data behind file and voice messages for the
// lifetime of one chat session. Data lives in a private directory that is
// removed on Close.
type HandleStore struct {
	mu     sync.Mutex
	dir    string
	blobs  map[Handle]blob
	closed bool
}

// NewHandleStore creates a store in a fresh directory under root. An empty
// root means the system temp directory.
func NewHandleStore(root string) (*HandleStore, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("handle root: %w", err)
		}
	}
	dir, err := os.MkdirTemp(root, "voxchat-*")
	if err != nil {
		return nil, fmt.Errorf("handle dir: %w", err)
	}
	return &HandleStore{
		dir:   dir,
		blobs: make(map[Handle]blob),
	}, nil
}

// Put copies r into the store.
func (s *HandleStore) Put(mime string, r io.Reader) (Handle, error) {
	h, f, err := s.Create(mime)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		s.Release(h)
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		s.Release(h)
		return "", fmt.Errorf("close blob: %w", err)
	}
	return h, nil
}

// Create registers a new handle and returns its backing file for writing.
// The caller must close the file.
func (s *HandleStore) Create(mime string) (Handle, *os.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", nil, ErrStoreClosed
	}

	id := uuid.NewString()
	path := filepath.Join(s.dir, id)
	f, err := os.Create(path)
	if err != nil {
		return "", nil, fmt.Errorf("create blob: %w", err)
	}

	h := Handle(handlePrefix + id)
	s.blobs[h] = blob{path: path, mime: mime}
	return h, f, nil
}

// Open returns the data behind h along with its MIME type.
func (s *HandleStore) Open(h Handle) (*os.File, string, error) {
	b, err := s.lookup(h)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(b.path)
	if err != nil {
		return nil, "", fmt.Errorf("open blob: %w", err)
	}
	return f, b.mime, nil
}

func (s *HandleStore) MIME(h Handle) (string, error) {
	b, err := s.lookup(h)
	if err != nil {
		return "", err
	}
	return b.mime, nil
}

func (s *HandleStore) lookup(h Handle) (blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return blob{}, ErrStoreClosed
	}
	b, ok := s.blobs[h]
	if !ok {
		return blob{}, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	return b, nil
}

// Release drops h and its data.
func (s *HandleStore) Release(h Handle) error {
	s.mu.Lock()
	b, ok := s.blobs[h]
	delete(s.blobs, h)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	err := os.Remove(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Close releases every handle. It is safe to call more than once.
func (s *HandleStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.blobs = nil
	return os.RemoveAll(s.dir)
}
