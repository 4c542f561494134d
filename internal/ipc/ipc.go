package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const dialTimeout = 2 * time.Second

// DefaultSocketPath is used when no path is configured.
func DefaultSocketPath() string {
	return filepath.Join(os.TempDir(), "voxchat.sock")
}

// ControlMessage is one command sent by voxchat-ctl.
type ControlMessage struct {
	Cmd  string   `json:"cmd"`
	Args []string `json:"args,omitempty"`
}

// Reply is the daemon's answer to a ControlMessage.
type Reply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Text  string `json:"text,omitempty"`
}

func Ok(text string) Reply { return Reply{OK: true, Text: text} }

func Fail(err error) Reply { return Reply{Error: err.Error()} }

type Handler func(ControlMessage) Reply

type Server struct {
	ln   net.Listener
	path string
	wg   sync.WaitGroup
	once sync.Once
}

// StartServer listens on the unix socket at path, replacing a stale one,
// and serves one message per connection.
func StartServer(path string, handler Handler) (*Server, error) {
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	s := &Server{ln: ln, path: path}
	s.wg.Add(1)
	go s.serve(handler)

	log.Debug("control socket ready", "path", path)
	return s, nil
}

func (s *Server) serve(handler Handler) {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("control accept failed", "err", err)
			continue
		}
		go handleConn(conn, handler)
	}
}

func (s *Server) Close() error {
	var err error
	s.once.Do(func() {
		err = s.ln.Close()
		s.wg.Wait()
		os.Remove(s.path)
	})
	return err
}

func handleConn(conn net.Conn, handler Handler) {
	defer conn.Close()

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		log.Debug("bad control message", "err", err)
		return
	}
	log.Debug("control message", "cmd", msg.Cmd, "args", msg.Args)

	if err := json.NewEncoder(conn).Encode(handler(msg)); err != nil {
		log.Debug("control reply failed", "err", err)
	}
}

// SendCommand delivers one message to the daemon at path and waits for its
// reply.
func SendCommand(path string, msg ControlMessage) (Reply, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return Reply{}, err
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return Reply{}, fmt.Errorf("send: %w", err)
	}

	var r Reply
	if err := json.NewDecoder(conn).Decode(&r); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	return r, nil
}
