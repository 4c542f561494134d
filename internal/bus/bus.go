// Package bus mirrors the conversation to a websocket hub for an external
// presentation layer and accepts its commands.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"voxchat/internal/chat"
)

// Outbound event kinds.
const (
	EventBatch     = "batch"
	EventRecording = "recording"
	EventVisual    = "visual"
	EventInput     = "input"
)

// Inbound command kinds.
const (
	CmdSubmit = "submit"
	CmdAction = "action"
	CmdRecord = "record"
	CmdPlay   = "play"
	CmdStop   = "stop"
)

var ErrNotConnected = errors.New("bus: not connected")

type Event struct {
	Kind     string         `json:"kind"`
	Messages []chat.Message `json:"messages,omitempty"`
	State    string         `json:"state,omitempty"`
	Elapsed  float64        `json:"elapsed,omitempty"`
	ID       string         `json:"id,omitempty"`
	Active   bool           `json:"active,omitempty"`
	Input    string         `json:"input,omitempty"`
}

type Command struct {
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"`
	ID   string `json:"id,omitempty"`
}

type Config struct {
	URL    string
	Dialer *ws.Dialer
	// Reconn is the pause between reconnect attempts.
	Reconn time.Duration
}

type Bus struct {
	url    string
	dialer *ws.Dialer
	reconn time.Duration

	mu   sync.Mutex
	conn *ws.Conn
}

// Dial connects to the hub.
func Dial(ctx context.Context, cfg Config) (*Bus, error) {
	log.Debug("init websocket bus", "url", cfg.URL)

	b := &Bus{
		url:    cfg.URL,
		dialer: cfg.Dialer,
		reconn: cfg.Reconn,
	}
	if b.dialer == nil {
		b.dialer = ws.DefaultDialer
	}
	if b.reconn <= 0 {
		b.reconn = time.Second
	}

	conn, _, err := b.dialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", b.url, err)
	}
	b.conn = conn

	log.Info("connected to bus", "url", b.url)
	return b, nil
}

// Publish sends e to the hub. While reconnecting it fails with
// ErrNotConnected.
func (b *Bus) Publish(e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return ErrNotConnected
	}
	log.Debug("write ws", "kind", e.Kind)
	return b.conn.WriteMessage(ws.TextMessage, payload)
}

type incomeKind uint

const (
	connClosed incomeKind = iota
	readFailure
	readOK
)

type income struct {
	kind incomeKind
	msg  []byte
	err  error
}

func (b *Bus) read(conn *ws.Conn) income {
	_, msg, err := conn.ReadMessage()
	if err != nil {
		if IsClosed(err) {
			return income{kind: connClosed, err: err}
		}
		return income{kind: readFailure, err: err}
	}
	return income{kind: readOK, msg: msg}
}

// Run reads commands and hands them to handle until ctx is done. A broken
// connection is redialled.
func (b *Bus) Run(ctx context.Context, handle func(Command)) {
	stop := context.AfterFunc(ctx, func() { b.Close() })
	defer stop()

	for {
		b.mu.Lock()
		conn := b.conn
		b.mu.Unlock()
		if conn == nil {
			if !b.reconnect(ctx) {
				return
			}
			continue
		}

		in := b.read(conn)
		switch in.kind {
		case connClosed, readFailure:
			if ctx.Err() != nil {
				return
			}
			if in.kind == connClosed {
				log.Warn("bus closed, reconnecting", "url", b.url, "err", in.err)
			} else {
				log.Error("bus read failed, reconnecting", "url", b.url, "err", in.err)
			}
			b.drop(conn)

		case readOK:
			var cmd Command
			if err := json.Unmarshal(in.msg, &cmd); err != nil {
				log.Warn("failed to parse command", "msg", string(in.msg), "err", err)
				continue
			}
			log.Debug("read ws", "kind", cmd.Kind)
			handle(cmd)
		}
	}
}

func (b *Bus) drop(conn *ws.Conn) {
	b.mu.Lock()
	if b.conn == conn {
		b.conn = nil
	}
	b.mu.Unlock()
	conn.Close()
}

func (b *Bus) reconnect(ctx context.Context) bool {
	for {
		conn, _, err := b.dialer.DialContext(ctx, b.url, nil)
		if err == nil {
			b.mu.Lock()
			if ctx.Err() != nil {
				b.mu.Unlock()
				conn.Close()
				return false
			}
			b.conn = conn
			b.mu.Unlock()
			log.Info("reconnected to bus", "url", b.url)
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(b.reconn):
		}
	}
}

func (b *Bus) Close() error {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()

	if conn == nil {
		return nil
	}
	conn.WriteControl(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return conn.Close()
}

func IsClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}

// Mirror publishes every batch appended to conv until the returned cancel
// is called.
func (b *Bus) Mirror(conv *chat.Conversation) (cancel func()) {
	return conv.Subscribe(func(batch []chat.Message) {
		if err := b.Publish(Event{Kind: EventBatch, Messages: batch}); err != nil {
			log.Warn("failed to publish batch", "messages", len(batch), "err", err)
		}
	})
}
