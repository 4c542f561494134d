package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"voxchat/internal/chat"
	"voxchat/internal/record"
	"voxchat/internal/visual"
)

type noDevice struct{}

func (noDevice) Open(context.Context) (record.Capture, error) {
	return nil, errors.New("no input device")
}

func newApp(t *testing.T) *app {
	t.Helper()
	handles, err := chat.NewHandleStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := chat.New(handles)
	t.Cleanup(func() { c.Close() })

	a := &app{ctx: context.Background(), chat: c}
	a.recorder = record.NewRecorder(noDevice{}, record.Options{Store: handles})
	a.visuals = visual.NewRegistry(nil, nil, visual.Options{})
	t.Cleanup(a.recorder.Close)
	return a
}

func TestCommandSayAndAction(t *testing.T) {
	a := newApp(t)

	out, err := a.command("say", []string{"hi", "there"})
	if err != nil || out != "2 messages" {
		t.Fatalf("say = %q, %v", out, err)
	}

	if _, err := a.command("action", []string{"2"}); err != nil {
		t.Fatal(err)
	}
	if got := a.chat.Input(); got != "View tutorials" {
		t.Fatalf("staged %q", got)
	}
	if _, err := a.command("action", []string{"7"}); err == nil {
		t.Fatal("out of range action accepted")
	}

	if _, err := a.command("action", []string{"Tell", "me", "more"}); err != nil {
		t.Fatal(err)
	}
	if got := a.chat.SelectedAction(); got != "Tell me more" {
		t.Fatalf("selected %q", got)
	}
}

func TestCommandAttachDetachSend(t *testing.T) {
	a := newApp(t)

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("plain words"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := a.command("attach", []string{path}); err != nil {
		t.Fatal(err)
	}
	if _, err := a.command("attach", []string{path}); err != nil {
		t.Fatal(err)
	}
	if out, _ := a.command("detach", []string{"notes.txt"}); out != "removed 2" {
		t.Fatalf("detach = %q", out)
	}
	if out, _ := a.command("send", nil); out != "nothing to send" {
		t.Fatalf("empty send = %q", out)
	}

	if _, err := a.command("attach", []string{path}); err != nil {
		t.Fatal(err)
	}
	if out, _ := a.command("send", nil); out != "2 messages" {
		t.Fatalf("send = %q", out)
	}

	msgs := a.chat.Conversation().Messages()
	if msgs[0].File == nil || msgs[0].File.Name != "notes.txt" {
		t.Fatalf("first message = %+v", msgs[0])
	}
}

func TestCommandErrors(t *testing.T) {
	a := newApp(t)

	tests := []struct {
		cmd  string
		args []string
	}{
		{"say", nil},
		{"attach", nil},
		{"attach", []string{filepath.Join(t.TempDir(), "missing.wav")}},
		{"detach", nil},
		{"action", nil},
		{"play", nil},
		{"play", []string{"nope"}},
		{"dance", nil},
	}
	for _, tt := range tests {
		if _, err := a.command(tt.cmd, tt.args); err == nil {
			t.Errorf("%s %v: no error", tt.cmd, tt.args)
		}
	}

	if _, err := a.command("record", nil); !errors.Is(err, record.ErrDeviceUnavailable) {
		t.Errorf("record = %v, want device unavailable", err)
	}
	if out, _ := a.command("stop", []string{"nope"}); out != "not playing" {
		t.Errorf("stop = %q", out)
	}
}

func TestSniff(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		body []byte
		want string
	}{
		{"cat.png", []byte("whatever"), "image/png"},
		{"blob", []byte("\x89PNG\r\n\x1a\n0000"), "image/png"},
		{"readme", []byte("hello"), "text/plain; charset=utf-8"},
	}
	for _, tt := range tests {
		path := filepath.Join(dir, tt.name)
		if err := os.WriteFile(path, tt.body, 0o644); err != nil {
			t.Fatal(err)
		}
		f, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		got, err := sniff(f, path)
		f.Close()
		if err != nil || got != tt.want {
			t.Errorf("sniff(%s) = %q, %v, want %q", tt.name, got, err, tt.want)
		}
	}
}
