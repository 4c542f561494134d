package main

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"voxchat/internal/audio"
	"voxchat/internal/bus"
	"voxchat/internal/chat"
	"voxchat/internal/config"
	"voxchat/internal/notify"
	"voxchat/internal/record"
	"voxchat/internal/visual"
)

var errUsage = errors.New("usage")

// app wires one conversation view to its recorder, playback and feeds.
type app struct {
	ctx context.Context
	cfg config.Config

	chat     *chat.Chat
	recorder *record.Recorder
	visuals  *visual.Registry
	ducker   *audio.Ducker
	bus      *bus.Bus
}

// publish sends e to the presentation hub when one is connected.
func (a *app) publish(e bus.Event) {
	if a.bus == nil {
		return
	}
	if err := a.bus.Publish(e); err != nil {
		log.Debug("publish skipped", "kind", e.Kind, "err", err)
	}
}

func (a *app) onRecordState(st record.State) {
	a.publish(bus.Event{Kind: bus.EventRecording, State: string(st)})

	if a.ducker == nil {
		return
	}
	var err error
	switch st {
	case record.StateRecording:
		err = a.ducker.Duck(a.ctx)
	case record.StateStopped, record.StateDiscarded:
		// discards also happen on shutdown, after a.ctx is cancelled
		err = a.ducker.Restore(context.Background())
	}
	if err != nil {
		log.Warn("failed to adjust other playback", "state", st, "err", err)
	}
}

func (a *app) onRecordTick(elapsed float64) {
	a.publish(bus.Event{Kind: bus.EventRecording, State: string(record.StateRecording), Elapsed: elapsed})
}

func (a *app) onRecordComplete(res record.Result) {
	if res.Err != nil {
		log.Error("recording lost", "err", res.Err)
		return
	}
	if res.TranscriptionFailed {
		log.Warn("posting voice message without transcript", "locale", res.Locale)
	}
	a.chat.SubmitVoice(res.Recording, res.Locale)
}

// command runs one control command. Commands come from voxchat-ctl and
// from the presentation hub.
func (a *app) command(cmd string, args []string) (string, error) {
	switch cmd {
	case "record":
		return a.toggleRecording()

	case "say":
		if len(args) == 0 {
			return "", fmt.Errorf("%w: say TEXT", errUsage)
		}
		n := len(a.chat.Submit(strings.Join(args, " ")))
		return fmt.Sprintf("%d messages", n), nil

	case "attach":
		if len(args) != 1 {
			return "", fmt.Errorf("%w: attach PATH", errUsage)
		}
		return a.attach(args[0])

	case "detach":
		if len(args) != 1 {
			return "", fmt.Errorf("%w: detach NAME", errUsage)
		}
		return fmt.Sprintf("removed %d", a.chat.Detach(args[0])), nil

	case "send":
		n := len(a.chat.Send())
		if n == 0 {
			return "nothing to send", nil
		}
		return fmt.Sprintf("%d messages", n), nil

	case "action":
		if len(args) == 0 {
			return "", fmt.Errorf("%w: action N|TEXT", errUsage)
		}
		return a.selectAction(strings.Join(args, " "))

	case "play":
		id := ""
		if len(args) > 0 {
			id = args[0]
		}
		return a.play(id)

	case "stop":
		if len(args) == 0 {
			a.visuals.StopAll()
			return "stopped all", nil
		}
		if !a.visuals.Stop(args[0]) {
			return "not playing", nil
		}
		return "stopped", nil
	}
	return "", fmt.Errorf("unknown command %q", cmd)
}

func (a *app) handleBus(c bus.Command) {
	var (
		out string
		err error
	)
	switch c.Kind {
	case bus.CmdSubmit:
		out, err = a.command("say", []string{c.Text})
	case bus.CmdAction:
		out, err = a.command("action", []string{c.Text})
	case bus.CmdRecord:
		out, err = a.command("record", nil)
	case bus.CmdPlay:
		out, err = a.command("play", idArgs(c.ID))
	case bus.CmdStop:
		out, err = a.command("stop", idArgs(c.ID))
	default:
		err = fmt.Errorf("unknown bus command %q", c.Kind)
	}
	if err != nil {
		log.Warn("bus command failed", "kind", c.Kind, "err", err)
		return
	}
	log.Debug("bus command", "kind", c.Kind, "result", out)
}

func idArgs(id string) []string {
	if id == "" {
		return nil
	}
	return []string{id}
}

func (a *app) toggleRecording() (string, error) {
	s, started, err := a.recorder.Toggle(a.ctx)
	if err != nil {
		return "", err
	}
	if !started {
		return "recording stopped", nil
	}

	go func() {
		if err := notify.Beep(a.cfg.BeepFile); err != nil {
			log.Debug("no recording cue", "err", err)
		}
	}()
	log.Info("listening", "state", s.State())
	return "recording", nil
}

func (a *app) attach(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	mimeType, err := sniff(f, path)
	if err != nil {
		return "", err
	}

	h, err := a.chat.Handles().Put(mimeType, f)
	if err != nil {
		return "", err
	}
	name := filepath.Base(path)
	a.chat.Attach(chat.Attachment{Name: name, MIME: mimeType, Handle: h})
	return fmt.Sprintf("attached %s (%s)", name, mimeType), nil
}

// sniff picks the MIME type from the extension, falling back to content
// detection. f is rewound afterwards.
func sniff(f *os.File, path string) (string, error) {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t, nil
	}

	head := make([]byte, 512)
	n, _ := f.Read(head)
	if _, err := f.Seek(0, 0); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

// selectAction stages a suggested action of the latest reply, chosen by
// 1-based number, or any literal text.
func (a *app) selectAction(arg string) (string, error) {
	action := arg
	if n, err := strconv.Atoi(arg); err == nil {
		acts := latestActions(a.chat.Conversation().Messages())
		if n < 1 || n > len(acts) {
			return "", fmt.Errorf("no suggested action %d", n)
		}
		action = acts[n-1]
	}
	a.chat.SelectSuggestedAction(action)
	return "staged: " + action, nil
}

func latestActions(msgs []chat.Message) []string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Sender == chat.SenderAssistant && len(msgs[i].SuggestedActions) > 0 {
			return msgs[i].SuggestedActions
		}
	}
	return nil
}

// play visualizes message id, or the latest voice message when id is empty.
func (a *app) play(id string) (string, error) {
	msgs := a.chat.Conversation().Messages()

	var target *chat.Message
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if (id == "" && m.Modality == chat.ModalityVoice) || (id != "" && m.ID == id) {
			target = &msgs[i]
			break
		}
	}
	if target == nil {
		return "", errors.New("no such voice message")
	}

	h, ok := target.Handle()
	if !ok {
		return "", fmt.Errorf("message %s has no audio", target.ID)
	}
	if err := a.visuals.Play(a.ctx, target.ID, h); err != nil {
		return "", err
	}
	return "playing " + target.ID, nil
}
