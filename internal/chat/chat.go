// Package chat holds the conversation log and the operations that feed it:
// typed submissions, file attachments and finished voice recordings.
package chat

import (
	"errors"
	log "log/slog"
	"strings"
	"sync"

	"voxchat/internal/nlu"
	"voxchat/pkg/lang"
)

// voiceInput is what a voice message is answered as, whatever was said.
const voiceInput = "voice message"

// Chat is one conversation view: the log plus the composer state (staged
// input text and pending attachments).
type Chat struct {
	conv    *Conversation
	handles *HandleStore

	mu       sync.Mutex
	input    string
	selected string
	pending  []Attachment
	onInput  func(string)
}

// New creates a chat whose transient data lives in handles. handles may be
// nil when the caller manages attachment data itself.
func New(handles *HandleStore) *Chat {
	return &Chat{
		conv:    NewConversation(),
		handles: handles,
	}
}

func (c *Chat) Conversation() *Conversation { return c.conv }

func (c *Chat) Handles() *HandleStore { return c.handles }

// OnInput registers fn to be told whenever the staged input changes.
func (c *Chat) OnInput(fn func(input string)) {
	c.mu.Lock()
	c.onInput = fn
	c.mu.Unlock()
}

// Submit appends the user's text (if any) and attachments together with
// one assistant reply each, as a single batch. Nothing is appended when both
// are empty.
func (c *Chat) Submit(input string, attachments ...Attachment) []Message {
	text := strings.TrimSpace(input)
	if text == "" && len(attachments) == 0 {
		log.Debug("empty submission ignored")
		return nil
	}

	locale := lang.Detect(text)
	batch := make([]Message, 0, 2+2*len(attachments))

	if text != "" {
		batch = append(batch,
			Message{
				Modality: ModalityText,
				Content:  text,
				Sender:   SenderUser,
				Locale:   locale,
			},
			reply(text, locale),
		)
	}

	for _, a := range attachments {
		batch = append(batch,
			Message{
				Modality: ModalityFile,
				Content:  string(a.Handle),
				Sender:   SenderUser,
				File:     &FileMeta{MIME: a.MIME, Name: a.Name},
			},
			reply("analyze "+a.Category(), locale),
		)
	}

	logged := c.conv.append(batch)
	log.Info("submitted", "locale", locale, "attachments", len(attachments), "messages", len(logged))
	return logged
}

// SubmitVoice appends a finished recording and the assistant's reply to it.
func (c *Chat) SubmitVoice(rec Recording, locale lang.Locale) []Message {
	logged := c.conv.append([]Message{
		{
			Modality:   ModalityVoice,
			Content:    string(rec.Handle),
			Sender:     SenderUser,
			Locale:     locale,
			Transcript: rec.Transcript,
		},
		reply(voiceInput, locale),
	})
	log.Info("voice submitted", "locale", locale, "duration", rec.Duration)
	return logged
}

func reply(input string, locale lang.Locale) Message {
	r := nlu.Generate(input, locale)
	return Message{
		Modality:         ModalityText,
		Content:          r.Text,
		Sender:           SenderAssistant,
		Locale:           locale,
		SuggestedActions: r.SuggestedActions,
	}
}

// SelectSuggestedAction stages action as the next input. It does not touch
// the conversation; the action is only sent by a later Send.
func (c *Chat) SelectSuggestedAction(action string) {
	c.mu.Lock()
	c.selected = action
	c.mu.Unlock()
	c.SetInput(action)
}

func (c *Chat) SelectedAction() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

func (c *Chat) SetInput(input string) {
	c.mu.Lock()
	c.input = input
	fn := c.onInput
	c.mu.Unlock()

	if fn != nil {
		fn(input)
	}
}

func (c *Chat) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// Attach adds a to the pending attachments of the next Send.
func (c *Chat) Attach(a Attachment) {
	c.mu.Lock()
	c.pending = append(c.pending, a)
	c.mu.Unlock()
}

// Detach removes every pending attachment named name and releases its data.
// It returns how many were removed.
func (c *Chat) Detach(name string) int {
	c.mu.Lock()
	kept := c.pending[:0]
	var removed []Attachment
	for _, a := range c.pending {
		if a.Name == name {
			removed = append(removed, a)
			continue
		}
		kept = append(kept, a)
	}
	c.pending = kept
	c.mu.Unlock()

	if c.handles != nil {
		for _, a := range removed {
			if err := c.handles.Release(a.Handle); err != nil && !errors.Is(err, ErrUnknownHandle) {
				log.Warn("failed to release attachment", "name", a.Name, "err", err)
			}
		}
	}
	return len(removed)
}

func (c *Chat) Pending() []Attachment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Attachment(nil), c.pending...)
}

// Send submits the staged input with the pending attachments and clears the
// composer.
func (c *Chat) Send() []Message {
	c.mu.Lock()
	input := c.input
	pending := c.pending
	if strings.TrimSpace(input) == "" && len(pending) == 0 {
		c.mu.Unlock()
		return nil
	}
	c.pending = nil
	c.selected = ""
	c.input = ""
	fn := c.onInput
	c.mu.Unlock()

	if fn != nil {
		fn("")
	}
	return c.Submit(input, pending...)
}

// Close discards the conversation's transient data.
func (c *Chat) Close() error {
	if c.handles == nil {
		return nil
	}
	return c.handles.Close()
}
