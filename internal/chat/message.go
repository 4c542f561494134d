package chat

import (
	"strings"
	"time"

	"voxchat/pkg/lang"
)

type Modality string

const (
	ModalityText  Modality = "text"
	ModalityFile  Modality = "file"
	ModalityVoice Modality = "voice"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Handle references transient binary data held by a HandleStore.
type Handle string

type FileMeta struct {
	MIME string `json:"mime"`
	Name string `json:"name"`
}

// Message is one entry of a Conversation. Values handed out by a
// Conversation are copies; the log itself is never modified after append.
type Message struct {
	ID         string      `json:"id"`
	Modality   Modality    `json:"modality"`
	Content    string      `json:"content"`
	Sender     Sender      `json:"sender"`
	CreatedAt  time.Time   `json:"created_at"`
	Locale     lang.Locale `json:"locale,omitempty"`
	Transcript string      `json:"transcript,omitempty"`
	File       *FileMeta   `json:"file,omitempty"`

	// SuggestedActions is only set on assistant text messages.
	SuggestedActions []string `json:"suggested_actions,omitempty"`
}

// Handle returns the data reference of a file or voice message.
func (m Message) Handle() (Handle, bool) {
	if m.Modality == ModalityText {
		return "", false
	}
	return Handle(m.Content), true
}

func (m Message) clone() Message {
	if m.SuggestedActions != nil {
		m.SuggestedActions = append([]string{}, m.SuggestedActions...)
	}
	if m.File != nil {
		f := *m.File
		m.File = &f
	}
	return m
}

// Attachment is a file the user attached to a submission.
type Attachment struct {
	Name   string `json:"name"`
	MIME   string `json:"mime"`
	Handle Handle `json:"handle"`
}

// Category returns the top-level MIME type, e.g. "image" for "image/png".
func (a Attachment) Category() string {
	cat, _, _ := strings.Cut(a.MIME, "/")
	return cat
}

// Recording is a finished voice capture ready to be posted.
type Recording struct {
	Handle     Handle        `json:"handle"`
	MIME       string        `json:"mime"`
	Duration   time.Duration `json:"duration"`
	Transcript string        `json:"transcript,omitempty"`
}
