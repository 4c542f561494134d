// Package view prints the conversation to a terminal.
package view

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"voxchat/internal/chat"
	"voxchat/pkg/lang"
)

const (
	DefaultWidth = 80
	bubbleShare  = 0.8
)

type theme struct {
	user, assistant lipgloss.Style
	userMeta, meta  lipgloss.Style
	action          lipgloss.Style
	header          lipgloss.Style
}

func newTheme(dark bool) theme {
	bubble := lipgloss.NewStyle().Padding(0, 1)

	t := theme{
		user:     bubble.Background(lipgloss.Color("#4F46E5")).Foreground(lipgloss.Color("#FFFFFF")),
		userMeta: lipgloss.NewStyle().Foreground(lipgloss.Color("#C7D2FE")),
		meta:     lipgloss.NewStyle().Faint(true),
		action:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6366F1")),
		header:   lipgloss.NewStyle().Bold(true),
	}
	if dark {
		t.assistant = bubble.Background(lipgloss.Color("#374151")).Foreground(lipgloss.Color("#FFFFFF"))
	} else {
		t.assistant = bubble.Background(lipgloss.Color("#F3F4F6")).Foreground(lipgloss.Color("#111827"))
	}
	return t
}

// Printer writes messages as chat bubbles: the user's on the right, the
// assistant's on the left.
type Printer struct {
	mu    sync.Mutex
	w     io.Writer
	width int
	user  string
	theme theme
}

func NewPrinter(w io.Writer, darkMode bool, userName string, width int) *Printer {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Printer{
		w:     w,
		width: width,
		user:  userName,
		theme: newTheme(darkMode),
	}
}

// Print writes a batch of messages.
func (p *Printer) Print(batch []chat.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, m := range batch {
		if _, err := fmt.Fprintln(p.w, p.Render(m)); err != nil {
			return err
		}
	}
	return nil
}

// Render formats one message.
func (p *Printer) Render(m chat.Message) string {
	isUser := m.Sender == chat.SenderUser

	style, metaStyle := p.theme.assistant, p.theme.meta
	name := "assistant"
	if isUser {
		style, metaStyle = p.theme.user, p.theme.userMeta
		name = p.user
	}

	var lines []string
	lines = append(lines, p.theme.header.Render(name))
	lines = append(lines, body(m)...)
	lines = append(lines, metaStyle.Render(m.CreatedAt.Format("15:04:05")))

	bubble := style.Width(int(float64(p.width) * bubbleShare)).Render(strings.Join(lines, "\n"))

	if len(m.SuggestedActions) > 0 {
		acts := make([]string, len(m.SuggestedActions))
		for i, a := range m.SuggestedActions {
			acts[i] = p.theme.action.Render(fmt.Sprintf("  %d. %s", i+1, a))
		}
		bubble = lipgloss.JoinVertical(lipgloss.Left, bubble, strings.Join(acts, "\n"))
	}

	if isUser {
		return lipgloss.PlaceHorizontal(p.width, lipgloss.Right, bubble)
	}
	return bubble
}

func body(m chat.Message) []string {
	switch m.Modality {
	case chat.ModalityVoice:
		lines := []string{"♪ voice message"}
		if m.Transcript != "" {
			lines = append(lines, "Transcript: "+m.Transcript)
		}
		if m.Locale != "" {
			lines = append(lines, "Language: "+lang.Label(m.Locale))
		}
		return lines

	case chat.ModalityFile:
		if m.File == nil {
			return []string{"[file]"}
		}
		if strings.HasPrefix(m.File.MIME, "image/") {
			return []string{"[image] " + m.File.Name}
		}
		return []string{"[file] " + m.File.Name}

	default:
		return []string{m.Content}
	}
}
