// Package visual plays back an audio message and draws its live frequency
// spectrum as vertical bars until playback ends or the view goes away.
package visual

import (
	"context"
	"errors"
	"time"

	"voxchat/internal/chat"
)

const (
	// FFTSize is the analyser window; it yields FFTSize/2 bars.
	FFTSize = 256

	DefaultFrameInterval = time.Second / 60
)

var ErrClosed = errors.New("visual: session closed")

// Color is a "#RRGGBB" string.
type Color string

type Palette struct {
	Background Color
	Bar        Color
}

var (
	Dark  = Palette{Background: "#1F2937", Bar: "#6366F1"}
	Light = Palette{Background: "#F3F4F6", Bar: "#4F46E5"}
)

func PaletteFor(darkMode bool) Palette {
	if darkMode {
		return Dark
	}
	return Light
}

// Decoder turns a stored audio reference into something playable.
type Decoder interface {
	Decode(ctx context.Context, ref chat.Handle) (Source, error)
}

// Source is a decoded, playable audio stream.
type Source interface {
	// Analyser taps a frequency analyser off the stream.
	Analyser(fftSize int) (Analyser, error)
	Play() error
	Pause()
	// Done is closed when playback reaches the end.
	Done() <-chan struct{}
	Close() error
}

type Analyser interface {
	// FrequencyBinCount is fftSize/2.
	FrequencyBinCount() int
	// ByteFrequencyData fills dst with the current magnitudes scaled to 0..255.
	ByteFrequencyData(dst []byte)
	Close() error
}

// Surface is a 2D drawing target measured in pixels.
type Surface interface {
	Width() float64
	Height() float64
	Clear(c Color)
	FillRect(x, y, w, h float64, c Color)
}

// Presenter is implemented by surfaces that need an explicit flush after
// each frame.
type Presenter interface {
	Present() error
}

type Options struct {
	DarkMode      bool
	FrameInterval time.Duration

	// OnClose runs once after teardown, whatever ended the session.
	OnClose func(*Session)
}

func (o Options) interval() time.Duration {
	if o.FrameInterval <= 0 {
		return DefaultFrameInterval
	}
	return o.FrameInterval
}

// Draw renders one frame of magnitudes onto s.
func Draw(s Surface, data []byte, p Palette) {
	width, height := s.Width(), s.Height()
	s.Clear(p.Background)
	if len(data) == 0 {
		return
	}

	barWidth := width / float64(len(data))
	for i, v := range data {
		barHeight := float64(v) / 255 * height
		x := float64(i) * barWidth
		y := height - barHeight
		s.FillRect(x, y, barWidth-1, barHeight, p.Bar)
	}
}
