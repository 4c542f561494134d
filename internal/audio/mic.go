package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"voxchat/internal/record"
)

const (
	DefaultSampleRate = 16000
	DefaultFrameSize  = 1024
)

// Mic is the default input device. It implements record.Device.
type Mic struct {
	SampleRate int
	FrameSize  int
}

func NewMic(sampleRate, frameSize int) *Mic {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if frameSize <= 0 {
		frameSize = DefaultFrameSize
	}
	return &Mic{SampleRate: sampleRate, FrameSize: frameSize}
}

func (m *Mic) Init() error {
	return portaudio.Initialize()
}

func (m *Mic) Close() {
	portaudio.Terminate()
}

// Open acquires the default input stream and starts it.
func (m *Mic) Open(ctx context.Context) (record.Capture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buf := make([]float32, m.FrameSize)
	stream, err := portaudio.OpenDefaultStream(
		1, // in
		0, // no out
		float64(m.SampleRate),
		len(buf),
		buf,
	)
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("start input stream: %w", err)
	}

	return &micCapture{stream: stream, buf: buf, rate: m.SampleRate}, nil
}

type micCapture struct {
	stream *portaudio.Stream
	buf    []float32
	rate   int

	once sync.Once
	err  error
}

// Read blocks for one frame. The returned slice is reused by the next Read.
func (c *micCapture) Read() ([]float32, error) {
	if err := c.stream.Read(); err != nil {
		return nil, err
	}
	return c.buf, nil
}

func (c *micCapture) SampleRate() int { return c.rate }

func (c *micCapture) Close() error {
	c.once.Do(func() {
		if err := c.stream.Stop(); err != nil {
			c.err = err
		}
		if err := c.stream.Close(); err != nil && c.err == nil {
			c.err = err
		}
	})
	return c.err
}

