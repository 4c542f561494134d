// Package record captures a single voice message: it owns the capture device
// while recording, assembles the chunks into a WAV blob, runs the transcript
// through speech-to-text and language detection, and hands the result off.
package record

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"voxchat/internal/chat"
	"voxchat/pkg/lang"
	"voxchat/pkg/stt"
)

type State string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateStopped      State = "stopped"
	StateTranscribing State = "transcribing"
	StateComplete     State = "complete"
	StateDiscarded    State = "discarded"
)

var (
	ErrDeviceUnavailable = errors.New("record: capture device unavailable")
	ErrBusy              = errors.New("record: recording already in progress")
	ErrStarted           = errors.New("record: session already started")
	ErrDiscarded         = errors.New("record: session discarded")
)

// DeviceError reports why the capture device could not be acquired. It
// matches ErrDeviceUnavailable with errors.Is.
type DeviceError struct {
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%v: %v", ErrDeviceUnavailable, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

func (e *DeviceError) Is(target error) bool { return target == ErrDeviceUnavailable }

// Device hands out exclusive access to a capture device.
type Device interface {
	Open(ctx context.Context) (Capture, error)
}

// Capture is an acquired device. Read blocks until the next chunk is
// available. Close releases the device and may be called more than once.
type Capture interface {
	Read() ([]float32, error)
	SampleRate() int
	Close() error
}

// BlobStore keeps the assembled recording.
type BlobStore interface {
	Create(mime string) (chat.Handle, *os.File, error)
	Release(h chat.Handle) error
}

type Status struct {
	State   State         `json:"state"`
	Elapsed time.Duration `json:"elapsed"`
}

// Result is what a completed session hands off.
type Result struct {
	Recording chat.Recording
	Locale    lang.Locale

	// TranscriptionFailed is set when the transcript could not be produced
	// and Locale fell back to the default.
	TranscriptionFailed bool

	// Err is set when the recording could not be stored.
	Err error
}

type Options struct {
	Transcriber stt.Transcriber
	Store       BlobStore

	// TranscribeTimeout bounds the transcription step; zero means no limit.
	TranscribeTimeout time.Duration
	// MaxDuration stops the capture automatically; zero means no limit.
	MaxDuration time.Duration
	// Tick is the elapsed counter period, one second unless set.
	Tick time.Duration

	// OnState hears every state change in order, including discarded. It
	// must not call back into the session.
	OnState    func(State)
	OnTick     func(elapsed time.Duration)
	OnComplete func(Result)
}

func (o Options) tick() time.Duration {
	if o.Tick <= 0 {
		return time.Second
	}
	return o.Tick
}
