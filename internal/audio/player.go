package audio

import (
	"context"
	"fmt"
	log "log/slog"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"

	"voxchat/internal/chat"
	"voxchat/internal/visual"
	"voxchat/pkg/audioconv"
)

// SpeakerRate is the output rate the speaker is opened with. Everything
// played goes through it.
const SpeakerRate beep.SampleRate = 44100

var (
	speakerOnce sync.Once
	speakerErr  error
)

// InitSpeaker opens the output device once per process.
func InitSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(SpeakerRate, SpeakerRate.N(time.Second/10))
		if speakerErr != nil {
			log.Error("failed to init speaker", "err", speakerErr)
		}
	})
	return speakerErr
}

// Opener resolves a handle to its stored data.
type Opener interface {
	Open(h chat.Handle) (*os.File, string, error)
}

// Player decodes stored audio and plays it on the speaker. It implements
// visual.Decoder.
type Player struct {
	store Opener
}

func NewPlayer(store Opener) *Player {
	return &Player{store: store}
}

func (p *Player) Decode(ctx context.Context, ref chat.Handle) (visual.Source, error) {
	f, mime, err := p.store.Open(ref)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pcm, err := audioconv.Decode(ctx, f, mime, audioconv.Options{SampleRate: int(SpeakerRate)})
	if err != nil {
		return nil, err
	}
	log.Debug("decoded audio", "ref", ref, "mime", mime, "samples", len(pcm))
	return newTrack(pcm), nil
}

// track is one decoded clip. Playback goes through a beep.Ctrl so it can be
// paused and detached from the speaker mixer.
type track struct {
	pcm []float32
	pos int

	tap *Analyser

	ctrl *beep.Ctrl
	done chan struct{}
	end  sync.Once
	tmp  []float64
}

func newTrack(pcm []float32) *track {
	t := &track{pcm: pcm, done: make(chan struct{})}
	t.ctrl = &beep.Ctrl{Streamer: beep.StreamerFunc(t.stream)}
	return t
}

// stream runs on the speaker goroutine with the speaker lock held.
func (t *track) stream(samples [][2]float64) (int, bool) {
	if t.pos >= len(t.pcm) {
		return 0, false
	}

	n := min(len(samples), len(t.pcm)-t.pos)
	if cap(t.tmp) < n {
		t.tmp = make([]float64, n)
	}
	mono := t.tmp[:n]
	for i := 0; i < n; i++ {
		x := float64(t.pcm[t.pos+i])
		samples[i] = [2]float64{x, x}
		mono[i] = x
	}
	t.pos += n

	if t.tap != nil {
		t.tap.Write(mono)
	}
	return n, true
}

func (t *track) Analyser(fftSize int) (visual.Analyser, error) {
	a := NewAnalyser(fftSize)
	speaker.Lock()
	t.tap = a
	speaker.Unlock()
	return a, nil
}

func (t *track) Play() error {
	if err := InitSpeaker(); err != nil {
		return fmt.Errorf("speaker: %w", err)
	}
	speaker.Play(beep.Seq(t.ctrl, beep.Callback(t.finish)))
	return nil
}

func (t *track) Pause() {
	speaker.Lock()
	t.ctrl.Paused = true
	speaker.Unlock()
}

func (t *track) Done() <-chan struct{} { return t.done }

// Close detaches the clip from the mixer and drops the analyser tap.
func (t *track) Close() error {
	speaker.Lock()
	t.ctrl.Streamer = nil
	t.tap = nil
	speaker.Unlock()
	t.finish()
	return nil
}

func (t *track) finish() {
	t.end.Do(func() { close(t.done) })
}
