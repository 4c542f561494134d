// Package stt turns recorded speech into text. voxchat ships a simulated
// transcriber that answers with canned sample sentences; anything that
// implements Transcriber can replace it.
package stt

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"
)

type Options struct {
	Language string // e.g. "auto", "en", "fr"
}

type Result struct {
	Text     string
	Language string // detected or forced
}

type Transcriber interface {
	// pcm is mono float32 in [-1, 1]
	TranscribePCM(ctx context.Context, pcm []float32, opt Options) (Result, error)
}

// Samples are the sentences the simulator picks from.
var Samples = []string{
	"Hello, how are you today?",
	"Bonjour, comment allez-vous aujourd'hui?",
}

// Simulator stands in for a speech-to-text engine. It ignores the audio and
// returns one of its samples after an optional delay.
type Simulator struct {
	Samples []string
	Delay   time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSimulator(delay time.Duration) *Simulator {
	return &Simulator{
		Samples: Samples,
		Delay:   delay,
		rnd:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
}

// NewSeededSimulator gives a reproducible sample sequence.
func NewSeededSimulator(seed uint64, delay time.Duration) *Simulator {
	s := NewSimulator(delay)
	s.rnd = rand.New(rand.NewPCG(seed, seed))
	return s
}

func (s *Simulator) TranscribePCM(ctx context.Context, pcm []float32, opt Options) (Result, error) {
	if len(s.Samples) == 0 {
		return Result{}, errors.New("no samples configured")
	}

	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	text := s.Samples[s.rnd.IntN(len(s.Samples))]
	s.mu.Unlock()

	lang := opt.Language
	if lang == "" {
		lang = "auto"
	}
	return Result{Text: text, Language: lang}, nil
}

// Fixed always answers with the same text. Useful when the transcript has
// to be predictable.
type Fixed string

func (f Fixed) TranscribePCM(ctx context.Context, _ []float32, opt Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return Result{Text: string(f), Language: opt.Language}, nil
}
