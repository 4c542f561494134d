package notify

import (
	"fmt"
	"os"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"

	"voxchat/internal/audio"
)

// Beep plays the mp3 at path to completion. It is the start-of-recording
// cue.
func Beep(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open cue: %w", err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode cue: %w", err)
	}
	defer streamer.Close()

	if err := audio.InitSpeaker(); err != nil {
		return err
	}

	var s beep.Streamer = streamer
	if format.SampleRate != audio.SpeakerRate {
		s = beep.Resample(4, format.SampleRate, audio.SpeakerRate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))
	<-done
	return nil
}
