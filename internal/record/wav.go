package record

import (
	"fmt"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"voxchat/internal/chat"
)

const (
	wavMIME     = "audio/wav"
	wavBitDepth = 16
)

// storeWAV writes pcm as 16-bit mono WAV into a new blob.
func storeWAV(store BlobStore, pcm []float32, sampleRate int) (chat.Recording, error) {
	h, f, err := store.Create(wavMIME)
	if err != nil {
		return chat.Recording{}, fmt.Errorf("create blob: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, wavBitDepth, 1, 1)

	data := make([]int, len(pcm))
	for i, x := range pcm {
		data[i] = int(clamp(x) * 32767)
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		store.Release(h)
		return chat.Recording{}, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		store.Release(h)
		return chat.Recording{}, fmt.Errorf("finish wav: %w", err)
	}

	var dur time.Duration
	if sampleRate > 0 {
		dur = time.Duration(len(pcm)) * time.Second / time.Duration(sampleRate)
	}
	return chat.Recording{Handle: h, MIME: wavMIME, Duration: dur}, nil
}

func clamp(x float32) float32 {
	if x < -1 {
		return -1
	}
	if x > 1 {
		return 1
	}
	return x
}
