package audio

import (
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// Analyser defaults, matching what browsers use for an AnalyserNode.
const (
	DefaultSmoothing = 0.8
	DefaultMinDB     = -100.0
	DefaultMaxDB     = -30.0
)

// Analyser keeps the most recent fftSize samples written to it and turns
// them into smoothed byte magnitudes on demand. It implements
// visual.Analyser.
type Analyser struct {
	mu sync.Mutex

	fft    *fourier.FFT
	size   int
	ring   []float64
	pos    int
	frame  []float64
	coeffs []complex128
	smooth []float64

	Smoothing    float64
	MinDB, MaxDB float64

	closed bool
}

func NewAnalyser(fftSize int) *Analyser {
	return &Analyser{
		fft:       fourier.NewFFT(fftSize),
		size:      fftSize,
		ring:      make([]float64, fftSize),
		frame:     make([]float64, fftSize),
		coeffs:    make([]complex128, fftSize/2+1),
		smooth:    make([]float64, fftSize/2),
		Smoothing: DefaultSmoothing,
		MinDB:     DefaultMinDB,
		MaxDB:     DefaultMaxDB,
	}
}

func (a *Analyser) FrequencyBinCount() int { return a.size / 2 }

// Write appends mono samples to the analysis window.
func (a *Analyser) Write(samples []float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	for _, x := range samples {
		a.ring[a.pos] = x
		a.pos = (a.pos + 1) % a.size
	}
}

// ByteFrequencyData fills dst with the magnitude of each bin on a dB scale
// between MinDB (0) and MaxDB (255).
func (a *Analyser) ByteFrequencyData(dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		clear(dst)
		return
	}

	// oldest sample first
	n := copy(a.frame, a.ring[a.pos:])
	copy(a.frame[n:], a.ring[:a.pos])
	window.Blackman(a.frame)

	a.coeffs = a.fft.Coefficients(a.coeffs, a.frame)

	scale := 255 / (a.MaxDB - a.MinDB)
	for i := range a.smooth {
		mag := cmplx.Abs(a.coeffs[i]) / float64(a.size)
		a.smooth[i] = a.Smoothing*a.smooth[i] + (1-a.Smoothing)*mag
		if i >= len(dst) {
			continue
		}

		db := math.Inf(-1)
		if a.smooth[i] > 0 {
			db = 20 * math.Log10(a.smooth[i])
		}
		v := (db - a.MinDB) * scale
		switch {
		case v <= 0 || math.IsNaN(v):
			dst[i] = 0
		case v >= 255:
			dst[i] = 255
		default:
			dst[i] = byte(v)
		}
	}
}

func (a *Analyser) Close() error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	return nil
}
