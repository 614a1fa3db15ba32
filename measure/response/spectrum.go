package response

import (
	"fmt"
	"math"

	algofft "github.com/cwbudde/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-ladder/dsp/core"
)

// Spectrum is the magnitude response over bins [0..FFTSize/2].
type Spectrum struct {
	SampleRate float64
	FFTSize    int
	Magnitude  []float64
}

// Magnitude returns the magnitude spectrum of an impulse response. The
// response is zero-padded to the next power of two.
func Magnitude(ir []float64, sampleRate float64) (Spectrum, error) {
	if len(ir) == 0 {
		return Spectrum{}, ErrEmptyResponse
	}

	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return Spectrum{}, fmt.Errorf("%w: %v", ErrInvalidSampleRate, sampleRate)
	}

	fftSize := nextPowerOf2(len(ir))

	in := make([]complex128, fftSize)
	for i, v := range ir {
		in[i] = complex(v, 0)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return Spectrum{}, fmt.Errorf("response: fft plan: %w", err)
	}

	out := make([]complex128, fftSize)

	err = plan.Forward(out, in)
	if err != nil {
		return Spectrum{}, fmt.Errorf("response: fft: %w", err)
	}

	bins := fftSize/2 + 1
	re := make([]float64, bins)
	im := make([]float64, bins)

	for k := range bins {
		re[k] = real(out[k])
		im[k] = imag(out[k])
	}

	mag := make([]float64, bins)
	vecmath.Magnitude(mag, re, im)

	return Spectrum{SampleRate: sampleRate, FFTSize: fftSize, Magnitude: mag}, nil
}

// BinHz returns the center frequency of bin k.
func (s Spectrum) BinHz(k int) float64 {
	if s.FFTSize <= 0 {
		return 0
	}

	return float64(k) * s.SampleRate / float64(s.FFTSize)
}

// At returns the magnitude at hz, linearly interpolated between bins.
// Frequencies outside [0, Nyquist] are clamped.
func (s Spectrum) At(hz float64) float64 {
	if len(s.Magnitude) == 0 || s.SampleRate <= 0 {
		return 0
	}

	pos := hz * float64(s.FFTSize) / s.SampleRate
	pos = core.Clamp(pos, 0, float64(len(s.Magnitude)-1))

	k := int(pos)
	if k >= len(s.Magnitude)-1 {
		return s.Magnitude[len(s.Magnitude)-1]
	}

	frac := pos - float64(k)

	return s.Magnitude[k] + frac*(s.Magnitude[k+1]-s.Magnitude[k])
}

// DB returns the magnitude at hz in decibels.
func (s Spectrum) DB(hz float64) float64 {
	return core.LinearToDB(s.At(hz))
}

// DCGain returns the magnitude of bin 0.
func (s Spectrum) DCGain() float64 {
	if len(s.Magnitude) == 0 {
		return 0
	}

	return s.Magnitude[0]
}

// Peak returns the frequency and magnitude of the largest bin.
func (s Spectrum) Peak() (float64, float64) {
	if len(s.Magnitude) == 0 {
		return 0, 0
	}

	best := 0
	for k, v := range s.Magnitude {
		if v > s.Magnitude[best] {
			best = k
		}
	}

	return s.BinHz(best), s.Magnitude[best]
}

// CutoffHz returns the first frequency at which the response falls dropDB
// below its DC gain. The crossing is interpolated in dB between bins.
func (s Spectrum) CutoffHz(dropDB float64) (float64, bool) {
	if len(s.Magnitude) < 2 || s.Magnitude[0] <= 0 {
		return 0, false
	}

	ref := core.LinearToDB(s.Magnitude[0]) - dropDB
	prev := core.LinearToDB(s.Magnitude[0])

	for k := 1; k < len(s.Magnitude); k++ {
		cur := core.LinearToDB(s.Magnitude[k])
		if cur <= ref {
			frac := 0.0
			if prev != cur {
				frac = (prev - ref) / (prev - cur)
			}

			return s.BinHz(k-1) + frac*(s.BinHz(k)-s.BinHz(k-1)), true
		}

		prev = cur
	}

	return 0, false
}

// Normalized returns a copy of the spectrum scaled to unity DC gain.
func (s Spectrum) Normalized() Spectrum {
	out := s
	out.Magnitude = make([]float64, len(s.Magnitude))

	dc := s.DCGain()
	if dc == 0 {
		copy(out.Magnitude, s.Magnitude)
		return out
	}

	vecmath.ScaleBlock(out.Magnitude, s.Magnitude, 1/dc)

	return out
}

func nextPowerOf2(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}

	return size
}
