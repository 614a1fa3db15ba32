package response

import (
	"errors"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-ladder/dsp/filter/ladder"
)

// Errors returned by measurement functions.
var (
	ErrEmptyResponse     = errors.New("response: response is empty")
	ErrInvalidSampleRate = errors.New("response: sample rate must be positive")
	ErrNoBoundary        = errors.New("response: no stability boundary in range")
	ErrShortProbe        = errors.New("response: probe needs at least 4 samples")
)

// Processor maps one input sample to one output sample.
type Processor interface {
	ProcessSample(x float64) float64
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(x float64) float64

// ProcessSample calls fn(x).
func (fn ProcessorFunc) ProcessSample(x float64) float64 { return fn(x) }

// Tap selects which ladder output a Processor reads.
type Tap int

const (
	// TapLowpass reads the fourth stage.
	TapLowpass Tap = iota
	// TapHighpass reads the approximate high-pass combination.
	TapHighpass
)

func (t Tap) String() string {
	switch t {
	case TapLowpass:
		return "lowpass"
	case TapHighpass:
		return "highpass"
	default:
		return "unknown"
	}
}

// Ladder adapts f to a Processor at a fixed sample rate.
func Ladder(f *ladder.Filter[float64], sampleRate float64, tap Tap) Processor {
	dt := 1 / sampleRate

	if tap == TapHighpass {
		return ProcessorFunc(func(x float64) float64 { return f.Process(x, dt).Highpass })
	}

	return ProcessorFunc(func(x float64) float64 { return f.Process(x, dt).Lowpass })
}

// Drive feeds in through p and returns the outputs.
func Drive(p Processor, in []float64) []float64 {
	out := make([]float64, len(in))
	for i, x := range in {
		out[i] = p.ProcessSample(x)
	}

	return out
}

// Impulse returns n samples of the response to an impulse of the given
// amplitude, divided by amplitude. A non-positive amplitude means 1.
func Impulse(p Processor, n int, amplitude float64) []float64 {
	if n <= 0 {
		return nil
	}

	if amplitude <= 0 {
		amplitude = 1
	}

	out := make([]float64, n)
	out[0] = p.ProcessSample(amplitude)
	for i := 1; i < n; i++ {
		out[i] = p.ProcessSample(0)
	}

	vecmath.ScaleBlockInPlace(out, 1/amplitude)

	return out
}

// Step returns n samples of the response to a step of the given amplitude.
func Step(p Processor, amplitude float64, n int) []float64 {
	if n <= 0 {
		return nil
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = p.ProcessSample(amplitude)
	}

	return out
}

// Mean returns the mean of the last tail samples (all samples if tail is
// out of range).
func Mean(samples []float64, tail int) float64 {
	if len(samples) == 0 {
		return 0
	}

	if tail <= 0 || tail > len(samples) {
		tail = len(samples)
	}

	sum := 0.0
	for _, v := range samples[len(samples)-tail:] {
		sum += v
	}

	return sum / float64(tail)
}

// Settle returns the first index from which every sample stays within tol of
// target, and whether such an index exists.
func Settle(samples []float64, target, tol float64) (int, bool) {
	idx := len(samples)
	for i := len(samples) - 1; i >= 0; i-- {
		if !(math.Abs(samples[i]-target) <= tol) {
			break
		}

		idx = i
	}

	return idx, idx < len(samples)
}

// Bounded reports whether every sample is finite with magnitude below limit.
func Bounded(samples []float64, limit float64) bool {
	for _, v := range samples {
		if !(math.Abs(v) < limit) {
			return false
		}
	}

	return true
}

// PeakToPeak returns max - min of samples, or 0 for an empty slice.
func PeakToPeak(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	lo, hi := samples[0], samples[0]
	for _, v := range samples[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	return hi - lo
}

// LowpassOf is Ladder(f, sampleRate, TapLowpass).
func LowpassOf(f *ladder.Filter[float64], sampleRate float64) Processor {
	return Ladder(f, sampleRate, TapLowpass)
}
