package response

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-ladder/dsp/filter/ladder"
)

// The settling check looks at the last quarter of the probe, which must hold
// at least one sample.
const minProbeSamples = 4

// ThresholdConfig controls the step-response probe used by
// StabilityThreshold. Zero fields take their defaults.
type ThresholdConfig struct {
	SampleRate float64 // default 48000
	Amplitude  float64 // step height, default 0.1
	Samples    int     // probe length, default 24000, at least 4
	Tolerance  float64 // tail peak-to-peak relative to Amplitude, default 1e-3
	Iterations int     // bisection steps, default 30
}

func (c ThresholdConfig) withDefaults() ThresholdConfig {
	if c.SampleRate <= 0 {
		c.SampleRate = 48000
	}

	if c.Amplitude <= 0 {
		c.Amplitude = 0.1
	}

	if c.Samples <= 0 {
		c.Samples = 24000
	}

	if c.Tolerance <= 0 {
		c.Tolerance = 1e-3
	}

	if c.Iterations <= 0 {
		c.Iterations = 30
	}

	return c
}

// Settles reports whether the step response of the filter built for
// resonance decays to a constant: the last quarter of the probe must be
// finite and vary by less than Tolerance*Amplitude.
func Settles(newFilter func(resonance float64) (*ladder.Filter[float64], error), resonance float64, cfg ThresholdConfig) (bool, error) {
	cfg = cfg.withDefaults()

	if cfg.Samples < minProbeSamples {
		return false, fmt.Errorf("%w: %d", ErrShortProbe, cfg.Samples)
	}

	f, err := newFilter(resonance)
	if err != nil {
		return false, err
	}

	out := Step(Ladder(f, cfg.SampleRate, TapLowpass), cfg.Amplitude, cfg.Samples)
	tail := out[len(out)-len(out)/4:]

	if !Bounded(tail, math.MaxFloat64) {
		return false, nil
	}

	return PeakToPeak(tail) < cfg.Tolerance*cfg.Amplitude, nil
}

// StabilityThreshold bisects [lo, hi] for the largest resonance whose step
// response still settles. lo must settle and hi must not.
func StabilityThreshold(newFilter func(resonance float64) (*ladder.Filter[float64], error), lo, hi float64, cfg ThresholdConfig) (float64, error) {
	if newFilter == nil {
		return 0, fmt.Errorf("response: nil filter constructor")
	}

	if !(hi > lo) {
		return 0, fmt.Errorf("response: invalid resonance range [%g, %g]", lo, hi)
	}

	cfg = cfg.withDefaults()

	ok, err := Settles(newFilter, lo, cfg)
	if err != nil {
		return 0, err
	}

	if !ok {
		return 0, fmt.Errorf("%w: resonance %g does not settle", ErrNoBoundary, lo)
	}

	ok, err = Settles(newFilter, hi, cfg)
	if err != nil {
		return 0, err
	}

	if ok {
		return 0, fmt.Errorf("%w: resonance %g still settles", ErrNoBoundary, hi)
	}

	for range cfg.Iterations {
		mid := lo + (hi-lo)/2

		ok, err = Settles(newFilter, mid, cfg)
		if err != nil {
			return 0, err
		}

		if ok {
			lo = mid
		} else {
			hi = mid
		}
	}

	return lo, nil
}
