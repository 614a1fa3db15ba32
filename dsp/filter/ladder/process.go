package ladder

import (
	"math"

	"github.com/cwbudde/algo-ladder/dsp/core"
	"github.com/cwbudde/algo-ladder/dsp/ode"
)

// system is the ladder right-hand side for one sample. Filter refills it
// before every step and hands the integrator a pointer, so nothing escapes
// per sample.
type system[S ode.Scalar] struct {
	input     S
	resonance S
	omega0    S
	clip      func(S) S
}

func (s *system[S]) Derivatives(_ S, x, dxdt []S) {
	clip := s.clip

	inputc := clip(s.input - s.resonance*x[3])
	yc0 := clip(x[0])
	yc1 := clip(x[1])
	yc2 := clip(x[2])
	yc3 := clip(x[3])

	dxdt[0] = s.omega0 * (inputc - yc0)
	dxdt[1] = s.omega0 * (yc0 - yc1)
	dxdt[2] = s.omega0 * (yc1 - yc2)
	dxdt[3] = s.omega0 * (yc2 - yc3)
}

// ProcessSample is the host entry point: it advances the filter by one sample
// at sampleRateHz and returns both taps. The sample rate may change between
// calls without a Reset.
func (f *Filter[S]) ProcessSample(input, sampleRateHz S) Output[S] {
	return f.Process(input, 1/sampleRateHz)
}

// Process advances the filter by dt seconds with input held at the given
// value (linearly interpolated from the previous input when oversampling) and
// returns the new taps. dt must be finite and > 0; anything else panics in
// the integrator. Non-finite input is treated as silence; the rest is scaled
// by InputGain and, if configured, summed with the bootstrap noise.
func (f *Filter[S]) Process(input, dt S) Output[S] {
	if !core.IsFinite(input) {
		input = 0
	}

	input *= f.inputGain
	if f.noise != nil {
		input += f.noiseLevel * f.noiseSample()
	}

	omega0 := f.effectiveOmega(dt)

	if f.overSampling <= 1 {
		f.step(input, dt, omega0)
		f.lowpass, f.highpass = f.taps(input)
	} else {
		prev := f.prevInput
		n := S(f.overSampling)
		delta := (input - prev) / n
		subDt := dt / n

		var lp, hp S
		for i := range f.overSampling {
			sub := prev + delta*S(i+1)
			f.step(sub, subDt, omega0)

			l, h := f.taps(sub)
			lp += l
			hp += h
		}

		f.lowpass = lp / n
		f.highpass = hp / n
	}

	f.prevInput = input

	if f.flushDenormal {
		for i := range f.stage {
			f.stage[i] = core.FlushDenormals(f.stage[i])
		}
	}

	return Output[S]{Lowpass: f.lowpass, Highpass: f.highpass}
}

// ProcessBlock processes src at sampleRateHz into dst. Both slices must have
// the same length.
func (f *Filter[S]) ProcessBlock(dst []Output[S], src []S, sampleRateHz S) {
	n := len(src)
	if n == 0 {
		return
	}

	_ = dst[n-1]

	dt := 1 / sampleRateHz
	for i, x := range src {
		dst[i] = f.Process(x, dt)
	}
}

// ProcessLowpassInPlace replaces every sample of buf with the low-pass output.
func (f *Filter[S]) ProcessLowpassInPlace(buf []S, sampleRateHz S) {
	dt := 1 / sampleRateHz
	for i := range buf {
		buf[i] = f.Process(buf[i], dt).Lowpass
	}
}

// noiseSample returns a uniform value in [-1, 1).
func (f *Filter[S]) noiseSample() S {
	u := float64(f.noise.Uint64()>>11) / (1 << 53)
	return S(2*u - 1)
}

func (f *Filter[S]) step(input, dt, omega0 S) {
	f.rhs = system[S]{
		input:     input,
		resonance: f.resonance,
		omega0:    omega0,
		clip:      f.clip,
	}

	f.integrator.Step(0, dt, f.stage[:], &f.rhs)
}

// taps computes the outputs from the current stages.
//
// TODO: the high-pass tap is only verified for resonance == 0; with feedback
// the fourth difference no longer cancels the low-pass content. Derive the
// correct combination before relying on it at resonance > 0.
func (f *Filter[S]) taps(input S) (lowpass, highpass S) {
	x := &f.stage

	lowpass = x[3]
	highpass = f.clip((input - f.resonance*x[3]) - 4*x[0] + 6*x[1] - 4*x[2] + x[3])

	return lowpass, highpass
}

func (f *Filter[S]) effectiveOmega(dt S) S {
	if !f.clampParams {
		return f.omega0
	}

	lo := S(2 * math.Pi * MinCutoffHz)
	hi := S(2*math.Pi*NyquistFraction) / dt

	// A non-positive or NaN dt is left for the integrator to reject.
	if !(hi > lo) {
		return f.omega0
	}

	return core.Clamp(f.omega0, lo, hi)
}
